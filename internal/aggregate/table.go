package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// Row is one bucket laid out against the table's category columns.
type Row struct {
	Period            string
	Entity            string
	Currency          string
	Values            []decimal.Decimal // aligned with Table.Categories
	Net               decimal.Decimal
	Projected         decimal.Decimal
	ProjectedCurrency string
	HasProjection     bool
	IncludesShared    bool
}

// Table is a rollup with a stable column order.
type Table struct {
	Primary    string
	Categories []string
	Rows       []Row
}

// Header returns the column names: period, entity, currency, categories,
// net_total and projected_<primary>.
func (t Table) Header() []string {
	h := make([]string, 0, len(t.Categories)+5)
	h = append(h, "period", "entity", "currency")
	h = append(h, t.Categories...)
	return append(h, "net_total", "projected_"+t.Primary)
}

type groupKind int

const (
	kindIncome groupKind = iota
	kindExpense
	kindTransfer
	kindSavings
)

type groupInfo struct {
	name   string
	kind   groupKind
	weight decimal.Decimal
	cats   []string
}

// Table lays out buckets in the order given. Category columns are ordered
// by super-group: income groups, expense groups, transfer groups, each by
// descending absolute total, with the savings group last.
func (a *Aggregator) Table(buckets []model.PeriodBucket) Table {
	cats := a.orderCategories(buckets)
	t := Table{Primary: a.primary, Categories: cats, Rows: make([]Row, 0, len(buckets))}
	for _, b := range buckets {
		r := Row{
			Period:         b.Period.Label(),
			Entity:         b.Entity,
			Currency:       b.Currency,
			Values:         make([]decimal.Decimal, len(cats)),
			Net:            b.NetTotal(),
			IncludesShared: b.IncludesShared,
		}
		for i, c := range cats {
			r.Values[i] = b.Sum(c)
		}
		r.Projected, r.ProjectedCurrency, r.HasProjection = b.Projected()
		t.Rows = append(t.Rows, r)
	}
	return t
}

func (a *Aggregator) orderCategories(buckets []model.PeriodBucket) []string {
	// Company buckets avoid counting shared overhead more than once; fall
	// back to everything when the caller filtered them out.
	weighted := buckets
	var company []model.PeriodBucket
	for _, b := range buckets {
		if b.IsCompany() {
			company = append(company, b)
		}
	}
	if len(company) > 0 {
		weighted = company
	}

	catWeight := make(map[string]decimal.Decimal)
	for _, b := range buckets {
		for c := range b.Sums {
			if _, ok := catWeight[c]; !ok {
				catWeight[c] = decimal.Zero
			}
		}
	}
	for _, b := range weighted {
		rate, ok := decimal.NewFromInt(1), b.Currency == a.primary
		if !ok {
			rate, ok = a.rates[b.Currency]
		}
		if !ok {
			continue
		}
		for c, s := range b.Sums {
			catWeight[c] = catWeight[c].Add(s.Mul(rate).Abs())
		}
	}

	groups := make(map[string]*groupInfo)
	for c, w := range catWeight {
		name := a.groupOf(c)
		g, ok := groups[name]
		if !ok {
			g = &groupInfo{name: name, kind: kindIncome, weight: decimal.Zero}
			groups[name] = g
		}
		g.cats = append(g.cats, c)
		g.weight = g.weight.Add(w)
	}

	list := make([]*groupInfo, 0, len(groups))
	for _, g := range groups {
		g.kind = a.kindOf(g)
		sort.Slice(g.cats, func(i, j int) bool {
			wi, wj := catWeight[g.cats[i]], catWeight[g.cats[j]]
			if !wi.Equal(wj) {
				return wi.GreaterThan(wj)
			}
			return g.cats[i] < g.cats[j]
		})
		list = append(list, g)
	}
	sort.Slice(list, func(i, j int) bool {
		x, y := list[i], list[j]
		if x.kind != y.kind {
			return x.kind < y.kind
		}
		if !x.weight.Equal(y.weight) {
			return x.weight.GreaterThan(y.weight)
		}
		return x.name < y.name
	})

	out := make([]string, 0, len(catWeight))
	for _, g := range list {
		out = append(out, g.cats...)
	}
	return out
}

func (a *Aggregator) groupOf(category string) string {
	if g, ok := a.groups[category]; ok && g != "" {
		return g
	}
	return category
}

// kindOf classifies a super-group: income when all its categories are
// income, transfer when all are transfers or internal, expense otherwise.
func (a *Aggregator) kindOf(g *groupInfo) groupKind {
	if a.savingsGroup != "" && g.name == a.savingsGroup {
		return kindSavings
	}
	income, transfer := true, true
	for _, c := range g.cats {
		switch a.types[c] {
		case model.TypeIncome:
			transfer = false
		case model.TypeTransfer, model.TypeInternal:
			income = false
		default:
			income, transfer = false, false
		}
	}
	switch {
	case income:
		return kindIncome
	case transfer:
		return kindTransfer
	default:
		return kindExpense
	}
}
