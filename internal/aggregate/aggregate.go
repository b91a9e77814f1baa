// Package aggregate rolls classified transactions up into period buckets per
// entity and currency. Currencies are never merged: a secondary-currency
// bucket only carries an informational projection into the primary currency.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/period"
)

// View selects how shared overhead reaches the entity buckets.
type View int

const (
	// Exclusive keeps shared overhead in its own bucket.
	Exclusive View = iota
	// Inclusive folds shared overhead into every entity bucket.
	Inclusive
)

func (v View) String() string {
	if v == Inclusive {
		return "inclusive"
	}
	return "exclusive"
}

// ParseView accepts "exclusive" or "inclusive".
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exclusive":
		return Exclusive, nil
	case "inclusive":
		return Inclusive, nil
	default:
		return Exclusive, fmt.Errorf("unknown view %q", s)
	}
}

// Allocation selects how an Inclusive view spreads shared overhead.
type Allocation int

const (
	// AllocationNone charges the full shared amount to every entity.
	AllocationNone Allocation = iota
	// AllocationEqual splits the amount evenly; the first entity takes the
	// rounding remainder.
	AllocationEqual
)

func (a Allocation) String() string {
	if a == AllocationEqual {
		return "equal"
	}
	return "none"
}

// ParseAllocation accepts "none" or "equal".
func ParseAllocation(s string) (Allocation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return AllocationNone, nil
	case "equal":
		return AllocationEqual, nil
	default:
		return AllocationNone, fmt.Errorf("unknown allocation %q", s)
	}
}

// Settings is the static configuration of an Aggregator.
type Settings struct {
	Primary      string
	Rates        map[string]decimal.Decimal // secondary code -> primary per unit
	Groups       map[string]string          // category -> super-group
	Types        map[string]model.TxType    // category -> default type
	SavingsGroup string
}

// Scope narrows one aggregation run.
type Scope struct {
	Entities        []string // empty means every entity seen in the data
	View            View
	Allocation      Allocation
	IncludeInternal bool
}

// Aggregator is immutable after New and safe for concurrent use.
type Aggregator struct {
	primary      string
	rates        map[string]decimal.Decimal
	groups       map[string]string
	types        map[string]model.TxType
	savingsGroup string
}

// New copies s into an Aggregator.
func New(s Settings) *Aggregator {
	a := &Aggregator{
		primary:      model.NormalizeCurrency(s.Primary),
		rates:        make(map[string]decimal.Decimal, len(s.Rates)),
		groups:       make(map[string]string, len(s.Groups)),
		types:        make(map[string]model.TxType, len(s.Types)),
		savingsGroup: s.SavingsGroup,
	}
	for code, r := range s.Rates {
		a.rates[model.NormalizeCurrency(code)] = r
	}
	for k, v := range s.Groups {
		a.groups[k] = v
	}
	for k, v := range s.Types {
		a.types[k] = v
	}
	return a
}

// Primary returns the primary currency code.
func (a *Aggregator) Primary() string { return a.primary }

type bucketKey struct {
	period   period.Key
	entity   string
	currency string
}

// Aggregate buckets txs by period of granularity g. Every returned bucket's
// NetTotal equals the sum of its category sums. Transactions whose entity is
// outside scope.Entities are ignored, including in the company bucket.
func (a *Aggregator) Aggregate(txs []model.Transaction, g period.Granularity, scope Scope) []model.PeriodBucket {
	entities := scopeEntities(txs, scope.Entities)
	inScope := make(map[string]bool, len(entities))
	for _, e := range entities {
		inScope[e] = true
	}

	buckets := make(map[bucketKey]*model.PeriodBucket)
	add := func(pk period.Key, entity, currency, category string, amount decimal.Decimal, inclusive bool) {
		k := bucketKey{period: pk, entity: entity, currency: currency}
		b, ok := buckets[k]
		if !ok {
			nb := model.NewPeriodBucket(pk, entity, currency)
			b = &nb
			buckets[k] = b
		}
		b.Add(category, amount)
		if inclusive {
			b.IncludesShared = true
		}
	}

	for _, tx := range txs {
		if tx.Classification.Type == model.TypeInternal && !scope.IncludeInternal {
			continue
		}
		shared := tx.IsShared() || tx.Entity == ""
		if !shared && !inScope[tx.Entity] {
			continue
		}
		pk := period.Of(tx.Date, g)
		cur := model.NormalizeCurrency(tx.Currency)
		cat := tx.Classification.Category
		if cat == "" {
			cat = model.Uncategorized
		}

		add(pk, model.EntityCompany, cur, cat, tx.Amount, false)
		switch {
		case !shared:
			add(pk, tx.Entity, cur, cat, tx.Amount, false)
		case scope.View == Exclusive || len(entities) == 0:
			add(pk, model.EntityShared, cur, cat, tx.Amount, false)
		case scope.Allocation == AllocationEqual:
			for i, part := range splitEqual(tx.Amount, cur, len(entities)) {
				add(pk, entities[i], cur, cat, part, true)
			}
		default:
			for _, e := range entities {
				add(pk, e, cur, cat, tx.Amount, true)
			}
		}
	}

	out := make([]model.PeriodBucket, 0, len(buckets))
	for _, b := range buckets {
		if b.Currency != a.primary {
			if r, ok := a.rates[b.Currency]; ok {
				b.Projection = &model.Projection{Currency: a.primary, Rate: r}
			}
		}
		out = append(out, *b)
	}
	a.sortBuckets(out, entities)
	return out
}

// splitEqual divides amount into n parts rounded to the currency's minor
// unit. The parts sum to amount exactly; parts[0] absorbs the remainder.
func splitEqual(amount decimal.Decimal, currency string, n int) []decimal.Decimal {
	parts := make([]decimal.Decimal, n)
	share := amount.Div(decimal.NewFromInt(int64(n))).Truncate(int32(model.Fraction(currency)))
	for i := range parts {
		parts[i] = share
	}
	parts[0] = amount.Sub(share.Mul(decimal.NewFromInt(int64(n - 1))))
	return parts
}

func scopeEntities(txs []model.Transaction, configured []string) []string {
	seen := make(map[string]bool)
	var out []string
	addEntity := func(e string) {
		if e == "" || e == model.EntityShared || e == model.EntityCompany || seen[e] {
			return
		}
		seen[e] = true
		out = append(out, e)
	}
	if len(configured) > 0 {
		for _, e := range configured {
			addEntity(e)
		}
		return out
	}
	for _, tx := range txs {
		addEntity(tx.Entity)
	}
	sort.Strings(out)
	return out
}

// sortBuckets orders by period, then entity (scope order, shared, company),
// then currency (primary first).
func (a *Aggregator) sortBuckets(bs []model.PeriodBucket, entities []string) {
	rank := make(map[string]int, len(entities)+2)
	for i, e := range entities {
		rank[e] = i
	}
	rank[model.EntityShared] = len(entities)
	rank[model.EntityCompany] = len(entities) + 1

	sort.Slice(bs, func(i, j int) bool {
		x, y := bs[i], bs[j]
		if x.Period != y.Period {
			return x.Period.Before(y.Period)
		}
		if x.Entity != y.Entity {
			return rank[x.Entity] < rank[y.Entity]
		}
		if (x.Currency == a.primary) != (y.Currency == a.primary) {
			return x.Currency == a.primary
		}
		return x.Currency < y.Currency
	})
}

// Verify checks that entity and shared buckets add up to the company bucket
// per period, currency and category. It only applies to Exclusive views and
// to Inclusive views with AllocationEqual; full allocation double counts by
// construction.
func Verify(buckets []model.PeriodBucket, scope Scope) error {
	if scope.View == Inclusive && scope.Allocation == AllocationNone {
		return nil
	}
	type pc struct {
		period   period.Key
		currency string
	}
	company := make(map[pc]model.PeriodBucket)
	parts := make(map[pc]map[string]decimal.Decimal)
	for _, b := range buckets {
		k := pc{b.Period, b.Currency}
		if b.IsCompany() {
			company[k] = b
			continue
		}
		if parts[k] == nil {
			parts[k] = make(map[string]decimal.Decimal)
		}
		for cat, s := range b.Sums {
			parts[k][cat] = parts[k][cat].Add(s)
		}
	}
	for k, c := range company {
		got := parts[k]
		for cat, want := range c.Sums {
			if !got[cat].Equal(want) {
				return fmt.Errorf("%s %s %s: entities sum to %s, company has %s",
					k.period.Label(), k.currency, cat, got[cat], want)
			}
		}
		for cat, s := range got {
			if _, ok := c.Sums[cat]; !ok && !s.IsZero() {
				return fmt.Errorf("%s %s %s: missing from company bucket", k.period.Label(), k.currency, cat)
			}
		}
	}
	for k := range parts {
		if _, ok := company[k]; !ok {
			return fmt.Errorf("%s %s: no company bucket", k.period.Label(), k.currency)
		}
	}
	return nil
}
