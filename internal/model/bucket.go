package model

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/period"
)

// Projection converts a secondary-currency net total into the primary
// currency for information only.
type Projection struct {
	Currency string // primary currency
	Rate     decimal.Decimal
}

// PeriodBucket aggregates signed category sums for one period, entity and
// currency.
type PeriodBucket struct {
	Period         period.Key
	Entity         string // entity name, EntityShared or EntityCompany
	Currency       string
	Sums           map[string]decimal.Decimal
	IncludesShared bool        // entity bucket carrying shared overhead
	Projection     *Projection // set only on secondary-currency buckets
}

// NewPeriodBucket returns an empty bucket.
func NewPeriodBucket(key period.Key, entity, currency string) PeriodBucket {
	return PeriodBucket{
		Period:   key,
		Entity:   entity,
		Currency: currency,
		Sums:     make(map[string]decimal.Decimal),
	}
}

// Add accumulates amount into category.
func (b *PeriodBucket) Add(category string, amount decimal.Decimal) {
	if b.Sums == nil {
		b.Sums = make(map[string]decimal.Decimal)
	}
	b.Sums[category] = b.Sums[category].Add(amount)
}

// Sum returns the signed total of category, zero if absent.
func (b PeriodBucket) Sum(category string) decimal.Decimal {
	return b.Sums[category]
}

// NetTotal is recomputed from the category sums on every call.
func (b PeriodBucket) NetTotal() decimal.Decimal {
	total := decimal.Zero
	for _, s := range b.Sums {
		total = total.Add(s)
	}
	return total
}

// Categories returns the categories present in the bucket, sorted.
func (b PeriodBucket) Categories() []string {
	cats := make([]string, 0, len(b.Sums))
	for c := range b.Sums {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// IsCompany reports whether this is a company-wide bucket.
func (b PeriodBucket) IsCompany() bool { return b.Entity == EntityCompany }

// Projected returns the net total converted into the primary currency,
// rounded to its minor unit. ok is false for primary-currency buckets.
func (b PeriodBucket) Projected() (amount decimal.Decimal, currency string, ok bool) {
	if b.Projection == nil {
		return decimal.Zero, "", false
	}
	p := b.Projection
	return Round(b.NetTotal().Mul(p.Rate), p.Currency), p.Currency, true
}
