package model

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Source tags the feed that produced a transaction.
type Source string

const (
	SourceBank        Source = "bank"
	SourceLedger      Source = "ledger"
	SourceMarketplace Source = "marketplace"
	SourceExchange    Source = "exchange"
)

// Valid reports whether s is one of the known feeds.
func (s Source) Valid() bool {
	switch s {
	case SourceBank, SourceLedger, SourceMarketplace, SourceExchange:
		return true
	}
	return false
}

const (
	// EntityShared tags overhead that belongs to no single entity.
	EntityShared = "shared"
	// EntityCompany labels company-wide buckets. It is never a transaction tag.
	EntityCompany = "company"
)

// Transaction is one financial movement in canonical form.
type Transaction struct {
	Date           civil.Date
	Amount         decimal.Decimal // negative = outflow, positive = inflow
	Currency       string
	Counterparty   string
	Description    string
	Source         Source
	Entity         string // owning entity or EntityShared
	Reference      string // source-stable identifier, may be empty
	Classification Classification
}

// IsInflow reports whether money came in.
func (t Transaction) IsInflow() bool { return t.Amount.IsPositive() }

// IsShared reports whether the transaction is shared overhead.
func (t Transaction) IsShared() bool { return t.Entity == EntityShared }

// Validate checks the record invariants: a valid calendar date, a non-zero
// amount and a configured currency.
func (t Transaction) Validate(currencies CurrencySet) error {
	if !t.Date.IsValid() {
		return &InvalidRecordError{Field: "date", Value: t.Date.String(), Err: ErrInvalidDate}
	}
	if t.Amount.IsZero() {
		return &InvalidRecordError{Field: "amount", Value: t.Amount.String(), Err: ErrZeroAmount}
	}
	if !currencies.Has(t.Currency) {
		return &InvalidRecordError{Field: "currency", Value: t.Currency, Err: ErrUnknownCurrency}
	}
	return nil
}
