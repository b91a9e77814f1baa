package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TxType is the economic nature of a classified transaction.
type TxType string

const (
	TypeIncome   TxType = "income"
	TypeExpense  TxType = "expense"
	TypeTransfer TxType = "transfer"
	TypeInternal TxType = "internal" // transfer between the owner's own accounts
)

// ParseTxType validates a type name from configuration or CSV.
func ParseTxType(s string) (TxType, error) {
	switch t := TxType(s); t {
	case TypeIncome, TypeExpense, TypeTransfer, TypeInternal:
		return t, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// Uncategorized is the category assigned when no rule matches.
const Uncategorized = "uncategorized"

// Classification is attached to a Transaction by the classifier.
type Classification struct {
	Category    string
	Subcategory string
	Type        TxType
	Rule        string // name of the matching rule; empty on a miss
}

// Matched reports whether a rule produced the classification.
func (c Classification) Matched() bool { return c.Rule != "" }

// IsZero reports whether the transaction has not been classified yet.
func (c Classification) IsZero() bool { return c.Category == "" }

// Fallback is the classification for a transaction no rule matched. The
// type is derived from the sign alone.
func Fallback(amount decimal.Decimal) Classification {
	typ := TypeExpense
	if amount.IsPositive() {
		typ = TypeIncome
	}
	return Classification{Category: Uncategorized, Type: typ}
}
