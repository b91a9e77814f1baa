package model

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// MatchPair is one transaction of set A reconciled with one of set B.
type MatchPair struct {
	A Transaction
	B Transaction
}

// Difference is the absolute amount gap between the two sides.
func (p MatchPair) Difference() decimal.Decimal {
	return p.A.Amount.Sub(p.B.Amount).Abs()
}

// MatchResult partitions two transaction sets after reconciliation.
type MatchResult struct {
	From      civil.Date
	Tolerance decimal.Decimal
	Currency  string // empty when both inputs were empty
	Matched   []MatchPair
	AOnly     []Transaction
	BOnly     []Transaction
	AInRange  int
	BInRange  int
}

// Clean reports whether every in-range record found a partner.
func (r MatchResult) Clean() bool {
	return len(r.AOnly) == 0 && len(r.BOnly) == 0
}

// Check verifies the partition: every in-range record of each side is
// either matched or left over, exactly once.
func (r MatchResult) Check() error {
	if got := len(r.Matched) + len(r.AOnly); got != r.AInRange {
		return fmt.Errorf("side A: %d matched + %d unmatched != %d in range", len(r.Matched), len(r.AOnly), r.AInRange)
	}
	if got := len(r.Matched) + len(r.BOnly); got != r.BInRange {
		return fmt.Errorf("side B: %d matched + %d unmatched != %d in range", len(r.Matched), len(r.BOnly), r.BInRange)
	}
	return nil
}
