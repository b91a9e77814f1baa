// Package reconcile matches one transaction set against another by date and
// amount within a tolerance.
//
// Matching is greedy: each record of A, in A's order, consumes the first
// still-available record of B on the same date whose amount is within
// tolerance. Duplicates are independent; no optimal assignment is attempted,
// so when several B records qualify the earliest one in B's order is taken.
package reconcile

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

var (
	// ErrMixedCurrency is returned when the inputs do not share a single
	// currency. Mixing currencies in one call is a caller bug.
	ErrMixedCurrency = errors.New("reconcile: transactions in more than one currency")
	// ErrNegativeTolerance is returned for a tolerance below zero.
	ErrNegativeTolerance = errors.New("reconcile: negative tolerance")
)

// Reconcile partitions a and b into matched pairs and leftovers for every
// transaction dated on or after from. Records before from are ignored.
// Input slices are not modified and transactions are copied unchanged into
// the result.
func Reconcile(a, b []model.Transaction, tolerance decimal.Decimal, from civil.Date) (model.MatchResult, error) {
	if tolerance.IsNegative() {
		return model.MatchResult{}, ErrNegativeTolerance
	}
	currency, err := commonCurrency(a, b)
	if err != nil {
		return model.MatchResult{}, err
	}

	result := model.MatchResult{
		From:      from,
		Tolerance: tolerance,
		Currency:  currency,
	}

	// Available B records indexed by date, each list in B order.
	var bInRange []model.Transaction
	byDate := make(map[civil.Date][]int)
	for _, tx := range b {
		if tx.Date.Before(from) {
			continue
		}
		byDate[tx.Date] = append(byDate[tx.Date], len(bInRange))
		bInRange = append(bInRange, tx)
	}
	consumed := make([]bool, len(bInRange))
	result.BInRange = len(bInRange)

	for _, tx := range a {
		if tx.Date.Before(from) {
			continue
		}
		result.AInRange++

		j, ok := firstAvailable(tx, byDate[tx.Date], bInRange, consumed, tolerance)
		if !ok {
			result.AOnly = append(result.AOnly, tx)
			continue
		}
		consumed[j] = true
		result.Matched = append(result.Matched, model.MatchPair{A: tx, B: bInRange[j]})
	}

	for j, tx := range bInRange {
		if !consumed[j] {
			result.BOnly = append(result.BOnly, tx)
		}
	}
	return result, nil
}

func firstAvailable(tx model.Transaction, candidates []int, pool []model.Transaction, consumed []bool, tolerance decimal.Decimal) (int, bool) {
	for _, j := range candidates {
		if consumed[j] {
			continue
		}
		if tx.Amount.Sub(pool[j].Amount).Abs().LessThanOrEqual(tolerance) {
			return j, true
		}
	}
	return 0, false
}

func commonCurrency(sets ...[]model.Transaction) (string, error) {
	currency, seen := "", false
	for _, set := range sets {
		for _, tx := range set {
			c := model.NormalizeCurrency(tx.Currency)
			switch {
			case !seen:
				currency, seen = c, true
			case c != currency:
				return "", fmt.Errorf("%w: %q and %q", ErrMixedCurrency, currency, c)
			}
		}
	}
	return currency, nil
}
