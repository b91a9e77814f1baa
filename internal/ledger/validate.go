package ledger

import (
	"fmt"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Invariant   int
	EntryID     string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.EntryID, e.Description)
}

// CategoryChecker tests whether a category exists in the chart.
type CategoryChecker interface {
	Exists(name string) bool
}

// ValidateRecords enforces the ledger invariants on one month of entries:
//
//  1. amount is non-zero
//  2. currency is configured
//  3. amount has at most the currency's minor-unit decimals
//  4. date falls within the month
//  5. entry IDs are unique and contiguous 1..N
//  6. category, when set, exists in the chart
func ValidateRecords(entries []Entry, currencies model.CurrencySet, cats CategoryChecker, year, month int) []ValidationError {
	var errs []ValidationError

	for _, e := range entries {
		if e.Amount.IsZero() {
			errs = append(errs, ValidationError{
				Invariant:   1,
				EntryID:     e.ID,
				Description: "amount must not be zero",
			})
		}

		if !currencies.Has(e.Currency) {
			errs = append(errs, ValidationError{
				Invariant:   2,
				EntryID:     e.ID,
				Description: fmt.Sprintf("currency %q is not configured", e.Currency),
			})
		} else if !e.Amount.Equal(model.Round(e.Amount, e.Currency)) {
			errs = append(errs, ValidationError{
				Invariant:   3,
				EntryID:     e.ID,
				Description: fmt.Sprintf("amount %s has more than %d decimal places", e.Amount, model.Fraction(e.Currency)),
			})
		}

		if e.Date.Year != year || int(e.Date.Month) != month {
			errs = append(errs, ValidationError{
				Invariant:   4,
				EntryID:     e.ID,
				Description: fmt.Sprintf("date %s not in %04d-%02d", e.Date, year, month),
			})
		}

		if c := e.Classification.Category; c != "" && cats != nil && !cats.Exists(c) {
			errs = append(errs, ValidationError{
				Invariant:   6,
				EntryID:     e.ID,
				Description: fmt.Sprintf("unknown category %q", c),
			})
		}
	}

	seqSeen := make(map[int]bool)
	for _, e := range entries {
		_, _, seq, err := id.ParseEntryID(e.ID)
		if err != nil {
			errs = append(errs, ValidationError{
				Invariant:   5,
				EntryID:     e.ID,
				Description: fmt.Sprintf("invalid entry ID: %v", err),
			})
			continue
		}
		if seqSeen[seq] {
			errs = append(errs, ValidationError{
				Invariant:   5,
				EntryID:     e.ID,
				Description: "duplicate entry ID",
			})
		}
		seqSeen[seq] = true
	}
	for i := 1; i <= len(seqSeen); i++ {
		if !seqSeen[i] {
			errs = append(errs, ValidationError{
				Invariant:   5,
				EntryID:     fmt.Sprintf("seq %d", i),
				Description: fmt.Sprintf("missing sequence %d in 1..%d", i, len(seqSeen)),
			})
		}
	}

	return errs
}
