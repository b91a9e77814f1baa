package reconcile

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// Summary condenses a MatchResult for reporting.
type Summary struct {
	Currency     string
	AInRange     int
	BInRange     int
	Matched      int
	AOnly        int
	BOnly        int
	AOnlyTotal   decimal.Decimal // signed sum of unmatched A amounts
	BOnlyTotal   decimal.Decimal // signed sum of unmatched B amounts
	MatchedDrift decimal.Decimal // sum of absolute differences inside tolerance
	LargestDrift decimal.Decimal
	Clean        bool // nothing left over on either side
}

// Summarize computes totals over a result.
func Summarize(r model.MatchResult) Summary {
	s := Summary{
		Currency: r.Currency,
		AInRange: r.AInRange,
		BInRange: r.BInRange,
		Matched:  len(r.Matched),
		AOnly:    len(r.AOnly),
		BOnly:    len(r.BOnly),
		Clean:    r.Clean(),
	}
	for _, tx := range r.AOnly {
		s.AOnlyTotal = s.AOnlyTotal.Add(tx.Amount)
	}
	for _, tx := range r.BOnly {
		s.BOnlyTotal = s.BOnlyTotal.Add(tx.Amount)
	}
	for _, p := range r.Matched {
		d := p.Difference()
		s.MatchedDrift = s.MatchedDrift.Add(d)
		if d.GreaterThan(s.LargestDrift) {
			s.LargestDrift = d
		}
	}
	return s
}

// Gap is the net amount by which side A exceeds side B after matching.
func (s Summary) Gap() decimal.Decimal {
	return s.AOnlyTotal.Sub(s.BOnlyTotal)
}

// Print writes a short human-readable summary, labelling the two sides.
func (s Summary) Print(w io.Writer, labelA, labelB string) error {
	cur := s.Currency
	_, err := fmt.Fprintf(w,
		"%s: %d in range, %s: %d in range\n"+
			"matched: %d (drift %s, largest %s)\n"+
			"%s only: %d (%s)\n"+
			"%s only: %d (%s)\n",
		labelA, s.AInRange, labelB, s.BInRange,
		s.Matched, model.FormatPlain(s.MatchedDrift, cur), model.FormatPlain(s.LargestDrift, cur),
		labelA, s.AOnly, model.FormatPlain(s.AOnlyTotal, cur),
		labelB, s.BOnly, model.FormatPlain(s.BOnlyTotal, cur),
	)
	return err
}
