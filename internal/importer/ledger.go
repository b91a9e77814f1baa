package importer

import (
	"fmt"
	"io"

	"github.com/cleared-dev/tally/internal/ledger"
)

// LedgerSource reads a kept ledger exported in the canonical transactions
// CSV layout. Entry IDs are dropped; stored classifications are kept.
type LedgerSource struct{}

// Format returns the source name.
func (s *LedgerSource) Format() string { return "ledger" }

// Parse reads a canonical ledger CSV.
func (s *LedgerSource) Parse(r io.Reader, opts Options) (Report, error) {
	entries, err := ledger.ReadEntries(r)
	if err != nil {
		return Report{}, fmt.Errorf("reading ledger source: %w", err)
	}

	report := Report{Name: s.Format()}
	for i, e := range entries {
		tx, err := finish(e.Transaction, i+2, opts)
		if err != nil {
			return Report{}, err
		}
		report.Transactions = append(report.Transactions, tx)
	}
	return report, nil
}
