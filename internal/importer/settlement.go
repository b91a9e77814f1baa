package importer

import (
	"io"

	"github.com/cleared-dev/tally/internal/model"
)

// SettlementParser parses marketplace settlement reports. Columns are
// matched by name, so reordering and extra columns are tolerated. Each row
// yields the payout and, when present, its fee as a separate outflow.
type SettlementParser struct{}

var (
	settlementRequired  = []string{"date", "amount", "currency"}
	settlementReference = []string{"date", "order_id", "description", "amount", "fee", "currency", "marketplace"}
)

// Format returns the parser name.
func (p *SettlementParser) Format() string { return "settlement" }

// Parse reads a settlement report.
func (p *SettlementParser) Parse(r io.Reader, opts Options) (Report, error) {
	name := p.Format()
	t, snap, err := readTable(r, name,
		orDefault(opts.Required, settlementRequired),
		orDefault(opts.Reference, settlementReference))
	if err != nil {
		return Report{}, err
	}

	report := Report{Name: name, Schema: &snap}
	for i, rec := range t.rows {
		row := i + 2
		txs, err := p.parseRow(t, rec)
		if err != nil {
			return Report{}, atRow(err, row)
		}
		for _, tx := range txs {
			tx, err = finish(tx, row, opts)
			if err != nil {
				return Report{}, err
			}
			report.Transactions = append(report.Transactions, tx)
		}
	}
	return report, nil
}

func (p *SettlementParser) parseRow(t table, rec []string) ([]model.Transaction, error) {
	date, err := parseDate(t.get(rec, "date"))
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", t.get(rec, "amount"), false)
	if err != nil {
		return nil, err
	}
	fee, err := parseAmount("fee", t.get(rec, "fee"), true)
	if err != nil {
		return nil, err
	}

	base := model.Transaction{
		Date:         date,
		Currency:     t.get(rec, "currency"),
		Counterparty: t.get(rec, "marketplace"),
		Description:  t.get(rec, "description"),
		Source:       model.SourceMarketplace,
		Reference:    t.get(rec, "order_id"),
	}

	var out []model.Transaction
	if !amount.IsZero() || fee.IsZero() {
		payout := base
		payout.Amount = amount
		out = append(out, payout)
	}
	if !fee.IsZero() {
		f := base
		f.Amount = fee.Abs().Neg()
		f.Description = "fee"
		if base.Description != "" {
			f.Description = base.Description + " fee"
		}
		if base.Reference != "" {
			f.Reference = base.Reference + "-fee"
		}
		out = append(out, f)
	}
	return out, nil
}
