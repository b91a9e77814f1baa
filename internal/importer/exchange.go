package importer

import (
	"io"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
)

// ExchangeParser parses crypto-exchange account exports. The asset column
// is the record currency; a fee in the same asset becomes its own outflow.
type ExchangeParser struct{}

var (
	exchangeRequired  = []string{"date", "asset", "amount"}
	exchangeReference = []string{"date", "type", "asset", "amount", "fee", "note", "tx_id"}
)

// Format returns the parser name.
func (p *ExchangeParser) Format() string { return "exchange" }

// Parse reads an exchange export.
func (p *ExchangeParser) Parse(r io.Reader, opts Options) (Report, error) {
	name := p.Format()
	t, snap, err := readTable(r, name,
		orDefault(opts.Required, exchangeRequired),
		orDefault(opts.Reference, exchangeReference))
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

func (p *ExchangeParser) parseRow(t table, rec []string) ([]model.Transaction, error) {
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

	desc := strings.TrimSpace(t.get(rec, "type") + " " + t.get(rec, "note"))
	base := model.Transaction{
		Date:        date,
		Currency:    t.get(rec, "asset"),
		Description: desc,
		Source:      model.SourceExchange,
		Reference:   t.get(rec, "tx_id"),
	}

	var out []model.Transaction
	if !amount.IsZero() || fee.IsZero() {
		tx := base
		tx.Amount = amount
		out = append(out, tx)
	}
	if !fee.IsZero() {
		f := base
		f.Amount = fee.Abs().Neg()
		f.Description = "fee"
		if base.Reference != "" {
			f.Reference = base.Reference + "-fee"
		}
		out = append(out, f)
	}
	return out, nil
}
