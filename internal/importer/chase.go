package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

// ChaseParser parses Chase bank checking CSV exports.
type ChaseParser struct{}

const (
	chaseDateFormat = "01/02/2006"
	chaseCurrency   = "USD"
	chaseNumFields  = 7
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV. The export has no currency column; records get
// opts.Currency, or USD when unset.
func (p *ChaseParser) Parse(r io.Reader, opts Options) (Report, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return Report{}, fmt.Errorf("reading chase CSV: %w", err)
	}

	report := Report{Name: p.Format()}
	if len(records) <= 1 {
		return report, nil
	}

	if opts.Currency == "" {
		opts.Currency = chaseCurrency
	}
	for i, rec := range records[1:] {
		txn, err := parseChaseRow(rec)
		if err != nil {
			return Report{}, atRow(err, i+2)
		}
		txn, err = finish(txn, i+2, opts)
		if err != nil {
			return Report{}, err
		}
		report.Transactions = append(report.Transactions, txn)
	}
	return report, nil
}

func parseChaseRow(rec []string) (model.Transaction, error) {
	t, err := time.Parse(chaseDateFormat, strings.TrimSpace(rec[chaseColDate]))
	if err != nil {
		return model.Transaction{}, &model.InvalidRecordError{Field: "date", Value: rec[chaseColDate], Err: model.ErrInvalidDate}
	}
	date := civil.DateOf(t)

	amount, err := decimal.NewFromString(strings.TrimSpace(rec[chaseColAmount]))
	if err != nil {
		return model.Transaction{}, &model.InvalidRecordError{Field: "amount", Value: rec[chaseColAmount], Err: model.ErrInvalidAmount}
	}

	desc := strings.TrimSpace(rec[chaseColDesc])
	return model.Transaction{
		Date:         date,
		Amount:       amount,
		Counterparty: desc,
		Description:  desc,
		Source:       model.SourceBank,
		Reference:    id.FormatReference("chase", date, desc),
	}, nil
}
