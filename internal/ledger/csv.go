package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// Header is the CSV header for transactions.csv.
const Header = "entry_id,date,amount,currency,counterparty,description,source,entity,reference,category,subcategory,type,rule"

const (
	numFields   = 13
	colEntryID  = 0
	colDate     = 1
	colAmount   = 2
	colCurrency = 3
	colCparty   = 4
	colDesc     = 5
	colSource   = 6
	colEntity   = 7
	colRef      = 8
	colCategory = 9
	colSubcat   = 10
	colType     = 11
	colRule     = 12
)

// Entry is a stored transaction with its ledger ID.
type Entry struct {
	ID string
	model.Transaction
}

// ReadEntries reads all entries from a transactions.csv reader.
func ReadEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			var rerr *model.InvalidRecordError
			if errors.As(err, &rerr) {
				rerr.Row = i + 2
				return nil, rerr
			}
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteEntries writes entries to a transactions.csv writer (including header).
func WriteEntries(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// AppendEntries appends entries to an existing transactions.csv writer (no header).
func AppendEntries(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalEntry converts an Entry to a CSV row. Amounts keep the minor-unit
// precision of their currency.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colEntryID] = e.ID
	row[colDate] = e.Date.String()
	row[colAmount] = model.FormatPlain(e.Amount, e.Currency)
	row[colCurrency] = model.NormalizeCurrency(e.Currency)
	row[colCparty] = e.Counterparty
	row[colDesc] = e.Description
	row[colSource] = string(e.Source)
	row[colEntity] = e.Entity
	row[colRef] = e.Reference
	row[colCategory] = e.Classification.Category
	row[colSubcat] = e.Classification.Subcategory
	row[colType] = string(e.Classification.Type)
	row[colRule] = e.Classification.Rule
	return row
}

// UnmarshalEntry converts a CSV row to an Entry. Classification columns may
// be empty for rows that were never classified.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := civil.ParseDate(strings.TrimSpace(record[colDate]))
	if err != nil {
		return Entry{}, &model.InvalidRecordError{Field: "date", Value: record[colDate], Err: model.ErrInvalidDate}
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(record[colAmount]))
	if err != nil {
		return Entry{}, &model.InvalidRecordError{Field: "amount", Value: record[colAmount], Err: model.ErrInvalidAmount}
	}

	src := model.Source(record[colSource])
	if !src.Valid() {
		return Entry{}, fmt.Errorf("unknown source %q", record[colSource])
	}

	var typ model.TxType
	if record[colType] != "" {
		typ, err = model.ParseTxType(record[colType])
		if err != nil {
			return Entry{}, err
		}
	}

	return Entry{
		ID: record[colEntryID],
		Transaction: model.Transaction{
			Date:         date,
			Amount:       amount,
			Currency:     model.NormalizeCurrency(record[colCurrency]),
			Counterparty: record[colCparty],
			Description:  record[colDesc],
			Source:       src,
			Entity:       record[colEntity],
			Reference:    record[colRef],
			Classification: model.Classification{
				Category:    record[colCategory],
				Subcategory: record[colSubcat],
				Type:        typ,
				Rule:        record[colRule],
			},
		},
	}, nil
}

// Transactions strips the entry IDs.
func Transactions(entries []Entry) []model.Transaction {
	out := make([]model.Transaction, len(entries))
	for i, e := range entries {
		out[i] = e.Transaction
	}
	return out
}
