// Package misslog keeps an append-only CSV of transactions no rule matched,
// so the rule table can be extended from real data.
package misslog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// Entry is one row in the miss log.
type Entry struct {
	Timestamp    time.Time
	RunID        string
	Report       string
	Date         civil.Date
	Amount       decimal.Decimal
	Currency     string
	Counterparty string
	Description  string
	Source       model.Source
	Entity       string
}

// Header is the CSV header for unclassified.csv.
const Header = "timestamp,run_id,report,date,amount,currency,counterparty,description,source,entity"

const (
	numFields    = 10
	logDir       = "logs"
	logFile      = "logs/unclassified.csv"
	colTimestamp = 0
	colRunID     = 1
	colReport    = 2
	colDate      = 3
	colAmount    = 4
	colCurrency  = 5
	colCparty    = 6
	colDesc      = 7
	colSource    = 8
	colEntity    = 9
)

// FromTransaction records a miss for tx.
func FromTransaction(ts time.Time, runID, report string, tx model.Transaction) Entry {
	return Entry{
		Timestamp:    ts,
		RunID:        runID,
		Report:       report,
		Date:         tx.Date,
		Amount:       tx.Amount,
		Currency:     tx.Currency,
		Counterparty: tx.Counterparty,
		Description:  tx.Description,
		Source:       tx.Source,
		Entity:       tx.Entity,
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colReport] = e.Report
	row[colDate] = e.Date.String()
	row[colAmount] = e.Amount.String()
	row[colCurrency] = e.Currency
	row[colCparty] = e.Counterparty
	row[colDesc] = e.Description
	row[colSource] = string(e.Source)
	row[colEntity] = e.Entity
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	date, err := civil.ParseDate(record[colDate])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	return Entry{
		Timestamp:    ts,
		RunID:        record[colRunID],
		Report:       record[colReport],
		Date:         date,
		Amount:       amount,
		Currency:     record[colCurrency],
		Counterparty: record[colCparty],
		Description:  record[colDesc],
		Source:       model.Source(record[colSource]),
		Entity:       record[colEntity],
	}, nil
}

// Append writes entries to <repoRoot>/logs/unclassified.csv, creating the file and header if needed.
func Append(repoRoot string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	dir := filepath.Join(repoRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(repoRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening miss log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <repoRoot>/logs/unclassified.csv.
// Returns an empty slice if the file does not exist.
func Read(repoRoot string) ([]Entry, error) {
	path := filepath.Join(repoRoot, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening miss log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading miss log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
