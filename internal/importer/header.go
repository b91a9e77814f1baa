package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/schema"
)

// dateLayouts are tried in order for header-based reports. Timestamps keep
// the calendar date of their own offset.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// table is a header-based CSV with normalized column names.
type table struct {
	cols map[string]int
	rows [][]string
}

// readTable reads a header-based CSV and checks its header for drift.
// Missing required fields abort before any row is read.
func readTable(r io.Reader, report string, required, reference []string) (table, model.SchemaSnapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return table{}, model.SchemaSnapshot{}, fmt.Errorf("%s: empty report", report)
	}
	if err != nil {
		return table{}, model.SchemaSnapshot{}, fmt.Errorf("reading %s header: %w", report, err)
	}

	observed := normalizeHeader(header)
	cols := make(map[string]int, len(observed))
	for i, name := range observed {
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	snap, err := schema.Check(report, observed, required, reference)
	if err != nil {
		return table{}, model.SchemaSnapshot{}, err
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return table{}, model.SchemaSnapshot{}, fmt.Errorf("reading %s CSV: %w", report, err)
	}
	return table{cols: cols, rows: rows}, snap, nil
}

// ReadHeader returns the normalized field names of a CSV report's first
// row without reading the rest.
func ReadHeader(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty report")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	return normalizeHeader(header), nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = schema.Normalize(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}

// get returns the trimmed value of column name, or "" when the column is
// absent.
func (t table) get(rec []string, name string) string {
	i, ok := t.cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (t table) has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

func parseDate(s string) (civil.Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, &model.InvalidRecordError{Field: "date", Value: s, Err: model.ErrInvalidDate}
}

// parseAmount accepts plain decimals; an empty optional value is zero.
func parseAmount(field, s string, optional bool) (decimal.Decimal, error) {
	if s == "" && optional {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		return decimal.Zero, &model.InvalidRecordError{Field: field, Value: s, Err: model.ErrInvalidAmount}
	}
	return d, nil
}

func orDefault(fields, def []string) []string {
	if len(fields) == 0 {
		return def
	}
	return fields
}
