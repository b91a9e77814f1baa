// Package export writes rollup tables and reconciliation reports as CSV or
// XLSX. Amounts carry the minor-unit precision of their own currency.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/tally/internal/aggregate"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/reconcile"
)

// amount is a cell rendered with its currency precision.
type amount struct {
	value    decimal.Decimal
	currency string
}

func (a amount) text() string { return model.FormatPlain(a.value, a.currency) }

func (a amount) number() float64 {
	return model.Round(a.value, a.currency).InexactFloat64()
}

// sheet is a header plus rows of string or amount cells.
type sheet struct {
	name   string
	header []string
	rows   [][]any
}

func writeCSV(w io.Writer, s sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	rec := make([]string, len(s.header))
	for i, row := range s.rows {
		for j, c := range row {
			rec[j] = cellText(c)
		}
		if err := cw.Write(rec[:len(row)]); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cellText(c any) string {
	switch v := c.(type) {
	case amount:
		return v.text()
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func writeXLSX(w io.Writer, sheets ...sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return fmt.Errorf("naming sheet %s: %w", s.name, err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("adding sheet %s: %w", s.name, err)
		}
		if err := fillSheet(f, s); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func fillSheet(f *excelize.File, s sheet) error {
	header := make([]any, len(s.header))
	for i, h := range s.header {
		header[i] = h
	}
	if err := setRow(f, s.name, 1, header); err != nil {
		return err
	}
	for i, row := range s.rows {
		cells := make([]any, len(row))
		for j, c := range row {
			switch v := c.(type) {
			case amount:
				cells[j] = v.number()
			default:
				cells[j] = cellText(c)
			}
		}
		if err := setRow(f, s.name, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, name string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(name, cell, &cells); err != nil {
		return fmt.Errorf("writing %s row %d: %w", name, row, err)
	}
	return nil
}

// IsXLSX reports whether path names a workbook rather than a CSV.
func IsXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func tableSheet(t aggregate.Table) sheet {
	s := sheet{name: "rollup", header: t.Header()}
	for _, r := range t.Rows {
		row := make([]any, 0, len(s.header))
		entity := r.Entity
		if r.IncludesShared {
			entity += "+shared"
		}
		row = append(row, r.Period, entity, r.Currency)
		for _, v := range r.Values {
			row = append(row, amount{v, r.Currency})
		}
		row = append(row, amount{r.Net, r.Currency})
		if r.HasProjection {
			row = append(row, amount{r.Projected, r.ProjectedCurrency})
		} else {
			row = append(row, "")
		}
		s.rows = append(s.rows, row)
	}
	return s
}

// WriteTableCSV writes a rollup table as CSV.
func WriteTableCSV(w io.Writer, t aggregate.Table) error {
	return writeCSV(w, tableSheet(t))
}

// WriteTableXLSX writes a rollup table as a one-sheet workbook.
func WriteTableXLSX(w io.Writer, t aggregate.Table) error {
	return writeXLSX(w, tableSheet(t))
}

var matchFields = []string{"date", "amount", "counterparty", "description", "reference"}

func matchHeader(labelA, labelB string) []string {
	h := []string{"status"}
	for _, label := range []string{labelA, labelB} {
		for _, f := range matchFields {
			h = append(h, label+"_"+f)
		}
	}
	return append(h, "difference")
}

func txCells(tx *model.Transaction) []any {
	if tx == nil {
		return []any{"", "", "", "", ""}
	}
	return []any{tx.Date.String(), amount{tx.Amount, tx.Currency}, tx.Counterparty, tx.Description, tx.Reference}
}

func matchSheet(r model.MatchResult, labelA, labelB string) sheet {
	s := sheet{name: "matches", header: matchHeader(labelA, labelB)}

	for _, p := range r.Matched {
		row := append([]any{"matched"}, txCells(&p.A)...)
		row = append(row, txCells(&p.B)...)
		s.rows = append(s.rows, append(row, amount{p.Difference(), r.Currency}))
	}
	for i := range r.AOnly {
		row := append([]any{labelA + "_only"}, txCells(&r.AOnly[i])...)
		row = append(row, txCells(nil)...)
		s.rows = append(s.rows, append(row, ""))
	}
	for i := range r.BOnly {
		row := append([]any{labelB + "_only"}, txCells(nil)...)
		row = append(row, txCells(&r.BOnly[i])...)
		s.rows = append(s.rows, append(row, ""))
	}
	return s
}

func summarySheet(r model.MatchResult, labelA, labelB string) sheet {
	sum := reconcile.Summarize(r)
	cur := sum.Currency
	return sheet{
		name:   "summary",
		header: []string{"metric", "value"},
		rows: [][]any{
			{"currency", cur},
			{"from", r.From.String()},
			{"tolerance", amount{r.Tolerance, cur}},
			{labelA + "_in_range", fmt.Sprint(sum.AInRange)},
			{labelB + "_in_range", fmt.Sprint(sum.BInRange)},
			{"matched", fmt.Sprint(sum.Matched)},
			{labelA + "_only", fmt.Sprint(sum.AOnly)},
			{labelB + "_only", fmt.Sprint(sum.BOnly)},
			{labelA + "_only_total", amount{sum.AOnlyTotal, cur}},
			{labelB + "_only_total", amount{sum.BOnlyTotal, cur}},
			{"matched_drift", amount{sum.MatchedDrift, cur}},
			{"largest_drift", amount{sum.LargestDrift, cur}},
		},
	}
}

// WriteMatchCSV writes one row per matched pair or leftover record. The
// labels name the two sides in the header and status column.
func WriteMatchCSV(w io.Writer, r model.MatchResult, labelA, labelB string) error {
	return writeCSV(w, matchSheet(r, labelA, labelB))
}

// WriteMatchXLSX writes the match rows and a summary sheet.
func WriteMatchXLSX(w io.Writer, r model.MatchResult, labelA, labelB string) error {
	return writeXLSX(w, matchSheet(r, labelA, labelB), summarySheet(r, labelA, labelB))
}
