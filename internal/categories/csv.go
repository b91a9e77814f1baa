package categories

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/cleared-dev/tally/internal/model"
)

const (
	numFields = 4
	colName   = 0
	colGroup  = 1
	colType   = 2
	colDesc   = 3
)

// ReadCategories reads categories.csv.
func ReadCategories(r io.Reader) ([]Category, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading categories CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var cats []Category
	for i, rec := range records[1:] {
		cat, err := UnmarshalCategory(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

// WriteCategories writes categories.csv.
func WriteCategories(w io.Writer, cats []Category) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"category", "group", "type", "description"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, cat := range cats {
		if err := cw.Write(MarshalCategory(cat)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalCategory converts a Category to a CSV row.
func MarshalCategory(cat Category) []string {
	row := make([]string, numFields)
	row[colName] = cat.Name
	row[colGroup] = cat.Group
	row[colType] = string(cat.Type)
	row[colDesc] = cat.Description
	return row
}

// UnmarshalCategory converts a CSV row to a Category.
func UnmarshalCategory(record []string) (Category, error) {
	if len(record) != numFields {
		return Category{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	if record[colName] == "" {
		return Category{}, fmt.Errorf("empty category name")
	}

	typ, err := model.ParseTxType(record[colType])
	if err != nil {
		return Category{}, fmt.Errorf("category %q: %w", record[colName], err)
	}

	group := record[colGroup]
	if group == "" {
		group = OtherGroup
	}

	return Category{
		Name:        record[colName],
		Group:       group,
		Type:        typ,
		Description: record[colDesc],
	}, nil
}
