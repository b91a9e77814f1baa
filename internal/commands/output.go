package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cleared-dev/tally/internal/export"
)

// writeOut sends CSV to stdout when path is empty, otherwise writes path
// as CSV or, for .xlsx, as a workbook.
func writeOut(path string, stdout io.Writer, asCSV, asXLSX func(io.Writer) error) (err error) {
	if path == "" || path == "-" {
		return asCSV(stdout)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	if export.IsXLSX(path) {
		return asXLSX(f)
	}
	return asCSV(f)
}
