package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
)

// Options carries the per-source context a parser cannot read from the
// file itself.
type Options struct {
	Entity     string            // owning entity stamped on every record
	Currency   string            // used when the file has no currency column
	Currencies model.CurrencySet // accepted currencies; nil skips the check
	Required   []string          // header-based reports only
	Reference  []string          // header-based reports only
}

// Report is the parsed content of one file.
type Report struct {
	Name         string
	Transactions []model.Transaction
	Schema       *model.SchemaSnapshot // nil for fixed-layout sources
}

// Source converts one raw file into canonical transactions.
type Source interface {
	Parse(r io.Reader, opts Options) (Report, error)
	Format() string
}

// Registry holds named sources.
type Registry struct {
	sources map[string]Source
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a source. Panics on duplicate format.
func (r *Registry) Register(s Source) {
	key := strings.ToLower(s.Format())
	if _, ok := r.sources[key]; ok {
		panic("duplicate source format: " + key)
	}
	r.sources[key] = s
}

// Get returns the source for format, or nil.
func (r *Registry) Get(format string) Source {
	return r.sources[strings.ToLower(format)]
}

// Formats lists the registered formats, sorted.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.sources))
	for k := range r.sources {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns a registry with all built-in sources.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	r.Register(&LedgerSource{})
	r.Register(&SettlementParser{})
	r.Register(&ExchangeParser{})
	return r
}

// ParseFile opens path and parses it with s.
func ParseFile(s Source, path string, opts Options) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return s.Parse(f, opts)
}

// importDir is the subdirectory for import CSVs.
const importDir = "import"

// processedDir is the subdirectory for processed CSVs.
const processedDir = "import/processed"

// Scan returns CSV files in <repoRoot>/import/.
func Scan(repoRoot string) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(repoRoot, fileName string) error {
	src := filepath.Join(repoRoot, importDir, fileName)
	dstDir := filepath.Join(repoRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// finish stamps defaults on a parsed record and validates it. row is the
// 1-based file row used in errors.
func finish(tx model.Transaction, row int, opts Options) (model.Transaction, error) {
	if tx.Entity == "" {
		tx.Entity = opts.Entity
	}
	if tx.Currency == "" {
		tx.Currency = opts.Currency
	}
	tx.Currency = model.NormalizeCurrency(tx.Currency)
	if opts.Currencies != nil {
		if err := tx.Validate(opts.Currencies); err != nil {
			return tx, atRow(err, row)
		}
	} else if tx.Amount.IsZero() {
		return tx, &model.InvalidRecordError{Row: row, Field: "amount", Value: tx.Amount.String(), Err: model.ErrZeroAmount}
	}
	return tx, nil
}

// atRow sets the row on an *InvalidRecordError, or wraps other errors.
func atRow(err error, row int) error {
	var rerr *model.InvalidRecordError
	if errors.As(err, &rerr) {
		rerr.Row = row
		return rerr
	}
	return fmt.Errorf("row %d: %w", row, err)
}
