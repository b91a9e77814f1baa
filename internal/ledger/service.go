package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/period"
)

const fileName = "transactions.csv"

// Service stores classified transactions in month-partitioned CSV files
// under the project root.
type Service struct {
	repoRoot   string
	currencies model.CurrencySet
	categories CategoryChecker
}

// NewService creates a ledger Service. categories may be nil to skip the
// category check.
func NewService(repoRoot string, currencies model.CurrencySet, categories CategoryChecker) *Service {
	return &Service{repoRoot: repoRoot, currencies: currencies, categories: categories}
}

type monthKey struct{ year, month int }

// Append assigns entry IDs to txs, validates every affected month as a
// whole and appends the new rows. Nothing is written unless all months
// validate. It returns the assigned IDs in input order.
func (s *Service) Append(txs []model.Transaction) ([]string, error) {
	byMonth := make(map[monthKey][]int)
	var months []monthKey
	for i, tx := range txs {
		if !tx.Date.IsValid() {
			return nil, &model.InvalidRecordError{Field: "date", Value: tx.Date.String(), Err: model.ErrInvalidDate}
		}
		k := monthKey{tx.Date.Year, int(tx.Date.Month)}
		if _, ok := byMonth[k]; !ok {
			months = append(months, k)
		}
		byMonth[k] = append(byMonth[k], i)
	}
	sort.Slice(months, func(i, j int) bool {
		if months[i].year != months[j].year {
			return months[i].year < months[j].year
		}
		return months[i].month < months[j].month
	})

	ids := make([]string, len(txs))
	pending := make(map[monthKey][]Entry, len(months))
	for _, k := range months {
		existing, err := s.ReadMonth(k.year, k.month)
		if err != nil {
			return nil, err
		}
		seq := nextSeq(existing)

		var fresh []Entry
		for _, i := range byMonth[k] {
			entryID := id.FormatEntryID(k.year, k.month, seq)
			seq++
			ids[i] = entryID
			fresh = append(fresh, Entry{ID: entryID, Transaction: txs[i]})
		}

		all := append(existing, fresh...)
		if verrs := ValidateRecords(all, s.currencies, s.categories, k.year, k.month); len(verrs) > 0 {
			msgs := make([]string, len(verrs))
			for i, ve := range verrs {
				msgs[i] = ve.Error()
			}
			return nil, fmt.Errorf("validation failed for %04d-%02d: %s", k.year, k.month, strings.Join(msgs, "; "))
		}
		pending[k] = fresh
	}

	for _, k := range months {
		if err := s.appendMonth(k, pending[k]); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (s *Service) appendMonth(k monthKey, entries []Entry) error {
	path := s.monthPath(k.year, k.month)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	if err := AppendEntries(f, entries); err != nil {
		return fmt.Errorf("appending entries: %w", err)
	}
	return nil
}

// ReadMonth reads all entries for a given year/month.
func (s *Service) ReadMonth(year, month int) ([]Entry, error) {
	path := s.monthPath(year, month)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer f.Close()

	entries, err := ReadEntries(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	return entries, nil
}

// ReadRange returns the transactions dated within [from, to], in month
// then file order.
func (s *Service) ReadRange(from, to civil.Date) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, k := range period.Between(from, to, period.Monthly) {
		entries, err := s.ReadMonth(k.Year, k.Index)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Date.Before(from) || e.Date.After(to) {
				continue
			}
			out = append(out, e.Transaction)
		}
	}
	return out, nil
}

// NextEntrySeq returns the next available sequence number for a month.
func (s *Service) NextEntrySeq(year, month int) (int, error) {
	entries, err := s.ReadMonth(year, month)
	if err != nil {
		return 0, err
	}
	return nextSeq(entries), nil
}

func nextSeq(entries []Entry) int {
	maxSeq := 0
	for _, e := range entries {
		_, _, seq, err := id.ParseEntryID(e.ID)
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}

func (s *Service) monthPath(year, month int) string {
	return filepath.Join(s.repoRoot, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month), fileName)
}
