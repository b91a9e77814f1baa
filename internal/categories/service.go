package categories

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cleared-dev/tally/internal/model"
)

const (
	chartDir  = "categories"
	chartFile = "categories.csv"
)

// Service provides in-memory lookup over the category chart.
type Service struct {
	cats   []Category
	byName map[string]Category
}

// NewService creates a Service from a slice of categories. The
// uncategorized bucket is always present.
func NewService(cats []Category) *Service {
	byName := make(map[string]Category, len(cats)+1)
	for _, c := range cats {
		byName[c.Name] = c
	}
	if _, ok := byName[uncategorized.Name]; !ok {
		cats = append(cats, uncategorized)
		byName[uncategorized.Name] = uncategorized
	}
	return &Service{cats: cats, byName: byName}
}

// Load reads categories/categories.csv from a project root.
func Load(root string) (*Service, error) {
	path := filepath.Join(root, chartDir, chartFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening category chart: %w", err)
	}
	defer f.Close()

	cats, err := ReadCategories(f)
	if err != nil {
		return nil, fmt.Errorf("reading category chart: %w", err)
	}
	return NewService(cats), nil
}

// All returns all categories in chart order.
func (s *Service) All() []Category {
	return s.cats
}

// Get returns a category by name.
func (s *Service) Get(name string) (Category, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// Exists reports whether a category is in the chart.
func (s *Service) Exists(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Group returns the super-group of a category, OtherGroup if unknown.
func (s *Service) Group(name string) string {
	if c, ok := s.byName[name]; ok {
		return c.Group
	}
	return OtherGroup
}

// Groups returns a category -> super-group map.
func (s *Service) Groups() map[string]string {
	out := make(map[string]string, len(s.cats))
	for _, c := range s.cats {
		out[c.Name] = c.Group
	}
	return out
}

// Types returns a category -> default transaction type map.
func (s *Service) Types() map[string]model.TxType {
	out := make(map[string]model.TxType, len(s.cats))
	for _, c := range s.cats {
		out[c.Name] = c.Type
	}
	return out
}

// Save writes the chart to categories/categories.csv.
func (s *Service) Save(root string) error {
	dir := filepath.Join(root, chartDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating categories dir: %w", err)
	}

	path := filepath.Join(dir, chartFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating category chart file: %w", err)
	}
	defer f.Close()

	if err := WriteCategories(f, s.cats); err != nil {
		return fmt.Errorf("writing category chart: %w", err)
	}
	return nil
}
