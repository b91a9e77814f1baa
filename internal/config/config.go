package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/tally/internal/model"
)

// FileName is the project configuration file at the repo root.
const FileName = "tally.yaml"

// Config represents the top-level tally.yaml configuration.
type Config struct {
	Business   BusinessConfig          `yaml:"business"`
	Currencies CurrencyConfig          `yaml:"currencies"`
	Entities   []EntityConfig          `yaml:"entities,omitempty"`
	Reconcile  ReconcileConfig         `yaml:"reconcile"`
	Aggregate  AggregateConfig         `yaml:"aggregate"`
	Sources    []SourceConfig          `yaml:"sources,omitempty"`
	Reports    map[string]ReportConfig `yaml:"reports,omitempty"`
	Log        LogConfig               `yaml:"log"`
}

// BusinessConfig identifies the business.
type BusinessConfig struct {
	Name string `yaml:"name"`
}

// CurrencyConfig lists the currencies a run accepts. Rates are static
// secondary -> primary conversions used for projections only.
type CurrencyConfig struct {
	Primary   string            `yaml:"primary"`
	Secondary []string          `yaml:"secondary,omitempty"`
	Rates     map[string]string `yaml:"rates,omitempty"`
}

// EntityConfig names a business unit and the identities that make a
// transfer "self" for it.
type EntityConfig struct {
	Name       string   `yaml:"name"`
	Identities []string `yaml:"identities,omitempty"`
}

// ReconcileConfig holds reconciliation defaults.
type ReconcileConfig struct {
	Tolerance string `yaml:"tolerance"`
	From      string `yaml:"from,omitempty"` // YYYY-MM-DD
}

// AggregateConfig holds rollup defaults.
type AggregateConfig struct {
	SavingsGroup    string `yaml:"savings_group"`
	Allocation      string `yaml:"allocation"` // none | equal
	IncludeInternal bool   `yaml:"include_internal"`
}

// SourceConfig maps files in import/ to a parser, an entity and a currency.
type SourceConfig struct {
	Pattern  string `yaml:"pattern"`
	Format   string `yaml:"format"`
	Entity   string `yaml:"entity"`
	Currency string `yaml:"currency,omitempty"`
}

// ReportConfig lists the expected fields of a header-based report.
type ReportConfig struct {
	Required  []string `yaml:"required"`
	Reference []string `yaml:"reference,omitempty"`
}

// LogConfig controls the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads a tally.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(businessName string) *Config {
	return &Config{
		Business: BusinessConfig{
			Name: businessName,
		},
		Currencies: CurrencyConfig{
			Primary: "EUR",
		},
		Reconcile: ReconcileConfig{
			Tolerance: "1.00",
		},
		Aggregate: AggregateConfig{
			SavingsGroup: "savings",
			Allocation:   "none",
		},
		Reports: map[string]ReportConfig{
			"settlement": {
				Required:  []string{"date", "amount", "currency"},
				Reference: []string{"date", "order_id", "description", "amount", "fee", "currency", "marketplace"},
			},
			"exchange": {
				Required:  []string{"date", "asset", "amount"},
				Reference: []string{"date", "type", "asset", "amount", "fee", "note", "tx_id"},
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks cross-field constraints and returns every problem found.
func (c *Config) Validate() error {
	var errs []error
	primary := model.NormalizeCurrency(c.Currencies.Primary)
	if primary == "" {
		errs = append(errs, errors.New("currencies.primary is required"))
	}

	secondary := make(map[string]bool)
	for _, code := range c.Currencies.Secondary {
		code = model.NormalizeCurrency(code)
		switch {
		case code == "":
			errs = append(errs, errors.New("currencies.secondary: empty code"))
		case code == primary:
			errs = append(errs, fmt.Errorf("currencies.secondary: %s is the primary currency", code))
		case secondary[code]:
			errs = append(errs, fmt.Errorf("currencies.secondary: duplicate %s", code))
		}
		secondary[code] = true
	}
	for code, raw := range c.Currencies.Rates {
		if !secondary[model.NormalizeCurrency(code)] {
			errs = append(errs, fmt.Errorf("currencies.rates: %s is not a secondary currency", code))
		}
		r, err := decimal.NewFromString(raw)
		if err != nil || !r.IsPositive() {
			errs = append(errs, fmt.Errorf("currencies.rates: %s rate %q must be a positive decimal", code, raw))
		}
	}

	if _, err := c.Tolerance(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ReconcileFrom(); err != nil {
		errs = append(errs, err)
	}

	names := make(map[string]bool)
	for _, e := range c.Entities {
		switch {
		case strings.TrimSpace(e.Name) == "":
			errs = append(errs, errors.New("entities: empty name"))
		case e.Name == model.EntityShared || e.Name == model.EntityCompany:
			errs = append(errs, fmt.Errorf("entities: %q is reserved", e.Name))
		case names[e.Name]:
			errs = append(errs, fmt.Errorf("entities: duplicate %q", e.Name))
		}
		names[e.Name] = true
	}

	switch strings.ToLower(c.Aggregate.Allocation) {
	case "", "none", "equal":
	default:
		errs = append(errs, fmt.Errorf("aggregate.allocation: unknown %q", c.Aggregate.Allocation))
	}

	for i, s := range c.Sources {
		if strings.TrimSpace(s.Format) == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: format is required", i))
		}
		if strings.TrimSpace(s.Pattern) == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: pattern is required", i))
		}
		if s.Entity != "" && s.Entity != model.EntityShared && !names[s.Entity] {
			errs = append(errs, fmt.Errorf("sources[%d]: unknown entity %q", i, s.Entity))
		}
	}

	for name, r := range c.Reports {
		if len(r.Required) == 0 {
			errs = append(errs, fmt.Errorf("reports.%s: no required fields", name))
		}
	}

	return errors.Join(errs...)
}

// CurrencySet returns the primary and secondary currencies.
func (c *Config) CurrencySet() model.CurrencySet {
	return model.NewCurrencySet(append([]string{c.Currencies.Primary}, c.Currencies.Secondary...)...)
}

// ParsedRates returns the projection rates keyed by normalized code.
func (c *Config) ParsedRates() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(c.Currencies.Rates))
	for code, raw := range c.Currencies.Rates {
		r, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing rate for %s: %w", code, err)
		}
		out[model.NormalizeCurrency(code)] = r
	}
	return out, nil
}

// Tolerance parses reconcile.tolerance. An empty value means exact matching.
func (c *Config) Tolerance() (decimal.Decimal, error) {
	if c.Reconcile.Tolerance == "" {
		return decimal.Zero, nil
	}
	t, err := decimal.NewFromString(c.Reconcile.Tolerance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reconcile.tolerance: %w", err)
	}
	if t.IsNegative() {
		return decimal.Zero, fmt.Errorf("reconcile.tolerance: %s is negative", t)
	}
	return t, nil
}

// ReconcileFrom parses reconcile.from. The zero date means no lower bound.
func (c *Config) ReconcileFrom() (civil.Date, error) {
	if c.Reconcile.From == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(c.Reconcile.From)
	if err != nil {
		return civil.Date{}, fmt.Errorf("reconcile.from: %w", err)
	}
	return d, nil
}

// EntityNames returns the configured entity names in order.
func (c *Config) EntityNames() []string {
	names := make([]string, 0, len(c.Entities))
	for _, e := range c.Entities {
		names = append(names, e.Name)
	}
	return names
}

// Identities returns the identities configured for entity.
func (c *Config) Identities(entity string) []string {
	for _, e := range c.Entities {
		if e.Name == entity {
			return e.Identities
		}
	}
	return nil
}

// Report returns the expected fields of a named report.
func (c *Config) Report(name string) (ReportConfig, bool) {
	r, ok := c.Reports[name]
	return r, ok
}
