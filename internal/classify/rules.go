package classify

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/tally/internal/model"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// DefaultRulesYAML returns the starter rule table written by init.
func DefaultRulesYAML() []byte {
	return append([]byte(nil), defaultRulesYAML...)
}

// DefaultRules returns the compiled starter rule table.
func DefaultRules() []Rule {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic("default rules: " + err.Error())
	}
	return rules
}

// ruleFile is the layout of rules/classification-rules.yaml.
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Name        string   `yaml:"name"`
	When        condSpec `yaml:"when"`
	Category    string   `yaml:"category"`
	Subcategory string   `yaml:"subcategory,omitempty"`
	Type        string   `yaml:"type"`
}

// condSpec is a conjunction of every condition it sets.
type condSpec struct {
	Counterparty     []string   `yaml:"counterparty,omitempty"`
	Description      []string   `yaml:"description,omitempty"`
	Text             []string   `yaml:"text,omitempty"`
	DescriptionRegex string     `yaml:"description_regex,omitempty"`
	Sign             string     `yaml:"sign,omitempty"`
	Source           string     `yaml:"source,omitempty"`
	SelfTransfer     bool       `yaml:"self_transfer,omitempty"`
	Any              []condSpec `yaml:"any,omitempty"`
	Not              *condSpec  `yaml:"not,omitempty"`
}

var errEmptyCondition = errors.New("empty condition")

// LoadRules reads a rule table file from disk.
func LoadRules(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rules: %w", err)
	}
	defer f.Close()
	return ReadRules(f)
}

// ReadRules decodes a YAML rule table.
func ReadRules(r io.Reader) ([]Rule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and compiles a YAML rule table, keeping file order.
func ParseRules(data []byte) ([]Rule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}

	rules := make([]Rule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		when, err := spec.When.compile()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, spec.Name, err)
		}
		typ, err := model.ParseTxType(spec.Type)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, spec.Name, err)
		}
		rules = append(rules, Rule{
			Name:        spec.Name,
			When:        when,
			Category:    spec.Category,
			Subcategory: spec.Subcategory,
			Type:        typ,
		})
	}
	return rules, nil
}

func (c condSpec) compile() (Predicate, error) {
	var all All
	if len(c.Counterparty) > 0 {
		all = append(all, CounterpartyContains{Terms: c.Counterparty})
	}
	if len(c.Description) > 0 {
		all = append(all, DescriptionContains{Terms: c.Description})
	}
	if len(c.Text) > 0 {
		all = append(all, TextContains{Terms: c.Text})
	}
	if c.DescriptionRegex != "" {
		re, err := regexp.Compile("(?i)" + c.DescriptionRegex)
		if err != nil {
			return nil, fmt.Errorf("description_regex: %w", err)
		}
		all = append(all, DescriptionMatches{Pattern: re})
	}
	if c.Sign != "" {
		s := Sign(c.Sign)
		if s != Inflow && s != Outflow {
			return nil, fmt.Errorf("sign must be inflow or outflow, got %q", c.Sign)
		}
		all = append(all, SignIs{Sign: s})
	}
	if c.Source != "" {
		src := model.Source(c.Source)
		if !src.Valid() {
			return nil, fmt.Errorf("unknown source %q", c.Source)
		}
		all = append(all, SourceIs{Source: src})
	}
	if c.SelfTransfer {
		all = append(all, SelfTransfer{})
	}
	if len(c.Any) > 0 {
		var anyOf Any
		for i, sub := range c.Any {
			p, err := sub.compile()
			if err != nil {
				return nil, fmt.Errorf("any[%d]: %w", i, err)
			}
			anyOf = append(anyOf, p)
		}
		all = append(all, anyOf)
	}
	if c.Not != nil {
		p, err := c.Not.compile()
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		all = append(all, Not{P: p})
	}

	switch len(all) {
	case 0:
		return nil, errEmptyCondition
	case 1:
		return all[0], nil
	default:
		return all, nil
	}
}
