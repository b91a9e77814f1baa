package classify

import (
	"fmt"

	"github.com/cleared-dev/tally/internal/model"
)

// Rule maps a predicate to the classification it yields.
type Rule struct {
	Name        string
	When        Predicate
	Category    string
	Subcategory string
	Type        model.TxType
}

// Classifier evaluates an ordered rule table. The first matching rule wins.
// A Classifier is read-only after New and safe to share.
type Classifier struct {
	rules []Rule
}

// New builds a Classifier over rules, in the order given.
func New(rules []Rule) (*Classifier, error) {
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rule %d: missing name", i+1)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("rule %d: duplicate name %q", i+1, r.Name)
		}
		seen[r.Name] = true
		if r.When == nil {
			return nil, fmt.Errorf("rule %q: missing condition", r.Name)
		}
		if r.Category == "" {
			return nil, fmt.Errorf("rule %q: missing category", r.Name)
		}
		if _, err := model.ParseTxType(string(r.Type)); err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
	}
	return &Classifier{rules: append([]Rule(nil), rules...)}, nil
}

// Rules returns a copy of the rule table.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Classify returns the classification of the first rule matching tx, or
// the uncategorized fallback. It never fails.
func (c *Classifier) Classify(tx model.Transaction, id Identity) model.Classification {
	in := newInput(tx, id)
	for _, r := range c.rules {
		if r.When.Match(in) {
			return model.Classification{
				Category:    r.Category,
				Subcategory: r.Subcategory,
				Type:        r.Type,
				Rule:        r.Name,
			}
		}
	}
	return model.Fallback(tx.Amount)
}

// ClassifyAll returns a copy of txs with classifications attached.
func (c *Classifier) ClassifyAll(txs []model.Transaction, id Identity) []model.Transaction {
	out := make([]model.Transaction, len(txs))
	for i, tx := range txs {
		tx.Classification = c.Classify(tx, id)
		out[i] = tx
	}
	return out
}

// CategoryChecker tests whether a category exists in the chart.
type CategoryChecker interface {
	Exists(name string) bool
}

// CheckRules reports rules whose category is not in the chart.
func CheckRules(rules []Rule, chart CategoryChecker) error {
	for _, r := range rules {
		if !chart.Exists(r.Category) {
			return fmt.Errorf("rule %q: unknown category %q", r.Name, r.Category)
		}
	}
	return nil
}
