package classify

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// Identity lists the names under which the owner of the account being
// classified appears in counterparty or description text. A transfer naming
// one of them is a transfer to self.
type Identity struct {
	Names []string
}

// Input is what a predicate sees. Text fields are lower-cased and trimmed.
type Input struct {
	Counterparty string
	Description  string
	Amount       decimal.Decimal
	Source       model.Source
	Identity     Identity
}

func newInput(tx model.Transaction, id Identity) Input {
	return Input{
		Counterparty: normalize(tx.Counterparty),
		Description:  normalize(tx.Description),
		Amount:       tx.Amount,
		Source:       tx.Source,
		Identity:     id,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Predicate is a condition over one transaction. The set of implementations
// is closed to this package.
type Predicate interface {
	Match(in Input) bool
	String() string
	predicate()
}

// Sign selects inflows or outflows.
type Sign string

const (
	Inflow  Sign = "inflow"
	Outflow Sign = "outflow"
)

// CounterpartyContains matches when the counterparty contains any term as
// whole words.
type CounterpartyContains struct{ Terms []string }

// DescriptionContains matches when the description contains any term.
type DescriptionContains struct{ Terms []string }

// TextContains matches when counterparty or description contains any term.
type TextContains struct{ Terms []string }

// DescriptionMatches matches the description against a regular expression.
type DescriptionMatches struct{ Pattern *regexp.Regexp }

// SignIs matches the direction of the amount.
type SignIs struct{ Sign Sign }

// SourceIs matches the producing feed.
type SourceIs struct{ Source model.Source }

// SelfTransfer matches when counterparty or description names one of the
// supplied identities. It never matches without an identity.
type SelfTransfer struct{}

// All matches when every predicate matches.
type All []Predicate

// Any matches when at least one predicate matches.
type Any []Predicate

// Not inverts a predicate.
type Not struct{ P Predicate }

// containsAny reports whether text holds any term as whole words: the
// match may not start or end inside a word, so "rent" misses "current".
func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		t = normalize(t)
		if t != "" && containsWord(text, t) {
			return true
		}
	}
	return false
}

func containsWord(text, term string) bool {
	for off := 0; off <= len(text)-len(term); {
		i := strings.Index(text[off:], term)
		if i < 0 {
			return false
		}
		start, end := off+i, off+i+len(term)
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		off = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func (p CounterpartyContains) Match(in Input) bool { return containsAny(in.Counterparty, p.Terms) }
func (p DescriptionContains) Match(in Input) bool  { return containsAny(in.Description, p.Terms) }
func (p TextContains) Match(in Input) bool {
	return containsAny(in.Counterparty, p.Terms) || containsAny(in.Description, p.Terms)
}

func (p DescriptionMatches) Match(in Input) bool {
	return p.Pattern != nil && p.Pattern.MatchString(in.Description)
}

func (p SignIs) Match(in Input) bool {
	switch p.Sign {
	case Inflow:
		return in.Amount.IsPositive()
	case Outflow:
		return in.Amount.IsNegative()
	}
	return false
}

func (p SourceIs) Match(in Input) bool { return in.Source == p.Source }

func (SelfTransfer) Match(in Input) bool {
	return containsAny(in.Counterparty, in.Identity.Names) || containsAny(in.Description, in.Identity.Names)
}

func (p All) Match(in Input) bool {
	for _, q := range p {
		if !q.Match(in) {
			return false
		}
	}
	return len(p) > 0
}

func (p Any) Match(in Input) bool {
	for _, q := range p {
		if q.Match(in) {
			return true
		}
	}
	return false
}

func (p Not) Match(in Input) bool { return p.P != nil && !p.P.Match(in) }

func (p CounterpartyContains) String() string { return fmt.Sprintf("counterparty~%q", p.Terms) }
func (p DescriptionContains) String() string  { return fmt.Sprintf("description~%q", p.Terms) }
func (p TextContains) String() string         { return fmt.Sprintf("text~%q", p.Terms) }
func (p DescriptionMatches) String() string {
	if p.Pattern == nil {
		return "description=~<nil>"
	}
	return "description=~/" + p.Pattern.String() + "/"
}
func (p SignIs) String() string   { return "sign=" + string(p.Sign) }
func (p SourceIs) String() string { return "source=" + string(p.Source) }
func (SelfTransfer) String() string {
	return "self-transfer"
}
func (p All) String() string { return join("all", p) }
func (p Any) String() string { return join("any", p) }
func (p Not) String() string {
	if p.P == nil {
		return "not(<nil>)"
	}
	return "not(" + p.P.String() + ")"
}

func join(op string, ps []Predicate) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}

func (CounterpartyContains) predicate() {}
func (DescriptionContains) predicate()  {}
func (TextContains) predicate()         {}
func (DescriptionMatches) predicate()   {}
func (SignIs) predicate()               {}
func (SourceIs) predicate()             {}
func (SelfTransfer) predicate()         {}
func (All) predicate()                  {}
func (Any) predicate()                  {}
func (Not) predicate()                  {}
