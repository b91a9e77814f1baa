// Package schema detects drift between the fields of an ingested report and
// a known-good reference.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cleared-dev/tally/internal/model"
)

// MissingRequiredFieldError stops ingestion of a report that lacks
// financially load-bearing fields.
type MissingRequiredFieldError struct {
	Report  string
	Missing []string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("%s: missing required fields: %s", e.Report, strings.Join(e.Missing, ", "))
}

// Normalize canonicalizes a field name: trimmed, lower case, inner
// whitespace and dashes folded to underscores.
func Normalize(field string) string {
	f := strings.ToLower(strings.TrimSpace(field))
	f = strings.Join(strings.FieldsFunc(f, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_'
	}), "_")
	return f
}

// Check compares observed against the reference set. Missing required
// fields yield a *MissingRequiredFieldError and a zero snapshot. Every
// other difference is reported on the snapshot.
func Check(report string, observed, required, reference []string) (model.SchemaSnapshot, error) {
	obs := toSet(observed)
	if missing := difference(toSet(required), obs); len(missing) > 0 {
		return model.SchemaSnapshot{}, &MissingRequiredFieldError{Report: report, Missing: missing}
	}

	ref := toSet(reference)
	return model.SchemaSnapshot{
		Report:   report,
		Observed: sorted(obs),
		Added:    difference(obs, ref),
		Removed:  difference(ref, obs),
	}, nil
}

func toSet(fields []string) map[string]bool {
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		if n := Normalize(f); n != "" {
			set[n] = true
		}
	}
	return set
}

// difference returns a - b, sorted.
func difference(a, b map[string]bool) []string {
	var out []string
	for f := range a {
		if !b[f] {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

func sorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
