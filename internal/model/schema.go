package model

import "fmt"

// SchemaSnapshot records the fields seen in one ingested report and how
// they drift from the known-good reference.
type SchemaSnapshot struct {
	Report   string
	Observed []string
	Added    []string // observed but not in the reference
	Removed  []string // in the reference but not observed
}

// HasChanges reports any drift from the reference.
func (s SchemaSnapshot) HasChanges() bool {
	return len(s.Added) > 0 || len(s.Removed) > 0
}

// Warnings renders the drift as human-readable lines.
func (s SchemaSnapshot) Warnings() []string {
	var out []string
	for _, f := range s.Added {
		out = append(out, fmt.Sprintf("%s: new field %q", s.Report, f))
	}
	for _, f := range s.Removed {
		out = append(out, fmt.Sprintf("%s: field %q no longer present", s.Report, f))
	}
	return out
}
