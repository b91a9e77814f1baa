package id

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

// refPrefixLen caps the text part of a generated reference.
const refPrefixLen = 10

// FormatEntryID returns a ledger entry ID like "2026-01-001".
func FormatEntryID(year, month, seq int) string {
	return fmt.Sprintf("%04d-%02d-%03d", year, month, seq)
}

// ParseEntryID parses "2026-01-001" into year, month, seq.
func ParseEntryID(id string) (year, month, seq int, err error) {
	parts := strings.SplitN(id, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid entry ID format: %q", id)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid year in entry ID %q: %w", id, err)
	}

	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid month in entry ID %q: %w", id, err)
	}
	if month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("invalid month in entry ID %q", id)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid sequence in entry ID %q: %w", id, err)
	}

	return year, month, seq, nil
}

// FormatReference builds a source-stable reference like
// "chase_20250103_GITHUBPROS" from a prefix, a date and free text. Only
// ASCII letters and digits of text are kept.
func FormatReference(prefix string, date civil.Date, text string) string {
	kept := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if len(kept) > refPrefixLen {
		kept = kept[:refPrefixLen]
	}
	return fmt.Sprintf("%s_%04d%02d%02d_%s", prefix, date.Year, int(date.Month), date.Day, kept)
}
