package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Granularity selects how dates are truncated into reporting periods.
type Granularity int

const (
	Monthly Granularity = iota
	Quarterly
	Yearly
)

func (g Granularity) String() string {
	switch g {
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Yearly:
		return "yearly"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// Parse accepts "monthly", "month", "quarterly", "quarter", "yearly", "year".
func Parse(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month":
		return Monthly, nil
	case "quarterly", "quarter":
		return Quarterly, nil
	case "yearly", "year":
		return Yearly, nil
	default:
		return Monthly, fmt.Errorf("unknown period %q", s)
	}
}

// Key identifies one reporting period. Index is the month (1-12) for
// Monthly, the quarter (1-4) for Quarterly and always 1 for Yearly.
type Key struct {
	Granularity Granularity
	Year        int
	Index       int
}

// Of returns the period of granularity g containing d.
func Of(d civil.Date, g Granularity) Key {
	switch g {
	case Quarterly:
		return Key{Granularity: g, Year: d.Year, Index: (int(d.Month)-1)/3 + 1}
	case Yearly:
		return Key{Granularity: g, Year: d.Year, Index: 1}
	default:
		return Key{Granularity: Monthly, Year: d.Year, Index: int(d.Month)}
	}
}

// Label renders the key as "2026-02", "2026-Q1" or "2026".
func (k Key) Label() string {
	switch k.Granularity {
	case Quarterly:
		return fmt.Sprintf("%04d-Q%d", k.Year, k.Index)
	case Yearly:
		return strconv.Itoa(k.Year)
	default:
		return fmt.Sprintf("%04d-%02d", k.Year, k.Index)
	}
}

func (k Key) String() string { return k.Label() }

// Start returns the first day of the period.
func (k Key) Start() civil.Date {
	switch k.Granularity {
	case Quarterly:
		return civil.Date{Year: k.Year, Month: time.Month((k.Index-1)*3 + 1), Day: 1}
	case Yearly:
		return civil.Date{Year: k.Year, Month: time.January, Day: 1}
	default:
		return civil.Date{Year: k.Year, Month: time.Month(k.Index), Day: 1}
	}
}

// End returns the last day of the period.
func (k Key) End() civil.Date {
	return k.Next().Start().AddDays(-1)
}

// Contains reports whether d falls inside the period.
func (k Key) Contains(d civil.Date) bool {
	return Of(d, k.Granularity) == k
}

// Next returns the following period of the same granularity.
func (k Key) Next() Key {
	switch k.Granularity {
	case Quarterly:
		if k.Index == 4 {
			return Key{Granularity: k.Granularity, Year: k.Year + 1, Index: 1}
		}
	case Yearly:
		return Key{Granularity: k.Granularity, Year: k.Year + 1, Index: 1}
	default:
		if k.Index == 12 {
			return Key{Granularity: k.Granularity, Year: k.Year + 1, Index: 1}
		}
	}
	return Key{Granularity: k.Granularity, Year: k.Year, Index: k.Index + 1}
}

// Before orders keys chronologically. Keys of different granularity compare
// by their start date.
func (k Key) Before(o Key) bool {
	if k.Granularity != o.Granularity {
		return k.Start().Before(o.Start())
	}
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Index < o.Index
}

// Between returns every period of granularity g overlapping [from, to].
// It returns nil when to is before from.
func Between(from, to civil.Date, g Granularity) []Key {
	if to.Before(from) {
		return nil
	}
	last := Of(to, g)
	var keys []Key
	for k := Of(from, g); !last.Before(k); k = k.Next() {
		keys = append(keys, k)
	}
	return keys
}
