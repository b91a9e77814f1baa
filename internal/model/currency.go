package model

import (
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// cryptoFraction is the precision used for codes go-money does not know,
// which in practice are exchange assets.
const cryptoFraction = 8

// CurrencySet is the closed set of currencies a run accepts.
type CurrencySet map[string]struct{}

// NewCurrencySet builds a set from currency codes (case-insensitive).
func NewCurrencySet(codes ...string) CurrencySet {
	s := make(CurrencySet, len(codes))
	for _, c := range codes {
		s[NormalizeCurrency(c)] = struct{}{}
	}
	return s
}

// Has reports whether code is in the set.
func (s CurrencySet) Has(code string) bool {
	_, ok := s[NormalizeCurrency(code)]
	return ok
}

// Codes returns the set members sorted.
func (s CurrencySet) Codes() []string {
	codes := make([]string, 0, len(s))
	for c := range s {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// lookupCurrency returns go-money's ISO 4217 entry for code. Unknown codes
// report false.
func lookupCurrency(code string) (*money.Currency, bool) {
	c := money.GetCurrency(NormalizeCurrency(code))
	return c, c != nil
}

// Fraction returns the number of minor-unit digits for code.
func Fraction(code string) int {
	if c, ok := lookupCurrency(code); ok {
		return c.Fraction
	}
	return cryptoFraction
}

// Round rounds amount to the minor unit of code.
func Round(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Round(int32(Fraction(code)))
}

// FormatPlain renders amount with the currency's minor-unit digits and no
// symbol, for tabular export.
func FormatPlain(amount decimal.Decimal, code string) string {
	return amount.StringFixed(int32(Fraction(code)))
}

// FormatDisplay renders amount for humans, e.g. "$1,234.50". Unknown codes
// fall back to "<amount> <code>".
func FormatDisplay(amount decimal.Decimal, code string) string {
	c, ok := lookupCurrency(code)
	if !ok {
		return FormatPlain(amount, code) + " " + NormalizeCurrency(code)
	}
	minor := amount.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, c.Code).Display()
}
