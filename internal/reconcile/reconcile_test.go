package reconcile

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

func day(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(date civil.Date, amount, counterparty string) model.Transaction {
	return model.Transaction{Date: date, Amount: dec(amount), Currency: "EUR", Counterparty: counterparty}
}

var start = day(2026, 1, 1)

func TestReconcile_ExampleMatch(t *testing.T) {
	bank := []model.Transaction{tx(day(2026, 2, 1), "-15000", "Rent Co")}
	ledger := []model.Transaction{tx(day(2026, 2, 1), "-15000", "rent")}

	r, err := Reconcile(bank, ledger, dec("1"), start)
	require.NoError(t, err)
	require.Len(t, r.Matched, 1)
	assert.Empty(t, r.AOnly)
	assert.Empty(t, r.BOnly)
	assert.Equal(t, "Rent Co", r.Matched[0].A.Counterparty, "original fields preserved")
	assert.Equal(t, "rent", r.Matched[0].B.Counterparty)
	assert.True(t, r.Clean())
	require.NoError(t, r.Check())
}

func TestReconcile_ExampleBankOnly(t *testing.T) {
	bank := []model.Transaction{tx(day(2026, 2, 1), "-500", "")}

	r, err := Reconcile(bank, nil, dec("1"), start)
	require.NoError(t, err)
	assert.Empty(t, r.Matched)
	require.Len(t, r.AOnly, 1)
	assert.Equal(t, day(2026, 2, 1), r.AOnly[0].Date)
	assert.True(t, r.AOnly[0].Amount.Equal(dec("-500")))
	assert.Empty(t, r.BOnly)
}

func TestReconcile_EmptyA(t *testing.T) {
	ledger := []model.Transaction{tx(day(2026, 3, 1), "-20", ""), tx(day(2026, 3, 2), "-30", "")}
	r, err := Reconcile(nil, ledger, dec("0"), start)
	require.NoError(t, err)
	assert.Empty(t, r.Matched)
	assert.Len(t, r.BOnly, 2)
	assert.Equal(t, "EUR", r.Currency)
}

func TestReconcile_BothEmpty(t *testing.T) {
	r, err := Reconcile(nil, nil, dec("1"), start)
	require.NoError(t, err)
	assert.Empty(t, r.Matched)
	assert.Empty(t, r.AOnly)
	assert.Empty(t, r.BOnly)
	require.NoError(t, r.Check())
}

func TestReconcile_ToleranceBoundary(t *testing.T) {
	tol := dec("1.00")
	d := day(2026, 2, 1)

	r, err := Reconcile([]model.Transaction{tx(d, "-100.00", "")}, []model.Transaction{tx(d, "-101.00", "")}, tol, start)
	require.NoError(t, err)
	assert.Len(t, r.Matched, 1, "difference equal to tolerance matches")

	r, err = Reconcile([]model.Transaction{tx(d, "-100.00", "")}, []model.Transaction{tx(d, "-101.01", "")}, tol, start)
	require.NoError(t, err)
	assert.Empty(t, r.Matched, "tolerance + epsilon does not match")
	assert.Len(t, r.AOnly, 1)
	assert.Len(t, r.BOnly, 1)

	r, err = Reconcile([]model.Transaction{tx(d, "-101.00", "")}, []model.Transaction{tx(d, "-100.00", "")}, tol, start)
	require.NoError(t, err)
	assert.Len(t, r.Matched, 1, "absolute difference works in both directions")
}

func TestReconcile_ZeroToleranceIsExact(t *testing.T) {
	d := day(2026, 2, 1)
	r, err := Reconcile([]model.Transaction{tx(d, "-9.99", "")}, []model.Transaction{tx(d, "-9.990", "")}, decimal.Zero, start)
	require.NoError(t, err)
	assert.Len(t, r.Matched, 1)
}

func TestReconcile_DateMustMatch(t *testing.T) {
	r, err := Reconcile(
		[]model.Transaction{tx(day(2026, 2, 1), "-50", "")},
		[]model.Transaction{tx(day(2026, 2, 2), "-50", "")},
		dec("1"), start)
	require.NoError(t, err)
	assert.Empty(t, r.Matched)
	assert.Len(t, r.AOnly, 1)
	assert.Len(t, r.BOnly, 1)
}

func TestReconcile_Multiset(t *testing.T) {
	d := day(2026, 2, 1)
	three := []model.Transaction{tx(d, "-7.50", "coffee"), tx(d, "-7.50", "coffee"), tx(d, "-7.50", "coffee")}

	r, err := Reconcile(three, three, dec("0"), start)
	require.NoError(t, err)
	assert.Len(t, r.Matched, 3)
	assert.Empty(t, r.AOnly)
	assert.Empty(t, r.BOnly)

	// Two in the ledger, three on the bank: exactly one left over.
	r, err = Reconcile(three, three[:2], dec("0"), start)
	require.NoError(t, err)
	assert.Len(t, r.Matched, 2)
	assert.Len(t, r.AOnly, 1)
	assert.Empty(t, r.BOnly)
}

func TestReconcile_TieBreakFirstAvailableInBOrder(t *testing.T) {
	d := day(2026, 2, 1)
	bank := []model.Transaction{tx(d, "-100.00", "bank")}
	ledger := []model.Transaction{
		tx(d, "-100.80", "first"),
		tx(d, "-100.00", "exact"),
	}

	r, err := Reconcile(bank, ledger, dec("1"), start)
	require.NoError(t, err)
	require.Len(t, r.Matched, 1)
	assert.Equal(t, "first", r.Matched[0].B.Counterparty, "first qualifying candidate wins, not the closest")
	require.Len(t, r.BOnly, 1)
	assert.Equal(t, "exact", r.BOnly[0].Counterparty)
}

func TestReconcile_FromDateFilters(t *testing.T) {
	bank := []model.Transaction{
		tx(day(2025, 12, 31), "-10", "old"),
		tx(day(2026, 1, 1), "-20", "boundary"),
	}
	ledger := []model.Transaction{
		tx(day(2025, 12, 30), "-99", "old ledger"),
		tx(day(2026, 1, 1), "-20", "boundary"),
	}
	r, err := Reconcile(bank, ledger, dec("0"), start)
	require.NoError(t, err)
	assert.Equal(t, 1, r.AInRange)
	assert.Equal(t, 1, r.BInRange)
	assert.Len(t, r.Matched, 1, "fromDate is inclusive")
	assert.Empty(t, r.AOnly)
	assert.Empty(t, r.BOnly)
}

func TestReconcile_MixedCurrency(t *testing.T) {
	usd := tx(day(2026, 2, 1), "-5", "")
	usd.Currency = "USD"

	_, err := Reconcile([]model.Transaction{tx(day(2026, 2, 1), "-5", "")}, []model.Transaction{usd}, dec("1"), start)
	assert.ErrorIs(t, err, ErrMixedCurrency)

	_, err = Reconcile([]model.Transaction{tx(day(2026, 2, 1), "-5", ""), usd}, nil, dec("1"), start)
	assert.ErrorIs(t, err, ErrMixedCurrency, "mixing inside one side is also rejected")

	lower := tx(day(2026, 2, 1), "-5", "")
	lower.Currency = "eur"
	_, err = Reconcile([]model.Transaction{tx(day(2026, 2, 1), "-5", "")}, []model.Transaction{lower}, dec("1"), start)
	assert.NoError(t, err, "currency codes compare case-insensitively")
}

func TestReconcile_BlankCurrencyIsDistinct(t *testing.T) {
	blank := tx(day(2026, 2, 1), "-5", "")
	blank.Currency = ""
	usd := tx(day(2026, 2, 1), "-5", "")
	usd.Currency = "USD"

	_, err := Reconcile([]model.Transaction{blank}, []model.Transaction{usd}, dec("1"), start)
	assert.ErrorIs(t, err, ErrMixedCurrency)

	_, err = Reconcile([]model.Transaction{blank, usd}, nil, dec("1"), start)
	assert.ErrorIs(t, err, ErrMixedCurrency)
}

func TestReconcile_NegativeTolerance(t *testing.T) {
	_, err := Reconcile(nil, nil, dec("-0.01"), start)
	assert.ErrorIs(t, err, ErrNegativeTolerance)
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	d := day(2026, 2, 1)
	bank := []model.Transaction{tx(d, "-1", "a"), tx(d, "-2", "b")}
	ledger := []model.Transaction{tx(d, "-2", "c")}
	bankCopy := append([]model.Transaction(nil), bank...)
	ledgerCopy := append([]model.Transaction(nil), ledger...)

	_, err := Reconcile(bank, ledger, dec("0"), start)
	require.NoError(t, err)
	assert.Equal(t, bankCopy, bank)
	assert.Equal(t, ledgerCopy, ledger)
}

// syntheticSets builds two overlapping, deterministic sets with duplicates,
// near misses and out-of-range history.
func syntheticSets(n int) (a, b []model.Transaction) {
	for i := 0; i < n; i++ {
		d := day(2025, 12, 1).AddDays(i % 61)
		amount := fmt.Sprintf("-%d.%02d", 10+i%7, (i*13)%100)
		a = append(a, tx(d, amount, "a"))
		switch i % 4 {
		case 0:
			b = append(b, tx(d, amount, "b"))
		case 1:
			b = append(b, tx(d, dec(amount).Sub(dec("0.40")).String(), "b-near"))
		case 2:
			b = append(b, tx(d.AddDays(1), amount, "b-shifted"))
		}
		if i%9 == 0 {
			b = append(b, tx(d, amount, "b-dup"))
		}
	}
	return a, b
}

func TestReconcile_PartitionCompleteness(t *testing.T) {
	a, b := syntheticSets(300)
	for _, tol := range []string{"0", "0.39", "0.40", "5"} {
		for _, from := range []civil.Date{day(2025, 1, 1), day(2026, 1, 1), day(2026, 1, 20)} {
			r, err := Reconcile(a, b, dec(tol), from)
			require.NoError(t, err)
			require.NoError(t, r.Check(), "tol=%s from=%s", tol, from)

			aIn, bIn := 0, 0
			for _, x := range a {
				if !x.Date.Before(from) {
					aIn++
				}
			}
			for _, x := range b {
				if !x.Date.Before(from) {
					bIn++
				}
			}
			assert.Equal(t, aIn, len(r.Matched)+len(r.AOnly))
			assert.Equal(t, bIn, len(r.Matched)+len(r.BOnly))
			for _, p := range r.Matched {
				assert.Equal(t, p.A.Date, p.B.Date)
				assert.True(t, p.Difference().LessThanOrEqual(dec(tol)))
			}
		}
	}
}

func TestSummarize(t *testing.T) {
	d := day(2026, 2, 1)
	bank := []model.Transaction{tx(d, "-100.00", ""), tx(d, "-40.00", ""), tx(d, "25.00", "")}
	ledger := []model.Transaction{tx(d, "-100.50", ""), tx(day(2026, 2, 3), "-12.00", "")}

	r, err := Reconcile(bank, ledger, dec("1"), start)
	require.NoError(t, err)
	s := Summarize(r)

	assert.Equal(t, 1, s.Matched)
	assert.Equal(t, 2, s.AOnly)
	assert.Equal(t, 1, s.BOnly)
	assert.True(t, s.AOnlyTotal.Equal(dec("-15.00")))
	assert.True(t, s.BOnlyTotal.Equal(dec("-12.00")))
	assert.True(t, s.MatchedDrift.Equal(dec("0.50")))
	assert.True(t, s.LargestDrift.Equal(dec("0.50")))
	assert.True(t, s.Gap().Equal(dec("-3.00")))
	assert.False(t, s.Clean)

	var buf bytes.Buffer
	require.NoError(t, s.Print(&buf, "bank", "ledger"))
	assert.Contains(t, buf.String(), "matched: 1 (drift 0.50, largest 0.50)")
	assert.Contains(t, buf.String(), "bank only: 2 (-15.00)")
	assert.Contains(t, buf.String(), "ledger only: 1 (-12.00)")
}
