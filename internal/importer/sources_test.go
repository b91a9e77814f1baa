package importer

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/schema"
)

func testdata(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func TestSettlementParser_Parse(t *testing.T) {
	report, err := ParseFile(&SettlementParser{}, testdata("settlement.csv"), Options{
		Entity:     "shop",
		Currencies: model.NewCurrencySet("EUR"),
	})
	require.NoError(t, err)
	assert.Equal(t, "settlement", report.Name)

	txns := report.Transactions
	require.Len(t, txns, 5)

	assert.Equal(t, "120.00", txns[0].Amount.StringFixed(2))
	assert.Equal(t, "111-2223334", txns[0].Reference)
	assert.Equal(t, "Amazon EU", txns[0].Counterparty)
	assert.Equal(t, model.SourceMarketplace, txns[0].Source)
	assert.Equal(t, "shop", txns[0].Entity)

	fee := txns[1]
	assert.Equal(t, "-18.00", fee.Amount.StringFixed(2))
	assert.Equal(t, "111-2223334-fee", fee.Reference)
	assert.Equal(t, "Order payout fee", fee.Description)

	assert.Equal(t, civil.Date{Year: 2025, Month: time.January, Day: 7}, txns[2].Date, "timestamp keeps its own calendar day")
	assert.Equal(t, "-20.00", txns[4].Amount.StringFixed(2))
	assert.Equal(t, "Refund", txns[4].Description)
}

func TestSettlementParser_CosmeticDrift(t *testing.T) {
	report, err := ParseFile(&SettlementParser{}, testdata("settlement.csv"), Options{})
	require.NoError(t, err)
	require.NotNil(t, report.Schema)
	assert.False(t, report.Schema.HasChanges(), "marketplace is part of the reference header")

	report, err = ParseFile(&SettlementParser{}, testdata("settlement_promo.csv"), Options{})
	require.NoError(t, err)
	require.Len(t, report.Transactions, 2)
	assert.Equal(t, []string{"promo_code"}, report.Schema.Added)
	assert.Empty(t, report.Schema.Removed)
	assert.Equal(t, []string{`settlement: new field "promo_code"`}, report.Schema.Warnings())
	assert.Equal(t, "Amazon EU", report.Transactions[0].Counterparty)
}

func TestSettlementParser_ReorderedColumns(t *testing.T) {
	input := "Currency,Amount,Date\nEUR,10.00,2025-02-01\n"
	report, err := (&SettlementParser{}).Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)
	require.Len(t, report.Transactions, 1)
	assert.Equal(t, "10.00", report.Transactions[0].Amount.StringFixed(2))
	assert.ElementsMatch(t, []string{"order_id", "description", "fee", "marketplace"}, report.Schema.Removed)
}

func TestSettlementParser_MissingRequired(t *testing.T) {
	input := "Date,Order ID,Currency\n2025-01-05,1,EUR\n"
	report, err := (&SettlementParser{}).Parse(strings.NewReader(input), Options{})
	require.Error(t, err)

	var missing *schema.MissingRequiredFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"amount"}, missing.Missing)
	assert.Empty(t, report.Transactions, "no data from a report missing required fields")
}

func TestSettlementParser_BadRow(t *testing.T) {
	input := "date,amount,currency\n2025-01-05,10,EUR\n2025-01-06,ten,EUR\n"
	_, err := (&SettlementParser{}).Parse(strings.NewReader(input), Options{})
	var rerr *model.InvalidRecordError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, 3, rerr.Row)
	assert.Equal(t, "amount", rerr.Field)
}

func TestSettlementParser_FeeOnlyRow(t *testing.T) {
	input := "date,amount,fee,currency\n2025-01-05,0,-2.50,EUR\n"
	report, err := (&SettlementParser{}).Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)
	require.Len(t, report.Transactions, 1)
	assert.Equal(t, "-2.50", report.Transactions[0].Amount.StringFixed(2))
}

func TestSettlementParser_Empty(t *testing.T) {
	_, err := (&SettlementParser{}).Parse(strings.NewReader(""), Options{})
	assert.Error(t, err)
}

func TestExchangeParser_Parse(t *testing.T) {
	report, err := ParseFile(&ExchangeParser{}, testdata("exchange.csv"), Options{
		Entity:     model.EntityShared,
		Currencies: model.NewCurrencySet("EUR", "BTC"),
	})
	require.NoError(t, err)
	assert.False(t, report.Schema.HasChanges())

	txns := report.Transactions
	require.Len(t, txns, 4)
	for _, tx := range txns {
		assert.Equal(t, "BTC", tx.Currency)
		assert.Equal(t, model.SourceExchange, tx.Source)
		assert.Equal(t, model.EntityShared, tx.Entity)
	}
	assert.Equal(t, "staking weekly staking reward", txns[1].Description)
	assert.Equal(t, "0.00012345", txns[1].Amount.String())
	assert.Equal(t, civil.Date{Year: 2025, Month: time.January, Day: 8}, txns[1].Date)

	assert.Equal(t, "trade sell", txns[2].Description)
	assert.Equal(t, "fee", txns[3].Description)
	assert.Equal(t, "-0.00001", txns[3].Amount.String())
	assert.Equal(t, "tx-003-fee", txns[3].Reference)
}

func TestExchangeParser_UnknownAsset(t *testing.T) {
	input := "date,asset,amount\n2025-01-05,DOGE,100\n"
	_, err := (&ExchangeParser{}).Parse(strings.NewReader(input), Options{Currencies: model.NewCurrencySet("BTC")})
	assert.ErrorIs(t, err, model.ErrUnknownCurrency)
}

func TestExchangeParser_MissingAsset(t *testing.T) {
	input := "date,amount\n2025-01-05,100\n"
	_, err := (&ExchangeParser{}).Parse(strings.NewReader(input), Options{})
	var missing *schema.MissingRequiredFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "exchange", missing.Report)
}

func TestLedgerSource_Parse(t *testing.T) {
	report, err := ParseFile(&LedgerSource{}, testdata("ledger.csv"), Options{Currencies: model.NewCurrencySet("USD")})
	require.NoError(t, err)
	assert.Nil(t, report.Schema)

	txns := report.Transactions
	require.Len(t, txns, 5)
	assert.Equal(t, model.SourceLedger, txns[0].Source)
	assert.Equal(t, "software", txns[0].Classification.Category)
	assert.Equal(t, "studio", txns[0].Entity)
	assert.True(t, txns[4].Classification.IsZero())
}

func TestReadHeader(t *testing.T) {
	fields, err := ReadHeader(strings.NewReader("\ufeffDate, Order ID,Amount\n2025-01-01,x,1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "order_id", "amount"}, fields)

	_, err = ReadHeader(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseFile_NotFound(t *testing.T) {
	_, err := ParseFile(&ChaseParser{}, testdata("missing.csv"), Options{})
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	for in, want := range map[string]civil.Date{
		"2025-03-04":                {Year: 2025, Month: time.March, Day: 4},
		"2025-03-04T23:30:00-05:00": {Year: 2025, Month: time.March, Day: 4},
		"2025-03-04 08:00:00":       {Year: 2025, Month: time.March, Day: 4},
		"04/03/2025":                {Year: 2025, Month: time.March, Day: 4},
	} {
		got, err := parseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseDate("2025-02-30")
	assert.ErrorIs(t, err, model.ErrInvalidDate)
}
