package commands_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/ledger"
	"github.com/cleared-dev/tally/internal/misslog"
	"github.com/cleared-dev/tally/internal/model"
)

func testdata(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

// newProject initializes a USD project with two entities and sources for
// every report in testdata.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runTally(t, "init", dir, "--name", "Studio", "--currency", "USD")
	require.NoError(t, err)

	path := filepath.Join(dir, config.FileName)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.Currencies.Secondary = []string{"EUR", "BTC"}
	cfg.Currencies.Rates = map[string]string{"EUR": "1.08"}
	cfg.Entities = []config.EntityConfig{
		{Name: "studio", Identities: []string{"Jane Doe"}},
		{Name: "shop"},
	}
	cfg.Sources = []config.SourceConfig{
		{Pattern: "chase*.csv", Format: "chase", Entity: "studio", Currency: "USD"},
		{Pattern: "settlement*.csv", Format: "settlement", Entity: "shop"},
		{Pattern: "exchange*.csv", Format: "exchange", Entity: "shop"},
	}
	require.NoError(t, cfg.Validate())
	require.NoError(t, config.Save(path, cfg))
	return dir
}

func stage(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		data, err := os.ReadFile(testdata(name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "import", name), data, 0o644))
	}
}

func readLedger(t *testing.T, dir string) []ledger.Entry {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "2025", "01", "transactions.csv"))
	require.NoError(t, err)
	defer f.Close()
	entries, err := ledger.ReadEntries(f)
	require.NoError(t, err)
	return entries
}

func TestImport_RecordsEveryReport(t *testing.T) {
	dir := newProject(t)
	stage(t, dir, "chase_checking.csv", "settlement.csv", "exchange.csv")

	out, err := runTally(t, "import", "--dir", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 15 transactions from 3 reports")

	entries := readLedger(t, dir)
	require.Len(t, entries, 15)
	assert.Equal(t, "2025-01-001", entries[0].ID)

	uncategorized := 0
	for _, e := range entries {
		if e.Classification.Category == model.Uncategorized {
			uncategorized++
		}
	}
	misses, err := misslog.Read(dir)
	require.NoError(t, err)
	assert.Len(t, misses, uncategorized)

	for _, name := range []string{"chase_checking.csv", "settlement.csv", "exchange.csv"} {
		_, err := os.Stat(filepath.Join(dir, "import", "processed", name))
		assert.NoError(t, err, "%s should be processed", name)
	}
}

func TestImport_SelfTransferIsInternal(t *testing.T) {
	dir := newProject(t)
	stage(t, dir, "chase_checking.csv")

	_, err := runTally(t, "import", "--dir", dir)
	require.NoError(t, err)

	for _, e := range readLedger(t, dir) {
		if strings.Contains(e.Description, "JANE DOE") {
			assert.Equal(t, model.TypeInternal, e.Classification.Type)
			return
		}
	}
	t.Fatal("transfer row not found")
}

func TestImport_RejectedReportDoesNotBlockOthers(t *testing.T) {
	dir := newProject(t)
	stage(t, dir, "chase_checking.csv")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "mystery.csv"), []byte("a,b\n1,2\n"), 0o644))

	out, err := runTally(t, "import", "--dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 reports rejected")
	assert.Contains(t, out, "no configured source matches")

	assert.Len(t, readLedger(t, dir), 6)
	_, err = os.Stat(filepath.Join(dir, "import", "mystery.csv"))
	assert.NoError(t, err, "rejected file stays in import/")
}

func TestImport_LedgerRejectionIsPerReport(t *testing.T) {
	dir := newProject(t)
	stage(t, dir, "chase_checking.csv")
	settlement := "Date,Order ID,Description,Amount,Fee,Currency,Marketplace\n" +
		"2025-01-05,111-2223334,Order payout,120.005,,EUR,Amazon EU\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "settlement.csv"), []byte(settlement), 0o644))

	out, err := runTally(t, "import", "--dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 reports rejected")
	assert.Contains(t, out, "settlement.csv: recording")
	assert.Contains(t, out, "Imported 6 transactions from 1 reports")

	entries := readLedger(t, dir)
	require.Len(t, entries, 6)
	for _, e := range entries {
		assert.NotEqual(t, "EUR", e.Currency)
	}
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "chase_checking.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "import", "settlement.csv"))
	assert.NoError(t, err, "rejected file stays in import/")
}

func TestImport_DryRun(t *testing.T) {
	dir := newProject(t)
	stage(t, dir, "chase_checking.csv")

	_, err := runTally(t, "import", "--dir", dir, "--dry-run")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "2025"))
	assert.True(t, os.IsNotExist(err), "dry run writes no ledger")
	_, err = os.Stat(filepath.Join(dir, "import", "chase_checking.csv"))
	assert.NoError(t, err)
}

func TestImport_NothingToDo(t *testing.T) {
	dir := newProject(t)
	out, err := runTally(t, "import", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to import")
}

func TestImport_RequiresProject(t *testing.T) {
	_, err := runTally(t, "import", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening project")
}

func TestClassify_PrintsLedgerRows(t *testing.T) {
	dir := newProject(t)

	out, err := runTally(t, "classify", "--dir", dir, testdata("chase_checking.csv"))
	require.NoError(t, err)

	entries, err := ledger.ReadEntries(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, entries, 6)
	assert.Equal(t, "software", entries[0].Classification.Category)
	assert.Equal(t, "rent", entries[1].Classification.Category)
	assert.Equal(t, "studio", entries[0].Entity)
}

func TestClassify_FormatFlag(t *testing.T) {
	dir := newProject(t)

	_, err := runTally(t, "classify", "--dir", dir, testdata("ledger.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass --format")

	out, err := runTally(t, "classify", "--dir", dir, "--format", "ledger", testdata("ledger.csv"))
	require.NoError(t, err)
	entries, err := ledger.ReadEntries(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "software", entries[0].Classification.Category, "kept from the file")
	assert.NotEmpty(t, entries[4].Classification.Category, "classified by the rules")
}

func TestReconcile_Summary(t *testing.T) {
	dir := newProject(t)

	out, err := runTally(t, "reconcile", "--dir", dir, testdata("chase_checking.csv"), testdata("ledger.csv"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "bank: 6 in range, ledger: 5 in range")
	assert.Contains(t, out, "matched: 4")
	assert.Contains(t, out, "bank only: 2 (-1012.00)")
	assert.Contains(t, out, "ledger only: 1 (-250.00)")
	assert.Contains(t, out, "Office Supply Co")
}

func TestReconcile_FromAndStrict(t *testing.T) {
	dir := newProject(t)

	out, err := runTally(t, "reconcile", "--dir", dir, "--from", "2025-01-16",
		testdata("chase_checking.csv"), testdata("ledger.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "bank: 2 in range, ledger: 1 in range")
	assert.Contains(t, out, "matched: 0")

	_, err = runTally(t, "reconcile", "--dir", dir, "--strict",
		testdata("chase_checking.csv"), testdata("ledger.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmatched")

	_, err = runTally(t, "reconcile", "--dir", dir, "--tolerance", "-1",
		testdata("chase_checking.csv"), testdata("ledger.csv"))
	require.Error(t, err)
}

func TestReconcile_WritesWorkbook(t *testing.T) {
	dir := newProject(t)
	path := filepath.Join(dir, "exports", "match.xlsx")

	_, err := runTally(t, "reconcile", "--dir", dir, "--out", path,
		testdata("chase_checking.csv"), testdata("ledger.csv"))
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"matches", "summary"}, f.GetSheetList())

	rows, err := f.GetRows("matches")
	require.NoError(t, err)
	assert.Len(t, rows, 8, "header, 4 pairs, 3 leftovers")
}

func TestRollup_CSV(t *testing.T) {
	dir := newProject(t)
	stage(t, dir, "chase_checking.csv", "settlement.csv", "exchange.csv")
	_, err := runTally(t, "import", "--dir", dir)
	require.NoError(t, err)

	out, err := runTally(t, "rollup", "--dir", dir, "--from", "2025-01-01", "--to", "2025-01-31")
	require.NoError(t, err, out)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "period,entity,currency,"), lines[0])
	assert.True(t, strings.HasSuffix(lines[0], ",net_total,projected_USD"), lines[0])
	assert.Contains(t, out, "2025-01,studio,USD,")
	assert.Contains(t, out, "2025-01,shop,EUR,")
	assert.Contains(t, out, "2025-01,company,BTC,")
	assert.NotContains(t, out, "internal_transfer", "internal moves are excluded")
}

func TestRollup_XLSXAndFlags(t *testing.T) {
	dir := newProject(t)
	stage(t, dir, "chase_checking.csv")
	_, err := runTally(t, "import", "--dir", dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "exports", "q1.xlsx")
	_, err = runTally(t, "rollup", "--dir", dir, "--from", "2025-01-01", "--to", "2025-03-31",
		"--period", "quarterly", "--view", "inclusive", "--allocation", "equal", "--out", path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("rollup")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, "2025-Q1", rows[1][0])

	_, err = runTally(t, "rollup", "--dir", dir, "--from", "2025-01-01", "--to", "2025-01-31", "--view", "both")
	require.Error(t, err)

	_, err = runTally(t, "rollup", "--dir", dir, "--from", "2025-02-01", "--to", "2025-01-31")
	require.Error(t, err)
}

func TestSchema_ReportsDrift(t *testing.T) {
	dir := newProject(t)

	out, err := runTally(t, "schema", "--dir", dir, "--report", "settlement", testdata("settlement.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "no drift")

	out, err = runTally(t, "schema", "--dir", dir, "--report", "settlement", testdata("settlement_promo.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, `settlement: new field "promo_code"`)

	_, err = runTally(t, "schema", "--dir", dir, "--report", "settlement", "--strict", testdata("settlement_promo.csv"))
	require.Error(t, err)

	out, err = runTally(t, "schema", "--dir", dir, "--report", "exchange", testdata("exchange.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "no drift")
}

func TestSchema_MissingRequired(t *testing.T) {
	dir := newProject(t)

	_, err := runTally(t, "schema", "--dir", dir, "--report", "settlement", testdata("exchange.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required fields: currency")

	_, err = runTally(t, "schema", "--dir", dir, "--report", "nope", testdata("exchange.csv"))
	require.Error(t, err)
}
