package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcarecon/mcarecon/internal/model"
	"github.com/mcarecon/mcarecon/internal/normalize"
)

const chaseHeader = "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n"

func readChase(t *testing.T) []model.RawRecord {
	t.Helper()
	f, err := os.Open("../../testdata/chase_checking.csv")
	require.NoError(t, err)
	defer f.Close()

	txns, err := (&ChaseParser{AccountID: "chk"}).Parse(f)
	require.NoError(t, err)
	return txns
}

func TestChaseParser_Parse(t *testing.T) {
	txns := readChase(t)
	require.Len(t, txns, 7)

	assert.Equal(t, "SQUARE INC DEPOSIT 250102", txns[0].Description)
	assert.Equal(t, "4250.00", string(txns[0].Amount))
	assert.Equal(t, "credit", txns[0].Type)
	assert.Equal(t, "01/02/2025", txns[0].Date)
	assert.Equal(t, "chk", string(txns[0].SourceAccountID))

	assert.Equal(t, "STRIPE TRANSFER ST-8K2P, PAYOUT", txns[4].Description)
	assert.Equal(t, "payment", txns[5].Category, "LOAN_PMT rows are payments")
	assert.Equal(t, "debit", txns[6].Type, "checks are debits")
}

func TestChaseParser_Normalizes(t *testing.T) {
	txns := normalize.Normalize(readChase(t))
	require.Len(t, txns, 7)

	for _, txn := range txns {
		assert.False(t, txn.AmountMalformed, txn.Description)
		assert.False(t, txn.DateMissing, txn.Description)
		if txn.IsCredit() {
			assert.True(t, txn.Amount.IsPositive(), txn.Description)
		} else {
			assert.True(t, txn.Amount.IsNegative(), txn.Description)
		}
	}
	assert.Equal(t, 2025, txns[1].Date.Year())
	assert.Equal(t, 3, txns[1].Date.Day())
}

func TestChaseParser_EmptyFile(t *testing.T) {
	txns, err := (&ChaseParser{}).Parse(strings.NewReader(chaseHeader))
	require.NoError(t, err)
	assert.Nil(t, txns)
}

func TestChaseParser_BadValuesPassThrough(t *testing.T) {
	csv := chaseHeader + "DEBIT,NOTADATE,desc,NOTANUMBER,ACH_DEBIT,100.00,\n"
	txns, err := (&ChaseParser{}).Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "NOTADATE", txns[0].Date)
	assert.Equal(t, "NOTANUMBER", string(txns[0].Amount))
}

func TestChaseParser_WrongFieldCount(t *testing.T) {
	_, err := (&ChaseParser{}).Parse(strings.NewReader(chaseHeader + "DEBIT,01/03/2025\n"))
	assert.ErrorContains(t, err, "reading chase CSV")
}

func TestChaseParser_Format(t *testing.T) {
	assert.Equal(t, "chase", (&ChaseParser{}).Format())
}

func TestChaseParser_Reference(t *testing.T) {
	txns := readChase(t)
	assert.Equal(t, "chase_01032025_ACHDEBITXY", string(txns[1].ID))
}

func TestGenericParser_Parse(t *testing.T) {
	f, err := os.Open("../../testdata/generic.csv")
	require.NoError(t, err)
	defer f.Close()

	txns, err := (&GenericParser{AccountID: "ops"}).Parse(f)
	require.NoError(t, err)
	require.Len(t, txns, 3)

	assert.Equal(t, "4,250.00", string(txns[0].Amount))
	assert.Equal(t, "credit", txns[0].Type)
	assert.Equal(t, "income", txns[0].Category)
	assert.Equal(t, "500.00", string(txns[1].Amount))
	assert.Equal(t, "debit", txns[1].Type)
	assert.Equal(t, "ops", string(txns[2].SourceAccountID))

	norm := normalize.Normalize(txns)
	assert.Equal(t, "4250", norm[0].Amount.String())
	assert.Equal(t, "-500", norm[1].Amount.String())
	assert.Equal(t, "-81.9", norm[2].Amount.String())
}

func TestGenericParser_HeaderMapping(t *testing.T) {
	csv := "ID,Transaction Date,Memo,Amount,Direction,Source_Account_ID\n" +
		"7,2025-02-01,WIRE FROM CLIENT,1000,credit,sav\n"
	txns, err := (&GenericParser{AccountID: "ignored"}).Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, model.RawRecord{
		ID:              "7",
		Date:            "2025-02-01",
		Description:     "WIRE FROM CLIENT",
		Amount:          "1000",
		Type:            "credit",
		SourceAccountID: "sav",
	}, txns[0])
}

func TestGenericParser_Errors(t *testing.T) {
	_, err := (&GenericParser{}).Parse(strings.NewReader("Description,Amount\nx,1\n"))
	assert.ErrorContains(t, err, "no date column")

	_, err = (&GenericParser{}).Parse(strings.NewReader("Date,Description\n2025-01-01,x\n"))
	assert.ErrorContains(t, err, "no amount")

	txns, err := (&GenericParser{}).Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, txns)
}

func TestRegistry_GetUnknown(t *testing.T) {
	assert.Nil(t, NewRegistry().Get("nonexistent"))
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	p := r.Get("chase")
	require.NotNil(t, p)
	assert.Equal(t, "chase", p.Format())
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	assert.NotNil(t, r.Get("Chase"))
	assert.NotNil(t, r.Get("CHASE"))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	assert.Panics(t, func() { r.Register(&ChaseParser{}) })
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry("chk")
	assert.NotNil(t, r.Get("chase"))
	assert.NotNil(t, r.Get("generic"))
	assert.ElementsMatch(t, []string{"chase", "generic"}, r.Formats())
}

func TestScan_FindsCSVs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "checking.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "checking.csv", files[0].Name)
	assert.Equal(t, "checking", files[0].AccountID)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "processed"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "processed", "old.csv"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "new.csv", files[0].Name)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := Scan(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank.csv"), []byte("data"), 0o644))

	require.NoError(t, MarkProcessed(dir, "bank.csv"))

	_, err := os.Stat(filepath.Join(dir, "bank.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "processed", "bank.csv"))
	assert.NoError(t, err)
}
