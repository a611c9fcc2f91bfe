package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendview-dev/spendview/internal/model"
)

func sampleTransactions() []model.Transaction {
	return []model.Transaction{
		{
			Date:           time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			Merchant:       "Netflix",
			MerchantKey:    "netflix",
			RawDescription: "NETFLIX.COM",
			Amount:         decimal.RequireFromString("-15.99"),
			AccountType:    model.AccountCredit,
			SourceBank:     model.BankChase,
			SourceFile:     "Chase1234_Activity.CSV",
			BankCategory:   "Bills & Utilities",
			Category:       "Personal",
			FlowType:       model.FlowNone,
		},
		{
			Date:           time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			Merchant:       "Acme Corp Direct Dep Payroll",
			MerchantKey:    "acmecorpdirectdeppayroll",
			RawDescription: "ACME CORP DIRECT DEP PAYROLL",
			Amount:         decimal.RequireFromString("3500.00"),
			AccountType:    model.AccountChecking,
			SourceBank:     model.BankChase,
			SourceFile:     "Chase5678_Activity.CSV",
			Category:       "Personal",
			FlowType:       model.FlowIncome,
			IncomeSource:   "Payroll",
		},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.csv")
	want := sampleTransactions()
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.True(t, got[0].Date.Equal(want[0].Date))
	assert.Equal(t, want[0].Merchant, got[0].Merchant)
	assert.Equal(t, want[0].MerchantKey, got[0].MerchantKey)
	assert.True(t, got[0].Amount.Equal(want[0].Amount))
	assert.Equal(t, want[0].AccountType, got[0].AccountType)
	assert.Equal(t, want[0].FlowType, got[0].FlowType)
	assert.Equal(t, want[1].IncomeSource, got[1].IncomeSource)
}

func TestSave_ByteIdenticalAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	txns := sampleTransactions()

	require.NoError(t, Save(a, txns))
	require.NoError(t, Save(b, txns))

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestLoad_MissingFile(t *testing.T) {
	txns, err := Load(filepath.Join(t.TempDir(), "none.csv"))
	require.NoError(t, err)
	assert.Nil(t, txns)
}

func TestUnmarshalTransaction_FieldCount(t *testing.T) {
	_, err := UnmarshalTransaction([]string{"2024-01-05", "Netflix"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 12 fields")
}
