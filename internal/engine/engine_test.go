package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcarecon/mcarecon/internal/config"
	"github.com/mcarecon/mcarecon/internal/model"
	"github.com/mcarecon/mcarecon/internal/transfer"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// sampleExtraction has two accounts, a transfer between them, revenue and
// a daily MCA position.
func sampleExtraction() model.Extraction {
	raw := []model.RawRecord{
		{Date: "2024-01-02", Description: "SQUARE INC DEPOSIT", Amount: "8,000.00", Type: "credit", SourceAccountID: "chk", Category: "income"},
		{Date: "2024-01-16", Description: "STRIPE TRANSFER", Amount: "4000.00", Type: "credit", SourceAccountID: "chk", Category: "income"},
		{Date: "2024-01-10", Description: "ONLINE TRANSFER TO SAV", Amount: "2500.00", Type: "debit", SourceAccountID: "chk", Category: "transfer"},
		{Date: "2024-01-11", Description: "ONLINE TRANSFER FROM CHK", Amount: "2500.00", Type: "credit", SourceAccountID: "sav", Category: "transfer"},
	}
	start := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	for i, n := 0, 0; n < 7; i++ {
		d := start.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		n++
		raw = append(raw, model.RawRecord{
			Date:            d.Format("2006-01-02"),
			Description:     "ACH DEBIT XYZ CAPITAL 8473",
			Amount:          "-500.00",
			SourceAccountID: "chk",
		})
	}
	return model.Extraction{Transactions: raw}
}

func TestProcess(t *testing.T) {
	x := sampleExtraction()
	x.Summary = model.ClaimedSummary{
		TotalRevenue:         dec("12000.00"),
		TotalMonthlyPayments: dec("3500.00"),
		Positions:            []model.ClaimedPosition{{Name: "XYZ Capital", Frequency: model.Daily}},
		BankAccounts:         []string{"chk", "sav"},
	}

	r := New(config.Default("Acme"), zerolog.Nop()).Process(x)

	require.Len(t, r.Transactions, 11)
	assert.Empty(t, transfer.Validate(r.Transactions))
	assert.Equal(t, 1, r.Transfers.PairCount)
	assert.Equal(t, r.Transactions[3].ID, r.Transactions[2].MatchedTransferID)

	require.Len(t, r.Positions, 1)
	assert.Equal(t, "Xyz Capital", r.Positions[0].LenderName)
	assert.Equal(t, "11000", r.Positions[0].MonthlyPayment.String())

	assert.True(t, r.Verification.IsValid, "%+v", r.Verification.Discrepancies)
	assert.Equal(t, "12000", r.Metrics.TotalIncome.String())
	assert.Equal(t, "11000", r.Metrics.TotalMCAMonthly.String())

	lender := 0
	for _, txn := range r.Transactions {
		if txn.IsLenderPayment {
			lender++
		}
	}
	assert.Equal(t, 7, lender)

	require.Len(t, r.Patterns.Recurring, 1)
	assert.Equal(t, "ACH DEBIT XYZ CAPITAL XXXX", r.Patterns.Recurring[0].Key)
	assert.Equal(t, model.Daily, r.Patterns.Recurring[0].Frequency)
	assert.Equal(t, 7, r.Patterns.Recurring[0].OccurrenceCount)
	assert.Empty(t, r.Patterns.Changes)
}

func TestProcess_ConcurrentPasses(t *testing.T) {
	e := New(config.Default(""), zerolog.Nop())
	want := e.Process(sampleExtraction())

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.Process(sampleExtraction())
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, want.Positions, r.Positions)
		assert.Equal(t, want.Patterns, r.Patterns)
	}
}

func TestProcess_Discrepancies(t *testing.T) {
	x := sampleExtraction()
	x.Summary = model.ClaimedSummary{TotalRevenue: dec("14500.00")}

	r := New(config.Default(""), zerolog.Nop()).Process(x)
	require.False(t, r.Verification.IsValid)
	require.Len(t, r.Verification.Discrepancies, 1)
	assert.Equal(t, model.FieldTotalRevenue, r.Verification.Discrepancies[0].Field)
	assert.Equal(t, "-2500", r.Verification.Discrepancies[0].Difference.String(), "the transfer is not revenue")
}

func TestProcess_Stateless(t *testing.T) {
	e := New(config.Default(""), zerolog.Nop())
	x := sampleExtraction()
	first := e.Process(x)
	second := e.Process(x)
	assert.Equal(t, first.Positions, second.Positions)
	assert.Equal(t, first.Verification, second.Verification)
}
