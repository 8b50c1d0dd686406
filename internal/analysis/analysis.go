// Package analysis derives underwriting metrics from an annotated
// transaction set and its detected positions. It reports figures only and
// makes no approval decision.
package analysis

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mcarecon/mcarecon/internal/model"
	"github.com/mcarecon/mcarecon/internal/similarity"
)

var hundred = decimal.NewFromInt(100)

// Options tunes Analyze. Zero values take defaults.
type Options struct {
	LastNMonths       int
	NewDealPayment    decimal.Decimal
	DeductionKeywords []string
	DieselKeywords    []string
	NSFKeywords       []string
}

// DefaultOptions returns the standard keyword lists and a 12-month breakdown.
func DefaultOptions() Options {
	return Options{
		LastNMonths:       12,
		DeductionKeywords: []string{"FEE", "FEES", "CHARGE", "NSF", "OVERDRAFT", "RETURN", "RETURNED", "REVERSAL"},
		DieselKeywords:    []string{"DIESEL", "FUEL"},
		NSFKeywords:       []string{"NSF", "NON-SUFFICIENT", "INSUFFICIENT FUNDS"},
	}
}

// MonthlyRevenue is revenue for one calendar month ("2006-01").
type MonthlyRevenue struct {
	Month   string
	Revenue decimal.Decimal
}

// Report holds the underwriting metrics.
type Report struct {
	TotalIncome          decimal.Decimal
	Deductions           decimal.Decimal
	NetRevenue           decimal.Decimal
	MonthsAnalyzed       int
	AverageMonthlyIncome decimal.Decimal
	AnnualIncome         decimal.Decimal
	MonthlyRevenue       []MonthlyRevenue // newest first

	DailyMCAMonthly   decimal.Decimal
	WeeklyMCAMonthly  decimal.Decimal
	MonthlyMCAMonthly decimal.Decimal
	TotalMCAMonthly   decimal.Decimal

	DieselCount   int
	DieselMonthly decimal.Decimal

	TotalMonthlyPayments   decimal.Decimal // MCA plus diesel
	PaymentToIncomePct     decimal.Decimal
	PaymentWithNewDealPct  decimal.Decimal
	AvailableForNewPayment decimal.Decimal

	NSFCount int
}

// Analyze computes the report with default options.
func Analyze(txns []model.Transaction, positions []model.Position) Report {
	return AnalyzeWith(txns, positions, DefaultOptions())
}

// AnalyzeWith computes the report. Income excludes internal transfers;
// transactions with the epoch sentinel date count toward totals but not
// toward months.
func AnalyzeWith(txns []model.Transaction, positions []model.Position, opts Options) Report {
	defaults := DefaultOptions()
	if opts.LastNMonths <= 0 {
		opts.LastNMonths = defaults.LastNMonths
	}
	if opts.DeductionKeywords == nil {
		opts.DeductionKeywords = defaults.DeductionKeywords
	}
	if opts.DieselKeywords == nil {
		opts.DieselKeywords = defaults.DieselKeywords
	}
	if opts.NSFKeywords == nil {
		opts.NSFKeywords = defaults.NSFKeywords
	}

	r := Report{
		TotalIncome:   decimal.Zero,
		Deductions:    decimal.Zero,
		DieselMonthly: decimal.Zero,
	}
	months := make(map[string]bool)
	revenueByMonth := make(map[string]decimal.Decimal)
	diesel := decimal.Zero

	for _, t := range txns {
		desc := words(t.Description)
		month := ""
		if !t.DateMissing {
			month = t.Date.Format("2006-01")
			months[month] = true
		}
		if containsAny(desc, opts.NSFKeywords) {
			r.NSFCount++
		}

		switch {
		case t.IsCredit() && !t.IsInternalTransfer:
			r.TotalIncome = r.TotalIncome.Add(t.Magnitude())
			if month != "" {
				revenueByMonth[month] = revenueByMonth[month].Add(t.Magnitude())
			}
		case t.IsDebit():
			if containsAny(desc, opts.DeductionKeywords) {
				r.Deductions = r.Deductions.Add(t.Magnitude())
			}
			if containsAny(desc, opts.DieselKeywords) {
				r.DieselCount++
				diesel = diesel.Add(t.Magnitude())
			}
		}
	}

	r.MonthsAnalyzed = max(len(months), 1)
	n := decimal.NewFromInt(int64(r.MonthsAnalyzed))
	r.NetRevenue = r.TotalIncome.Sub(r.Deductions)
	r.AverageMonthlyIncome = r.NetRevenue.Div(n).Round(2)
	r.AnnualIncome = r.AverageMonthlyIncome.Mul(decimal.NewFromInt(12)).Round(2)
	r.DieselMonthly = diesel.Div(n).Round(2)
	r.MonthlyRevenue = breakdown(revenueByMonth, opts.LastNMonths)

	r.DailyMCAMonthly, r.WeeklyMCAMonthly, r.MonthlyMCAMonthly = decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range positions {
		switch p.Frequency {
		case model.Daily:
			r.DailyMCAMonthly = r.DailyMCAMonthly.Add(p.MonthlyPayment)
		case model.Weekly:
			r.WeeklyMCAMonthly = r.WeeklyMCAMonthly.Add(p.MonthlyPayment)
		default:
			r.MonthlyMCAMonthly = r.MonthlyMCAMonthly.Add(p.MonthlyPayment)
		}
	}
	r.TotalMCAMonthly = r.DailyMCAMonthly.Add(r.WeeklyMCAMonthly).Add(r.MonthlyMCAMonthly)
	r.TotalMonthlyPayments = r.TotalMCAMonthly.Add(r.DieselMonthly)

	r.PaymentToIncomePct, r.PaymentWithNewDealPct, r.AvailableForNewPayment = decimal.Zero, decimal.Zero, decimal.Zero
	if r.AverageMonthlyIncome.IsPositive() {
		r.PaymentToIncomePct = r.TotalMonthlyPayments.Div(r.AverageMonthlyIncome).Mul(hundred).Round(2)
		r.PaymentWithNewDealPct = r.TotalMonthlyPayments.Add(opts.NewDealPayment).Div(r.AverageMonthlyIncome).Mul(hundred).Round(2)
		r.AvailableForNewPayment = r.AverageMonthlyIncome.Div(decimal.NewFromInt(2)).Sub(r.TotalMonthlyPayments).Round(2)
	}
	return r
}

func breakdown(byMonth map[string]decimal.Decimal, lastN int) []MonthlyRevenue {
	out := make([]MonthlyRevenue, 0, len(byMonth))
	for m, rev := range byMonth {
		out = append(out, MonthlyRevenue{Month: m, Revenue: rev.Round(2)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	if len(out) > lastN {
		out = out[:lastN]
	}
	return out
}

// words renders s as space-padded upper-case tokens for whole-word search.
func words(s string) string {
	return " " + strings.Join(similarity.Tokens(s), " ") + " "
}

func containsAny(padded string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(padded, words(k)) {
			return true
		}
	}
	return false
}
