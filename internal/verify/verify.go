// Package verify reconciles an extractor's claimed summary against values
// computed from the annotated transaction set.
package verify

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mcarecon/mcarecon/internal/config"
	"github.com/mcarecon/mcarecon/internal/model"
)

// Verifier compares claimed against computed values. Create with New.
type Verifier struct {
	relTol        decimal.Decimal
	floor         decimal.Decimal
	highGap       decimal.Decimal
	highPenalty   float64
	mediumPenalty float64
	log           zerolog.Logger
}

// New builds a Verifier from verification settings.
func New(cfg config.VerificationConfig, log zerolog.Logger) *Verifier {
	return &Verifier{
		relTol:        decimal.NewFromFloat(cfg.RelativeTolerance),
		floor:         decimal.NewFromFloat(cfg.AbsoluteFloor),
		highGap:       decimal.NewFromFloat(cfg.HighSeverityGap),
		highPenalty:   cfg.HighPenalty,
		mediumPenalty: cfg.MediumPenalty,
		log:           log,
	}
}

// Computed holds the values derived from the transaction detail.
type Computed struct {
	TotalRevenue         decimal.Decimal
	TotalMonthlyPayments decimal.Decimal
	PositionCounts       map[model.Frequency]int
	BankAccountCount     int
	HasDebits            bool
	HasCredits           bool
}

// Compute derives the checked summary fields. Revenue is the sum of credits
// that are not internal transfers; payments is the sum of debits tagged
// "payment" or flagged as lender payments.
func Compute(txns []model.Transaction, positions []model.Position) Computed {
	c := Computed{
		TotalRevenue:         decimal.Zero,
		TotalMonthlyPayments: decimal.Zero,
		PositionCounts:       make(map[model.Frequency]int, 3),
	}
	accounts := make(map[string]bool)
	for _, t := range txns {
		accounts[t.SourceAccountID] = true
		switch {
		case t.IsCredit():
			c.HasCredits = true
			if !t.IsInternalTransfer {
				c.TotalRevenue = c.TotalRevenue.Add(t.Magnitude())
			}
		case t.IsDebit():
			c.HasDebits = true
			if t.HasCategory("payment") || t.IsLenderPayment {
				c.TotalMonthlyPayments = c.TotalMonthlyPayments.Add(t.Magnitude())
			}
		}
	}
	for _, p := range positions {
		c.PositionCounts[p.Frequency]++
	}
	c.BankAccountCount = len(accounts)
	return c
}

// Verify checks every claimed field. Fields that are not claimed are
// skipped; the result is valid only when no discrepancy is found.
func (v *Verifier) Verify(claimed model.ClaimedSummary, txns []model.Transaction, positions []model.Position) model.VerificationResult {
	computed := Compute(txns, positions)
	var discrepancies []model.Discrepancy
	var warnings []string

	if len(txns) == 0 {
		warnings = append(warnings, "no transactions to verify against")
	}
	if n := countWhere(txns, func(t model.Transaction) bool { return t.DateMissing }); n > 0 {
		warnings = append(warnings, fmt.Sprintf("%d transaction(s) have no parseable date", n))
	}
	if n := countWhere(txns, func(t model.Transaction) bool { return t.AmountMalformed }); n > 0 {
		warnings = append(warnings, fmt.Sprintf("%d transaction(s) have malformed amounts counted as 0", n))
	}

	// Revenue needs both directions to be meaningful.
	revenueSupported := computed.HasCredits && computed.HasDebits
	switch {
	case claimed.MarkedNotComputable(model.FieldTotalRevenue):
		if revenueSupported {
			warnings = append(warnings, notComputableWarning(model.FieldTotalRevenue))
		}
	case claimed.TotalRevenue == nil:
	case !revenueSupported:
		discrepancies = append(discrepancies, model.Discrepancy{
			Field:      model.FieldTotalRevenue,
			Type:       model.DataInsufficiency,
			Claimed:    *claimed.TotalRevenue,
			Computed:   computed.TotalRevenue,
			Difference: computed.TotalRevenue.Sub(*claimed.TotalRevenue),
			Severity:   model.SeverityHigh,
		})
	default:
		if d, ok := v.compareAmount(model.FieldTotalRevenue, *claimed.TotalRevenue, computed.TotalRevenue); !ok {
			discrepancies = append(discrepancies, d)
		}
	}

	switch {
	case claimed.MarkedNotComputable(model.FieldTotalMonthlyPayments):
		if len(txns) > 0 {
			warnings = append(warnings, notComputableWarning(model.FieldTotalMonthlyPayments))
		}
	case claimed.TotalMonthlyPayments != nil:
		if d, ok := v.compareAmount(model.FieldTotalMonthlyPayments, *claimed.TotalMonthlyPayments, computed.TotalMonthlyPayments); !ok {
			discrepancies = append(discrepancies, d)
		}
	}

	if claimed.Positions != nil {
		claimedCounts := make(map[model.Frequency]int, 3)
		for _, p := range claimed.Positions {
			claimedCounts[model.Frequency(strings.ToLower(strings.TrimSpace(string(p.Frequency))))]++
		}
		for _, f := range []struct {
			field string
			freq  model.Frequency
		}{
			{model.FieldDailyPositionCount, model.Daily},
			{model.FieldWeeklyPositionCount, model.Weekly},
			{model.FieldMonthlyPositionCount, model.Monthly},
		} {
			if claimed.MarkedNotComputable(f.field) {
				continue
			}
			if d, ok := compareCount(f.field, claimedCounts[f.freq], computed.PositionCounts[f.freq]); !ok {
				discrepancies = append(discrepancies, d)
			}
		}
	}

	if claimed.BankAccounts != nil && !claimed.MarkedNotComputable(model.FieldBankAccountCount) {
		if d, ok := compareCount(model.FieldBankAccountCount, len(claimed.BankAccounts), computed.BankAccountCount); !ok {
			discrepancies = append(discrepancies, d)
		}
	}

	result := model.VerificationResult{
		IsValid:       len(discrepancies) == 0,
		Discrepancies: discrepancies,
		Warnings:      warnings,
	}
	result.ConfidenceScore = v.confidence(result)

	v.log.Debug().
		Bool("valid", result.IsValid).
		Int("discrepancies", len(discrepancies)).
		Float64("confidence", result.ConfidenceScore).
		Msg("verification complete")
	return result
}

// WithinTolerance applies |claimed-computed| <= max(floor, relTol*base)
// where base is |claimed|, or |computed| when nothing was claimed.
func (v *Verifier) WithinTolerance(claimed, computed decimal.Decimal) bool {
	base := claimed.Abs()
	if base.IsZero() {
		base = computed.Abs()
	}
	allowed := decimal.Max(v.floor, v.relTol.Mul(base))
	return claimed.Sub(computed).Abs().LessThanOrEqual(allowed)
}

func (v *Verifier) compareAmount(field string, claimed, computed decimal.Decimal) (model.Discrepancy, bool) {
	if v.WithinTolerance(claimed, computed) {
		return model.Discrepancy{}, true
	}
	diff := computed.Sub(claimed)
	severity := model.SeverityMedium
	if diff.Abs().GreaterThan(v.highGap) {
		severity = model.SeverityHigh
	}
	return model.Discrepancy{
		Field:      field,
		Type:       model.ToleranceExceeded,
		Claimed:    claimed,
		Computed:   computed,
		Difference: diff,
		Severity:   severity,
	}, false
}

// compareCount requires integer fields to match exactly.
func compareCount(field string, claimed, computed int) (model.Discrepancy, bool) {
	if claimed == computed {
		return model.Discrepancy{}, true
	}
	return model.Discrepancy{
		Field:      field,
		Type:       model.ToleranceExceeded,
		Claimed:    decimal.NewFromInt(int64(claimed)),
		Computed:   decimal.NewFromInt(int64(computed)),
		Difference: decimal.NewFromInt(int64(computed - claimed)),
		Severity:   model.SeverityHigh,
	}, false
}

func (v *Verifier) confidence(r model.VerificationResult) float64 {
	score := 1.0 -
		v.highPenalty*float64(r.CountBySeverity(model.SeverityHigh)) -
		v.mediumPenalty*float64(r.CountBySeverity(model.SeverityMedium))
	return max(score, 0)
}

func notComputableWarning(field string) string {
	return fmt.Sprintf("%s marked not computable but the transactions support computing it", field)
}

func countWhere(txns []model.Transaction, pred func(model.Transaction) bool) int {
	n := 0
	for _, t := range txns {
		if pred(t) {
			n++
		}
	}
	return n
}
