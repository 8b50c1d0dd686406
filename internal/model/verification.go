package model

import "github.com/shopspring/decimal"

// Severity grades a discrepancy.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// DiscrepancyType names why a claimed value was rejected.
type DiscrepancyType string

const (
	ToleranceExceeded DiscrepancyType = "tolerance_exceeded"
	DataInsufficiency DiscrepancyType = "data_insufficiency"
)

// Summary field names checked by the verifier.
const (
	FieldTotalRevenue         = "total_revenue"
	FieldTotalMonthlyPayments = "total_monthly_payments"
	FieldDailyPositionCount   = "daily_position_count"
	FieldWeeklyPositionCount  = "weekly_position_count"
	FieldMonthlyPositionCount = "monthly_position_count"
	FieldBankAccountCount     = "bank_account_count"
)

// Discrepancy is one claimed field that the transaction detail does not support.
type Discrepancy struct {
	Field      string
	Type       DiscrepancyType
	Claimed    decimal.Decimal
	Computed   decimal.Decimal
	Difference decimal.Decimal // computed - claimed
	Severity   Severity
}

// VerificationResult is the outcome of one reconciliation call.
type VerificationResult struct {
	IsValid         bool
	Discrepancies   []Discrepancy
	ConfidenceScore float64
	Warnings        []string
}

// CountBySeverity returns the number of discrepancies with the given severity.
func (r VerificationResult) CountBySeverity(s Severity) int {
	n := 0
	for _, d := range r.Discrepancies {
		if d.Severity == s {
			n++
		}
	}
	return n
}
