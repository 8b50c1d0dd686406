package verify

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mcarecon/mcarecon/internal/model"
)

var corrections = map[string]string{
	model.FieldTotalRevenue:         "Recompute total_revenue as the sum of all deposits and credits, excluding transfers between the merchant's own accounts.",
	model.FieldTotalMonthlyPayments: "Recompute total_monthly_payments as the sum of all debits that are lender or loan payments.",
	model.FieldDailyPositionCount:   "Recount positions repaid daily (one debit per business day from the same lender at the same amount).",
	model.FieldWeeklyPositionCount:  "Recount positions repaid weekly (one debit roughly every 7 days from the same lender at the same amount).",
	model.FieldMonthlyPositionCount: "Recount positions repaid monthly.",
	model.FieldBankAccountCount:     "List every distinct bank account that appears in the statements, once each.",
}

// FormatFeedback renders the discrepancies of an invalid result as the
// correction text sent to the next extraction attempt. It returns "" for a
// valid result.
func FormatFeedback(r model.VerificationResult) string {
	if r.IsValid {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "The previous extraction failed verification with %d discrepancies:\n", len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		fmt.Fprintf(&b, "%d. %s (%s severity): ", i+1, d.Field, d.Severity)
		switch d.Type {
		case model.DataInsufficiency:
			fmt.Fprintf(&b, "claimed %s, but the transactions contain only one direction of money flow, so this value cannot be computed. Report %s as not computable instead of a number.\n",
				formatValue(d.Field, d.Claimed), d.Field)
		default:
			fmt.Fprintf(&b, "claimed %s, computed from transactions %s (difference %s). %s\n",
				formatValue(d.Field, d.Claimed), formatValue(d.Field, d.Computed), signed(d.Field, d.Difference), corrections[d.Field])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatReport renders a fixed-width verification report.
func FormatReport(r model.VerificationResult) string {
	var b strings.Builder
	status := "PASSED"
	if !r.IsValid {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "Verification %s (confidence %.2f)\n", status, r.ConfidenceScore)
	if len(r.Discrepancies) > 0 {
		fmt.Fprintf(&b, "\n%-24s %-20s %14s %14s %14s %-8s\n", "FIELD", "TYPE", "CLAIMED", "COMPUTED", "DIFFERENCE", "SEVERITY")
		for _, d := range r.Discrepancies {
			fmt.Fprintf(&b, "%-24s %-20s %14s %14s %14s %-8s\n",
				d.Field, d.Type,
				formatValue(d.Field, d.Claimed),
				formatValue(d.Field, d.Computed),
				signed(d.Field, d.Difference),
				d.Severity)
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return b.String()
}

func isCount(field string) bool {
	return strings.HasSuffix(field, "_count")
}

func formatValue(field string, d decimal.Decimal) string {
	if isCount(field) {
		return d.StringFixed(0)
	}
	return "$" + d.StringFixed(2)
}

func signed(field string, d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	if isCount(field) {
		s = d.Abs().StringFixed(0)
	}
	if d.IsNegative() {
		return "-" + s
	}
	return "+" + s
}
