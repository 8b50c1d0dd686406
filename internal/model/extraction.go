package model

import (
	"slices"

	"github.com/shopspring/decimal"
)

// ClaimedPosition is a position listed by the extractor.
type ClaimedPosition struct {
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	Frequency      Frequency       `json:"frequency"`
}

// ClaimedSummary holds the summary numbers an extractor asserts.
// A nil pointer or nil slice means the field was not claimed.
type ClaimedSummary struct {
	TotalRevenue         *decimal.Decimal  `json:"total_revenue,omitempty"`
	TotalMonthlyPayments *decimal.Decimal  `json:"total_monthly_payments,omitempty"`
	Positions            []ClaimedPosition `json:"positions,omitempty"`
	BankAccounts         []string          `json:"bank_accounts,omitempty"`
	NotComputable        []string          `json:"not_computable,omitempty"`
}

// MarkedNotComputable reports whether the claimant declared field uncomputable.
func (s ClaimedSummary) MarkedNotComputable(field string) bool {
	return slices.Contains(s.NotComputable, field)
}

// Extraction is the payload exchanged with extraction collaborators.
type Extraction struct {
	Transactions []RawRecord    `json:"transactions"`
	Summary      ClaimedSummary `json:"summary"`
}
