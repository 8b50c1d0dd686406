package transfer

import (
	"github.com/shopspring/decimal"

	"github.com/mcarecon/mcarecon/internal/model"
)

// Summary aggregates the transfer classification of a transaction set.
type Summary struct {
	TransferCount    int // transactions flagged internal
	PairCount        int // matched_amount pairs
	ExplicitCount    int // explicit_pattern transactions
	TotalTransferred decimal.Decimal
}

// Summarize counts internal transfers. TotalTransferred sums the outgoing
// side: every paired debit plus explicit-pattern debits.
func Summarize(txns []model.Transaction) Summary {
	s := Summary{TotalTransferred: decimal.Zero}
	for _, t := range txns {
		if !t.IsInternalTransfer {
			continue
		}
		s.TransferCount++
		switch t.TransferReason {
		case model.ReasonExplicitPattern:
			s.ExplicitCount++
		case model.ReasonMatchedAmount:
			if t.IsDebit() {
				s.PairCount++
			}
		}
		if t.IsDebit() {
			s.TotalTransferred = s.TotalTransferred.Add(t.Magnitude())
		}
	}
	return s
}
