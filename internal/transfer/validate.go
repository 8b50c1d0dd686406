package transfer

import (
	"fmt"

	"github.com/mcarecon/mcarecon/internal/model"
)

// ValidationError describes a single transfer invariant violation.
type ValidationError struct {
	TxnID       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("transfer [%s]: %s", e.TxnID, e.Description)
}

// Validate checks that transfer pairs are symmetric, that every paired
// transaction is flagged internal, and that no transaction is the partner
// of more than one other.
func Validate(txns []model.Transaction) []ValidationError {
	var errs []ValidationError

	byID := make(map[string]model.Transaction, len(txns))
	for _, t := range txns {
		if _, dup := byID[t.ID]; dup {
			errs = append(errs, ValidationError{TxnID: t.ID, Description: "duplicate transaction id"})
		}
		byID[t.ID] = t
	}

	partnerOf := make(map[string][]string)
	for _, t := range txns {
		if t.MatchedTransferID == "" {
			if t.IsInternalTransfer && t.TransferReason != model.ReasonExplicitPattern {
				errs = append(errs, ValidationError{TxnID: t.ID, Description: "internal transfer without partner or explicit pattern"})
			}
			continue
		}
		partnerOf[t.MatchedTransferID] = append(partnerOf[t.MatchedTransferID], t.ID)

		if !t.IsInternalTransfer {
			errs = append(errs, ValidationError{TxnID: t.ID, Description: "matched but not flagged as internal transfer"})
		}
		if t.MatchedTransferID == t.ID {
			errs = append(errs, ValidationError{TxnID: t.ID, Description: "matched to itself"})
			continue
		}
		partner, ok := byID[t.MatchedTransferID]
		if !ok {
			errs = append(errs, ValidationError{TxnID: t.ID, Description: fmt.Sprintf("partner %s not found", t.MatchedTransferID)})
			continue
		}
		if partner.MatchedTransferID != t.ID {
			errs = append(errs, ValidationError{
				TxnID:       t.ID,
				Description: fmt.Sprintf("partner %s points to %q, not back", partner.ID, partner.MatchedTransferID),
			})
		}
	}

	for _, t := range txns {
		if refs := partnerOf[t.ID]; len(refs) > 1 {
			errs = append(errs, ValidationError{
				TxnID:       t.ID,
				Description: fmt.Sprintf("partner of %d transactions %v", len(refs), refs),
			})
		}
	}

	return errs
}
