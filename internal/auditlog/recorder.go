package auditlog

import (
	"github.com/mcarecon/mcarecon/internal/retry"
)

// Recorder appends retry attempts to the audit log under Dir.
type Recorder struct {
	Dir string
}

// Record implements retry.Recorder. Extraction errors are logged as the
// attempt's feedback.
func (r Recorder) Record(a retry.Attempt) error {
	return Append(r.Dir, []Entry{FromAttempt(a)})
}

// FromAttempt converts a retry attempt to an audit entry.
func FromAttempt(a retry.Attempt) Entry {
	return Entry{
		Timestamp:     a.At,
		RunID:         a.RunID,
		DealID:        a.DealID,
		Attempt:       a.Number,
		Status:        a.Status,
		Valid:         a.Err == nil && a.Verification.IsValid,
		Discrepancies: len(a.Verification.Discrepancies),
		Confidence:    a.Verification.ConfidenceScore,
		Feedback:      a.Feedback,
	}
}
