// Package retry drives bounded re-extraction of a deal: each failed
// verification feeds field-specific correction text into the next attempt
// until the result is accepted or the budget is spent.
package retry

import (
	"github.com/mcarecon/mcarecon/internal/model"
	"github.com/mcarecon/mcarecon/internal/verify"
)

// Begin moves a Retrying state back to Pending at the start of an attempt.
func Begin(s model.RetryState) model.RetryState {
	if s.Status == model.StatusRetrying {
		s.Status = model.StatusPending
	}
	return s
}

// Next applies one verification result to s. A valid result is Accepted;
// an invalid one is Retrying while attempts remain and NeedsReview after
// that. Terminal states are returned unchanged.
func Next(s model.RetryState, r model.VerificationResult) model.RetryState {
	if s.Terminal() {
		return s
	}
	if r.IsValid {
		s.Status = model.StatusAccepted
		return s
	}

	feedback := verify.FormatFeedback(r)
	s.LastErrorFeedback = &feedback
	if s.Attempt < s.MaxRetries {
		s.Attempt++
		s.Status = model.StatusRetrying
		return s
	}
	s.Status = model.StatusNeedsReview
	return s
}

// Fail records an extraction failure. The request goes straight to
// NeedsReview with the error text as feedback.
func Fail(s model.RetryState, err error) model.RetryState {
	if s.Terminal() {
		return s
	}
	feedback := "extraction failed: " + err.Error()
	s.LastErrorFeedback = &feedback
	s.Status = model.StatusNeedsReview
	return s
}
