package model

// RetryStatus is a Retry Controller state.
type RetryStatus string

const (
	StatusPending     RetryStatus = "pending"
	StatusRetrying    RetryStatus = "retrying"
	StatusAccepted    RetryStatus = "accepted"
	StatusNeedsReview RetryStatus = "needs_review"
)

// DefaultMaxRetries is the retry budget when none is configured.
const DefaultMaxRetries = 2

// RetryState is the caller-owned state of one extraction request.
type RetryState struct {
	Attempt           int // 0-based
	MaxRetries        int
	LastErrorFeedback *string
	Status            RetryStatus
}

// NewRetryState returns the initial state for an extraction request.
func NewRetryState(maxRetries int) RetryState {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return RetryState{MaxRetries: maxRetries, Status: StatusPending}
}

// Terminal reports whether no further attempts will be made.
func (s RetryState) Terminal() bool {
	return s.Status == StatusAccepted || s.Status == StatusNeedsReview
}
