package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcarecon/mcarecon/internal/config"
	"github.com/mcarecon/mcarecon/internal/engine"
	"github.com/mcarecon/mcarecon/internal/extractor"
	"github.com/mcarecon/mcarecon/internal/model"
)

var invalid = model.VerificationResult{
	IsValid: false,
	Discrepancies: []model.Discrepancy{{
		Field:      model.FieldTotalRevenue,
		Type:       model.ToleranceExceeded,
		Claimed:    decimal.NewFromInt(100),
		Computed:   decimal.NewFromInt(500),
		Difference: decimal.NewFromInt(400),
		Severity:   model.SeverityHigh,
	}},
	ConfidenceScore: 0.75,
}

var valid = model.VerificationResult{IsValid: true, ConfidenceScore: 1}

// fixedProcessor returns results in order, repeating the last one.
type fixedProcessor struct {
	results []model.VerificationResult
	calls   int
}

func (p *fixedProcessor) Process(model.Extraction) engine.Result {
	r := p.results[min(p.calls, len(p.results)-1)]
	p.calls++
	return engine.Result{Verification: r}
}

type recordingExtractor struct {
	requests []extractor.Request
	err      error
}

func (e *recordingExtractor) Extract(_ context.Context, req extractor.Request) (model.Extraction, error) {
	e.requests = append(e.requests, req)
	return model.Extraction{}, e.err
}

type memRecorder struct{ attempts []Attempt }

func (m *memRecorder) Record(a Attempt) error {
	m.attempts = append(m.attempts, a)
	return nil
}

func TestNext(t *testing.T) {
	s := model.NewRetryState(2)

	s = Next(s, invalid)
	assert.Equal(t, model.StatusRetrying, s.Status)
	assert.Equal(t, 1, s.Attempt)
	require.NotNil(t, s.LastErrorFeedback)
	assert.Contains(t, *s.LastErrorFeedback, "total_revenue")

	s = Next(Begin(s), invalid)
	assert.Equal(t, 2, s.Attempt)

	s = Next(Begin(s), invalid)
	assert.Equal(t, model.StatusNeedsReview, s.Status)
	assert.Equal(t, 2, s.Attempt)
	assert.NotNil(t, s.LastErrorFeedback, "feedback preserved for audit")

	assert.Equal(t, s, Next(s, valid), "terminal states do not move")
}

func TestNext_Accept(t *testing.T) {
	s := Next(model.NewRetryState(2), valid)
	assert.Equal(t, model.StatusAccepted, s.Status)
	assert.Equal(t, 0, s.Attempt)
	assert.Nil(t, s.LastErrorFeedback)
}

func TestNext_Immutable(t *testing.T) {
	s := model.NewRetryState(1)
	_ = Next(s, invalid)
	assert.Equal(t, model.StatusPending, s.Status)
	assert.Nil(t, s.LastErrorFeedback)
}

func TestFail(t *testing.T) {
	s := Fail(model.NewRetryState(2), errors.New("ocr service 503"))
	assert.Equal(t, model.StatusNeedsReview, s.Status)
	assert.Equal(t, "extraction failed: ocr service 503", *s.LastErrorFeedback)
}

func TestRun_AlwaysFailingReachesTerminal(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 2, 5} {
		ex := &recordingExtractor{}
		proc := &fixedProcessor{results: []model.VerificationResult{invalid}}
		rec := &memRecorder{}

		out, err := NewController(ex, proc, maxRetries, zerolog.Nop(), WithRecorder(rec)).Run(context.Background(), "deal-1")
		require.NoError(t, err)

		assert.Equal(t, model.StatusNeedsReview, out.State.Status)
		assert.Len(t, ex.requests, maxRetries+1)
		assert.Len(t, out.Attempts, maxRetries+1)
		assert.Len(t, rec.attempts, maxRetries+1)
		assert.Nil(t, ex.requests[0].Feedback, "first attempt has no feedback")
		for i, req := range ex.requests {
			assert.Equal(t, i, req.Attempt)
			assert.Equal(t, "deal-1", req.DealID)
			if i > 0 {
				require.NotNil(t, req.Feedback)
				assert.Contains(t, *req.Feedback, "total_revenue")
			}
		}
		assert.NotEmpty(t, out.RunID)
		assert.Equal(t, out.RunID, rec.attempts[0].RunID)
	}
}

func TestRun_AlwaysPassingAcceptsFirstAttempt(t *testing.T) {
	ex := &recordingExtractor{}
	out, err := NewController(ex, &fixedProcessor{results: []model.VerificationResult{valid}}, 2, zerolog.Nop()).
		Run(context.Background(), "deal-1")
	require.NoError(t, err)

	assert.True(t, out.Accepted())
	assert.Len(t, ex.requests, 1)
	assert.Equal(t, 0, out.State.Attempt)
	require.Len(t, out.Attempts, 1)
	assert.Empty(t, out.Attempts[0].Feedback)
}

func TestRun_CorrectedOnRetry(t *testing.T) {
	ex := &recordingExtractor{}
	proc := &fixedProcessor{results: []model.VerificationResult{invalid, valid}}
	out, err := NewController(ex, proc, 2, zerolog.Nop()).Run(context.Background(), "deal-1")
	require.NoError(t, err)

	assert.True(t, out.Accepted())
	assert.Equal(t, 1, out.State.Attempt)
	assert.Len(t, ex.requests, 2)
	assert.Equal(t, model.StatusRetrying, out.Attempts[0].Status)
	assert.Equal(t, model.StatusAccepted, out.Attempts[1].Status)
}

func TestRun_ExtractorFailure(t *testing.T) {
	ex := &recordingExtractor{err: extractor.ErrTimeout}
	rec := &memRecorder{}
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	out, err := NewController(ex, &fixedProcessor{results: []model.VerificationResult{valid}}, 2, zerolog.Nop(),
		WithRecorder(rec), WithClock(func() time.Time { return stamp })).Run(context.Background(), "deal-1")

	require.NoError(t, err, "failures do not escape the controller")
	assert.Equal(t, model.StatusNeedsReview, out.State.Status)
	require.NotNil(t, out.State.LastErrorFeedback)
	assert.Contains(t, *out.State.LastErrorFeedback, "timed out")
	require.Len(t, rec.attempts, 1)
	assert.ErrorIs(t, rec.attempts[0].Err, extractor.ErrTimeout)
	assert.Equal(t, stamp, rec.attempts[0].At)
}

func TestResume(t *testing.T) {
	feedback := "total_revenue: claimed 100.00, computed 500.00"
	tests := []struct {
		name         string
		state        model.RetryState
		results      []model.VerificationResult
		wantStatus   model.RetryStatus
		wantRequests int
		wantAttempt  int
	}{
		{
			name:         "retrying state continues with its feedback",
			state:        model.RetryState{Attempt: 1, MaxRetries: 2, LastErrorFeedback: &feedback, Status: model.StatusRetrying},
			results:      []model.VerificationResult{valid},
			wantStatus:   model.StatusAccepted,
			wantRequests: 1,
			wantAttempt:  1,
		},
		{
			name:         "remaining budget is honored",
			state:        model.RetryState{Attempt: 1, MaxRetries: 2, LastErrorFeedback: &feedback, Status: model.StatusRetrying},
			results:      []model.VerificationResult{invalid},
			wantStatus:   model.StatusNeedsReview,
			wantRequests: 2,
			wantAttempt:  2,
		},
		{
			name:         "terminal state is returned unchanged",
			state:        model.RetryState{Attempt: 2, MaxRetries: 2, LastErrorFeedback: &feedback, Status: model.StatusNeedsReview},
			results:      []model.VerificationResult{valid},
			wantStatus:   model.StatusNeedsReview,
			wantRequests: 0,
			wantAttempt:  2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &recordingExtractor{}
			ctrl := NewController(ex, &fixedProcessor{results: tt.results}, 5, zerolog.Nop())
			out, err := ctrl.Resume(context.Background(), "deal-1", tt.state)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, out.State.Status)
			assert.Equal(t, tt.wantAttempt, out.State.Attempt)
			assert.Equal(t, 2, out.State.MaxRetries, "budget comes from the resumed state")
			require.Len(t, ex.requests, tt.wantRequests)
			if tt.wantRequests > 0 {
				assert.Equal(t, 1, ex.requests[0].Attempt)
				require.NotNil(t, ex.requests[0].Feedback)
				assert.Equal(t, feedback, *ex.requests[0].Feedback)
			}
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := &recordingExtractor{}
	out, err := NewController(ex, &fixedProcessor{results: []model.VerificationResult{valid}}, 2, zerolog.Nop()).Run(ctx, "deal-1")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.StatusNeedsReview, out.State.Status)
	assert.Empty(t, ex.requests)
}

func TestRun_WithEngine(t *testing.T) {
	claimed := decimal.RequireFromString("1000.00")
	attempts := 0
	ex := extractor.Func(func(_ context.Context, req extractor.Request) (model.Extraction, error) {
		attempts++
		x := model.Extraction{
			Transactions: []model.RawRecord{
				{Date: "2024-01-02", Description: "DEPOSIT", Amount: "1500.00", SourceAccountID: "chk"},
				{Date: "2024-01-03", Description: "RENT", Amount: "-200.00", SourceAccountID: "chk"},
			},
			Summary: model.ClaimedSummary{TotalRevenue: &claimed},
		}
		if req.Feedback != nil {
			fixed := decimal.RequireFromString("1500.00")
			x.Summary.TotalRevenue = &fixed
		}
		return x, nil
	})

	e := engine.New(config.Default(""), zerolog.Nop())
	out, err := NewController(ex, e, 2, zerolog.Nop()).Run(context.Background(), "deal-7")
	require.NoError(t, err)
	assert.True(t, out.Accepted())
	assert.Equal(t, 2, attempts)
	assert.Len(t, out.Result.Transactions, 2)
}
