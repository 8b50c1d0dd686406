package retry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mcarecon/mcarecon/internal/engine"
	"github.com/mcarecon/mcarecon/internal/extractor"
	"github.com/mcarecon/mcarecon/internal/model"
	"github.com/mcarecon/mcarecon/internal/verify"
)

// Processor runs one reconciliation pass. *engine.Engine implements it.
type Processor interface {
	Process(x model.Extraction) engine.Result
}

// Attempt describes one extraction attempt and its outcome.
type Attempt struct {
	RunID        string
	DealID       string
	Number       int // 0-based
	At           time.Time
	Status       model.RetryStatus // state after the attempt
	Verification model.VerificationResult
	Feedback     string // correction text produced by this attempt
	Err          error  // extraction failure, if any
}

// Recorder receives every attempt, e.g. to persist an audit trail.
type Recorder interface {
	Record(a Attempt) error
}

// Outcome is the terminal result of Run.
type Outcome struct {
	RunID    string
	State    model.RetryState
	Result   engine.Result // last successful pass
	Attempts []Attempt
}

// Accepted reports whether the extraction passed verification.
func (o Outcome) Accepted() bool {
	return o.State.Status == model.StatusAccepted
}

// Controller runs the retry loop for one deal at a time. It holds no
// per-deal state, so separate deals may run concurrently.
type Controller struct {
	extractor  extractor.Extractor
	processor  Processor
	maxRetries int
	recorder   Recorder
	log        zerolog.Logger
	now        func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder sends every attempt to r.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithClock overrides the attempt timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController builds a Controller. A negative maxRetries uses the default.
func NewController(ex extractor.Extractor, proc Processor, maxRetries int, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		extractor:  ex,
		processor:  proc,
		maxRetries: maxRetries,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run extracts and verifies until the deal is Accepted or NeedsReview.
// Extraction failures end in NeedsReview with a nil error; only
// cancellation of ctx is returned as an error, alongside the outcome.
func (c *Controller) Run(ctx context.Context, dealID string) (Outcome, error) {
	return c.Resume(ctx, dealID, model.NewRetryState(c.maxRetries))
}

// Resume continues the loop from a caller-owned state, e.g. one persisted
// after an interrupted run. A terminal state is returned without extracting.
func (c *Controller) Resume(ctx context.Context, dealID string, state model.RetryState) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString(), State: state}
	log := c.log.With().Str("run", out.RunID).Str("deal", dealID).Logger()

	for !state.Terminal() {
		state = Begin(state)
		att := Attempt{RunID: out.RunID, DealID: dealID, Number: state.Attempt}

		if err := ctx.Err(); err != nil {
			c.fail(&out, att, state, err, log)
			return out, err
		}

		x, err := c.extractor.Extract(ctx, extractor.Request{
			DealID:   dealID,
			Attempt:  state.Attempt,
			Feedback: state.LastErrorFeedback,
		})
		if err != nil {
			c.fail(&out, att, state, err, log)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			return out, nil
		}

		result := c.processor.Process(x)
		state = Next(state, result.Verification)
		out.Result = result

		att.At = c.now()
		att.Status = state.Status
		att.Verification = result.Verification
		att.Feedback = verify.FormatFeedback(result.Verification)
		c.record(&out, att, log)

		log.Info().
			Int("attempt", att.Number).
			Str("status", string(state.Status)).
			Int("discrepancies", len(result.Verification.Discrepancies)).
			Float64("confidence", result.Verification.ConfidenceScore).
			Msg("extraction attempt verified")
	}

	out.State = state
	return out, nil
}

// fail moves state to NeedsReview and stores it on out.
func (c *Controller) fail(out *Outcome, att Attempt, state model.RetryState, err error, log zerolog.Logger) {
	state = Fail(state, err)
	att.At = c.now()
	att.Status = state.Status
	att.Err = err
	att.Feedback = *state.LastErrorFeedback
	c.record(out, att, log)
	out.State = state
	log.Warn().Err(err).Int("attempt", att.Number).Msg("extraction failed, needs review")
}

func (c *Controller) record(out *Outcome, att Attempt, log zerolog.Logger) {
	out.Attempts = append(out.Attempts, att)
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(att); err != nil {
		log.Warn().Err(err).Msg("recording attempt")
	}
}
