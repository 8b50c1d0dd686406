package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcarecon/mcarecon/internal/model"
)

// Default polling bounds for asynchronous extraction tasks.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxWait      = 1800 * time.Second
)

// ErrTimeout is returned when a task does not finish within MaxWait.
var ErrTimeout = errors.New("extraction task timed out")

// TaskStatus is the state of a remote extraction task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// TaskResult is one poll response.
type TaskResult struct {
	Status     TaskStatus       `json:"status"`
	Extraction model.Extraction `json:"extraction"`      // set when Status is TaskDone
	Error      string           `json:"error,omitempty"` // set when Status is TaskFailed
}

// TaskClient talks to an asynchronous extraction service.
type TaskClient interface {
	Submit(ctx context.Context, req Request) (taskID string, err error)
	Poll(ctx context.Context, taskID string) (TaskResult, error)
}

// AsyncExtractor submits a task and polls until it finishes, fails, times
// out or ctx is cancelled.
type AsyncExtractor struct {
	Client       TaskClient
	PollInterval time.Duration
	MaxWait      time.Duration
	Log          zerolog.Logger
}

// NewAsyncExtractor returns an AsyncExtractor; non-positive durations take
// the defaults.
func NewAsyncExtractor(client TaskClient, pollInterval, maxWait time.Duration, log zerolog.Logger) *AsyncExtractor {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &AsyncExtractor{Client: client, PollInterval: pollInterval, MaxWait: maxWait, Log: log}
}

// Extract implements Extractor.
func (a *AsyncExtractor) Extract(ctx context.Context, req Request) (model.Extraction, error) {
	taskID, err := a.Client.Submit(ctx, req)
	if err != nil {
		return model.Extraction{}, fmt.Errorf("submitting extraction task: %w", err)
	}
	log := a.Log.With().Str("task", taskID).Str("deal", req.DealID).Logger()
	log.Debug().Msg("extraction task submitted")

	deadline := time.NewTimer(a.MaxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(a.PollInterval)
	defer ticker.Stop()

	for polls := 1; ; polls++ {
		select {
		case <-ctx.Done():
			return model.Extraction{}, ctx.Err()
		case <-deadline.C:
			return model.Extraction{}, fmt.Errorf("task %s after %s: %w", taskID, a.MaxWait, ErrTimeout)
		case <-ticker.C:
		}

		res, err := a.Client.Poll(ctx, taskID)
		if err != nil {
			return model.Extraction{}, fmt.Errorf("polling task %s: %w", taskID, err)
		}
		switch res.Status {
		case TaskDone:
			log.Debug().Int("polls", polls).Msg("extraction task done")
			return res.Extraction, nil
		case TaskFailed:
			return model.Extraction{}, fmt.Errorf("task %s failed: %s", taskID, res.Error)
		}
	}
}
