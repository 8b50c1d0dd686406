package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"
)

// CommandTaskClient is a TaskClient backed by two programs. The submit
// program reads the Request as JSON on stdin and prints a task id. The poll
// program is run with the task id appended to its arguments and prints a
// TaskResult as JSON.
type CommandTaskClient struct {
	SubmitArgv []string
	PollArgv   []string
	Dir        string
	Log        zerolog.Logger
}

// NewCommandTaskClient parses the submit and poll command lines with shell
// quoting rules.
func NewCommandTaskClient(submitLine, pollLine string, log zerolog.Logger) (*CommandTaskClient, error) {
	submit, err := shellquote.Split(submitLine)
	if err != nil {
		return nil, fmt.Errorf("parsing submit command: %w", err)
	}
	poll, err := shellquote.Split(pollLine)
	if err != nil {
		return nil, fmt.Errorf("parsing poll command: %w", err)
	}
	if len(submit) == 0 || len(poll) == 0 {
		return nil, errors.New("submit and poll commands are both required")
	}
	return &CommandTaskClient{SubmitArgv: submit, PollArgv: poll, Log: log}, nil
}

// Submit implements TaskClient.
func (c *CommandTaskClient) Submit(ctx context.Context, req Request) (string, error) {
	input, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}
	out, err := runProgram(ctx, c.Dir, c.SubmitArgv[0], c.SubmitArgv[1:], input)
	if err != nil {
		return "", err
	}
	taskID := strings.TrimSpace(out.String())
	if taskID == "" {
		return "", fmt.Errorf("%s printed no task id", c.SubmitArgv[0])
	}
	return taskID, nil
}

// Poll implements TaskClient.
func (c *CommandTaskClient) Poll(ctx context.Context, taskID string) (TaskResult, error) {
	args := append(append([]string(nil), c.PollArgv[1:]...), taskID)
	out, err := runProgram(ctx, c.Dir, c.PollArgv[0], args, nil)
	if err != nil {
		return TaskResult{}, err
	}

	var res TaskResult
	if err := json.NewDecoder(out).Decode(&res); err != nil {
		return TaskResult{}, fmt.Errorf("decoding poll result: %w", err)
	}
	switch res.Status {
	case TaskPending, TaskRunning, TaskDone, TaskFailed:
	default:
		return TaskResult{}, fmt.Errorf("unknown task status %q", res.Status)
	}
	c.Log.Debug().Str("task", taskID).Str("status", string(res.Status)).Msg("polled extraction task")
	return res, nil
}
