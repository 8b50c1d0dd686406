package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"

	"github.com/mcarecon/mcarecon/internal/model"
)

// waitDelay bounds how long output pipes are drained after the program is
// killed.
const waitDelay = 2 * time.Second

// CommandExtractor runs an external program per attempt. The request is
// written to its stdin as JSON and the extraction is read from its stdout.
type CommandExtractor struct {
	Name string
	Args []string
	Dir  string
	Log  zerolog.Logger
}

// ParseCommand splits a command line with shell quoting rules, so
// `python x.py --prompt 'two words'` passes "two words" as one argument.
func ParseCommand(line string, log zerolog.Logger) (*CommandExtractor, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parsing extraction command: %w", err)
	}
	if len(fields) == 0 {
		return nil, errors.New("empty extraction command")
	}
	return &CommandExtractor{Name: fields[0], Args: fields[1:], Log: log}, nil
}

// Extract implements Extractor. Cancelling ctx kills the program.
func (c *CommandExtractor) Extract(ctx context.Context, req Request) (model.Extraction, error) {
	input, err := json.Marshal(req)
	if err != nil {
		return model.Extraction{}, fmt.Errorf("encoding request: %w", err)
	}

	c.Log.Debug().Str("cmd", c.Name).Str("deal", req.DealID).Int("attempt", req.Attempt).Msg("running extraction command")
	stdout, err := runProgram(ctx, c.Dir, c.Name, c.Args, input)
	if err != nil {
		return model.Extraction{}, err
	}

	x, err := Decode(stdout)
	if err != nil {
		return model.Extraction{}, fmt.Errorf("reading %s output: %w", c.Name, err)
	}
	return x, nil
}

// runProgram runs name with stdin and returns its stdout. Failures carry
// the program's stderr; a cancelled ctx is returned as ctx.Err().
func runProgram(ctx context.Context, dir, name string, args []string, stdin []byte) (*bytes.Buffer, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("running %s: %w", name, err)
		}
		return nil, fmt.Errorf("running %s: %w: %s", name, err, msg)
	}
	return &stdout, nil
}
