// Package extractor holds the collaborators that produce raw extractions
// for a deal: a static file, an external command, or an asynchronous
// submit-and-poll task service.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mcarecon/mcarecon/internal/model"
)

// Request asks for one extraction attempt. Feedback is nil on the first
// attempt and carries correction text on retries.
type Request struct {
	DealID   string  `json:"deal_id"`
	Attempt  int     `json:"attempt"`
	Feedback *string `json:"feedback,omitempty"`
}

// Extractor produces an extraction for a request.
type Extractor interface {
	Extract(ctx context.Context, req Request) (model.Extraction, error)
}

// Func adapts a function to Extractor.
type Func func(ctx context.Context, req Request) (model.Extraction, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, req Request) (model.Extraction, error) {
	return f(ctx, req)
}

// Decode reads a JSON extraction.
func Decode(r io.Reader) (model.Extraction, error) {
	var x model.Extraction
	dec := json.NewDecoder(r)
	if err := dec.Decode(&x); err != nil {
		return model.Extraction{}, fmt.Errorf("decoding extraction: %w", err)
	}
	return x, nil
}

// FileExtractor serves the same extraction from a JSON file on every
// attempt. Feedback is ignored.
type FileExtractor struct {
	Path string
}

// Extract implements Extractor.
func (f FileExtractor) Extract(ctx context.Context, _ Request) (model.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return model.Extraction{}, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return model.Extraction{}, fmt.Errorf("opening extraction: %w", err)
	}
	defer file.Close()
	return Decode(file)
}
