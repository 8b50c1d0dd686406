// Package engine runs one reconciliation pass over an extraction:
// normalize, match transfers, detect positions, verify the claimed summary,
// then derive underwriting metrics and recurring-debit patterns.
package engine

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mcarecon/mcarecon/internal/accounts"
	"github.com/mcarecon/mcarecon/internal/analysis"
	"github.com/mcarecon/mcarecon/internal/config"
	"github.com/mcarecon/mcarecon/internal/model"
	"github.com/mcarecon/mcarecon/internal/normalize"
	"github.com/mcarecon/mcarecon/internal/patterns"
	"github.com/mcarecon/mcarecon/internal/positions"
	"github.com/mcarecon/mcarecon/internal/similarity"
	"github.com/mcarecon/mcarecon/internal/transfer"
	"github.com/mcarecon/mcarecon/internal/verify"
)

// Result is the output of one pass.
type Result struct {
	Transactions []model.Transaction // normalized, transfer and lender flags set
	Positions    []model.Position
	Verification model.VerificationResult
	Transfers    transfer.Summary
	Metrics      analysis.Report
	Patterns     patterns.Report
}

// Engine holds the configured pipeline stages. It keeps no state between
// calls and is safe for concurrent use.
type Engine struct {
	normalizer *normalize.Normalizer
	matcher    *transfer.Matcher
	detector   *positions.Detector
	verifier   *verify.Verifier
	patterns   *patterns.Analyzer
	log        zerolog.Logger
}

// New builds an Engine from configuration using the Levenshtein scorer.
func New(cfg *config.Config, log zerolog.Logger) *Engine {
	return NewWithScorer(cfg, similarity.Levenshtein{}, log)
}

// NewWithScorer builds an Engine with a custom related-entity scorer.
func NewWithScorer(cfg *config.Config, scorer similarity.Scorer, log zerolog.Logger) *Engine {
	accts := accounts.NewService(cfg.Accounts())
	return &Engine{
		normalizer: normalize.New(cfg.Normalize.MaxDescriptionLength, log),
		matcher:    transfer.NewMatcher(cfg.Transfers, accts, scorer, log),
		detector:   positions.NewDetector(cfg.Positions, log),
		verifier:   verify.New(cfg.Verification, log),
		patterns:   patterns.New(cfg.Patterns, scorer),
		log:        log,
	}
}

// Process runs one pass. Positions are detected on the transfer-annotated
// set so that internal transfers never form a position.
func (e *Engine) Process(x model.Extraction) Result {
	txns := e.normalizer.Normalize(x.Transactions)
	txns = e.matcher.Match(txns)
	if errs := transfer.Validate(txns); len(errs) > 0 {
		panic(fmt.Sprintf("engine: transfer invariants violated: %v", errs))
	}

	found, txns := e.detector.Detect(txns)
	result := Result{
		Transactions: txns,
		Positions:    found,
		Verification: e.verifier.Verify(x.Summary, txns, found),
		Transfers:    transfer.Summarize(txns),
		Metrics:      analysis.Analyze(txns, found),
		Patterns:     e.patterns.Analyze(txns),
	}

	e.log.Info().
		Int("transactions", len(txns)).
		Int("transfers", result.Transfers.TransferCount).
		Int("positions", len(found)).
		Int("recurring", len(result.Patterns.Recurring)).
		Bool("valid", result.Verification.IsValid).
		Msg("reconciliation pass complete")
	return result
}
