// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one analysis request through the stages in order:
// search, curation, synthesis and citation reconciliation. Each stage failure
// maps to one sentinel error carrying the message shown to the user.
// See docs/ARCHITECTURE § Pipeline.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/supplement-engine/internal/cite"
	"github.com/pdiddy/supplement-engine/internal/synth"
	"github.com/pdiddy/supplement-engine/pkg/types"
)

// Stage failures. Run returns an error wrapping exactly one of these, checked
// in stage order.
var (
	ErrSourceEmpty      = errors.New("no studies found")
	ErrCurationEmpty    = errors.New("no relevant studies after curation")
	ErrSynthesisFailure = errors.New("summary generation failed")
)

// userMessages is the text shown to users for each stage failure.
var userMessages = []struct {
	err error
	msg string
}{
	{ErrSourceEmpty, "No studies found."},
	{ErrCurationEmpty, "No relevant studies found after curation."},
	{ErrSynthesisFailure, "Failed to generate summary."},
}

// DefaultMaxResults is the number of search results fetched per request.
const DefaultMaxResults = 20

// Source finds candidate studies for a search term.
type Source interface {
	Search(ctx context.Context, term string, maxResults int) ([]types.StudyRecord, error)
}

// Curator picks the most relevant studies. An empty result means nothing
// relevant was found.
type Curator interface {
	Select(ctx context.Context, raw []types.StudyRecord, age int, goal string) []types.CuratedStudy
}

// Pipeline wires the stages together. It holds no per-request state and is
// safe for concurrent use when its stages are.
type Pipeline struct {
	source      Source
	curator     Curator
	synthesizer synth.Synthesizer
	maxResults  int
}

// New returns a Pipeline. maxResults <= 0 uses DefaultMaxResults.
func New(src Source, cur Curator, syn synth.Synthesizer, maxResults int) *Pipeline {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Pipeline{source: src, curator: cur, synthesizer: syn, maxResults: maxResults}
}

// Run executes the analysis for req. On success the report has at least one
// section. On failure the error wraps ErrSourceEmpty, ErrCurationEmpty or
// ErrSynthesisFailure, or is the context's error when ctx ended first.
func (p *Pipeline) Run(ctx context.Context, req types.AnalysisRequest) (*types.FinalReport, error) {
	req.Supplement = strings.TrimSpace(req.Supplement)
	if strings.TrimSpace(req.Goal) == "" {
		req.Goal = types.DefaultGoal
	}
	log := zerolog.Ctx(ctx).With().Str("supplement", req.Supplement).Int("age", req.Age).Str("goal", req.Goal).Logger()
	ctx = log.WithContext(ctx)
	start := time.Now()

	raw, err := p.source.Search(ctx, req.Supplement, p.maxResults)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Info().Err(err).Msg("search returned no studies")
		return nil, fmt.Errorf("%w: %w", ErrSourceEmpty, err)
	}
	if len(raw) == 0 {
		return nil, ErrSourceEmpty
	}
	log.Info().Int("studies", len(raw)).Msg("search complete")

	curated := p.curator.Select(ctx, raw, req.Age, req.Goal)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(curated) == 0 {
		return nil, ErrCurationEmpty
	}

	report, err := p.synthesizer.Synthesize(ctx, synth.SynthesisRequest{
		Supplement: req.Supplement,
		Age:        req.Age,
		Goal:       req.Goal,
		Studies:    curated,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Msg("synthesis failed")
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailure, err)
	}
	if len(report.Sections) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailure, synth.ErrEmptyReport)
	}

	final := cite.ReconcileContext(ctx, report.Sections, curated)
	log.Info().Int("sections", len(final.Sections)).Int("cited", len(final.Bibliography)).
		Dur("elapsed", time.Since(start)).Msg("analysis complete")
	return &final, nil
}

// UserMessage returns the text shown to a user for an error from Run.
func UserMessage(err error) string {
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The analysis took too long. Please try again."
	}
	return "Something went wrong. Please try again."
}
