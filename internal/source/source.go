// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source fetches candidate studies for a supplement from literature
// search APIs. Each API is a Source; Chain falls back across several.
// See docs/ARCHITECTURE § StudySource.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/supplement-engine/pkg/types"
)

// ErrNoneFound reports that a search completed but matched no studies. It is
// distinct from an empty result after curation.
var ErrNoneFound = errors.New("no studies found")

const defaultMaxResults = 20

// Source searches a single literature API. Implementations return
// ErrNoneFound (possibly wrapped) when the query matches nothing.
type Source interface {
	Name() string
	Search(ctx context.Context, term string, maxResults int) ([]types.StudyRecord, error)
}

// New builds the Source selected by cfg.Backend. An empty backend selects
// PubMed.
func New(cfg types.SourceConfig, client *http.Client) (Source, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	switch cfg.Backend {
	case types.BackendPubMed, "":
		return NewPubMed(client, cfg), nil
	case types.BackendOpenAlex:
		return NewOpenAlex(client, cfg), nil
	case types.BackendSemanticScholar:
		return NewSemanticScholar(client, cfg), nil
	case types.BackendChain:
		return Chain{NewPubMed(client, cfg), NewOpenAlex(client, cfg), NewSemanticScholar(client, cfg)}, nil
	default:
		return nil, fmt.Errorf("unknown source backend %q", cfg.Backend)
	}
}

// Chain queries its sources in order and returns the first non-empty result.
// A source that fails or finds nothing is logged and skipped.
type Chain []Source

// Name returns the backend identifier.
func (c Chain) Name() string { return "chain" }

// Search tries each source in turn. It returns ErrNoneFound when every source
// found nothing, or the joined errors when at least one source failed and none
// succeeded.
func (c Chain) Search(ctx context.Context, term string, maxResults int) ([]types.StudyRecord, error) {
	logger := zerolog.Ctx(ctx)

	var errs []error
	for _, s := range c {
		studies, err := s.Search(ctx, term, maxResults)
		if err == nil && len(studies) > 0 {
			return studies, nil
		}
		if err != nil && !errors.Is(err, ErrNoneFound) {
			logger.Warn().Err(err).Str("backend", s.Name()).Msg("study source failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		logger.Info().Str("backend", s.Name()).Str("term", term).Msg("no studies found, trying next source")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, ErrNoneFound
}

// newLimiter returns a limiter allowing rps requests per second, or the
// fallback rate when rps is not positive.
func newLimiter(rps, fallback float64) *rate.Limiter {
	if rps <= 0 {
		rps = fallback
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func capResults(maxResults int) int {
	if maxResults <= 0 {
		return defaultMaxResults
	}
	return maxResults
}
