// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package curate implements the curation stage: it asks a Selector to pick
// the most relevant studies from the search results for a user's age and
// goal, and merges the selector's metadata onto the original records.
// See docs/ARCHITECTURE § Curation.
package curate

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pdiddy/supplement-engine/pkg/types"
)

// Defaults for Options.
const (
	DefaultMaxSelections = 7
	DefaultAbstractLimit = 2500
)

// Options configures a Curator. Zero values pick the defaults.
type Options struct {
	// MaxSelections caps the number of curated studies.
	MaxSelections int

	// AbstractLimit is the number of characters of each abstract sent to the
	// selector.
	AbstractLimit int
}

// Curator selects and annotates the best studies from a search result set.
// It is safe for concurrent use when its Selector is.
type Curator struct {
	selector      Selector
	maxSelections int
	abstractLimit int
}

// NewCurator returns a Curator that delegates selection to sel.
func NewCurator(sel Selector, opts Options) *Curator {
	if opts.MaxSelections <= 0 {
		opts.MaxSelections = DefaultMaxSelections
	}
	if opts.AbstractLimit <= 0 {
		opts.AbstractLimit = DefaultAbstractLimit
	}
	return &Curator{selector: sel, maxSelections: opts.MaxSelections, abstractLimit: opts.AbstractLimit}
}

// Select returns up to MaxSelections curated studies from raw, in the order
// the selector ranked them. Every returned study's ID is present in raw, and
// its title, abstract and source metadata are the originals from raw.
//
// Select never fails: an empty raw set, a selector error, or a selection that
// matches no candidate all yield an empty result. The caller treats an empty
// result as "nothing relevant".
func (c *Curator) Select(ctx context.Context, raw []types.StudyRecord, age int, goal string) []types.CuratedStudy {
	if len(raw) == 0 {
		return nil
	}
	if goal == "" {
		goal = types.DefaultGoal
	}
	log := zerolog.Ctx(ctx)

	pool := make(map[string]types.StudyRecord, len(raw))
	candidates := make([]Candidate, 0, len(raw))
	for _, s := range raw {
		if _, dup := pool[s.ID]; dup {
			continue
		}
		pool[s.ID] = s
		candidates = append(candidates, Candidate{
			ID:              s.ID,
			Title:           s.Title,
			AbstractSnippet: truncateRunes(s.Abstract, c.abstractLimit),
		})
	}

	log.Debug().Int("candidates", len(candidates)).Int("age", age).Str("goal", goal).Msg("curating studies")

	selections, err := c.selector.Select(ctx, SelectionRequest{
		Candidates: candidates,
		Age:        age,
		Goal:       goal,
		Limit:      c.maxSelections,
	})
	if err != nil {
		log.Warn().Err(err).Msg("study selection failed")
		return nil
	}

	curated := merge(ctx, pool, selections, c.maxSelections)
	log.Info().Int("candidates", len(candidates)).Int("selected", len(curated)).Msg("curation complete")
	return curated
}

// merge joins selections onto the pool records. Selections naming an ID not
// in the pool, and repeats of an ID already merged, are dropped. The result
// holds at most limit studies.
func merge(ctx context.Context, pool map[string]types.StudyRecord, selections []Selection, limit int) []types.CuratedStudy {
	log := zerolog.Ctx(ctx)
	seen := make(map[string]bool, len(selections))
	var curated []types.CuratedStudy
	for _, sel := range selections {
		if len(curated) == limit {
			break
		}
		orig, ok := pool[sel.ID]
		if !ok {
			log.Debug().Str("id", sel.ID).Msg("dropping selection for unknown study")
			continue
		}
		if seen[sel.ID] {
			log.Debug().Str("id", sel.ID).Msg("dropping repeated selection")
			continue
		}
		seen[sel.ID] = true

		studyType := sel.StudyType
		if studyType == "" {
			studyType = types.StudyOther
		}
		curated = append(curated, types.CuratedStudy{
			StudyRecord: orig,
			StudyType:   studyType,
			SampleSize:  sel.SampleSize,
			Rationale:   sel.Rationale,
		})
	}
	return curated
}

// truncateRunes returns at most n characters of s.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
