// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cite reconciles the citation IDs a synthesizer emitted against the
// curated studies it was given, numbering the studies actually cited.
// See docs/ARCHITECTURE § Citations.
package cite

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/supplement-engine/pkg/types"
)

// Reconcile returns a FinalReport built from sections and studies.
//
// Sections are walked in order. Each citation ID is trimmed and looked up in
// studies; unknown IDs are dropped. The first time an ID is seen anywhere in
// the report it gets the next citation number, starting at 1, and a
// bibliography entry. Later citations of the same ID reuse that number.
// Repeats within one section are kept.
//
// Reconcile does not modify sections or studies. Running it again on its own
// output sections yields the same report.
func Reconcile(sections []types.ReportSection, studies []types.CuratedStudy) types.FinalReport {
	return ReconcileContext(context.Background(), sections, studies)
}

// ReconcileContext is Reconcile with dropped IDs logged at debug level to the
// logger in ctx.
func ReconcileContext(ctx context.Context, sections []types.ReportSection, studies []types.CuratedStudy) types.FinalReport {
	log := zerolog.Ctx(ctx)

	lookup := make(map[string]types.CuratedStudy, len(studies))
	for _, s := range studies {
		if _, dup := lookup[s.ID]; !dup {
			lookup[s.ID] = s
		}
	}

	final := types.FinalReport{
		Sections:      make([]types.ReportSection, 0, len(sections)),
		Bibliography:  []types.BibliographyEntry{},
		CitationIndex: map[string]int{},
	}
	for _, sec := range sections {
		clean := types.ReportSection{
			Heading:     sec.Heading,
			Text:        sec.Text,
			CitationIDs: make(types.CitationIDs, 0, len(sec.CitationIDs)),
		}
		for _, raw := range sec.CitationIDs {
			id := strings.TrimSpace(raw)
			study, ok := lookup[id]
			if !ok {
				log.Debug().Str("id", raw).Msg("dropping citation of unknown study")
				continue
			}
			if _, cited := final.CitationIndex[id]; !cited {
				idx := len(final.Bibliography) + 1
				final.CitationIndex[id] = idx
				final.Bibliography = append(final.Bibliography, types.BibliographyEntry{Index: idx, CuratedStudy: study})
			}
			clean.CitationIDs = append(clean.CitationIDs, id)
		}
		final.Sections = append(final.Sections, clean)
	}
	return final
}
