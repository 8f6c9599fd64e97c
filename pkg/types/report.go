// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DefaultGoal is the goal used when a request does not state one.
const DefaultGoal = "general"

// AnalysisRequest holds the user's query parameters. They travel with every
// result so the presentation layer can redisplay them.
type AnalysisRequest struct {
	// Supplement is the search term (e.g. "creatine").
	Supplement string `json:"supplement" yaml:"supplement"`

	// Age is the user's age in years.
	Age int `json:"age" yaml:"age"`

	// Goal is the user's stated goal (e.g. "general", "muscle gain").
	Goal string `json:"goal" yaml:"goal"`
}

// ReportSection is one narrative section of a synthesized report.
type ReportSection struct {
	// Heading is the section title. Optional.
	Heading string `json:"heading,omitempty" yaml:"heading,omitempty"`

	// Text is the narrative text of the section.
	Text string `json:"text" yaml:"text"`

	// CitationIDs references studies by ID in the order the synthesizer cited
	// them. As received from the synthesizer it may hold duplicates or unknown
	// IDs; after reconciliation it holds only IDs present in the bibliography.
	CitationIDs CitationIDs `json:"citation_ids" yaml:"citation_ids"`
}

// Report is the raw output of the synthesizer: sections in reading order.
type Report struct {
	Sections []ReportSection `json:"summary" yaml:"summary"`
}

// BibliographyEntry is a cited study with its 1-based citation number.
type BibliographyEntry struct {
	// Index is the citation number shown in the report, assigned in order of
	// first appearance.
	Index int `json:"index" yaml:"index"`

	CuratedStudy `yaml:",inline"`
}

// FinalReport is the reconciled report handed to the presentation layer.
type FinalReport struct {
	// Sections holds the report sections with cleaned citation IDs.
	Sections []ReportSection `json:"sections" yaml:"sections"`

	// Bibliography lists each cited study once, ordered by Index.
	Bibliography []BibliographyEntry `json:"bibliography" yaml:"bibliography"`

	// CitationIndex maps a study ID to its bibliography Index.
	CitationIndex map[string]int `json:"citation_index" yaml:"citation_index"`
}

// Markers returns the citation numbers for a section's citation IDs, in order
// and without repeats. IDs missing from CitationIndex are skipped.
func (r FinalReport) Markers(sec ReportSection) []int {
	seen := make(map[int]bool, len(sec.CitationIDs))
	var markers []int
	for _, id := range sec.CitationIDs {
		idx, ok := r.CitationIndex[id]
		if !ok || seen[idx] {
			continue
		}
		seen[idx] = true
		markers = append(markers, idx)
	}
	return markers
}

// CitationIDs is a list of study IDs decoded leniently from model output. It
// accepts a JSON array of strings and numbers, a single string or number, or
// null. Numbers keep their literal form ("12345", not "12345.0"); elements of
// any other type are skipped.
type CitationIDs []string

// UnmarshalJSON implements json.Unmarshaler.
func (c *CitationIDs) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	var ids CitationIDs
	switch v := raw.(type) {
	case []any:
		for _, elem := range v {
			if s, ok := looseString(elem); ok {
				ids = append(ids, s)
			}
		}
	default:
		if s, ok := looseString(v); ok {
			ids = append(ids, s)
		}
	}
	*c = ids
	return nil
}

// LooseString is a string decoded from either a JSON string or a JSON number.
// Models frequently emit numeric identifiers without quotes.
type LooseString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	v, _ := looseString(raw)
	*s = LooseString(v)
	return nil
}

func looseString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case json.Number:
		return x.String(), true
	default:
		return "", false
	}
}
