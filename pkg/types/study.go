// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the supplement-engine pipeline.
// Implements: StudyRecord and CuratedStudy (curation input and output),
//
//	ReportSection, Report, BibliographyEntry, FinalReport (synthesis and citations),
//	AnalysisRequest, and the stage configurations.
//
// See docs/ARCHITECTURE.md § Pipeline, § Data Structures.
package types

import (
	"strings"
	"unicode"
)

// StudyRecord is a candidate study returned by a literature search backend.
// Records are immutable once fetched and live only for one request.
type StudyRecord struct {
	// ID is the source-assigned identifier (PubMed PMID, OpenAlex work ID).
	ID string `json:"id" yaml:"id"`

	// Title is the study title. Never empty for records a backend returns.
	Title string `json:"title" yaml:"title"`

	// Abstract is the full abstract text. May be empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Journal is the venue the study was published in.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// URL links to the study's landing page.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Source names the backend that found the record (e.g. "pubmed", "openalex").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// StudyType classifies a study's design as judged by the curator.
type StudyType string

const (
	StudyRCT           StudyType = "RCT"
	StudyMetaAnalysis  StudyType = "Meta-Analysis"
	StudyReview        StudyType = "Review"
	StudyObservational StudyType = "Observational"
	StudyOther         StudyType = "Other"
)

// studyTypeAliases maps normalized model labels to a StudyType. Keys are
// lowercase with everything but letters removed.
var studyTypeAliases = map[string]StudyType{
	"rct":                             StudyRCT,
	"randomizedcontrolledtrial":       StudyRCT,
	"randomisedcontrolledtrial":       StudyRCT,
	"randomizedtrial":                 StudyRCT,
	"clinicaltrial":                   StudyRCT,
	"metaanalysis":                    StudyMetaAnalysis,
	"systematicreviewmetaanalysis":    StudyMetaAnalysis,
	"systematicreviewandmetaanalysis": StudyMetaAnalysis,
	"review":                          StudyReview,
	"systematicreview":                StudyReview,
	"narrativereview":                 StudyReview,
	"observational":                   StudyObservational,
	"observationalstudy":              StudyObservational,
	"cohort":                          StudyObservational,
	"cohortstudy":                     StudyObservational,
	"casecontrol":                     StudyObservational,
	"crosssectional":                  StudyObservational,
	"other":                           StudyOther,
}

// ParseStudyType maps a free-form label such as "Meta-Analysis", "meta analysis"
// or "randomized controlled trial" to a StudyType. Unrecognized labels map to
// StudyOther.
func ParseStudyType(label string) StudyType {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	if t, ok := studyTypeAliases[b.String()]; ok {
		return t
	}
	return StudyOther
}

// CuratedStudy is a StudyRecord selected by the curator, annotated with the
// curator's metadata. Its ID always exists in the search result set it was
// selected from.
type CuratedStudy struct {
	StudyRecord `yaml:",inline"`

	// StudyType is the curator's classification of the study design.
	StudyType StudyType `json:"study_type" yaml:"study_type"`

	// SampleSize is the number of participants, nil when unknown.
	SampleSize *int `json:"sample_size" yaml:"sample_size"`

	// Rationale is the curator's short reason for selecting the study.
	Rationale string `json:"rationale" yaml:"rationale"`
}
