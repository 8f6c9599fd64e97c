// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/supplement-engine/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	PMID           string    `yaml:"PMID,omitempty"`
	Note           string    `yaml:"note,omitempty"`
	CitationNumber int       `yaml:"citation-number"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// WriteCSL writes the report's bibliography as a CSL-YAML list to w, in
// citation order.
func WriteCSL(r *types.FinalReport, w io.Writer) error {
	items := make([]CSLItem, len(r.Bibliography))
	for i, e := range r.Bibliography {
		items[i] = toCSLItem(e)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(e types.BibliographyEntry) CSLItem {
	item := CSLItem{
		ID:             e.ID,
		Type:           "article-journal",
		Title:          e.Title,
		ContainerTitle: e.Journal,
		URL:            e.URL,
		CitationNumber: e.Index,
	}

	pubmed := e.Source == "pubmed"
	for _, a := range e.Authors {
		item.Author = append(item.Author, parseAuthorName(a, pubmed))
	}
	if pubmed {
		item.ID = "pmid" + e.ID
		item.PMID = e.ID
	}
	if doi, ok := strings.CutPrefix(e.URL, "https://doi.org/"); ok {
		item.DOI = doi
	}
	if e.Year > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{e.Year}}}
	}

	note := string(e.StudyType)
	if e.SampleSize != nil {
		note += fmt.Sprintf(", n=%d", *e.SampleSize)
	}
	item.Note = note
	return item
}

// parseAuthorName splits a name into CSL family/given parts on the last
// space. PubMed names are "Family Initials" or a collective name; other
// sources give "Given Family". Single-token names and PubMed collective names
// use the literal field.
func parseAuthorName(name string, pubmed bool) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	if pubmed {
		if !isInitials(name[idx+1:]) {
			return CSLName{Literal: name}
		}
		return CSLName{Family: name[:idx], Given: name[idx+1:]}
	}
	return CSLName{Given: name[:idx], Family: name[idx+1:]}
}

func isInitials(s string) bool {
	if s == "" || len(s) > 4 {
		return false
	}
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
