// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes a FinalReport in the output formats the CLI offers:
// readable text with numbered citations, JSON, YAML, and a CSL-YAML
// bibliography for reference managers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/supplement-engine/pkg/types"
)

// Format names an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSL  Format = "csl"
)

// Document is the serialized form of an analysis: the request echoed back
// with the reconciled report.
type Document struct {
	Request      types.AnalysisRequest     `json:"request" yaml:"request"`
	Sections     []types.ReportSection     `json:"sections" yaml:"sections"`
	Bibliography []types.BibliographyEntry `json:"bibliography" yaml:"bibliography"`
}

// ParseFormat returns the Format named by s. An empty name is FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML, FormatCSL:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json, yaml or csl)", s)
	}
}

// Write renders r in format f to w.
func Write(f Format, req types.AnalysisRequest, r *types.FinalReport, w io.Writer) error {
	switch f {
	case FormatText, "":
		return WriteText(req, r, w)
	case FormatJSON:
		return WriteJSON(req, r, w)
	case FormatYAML:
		return WriteYAML(req, r, w)
	case FormatCSL:
		return WriteCSL(r, w)
	default:
		return fmt.Errorf("unknown format %q (want text, json, yaml or csl)", f)
	}
}

// WriteText writes the report as Markdown-flavored text. Each section ends
// with its citation markers, and a numbered reference list follows.
func WriteText(req types.AnalysisRequest, r *types.FinalReport, w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\nAge %d, goal: %s\n", req.Supplement, req.Age, req.Goal)

	for _, sec := range r.Sections {
		b.WriteString("\n")
		if sec.Heading != "" {
			fmt.Fprintf(&b, "## %s\n\n", sec.Heading)
		}
		b.WriteString(sec.Text)
		for _, m := range r.Markers(sec) {
			fmt.Fprintf(&b, " [%d]", m)
		}
		b.WriteString("\n")
	}

	if len(r.Bibliography) > 0 {
		b.WriteString("\n## References\n\n")
		for _, e := range r.Bibliography {
			fmt.Fprintf(&b, "[%d] %s\n", e.Index, referenceLine(e))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// referenceLine formats one bibliography entry on a single line.
func referenceLine(e types.BibliographyEntry) string {
	parts := []string{e.Title}
	if len(e.Authors) > 0 {
		parts = append(parts, formatAuthors(e.Authors))
	}
	if e.Journal != "" {
		parts = append(parts, e.Journal)
	}
	if e.Year > 0 {
		parts = append(parts, fmt.Sprint(e.Year))
	}
	meta := string(e.StudyType)
	if e.SampleSize != nil {
		meta += fmt.Sprintf(", n=%d", *e.SampleSize)
	}
	parts = append(parts, meta)
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, ".")
	}
	line := strings.Join(parts, ". ")
	if e.URL != "" {
		line += " " + e.URL
	}
	return line
}

func formatAuthors(authors []string) string {
	if len(authors) > 3 {
		return strings.Join(authors[:3], ", ") + " et al."
	}
	return strings.Join(authors, ", ")
}

func document(req types.AnalysisRequest, r *types.FinalReport) Document {
	return Document{Request: req, Sections: r.Sections, Bibliography: r.Bibliography}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(req types.AnalysisRequest, r *types.FinalReport, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(document(req, r))
}

// WriteYAML writes the report as YAML.
func WriteYAML(req types.AnalysisRequest, r *types.FinalReport, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(document(req, r))
}
