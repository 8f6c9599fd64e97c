// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth implements the synthesis stage: it turns curated studies into
// a sectioned narrative report whose sections cite studies by ID.
// See docs/ARCHITECTURE § Synthesis.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/pdiddy/supplement-engine/internal/llm"
	"github.com/pdiddy/supplement-engine/pkg/types"
)

// ErrEmptyReport reports synthesizer output with no usable sections.
var ErrEmptyReport = errors.New("synthesizer produced no report")

// SynthesisRequest carries the user's query and the curated studies to
// summarize.
type SynthesisRequest struct {
	Supplement string
	Age        int
	Goal       string
	Studies    []types.CuratedStudy
}

// Synthesizer writes a report from curated studies. Citation IDs in the
// returned report are unvalidated; callers reconcile them against Studies.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (types.Report, error)
}

const defaultAbstractLimit = 2500

// synthesisPromptTmpl is the system prompt for LLMSynthesizer. The studies
// are sent as the user message, a JSON array of studyDigest.
var synthesisPromptTmpl = template.Must(template.New("synthesis").Parse(`You are a clinical research writer preparing an evidence summary about the supplement "{{.Supplement}}" for a reader aged {{.Age}} whose goal is "{{.Goal}}".

You will receive a JSON array of curated studies. Each has "id", "title", "study_type", "n" (sample size or null) and "abstract".

Write a balanced, plain-language summary organized in sections such as efficacy, dosage, safety and relevance to the reader's age and goal. Base every statement on the studies provided. Do not give medical advice; note where evidence is weak or conflicting.

Cite studies by their "id" exactly as given. Only cite IDs from the list.

OUTPUT FORMAT:
Return a JSON object with a key "summary" holding a list of sections. Each section must have:
- "heading": (string) a short section title.
- "text": (string) the narrative paragraph.
- "citation_ids": (list of strings) the IDs of the studies supporting the paragraph.

Example:
{"summary": [{"heading": "Efficacy", "text": "Two trials found improved strength in older adults.", "citation_ids": ["123", "456"]}]}
`))

// studyDigest is a curated study as shown to the synthesis model.
type studyDigest struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StudyType string `json:"study_type"`
	N         *int   `json:"n"`
	Abstract  string `json:"abstract"`
}

// LLMSynthesizer writes reports by asking a language model.
type LLMSynthesizer struct {
	Completer   llm.Completer
	Temperature float64

	// AbstractLimit caps each abstract in the prompt, in characters.
	// Zero means 2500.
	AbstractLimit int
}

// Synthesize renders the synthesis prompt, calls the model in JSON mode and
// parses the summary. Sections with no text are dropped; a reply with no
// remaining sections, or one that is not the expected JSON object, yields an
// error wrapping ErrEmptyReport.
func (s *LLMSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (types.Report, error) {
	goal := req.Goal
	if goal == "" {
		goal = types.DefaultGoal
	}
	system, err := renderSynthesisPrompt(req.Supplement, req.Age, goal)
	if err != nil {
		return types.Report{}, fmt.Errorf("rendering prompt: %w", err)
	}

	limit := s.AbstractLimit
	if limit <= 0 {
		limit = defaultAbstractLimit
	}
	digests := make([]studyDigest, len(req.Studies))
	for i, st := range req.Studies {
		digests[i] = studyDigest{
			ID:        st.ID,
			Title:     st.Title,
			StudyType: string(st.StudyType),
			N:         st.SampleSize,
			Abstract:  truncate(st.Abstract, limit),
		}
	}
	user, err := json.Marshal(digests)
	if err != nil {
		return types.Report{}, fmt.Errorf("marshaling studies: %w", err)
	}

	out, err := s.Completer.Complete(ctx, llm.Prompt{
		System:      system,
		User:        string(user),
		JSON:        true,
		Temperature: s.Temperature,
	})
	if err != nil {
		return types.Report{}, fmt.Errorf("calling synthesis model: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("model", s.Completer.Name()).
		Int("input_tokens", out.InputTokens).Int("output_tokens", out.OutputTokens).
		Msg("synthesis usage")

	var report types.Report
	if err := llm.DecodeJSON(out.Text, &report); err != nil {
		return types.Report{}, fmt.Errorf("%w: %v", ErrEmptyReport, err)
	}

	kept := report.Sections[:0]
	for _, sec := range report.Sections {
		sec.Heading = strings.TrimSpace(sec.Heading)
		sec.Text = strings.TrimSpace(sec.Text)
		if sec.Text == "" {
			continue
		}
		kept = append(kept, sec)
	}
	if len(kept) == 0 {
		return types.Report{}, ErrEmptyReport
	}
	return types.Report{Sections: kept}, nil
}

func renderSynthesisPrompt(supplement string, age int, goal string) (string, error) {
	var buf bytes.Buffer
	err := synthesisPromptTmpl.Execute(&buf, struct {
		Supplement string
		Age        int
		Goal       string
	}{supplement, age, goal})
	return buf.String(), err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
