// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package curate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/pdiddy/supplement-engine/internal/llm"
	"github.com/pdiddy/supplement-engine/pkg/types"
)

// Candidate is a study as shown to the selector.
type Candidate struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	AbstractSnippet string `json:"abstract_snippet"`
}

// SelectionRequest asks a Selector to choose up to Limit studies from
// Candidates for a user of the given age and goal.
type SelectionRequest struct {
	Candidates []Candidate
	Age        int
	Goal       string
	Limit      int
}

// Selection is one study chosen by a Selector, with the metadata it
// extracted. ID may not match any candidate; the Curator checks.
type Selection struct {
	ID         string
	StudyType  types.StudyType
	SampleSize *int
	Rationale  string
}

// Selector chooses the most relevant studies from a candidate pool. A non-nil
// error means no usable selection was produced.
type Selector interface {
	Select(ctx context.Context, req SelectionRequest) ([]Selection, error)
}

// selectorPromptTmpl is the system prompt for LLMSelector. The candidate pool
// is sent as the user message, a JSON array of Candidate.
var selectorPromptTmpl = template.Must(template.New("selector").Parse(`You are a senior medical research curator.
Your task: select the top {{.Limit}} most relevant clinical studies for a user aged {{.Age}} interested in "{{.Goal}}".

CANDIDATE POOL: {{.Count}} search results, given as a JSON array of objects with "id", "title" and "abstract_snippet".

SELECTION GUIDELINES:
1. Strict relevance: discard studies that are not about the target supplement.
2. Age priority: prefer studies whose participants match age {{.Age}}.
3. Diversity: choose a mix of efficacy, safety and mechanism studies.
4. Quality: prefer meta-analyses and randomized controlled trials.

OUTPUT FORMAT:
Return a JSON object with a key "selected_studies" holding a list of objects.
Each object must have:
- "id": (string) the study ID, copied exactly from the candidate pool.
- "study_type": (string) one of "RCT", "Meta-Analysis", "Review", "Observational", "Other".
- "n": (integer or null) the sample size.
- "reason": (string) a short reason for selecting the study.

Example:
{"selected_studies": [{"id": "123", "study_type": "RCT", "n": 45, "reason": "Direct age match"}]}
`))

// LLMSelector selects studies by asking a language model.
type LLMSelector struct {
	Completer   llm.Completer
	Temperature float64
}

// selectionResponse is the JSON object the model is asked to return.
type selectionResponse struct {
	SelectedStudies []selectionItem `json:"selected_studies"`
}

type selectionItem struct {
	ID        types.LooseString `json:"id"`
	StudyType string            `json:"study_type"`
	N         json.RawMessage   `json:"n"`
	Reason    string            `json:"reason"`
}

// Select renders the curator prompt, calls the model in JSON mode, and
// parses the selected_studies list. A reply that is not a JSON object is an
// error; a JSON object without selected_studies is an empty selection.
func (s *LLMSelector) Select(ctx context.Context, req SelectionRequest) ([]Selection, error) {
	system, err := renderSelectorPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}
	user, err := json.Marshal(req.Candidates)
	if err != nil {
		return nil, fmt.Errorf("marshaling candidates: %w", err)
	}

	out, err := s.Completer.Complete(ctx, llm.Prompt{
		System:      system,
		User:        string(user),
		JSON:        true,
		Temperature: s.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("calling selector model: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("model", s.Completer.Name()).
		Int("input_tokens", out.InputTokens).Int("output_tokens", out.OutputTokens).
		Msg("selector usage")

	var resp selectionResponse
	if err := llm.DecodeJSON(out.Text, &resp); err != nil {
		return nil, err
	}

	selections := make([]Selection, 0, len(resp.SelectedStudies))
	for _, item := range resp.SelectedStudies {
		id := string(item.ID)
		if id == "" {
			continue
		}
		selections = append(selections, Selection{
			ID:         id,
			StudyType:  types.ParseStudyType(item.StudyType),
			SampleSize: parseSampleSize(item.N),
			Rationale:  strings.TrimSpace(item.Reason),
		})
	}
	return selections, nil
}

func renderSelectorPrompt(req SelectionRequest) (string, error) {
	var buf bytes.Buffer
	err := selectorPromptTmpl.Execute(&buf, struct {
		Limit int
		Age   int
		Goal  string
		Count int
	}{req.Limit, req.Age, req.Goal, len(req.Candidates)})
	return buf.String(), err
}

// parseSampleSize reads the model's "n" value. Integers, integral floats and
// numeric strings are accepted; anything negative, fractional or non-numeric
// is unknown (nil).
func parseSampleSize(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil
	}

	var text string
	switch x := v.(type) {
	case json.Number:
		text = x.String()
	case string:
		text = strings.ReplaceAll(strings.TrimSpace(x), ",", "")
	default:
		return nil
	}

	if n, err := strconv.Atoi(text); err == nil {
		if n < 0 {
			return nil
		}
		return &n
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}
