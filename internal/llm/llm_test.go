// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/supplement-engine/pkg/types"
)

// fakeCompleter returns queued results in order and counts calls.
type fakeCompleter struct {
	mu      sync.Mutex
	results []fakeResult
	calls   int
}

type fakeResult struct {
	text string
	err  error
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, _ Prompt) (Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.results[f.calls]
	f.calls++
	if r.err != nil {
		return Completion{}, r.err
	}
	return Completion{Text: r.text}, nil
}

func fastBackoff(t *testing.T) {
	t.Helper()
	old := backoffBase
	backoffBase = time.Millisecond
	t.Cleanup(func() { backoffBase = old })
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	fastBackoff(t)
	f := &fakeCompleter{results: []fakeResult{
		{err: errors.New("overloaded")},
		{err: errors.New("overloaded")},
		{text: "ok"},
	}}

	c, err := WithRetry(f, 3).Complete(context.Background(), Prompt{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", c.Text)
	assert.Equal(t, 3, f.calls)
}

func TestWithRetryGivesUp(t *testing.T) {
	fastBackoff(t)
	f := &fakeCompleter{results: []fakeResult{
		{err: errors.New("e1")},
		{err: errors.New("e2")},
		{err: errors.New("e3")},
	}}

	_, err := WithRetry(f, 2).Complete(context.Background(), Prompt{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Contains(t, err.Error(), "e3")
	assert.Equal(t, 3, f.calls)
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	fastBackoff(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeCompleter{results: []fakeResult{{err: errors.New("e1")}, {text: "late"}}}

	_, err := WithRetry(f, 3).Complete(ctx, Prompt{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.calls)
}

func TestWithRetryName(t *testing.T) {
	assert.Equal(t, "fake", WithRetry(&fakeCompleter{}, 0).Name())
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    map[string]any
		wantErr bool
	}{
		{"plain", `{"a": 1}`, map[string]any{"a": float64(1)}, false},
		{"fenced", "```json\n{\"a\": \"x\"}\n```", map[string]any{"a": "x"}, false},
		{"prose around", "Here you go: {\"a\": true} Thanks!", map[string]any{"a": true}, false},
		{"no object", "sorry, I cannot help", nil, true},
		{"broken", `{"a": }`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			err := DecodeJSON(tt.in, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      types.AIConfig
		wantName string
		wantErr  string
	}{
		{"default provider", types.AIConfig{APIKey: "k"}, "openai/gpt-4o-mini", ""},
		{"openai model", types.AIConfig{Provider: types.ProviderOpenAI, APIKey: "k", Model: "gpt-4o"}, "openai/gpt-4o", ""},
		{"anthropic", types.AIConfig{Provider: types.ProviderAnthropic, APIKey: "k"}, "anthropic/" + defaultClaudeModel, ""},
		{"gemini", types.AIConfig{Provider: types.ProviderGemini, APIKey: "k"}, "gemini/" + defaultGeminiModel, ""},
		{"missing key", types.AIConfig{Provider: types.ProviderAnthropic}, "", "anthropic: API key is required"},
		{"unknown provider", types.AIConfig{Provider: "mistral", APIKey: "k"}, "", "unknown AI provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, c.Name())
		})
	}
}
