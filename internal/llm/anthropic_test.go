// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withClaudeServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() {
		claudeAPIURL = old
		ts.Close()
	})
	return ts
}

func TestAnthropicComplete(t *testing.T) {
	var got claudeRequest
	ts := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"content":[{"type":"text","text":"{\"summary\":"},{"type":"text","text":"[]}"}],"usage":{"input_tokens":30,"output_tokens":5}}`)
	})

	c := &Anthropic{APIKey: "test-key", Model: "claude-test", Client: ts.Client()}
	out, err := c.Complete(context.Background(), Prompt{System: "be brief", User: "hello", JSON: true})
	require.NoError(t, err)

	assert.Equal(t, `{"summary":[]}`, out.Text)
	assert.Equal(t, 30, out.InputTokens)
	assert.Equal(t, 5, out.OutputTokens)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	assert.Contains(t, got.System, "be brief")
	assert.Contains(t, got.System, "JSON object")
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestAnthropicCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusInternalServerError, `internal`, "Claude API returned 500"},
		{"empty content", http.StatusOK, `{"content":[]}`, "no text"},
		{"non-text blocks", http.StatusOK, `{"content":[{"type":"tool_use"}]}`, "no text"},
		{"bad json", http.StatusOK, `not json`, "decoding Claude response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := withClaudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			_, err := (&Anthropic{APIKey: "k", Client: ts.Client()}).Complete(context.Background(), Prompt{User: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
