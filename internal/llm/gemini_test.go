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

func TestGeminiComplete(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"selected_studies\":[]}"}]}}],"usageMetadata":{"promptTokenCount":9,"candidatesTokenCount":3}}`)
	}))
	defer ts.Close()
	old := geminiBaseURL
	geminiBaseURL = ts.URL + "/"
	defer func() { geminiBaseURL = old }()

	g, err := NewGemini(context.Background(), "g-key", "gemini-test", ts.Client())
	require.NoError(t, err)
	out, err := g.Complete(context.Background(), Prompt{System: "sys", User: "usr", JSON: true, Temperature: 0.1})
	require.NoError(t, err)

	assert.Equal(t, `{"selected_studies":[]}`, out.Text)
	assert.Equal(t, 9, out.InputTokens)
	assert.Equal(t, 3, out.OutputTokens)

	genCfg, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "request carries generationConfig")
	assert.Equal(t, "application/json", genCfg["responseMimeType"])
	assert.Contains(t, body, "systemInstruction")
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "", nil)
	assert.Error(t, err)
}
