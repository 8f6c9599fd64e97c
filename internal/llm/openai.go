// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/supplement-engine/internal/httputil"
)

// openAIAPIURL is the OpenAI chat completions endpoint. Package-level var for
// test substitution.
var openAIAPIURL = "https://api.openai.com/v1/chat/completions"

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI calls the OpenAI chat completions API.
type OpenAI struct {
	APIKey string
	Model  string
	Client *http.Client
}

type openAIRequest struct {
	Model          string              `json:"model"`
	Messages       []openAIMessage     `json:"messages"`
	Temperature    float64             `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseType `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseType struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Name returns the model identifier for logging.
func (c *OpenAI) Name() string { return "openai/" + c.model() }

func (c *OpenAI) model() string {
	if c.Model == "" {
		return defaultOpenAIModel
	}
	return c.Model
}

// Complete sends the prompt as a system and a user message. When p.JSON is
// set the request uses JSON object mode.
func (c *OpenAI) Complete(ctx context.Context, p Prompt) (Completion, error) {
	reqBody := openAIRequest{
		Model:       c.model(),
		Temperature: p.Temperature,
		MaxTokens:   maxTokens(p),
	}
	if p.System != "" {
		reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: "system", Content: p.System})
	}
	reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: "user", Content: p.User})
	if p.JSON {
		reqBody.ResponseFormat = &openAIResponseType{Type: "json_object"}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Completion{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return Completion{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 2)
	if err != nil {
		return Completion{}, fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Completion{}, fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, string(body))
	}

	var oResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return Completion{}, fmt.Errorf("decoding OpenAI response: %w", err)
	}
	if oResp.Error != nil {
		return Completion{}, fmt.Errorf("OpenAI API error: %s", oResp.Error.Message)
	}
	if len(oResp.Choices) == 0 {
		return Completion{}, ErrEmptyCompletion
	}

	text := strings.TrimSpace(oResp.Choices[0].Message.Content)
	if text == "" {
		return Completion{}, ErrEmptyCompletion
	}
	return Completion{
		Text:         text,
		InputTokens:  oResp.Usage.PromptTokens,
		OutputTokens: oResp.Usage.CompletionTokens,
	}, nil
}
