// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm sends prompts to Generative AI APIs and returns the raw reply.
// Each API is a Completer; the curation and synthesis stages own their
// prompts and parse the replies.
// See docs/ARCHITECTURE § Model Access.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/supplement-engine/pkg/types"
)

// ErrEmptyCompletion reports a reply with no text content.
var ErrEmptyCompletion = errors.New("model returned no text")

const defaultMaxTokens = 4096

// Prompt is a single system+user exchange.
type Prompt struct {
	System string
	User   string

	// JSON asks the API for a JSON object reply where it supports that.
	JSON bool

	Temperature float64
	MaxTokens   int
}

// Completion is a model reply with its token usage.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Completer sends one prompt to a model and returns its reply. Implementations
// are safe for concurrent use.
type Completer interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (Completion, error)
}

// New builds the Completer for cfg.Provider wrapped with retries. An empty
// provider selects OpenAI.
func New(cfg types.AIConfig, client *http.Client) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", providerOrDefault(cfg.Provider))
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	var c Completer
	switch cfg.Provider {
	case types.ProviderOpenAI, "":
		c = &OpenAI{APIKey: cfg.APIKey, Model: cfg.Model, Client: client}
	case types.ProviderAnthropic:
		c = &Anthropic{APIKey: cfg.APIKey, Model: cfg.Model, Client: client}
	case types.ProviderGemini:
		g, err := NewGemini(context.Background(), cfg.APIKey, cfg.Model, client)
		if err != nil {
			return nil, err
		}
		c = g
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
	return WithRetry(c, cfg.MaxRetries), nil
}

func providerOrDefault(p types.Provider) types.Provider {
	if p == "" {
		return types.ProviderOpenAI
	}
	return p
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

type retrying struct {
	next       Completer
	maxRetries int
}

// WithRetry wraps c so failed calls are retried with exponential backoff
// (1s, 2s, 4s, ...). maxRetries <= 0 uses 3. Context cancellation is not
// retried.
func WithRetry(c Completer, maxRetries int) Completer {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &retrying{next: c, maxRetries: maxRetries}
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Complete(ctx context.Context, p Prompt) (Completion, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			zerolog.Ctx(ctx).Debug().Err(lastErr).Str("model", r.next.Name()).
				Int("attempt", attempt).Dur("backoff", backoff).Msg("retrying model call")
			select {
			case <-ctx.Done():
				return Completion{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		c, err := r.next.Complete(ctx, p)
		if err == nil {
			return c, nil
		}
		if ctx.Err() != nil {
			return Completion{}, ctx.Err()
		}
		lastErr = err
	}
	return Completion{}, fmt.Errorf("after %d retries: %w", r.maxRetries, lastErr)
}

// DecodeJSON unmarshals the JSON object in a model reply into v. Replies
// wrapped in Markdown code fences or surrounded by prose are tolerated; the
// outermost {...} span is decoded.
func DecodeJSON(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return fmt.Errorf("no JSON object in model reply")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("parsing model JSON: %w", err)
	}
	return nil
}

func maxTokens(p Prompt) int {
	if p.MaxTokens > 0 {
		return p.MaxTokens
	}
	return defaultMaxTokens
}
