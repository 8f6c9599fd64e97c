// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/supplement-engine/internal/secrets"
	"github.com/pdiddy/supplement-engine/pkg/types"
)

const defaultUserAgent = "supplement-engine/0.1"

// setDefaults registers every configuration key with its default so that
// AutomaticEnv can resolve SUPPLEMENT_ENGINE_* overrides during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.addr", "127.0.0.1:8000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 3*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("source.backend", string(types.BackendChain))
	v.SetDefault("source.max_results", 20)
	v.SetDefault("source.timeout", 30*time.Second)
	v.SetDefault("source.user_agent", defaultUserAgent)
	v.SetDefault("source.api_key", "")
	v.SetDefault("source.semantic_scholar_key", "")
	v.SetDefault("source.email", "")
	v.SetDefault("source.requests_per_second", 0.0)

	for _, stage := range []string{"curation", "synthesis"} {
		v.SetDefault(stage+".provider", string(types.ProviderOpenAI))
		v.SetDefault(stage+".model", "gpt-4o-mini")
		v.SetDefault(stage+".api_key", "")
		v.SetDefault(stage+".max_retries", 3)
		v.SetDefault(stage+".timeout", 90*time.Second)
		v.SetDefault(stage+".abstract_limit", 2500)
	}
	v.SetDefault("curation.temperature", 0.1)
	v.SetDefault("curation.max_selections", 7)
	v.SetDefault("synthesis.temperature", 0.3)
}

// loadConfig unmarshals the viper settings into an AppConfig and fills API
// keys from the loaded secrets where the config leaves them empty.
func loadConfig(v *viper.Viper) (types.AppConfig, error) {
	var cfg types.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return types.AppConfig{}, fmt.Errorf("reading configuration: %w", err)
	}

	cfg.Source.APIKey = secretDefault(secrets.NCBIKey, cfg.Source.APIKey)
	cfg.Source.SemanticScholarKey = secretDefault(secrets.SemanticScholarKey, cfg.Source.SemanticScholarKey)
	cfg.Source.Email = secretDefault(secrets.OpenAlexEmail, cfg.Source.Email)
	cfg.Curation.APIKey = secretDefault(providerSecret(cfg.Curation.Provider), cfg.Curation.APIKey)
	cfg.Synthesis.APIKey = secretDefault(providerSecret(cfg.Synthesis.Provider), cfg.Synthesis.APIKey)
	return cfg, nil
}

// providerSecret returns the secret key name holding the API key for p.
func providerSecret(p types.Provider) string {
	switch p {
	case types.ProviderAnthropic:
		return secrets.AnthropicKey
	case types.ProviderGemini:
		return secrets.GeminiKey
	default:
		return secrets.OpenAIKey
	}
}
