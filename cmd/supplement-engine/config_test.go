// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/supplement-engine/internal/secrets"
	"github.com/pdiddy/supplement-engine/pkg/types"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SUPPLEMENT_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func withSecrets(t *testing.T, s map[string]string) {
	t.Helper()
	old := loadedSecrets
	loadedSecrets = s
	t.Cleanup(func() { loadedSecrets = old })
}

func TestLoadConfigDefaults(t *testing.T) {
	withSecrets(t, map[string]string{
		secrets.OpenAIKey:     "sk-secret",
		secrets.OpenAlexEmail: "me@example.com",

		secrets.SemanticScholarKey: "s2-secret",
	})

	cfg, err := loadConfig(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, types.BackendChain, cfg.Source.Backend)
	assert.Equal(t, 20, cfg.Source.MaxResults)
	assert.Equal(t, defaultUserAgent, cfg.Source.UserAgent)
	assert.Equal(t, "me@example.com", cfg.Source.Email)
	assert.Equal(t, "s2-secret", cfg.Source.SemanticScholarKey)

	assert.Equal(t, types.ProviderOpenAI, cfg.Curation.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Curation.Model)
	assert.InDelta(t, 0.1, cfg.Curation.Temperature, 1e-9)
	assert.Equal(t, 7, cfg.Curation.MaxSelections)
	assert.Equal(t, 2500, cfg.Curation.AbstractLimit)
	assert.Equal(t, "sk-secret", cfg.Curation.APIKey)
	assert.Equal(t, "sk-secret", cfg.Synthesis.APIKey)
	assert.Equal(t, 3, cfg.Synthesis.MaxRetries)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	withSecrets(t, map[string]string{
		secrets.OpenAIKey:    "sk-secret",
		secrets.AnthropicKey: "ak-secret",
	})
	t.Setenv("SUPPLEMENT_ENGINE_SYNTHESIS_PROVIDER", "anthropic")
	t.Setenv("SUPPLEMENT_ENGINE_SYNTHESIS_MODEL", "claude-test")
	t.Setenv("SUPPLEMENT_ENGINE_SOURCE_BACKEND", "pubmed")
	t.Setenv("SUPPLEMENT_ENGINE_SERVER_ADDR", ":9090")
	t.Setenv("SUPPLEMENT_ENGINE_CURATION_API_KEY", "sk-explicit")

	cfg, err := loadConfig(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, types.ProviderAnthropic, cfg.Synthesis.Provider)
	assert.Equal(t, "claude-test", cfg.Synthesis.Model)
	assert.Equal(t, "ak-secret", cfg.Synthesis.APIKey)
	assert.Equal(t, "sk-explicit", cfg.Curation.APIKey, "configured key wins over secrets")
	assert.Equal(t, types.BackendPubMed, cfg.Source.Backend)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadConfigFile(t *testing.T) {
	withSecrets(t, map[string]string{})
	v := newTestViper()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
log_level: debug
source:
  backend: openalex
  max_results: 50
  timeout: 5s
curation:
  provider: gemini
  max_selections: 5
`)))

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, types.BackendOpenAlex, cfg.Source.Backend)
	assert.Equal(t, 50, cfg.Source.MaxResults)
	assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
	assert.Equal(t, types.ProviderGemini, cfg.Curation.Provider)
	assert.Equal(t, 5, cfg.Curation.MaxSelections)
}

func TestProviderSecret(t *testing.T) {
	assert.Equal(t, secrets.OpenAIKey, providerSecret(""))
	assert.Equal(t, secrets.OpenAIKey, providerSecret(types.ProviderOpenAI))
	assert.Equal(t, secrets.AnthropicKey, providerSecret(types.ProviderAnthropic))
	assert.Equal(t, secrets.GeminiKey, providerSecret(types.ProviderGemini))
}

func TestNewPipelineRequiresKeys(t *testing.T) {
	withSecrets(t, map[string]string{})
	cfg, err := loadConfig(newTestViper())
	require.NoError(t, err)

	_, err = newPipeline(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "curation model")
}

func TestNewPipeline(t *testing.T) {
	withSecrets(t, map[string]string{secrets.OpenAIKey: "sk"})
	cfg, err := loadConfig(newTestViper())
	require.NoError(t, err)

	p, err := newPipeline(cfg)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "supplement-engine dev\n", buf.String())
}

func TestAnalyzeRejectsUnknownFormatBeforeRunning(t *testing.T) {
	withSecrets(t, map[string]string{})
	flags := analyzeCmd.Flags()
	require.NoError(t, flags.Set("supplement", "zinc"))
	require.NoError(t, flags.Set("age", "30"))
	require.NoError(t, flags.Set("format", "jsn"))
	t.Cleanup(func() {
		_ = flags.Set("supplement", "")
		_ = flags.Set("age", "0")
		_ = flags.Set("format", "text")
	})

	err := runAnalyze(analyzeCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
	assert.NotContains(t, err.Error(), "curation model", "format is checked before the pipeline is built")
}
