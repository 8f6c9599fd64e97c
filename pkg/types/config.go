package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "supplement-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SourceBackend identifies the literature search backend.
type SourceBackend string

const (
	BackendPubMed          SourceBackend = "pubmed"
	BackendOpenAlex        SourceBackend = "openalex"
	BackendSemanticScholar SourceBackend = "semantic_scholar"
	// BackendChain tries PubMed first, then OpenAlex, then Semantic Scholar.
	BackendChain SourceBackend = "chain"
)

// SourceConfig holds settings for the study search stage.
type SourceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend selects the search backend: pubmed, openalex, semantic_scholar,
	// or chain.
	Backend SourceBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// MaxResults caps the number of candidate studies fetched (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// APIKey is the optional NCBI E-utilities API key for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// SemanticScholarKey is the optional Semantic Scholar API key.
	SemanticScholarKey string `json:"semantic_scholar_key,omitempty" yaml:"semantic_scholar_key,omitempty" mapstructure:"semantic_scholar_key"`

	// Email is sent to NCBI and OpenAlex to identify the caller (polite pool).
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`

	// RequestsPerSecond paces calls to the search API. Zero picks the
	// backend's published limit.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// Provider identifies a Generative AI API.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Provider selects the API: openai, anthropic, or gemini.
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the AI model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// Timeout bounds a single API call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// CurationConfig holds settings for the curation stage.
type CurationConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// MaxSelections caps how many studies the curator keeps (default 7).
	MaxSelections int `json:"max_selections" yaml:"max_selections" mapstructure:"max_selections"`

	// AbstractLimit is the number of characters of each abstract sent to the
	// model (default 2500).
	AbstractLimit int `json:"abstract_limit" yaml:"abstract_limit" mapstructure:"abstract_limit"`
}

// SynthesisConfig holds settings for the synthesis stage.
type SynthesisConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// AbstractLimit is the number of characters of each abstract included in
	// the synthesis prompt (default 2500).
	AbstractLimit int `json:"abstract_limit" yaml:"abstract_limit" mapstructure:"abstract_limit"`
}

// ServerConfig holds settings for the web server.
type ServerConfig struct {
	// Addr is the listen address (e.g. "127.0.0.1:8000").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// ReadTimeout bounds reading a request.
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`

	// WriteTimeout bounds a full request; it must cover both model calls.
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`

	// ShutdownTimeout is how long in-flight requests get to finish on shutdown.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// AppConfig groups all configuration for the application.
type AppConfig struct {
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`

	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Source    SourceConfig    `json:"source" yaml:"source" mapstructure:"source"`
	Curation  CurationConfig  `json:"curation" yaml:"curation" mapstructure:"curation"`
	Synthesis SynthesisConfig `json:"synthesis" yaml:"synthesis" mapstructure:"synthesis"`
}
