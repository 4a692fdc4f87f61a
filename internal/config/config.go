// Package config provides the configuration schema and loader for the
// otoscribe server.
package config

import "time"

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for otoscribe.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Correction CorrectionConfig `yaml:"correction"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MaxUploadBytes caps the accepted audio upload size for the
	// transcription endpoint. Default: 25 MiB.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// ProvidersConfig declares which external providers back the pipeline.
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
	STT ProviderEntry `yaml:"stt"`
}

// ProviderEntry is the common configuration block shared by both provider
// kinds. API keys live here and are passed to constructors explicitly;
// nothing in the pipeline reads ambient process state.
type ProviderEntry struct {
	// Name selects the provider implementation. For llm: "openai" or any
	// any-llm-go backend name ("anthropic", "ollama", ...). For stt:
	// "whisper-api".
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model (e.g., "gpt-4o", "whisper-1").
	Model string `yaml:"model"`
}

// DictionaryConfig selects the rule store backend.
type DictionaryConfig struct {
	// PostgresDSN is the connection string for the rule store. When
	// empty, an in-memory store is used (rules are lost on restart).
	PostgresDSN string `yaml:"postgres_dsn"`
}

// CorrectionConfig tunes the proofreading pipeline.
type CorrectionConfig struct {
	// Temperature is the LLM sampling temperature. Default: 0.1.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps the proofreading completion length. Default: 4000.
	MaxTokens int `yaml:"max_tokens"`

	// RetryAttempts is the total number of tries for a rate-limited LLM
	// call. Default: 3.
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryDelay is the initial backoff before the second attempt,
	// doubling thereafter. Default: 1s.
	RetryDelay time.Duration `yaml:"retry_delay"`
}
