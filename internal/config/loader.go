package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Default server settings applied by [Validate].
const (
	defaultListenAddr     = ":8080"
	defaultMaxUploadBytes = 25 << 20
)

// validLLMProviders lists the recognised LLM backend names. Anything else
// produces a warning, not an error, so new any-llm-go backends keep
// working without a code change here.
var validLLMProviders = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values and fills in
// defaults. It returns a joined error listing all validation failures.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = defaultListenAddr
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	} else if !slices.Contains(validLLMProviders, cfg.Providers.LLM.Name) {
		slog.Warn("unrecognised llm provider name", "name", cfg.Providers.LLM.Name)
	}
	if cfg.Providers.LLM.Model == "" {
		errs = append(errs, errors.New("providers.llm.model is required"))
	}

	if cfg.Providers.STT.Name != "" && cfg.Providers.STT.Name != "whisper-api" {
		errs = append(errs, fmt.Errorf("providers.stt.name %q is invalid; valid values: whisper-api", cfg.Providers.STT.Name))
	}
	if cfg.Providers.STT.Name != "" && cfg.Providers.STT.Model == "" {
		cfg.Providers.STT.Model = "whisper-1"
	}

	if cfg.Dictionary.PostgresDSN == "" {
		slog.Warn("dictionary.postgres_dsn is empty; using in-memory store, rules are lost on restart")
	}

	if cfg.Correction.Temperature < 0 || cfg.Correction.Temperature > 2 {
		errs = append(errs, fmt.Errorf("correction.temperature %.2f is out of range [0, 2]", cfg.Correction.Temperature))
	}
	if cfg.Correction.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("correction.retry_attempts %d must not be negative", cfg.Correction.RetryAttempts))
	}

	return errors.Join(errs...)
}
