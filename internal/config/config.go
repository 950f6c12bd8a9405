// Package config loads prdkb settings from a YAML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables. A missing file at the default location is not an error.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/evolution"
	"github.com/HendryAvila/prdkb/internal/knowledge"
	"github.com/HendryAvila/prdkb/internal/llm"
	"github.com/HendryAvila/prdkb/internal/synthesis"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
)

// Providers lists the supported completion providers.
var Providers = []string{ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOllama}

const (
	// DirName is the per-user directory holding the database and config.
	DirName = ".prdkb"
	// FileName is the config file inside DirName.
	FileName = "config.yaml"

	defaultTimeout = 2 * time.Minute
)

// Config is the full prdkb configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
	LLM       LLMConfig       `yaml:"llm"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Evolution EvolutionConfig `yaml:"evolution"`
	Engine    EngineConfig    `yaml:"engine"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// LLMConfig selects and tunes the completion provider.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	// Model falls back to the provider's default when empty.
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the provider endpoint. For ollama it is the host.
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SynthesisConfig tunes the synthesis builder.
type SynthesisConfig struct {
	ContextBudget int `yaml:"context_budget"`
}

// EvolutionConfig tunes the evolution merger.
type EvolutionConfig struct {
	TranscriptBudget int    `yaml:"transcript_budget"`
	FallbackModule   string `yaml:"fallback_module"`
}

// EngineConfig tunes document writes.
type EngineConfig struct {
	MaxConflictRetries int `yaml:"max_conflict_retries"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables
// it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Dir returns ~/.prdkb.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, DirName)
}

// DefaultPath returns ~/.prdkb/config.yaml.
func DefaultPath() string {
	return filepath.Join(Dir(), FileName)
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		DataDir:  Dir(),
		LogLevel: "info",
		LLM: LLMConfig{
			Provider:  ProviderGemini,
			MaxTokens: llm.DefaultMaxTokens,
			Timeout:   defaultTimeout,
		},
		Synthesis: SynthesisConfig{ContextBudget: synthesis.DefaultContextBudget},
		Evolution: EvolutionConfig{
			TranscriptBudget: evolution.DefaultTranscriptBudget,
			FallbackModule:   knowledge.FallbackModule,
		},
		Engine: EngineConfig{MaxConflictRetries: engine.DefaultMaxConflictRetries},
	}
}

// Load reads the config at path, applies environment overrides and
// validates the result. An empty path means DefaultPath, which may be
// absent; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides cfg from PRDKB_* variables and provider key
// variables. Provider keys only fill an empty APIKey.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PRDKB_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("PRDKB_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("PRDKB_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PRDKB_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PRDKB_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("PRDKB_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = d
		}
	}
	if v := os.Getenv("PRDKB_MAX_CONFLICT_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxConflictRetries = n
		}
	}

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case ProviderAnthropic:
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case ProviderOpenAI:
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case ProviderGemini:
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if cfg.LLM.Provider == ProviderOllama && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_HOST")
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if !knownProvider(c.LLM.Provider) {
		errs = append(errs, fmt.Errorf("llm.provider %q must be one of %v", c.LLM.Provider, Providers))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, errors.New("llm.max_tokens must be >= 0"))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, errors.New("llm.timeout must be >= 0"))
	}
	if c.Synthesis.ContextBudget <= 0 {
		errs = append(errs, errors.New("synthesis.context_budget must be > 0"))
	}
	if c.Evolution.TranscriptBudget <= 0 {
		errs = append(errs, errors.New("evolution.transcript_budget must be > 0"))
	}
	if c.Evolution.FallbackModule == "" {
		errs = append(errs, errors.New("evolution.fallback_module must not be empty"))
	}
	if c.Engine.MaxConflictRetries < 0 {
		errs = append(errs, errors.New("engine.max_conflict_retries must be >= 0"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

func knownProvider(p string) bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}
