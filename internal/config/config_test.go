package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes body to a config file in a temp dir and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// clearEnv unsets every variable Load consults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PRDKB_PROVIDER", "PRDKB_MODEL", "PRDKB_DATA_DIR", "PRDKB_LOG_LEVEL",
		"PRDKB_METRICS_ADDR", "PRDKB_LLM_TIMEOUT", "PRDKB_MAX_CONFLICT_RETRIES",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OLLAMA_HOST",
	} {
		t.Setenv(k, "")
	}
}

// --- DefaultConfig ---

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.LLM.Provider != ProviderGemini {
		t.Errorf("Provider = %s, want gemini", cfg.LLM.Provider)
	}
	if cfg.Synthesis.ContextBudget != 15000 {
		t.Errorf("ContextBudget = %d, want 15000", cfg.Synthesis.ContextBudget)
	}
	if cfg.Evolution.FallbackModule != "Other/Unclassified" {
		t.Errorf("FallbackModule = %q", cfg.Evolution.FallbackModule)
	}
	if cfg.Engine.MaxConflictRetries != 3 {
		t.Errorf("MaxConflictRetries = %d, want 3", cfg.Engine.MaxConflictRetries)
	}
	if !strings.HasSuffix(cfg.DataDir, DirName) {
		t.Errorf("DataDir = %s, want suffix %s", cfg.DataDir, DirName)
	}
}

// --- Load ---

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
data_dir: /tmp/kb
log_level: debug
llm:
  provider: anthropic
  model: claude-test
  api_key: from-file
  timeout: 45s
synthesis:
  context_budget: 8000
evolution:
  fallback_module: Misc
metrics:
  addr: ":9464"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/tmp/kb" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.LLM.Provider != ProviderAnthropic || cfg.LLM.Model != "claude-test" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.LLM.APIKey != "from-file" {
		t.Errorf("APIKey = %q, want from-file", cfg.LLM.APIKey)
	}
	if cfg.LLM.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.LLM.Timeout)
	}
	if cfg.Synthesis.ContextBudget != 8000 {
		t.Errorf("ContextBudget = %d", cfg.Synthesis.ContextBudget)
	}
	// Unset keys keep their defaults.
	if cfg.Evolution.TranscriptBudget != 6000 {
		t.Errorf("TranscriptBudget = %d, want default 6000", cfg.Evolution.TranscriptBudget)
	}
	if cfg.Evolution.FallbackModule != "Misc" {
		t.Errorf("FallbackModule = %q", cfg.Evolution.FallbackModule)
	}
	if cfg.Metrics.Addr != ":9464" {
		t.Errorf("Metrics.Addr = %q", cfg.Metrics.Addr)
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelDebug {
		t.Errorf("Level = %v, want debug", lvl)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "llm:\n  provider: anthropic\n")
	t.Setenv("PRDKB_PROVIDER", "openai")
	t.Setenv("PRDKB_DATA_DIR", "/data")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("ANTHROPIC_API_KEY", "wrong-provider")
	t.Setenv("PRDKB_MAX_CONFLICT_RETRIES", "0")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != ProviderOpenAI {
		t.Errorf("Provider = %s, want openai", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("APIKey = %q, want key of the selected provider", cfg.LLM.APIKey)
	}
	if cfg.DataDir != "/data" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.Engine.MaxConflictRetries != 0 {
		t.Errorf("MaxConflictRetries = %d, want 0", cfg.Engine.MaxConflictRetries)
	}
}

func TestLoad_FileKeyWinsOverEnvKey(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "llm:\n  provider: gemini\n  api_key: file-key\n")
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file-key", cfg.LLM.APIKey)
	}
}

func TestLoad_OllamaHostFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRDKB_PROVIDER", "ollama")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.BaseURL != "http://gpu-box:11434" {
		t.Errorf("BaseURL = %q", cfg.LLM.BaseURL)
	}
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != ProviderGemini {
		t.Errorf("Provider = %s, want default", cfg.LLM.Provider)
	}
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "llm: [this is not a mapping")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

// --- Validate ---

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Provider = "bard"
	cfg.Synthesis.ContextBudget = 0
	cfg.Evolution.TranscriptBudget = -1
	cfg.Engine.MaxConflictRetries = -2
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"llm.provider", "synthesis.context_budget", "evolution.transcript_budget",
		"engine.max_conflict_retries", "log_level",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidate_AllProviders(t *testing.T) {
	for _, p := range Providers {
		cfg := DefaultConfig()
		cfg.LLM.Provider = p
		if err := cfg.Validate(); err != nil {
			t.Errorf("provider %s: %v", p, err)
		}
	}
}
