package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_Defaults(t *testing.T) {
	loader := NewLoader().WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	// A missing explicit file is an error; defaults are checked through Default.
	if _, err := loader.Load(); err == nil {
		t.Fatal("Load() with a missing explicit file should fail")
	}

	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "auto" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "auto")
	}
	if !cfg.Log.RedactIdentifiers {
		t.Error("Log.RedactIdentifiers should default to true")
	}

	if cfg.Panel.MaxRounds != 5 {
		t.Errorf("Panel.MaxRounds = %d, want 5", cfg.Panel.MaxRounds)
	}
	if cfg.Panel.Timeout != 30*time.Minute {
		t.Errorf("Panel.Timeout = %v, want 30m", cfg.Panel.Timeout)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay != time.Second {
		t.Errorf("Retry = %+v", cfg.Retry)
	}

	gpt, ok := cfg.Models.Entries["gpt"]
	if !ok {
		t.Fatalf("default model missing: %+v", cfg.Models.Entries)
	}
	if gpt.Type != ModelTypeOpenAI || gpt.APIKeyEnv != "OPENAI_API_KEY" || gpt.Timeout != 2*time.Minute {
		t.Errorf("gpt entry = %+v", gpt)
	}
	if cfg.Models.Default != "gpt" {
		t.Errorf("Models.Default = %q, want gpt", cfg.Models.Default)
	}

	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Setenv("MEDPANEL_LOG_LEVEL", "debug")
	t.Setenv("MEDPANEL_PANEL_MAX_ROUNDS", "2")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  format: json\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if cfg.Panel.MaxRounds != 2 {
		t.Errorf("Panel.MaxRounds = %d, want 2", cfg.Panel.MaxRounds)
	}
}

func TestLoader_ConfigFileOverride(t *testing.T) {
	t.Parallel()
	content := `
models:
  default: local
  lead: gpt
  specialties:
    Cardiologist: gpt
  entries:
    local:
      type: cli
      path: ollama run llama3
      timeout: 90s
panel:
  max_rounds: 3
  parallel_votes: true
report:
  formats: [markdown]
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := NewLoader().WithConfigFile(path)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loader.ConfigFile() != path {
		t.Errorf("ConfigFile() = %q, want %q", loader.ConfigFile(), path)
	}

	local := cfg.Models.Entries["local"]
	if local.Type != ModelTypeCLI || local.Path != "ollama run llama3" || local.Timeout != 90*time.Second {
		t.Errorf("local entry = %+v", local)
	}
	if _, ok := cfg.Models.Entries["gpt"]; !ok {
		t.Error("default entry should survive a file that adds entries")
	}
	if got := cfg.Models.ModelFor("Cardiologist", false); got != "gpt" {
		t.Errorf("ModelFor(Cardiologist) = %q", got)
	}
	if got := cfg.Models.ModelFor("Neurologist", true); got != "gpt" {
		t.Errorf("ModelFor(lead) = %q", got)
	}
	if got := cfg.Models.ModelFor("Neurologist", false); got != "local" {
		t.Errorf("ModelFor(member) = %q", got)
	}
	if got := cfg.Models.UtilityModel(); got != "local" {
		t.Errorf("UtilityModel() = %q", got)
	}
	if cfg.Panel.MaxRounds != 3 || !cfg.Panel.ParallelVotes {
		t.Errorf("Panel = %+v", cfg.Panel)
	}
	if len(cfg.Report.Formats) != 1 || cfg.Report.Formats[0] != "markdown" {
		t.Errorf("Report.Formats = %v", cfg.Report.Formats)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("ValidateConfig() error = %v", err)
	}
}

func TestLoader_InvalidConfigFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log: [unclosed"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := NewLoader().WithConfigFile(path).Load(); err == nil {
		t.Fatal("Load() should fail on malformed YAML")
	}
}

func TestLoader_WithEnvPrefix(t *testing.T) {
	t.Setenv("PANELTEST_LOG_LEVEL", "warn")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := NewLoader().WithEnvPrefix("PANELTEST").WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}
