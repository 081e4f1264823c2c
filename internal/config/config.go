package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Models    ModelsConfig    `mapstructure:"models" yaml:"models"`
	Panel     PanelConfig     `mapstructure:"panel" yaml:"panel"`
	Retry     RetryConfig     `mapstructure:"retry" yaml:"retry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Preflight PreflightConfig `mapstructure:"preflight" yaml:"preflight"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Report    ReportConfig    `mapstructure:"report" yaml:"report"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog" yaml:"catalog"`
	Tracing   TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
	// RedactIdentifiers masks patient identifiers in log output.
	RedactIdentifiers bool `mapstructure:"redact_identifiers" yaml:"redact_identifiers"`
}

// ModelsConfig declares the models advisors can run on and how they are
// assigned. Names refer to keys of Entries.
type ModelsConfig struct {
	// Default backs every advisor without a more specific assignment.
	Default string `mapstructure:"default" yaml:"default"`
	// Lead backs team leads. Empty means Default.
	Lead string `mapstructure:"lead" yaml:"lead,omitempty"`
	// Utility backs classification and recruitment explanations. Empty means Default.
	Utility string `mapstructure:"utility" yaml:"utility,omitempty"`
	// Specialties maps a specialty name to a model, overriding Lead and Default.
	Specialties map[string]string      `mapstructure:"specialties" yaml:"specialties,omitempty"`
	Entries     map[string]ModelConfig `mapstructure:"entries" yaml:"entries"`
}

// Model adapter types.
const (
	ModelTypeOpenAI = "openai"
	ModelTypeCLI    = "cli"
)

// ModelConfig configures a single model.
type ModelConfig struct {
	// Type is openai (HTTP chat completions) or cli (subprocess).
	Type  string `mapstructure:"type" yaml:"type"`
	Model string `mapstructure:"model" yaml:"model"`

	// openai
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKeyEnv string `mapstructure:"api_key_env" yaml:"api_key_env,omitempty"`

	// cli
	Path string   `mapstructure:"path" yaml:"path,omitempty"`
	Args []string `mapstructure:"args" yaml:"args,omitempty"`

	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
	// RateLimit overrides the global limiter for this model.
	RateLimit *RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit,omitempty"`
}

// PanelConfig configures deliberation.
type PanelConfig struct {
	MaxRounds           int           `mapstructure:"max_rounds" yaml:"max_rounds"`
	ParallelAssessments bool          `mapstructure:"parallel_assessments" yaml:"parallel_assessments"`
	ParallelVotes       bool          `mapstructure:"parallel_votes" yaml:"parallel_votes"`
	MaxTokens           int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout             time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Explain             bool          `mapstructure:"explain" yaml:"explain"`
}

// RetryConfig configures retries of failed model calls.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Jitter      float64       `mapstructure:"jitter" yaml:"jitter"`
}

// RateLimitConfig configures the per-model token bucket.
type RateLimitConfig struct {
	Burst     float64 `mapstructure:"burst" yaml:"burst"`
	PerSecond float64 `mapstructure:"per_second" yaml:"per_second"`
}

// PreflightConfig configures host checks before CLI models run.
type PreflightConfig struct {
	Enabled         bool    `mapstructure:"enabled" yaml:"enabled"`
	MinFreeMemoryMB int     `mapstructure:"min_free_memory_mb" yaml:"min_free_memory_mb"`
	MaxLoadPerCPU   float64 `mapstructure:"max_load_per_cpu" yaml:"max_load_per_cpu"`
}

// StoreConfig configures case persistence.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ReportConfig configures transcript output.
type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
	// Formats lists the transcript formats to write: markdown, json.
	Formats []string `mapstructure:"formats" yaml:"formats"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// CatalogConfig points at an optional specialty catalog file.
type CatalogConfig struct {
	Path  string `mapstructure:"path" yaml:"path,omitempty"`
	Watch bool   `mapstructure:"watch" yaml:"watch"`
}

// TracingConfig enables OpenTelemetry spans around model calls.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ModelFor returns the configured model name for a role. Unknown roles and
// empty assignments fall back to Default.
func (m ModelsConfig) ModelFor(specialtyName string, lead bool) string {
	if name, ok := m.Specialties[specialtyName]; ok && name != "" {
		return name
	}
	if lead && m.Lead != "" {
		return m.Lead
	}
	return m.Default
}

// UtilityModel returns the model used for helper calls.
func (m ModelsConfig) UtilityModel() string {
	if m.Utility != "" {
		return m.Utility
	}
	return m.Default
}
