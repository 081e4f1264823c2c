package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigDir is the project-local configuration directory.
const DefaultConfigDir = ".medpanel"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "MEDPANEL",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "MEDPANEL",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// ConfigFile returns the file the configuration was read from, if any.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (MEDPANEL_*)
// 3. Project config (.medpanel/config.yaml)
// 4. User config (~/.config/medpanel/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(DefaultConfigDir)
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "medpanel"))
		}
	}

	// Read config file (ignore not found)
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	for key, value := range defaultValues() {
		l.v.SetDefault(key, value)
	}
}

func defaultValues() map[string]interface{} {
	return map[string]interface{}{
		"log.level":              "info",
		"log.format":             "auto",
		"log.redact_identifiers": true,

		"models.default": "gpt",
		"models.entries": map[string]interface{}{
			"gpt": map[string]interface{}{
				"type":        ModelTypeOpenAI,
				"model":       "gpt-4o-mini",
				"base_url":    "https://api.openai.com/v1",
				"api_key_env": "OPENAI_API_KEY",
				"timeout":     "2m",
			},
		},

		"panel.max_rounds":           5,
		"panel.parallel_assessments": false,
		"panel.parallel_votes":       false,
		"panel.max_tokens":           1024,
		"panel.timeout":              "30m",
		"panel.explain":              false,

		"retry.max_attempts": 3,
		"retry.base_delay":   "1s",
		"retry.max_delay":    "30s",
		"retry.jitter":       0.2,

		"rate_limit.burst":      5,
		"rate_limit.per_second": 1,

		"preflight.enabled":            true,
		"preflight.min_free_memory_mb": 512,
		"preflight.max_load_per_cpu":   4,

		"store.enabled": true,
		"store.path":    filepath.Join(DefaultConfigDir, "cases.db"),

		"report.enabled": true,
		"report.dir":     filepath.Join(DefaultConfigDir, "reports"),
		"report.formats": []string{"markdown", "json"},

		"server.addr":            "127.0.0.1:8080",
		"server.allowed_origins": []string{"http://localhost:5173"},

		"catalog.watch": true,

		"tracing.enabled": false,
	}
}
