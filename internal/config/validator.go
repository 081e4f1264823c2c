package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateModels(&cfg.Models)
	v.validatePanel(&cfg.Panel)
	v.validateRetry(&cfg.Retry)
	v.validateRateLimit("rate_limit", &cfg.RateLimit)
	v.validateStore(&cfg.Store)
	v.validateReport(&cfg.Report)
	v.validateServer(&cfg.Server)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}

	if cfg.File != "" && !isValidPath(cfg.File) {
		v.addError("log.file", cfg.File, "invalid file path")
	}
}

func (v *Validator) validateModels(cfg *ModelsConfig) {
	if len(cfg.Entries) == 0 {
		v.addError("models.entries", nil, "at least one model required")
		return
	}

	names := make([]string, 0, len(cfg.Entries))
	for name := range cfg.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v.validateModel("models.entries."+name, cfg.Entries[name])
	}

	v.requireModel(cfg, "models.default", cfg.Default, true)
	v.requireModel(cfg, "models.lead", cfg.Lead, false)
	v.requireModel(cfg, "models.utility", cfg.Utility, false)

	specialties := make([]string, 0, len(cfg.Specialties))
	for s := range cfg.Specialties {
		specialties = append(specialties, s)
	}
	sort.Strings(specialties)
	for _, s := range specialties {
		v.requireModel(cfg, "models.specialties."+s, cfg.Specialties[s], true)
	}
}

func (v *Validator) requireModel(cfg *ModelsConfig, field, name string, required bool) {
	if name == "" {
		if required {
			v.addError(field, name, "model name required")
		}
		return
	}
	if _, ok := cfg.Entries[name]; !ok {
		v.addError(field, name, "unknown model")
	}
}

func (v *Validator) validateModel(field string, cfg ModelConfig) {
	switch cfg.Type {
	case ModelTypeOpenAI:
		if cfg.Model == "" {
			v.addError(field+".model", cfg.Model, "model identifier required")
		}
		if cfg.BaseURL != "" && !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
			v.addError(field+".base_url", cfg.BaseURL, "must be an http(s) URL")
		}
	case ModelTypeCLI:
		if strings.TrimSpace(cfg.Path) == "" {
			v.addError(field+".path", cfg.Path, "command path required")
		}
	default:
		v.addError(field+".type", cfg.Type, "must be one of: openai, cli")
	}
	if cfg.Timeout < 0 {
		v.addError(field+".timeout", cfg.Timeout, "must be non-negative")
	}
	if cfg.RateLimit != nil {
		v.validateRateLimit(field+".rate_limit", cfg.RateLimit)
	}
}

func (v *Validator) validatePanel(cfg *PanelConfig) {
	if cfg.MaxRounds < 1 {
		v.addError("panel.max_rounds", cfg.MaxRounds, "must be at least 1")
	}
	if cfg.MaxTokens < 0 {
		v.addError("panel.max_tokens", cfg.MaxTokens, "must be non-negative")
	}
	if cfg.Timeout < 0 {
		v.addError("panel.timeout", cfg.Timeout, "must be non-negative")
	}
}

func (v *Validator) validateRetry(cfg *RetryConfig) {
	if cfg.MaxAttempts < 1 {
		v.addError("retry.max_attempts", cfg.MaxAttempts, "must be at least 1")
	}
	if cfg.BaseDelay < 0 {
		v.addError("retry.base_delay", cfg.BaseDelay, "must be non-negative")
	}
	if cfg.MaxDelay > 0 && cfg.MaxDelay < cfg.BaseDelay {
		v.addError("retry.max_delay", cfg.MaxDelay, "must be >= retry.base_delay")
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		v.addError("retry.jitter", cfg.Jitter, "must be between 0 and 1")
	}
}

func (v *Validator) validateRateLimit(field string, cfg *RateLimitConfig) {
	if cfg.Burst < 1 {
		v.addError(field+".burst", cfg.Burst, "must be at least 1")
	}
	if cfg.PerSecond <= 0 {
		v.addError(field+".per_second", cfg.PerSecond, "must be positive")
	}
}

func (v *Validator) validateStore(cfg *StoreConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.Path == "" {
		v.addError("store.path", cfg.Path, "path required when store is enabled")
	} else if !isValidPath(cfg.Path) {
		v.addError("store.path", cfg.Path, "invalid file path")
	}
}

func (v *Validator) validateReport(cfg *ReportConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.Dir == "" {
		v.addError("report.dir", cfg.Dir, "directory required when reports are enabled")
	} else if !isValidPath(cfg.Dir) {
		v.addError("report.dir", cfg.Dir, "invalid directory path")
	}
	if len(cfg.Formats) == 0 {
		v.addError("report.formats", cfg.Formats, "at least one format required")
	}
	for _, f := range cfg.Formats {
		if f != "markdown" && f != "json" {
			v.addError("report.formats", f, "must be one of: markdown, json")
		}
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Addr == "" {
		v.addError("server.addr", cfg.Addr, "address required")
	} else if !strings.Contains(cfg.Addr, ":") {
		v.addError("server.addr", cfg.Addr, "must be host:port")
	}
}

func isValidPath(path string) bool {
	if path == "" {
		return false
	}
	// Check for null bytes
	if strings.ContainsRune(path, 0) {
		return false
	}
	return filepath.Clean(path) != ""
}

// ValidateConfig is a convenience function to validate a config.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
