// Package model adapts language model backends to core.Model: an
// OpenAI-compatible HTTP client, a subprocess runner for local tools, and
// wrappers adding retries, rate limiting and tracing. Registry builds them
// from configuration and assigns them to advisors.
package model

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hugo-lorenzo-mato/medpanel/internal/config"
	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/medpanel/internal/logging"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service"
)

// Factory creates a model from configuration.
type Factory func(name string, cfg config.ModelConfig) (core.Model, error)

// Registry creates configured models on first use and assigns them to
// advisors by specialty and role.
type Registry struct {
	factories  map[string]Factory
	models     map[string]core.Model
	configs    map[string]config.ModelConfig
	assignment config.ModelsConfig
	retry      *service.RetryPolicy
	limiters   *service.RateLimiterRegistry
	tracing    bool
	logger     *logging.Logger
	mu         sync.RWMutex
}

// RegistryOptions holds the cross-cutting wrappers applied to every model.
type RegistryOptions struct {
	Retry     *service.RetryPolicy
	Limiters  *service.RateLimiterRegistry
	Preflight *diagnostics.Preflight
	Tracing   bool
	Logger    *logging.Logger
}

// NewRegistry creates a registry for cfg with the built-in openai and cli
// factories.
func NewRegistry(cfg config.ModelsConfig, opts RegistryOptions) *Registry {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	r := &Registry{
		factories:  make(map[string]Factory),
		models:     make(map[string]core.Model),
		configs:    make(map[string]config.ModelConfig),
		assignment: cfg,
		retry:      opts.Retry,
		limiters:   opts.Limiters,
		tracing:    opts.Tracing,
		logger:     opts.Logger,
	}
	r.RegisterFactory(config.ModelTypeOpenAI, func(name string, mc config.ModelConfig) (core.Model, error) {
		return NewOpenAI(name, mc.Model, mc.APIKeyEnv, mc.Timeout, WithOpenAIBaseURL(mc.BaseURL)), nil
	})
	r.RegisterFactory(config.ModelTypeCLI, func(name string, mc config.ModelConfig) (core.Model, error) {
		c := NewCLI(CLIConfig{Name: name, Path: mc.Path, Args: mc.Args, Model: mc.Model, Timeout: mc.Timeout}, opts.Logger)
		if opts.Preflight != nil {
			c.WithPreflight(opts.Preflight)
		}
		return c, nil
	})
	for name, mc := range cfg.Entries {
		r.configs[name] = mc
		if mc.RateLimit != nil && r.limiters != nil {
			r.limiters.SetConfig(name, service.RateLimiterConfig{MaxTokens: mc.RateLimit.Burst, RefillRate: mc.RateLimit.PerSecond})
		}
	}
	return r
}

// RegisterFactory registers a factory for a model type.
func (r *Registry) RegisterFactory(modelType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[modelType] = factory
}

// Register adds a ready-made model, bypassing factories and wrappers.
func (r *Registry) Register(name string, m core.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[name] = m
}

// Get returns a model by name, creating it if necessary.
func (r *Registry) Get(name string) (core.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.models[name]; ok {
		return m, nil
	}
	cfg, ok := r.configs[name]
	if !ok {
		return nil, core.ErrNotFound("model", name)
	}
	factory, ok := r.factories[cfg.Type]
	if !ok {
		return nil, core.ErrValidation(core.CodeUnknownModel, fmt.Sprintf("model %s: unknown type %q", name, cfg.Type))
	}
	m, err := factory(name, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating model %s: %w", name, err)
	}
	m = r.wrap(name, m)
	r.models[name] = m
	return m, nil
}

func (r *Registry) wrap(name string, m core.Model) core.Model {
	if r.tracing {
		m = NewTraced(m, nil)
	}
	var limiter *service.RateLimiter
	if r.limiters != nil {
		limiter = r.limiters.Get(name)
	}
	if r.retry != nil || limiter != nil {
		m = NewGuarded(m, r.retry, limiter, r.logger.WithModel(name))
	}
	return m
}

// List returns the configured model names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.configs)+len(r.models))
	for name := range r.configs {
		seen[name] = true
	}
	for name := range r.models {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForMember returns the model assigned to an advisor: a per-specialty
// override, then the lead model for leads, then the default.
func (r *Registry) ForMember(m core.Member) core.Model {
	return r.resolve(r.assignment.ModelFor(m.Specialty, m.Role == core.RoleLead))
}

// Utility returns the model for classification and explanations.
func (r *Registry) Utility() core.Model {
	return r.resolve(r.assignment.UtilityModel())
}

func (r *Registry) resolve(name string) core.Model {
	m, err := r.Get(name)
	if err != nil {
		r.logger.Warn("model unavailable", "model", name, "error", err)
		return unavailable{name: name, err: err}
	}
	return m
}

// Availability reports, per configured model, whether its backend can be
// reached without making a call. Only CLI models are checked; others
// report nil.
func (r *Registry) Availability() map[string]error {
	out := make(map[string]error)
	for _, name := range r.List() {
		m, err := r.Get(name)
		if err != nil {
			out[name] = err
			continue
		}
		out[name] = checkAvailability(m)
	}
	return out
}

func checkAvailability(m core.Model) error {
	for {
		switch v := m.(type) {
		case interface{ CheckAvailability() error }:
			return v.CheckAvailability()
		case *Guarded:
			m = v.model
		case *Traced:
			m = v.model
		default:
			return nil
		}
	}
}

// unavailable stands in for a model that could not be created; every call
// fails so the advisor degrades instead of the case aborting.
type unavailable struct {
	name string
	err  error
}

func (u unavailable) Name() string { return u.name }

func (u unavailable) Submit(context.Context, core.Request) (*core.Response, error) {
	return nil, u.err
}
