package service

import (
	"context"
	"sort"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by every call to one model.
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	MaxTokens  float64 `mapstructure:"burst" yaml:"burst"`
	RefillRate float64 `mapstructure:"per_second" yaml:"per_second"`
}

// DefaultRateLimiterConfig returns default configuration.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MaxTokens:  5,
		RefillRate: 1,
	}
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1
	}
	if cfg.RefillRate <= 0 {
		cfg.RefillRate = DefaultRateLimiterConfig().RefillRate
	}
	return &RateLimiter{
		tokens:     cfg.MaxTokens,
		maxTokens:  cfg.MaxTokens,
		refillRate: cfg.RefillRate,
		lastRefill: time.Now(),
	}
}

// Acquire blocks until a token is available or ctx is done.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens >= 1 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - r.tokens) / r.refillRate * float64(time.Second))
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire takes a token without blocking.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// Available returns the current number of tokens.
func (r *RateLimiter) Available() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	return r.tokens
}

func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill)
	r.lastRefill = now
	r.tokens = min(r.maxTokens, r.tokens+elapsed.Seconds()*r.refillRate)
}

// RateLimiterRegistry hands out one limiter per model name.
type RateLimiterRegistry struct {
	limiters map[string]*RateLimiter
	configs  map[string]RateLimiterConfig
	fallback RateLimiterConfig
	mu       sync.Mutex
}

// NewRateLimiterRegistry creates a registry using fallback for unconfigured models.
func NewRateLimiterRegistry(fallback RateLimiterConfig) *RateLimiterRegistry {
	return &RateLimiterRegistry{
		limiters: make(map[string]*RateLimiter),
		configs:  make(map[string]RateLimiterConfig),
		fallback: fallback,
	}
}

// Get returns the limiter for a model, creating it on first use.
func (r *RateLimiterRegistry) Get(model string) *RateLimiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, ok := r.limiters[model]; ok {
		return limiter
	}
	cfg, ok := r.configs[model]
	if !ok {
		cfg = r.fallback
	}
	limiter := NewRateLimiter(cfg)
	r.limiters[model] = limiter
	return limiter
}

// SetConfig replaces the configuration and limiter for a model.
func (r *RateLimiterRegistry) SetConfig(model string, cfg RateLimiterConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[model] = cfg
	r.limiters[model] = NewRateLimiter(cfg)
}

// RateLimiterStatus reports a limiter's state.
type RateLimiterStatus struct {
	Model     string  `json:"model"`
	Available float64 `json:"available"`
	MaxTokens float64 `json:"max_tokens"`
}

// Status returns every active limiter, sorted by model name.
func (r *RateLimiterRegistry) Status() []RateLimiterStatus {
	r.mu.Lock()
	names := make([]string, 0, len(r.limiters))
	for name := range r.limiters {
		names = append(names, name)
	}
	limiters := make(map[string]*RateLimiter, len(r.limiters))
	for k, v := range r.limiters {
		limiters[k] = v
	}
	r.mu.Unlock()

	sort.Strings(names)
	out := make([]RateLimiterStatus, 0, len(names))
	for _, name := range names {
		l := limiters[name]
		out = append(out, RateLimiterStatus{Model: name, Available: l.Available(), MaxTokens: l.maxTokens})
	}
	return out
}
