package model

import (
	"context"
	"time"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/logging"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service"
)

// Guarded rate-limits and retries calls to an underlying model.
type Guarded struct {
	model   core.Model
	retry   *service.RetryPolicy
	limiter *service.RateLimiter
	logger  *logging.Logger
}

// NewGuarded wraps m. A nil retry policy makes a single attempt; a nil
// limiter disables rate limiting.
func NewGuarded(m core.Model, retry *service.RetryPolicy, limiter *service.RateLimiter, logger *logging.Logger) *Guarded {
	if retry == nil {
		retry = service.NoRetryPolicy()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Guarded{model: m, retry: retry, limiter: limiter, logger: logger}
}

// Name returns the wrapped model's name.
func (g *Guarded) Name() string {
	return g.model.Name()
}

// Unwrap returns the wrapped model.
func (g *Guarded) Unwrap() core.Model {
	return g.model
}

// Submit acquires a rate-limit token before every attempt and retries
// retryable failures.
func (g *Guarded) Submit(ctx context.Context, req core.Request) (*core.Response, error) {
	var resp *core.Response
	err := g.retry.ExecuteWithNotify(ctx, func(ctx context.Context) error {
		if g.limiter != nil {
			if err := g.limiter.Acquire(ctx); err != nil {
				return err
			}
		}
		r, err := g.model.Submit(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}, func(attempt int, err error, delay time.Duration) {
		g.logger.Warn("retrying model call",
			"model", g.model.Name(),
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
