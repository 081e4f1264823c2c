package service

import (
	"context"
	"sort"
	"sync"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

// UsageCollector aggregates token usage across every model call of a case.
// It is safe for concurrent use.
type UsageCollector struct {
	mu        sync.Mutex
	calls     int
	failures  int
	total     core.TokenUsage
	byAdvisor map[string]core.TokenUsage
	byModel   map[string]core.TokenUsage
}

// NewUsageCollector creates an empty collector.
func NewUsageCollector() *UsageCollector {
	return &UsageCollector{
		byAdvisor: make(map[string]core.TokenUsage),
		byModel:   make(map[string]core.TokenUsage),
	}
}

// Record adds one call's outcome. resp may be nil for failed calls.
func (c *UsageCollector) Record(advisorID, model string, resp *core.Response, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if err != nil || resp == nil {
		c.failures++
		return
	}
	if resp.Model != "" {
		model = resp.Model
	}
	c.total = c.total.Add(resp.Usage)
	if advisorID != "" {
		c.byAdvisor[advisorID] = c.byAdvisor[advisorID].Add(resp.Usage)
	}
	c.byModel[model] = c.byModel[model].Add(resp.Usage)
}

// Track returns a model that records every call under advisorID.
func (c *UsageCollector) Track(advisorID string, m core.Model) core.Model {
	return &trackedModel{Model: m, advisorID: advisorID, collector: c}
}

// Report returns a snapshot of the collected usage.
func (c *UsageCollector) Report() core.UsageReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := core.UsageReport{
		Calls:     c.calls,
		Failures:  c.failures,
		Total:     c.total,
		ByAdvisor: make(map[string]core.TokenUsage, len(c.byAdvisor)),
		ByModel:   make(map[string]core.TokenUsage, len(c.byModel)),
	}
	for k, v := range c.byAdvisor {
		r.ByAdvisor[k] = v
	}
	for k, v := range c.byModel {
		r.ByModel[k] = v
		r.ModelNames = append(r.ModelNames, k)
	}
	sort.Strings(r.ModelNames)
	return r
}

type trackedModel struct {
	core.Model
	advisorID string
	collector *UsageCollector
}

func (t *trackedModel) Submit(ctx context.Context, req core.Request) (*core.Response, error) {
	resp, err := t.Model.Submit(ctx, req)
	t.collector.Record(t.advisorID, t.Model.Name(), resp, err)
	return resp, err
}
