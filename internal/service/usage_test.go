package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

type fixedModel struct {
	name  string
	usage core.TokenUsage
	err   error
}

func (m fixedModel) Name() string { return m.name }

func (m fixedModel) Submit(context.Context, core.Request) (*core.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &core.Response{Text: "ok", Usage: m.usage}, nil
}

func TestUsageCollector_Track(t *testing.T) {
	t.Parallel()
	c := NewUsageCollector()
	ok := fixedModel{name: "gpt", usage: core.TokenUsage{Input: 10, Output: 5}}
	bad := fixedModel{name: "local", err: errors.New("down")}

	lead := c.Track("lead_physician", ok)
	spec := c.Track("specialist_1", ok)
	broken := c.Track("specialist_2", bad)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = spec.Submit(ctx, core.Request{})
		}()
	}
	wg.Wait()
	_, _ = lead.Submit(ctx, core.Request{})
	if _, err := broken.Submit(ctx, core.Request{}); err == nil {
		t.Fatal("tracked model should pass errors through")
	}

	r := c.Report()
	if r.Calls != 12 || r.Failures != 1 {
		t.Errorf("Calls/Failures = %d/%d, want 12/1", r.Calls, r.Failures)
	}
	if r.Total != (core.TokenUsage{Input: 110, Output: 55}) {
		t.Errorf("Total = %+v", r.Total)
	}
	if r.ByAdvisor["specialist_1"].Total() != 150 || r.ByAdvisor["lead_physician"].Total() != 15 {
		t.Errorf("ByAdvisor = %+v", r.ByAdvisor)
	}
	if _, ok := r.ByAdvisor["specialist_2"]; ok {
		t.Error("failed calls should not add advisor usage")
	}
	if len(r.ModelNames) != 1 || r.ModelNames[0] != "gpt" {
		t.Errorf("ModelNames = %v", r.ModelNames)
	}
}

func TestUsageCollector_ResponseModelWins(t *testing.T) {
	t.Parallel()
	c := NewUsageCollector()
	c.Record("", "alias", &core.Response{Model: "gpt-4o-mini", Usage: core.TokenUsage{Input: 1}}, nil)
	r := c.Report()
	if _, ok := r.ByModel["gpt-4o-mini"]; !ok {
		t.Errorf("ByModel = %+v", r.ByModel)
	}
	if len(r.ByAdvisor) != 0 {
		t.Errorf("ByAdvisor = %+v", r.ByAdvisor)
	}
}
