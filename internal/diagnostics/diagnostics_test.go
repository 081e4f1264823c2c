package diagnostics

import (
	"strings"
	"testing"
)

func fixedPreflight(cfg PreflightConfig, m SystemMetrics) *Preflight {
	return &Preflight{cfg: cfg, collect: func() SystemMetrics { return m }}
}

func TestPreflight_Run(t *testing.T) {
	t.Parallel()
	cfg := PreflightConfig{Enabled: true, MinFreeMemoryMB: 1000, MaxLoadPerCPU: 2}

	tests := []struct {
		name     string
		cfg      PreflightConfig
		metrics  SystemMetrics
		ok       bool
		errors   int
		warnings int
	}{
		{
			name:    "healthy",
			cfg:     cfg,
			metrics: SystemMetrics{MemTotalMB: 16000, MemAvailableMB: 8000, CPUThreads: 8, LoadAvg1: 2},
			ok:      true,
		},
		{
			name:    "out of memory",
			cfg:     cfg,
			metrics: SystemMetrics{MemTotalMB: 16000, MemAvailableMB: 400},
			ok:      false,
			errors:  1,
		},
		{
			name:     "memory close to limit",
			cfg:      cfg,
			metrics:  SystemMetrics{MemTotalMB: 16000, MemAvailableMB: 1200},
			ok:       true,
			warnings: 1,
		},
		{
			name:     "overloaded",
			cfg:      cfg,
			metrics:  SystemMetrics{MemTotalMB: 16000, MemAvailableMB: 8000, CPUThreads: 2, LoadAvg1: 9},
			ok:       true,
			warnings: 1,
		},
		{
			name:    "unreadable memory is not an error",
			cfg:     cfg,
			metrics: SystemMetrics{},
			ok:      true,
		},
		{
			name:    "disabled",
			cfg:     PreflightConfig{MinFreeMemoryMB: 1000},
			metrics: SystemMetrics{MemTotalMB: 16000, MemAvailableMB: 10},
			ok:      true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := fixedPreflight(tt.cfg, tt.metrics).Run()
			if got.OK != tt.ok || len(got.Errors) != tt.errors || len(got.Warnings) != tt.warnings {
				t.Errorf("Run() = ok:%v errors:%v warnings:%v", got.OK, got.Errors, got.Warnings)
			}
		})
	}
}

func TestSystemMetrics_Summary(t *testing.T) {
	t.Parallel()
	m := SystemMetrics{CPUCores: 4, CPUThreads: 8, MemTotalMB: 2048, MemUsedMB: 1024, MemPercent: 50}
	lines := m.Summary()
	if len(lines) != 5 {
		t.Fatalf("Summary() = %d lines, want 5", len(lines))
	}
	if !strings.HasPrefix(lines[0], "CPU: unknown (4 cores, 8 threads)") {
		t.Errorf("cpu line = %q", lines[0])
	}
	if lines[4] != "GPU: none detected" {
		t.Errorf("gpu line = %q", lines[4])
	}

	m.GPUs = []GPUInfo{{Name: "NVIDIA A100"}, {Name: "GPU 1"}}
	if got := m.Summary()[4]; got != "GPU: NVIDIA A100, GPU 1" {
		t.Errorf("gpu line = %q", got)
	}
}

func TestCollector_Collect(t *testing.T) {
	t.Parallel()
	c := NewCollector(false)
	first := c.Collect()
	if first.Timestamp.IsZero() || first.Goroutines == 0 {
		t.Errorf("Collect() = %+v", first)
	}
	if first.GPUs != nil {
		t.Error("GPU inventory should be skipped")
	}
	second := c.Collect()
	if second.CPUPercent < 0 || second.CPUPercent > 100 {
		t.Errorf("CPUPercent = %v", second.CPUPercent)
	}
}
