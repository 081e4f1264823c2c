package diagnostics

import "fmt"

// PreflightConfig sets the resource thresholds checked before a model
// subprocess starts. Zero disables a check.
type PreflightConfig struct {
	Enabled         bool    `mapstructure:"enabled" yaml:"enabled"`
	MinFreeMemoryMB int     `mapstructure:"min_free_memory_mb" yaml:"min_free_memory_mb"`
	MaxLoadPerCPU   float64 `mapstructure:"max_load_per_cpu" yaml:"max_load_per_cpu"`
}

// DefaultPreflightConfig requires 512 MB of free memory.
func DefaultPreflightConfig() PreflightConfig {
	return PreflightConfig{Enabled: true, MinFreeMemoryMB: 512, MaxLoadPerCPU: 4}
}

// PreflightResult contains the result of pre-execution checks.
type PreflightResult struct {
	OK       bool
	Warnings []string
	Errors   []string
	Metrics  SystemMetrics
}

// Preflight checks host resources before a subprocess is launched.
type Preflight struct {
	cfg     PreflightConfig
	collect func() SystemMetrics
}

// NewPreflight creates a preflight checker reading from collector.
func NewPreflight(cfg PreflightConfig, collector *Collector) *Preflight {
	return &Preflight{cfg: cfg, collect: collector.Collect}
}

// Run performs the checks. Memory below the minimum fails; memory close
// to it and high load only warn.
func (p *Preflight) Run() PreflightResult {
	result := PreflightResult{OK: true}
	if !p.cfg.Enabled {
		return result
	}
	m := p.collect()
	result.Metrics = m

	if min := float64(p.cfg.MinFreeMemoryMB); min > 0 && m.MemTotalMB > 0 {
		switch {
		case m.MemAvailableMB < min:
			result.OK = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("insufficient free memory: %.0f MB available (minimum: %d MB)", m.MemAvailableMB, p.cfg.MinFreeMemoryMB))
		case m.MemAvailableMB < min*1.5:
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("free memory approaching limit: %.0f MB available", m.MemAvailableMB))
		}
	}

	if p.cfg.MaxLoadPerCPU > 0 && m.CPUThreads > 0 {
		perCPU := m.LoadAvg1 / float64(m.CPUThreads)
		if perCPU > p.cfg.MaxLoadPerCPU {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("high system load: %.2f per CPU (threshold: %.2f)", perCPU, p.cfg.MaxLoadPerCPU))
		}
	}
	return result
}
