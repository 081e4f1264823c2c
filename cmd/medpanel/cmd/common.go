package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/hugo-lorenzo-mato/medpanel/internal/adapters/model"
	"github.com/hugo-lorenzo-mato/medpanel/internal/adapters/store"
	"github.com/hugo-lorenzo-mato/medpanel/internal/config"
	"github.com/hugo-lorenzo-mato/medpanel/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/medpanel/internal/events"
	"github.com/hugo-lorenzo-mato/medpanel/internal/logging"
	"github.com/hugo-lorenzo-mato/medpanel/internal/panel"
	"github.com/hugo-lorenzo-mato/medpanel/internal/recruit"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service/consult"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service/report"
	"github.com/hugo-lorenzo-mato/medpanel/internal/specialty"
	"github.com/hugo-lorenzo-mato/medpanel/internal/tracing"
)

const (
	eventBufferSize = 256
	// tuiLogFile receives logs while the live view owns the terminal.
	tuiLogFile = "medpanel.log"
)

// app holds every collaborator of a consultation, built from configuration.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	recruiter *recruit.Recruiter
	models    *model.Registry
	store     *store.SQLiteStore
	bus       *events.EventBus
	runner    *consult.Runner
	tracer    *sdktrace.TracerProvider
	closers   []io.Closer
}

type appOptions struct {
	// logToFile sends logs to a file instead of stderr.
	logToFile bool
	// withoutStore skips opening the case database.
	withoutStore bool
}

// loadConfig reads and validates configuration using the global viper
// instance so flag bindings apply.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// newLogger creates the logger described by cfg. toFile redirects output
// to cfg.File, or to the default log file under the config directory.
func newLogger(cfg config.LogConfig, toFile bool) (*logging.Logger, io.Closer, error) {
	lc := logging.Config{
		Level:             cfg.Level,
		Format:            cfg.Format,
		Output:            os.Stderr,
		RedactIdentifiers: cfg.RedactIdentifiers,
	}
	path := cfg.File
	if path == "" && toFile {
		path = filepath.Join(config.DefaultConfigDir, tuiLogFile)
	}
	if path == "" {
		return logging.New(lc), nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304 -- path from configuration
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	lc.Output = f
	if lc.Format == "auto" {
		lc.Format = "text"
	}
	return logging.New(lc), f, nil
}

// loadCatalog reads the configured specialty catalog, or the built-in one
// when no path is set.
func loadCatalog(path string) (*specialty.Catalog, error) {
	if path == "" {
		return specialty.Default(), nil
	}
	c, err := specialty.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading specialty catalog: %w", err)
	}
	return c, nil
}

// newModelRegistry builds the model registry with retries, rate limiting,
// host preflight checks and optional tracing.
func newModelRegistry(cfg *config.Config, logger *logging.Logger) *model.Registry {
	retry := service.NewRetryPolicy(
		service.WithMaxAttempts(cfg.Retry.MaxAttempts),
		service.WithBaseDelay(cfg.Retry.BaseDelay),
		service.WithMaxDelay(cfg.Retry.MaxDelay),
		service.WithJitter(cfg.Retry.Jitter),
	)
	limiters := service.NewRateLimiterRegistry(service.RateLimiterConfig{
		MaxTokens:  cfg.RateLimit.Burst,
		RefillRate: cfg.RateLimit.PerSecond,
	})
	var preflight *diagnostics.Preflight
	if cfg.Preflight.Enabled {
		preflight = diagnostics.NewPreflight(diagnostics.PreflightConfig{
			Enabled:         true,
			MinFreeMemoryMB: cfg.Preflight.MinFreeMemoryMB,
			MaxLoadPerCPU:   cfg.Preflight.MaxLoadPerCPU,
		}, diagnostics.NewCollector(false))
	}
	return model.NewRegistry(cfg.Models, model.RegistryOptions{
		Retry:     retry,
		Limiters:  limiters,
		Preflight: preflight,
		Tracing:   cfg.Tracing.Enabled,
		Logger:    logger,
	})
}

// newApp wires configuration, logging, recruitment, models, persistence,
// transcripts and events into a case runner.
func newApp(opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, logCloser, err := newLogger(cfg.Log, opts.logToFile)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	if logCloser != nil {
		a.closers = append(a.closers, logCloser)
	}

	catalog, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.recruiter = recruit.New(specialty.NewScorer(catalog))
	a.tracer = tracing.Init(cfg.Tracing.Enabled, appVersion, logger)
	a.models = newModelRegistry(cfg, logger)
	a.bus = events.New(eventBufferSize)

	deps := consult.RunnerDeps{
		Config: &consult.RunnerConfig{
			Panel: panel.Config{
				MaxRounds:           cfg.Panel.MaxRounds,
				ParallelAssessments: cfg.Panel.ParallelAssessments,
				ParallelVotes:       cfg.Panel.ParallelVotes,
			},
			Timeout:   cfg.Panel.Timeout,
			MaxTokens: cfg.Panel.MaxTokens,
			Explain:   cfg.Panel.Explain,
		},
		Recruiter: a.recruiter,
		Models:    a.models,
		Notifier:  events.NewBusObserver(a.bus),
		Logger:    logger,
	}

	if cfg.Store.Enabled && !opts.withoutStore {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o750); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		s, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("opening case store: %w", err)
		}
		a.store = s
		a.closers = append(a.closers, s)
		deps.Store = s
	}

	if cfg.Report.Enabled {
		deps.Reports = report.NewWriter(report.Config{
			BaseDir: cfg.Report.Dir,
			Formats: cfg.Report.Formats,
			UseUTC:  true,
			Enabled: true,
		})
	}

	a.runner, err = consult.NewRunner(deps)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// requireStore returns the case store or an error explaining it is off.
func (a *app) requireStore() (*store.SQLiteStore, error) {
	if a.store == nil {
		return nil, errors.New("case store is disabled (store.enabled: false)")
	}
	return a.store, nil
}

// Close flushes spans and releases the store and log file.
func (a *app) Close() error {
	var errs []error
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, tracing.Shutdown(ctx, a.tracer))
		cancel()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
