package logging

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Logger wraps slog.Logger with panel-aware helpers and redaction.
type Logger struct {
	*slog.Logger
	redactor *Redactor
}

// Config configures the logger.
type Config struct {
	Level  string
	Format string // auto, text, json
	Output io.Writer
	// RedactIdentifiers also masks patient identifiers (MRN, SSN, phone) in log output.
	RedactIdentifiers bool
	AddSource         bool
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:             "info",
		Format:            "auto",
		Output:            os.Stderr,
		RedactIdentifiers: true,
	}
}

// New creates a new logger.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level), AddSource: cfg.AddSource}
	redactor := NewRedactor(cfg.RedactIdentifiers)

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(cfg.Output, opts)
	case "text":
		handler = slog.NewTextHandler(cfg.Output, opts)
	default:
		if isTerminal(cfg.Output) {
			handler = NewConsoleHandler(cfg.Output, opts.Level.Level())
		} else {
			handler = slog.NewJSONHandler(cfg.Output, opts)
		}
	}

	return &Logger{
		Logger:   slog.New(NewRedactingHandler(handler, redactor)),
		redactor: redactor,
	}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		redactor: NewRedactor(false),
	}
}

// ParseLevel maps a level name to a slog level; unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func (l *Logger) derive(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), redactor: l.redactor}
}

// WithCase scopes the logger to a single case.
func (l *Logger) WithCase(caseID string) *Logger {
	return l.derive("case_id", caseID)
}

// WithAdvisor scopes the logger to one panel advisor.
func (l *Logger) WithAdvisor(id, specialty string) *Logger {
	return l.derive("advisor", id, "specialty", specialty)
}

// WithRound scopes the logger to a deliberation round.
func (l *Logger) WithRound(round int) *Logger {
	return l.derive("round", round)
}

// WithSubTeam scopes the logger to a hierarchical sub-team.
func (l *Logger) WithSubTeam(key string) *Logger {
	return l.derive("subteam", key)
}

// WithModel scopes the logger to a model adapter.
func (l *Logger) WithModel(name string) *Logger {
	return l.derive("model", name)
}

// With returns a logger with custom fields.
func (l *Logger) With(args ...any) *Logger {
	return l.derive(args...)
}

// Redact applies the logger's redaction rules to s.
func (l *Logger) Redact(s string) string {
	return l.redactor.Redact(s)
}
