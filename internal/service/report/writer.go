// Package report writes case transcripts to disk as markdown and JSON.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

// Transcript formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Config configures the report writer
type Config struct {
	BaseDir string   // default: ".medpanel/reports"
	Formats []string // markdown, json
	UseUTC  bool     // default: true
	Enabled bool     // whether to write reports
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseDir: filepath.Join(".medpanel", "reports"),
		Formats: []string{FormatMarkdown, FormatJSON},
		UseUTC:  true,
		Enabled: true,
	}
}

// Writer writes one directory per case under BaseDir:
//
//	<base>/<case-id>/transcript.md
//	<base>/<case-id>/case.json
type Writer struct {
	mu     sync.Mutex
	config Config
}

// NewWriter creates a transcript writer.
func NewWriter(cfg Config) *Writer {
	if len(cfg.Formats) == 0 {
		cfg.Formats = DefaultConfig().Formats
	}
	return &Writer{config: cfg}
}

// IsEnabled returns whether reports are enabled
func (w *Writer) IsEnabled() bool {
	return w.config.Enabled
}

// CaseDir returns the directory for a case.
func (w *Writer) CaseDir(caseID string) string {
	return filepath.Join(w.config.BaseDir, sanitizeFilename(caseID))
}

// Write renders result in every configured format and returns the case
// directory. Files are replaced atomically.
func (w *Writer) Write(result *core.CaseResult) (string, error) {
	if !w.config.Enabled {
		return "", nil
	}
	if result == nil || result.Case.ID == "" {
		return "", core.ErrValidation(core.CodeInvalidConfig, "case result without an ID")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	dir := w.CaseDir(result.Case.ID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	for _, format := range w.config.Formats {
		var (
			name string
			data []byte
			err  error
		)
		switch format {
		case FormatMarkdown:
			name = "transcript.md"
			data, err = w.markdown(result)
		case FormatJSON:
			name = "case.json"
			data, err = json.MarshalIndent(result, "", "  ")
		default:
			return "", core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf("unknown report format %q", format))
		}
		if err != nil {
			return "", fmt.Errorf("rendering %s: %w", format, err)
		}
		if err := renameio.WriteFile(filepath.Join(dir, name), data, 0o640); err != nil {
			return "", fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return dir, nil
}

func (w *Writer) markdown(result *core.CaseResult) ([]byte, error) {
	header, err := renderFrontmatter(result, w.config.UseUTC)
	if err != nil {
		return nil, err
	}
	return []byte(header + RenderMarkdown(result)), nil
}
