package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/medpanel/internal/logging"
)

// CLIConfig configures a subprocess-backed model.
type CLIConfig struct {
	Name string
	// Path is the command, optionally with leading arguments ("ollama run llama3").
	Path    string
	Args    []string
	Model   string
	Timeout time.Duration
}

// CLI runs a local command per request, writing the rendered prompt to its
// stdin and reading the reply from stdout.
type CLI struct {
	config    CLIConfig
	logger    *logging.Logger
	preflight *diagnostics.Preflight
}

// NewCLI creates a subprocess model.
func NewCLI(cfg CLIConfig, logger *logging.Logger) *CLI {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &CLI{config: cfg, logger: logger}
}

// WithPreflight makes every call check host resources before spawning.
func (c *CLI) WithPreflight(p *diagnostics.Preflight) *CLI {
	c.preflight = p
	return c
}

// Name returns the configured model name.
func (c *CLI) Name() string {
	return c.config.Name
}

// CheckAvailability verifies the command exists on PATH.
func (c *CLI) CheckAvailability() error {
	parts := strings.Fields(c.config.Path)
	if len(parts) == 0 {
		return core.ErrValidation(core.CodeInvalidConfig, "command path not configured")
	}
	if _, err := exec.LookPath(parts[0]); err != nil {
		return core.ErrNotFound("command", parts[0])
	}
	return nil
}

// Submit runs the command once with the rendered prompt on stdin.
func (c *CLI) Submit(ctx context.Context, req core.Request) (*core.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if c.preflight != nil {
		result := c.preflight.Run()
		if !result.OK {
			return nil, core.ErrModel("PREFLIGHT_FAILED",
				fmt.Sprintf("preflight check failed: %v", result.Errors))
		}
		for _, w := range result.Warnings {
			c.logger.Warn("preflight warning before model call", "warning", w, "model", c.config.Name)
		}
	}

	parts := strings.Fields(c.config.Path)
	if len(parts) == 0 {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "command path not configured")
	}
	cmdPath := parts[0]
	args := append(parts[1:], c.config.Args...)

	// #nosec G204 -- command path and args come from validated config
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	stdin := renderTranscript(req)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "MEDPANEL_MANAGED=true", "MEDPANEL_MODEL="+c.config.Name)

	c.logger.Debug("cli: executing command",
		"model", c.config.Name,
		"path", cmdPath,
		"args", args,
		"stdin_length", len(stdin),
		"timeout", c.config.Timeout,
	)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		c.logger.Error("cli: command timeout", "model", c.config.Name, "duration", duration)
		return nil, core.ErrTimeout(fmt.Sprintf("%s: command timed out after %v", c.config.Name, c.config.Timeout))
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			c.logger.Error("cli: command failed",
				"model", c.config.Name,
				"exit_code", exitErr.ExitCode(),
				"stderr", truncate(stderr.String(), 2000),
			)
			return nil, classifyExit(c.config.Name, exitErr.ExitCode(), stderr.String())
		}
		return nil, core.ErrModel(core.CodeModelFailed, fmt.Sprintf("%s: executing command", c.config.Name)).WithCause(err)
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return nil, core.ErrModel(core.CodeEmptyResponse, fmt.Sprintf("%s: empty output", c.config.Name))
	}
	name := c.config.Model
	if name == "" {
		name = c.config.Name
	}
	return &core.Response{
		Text:     text,
		Usage:    core.TokenUsage{Input: EstimateTokens(stdin), Output: EstimateTokens(text)},
		Model:    name,
		Duration: duration,
	}, nil
}

// EstimateTokens approximates a token count for text (about four
// characters per token).
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// renderTranscript lays the request out as plain text for tools that take
// a single prompt.
func renderTranscript(req core.Request) string {
	var sb strings.Builder
	if req.SystemPrompt != "" {
		sb.WriteString(req.SystemPrompt)
		sb.WriteString("\n\n")
	}
	for _, ex := range req.Examples {
		fmt.Fprintf(&sb, "Example question:\n%s\n\nExample answer:\n%s\n\n", ex.User, ex.Assistant)
	}
	sb.WriteString(req.Prompt)
	return sb.String()
}

func classifyExit(name string, code int, stderr string) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = "(no error message captured)"
	}
	lower := strings.ToLower(msg)
	for _, kw := range []string{"rate limit", "too many requests", "429", "quota"} {
		if strings.Contains(lower, kw) {
			return core.ErrRateLimit(fmt.Sprintf("%s: %s", name, msg))
		}
	}
	return core.ErrModel(core.CodeModelFailed,
		fmt.Sprintf("%s: command failed with exit code %d: %s", name, code, truncate(msg, 500)))
}
