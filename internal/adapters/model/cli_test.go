//go:build !windows

package model

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

func TestCLI_SubmitEchoesStdin(t *testing.T) {
	t.Parallel()
	m := NewCLI(CLIConfig{Name: "echo", Path: "cat"}, nil)
	req := core.Request{
		SystemPrompt: "You are a neurologist.",
		Examples:     []core.Example{{User: "Q1", Assistant: "A1"}},
		Prompt:       "Which diagnosis?",
	}
	resp, err := m.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "You are a neurologist.\n\nExample question:\nQ1\n\nExample answer:\nA1\n\nWhich diagnosis?", resp.Text)
	assert.Equal(t, "echo", resp.Model)
	assert.Equal(t, EstimateTokens(renderTranscript(req)), resp.Usage.Input)
	assert.Equal(t, resp.Usage.Input, resp.Usage.Output)
}

func TestCLI_PathWithArguments(t *testing.T) {
	t.Parallel()
	m := NewCLI(CLIConfig{Name: "sh", Path: "sh -c", Args: []string{"echo Answer: C; cat >/dev/null"}, Model: "local-llm"}, nil)
	resp, err := m.Submit(context.Background(), core.Request{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "Answer: C", resp.Text)
	assert.Equal(t, "local-llm", resp.Model)
}

func TestCLI_Failures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		script   string
		category core.ErrorCategory
	}{
		{"exit code", "echo boom >&2; exit 3", core.ErrCatModel},
		{"rate limit", "echo 'Error: 429 Too Many Requests' >&2; exit 1", core.ErrCatRateLimit},
		{"empty output", "cat >/dev/null", core.ErrCatModel},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewCLI(CLIConfig{Name: "sh", Path: "sh", Args: []string{"-c", tt.script}}, nil)
			_, err := m.Submit(context.Background(), core.Request{Prompt: "q"})
			require.Error(t, err)
			assert.Equal(t, tt.category, core.GetCategory(err), "got %v", err)
		})
	}
}

func TestCLI_Timeout(t *testing.T) {
	t.Parallel()
	m := NewCLI(CLIConfig{Name: "slow", Path: "sleep", Args: []string{"5"}, Timeout: 50 * time.Millisecond}, nil)
	_, err := m.Submit(context.Background(), core.Request{Prompt: "q"})
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatTimeout), "got %v", err)
}

func TestCLI_CheckAvailability(t *testing.T) {
	t.Parallel()
	assert.NoError(t, NewCLI(CLIConfig{Path: "sh -c"}, nil).CheckAvailability())

	err := NewCLI(CLIConfig{Path: "medpanel-missing-binary"}, nil).CheckAvailability()
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))

	err = NewCLI(CLIConfig{}, nil).CheckAvailability()
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestEstimateTokens(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))
}
