package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/events"
)

// RunFunc deliberates a case.
type RunFunc func(ctx context.Context) (*core.CaseResult, error)

// Watch runs a consultation under the live view and returns the runner's
// result. Quitting the view cancels the consultation.
func Watch(ctx context.Context, c *core.Case, bus *events.EventBus, run RunFunc, out io.Writer, color bool) (*core.CaseResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	adapter := NewEventBusAdapter(bus, c.ID)
	defer adapter.Close()

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	p := tea.NewProgram(New(c, WithAdapter(adapter), WithCancel(cancel), WithColor(color)), opts...)

	type outcome struct {
		result *core.CaseResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := run(ctx)
		done <- outcome{result, err}
		p.Send(ResultMsg{Result: result, Err: err})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-done
		return nil, err
	}
	o := <-done
	return o.result, o.err
}
