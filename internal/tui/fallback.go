package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/hugo-lorenzo-mato/medpanel/internal/events"
)

// FallbackOutput prints deliberation events as plain lines, or as JSON
// lines in ModeJSON. It is used when stdout is not a terminal.
type FallbackOutput struct {
	writer   io.Writer
	mode     OutputMode
	useColor bool
	mu       sync.Mutex
	round    int
}

// NewFallbackOutput creates a line printer for mode.
func NewFallbackOutput(w io.Writer, mode OutputMode, useColor bool) *FallbackOutput {
	return &FallbackOutput{writer: w, mode: mode, useColor: useColor}
}

// Consume prints events until ch closes or a terminal event arrives.
func (f *FallbackOutput) Consume(ch <-chan events.Event) {
	for e := range ch {
		f.Handle(e)
		switch e.EventType() {
		case events.TypeCaseCompleted, events.TypeCaseFailed:
			return
		}
	}
}

// Handle prints one event.
func (f *FallbackOutput) Handle(e events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.mode {
	case ModeQuiet:
		return
	case ModeJSON:
		data, err := json.Marshal(e)
		if err != nil {
			return
		}
		fmt.Fprintf(f.writer, "%s\n", data)
		return
	}

	switch ev := e.(type) {
	case events.CaseStartedEvent:
		f.printf("%s case %s started\n", f.icon("start"), ev.CaseID())
	case events.TeamRecruitedEvent:
		f.printf("%s %s team: %s (%d advisors)\n", f.icon("team"), ev.Tier, strings.Join(ev.Teams, ", "), ev.Advisors)
	case events.AssessmentCompletedEvent:
		f.printf("  %s %s -> %s\n", f.icon("done"), ev.Specialty, orNone(ev.Recommendation))
	case events.DiscussionTurnEvent:
		if ev.Turn.Round != f.round {
			f.round = ev.Turn.Round
			f.printf("%s round %d\n", f.icon("round"), f.round)
		}
		f.printf("  %s: %s\n", f.style(SpeakerStyle, ev.Turn.Specialty), truncate(oneLine(ev.Turn.Message), 160))
	case events.FeedbackRoundEvent:
		f.printf("  %s\n", f.style(FeedbackStyle, fmt.Sprintf("moderator: %s at %.0f%%", orNone(ev.Majority), ev.AgreementRate*100)))
	case events.DecisionMadeEvent:
		team := ev.TeamKey
		if team == "" {
			team = "panel"
		}
		f.printf("%s %s decided %s (%s)\n", f.icon("decide"), team, orNone(ev.Decision.Choice),
			f.style(AgreementStyle(ev.Decision.AgreementRate), ev.Decision.ConsensusStatus))
	case events.CaseCompletedEvent:
		f.printf("%s completed: %s in %s, %d tokens\n", f.icon("ok"), orNone(ev.Choice), formatDuration(ev.Duration), ev.TotalTokens)
	case events.CaseFailedEvent:
		f.printf("%s failed: %s\n", f.icon("fail"), ev.Error)
	}
}

func (f *FallbackOutput) printf(format string, args ...interface{}) {
	fmt.Fprintf(f.writer, format, args...)
}

func (f *FallbackOutput) style(s lipgloss.Style, text string) string {
	if !f.useColor {
		return text
	}
	return s.Render(text)
}

func (f *FallbackOutput) icon(kind string) string {
	var icon string
	var style lipgloss.Style
	switch kind {
	case "start", "team":
		icon, style = "▶", RunningStyle
	case "done", "ok":
		icon, style = "✓", CompletedStyle
	case "round":
		icon, style = "◆", SubtleStyle
	case "decide":
		icon, style = "●", CompletedStyle
	case "fail":
		icon, style = "✗", FailedStyle
	default:
		icon, style = "•", PendingStyle
	}
	return f.style(style, icon)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
