package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

// Stage is the coarse progress shown in the header.
type Stage string

const (
	StageStarting   Stage = "starting"
	StageAssessing  Stage = "assessing"
	StageDiscussing Stage = "discussing"
	StageDeciding   Stage = "deciding"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

const (
	transcriptHeight = 12
	maxTranscript    = 500
)

// AdvisorView is one row of the advisor list.
type AdvisorView struct {
	ID             string
	Specialty      string
	Recommendation string
}

// Model is the live view of a single consultation.
type Model struct {
	caseID     string
	question   string
	options    core.Options
	tier       core.Tier
	teams      []string
	expected   int
	advisors   []AdvisorView
	transcript []string
	decisions  []DecisionMsg
	round      int
	stage      Stage
	started    time.Time
	completed  *CaseCompletedMsg
	result     *core.CaseResult
	err        error
	dropped    int64

	spinner  spinner.Model
	viewport viewport.Model
	width    int
	color    bool

	adapter *EventBusAdapter
	cancel  context.CancelFunc
	now     func() time.Time
}

// Option configures the watch model.
type Option func(*Model)

// WithAdapter feeds the model from an event bus adapter.
func WithAdapter(a *EventBusAdapter) Option {
	return func(m *Model) { m.adapter = a }
}

// WithCancel sets the function called when the user quits early.
func WithCancel(cancel context.CancelFunc) Option {
	return func(m *Model) { m.cancel = cancel }
}

// WithColor toggles glamour styling of the final decision.
func WithColor(color bool) Option {
	return func(m *Model) { m.color = color }
}

// New creates the watch model for c.
func New(c *core.Case, opts ...Option) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = RunningStyle

	m := Model{
		caseID:   c.ID,
		question: c.Question,
		options:  c.Options,
		tier:     c.Tier,
		stage:    StageStarting,
		spinner:  sp,
		viewport: viewport.New(80, transcriptHeight),
		width:    80,
		now:      time.Now,
	}
	m.started = m.now()
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.adapter != nil {
		cmds = append(cmds, m.adapter.Next())
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.finished() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ResultMsg:
		m.result = msg.Result
		if msg.Err != nil && msg.Result == nil {
			m.err = msg.Err
			m.stage = StageFailed
		} else {
			m.stage = StageDone
		}
		return m, tea.Quit

	case eventClosedMsg:
		return m, nil
	}

	m.apply(msg)
	if m.adapter != nil {
		return m, m.adapter.Next()
	}
	return m, nil
}

// apply folds a deliberation message into the view state.
func (m *Model) apply(msg tea.Msg) {
	switch msg := msg.(type) {
	case CaseStartedMsg:
		m.question = msg.Question
	case TeamRecruitedMsg:
		m.tier = msg.Tier
		m.teams = msg.Teams
		m.expected = msg.Advisors
		m.stage = StageAssessing
	case AssessmentMsg:
		m.advisors = append(m.advisors, AdvisorView{ID: msg.AdvisorID, Specialty: msg.Specialty, Recommendation: msg.Recommendation})
	case TurnMsg:
		m.stage = StageDiscussing
		if msg.Turn.Round != m.round {
			m.round = msg.Turn.Round
			m.appendTranscript(SubtleStyle.Render(fmt.Sprintf("── round %d ──", m.round)))
		}
		line := SpeakerStyle.Render(msg.Turn.Specialty) + ": " + oneLine(msg.Turn.Message)
		if msg.Turn.Topic != "" {
			line = SpeakerStyle.Render(msg.Turn.Specialty) + SubtleStyle.Render(" ("+msg.Turn.Topic+")") + ": " + oneLine(msg.Turn.Message)
		}
		m.appendTranscript(line)
	case FeedbackMsg:
		m.appendTranscript(FeedbackStyle.Render(fmt.Sprintf("moderator, round %d (%s at %.0f%%): %s",
			msg.Round, orNone(msg.Majority), msg.AgreementRate*100, oneLine(msg.Message))))
	case DecisionMsg:
		m.decisions = append(m.decisions, msg)
		m.stage = StageDeciding
	case CaseCompletedMsg:
		m.completed = &msg
		m.stage = StageDone
	case CaseFailedMsg:
		m.stage = StageFailed
		m.err = fmt.Errorf("%s", msg.Error)
	case DroppedEventsMsg:
		m.dropped = msg.Count
	}
}

func (m *Model) appendTranscript(line string) {
	m.transcript = append(m.transcript, line)
	if len(m.transcript) > maxTranscript {
		m.transcript = m.transcript[len(m.transcript)-maxTranscript:]
	}
	m.viewport.SetContent(strings.Join(m.transcript, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) finished() bool {
	return m.stage == StageDone || m.stage == StageFailed
}

// Result returns the case result once the runner has returned.
func (m Model) Result() *core.CaseResult {
	return m.result
}

// Err returns the consultation error, if any.
func (m Model) Err() error {
	return m.err
}

// Stage returns the current stage.
func (m Model) Stage() Stage {
	return m.stage
}

// View renders the TUI.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n\n")
	sb.WriteString(oneLine(m.question))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderAdvisors())
	if len(m.transcript) > 0 {
		sb.WriteString("\n")
		sb.WriteString(BoxStyle.Render(m.viewport.View()))
		sb.WriteString("\n")
	}

	switch {
	case m.stage == StageFailed && m.err != nil:
		sb.WriteString("\n" + ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
	case m.result != nil:
		sb.WriteString("\n" + RenderResult(m.result, m.width, m.color))
	default:
		sb.WriteString(m.renderFooter())
	}
	return sb.String()
}

func (m Model) renderHeader() string {
	elapsed := m.now().Sub(m.started)
	if m.completed != nil {
		elapsed = m.completed.Duration
	}
	title := HeaderStyle.Render("Case " + m.caseID)
	badge := StageBadge(m.stage).Render(string(m.stage))
	tier := "classifying"
	if m.tier != "" {
		tier = string(m.tier)
	}
	status := fmt.Sprintf(" %s %s %s", badge, SubtleStyle.Render(tier), SubtleStyle.Render(formatDuration(elapsed)))
	if !m.finished() {
		status += " " + m.spinner.View()
	}
	return title + status
}

func (m Model) renderAdvisors() string {
	if m.expected == 0 && len(m.advisors) == 0 {
		return SubtleStyle.Render("recruiting team...") + "\n"
	}
	var sb strings.Builder
	if len(m.teams) > 0 {
		sb.WriteString(SubtleStyle.Render(strings.Join(m.teams, " → ")) + "\n")
	}
	for _, a := range m.advisors {
		rec := PendingStyle.Render("no answer")
		if a.Recommendation != "" {
			rec = CompletedStyle.Render(a.Recommendation + ") " + m.options[a.Recommendation])
		}
		sb.WriteString(AdvisorStyle.Render(fmt.Sprintf("✓ %s", a.Specialty)) + "  " + rec + "\n")
	}
	if waiting := m.expected - len(m.advisors); waiting > 0 && m.stage == StageAssessing {
		sb.WriteString(AdvisorStyle.Render(fmt.Sprintf("%s %d assessment(s) pending", m.spinner.View(), waiting)) + "\n")
	}
	for _, d := range m.decisions {
		if d.TeamKey == "" {
			continue
		}
		sb.WriteString(AgreementStyle(d.Decision.AgreementRate).Render(fmt.Sprintf("  %s decided %s (%s)", d.TeamKey, orNone(d.Decision.Choice), d.Decision.ConsensusStatus)) + "\n")
	}
	return sb.String()
}

func (m Model) renderFooter() string {
	footer := "q: quit | ↑/↓: scroll"
	if m.dropped > 0 {
		footer += fmt.Sprintf(" | ⚠ %d dropped", m.dropped)
	}
	return FooterStyle.Render(footer)
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
