package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

// Prompt headings. Every rendered prompt starts with one of these lines.
const (
	HeadingAssessment  = "# Silent assessment"
	HeadingRoundRobin  = "# Round-robin discussion"
	HeadingFocused     = "# Focused discussion"
	HeadingOpen        = "# Open discussion"
	HeadingVote        = "# Consensus vote"
	HeadingFeedback    = "# Moderator feedback"
	HeadingDecision    = "# Final decision"
	HeadingAcknowledge = "# Acknowledgment"
	HeadingSolo        = "# Step-by-step consultation"
	HeadingClassify    = "# Complexity check"
	HeadingExplain     = "# Team composition"
)

// Responder produces the reply to the n-th call (starting at 0) for a heading.
type Responder func(req core.Request, n int) (string, error)

// ScriptedModel implements core.Model by routing each request on the first
// line of its prompt.
type ScriptedModel struct {
	name     string
	routes   map[string]Responder
	fallback string
	usage    core.TokenUsage
	calls    []core.Request
	counts   map[string]int
	mu       sync.Mutex
}

// NewScriptedModel creates a model that answers "OK" to anything unscripted.
func NewScriptedModel(name string) *ScriptedModel {
	return &ScriptedModel{
		name:     name,
		routes:   make(map[string]Responder),
		fallback: "OK",
		usage:    core.TokenUsage{Input: 100, Output: 50},
		counts:   make(map[string]int),
	}
}

// On scripts replies for a heading. Successive calls walk through replies
// and repeat the last one.
func (m *ScriptedModel) On(heading string, replies ...string) *ScriptedModel {
	return m.OnFunc(heading, func(_ core.Request, n int) (string, error) {
		if len(replies) == 0 {
			return "", nil
		}
		if n >= len(replies) {
			n = len(replies) - 1
		}
		return replies[n], nil
	})
}

// OnFunc scripts a heading with a custom responder.
func (m *ScriptedModel) OnFunc(heading string, fn Responder) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[heading] = fn
	return m
}

// Fail makes every call for a heading return err.
func (m *ScriptedModel) Fail(heading string, err error) *ScriptedModel {
	return m.OnFunc(heading, func(core.Request, int) (string, error) { return "", err })
}

// WithFallback sets the reply for unscripted headings.
func (m *ScriptedModel) WithFallback(text string) *ScriptedModel {
	m.fallback = text
	return m
}

// WithUsage sets the token usage reported per call.
func (m *ScriptedModel) WithUsage(u core.TokenUsage) *ScriptedModel {
	m.usage = u
	return m
}

// Name returns the model name.
func (m *ScriptedModel) Name() string {
	return m.name
}

// Submit answers req from the script.
func (m *ScriptedModel) Submit(ctx context.Context, req core.Request) (*core.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	heading := Heading(req.Prompt)

	m.mu.Lock()
	m.calls = append(m.calls, req)
	n := m.counts[heading]
	m.counts[heading]++
	fn, ok := m.routes[heading]
	m.mu.Unlock()

	text := m.fallback
	if ok {
		var err error
		if text, err = fn(req, n); err != nil {
			return nil, err
		}
	}
	return &core.Response{Text: text, Usage: m.usage, Model: m.name}, nil
}

// Calls returns a copy of every request received.
func (m *ScriptedModel) Calls() []core.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many requests carried heading.
func (m *ScriptedModel) CallCount(heading string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[heading]
}

// Heading returns the first line of a prompt.
func Heading(prompt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(prompt), "\n")
	return strings.TrimSpace(line)
}

// SBAR builds a well-formed silent assessment reply recommending letter.
func SBAR(letter string) string {
	return "SITUATION: presenting problem\n" +
		"BACKGROUND: relevant findings\n" +
		"ASSESSMENT: the findings fit best\n" +
		"RECOMMENDATION: proceed. Answer: (" + letter + ")"
}

// VoteReply builds a well-formed vote reply.
func VoteReply(letter, confidence string) string {
	return "VOTE: " + letter + "\nCONFIDENCE: " + confidence + "\nRATIONALE: best fit for the findings"
}

// DecisionReply builds a well-formed final decision reply.
func DecisionReply(letter string) string {
	return "DECISION: " + letter + "\n" +
		"PRIMARY RATIONALE: the panel weighed the evidence\n" +
		"MINORITY CONSIDERATION: none\n" +
		"FOLLOW-UP: reassess in 48 hours"
}
