// Package panel runs the deliberation protocol over a recruited team.
package panel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/logging"
	"github.com/hugo-lorenzo-mato/medpanel/internal/parse"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service"
)

// DefaultMaxTokens caps every advisor reply.
const DefaultMaxTokens = 1500

// Advisor is one panel participant for a single case.
type Advisor interface {
	Profile() core.Member
	Assess(ctx context.Context, c *core.Case) core.StructuredAssessment
	Discuss(ctx context.Context, d Discussion) core.DiscussionTurn
	Vote(ctx context.Context, c *core.Case, summary string) core.Vote
	Acknowledge(ctx context.Context, d core.FinalDecision) string
	Receive(f core.Feedback)

	Assessment() (core.StructuredAssessment, bool)
	LastVote() (core.Vote, bool)
	History() []core.DiscussionTurn
	Preference(fallback string) string
}

// Chair is the advisor that moderates the panel and owns the decision.
type Chair interface {
	Advisor
	Moderate(ctx context.Context, c *core.Case, round int, check core.ConsensusCheck, recent []core.DiscussionTurn) string
	Decide(ctx context.Context, in DecisionInput) core.FinalDecision
}

// Deps are the collaborators shared by every advisor of a case.
type Deps struct {
	Prompts   *service.PromptRenderer
	Logger    *logging.Logger
	MaxTokens int
}

func (d Deps) withDefaults() Deps {
	if d.Prompts == nil {
		d.Prompts = service.MustPromptRenderer()
	}
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	if d.MaxTokens <= 0 {
		d.MaxTokens = DefaultMaxTokens
	}
	return d
}

// advisor holds the behavior shared by consultants and leads.
type advisor struct {
	member    core.Member
	model     core.Model
	prompts   *service.PromptRenderer
	logger    *logging.Logger
	system    string
	teamName  string
	maxTokens int

	mu         sync.Mutex
	assessment *core.StructuredAssessment
	vote       *core.Vote
	history    []core.DiscussionTurn
}

func newAdvisor(m core.Member, model core.Model, deps Deps, teamName, systemTmpl string) (*advisor, error) {
	deps = deps.withDefaults()
	a := &advisor{
		member:    m,
		model:     model,
		prompts:   deps.Prompts,
		logger:    deps.Logger.WithAdvisor(m.ID, m.Specialty),
		teamName:  teamName,
		maxTokens: deps.MaxTokens,
	}
	system, err := a.prompts.Render(systemTmpl, a.params())
	if err != nil {
		return nil, fmt.Errorf("rendering system prompt for %s: %w", m.ID, err)
	}
	a.system = system
	return a, nil
}

func (a *advisor) params() service.AdvisorParams {
	return service.AdvisorParams{Specialty: a.member.Specialty, Expertise: a.member.Expertise, TeamName: a.teamName}
}

func (a *advisor) isLead() bool {
	return a.member.Role == core.RoleLead
}

// ask renders a prompt and submits it. Failures are logged and degrade to "".
func (a *advisor) ask(ctx context.Context, tmpl string, data interface{}, temperature float64) string {
	return a.askWithExamples(ctx, tmpl, data, temperature, nil)
}

func (a *advisor) askWithExamples(ctx context.Context, tmpl string, data interface{}, temperature float64, examples []core.Example) string {
	prompt, err := a.prompts.Render(tmpl, data)
	if err != nil {
		a.logger.Error("rendering prompt", "template", tmpl, "error", err)
		return ""
	}
	resp, err := a.model.Submit(ctx, core.Request{
		SystemPrompt: a.system,
		Examples:     examples,
		Prompt:       prompt,
		Temperature:  temperature,
		MaxTokens:    a.maxTokens,
	})
	if err != nil {
		a.logger.Warn("model call failed", "template", tmpl, "error", err)
		return ""
	}
	return resp.Text
}

func (a *advisor) Profile() core.Member {
	return a.member
}

func (a *advisor) Assess(ctx context.Context, c *core.Case) core.StructuredAssessment {
	tmpl := service.TmplAssessment
	if a.isLead() {
		tmpl = service.TmplLeadAssessment
	}
	text := a.ask(ctx, tmpl, service.AssessmentParams{Case: service.NewCaseView(c), AdvisorParams: a.params()}, service.TempAssessment)
	sa := parse.Assessment(text, c.Options.Letters())

	a.mu.Lock()
	a.assessment = &sa
	a.mu.Unlock()
	return sa
}

func (a *advisor) Discuss(ctx context.Context, d Discussion) core.DiscussionTurn {
	var text string
	cv := service.NewCaseView(d.Case)
	feedback := a.feedbackNotes()

	switch d.Kind {
	case KindRoundRobin:
		own, _ := a.Assessment()
		text = a.ask(ctx, service.TmplRoundRobin, service.RoundRobinParams{
			Case:           cv,
			AdvisorParams:  a.params(),
			Previous:       summarize(d.Previous),
			Assessment:     own.Assessment,
			Recommendation: own.RecommendedAnswer,
			Feedback:       feedback,
			IsLead:         a.isLead(),
		}, service.TempDiscussion)
	case KindFocused:
		text = a.ask(ctx, service.TmplFocused, service.FocusedParams{
			Case:          cv,
			AdvisorParams: a.params(),
			OwnChoice:     a.Preference(""),
			Groups:        groupViews(d.Case, d.Positions),
			Feedback:      feedback,
		}, service.TempDiscussion)
	default:
		text = a.ask(ctx, service.TmplOpen, service.OpenParams{
			Case:          cv,
			AdvisorParams: a.params(),
			Round:         d.Round,
			Topic:         d.Topic,
			Tally:         tallyLines(d.Case, d.Tally),
			Feedback:      feedback,
		}, service.TempDiscussion)
	}

	turn := core.DiscussionTurn{
		Speaker:   a.member.ID,
		Specialty: a.member.Specialty,
		Round:     d.Round,
		Message:   text,
		Topic:     d.Topic,
		At:        time.Now(),
	}
	a.mu.Lock()
	a.history = append(a.history, turn)
	a.mu.Unlock()
	return turn
}

func (a *advisor) Vote(ctx context.Context, c *core.Case, summary string) core.Vote {
	text := a.ask(ctx, service.TmplVote, service.VoteParams{
		Case:          service.NewCaseView(c),
		AdvisorParams: a.params(),
		Summary:       summary,
		IsLead:        a.isLead(),
	}, service.TempVote)
	v := parse.Vote(text, c.Options.Letters())

	a.mu.Lock()
	a.vote = &v
	a.mu.Unlock()
	return v
}

func (a *advisor) Acknowledge(ctx context.Context, d core.FinalDecision) string {
	return a.ask(ctx, service.TmplAcknowledge, service.AcknowledgeParams{
		AdvisorParams: a.params(),
		Choice:        d.Choice,
		Rationale:     d.Rationale,
	}, service.TempAcknowledge)
}

func (a *advisor) Receive(f core.Feedback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, core.DiscussionTurn{
		Speaker: feedbackSpeaker,
		Round:   f.Round,
		Message: f.Message,
		Topic:   feedbackTopic,
		At:      time.Now(),
	})
}

func (a *advisor) Assessment() (core.StructuredAssessment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.assessment == nil {
		return core.StructuredAssessment{}, false
	}
	return *a.assessment, true
}

func (a *advisor) LastVote() (core.Vote, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.vote == nil {
		return core.Vote{}, false
	}
	return *a.vote, true
}

func (a *advisor) History() []core.DiscussionTurn {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.DiscussionTurn, len(a.history))
	copy(out, a.history)
	return out
}

// Preference is the latest vote with a choice, else the silent
// recommendation, else fallback.
func (a *advisor) Preference(fallback string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.vote != nil && a.vote.Choice != "" {
		return a.vote.Choice
	}
	if a.assessment != nil && a.assessment.RecommendedAnswer != "" {
		return a.assessment.RecommendedAnswer
	}
	return fallback
}

func (a *advisor) feedbackNotes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var notes []string
	for _, t := range a.history {
		if t.Topic == feedbackTopic && t.Message != "" {
			notes = append(notes, t.Message)
		}
	}
	return notes
}

// Consultant is a consulting panel member.
type Consultant struct {
	*advisor
}

// NewConsultant builds a consulting advisor backed by model.
func NewConsultant(m core.Member, model core.Model, deps Deps, teamName string) (*Consultant, error) {
	a, err := newAdvisor(m, model, deps, teamName, service.TmplSystemAdvisor)
	if err != nil {
		return nil, err
	}
	return &Consultant{advisor: a}, nil
}
