package panel

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/logging"
	"github.com/hugo-lorenzo-mato/medpanel/internal/parse"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service"
)

// Team keys for deliberations that are not sub-teams.
const (
	TeamSolo  = "solo"
	TeamPanel = "panel"
)

// briefingLength caps the rationale handed to the next sub-team.
const briefingLength = 300

// ModelFor returns the model that backs a recruited member.
type ModelFor func(m core.Member) core.Model

// Outcome is the result of deliberating one case.
type Outcome struct {
	Deliberations []core.Deliberation
	Decision      core.FinalDecision
}

// Panel turns a recruitment into advisors and runs the protocol that fits it.
type Panel struct {
	models   ModelFor
	deps     Deps
	cfg      Config
	observer core.Observer
	logger   *logging.Logger
}

// New creates a panel runner. observer may be nil.
func New(models ModelFor, deps Deps, cfg Config, observer core.Observer) *Panel {
	deps = deps.withDefaults()
	if observer == nil {
		observer = core.NopObserver{}
	}
	if cfg.MaxRounds < 1 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	return &Panel{models: models, deps: deps, cfg: cfg, observer: observer, logger: deps.Logger}
}

// Deliberate runs the protocol for rec: a single consultation, one flat
// panel, or the sub-teams in order.
func (p *Panel) Deliberate(ctx context.Context, c *core.Case, rec core.Recruitment) (Outcome, error) {
	if err := c.Validate(); err != nil {
		return Outcome{}, err
	}
	switch {
	case rec.Solo != nil:
		d := p.RunSolo(ctx, c, *rec.Solo)
		if err := ctx.Err(); err != nil {
			return Outcome{}, core.ErrInterrupted(err)
		}
		return Outcome{Deliberations: []core.Deliberation{d}, Decision: d.Decision}, nil
	case rec.Panel != nil:
		d, err := p.RunTeam(ctx, c, *rec.Panel, TeamPanel, "")
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Deliberations: []core.Deliberation{d}, Decision: d.Decision}, nil
	case len(rec.SubTeams) > 0:
		ds, err := p.RunHierarchical(ctx, c, rec.SubTeams)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Deliberations: ds, Decision: ds[len(ds)-1].Decision}, nil
	}
	return Outcome{}, core.ErrValidation(core.CodeInvalidTier, "recruitment has no team")
}

// RunTeam deliberates with one team.
func (p *Panel) RunTeam(ctx context.Context, c *core.Case, team core.Team, key, name string) (core.Deliberation, error) {
	lead, err := NewLead(team.Lead, p.models(team.Lead), p.deps, name)
	if err != nil {
		return core.Deliberation{}, err
	}
	members := make([]Advisor, 0, len(team.Members))
	for _, m := range team.Members {
		a, err := NewConsultant(m, p.models(m), p.deps, name)
		if err != nil {
			return core.Deliberation{}, err
		}
		members = append(members, a)
	}

	coord := NewCoordinator(lead, members, p.cfg,
		WithObserver(p.observer),
		WithLogger(p.logger),
		WithTeamKey(key))
	return coord.Run(ctx, c)
}

// RunHierarchical runs the sub-teams in order. Each sub-team is briefed
// with the decisions of the teams before it; the last decision is final.
// A done context stops before the next sub-team starts.
func (p *Panel) RunHierarchical(ctx context.Context, c *core.Case, subs []core.SubTeam) ([]core.Deliberation, error) {
	out := make([]core.Deliberation, 0, len(subs))
	current := c
	for _, st := range subs {
		if err := ctx.Err(); err != nil {
			return out, core.ErrInterrupted(err)
		}
		d, err := p.RunTeam(ctx, current, st.Team, st.Key, st.Name)
		if err != nil {
			return out, fmt.Errorf("sub-team %s: %w", st.Key, err)
		}
		out = append(out, d)
		current = current.WithBriefing(Briefing(st.Name, d.Decision))
	}
	return out, nil
}

// Briefing is the hand-off note a sub-team leaves for the next one.
func Briefing(teamName string, d core.FinalDecision) string {
	if d.Choice == "" {
		return fmt.Sprintf("%s reached no decision.", teamName)
	}
	note := fmt.Sprintf("%s chose %s (agreement %.0f%%)", teamName, d.Choice, d.AgreementRate*100)
	if d.Rationale != "" {
		note += ": " + service.Truncate(briefingLength, d.Rationale)
	}
	return note
}

// Solo answers a case alone with step-by-step reasoning.
type Solo struct {
	*advisor
}

// NewSolo builds a solo advisor backed by model.
func NewSolo(m core.Member, model core.Model, deps Deps) (*Solo, error) {
	a, err := newAdvisor(m, model, deps, "", service.TmplSystemAdvisor)
	if err != nil {
		return nil, err
	}
	return &Solo{advisor: a}, nil
}

// Consult reasons through the case with worked examples and extracts the answer.
func (s *Solo) Consult(ctx context.Context, c *core.Case) core.StructuredAssessment {
	text := s.askWithExamples(ctx, service.TmplSolo,
		service.AssessmentParams{Case: service.NewCaseView(c), AdvisorParams: s.params()},
		service.TempSolo, service.SoloExamples)
	sa := parse.Assessment(text, c.Options.Letters())

	s.mu.Lock()
	s.assessment = &sa
	s.mu.Unlock()
	return sa
}

// RunSolo consults a single advisor. The answer is its own decision.
func (p *Panel) RunSolo(ctx context.Context, c *core.Case, m core.Member) core.Deliberation {
	log := p.logger.WithCase(c.ID).WithSubTeam(TeamSolo)
	rec := core.Deliberation{TeamKey: TeamSolo}

	solo, err := NewSolo(m, p.models(m), p.deps)
	var sa core.StructuredAssessment
	if err != nil {
		log.Error("building solo advisor", "error", err)
	} else {
		sa = solo.Consult(ctx, c)
	}

	a := core.AdvisorAssessment{AdvisorID: m.ID, Specialty: m.Specialty, Assessment: sa}
	rec.Assessments = []core.AdvisorAssessment{a}
	p.observer.AssessmentCompleted(c.ID, a)

	rec.InitialCheck = core.Tally([]string{sa.RecommendedAnswer}, c.Options.Letters(), core.ConsensusThreshold)
	rec.Decision = core.FinalDecision{
		Choice:            sa.RecommendedAnswer,
		Rationale:         sa.Raw,
		ConsensusStatus:   "single advisor",
		ConsensusAchieved: rec.InitialCheck.HasConsensus,
		AgreementRate:     rec.InitialCheck.AgreementRate,
		Raw:               sa.Raw,
	}
	p.observer.DecisionMade(c.ID, TeamSolo, rec.Decision)
	log.Info("solo decision", "choice", rec.Decision.Choice)
	return rec
}
