package panel

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/logging"
)

// DefaultMaxRounds bounds the round loop when no limit is configured.
const DefaultMaxRounds = 5

// Config tunes the deliberation protocol.
type Config struct {
	MaxRounds int `mapstructure:"max_rounds" yaml:"max_rounds"`
	// ParallelAssessments runs the silent assessments concurrently.
	ParallelAssessments bool `mapstructure:"parallel_assessments" yaml:"parallel_assessments"`
	// ParallelVotes casts the votes of each poll concurrently.
	ParallelVotes bool `mapstructure:"parallel_votes" yaml:"parallel_votes"`
}

// DefaultConfig returns the sequential protocol with five rounds.
func DefaultConfig() Config {
	return Config{MaxRounds: DefaultMaxRounds}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxRounds < 1 {
		return core.ErrValidation(core.CodeInvalidConfig, fmt.Sprintf("max_rounds must be at least 1, got %d", c.MaxRounds))
	}
	return nil
}

// Coordinator drives one team through the deliberation protocol for a
// single case. It is not reusable.
type Coordinator struct {
	lead     Chair
	members  []Advisor
	cfg      Config
	teamKey  string
	observer core.Observer
	logger   *logging.Logger

	phase core.Phase
	used  bool
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithObserver sets the event observer.
func WithObserver(o core.Observer) CoordinatorOption {
	return func(c *Coordinator) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTeamKey tags the deliberation with a sub-team key.
func WithTeamKey(key string) CoordinatorOption {
	return func(c *Coordinator) {
		c.teamKey = key
	}
}

// NewCoordinator creates a coordinator for lead and its members. The lead
// must not appear in members.
func NewCoordinator(lead Chair, members []Advisor, cfg Config, opts ...CoordinatorOption) *Coordinator {
	if cfg.MaxRounds < 1 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	c := &Coordinator{
		lead:     lead,
		members:  members,
		cfg:      cfg,
		observer: core.NopObserver{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Phase returns the current protocol phase.
func (c *Coordinator) Phase() core.Phase {
	return c.phase
}

// team returns the lead followed by the members.
func (c *Coordinator) team() []Advisor {
	return append([]Advisor{c.lead}, c.members...)
}

// Run executes the protocol and returns its audit record. Model failures
// degrade single steps. An invalid case, a reused coordinator or a done
// context fail; the last returns the partial record.
func (c *Coordinator) Run(ctx context.Context, cs *core.Case) (core.Deliberation, error) {
	if c.used {
		return core.Deliberation{}, core.ErrState("COORDINATOR_USED", "coordinator already ran a case")
	}
	c.used = true
	if err := cs.Validate(); err != nil {
		return core.Deliberation{}, err
	}

	log := c.logger.WithCase(cs.ID)
	if c.teamKey != "" {
		log = log.WithSubTeam(c.teamKey)
	}
	letters := cs.Options.Letters()
	rec := core.Deliberation{TeamKey: c.teamKey}

	// Silent assessment
	c.enter(log, core.PhaseSilentAssessment)
	rec.Assessments = c.silentAssessment(ctx, cs)
	if err := ctx.Err(); err != nil {
		log.Warn("deliberation interrupted", "phase", c.phase, "error", err)
		return rec, core.ErrInterrupted(err)
	}

	// Initial consensus check
	c.enter(log, core.PhaseInitialCheck)
	prefs := make([]string, len(rec.Assessments))
	for i, a := range rec.Assessments {
		prefs[i] = a.Assessment.RecommendedAnswer
	}
	rec.InitialCheck = core.Tally(prefs, letters, core.ConsensusThreshold)
	log.Info("initial consensus check",
		"majority", rec.InitialCheck.Majority,
		"agreement", rec.InitialCheck.AgreementRate,
		"consensus", rec.InitialCheck.HasConsensus)

	last := rec.InitialCheck
	early := rec.InitialCheck.HasConsensus
	if !early {
		c.enter(log, core.PhaseRoundLoop)
		last = c.roundLoop(ctx, log, cs, &rec)
	}

	if err := ctx.Err(); err != nil {
		log.Warn("deliberation interrupted", "phase", c.phase, "error", err)
		return rec, core.ErrInterrupted(err)
	}

	// Final decision
	c.enter(log, core.PhaseFinalDecision)
	rec.Decision = c.lead.Decide(ctx, DecisionInput{
		Case:        cs,
		Assessments: rec.Assessments,
		Turns:       rec.Turns,
		Votes:       latestVotes(rec.Votes),
		Weights:     c.weights(),
		Check:       last,
		Early:       early,
	})
	c.observer.DecisionMade(cs.ID, c.teamKey, rec.Decision)
	log.Info("final decision",
		"choice", rec.Decision.Choice,
		"consensus", rec.Decision.ConsensusAchieved,
		"early", rec.Decision.EarlyConsensus,
		"rounds", rec.RoundsRun)

	rec.Acknowledgments = c.notify(ctx, rec.Decision)
	c.enter(log, core.PhaseDone)
	return rec, nil
}

func (c *Coordinator) enter(log *logging.Logger, to core.Phase) {
	if c.phase != "" && !core.CanTransition(c.phase, to) {
		log.Error("invalid phase transition", "from", c.phase, "to", to)
	}
	c.phase = to
	log.Debug("phase started", "phase", to)
}

func (c *Coordinator) silentAssessment(ctx context.Context, cs *core.Case) []core.AdvisorAssessment {
	team := c.team()
	out := make([]core.AdvisorAssessment, len(team))
	c.forEach(ctx, team, c.cfg.ParallelAssessments, func(ctx context.Context, i int, a Advisor) {
		p := a.Profile()
		out[i] = core.AdvisorAssessment{AdvisorID: p.ID, Specialty: p.Specialty, Assessment: a.Assess(ctx, cs)}
	})
	for _, a := range out {
		c.observer.AssessmentCompleted(cs.ID, a)
	}
	return out
}

// roundLoop runs up to MaxRounds discussion rounds, each followed by a
// poll, and returns the last poll.
func (c *Coordinator) roundLoop(ctx context.Context, log *logging.Logger, cs *core.Case, rec *core.Deliberation) core.ConsensusCheck {
	letters := cs.Options.Letters()
	fallback := cs.DefaultChoice()
	topics := Topics(rec.InitialCheck)
	order := SpeakingOrder(c.lead, c.members)

	var last core.ConsensusCheck
	for r := 0; r < c.cfg.MaxRounds; r++ {
		round := r + 1
		rlog := log.WithRound(round)

		turns := c.discuss(ctx, cs, r, order, topics, last)
		rec.Turns = append(rec.Turns, turns...)
		rec.RoundsRun = round

		votes := c.poll(ctx, cs, round, voteSummary(turns))
		rec.Votes = append(rec.Votes, votes...)

		prefs := make([]string, 0, len(c.members)+1)
		for _, a := range c.team() {
			prefs = append(prefs, a.Preference(fallback))
		}
		last = core.Tally(prefs, letters, core.ConsensusThreshold)
		rec.Polls = append(rec.Polls, last)
		rlog.Info("consensus poll", "majority", last.Majority, "agreement", last.AgreementRate, "consensus", last.HasConsensus)

		if last.HasConsensus {
			break
		}
		if ctx.Err() != nil {
			rlog.Warn("deliberation interrupted", "error", ctx.Err())
			break
		}
		if round == c.cfg.MaxRounds {
			break
		}

		fb := core.Feedback{
			Round:   round,
			Message: c.lead.Moderate(ctx, cs, round, last, turns),
			Check:   last,
		}
		for _, a := range c.team() {
			a.Receive(fb)
		}
		rec.Feedback = append(rec.Feedback, fb)
		c.observer.FeedbackRound(cs.ID, fb)
	}
	return last
}

// discuss runs the discussion variant for zero-based round index r.
func (c *Coordinator) discuss(ctx context.Context, cs *core.Case, r int, order []Advisor, topics []string, last core.ConsensusCheck) []core.DiscussionTurn {
	round := r + 1
	var turns []core.DiscussionTurn
	speak := func(a Advisor, d Discussion) {
		t := a.Discuss(ctx, d)
		turns = append(turns, t)
		c.observer.DiscussionTurn(cs.ID, t)
	}

	switch KindForRound(r) {
	case KindRoundRobin:
		for _, a := range order {
			speak(a, Discussion{Kind: KindRoundRobin, Case: cs, Round: round, Previous: lastTurns(turns, previousTurns)})
		}
	case KindFocused:
		positions := Positions(c.team(), cs.Options.Letters(), focusGroups)
		involved := make(map[string]bool)
		if len(positions) >= focusGroups {
			for _, p := range positions {
				for _, m := range p.Advisors {
					involved[m.ID] = true
				}
			}
		}
		topic := focusTopic(positions)
		for _, a := range order {
			if len(involved) > 0 && !involved[a.Profile().ID] {
				continue
			}
			speak(a, Discussion{Kind: KindFocused, Case: cs, Round: round, Topic: topic, Positions: positions})
		}
	default:
		topic := topics[(r-2)%len(topics)]
		for _, a := range order {
			speak(a, Discussion{Kind: KindOpen, Case: cs, Round: round, Topic: topic, Tally: last})
		}
	}
	return turns
}

func focusTopic(positions []Position) string {
	if len(positions) < focusGroups {
		return ""
	}
	return fmt.Sprintf("%s vs %s", positions[0].Choice, positions[1].Choice)
}

// poll collects one vote from every advisor, in team order.
func (c *Coordinator) poll(ctx context.Context, cs *core.Case, round int, summary string) []core.AdvisorVote {
	team := c.team()
	out := make([]core.AdvisorVote, len(team))
	c.forEach(ctx, team, c.cfg.ParallelVotes, func(ctx context.Context, i int, a Advisor) {
		p := a.Profile()
		out[i] = core.AdvisorVote{AdvisorID: p.ID, Specialty: p.Specialty, Round: round, Vote: a.Vote(ctx, cs, summary)}
	})
	return out
}

// notify collects acknowledgments from every member. The lead does not
// acknowledge its own decision.
func (c *Coordinator) notify(ctx context.Context, d core.FinalDecision) []core.Acknowledgment {
	out := make([]core.Acknowledgment, 0, len(c.members))
	for _, a := range c.members {
		out = append(out, core.Acknowledgment{AdvisorID: a.Profile().ID, Message: a.Acknowledge(ctx, d)})
	}
	return out
}

func (c *Coordinator) weights() map[string]float64 {
	w := make(map[string]float64)
	for _, a := range c.team() {
		p := a.Profile()
		if p.Weight > 0 {
			w[p.ID] = p.Weight
		}
	}
	return w
}

// forEach applies fn to every advisor, concurrently when parallel is set.
// Results are written by index so ordering matches the team order.
func (c *Coordinator) forEach(ctx context.Context, team []Advisor, parallel bool, fn func(context.Context, int, Advisor)) {
	if !parallel {
		for i, a := range team {
			fn(ctx, i, a)
		}
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range team {
		g.Go(func() error {
			fn(gctx, i, a)
			return nil
		})
	}
	_ = g.Wait()
}

func latestVotes(votes []core.AdvisorVote) []core.AdvisorVote {
	idx := make(map[string]int)
	var out []core.AdvisorVote
	for _, v := range votes {
		if i, ok := idx[v.AdvisorID]; ok {
			out[i] = v
			continue
		}
		idx[v.AdvisorID] = len(out)
		out = append(out, v)
	}
	return out
}
