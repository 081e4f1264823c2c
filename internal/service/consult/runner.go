// Package consult runs a case end to end: complexity classification, team
// recruitment, deliberation, persistence and transcripts.
package consult

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/logging"
	"github.com/hugo-lorenzo-mato/medpanel/internal/panel"
	"github.com/hugo-lorenzo-mato/medpanel/internal/parse"
	"github.com/hugo-lorenzo-mato/medpanel/internal/recruit"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service"
)

// Advisor IDs used for usage accounting of helper calls.
const (
	classifierID = "classifier"
	recruiterID  = "recruiter"
)

// Models resolves the model behind each advisor and behind the helper
// calls (classification, recruitment explanation).
type Models interface {
	ForMember(m core.Member) core.Model
	Utility() core.Model
}

// CaseStore persists finished cases.
type CaseStore interface {
	Save(ctx context.Context, result *core.CaseResult) error
}

// ReportWriter writes a case transcript and returns where it went.
type ReportWriter interface {
	Write(result *core.CaseResult) (string, error)
}

// Notifier receives case lifecycle notifications on top of the
// deliberation events.
type Notifier interface {
	core.Observer
	CaseStarted(c *core.Case)
	TeamRecruited(caseID string, rec core.Recruitment)
	CaseCompleted(result *core.CaseResult)
	CaseFailed(caseID string, err error)
}

// RunnerConfig holds configuration for the case runner.
type RunnerConfig struct {
	Panel panel.Config
	// Timeout bounds a whole consultation. Zero disables the limit.
	Timeout time.Duration
	// MaxTokens caps every model reply.
	MaxTokens int
	// Explain asks for a recruitment explanation on every case.
	Explain bool
}

// DefaultRunnerConfig returns default configuration.
func DefaultRunnerConfig() *RunnerConfig {
	return &RunnerConfig{
		Panel:     panel.DefaultConfig(),
		Timeout:   30 * time.Minute,
		MaxTokens: panel.DefaultMaxTokens,
	}
}

// RunnerDeps holds dependencies for creating a Runner.
type RunnerDeps struct {
	Config    *RunnerConfig
	Recruiter *recruit.Recruiter
	Models    Models
	Prompts   *service.PromptRenderer
	Store     CaseStore
	Reports   ReportWriter
	Notifier  Notifier
	Logger    *logging.Logger
}

// Runner orchestrates a consultation. It is safe for concurrent use; each
// case gets its own team and coordinator.
type Runner struct {
	config    *RunnerConfig
	recruiter *recruit.Recruiter
	models    Models
	prompts   *service.PromptRenderer
	store     CaseStore
	reports   ReportWriter
	notifier  Notifier
	logger    *logging.Logger
	now       func() time.Time
}

// NewRunner creates a case runner with all dependencies.
func NewRunner(deps RunnerDeps) (*Runner, error) {
	if deps.Recruiter == nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "recruiter is required")
	}
	if deps.Models == nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "model resolver is required")
	}
	if deps.Config == nil {
		deps.Config = DefaultRunnerConfig()
	}
	if err := deps.Config.Panel.Validate(); err != nil {
		return nil, err
	}
	if deps.Prompts == nil {
		p, err := service.NewPromptRenderer()
		if err != nil {
			return nil, err
		}
		deps.Prompts = p
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	return &Runner{
		config:    deps.Config,
		recruiter: deps.Recruiter,
		models:    deps.Models,
		prompts:   deps.Prompts,
		store:     deps.Store,
		reports:   deps.Reports,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		now:       time.Now,
	}, nil
}

// Request is one consultation.
type Request struct {
	// ID is generated when empty.
	ID       string
	Question string
	Options  core.Options
	// Tier is classified when empty.
	Tier core.Tier
	// Explain overrides the configured explanation setting when set.
	Explain *bool
}

// NewCase validates req and turns it into a case.
func (r *Runner) NewCase(req Request) (*core.Case, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	c := &core.Case{
		ID:        id,
		Question:  strings.TrimSpace(req.Question),
		Options:   req.Options,
		Tier:      req.Tier,
		CreatedAt: r.now(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Consult runs the whole consultation for req.
func (r *Runner) Consult(ctx context.Context, req Request) (*core.CaseResult, error) {
	c, err := r.NewCase(req)
	if err != nil {
		return nil, err
	}
	explain := r.config.Explain
	if req.Explain != nil {
		explain = *req.Explain
	}
	return r.Run(ctx, c, explain)
}

// Run deliberates a validated case.
func (r *Runner) Run(ctx context.Context, c *core.Case, explain bool) (*core.CaseResult, error) {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	log := r.logger.WithCase(c.ID)
	start := r.now()
	usage := service.NewUsageCollector()
	if r.notifier != nil {
		r.notifier.CaseStarted(c)
	}
	log.Info("consultation started", "options", len(c.Options), "tier", c.Tier)

	result, err := r.run(ctx, log, c, explain, usage)
	if err != nil {
		log.Error("consultation failed", "error", err)
		if r.notifier != nil {
			r.notifier.CaseFailed(c.ID, err)
		}
		return nil, err
	}
	result.StartedAt = start
	result.Duration = r.now().Sub(start)
	result.Usage = usage.Report()

	if r.store != nil {
		if err := r.store.Save(ctx, result); err != nil {
			log.Error("saving case", "error", err)
			if r.notifier != nil {
				r.notifier.CaseFailed(c.ID, err)
			}
			return result, fmt.Errorf("saving case %s: %w", c.ID, err)
		}
	}
	if r.reports != nil {
		if path, err := r.reports.Write(result); err != nil {
			log.Warn("writing transcript", "error", err)
		} else {
			log.Debug("transcript written", "path", path)
		}
	}

	if r.notifier != nil {
		r.notifier.CaseCompleted(result)
	}
	log.Info("consultation completed",
		"choice", result.Decision.Choice,
		"consensus", result.Decision.ConsensusAchieved,
		"tokens", result.Usage.Total.Total(),
		"duration", result.Duration)
	return result, nil
}

func (r *Runner) run(ctx context.Context, log *logging.Logger, c *core.Case, explain bool, usage *service.UsageCollector) (*core.CaseResult, error) {
	tier := c.Tier
	if tier == "" {
		tier = r.Classify(ctx, c.Question, usage)
		log.Info("complexity classified", "tier", tier)
	}
	c.Tier = tier

	rec, err := r.recruiter.Recruit(c.Question, tier)
	if err != nil {
		return nil, err
	}
	if r.notifier != nil {
		r.notifier.TeamRecruited(c.ID, rec)
	}
	log.Info("team recruited", "tier", tier, "advisors", len(rec.Members()))

	result := &core.CaseResult{Tier: tier, Recruitment: rec}
	if explain {
		result.Explanation = r.Explain(ctx, c.Question, rec, usage)
	}

	var observer core.Observer
	if r.notifier != nil {
		observer = r.notifier
	}
	p := panel.New(func(m core.Member) core.Model {
		return usage.Track(m.ID, r.models.ForMember(m))
	}, panel.Deps{
		Prompts:   r.prompts,
		Logger:    r.logger,
		MaxTokens: r.config.MaxTokens,
	}, r.config.Panel, observer)

	out, err := p.Deliberate(ctx, c, rec)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, core.ErrInterrupted(err)
	}
	result.Case = *c
	result.Deliberations = out.Deliberations
	result.Decision = out.Decision
	return result, nil
}

// Classify asks the utility model for the complexity tier of question.
// Unusable answers fall back to moderate.
func (r *Runner) Classify(ctx context.Context, question string, usage *service.UsageCollector) core.Tier {
	text, err := r.utility(ctx, usage, classifierID, service.TmplSystemClassifier, service.TmplClassify,
		service.ClassifyParams{Question: question}, service.TempClassify, service.ClassifierExamples)
	if err != nil {
		r.logger.Warn("complexity classification failed", "error", err)
		return core.TierModerate
	}
	tier, ok := parse.Complexity(text)
	if !ok {
		r.logger.Warn("unrecognized complexity", "response", service.Truncate(80, text))
	}
	return tier
}

// Explain asks the utility model why the recruited team suits question.
// Failures yield an empty explanation.
func (r *Runner) Explain(ctx context.Context, question string, rec core.Recruitment, usage *service.UsageCollector) string {
	text, err := r.utility(ctx, usage, recruiterID, service.TmplSystemRecruiter, service.TmplExplain,
		service.ExplainParams{Question: question, Tier: rec.Tier, Summary: recruit.Describe(rec)}, service.TempExplain, nil)
	if err != nil {
		r.logger.Warn("recruitment explanation failed", "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// Recruit classifies question when tier is empty and forms its team.
func (r *Runner) Recruit(ctx context.Context, question string, tier core.Tier) (core.Recruitment, error) {
	if strings.TrimSpace(question) == "" {
		return core.Recruitment{}, core.ErrValidation(core.CodeEmptyQuestion, "question cannot be empty")
	}
	if tier == "" {
		tier = r.Classify(ctx, question, nil)
	}
	return r.recruiter.Recruit(question, tier)
}

func (r *Runner) utility(ctx context.Context, usage *service.UsageCollector, id, systemTmpl, tmpl string, data interface{}, temperature float64, examples []core.Example) (string, error) {
	system, err := r.prompts.Render(systemTmpl, nil)
	if err != nil {
		return "", err
	}
	prompt, err := r.prompts.Render(tmpl, data)
	if err != nil {
		return "", err
	}
	m := r.models.Utility()
	if usage != nil {
		m = usage.Track(id, m)
	}
	resp, err := m.Submit(ctx, core.Request{
		SystemPrompt: system,
		Examples:     examples,
		Prompt:       prompt,
		Temperature:  temperature,
		MaxTokens:    r.config.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
