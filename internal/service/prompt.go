package service

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

// Template names.
const (
	TmplSystemAdvisor    = "system-advisor"
	TmplSystemLead       = "system-lead"
	TmplSystemClassifier = "system-classifier"
	TmplSystemRecruiter  = "system-recruiter"
	TmplAssessment       = "assessment"
	TmplLeadAssessment   = "lead-assessment"
	TmplRoundRobin       = "round-robin"
	TmplFocused          = "focused"
	TmplOpen             = "open"
	TmplVote             = "vote"
	TmplFeedback         = "feedback"
	TmplDecision         = "decision"
	TmplAcknowledge      = "acknowledge"
	TmplSolo             = "solo"
	TmplClassify         = "classify"
	TmplExplain          = "explain"
)

// Sampling temperatures per prompt kind.
const (
	TempAssessment  = 0.7
	TempDiscussion  = 0.7
	TempVote        = 0.3
	TempFeedback    = 0.5
	TempDecision    = 0.5
	TempAcknowledge = 0.5
	TempSolo        = 0.7
	TempClassify    = 0.3
	TempExplain     = 0.5
)

// PromptRenderer renders prompts from embedded templates.
type PromptRenderer struct {
	templates map[string]*template.Template
	mu        sync.RWMutex
}

// NewPromptRenderer loads every embedded template.
func NewPromptRenderer() (*PromptRenderer, error) {
	r := &PromptRenderer{templates: make(map[string]*template.Template)}
	if err := r.loadTemplates(); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	return r, nil
}

// MustPromptRenderer panics if the embedded templates do not parse.
func MustPromptRenderer() *PromptRenderer {
	r, err := NewPromptRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *PromptRenderer) loadTemplates() error {
	return fs.WalkDir(promptsFS, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md.tmpl") {
			return nil
		}

		content, err := promptsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		name := strings.TrimSuffix(strings.TrimPrefix(path, "prompts/"), ".md.tmpl")
		tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		r.templates[name] = tmpl
		return nil
	})
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join":     strings.Join,
		"upper":    strings.ToUpper,
		"truncate": Truncate,
		"percent":  func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
		"fixed2":   func(f float64) string { return fmt.Sprintf("%.2f", f) },
		"add":      func(a, b int) int { return a + b },
	}
}

// Truncate shortens s to n runes and marks the cut with "...".
func Truncate(n int, s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// Render executes a template by name.
func (r *PromptRenderer) Render(name string, data interface{}) (string, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return "", core.ErrValidation(core.CodeUnknownTemplate, fmt.Sprintf("template %q not found", name))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// ListTemplates returns the template names, sorted.
func (r *PromptRenderer) ListTemplates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTemplate checks if a template exists.
func (r *PromptRenderer) HasTemplate(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[name]
	return ok
}

// CaseView is the case as shown to a model.
type CaseView struct {
	Question string
	Options  string
	Briefing []string
}

// NewCaseView formats c for templates.
func NewCaseView(c *core.Case) CaseView {
	return CaseView{Question: c.Question, Options: c.Options.Format(), Briefing: c.Briefing}
}

// AdvisorParams identifies the speaking advisor.
type AdvisorParams struct {
	Specialty string
	Expertise string
	TeamName  string
}

// TurnSummary is a short view of an earlier contribution.
type TurnSummary struct {
	Specialty string
	Summary   string
}

// TallyLine is one option's share in a poll.
type TallyLine struct {
	Choice string
	Text   string
	Count  int
}

// GroupView is one block of advisors sharing a preference.
type GroupView struct {
	Choice  string
	Text    string
	Members []string
}

// VoteAnalysis summarizes the votes for one option.
type VoteAnalysis struct {
	Choice        string
	Count         int
	AvgConfidence float64
	Weight        float64
}

// AssessmentParams feeds the silent assessment templates.
type AssessmentParams struct {
	Case CaseView
	AdvisorParams
}

// RoundRobinParams feeds the round-robin discussion template.
type RoundRobinParams struct {
	Case CaseView
	AdvisorParams
	Previous       []TurnSummary
	Assessment     string
	Recommendation string
	Feedback       []string
	IsLead         bool
}

// FocusedParams feeds the focused discussion template.
type FocusedParams struct {
	Case CaseView
	AdvisorParams
	OwnChoice string
	Groups    []GroupView
	Feedback  []string
}

// OpenParams feeds the open discussion template.
type OpenParams struct {
	Case CaseView
	AdvisorParams
	Round    int
	Topic    string
	Tally    []TallyLine
	Feedback []string
}

// VoteParams feeds the vote template.
type VoteParams struct {
	Case CaseView
	AdvisorParams
	Summary string
	IsLead  bool
}

// FeedbackParams feeds the moderator feedback template.
type FeedbackParams struct {
	Case          CaseView
	Round         int
	Tally         []TallyLine
	Majority      string
	AgreementRate float64
	Threshold     float64
	Recent        []TurnSummary
}

// DecisionParams feeds the final decision template.
type DecisionParams struct {
	Case          CaseView
	Assessments   []TurnSummary
	Discussion    []TurnSummary
	Analysis      []VoteAnalysis
	AgreementRate float64
	Consensus     bool
}

// AcknowledgeParams feeds the acknowledgment template.
type AcknowledgeParams struct {
	AdvisorParams
	Choice    string
	Rationale string
}

// ClassifyParams feeds the complexity classifier.
type ClassifyParams struct {
	Question string
}

// ExplainParams feeds the recruitment explanation template.
type ExplainParams struct {
	Question string
	Tier     core.Tier
	Summary  string
}
