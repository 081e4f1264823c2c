package core

import (
	"context"
	"time"
)

// Example is one few-shot exchange shown to the model before the prompt.
type Example struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Request is a single prompt submission.
type Request struct {
	SystemPrompt string
	Examples     []Example
	Prompt       string
	Temperature  float64
	MaxTokens    int
	// Model overrides the adapter's default model when non-empty.
	Model string
}

// TokenUsage counts tokens consumed by one or more calls.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.Input + u.Output
}

// Add returns the sum of u and o.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{Input: u.Input + o.Input, Output: u.Output + o.Output}
}

// Response is the text produced for a Request.
type Response struct {
	Text     string
	Usage    TokenUsage
	Model    string
	Duration time.Duration
}

// Model submits prompts to a language model. Implementations return an
// error instead of panicking; callers degrade a failed call to empty text.
type Model interface {
	Name() string
	Submit(ctx context.Context, req Request) (*Response, error)
}

// UsageReport aggregates token usage for a case.
type UsageReport struct {
	Calls      int                   `json:"calls"`
	Failures   int                   `json:"failures"`
	Total      TokenUsage            `json:"total"`
	ByAdvisor  map[string]TokenUsage `json:"by_advisor,omitempty"`
	ByModel    map[string]TokenUsage `json:"by_model,omitempty"`
	ModelNames []string              `json:"models,omitempty"`
}

// Observer receives deliberation events. Calls are fire-and-forget and must
// not block the protocol.
type Observer interface {
	AssessmentCompleted(caseID string, a AdvisorAssessment)
	DiscussionTurn(caseID string, t DiscussionTurn)
	FeedbackRound(caseID string, f Feedback)
	DecisionMade(caseID, teamKey string, d FinalDecision)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) AssessmentCompleted(string, AdvisorAssessment) {}
func (NopObserver) DiscussionTurn(string, DiscussionTurn)         {}
func (NopObserver) FeedbackRound(string, Feedback)                {}
func (NopObserver) DecisionMade(string, string, FinalDecision)    {}

// Observers fans every event out to each observer in order.
type Observers []Observer

func (o Observers) AssessmentCompleted(caseID string, a AdvisorAssessment) {
	for _, obs := range o {
		obs.AssessmentCompleted(caseID, a)
	}
}

func (o Observers) DiscussionTurn(caseID string, t DiscussionTurn) {
	for _, obs := range o {
		obs.DiscussionTurn(caseID, t)
	}
}

func (o Observers) FeedbackRound(caseID string, f Feedback) {
	for _, obs := range o {
		obs.FeedbackRound(caseID, f)
	}
}

func (o Observers) DecisionMade(caseID, teamKey string, d FinalDecision) {
	for _, obs := range o {
		obs.DecisionMade(caseID, teamKey, d)
	}
}
