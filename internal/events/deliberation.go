package events

import "github.com/hugo-lorenzo-mato/medpanel/internal/core"

// Event type constants for deliberation events.
const (
	TypeAssessmentCompleted = "assessment_completed"
	TypeDiscussionTurn      = "discussion_turn"
	TypeFeedbackRound       = "feedback_round"
	TypeDecisionMade        = "decision_made"
)

// AssessmentCompletedEvent is emitted for each silent assessment.
type AssessmentCompletedEvent struct {
	BaseEvent
	AdvisorID      string `json:"advisor_id"`
	Specialty      string `json:"specialty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// NewAssessmentCompletedEvent creates a new assessment completed event.
func NewAssessmentCompletedEvent(caseID string, a core.AdvisorAssessment) AssessmentCompletedEvent {
	return AssessmentCompletedEvent{
		BaseEvent:      NewBaseEvent(TypeAssessmentCompleted, caseID),
		AdvisorID:      a.AdvisorID,
		Specialty:      a.Specialty,
		Recommendation: a.Assessment.RecommendedAnswer,
	}
}

// DiscussionTurnEvent is emitted for each discussion contribution.
type DiscussionTurnEvent struct {
	BaseEvent
	Turn core.DiscussionTurn `json:"turn"`
}

// NewDiscussionTurnEvent creates a new discussion turn event.
func NewDiscussionTurnEvent(caseID string, t core.DiscussionTurn) DiscussionTurnEvent {
	return DiscussionTurnEvent{
		BaseEvent: NewBaseEvent(TypeDiscussionTurn, caseID),
		Turn:      t,
	}
}

// FeedbackRoundEvent is emitted when the lead moderates a round.
type FeedbackRoundEvent struct {
	BaseEvent
	Round         int     `json:"round"`
	Message       string  `json:"message"`
	Majority      string  `json:"majority,omitempty"`
	AgreementRate float64 `json:"agreement_rate"`
}

// NewFeedbackRoundEvent creates a new feedback round event.
func NewFeedbackRoundEvent(caseID string, f core.Feedback) FeedbackRoundEvent {
	return FeedbackRoundEvent{
		BaseEvent:     NewBaseEvent(TypeFeedbackRound, caseID),
		Round:         f.Round,
		Message:       f.Message,
		Majority:      f.Check.Majority,
		AgreementRate: f.Check.AgreementRate,
	}
}

// DecisionMadeEvent is emitted when a team reaches its final decision.
type DecisionMadeEvent struct {
	BaseEvent
	TeamKey  string             `json:"team_key,omitempty"`
	Decision core.FinalDecision `json:"decision"`
}

// NewDecisionMadeEvent creates a new decision made event.
func NewDecisionMadeEvent(caseID, teamKey string, d core.FinalDecision) DecisionMadeEvent {
	return DecisionMadeEvent{
		BaseEvent: NewBaseEvent(TypeDecisionMade, caseID),
		TeamKey:   teamKey,
		Decision:  d,
	}
}
