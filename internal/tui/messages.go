package tui

import (
	"time"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/events"
)

// CaseStartedMsg is sent when the consultation begins.
type CaseStartedMsg struct {
	Question string
}

// TeamRecruitedMsg is sent once the team is formed.
type TeamRecruitedMsg struct {
	Tier     core.Tier
	Teams    []string
	Advisors int
}

// AssessmentMsg is sent for each silent assessment.
type AssessmentMsg struct {
	AdvisorID      string
	Specialty      string
	Recommendation string
}

// TurnMsg is sent for each discussion contribution.
type TurnMsg struct {
	Turn core.DiscussionTurn
}

// FeedbackMsg is sent when the lead moderates a round.
type FeedbackMsg struct {
	Round         int
	Message       string
	Majority      string
	AgreementRate float64
}

// DecisionMsg is sent when a team decides.
type DecisionMsg struct {
	TeamKey  string
	Decision core.FinalDecision
}

// CaseCompletedMsg is sent when the case has its final decision.
type CaseCompletedMsg struct {
	Choice      string
	Consensus   bool
	Duration    time.Duration
	TotalTokens int
}

// CaseFailedMsg is sent when the case could not be deliberated.
type CaseFailedMsg struct {
	Error string
}

// ResultMsg carries the runner's return values to the view.
type ResultMsg struct {
	Result *core.CaseResult
	Err    error
}

// DroppedEventsMsg reports events lost to a full subscriber buffer.
type DroppedEventsMsg struct {
	Count int64
}

// eventClosedMsg signals the event stream ended.
type eventClosedMsg struct{}

// toMsg converts a bus event to its view message. Unknown events map to nil.
func toMsg(e events.Event) interface{} {
	switch ev := e.(type) {
	case events.CaseStartedEvent:
		return CaseStartedMsg{Question: ev.Question}
	case events.TeamRecruitedEvent:
		return TeamRecruitedMsg{Tier: ev.Tier, Teams: ev.Teams, Advisors: ev.Advisors}
	case events.AssessmentCompletedEvent:
		return AssessmentMsg{AdvisorID: ev.AdvisorID, Specialty: ev.Specialty, Recommendation: ev.Recommendation}
	case events.DiscussionTurnEvent:
		return TurnMsg{Turn: ev.Turn}
	case events.FeedbackRoundEvent:
		return FeedbackMsg{Round: ev.Round, Message: ev.Message, Majority: ev.Majority, AgreementRate: ev.AgreementRate}
	case events.DecisionMadeEvent:
		return DecisionMsg{TeamKey: ev.TeamKey, Decision: ev.Decision}
	case events.CaseCompletedEvent:
		return CaseCompletedMsg{Choice: ev.Choice, Consensus: ev.Consensus, Duration: ev.Duration, TotalTokens: ev.TotalTokens}
	case events.CaseFailedEvent:
		return CaseFailedMsg{Error: ev.Error}
	}
	return nil
}
