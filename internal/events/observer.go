package events

import "github.com/hugo-lorenzo-mato/medpanel/internal/core"

// BusObserver publishes deliberation and case lifecycle notifications on
// an EventBus.
type BusObserver struct {
	bus *EventBus
}

// NewBusObserver creates an observer that publishes on bus.
func NewBusObserver(bus *EventBus) *BusObserver {
	return &BusObserver{bus: bus}
}

func (o *BusObserver) AssessmentCompleted(caseID string, a core.AdvisorAssessment) {
	o.bus.Publish(NewAssessmentCompletedEvent(caseID, a))
}

func (o *BusObserver) DiscussionTurn(caseID string, t core.DiscussionTurn) {
	o.bus.Publish(NewDiscussionTurnEvent(caseID, t))
}

func (o *BusObserver) FeedbackRound(caseID string, f core.Feedback) {
	o.bus.Publish(NewFeedbackRoundEvent(caseID, f))
}

func (o *BusObserver) DecisionMade(caseID, teamKey string, d core.FinalDecision) {
	o.bus.Publish(NewDecisionMadeEvent(caseID, teamKey, d))
}

func (o *BusObserver) CaseStarted(c *core.Case) {
	o.bus.Publish(NewCaseStartedEvent(c.ID, c.Question))
}

func (o *BusObserver) TeamRecruited(caseID string, rec core.Recruitment) {
	o.bus.Publish(NewTeamRecruitedEvent(caseID, rec))
}

func (o *BusObserver) CaseCompleted(result *core.CaseResult) {
	o.bus.Publish(NewCaseCompletedEvent(result))
}

func (o *BusObserver) CaseFailed(caseID string, err error) {
	o.bus.Publish(NewCaseFailedEvent(caseID, err))
}
