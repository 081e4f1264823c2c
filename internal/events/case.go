package events

import (
	"time"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

// Event type constants for case lifecycle events.
const (
	TypeCaseStarted   = "case_started"
	TypeTeamRecruited = "team_recruited"
	TypeCaseCompleted = "case_completed"
	TypeCaseFailed    = "case_failed"
)

// CaseStartedEvent is emitted when a consultation begins.
type CaseStartedEvent struct {
	BaseEvent
	Question string `json:"question"`
}

// NewCaseStartedEvent creates a new case started event.
func NewCaseStartedEvent(caseID, question string) CaseStartedEvent {
	return CaseStartedEvent{
		BaseEvent: NewBaseEvent(TypeCaseStarted, caseID),
		Question:  question,
	}
}

// TeamRecruitedEvent is emitted once the team for a case is formed.
type TeamRecruitedEvent struct {
	BaseEvent
	Tier     core.Tier `json:"tier"`
	Teams    []string  `json:"teams"`
	Advisors int       `json:"advisors"`
}

// NewTeamRecruitedEvent creates a new team recruited event.
func NewTeamRecruitedEvent(caseID string, rec core.Recruitment) TeamRecruitedEvent {
	var teams []string
	switch {
	case rec.Solo != nil:
		teams = []string{"solo"}
	case rec.Panel != nil:
		teams = []string{"panel"}
	default:
		for _, st := range rec.SubTeams {
			teams = append(teams, st.Name)
		}
	}
	return TeamRecruitedEvent{
		BaseEvent: NewBaseEvent(TypeTeamRecruited, caseID),
		Tier:      rec.Tier,
		Teams:     teams,
		Advisors:  len(rec.Members()),
	}
}

// CaseCompletedEvent is emitted once per case, when it has a final decision.
type CaseCompletedEvent struct {
	BaseEvent
	Choice      string        `json:"choice,omitempty"`
	Consensus   bool          `json:"consensus"`
	Duration    time.Duration `json:"duration"`
	TotalTokens int           `json:"total_tokens"`
}

// NewCaseCompletedEvent creates a new case completed event.
func NewCaseCompletedEvent(result *core.CaseResult) CaseCompletedEvent {
	return CaseCompletedEvent{
		BaseEvent:   NewBaseEvent(TypeCaseCompleted, result.Case.ID),
		Choice:      result.Decision.Choice,
		Consensus:   result.Decision.ConsensusAchieved,
		Duration:    result.Duration,
		TotalTokens: result.Usage.Total.Total(),
	}
}

// CaseFailedEvent is emitted when a case cannot be deliberated or its
// result cannot be stored.
type CaseFailedEvent struct {
	BaseEvent
	Error string `json:"error"`
}

// NewCaseFailedEvent creates a new case failed event.
func NewCaseFailedEvent(caseID string, err error) CaseFailedEvent {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	return CaseFailedEvent{
		BaseEvent: NewBaseEvent(TypeCaseFailed, caseID),
		Error:     errStr,
	}
}
