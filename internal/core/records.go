package core

import "time"

// Role tags a member's place on a team.
type Role string

const (
	RoleLead       Role = "lead"
	RoleConsultant Role = "consulting"
	RoleSolo       Role = "solo"
)

// Member is the recruited profile of one advisor. Per-case deliberation
// state lives on the advisor built from it, not here.
type Member struct {
	ID        string  `json:"id"`
	Specialty string  `json:"specialty"`
	Expertise string  `json:"expertise"`
	Role      Role    `json:"role"`
	Relevance float64 `json:"relevance"`
	// Weight is the share of influence in weighted synthesis. Zero means
	// the member is unweighted.
	Weight float64 `json:"weight,omitempty"`
}

// Team is one lead plus its consultants. Members never contains the lead.
type Team struct {
	Lead    Member   `json:"lead"`
	Members []Member `json:"members"`
}

// All returns the lead followed by every member.
func (t Team) All() []Member {
	return append([]Member{t.Lead}, t.Members...)
}

// Size counts the lead and members.
func (t Team) Size() int {
	return len(t.Members) + 1
}

// TotalWeight sums every member weight, lead included.
func (t Team) TotalWeight() float64 {
	total := t.Lead.Weight
	for _, m := range t.Members {
		total += m.Weight
	}
	return total
}

// SubTeam is one named team within a hierarchical recruitment.
type SubTeam struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Team
}

// Recruitment is the outcome of team formation for a tier. Exactly one of
// Solo, Panel or SubTeams is populated.
type Recruitment struct {
	Tier     Tier      `json:"tier"`
	Solo     *Member   `json:"solo,omitempty"`
	Panel    *Team     `json:"panel,omitempty"`
	SubTeams []SubTeam `json:"subteams,omitempty"`
}

// Members flattens every recruited profile in recruitment order.
func (r Recruitment) Members() []Member {
	switch {
	case r.Solo != nil:
		return []Member{*r.Solo}
	case r.Panel != nil:
		return r.Panel.All()
	}
	var out []Member
	for _, st := range r.SubTeams {
		out = append(out, st.All()...)
	}
	return out
}

// StructuredAssessment is an SBAR-shaped silent assessment.
// RecommendedAnswer is empty when no option letter could be recognized.
type StructuredAssessment struct {
	Situation         string `json:"situation"`
	Background        string `json:"background"`
	Assessment        string `json:"assessment"`
	Recommendation    string `json:"recommendation"`
	RecommendedAnswer string `json:"recommended_answer,omitempty"`
	Raw               string `json:"raw,omitempty"`
}

// DefaultConfidence is assumed when a vote carries no parsable confidence.
const DefaultConfidence = 0.5

// Vote is an advisor's explicit preference in one poll.
type Vote struct {
	Choice     string  `json:"choice,omitempty"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
	Raw        string  `json:"raw,omitempty"`
}

// DiscussionTurn is one contribution to the case discussion log.
type DiscussionTurn struct {
	Speaker   string    `json:"speaker"`
	Specialty string    `json:"specialty"`
	Round     int       `json:"round"`
	Message   string    `json:"message"`
	Topic     string    `json:"topic,omitempty"`
	At        time.Time `json:"at"`
}

// ConsensusCheck is the tally of one set of preferences.
type ConsensusCheck struct {
	HasConsensus  bool           `json:"has_consensus"`
	Majority      string         `json:"majority,omitempty"`
	AgreementRate float64        `json:"agreement_rate"`
	Distribution  map[string]int `json:"distribution"`
	Total         int            `json:"total"`
}

// Feedback is one moderator intervention between rounds.
type Feedback struct {
	Round   int            `json:"round"`
	Message string         `json:"message"`
	Check   ConsensusCheck `json:"check"`
}

// FinalDecision is produced exactly once per deliberation.
type FinalDecision struct {
	Choice                string  `json:"choice,omitempty"`
	Rationale             string  `json:"rationale"`
	MinorityConsideration string  `json:"minority_consideration"`
	FollowUp              string  `json:"follow_up"`
	ConsensusStatus       string  `json:"consensus_status"`
	ConsensusAchieved     bool    `json:"consensus_achieved"`
	AgreementRate         float64 `json:"agreement_rate"`
	EarlyConsensus        bool    `json:"early_consensus"`
	Raw                   string  `json:"raw,omitempty"`
}

// AdvisorAssessment pairs an assessment with its author.
type AdvisorAssessment struct {
	AdvisorID  string               `json:"advisor_id"`
	Specialty  string               `json:"specialty"`
	Assessment StructuredAssessment `json:"assessment"`
}

// AdvisorVote pairs a vote with its author and the poll round.
type AdvisorVote struct {
	AdvisorID string `json:"advisor_id"`
	Specialty string `json:"specialty"`
	Round     int    `json:"round"`
	Vote      Vote   `json:"vote"`
}

// Acknowledgment is an advisor's reply to the final decision.
type Acknowledgment struct {
	AdvisorID string `json:"advisor_id"`
	Message   string `json:"message"`
}

// Deliberation is the audit record of one team's protocol run.
type Deliberation struct {
	TeamKey         string              `json:"team_key,omitempty"`
	Assessments     []AdvisorAssessment `json:"assessments"`
	InitialCheck    ConsensusCheck      `json:"initial_check"`
	Turns           []DiscussionTurn    `json:"turns,omitempty"`
	Votes           []AdvisorVote       `json:"votes,omitempty"`
	Polls           []ConsensusCheck    `json:"polls,omitempty"`
	Feedback        []Feedback          `json:"feedback,omitempty"`
	RoundsRun       int                 `json:"rounds_run"`
	Decision        FinalDecision       `json:"decision"`
	Acknowledgments []Acknowledgment    `json:"acknowledgments,omitempty"`
}

// CaseResult is the full output of one consultation.
type CaseResult struct {
	Case          Case           `json:"case"`
	Tier          Tier           `json:"tier"`
	Recruitment   Recruitment    `json:"recruitment"`
	Explanation   string         `json:"explanation,omitempty"`
	Deliberations []Deliberation `json:"deliberations"`
	Decision      FinalDecision  `json:"decision"`
	Usage         UsageReport    `json:"usage"`
	StartedAt     time.Time      `json:"started_at"`
	Duration      time.Duration  `json:"duration"`
}

// CaseSummary is the listing view of a stored case.
type CaseSummary struct {
	ID                string        `json:"id"`
	Question          string        `json:"question"`
	Tier              Tier          `json:"tier"`
	Choice            string        `json:"choice,omitempty"`
	ConsensusAchieved bool          `json:"consensus_achieved"`
	AgreementRate     float64       `json:"agreement_rate"`
	Advisors          int           `json:"advisors"`
	TotalTokens       int           `json:"total_tokens"`
	CreatedAt         time.Time     `json:"created_at"`
	Duration          time.Duration `json:"duration"`
}

// Summary returns the listing view of r.
func (r *CaseResult) Summary() CaseSummary {
	return CaseSummary{
		ID:                r.Case.ID,
		Question:          r.Case.Question,
		Tier:              r.Tier,
		Choice:            r.Decision.Choice,
		ConsensusAchieved: r.Decision.ConsensusAchieved,
		AgreementRate:     r.Decision.AgreementRate,
		Advisors:          len(r.Recruitment.Members()),
		TotalTokens:       r.Usage.Total.Total(),
		CreatedAt:         r.Case.CreatedAt,
		Duration:          r.Duration,
	}
}
