package api

import (
	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/specialty"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Category string `json:"category,omitempty"`
}

// CreateCaseRequest starts a consultation.
type CreateCaseRequest struct {
	ID       string            `json:"id,omitempty"`
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
	Tier     string            `json:"tier,omitempty"`
	Explain  *bool             `json:"explain,omitempty"`
}

// CaseAccepted is returned for consultations started in the background.
type CaseAccepted struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	EventsURL string `json:"events_url"`
}

// Case run states reported by the API.
const (
	StatusRunning = "running"
)

// RecruitRequest previews the team for a question.
type RecruitRequest struct {
	Question string `json:"question"`
	Tier     string `json:"tier,omitempty"`
}

// RecruitResponse describes a recruited team.
type RecruitResponse struct {
	Tier        core.Tier        `json:"tier"`
	Summary     string           `json:"summary"`
	Recruitment core.Recruitment `json:"recruitment"`
}

// SpecialtyResponse is one catalog entry with its position.
type SpecialtyResponse struct {
	specialty.Specialty
	Position int `json:"position"`
}

// CaseListResponse is a page of case summaries.
type CaseListResponse struct {
	Cases  []core.CaseSummary `json:"cases"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}
