package testutil

import (
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

// CaseTime is the creation time of fixture cases.
var CaseTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// NewCase returns a valid four-option chest pain case.
func NewCase(question string) *core.Case {
	return &core.Case{
		ID:       "case-test",
		Question: question,
		Options: core.Options{
			"A": "Gastroesophageal reflux",
			"B": "Acute coronary syndrome",
			"C": "Costochondritis",
			"D": "Pulmonary embolism",
		},
		CreatedAt: CaseTime,
	}
}

// NewTeam returns a flat panel led by Internal Medicine with one
// consultant per specialty, ids specialist_1, specialist_2 and so on.
func NewTeam(specialties ...string) *core.Team {
	team := &core.Team{
		Lead: core.Member{ID: "lead_physician", Specialty: "Internal Medicine", Relevance: 0.9, Weight: 0.3, Role: core.RoleLead},
	}
	for i, s := range specialties {
		team.Members = append(team.Members, core.Member{
			ID:        fmt.Sprintf("specialist_%d", i+1),
			Specialty: s,
			Relevance: 1,
			Role:      core.RoleConsultant,
		})
	}
	return team
}
