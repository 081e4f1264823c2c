// Package recruit assembles advisory teams from relevance scores.
package recruit

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/specialty"
)

const (
	// PanelSize is the number of consultants on a flat panel.
	PanelSize = 4
	// LeadWeight is the flat-panel lead's decision weight.
	LeadWeight = 0.3
	// ConsultantShare is split across consultants in proportion to relevance.
	ConsultantShare = 0.7
	// LeadRelevance is the fixed relevance of Internal Medicine leads.
	LeadRelevance = 0.9

	panelCandidates   = 8
	panelRepeatScore  = 0.8
	panelMaxCopies    = 2
	poolRepeatScore   = 0.7
	poolMaxCopies     = 3
	soloID            = "pcp_1"
	panelLeadID       = "lead_physician"
	frdtLeadExpertise = "comprehensive medical knowledge, clinical decision making, treatment planning"
	pharmacyExpertise = "medication interactions, dosing, pharmaceutical care, treatment optimization"
)

// Sub-team keys, in execution order.
const (
	TeamInitialAssessment  = "iat"
	TeamDiagnosticEvidence = "det"
	TeamFinalReview        = "frdt"
)

// Recruiter forms teams for each complexity tier. Recruit is safe for
// concurrent use with Reload.
type Recruiter struct {
	mu      sync.RWMutex
	scorer  *specialty.Scorer
	catalog *specialty.Catalog
}

// New creates a recruiter backed by scorer.
func New(scorer *specialty.Scorer) *Recruiter {
	return &Recruiter{scorer: scorer, catalog: scorer.Catalog()}
}

// Reload swaps the specialty catalog used by later recruitments.
func (r *Recruiter) Reload(scorer *specialty.Scorer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scorer = scorer
	r.catalog = scorer.Catalog()
}

// Catalog returns the catalog currently in use.
func (r *Recruiter) Catalog() *specialty.Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

func (r *Recruiter) snapshot() *Recruiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Recruiter{scorer: r.scorer, catalog: r.catalog}
}

// Recruit dispatches on tier.
func (r *Recruiter) Recruit(question string, tier core.Tier) (core.Recruitment, error) {
	r = r.snapshot()
	switch tier {
	case core.TierLow:
		solo := r.Solo()
		return core.Recruitment{Tier: tier, Solo: &solo}, nil
	case core.TierModerate:
		team := r.FlatPanel(question)
		return core.Recruitment{Tier: tier, Panel: &team}, nil
	case core.TierHigh:
		return core.Recruitment{Tier: tier, SubTeams: r.Hierarchical(question)}, nil
	}
	return core.Recruitment{}, core.ErrValidation(core.CodeInvalidTier, fmt.Sprintf("cannot recruit for tier %q", tier))
}

// Solo returns the single generalist used for low-complexity cases.
func (r *Recruiter) Solo() core.Member {
	return core.Member{
		ID:        soloID,
		Specialty: specialty.PrimaryCare,
		Expertise: r.catalog.Describe(specialty.PrimaryCare),
		Role:      core.RoleSolo,
		Relevance: 1.0,
	}
}

// FlatPanel returns an Internal Medicine lead and exactly four consultants.
func (r *Recruiter) FlatPanel(question string) core.Team {
	scores := r.scorer.Score(question)
	ranked := r.scorer.Ranked(scores)
	if len(ranked) > panelCandidates {
		ranked = ranked[:panelCandidates]
	}

	picked := make([]specialty.Ranked, 0, PanelSize)
	copies := make(map[string]int)
	add := func(c specialty.Ranked) {
		picked = append(picked, c)
		copies[c.Specialty]++
	}

	for _, c := range ranked {
		if len(picked) == PanelSize {
			break
		}
		add(c)
	}
	for _, c := range ranked {
		if len(picked) == PanelSize {
			break
		}
		if c.Score > panelRepeatScore && copies[c.Specialty] < panelMaxCopies {
			add(c)
		}
	}
	for _, c := range r.backfill(scores, copies) {
		if len(picked) == PanelSize {
			break
		}
		add(c)
	}

	total := 0.0
	for _, c := range picked {
		total += c.Score
	}

	team := core.Team{
		Lead: core.Member{
			ID:        panelLeadID,
			Specialty: specialty.InternalMedicine,
			Expertise: r.catalog.Describe(specialty.InternalMedicine),
			Role:      core.RoleLead,
			Relevance: LeadRelevance,
			Weight:    LeadWeight,
		},
	}
	for i, c := range picked {
		weight := ConsultantShare / PanelSize
		if total > 0 {
			weight = c.Score / total * ConsultantShare
		}
		team.Members = append(team.Members, core.Member{
			ID:        fmt.Sprintf("specialist_%d", i+1),
			Specialty: c.Specialty,
			Expertise: r.catalog.Describe(c.Specialty),
			Role:      core.RoleConsultant,
			Relevance: c.Score,
			Weight:    weight,
		})
	}
	return team
}

// backfill lists unused catalog specialties, highest score first, then in
// catalog order.
func (r *Recruiter) backfill(scores specialty.Scores, used map[string]int) []specialty.Ranked {
	var out []specialty.Ranked
	for _, name := range r.catalog.Names() {
		if used[name] == 0 {
			out = append(out, specialty.Ranked{Specialty: name, Score: scores.Get(name)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// pool is the relevance-sorted candidate list for hierarchical teams.
// Distinct specialties come first; strongly relevant ones repeat after them.
func (r *Recruiter) pool(scores specialty.Scores) []specialty.Ranked {
	ranked := r.scorer.Ranked(scores)
	pool := append([]specialty.Ranked(nil), ranked...)
	for _, c := range ranked {
		if c.Score <= poolRepeatScore {
			continue
		}
		for n := 1; n < poolMaxCopies; n++ {
			pool = append(pool, c)
		}
	}
	return pool
}

// Hierarchical returns the three sub-teams in execution order.
func (r *Recruiter) Hierarchical(question string) []core.SubTeam {
	scores := r.scorer.Score(question)
	pool := r.pool(scores)

	at := func(i int, fallback string, fallbackScore float64) (string, float64) {
		if i < len(pool) {
			return pool[i].Specialty, pool[i].Score
		}
		return fallback, fallbackScore
	}
	scoreOr := func(name string, fallback float64) float64 {
		if v, ok := scores[name]; ok {
			return v
		}
		return fallback
	}
	// preferred is used unless it already appears in the first n pool slots,
	// in which case slot n is taken instead.
	preferUnless := func(preferred string, n int) (string, float64) {
		for i := 0; i < n && i < len(pool); i++ {
			if pool[i].Specialty == preferred {
				if n < len(pool) {
					return pool[n].Specialty, pool[n].Score
				}
				break
			}
		}
		return preferred, scoreOr(preferred, 0.7)
	}

	member := func(id string, role core.Role, name string, relevance float64) core.Member {
		return core.Member{
			ID:        id,
			Specialty: name,
			Expertise: r.catalog.Describe(name),
			Role:      role,
			Relevance: relevance,
		}
	}

	iat1, iat1Score := at(0, specialty.InternalMedicine, 0.7)
	iat2, iat2Score := at(1, specialty.PrimaryCare, 0.6)
	iat := core.SubTeam{
		Key:  TeamInitialAssessment,
		Name: "Initial Assessment Team (IAT)",
		Team: core.Team{
			Lead: member("iat_lead", core.RoleLead, specialty.EmergencyMedicine, scoreOr(specialty.EmergencyMedicine, 0.8)),
			Members: []core.Member{
				member("iat_member_1", core.RoleConsultant, iat1, iat1Score),
				member("iat_member_2", core.RoleConsultant, iat2, iat2Score),
			},
		},
	}

	detLead, detLeadScore := preferUnless(specialty.Pathologist, 2)
	det1, det1Score := preferUnless(specialty.Radiologist, 3)
	det2, det2Score := at(4, specialty.Hematologist, 0.6)
	det := core.SubTeam{
		Key:  TeamDiagnosticEvidence,
		Name: "Diagnostic Evidence Team (DET)",
		Team: core.Team{
			Lead: member("det_lead", core.RoleLead, detLead, detLeadScore),
			Members: []core.Member{
				member("det_member_1", core.RoleConsultant, det1, det1Score),
				member("det_member_2", core.RoleConsultant, det2, det2Score),
			},
		},
	}

	frdt1, frdt1Score := at(0, specialty.Oncologist, 0.7)
	frdtLead := member("frdt_lead", core.RoleLead, specialty.InternalMedicine, LeadRelevance)
	frdtLead.Expertise = frdtLeadExpertise
	pharmacist := member("frdt_member_2", core.RoleConsultant, specialty.ClinicalPharmacist, 0.8)
	pharmacist.Expertise = pharmacyExpertise
	frdt := core.SubTeam{
		Key:  TeamFinalReview,
		Name: "Final Review & Decision Team (FRDT)",
		Team: core.Team{
			Lead: frdtLead,
			Members: []core.Member{
				member("frdt_member_1", core.RoleConsultant, frdt1, frdt1Score),
				pharmacist,
			},
		},
	}

	return []core.SubTeam{iat, det, frdt}
}
