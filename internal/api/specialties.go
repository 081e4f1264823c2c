package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/recruit"
)

// handleListSpecialties lists the catalog. ?q= filters by fuzzy name match,
// best match first.
func (s *Server) handleListSpecialties(w http.ResponseWriter, r *http.Request) {
	catalog := s.catalog()
	names := catalog.Names()
	if q := r.URL.Query().Get("q"); q != "" {
		names = catalog.Find(q)
	}

	out := make([]SpecialtyResponse, 0, len(names))
	for _, name := range names {
		sp, _ := catalog.Get(name)
		out = append(out, SpecialtyResponse{Specialty: sp, Position: catalog.Position(name)})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"specialties": out})
}

// handleGetSpecialty returns one catalog entry by exact name.
func (s *Server) handleGetSpecialty(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid specialty name")
		return
	}
	catalog := s.catalog()
	sp, ok := catalog.Get(name)
	if !ok {
		s.respondDomainError(w, core.ErrNotFound("specialty", name))
		return
	}
	s.respondJSON(w, http.StatusOK, SpecialtyResponse{Specialty: sp, Position: catalog.Position(name)})
}

// handleRecruit previews the team a question would get. Without a tier the
// utility model classifies the question first.
func (s *Server) handleRecruit(w http.ResponseWriter, r *http.Request) {
	var req RecruitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var tier core.Tier
	if req.Tier != "" {
		t, err := core.ParseTier(req.Tier)
		if err != nil {
			s.respondDomainError(w, err)
			return
		}
		tier = t
	}

	rec, err := s.consulter.Recruit(r.Context(), req.Question, tier)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, RecruitResponse{
		Tier:        rec.Tier,
		Summary:     recruit.Describe(rec),
		Recruitment: rec,
	})
}
