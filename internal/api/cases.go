package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/medpanel/internal/adapters/store"
	"github.com/hugo-lorenzo-mato/medpanel/internal/config"
	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service/consult"
)

const maxListLimit = 500

// handleCreateCase starts a consultation. By default it runs in the
// background and answers 202; ?wait=true blocks until the result is ready.
func (s *Server) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
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

	c, err := s.consulter.NewCase(consult.Request{
		ID:       req.ID,
		Question: req.Question,
		Options:  core.Options(req.Options),
		Tier:     tier,
	})
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	explain := s.explain
	if req.Explain != nil {
		explain = *req.Explain
	}

	if r.URL.Query().Get("wait") == "true" {
		ctx, ok := s.track(r.Context(), c.ID)
		if !ok {
			s.respondError(w, http.StatusConflict, "case already running: "+c.ID)
			return
		}
		defer s.untrack(c.ID)
		result, err := s.consulter.Run(ctx, c, explain)
		if err != nil && result == nil {
			s.respondDomainError(w, err)
			return
		}
		if err != nil {
			// The decision exists but could not be persisted.
			s.logger.Warn("case finished with error", "case_id", c.ID, "error", err)
		}
		w.Header().Set("Location", "/api/v1/cases/"+c.ID)
		s.respondJSON(w, http.StatusOK, result)
		return
	}

	ctx, ok := s.track(s.baseCtx, c.ID)
	if !ok {
		s.respondError(w, http.StatusConflict, "case already running: "+c.ID)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.untrack(c.ID)
		if _, err := s.consulter.Run(ctx, c, explain); err != nil {
			s.logger.Warn("background consultation failed", "case_id", c.ID, "error", err)
		}
	}()

	w.Header().Set("Location", "/api/v1/cases/"+c.ID)
	s.respondJSON(w, http.StatusAccepted, CaseAccepted{
		ID:        c.ID,
		Status:    StatusRunning,
		EventsURL: "/api/v1/events?case=" + c.ID,
	})
}

// track registers a running case. It fails when id is already running.
func (s *Server) track(parent context.Context, id string) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.running[id]; busy {
		return nil, false
	}
	ctx, cancel := context.WithCancel(parent)
	s.running[id] = cancel
	return ctx, true
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.running[id]; ok {
		cancel()
		delete(s.running, id)
	}
}

func (s *Server) isRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[id]
	return ok
}

// handleListCases returns case summaries, newest first.
func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	if s.cases == nil {
		s.respondError(w, http.StatusServiceUnavailable, "case store not configured")
		return
	}

	opts := store.ListOptions{}
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			s.respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		opts.Offset = n
	}
	if v := q.Get("tier"); v != "" {
		t, err := core.ParseTier(v)
		if err != nil {
			s.respondDomainError(w, err)
			return
		}
		opts.Tier = t
	}

	cases, err := s.cases.List(r.Context(), opts)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	if cases == nil {
		cases = []core.CaseSummary{}
	}
	limit := opts.Limit
	if limit == 0 {
		limit = store.DefaultListLimit
	}
	s.respondJSON(w, http.StatusOK, CaseListResponse{Cases: cases, Limit: limit, Offset: opts.Offset})
}

// handleGetCase returns a stored case, honoring If-None-Match.
func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "caseID")
	if s.isRunning(id) {
		s.respondJSON(w, http.StatusAccepted, CaseAccepted{
			ID:        id,
			Status:    StatusRunning,
			EventsURL: "/api/v1/events?case=" + id,
		})
		return
	}
	if s.cases == nil {
		s.respondError(w, http.StatusServiceUnavailable, "case store not configured")
		return
	}

	result, err := s.cases.Get(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	body, err := json.Marshal(result)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	etag := config.CalculateETag(body)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleDeleteCase cancels a running case or deletes a stored one.
func (s *Server) handleDeleteCase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "caseID")

	s.mu.Lock()
	cancel, running := s.running[id]
	s.mu.Unlock()
	if running {
		cancel()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if s.cases == nil {
		s.respondError(w, http.StatusServiceUnavailable, "case store not configured")
		return
	}
	if err := s.cases.Delete(r.Context(), id); err != nil {
		s.respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStats returns per-specialty agreement statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.cases == nil {
		s.respondError(w, http.StatusServiceUnavailable, "case store not configured")
		return
	}
	stats, err := s.cases.Stats(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	if stats == nil {
		stats = []store.SpecialtyStats{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"specialties": stats})
}
