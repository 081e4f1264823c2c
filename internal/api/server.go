// Package api provides HTTP REST API handlers for the advisory panel.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/medpanel/internal/adapters/store"
	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/events"
	"github.com/hugo-lorenzo-mato/medpanel/internal/logging"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service/consult"
	"github.com/hugo-lorenzo-mato/medpanel/internal/specialty"
)

// Consulter runs consultations. *consult.Runner implements it.
type Consulter interface {
	NewCase(req consult.Request) (*core.Case, error)
	Run(ctx context.Context, c *core.Case, explain bool) (*core.CaseResult, error)
	Recruit(ctx context.Context, question string, tier core.Tier) (core.Recruitment, error)
}

// CaseRepository reads persisted cases. *store.SQLiteStore implements it.
type CaseRepository interface {
	Get(ctx context.Context, id string) (*core.CaseResult, error)
	List(ctx context.Context, opts store.ListOptions) ([]core.CaseSummary, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) ([]store.SpecialtyStats, error)
}

// Server provides HTTP REST API endpoints for consultations.
type Server struct {
	router         chi.Router
	consulter      Consulter
	cases          CaseRepository
	catalog        func() *specialty.Catalog
	eventBus       *events.EventBus
	logger         *logging.Logger
	allowedOrigins []string
	explain        bool

	// baseCtx outlives requests; background consultations run under it.
	baseCtx context.Context
	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAllowedOrigins sets the CORS origins. Defaults to any origin.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithCatalog sets the specialty catalog source. The function is called
// per request so reloaded catalogs are served.
func WithCatalog(catalog func() *specialty.Catalog) ServerOption {
	return func(s *Server) {
		s.catalog = catalog
	}
}

// WithExplain sets the default recruitment explanation setting for new cases.
func WithExplain(explain bool) ServerOption {
	return func(s *Server) {
		s.explain = explain
	}
}

// WithBaseContext sets the parent context of background consultations.
func WithBaseContext(ctx context.Context) ServerOption {
	return func(s *Server) {
		s.baseCtx = ctx
	}
}

// NewServer creates a new API server. cases and eventBus may be nil; the
// endpoints that need them then answer 503.
func NewServer(consulter Consulter, cases CaseRepository, eventBus *events.EventBus, opts ...ServerOption) *Server {
	s := &Server{
		consulter:      consulter,
		cases:          cases,
		eventBus:       eventBus,
		catalog:        specialty.Default,
		logger:         logging.NewNop(),
		allowedOrigins: []string{"*"},
		baseCtx:        context.Background(),
		running:        make(map[string]context.CancelFunc),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures Chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match", "X-Requested-With"},
		ExposedHeaders:   []string{"ETag", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		// Long-lived: event streams and synchronous consultations.
		r.Get("/events", s.handleSSE)
		r.Post("/cases", s.handleCreateCase)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/cases", s.handleListCases)
			r.Get("/cases/{caseID}", s.handleGetCase)
			r.Delete("/cases/{caseID}", s.handleDeleteCase)

			r.Get("/specialties", s.handleListSpecialties)
			r.Get("/specialties/{name}", s.handleGetSpecialty)

			r.Post("/recruit", s.handleRecruit)
			r.Get("/stats", s.handleStats)
		})
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	running := len(s.running)
	s.mu.Unlock()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"running": running,
	})
}

// Wait blocks until background consultations finish.
func (s *Server) Wait() {
	s.wg.Wait()
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
// Running consultations are cancelled with it.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.cancelAll()
	}()

	s.logger.Info("starting API server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	s.Wait()
	return nil
}

func (s *Server) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.running {
		cancel()
	}
}
