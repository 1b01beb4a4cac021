package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docsite/internal/config"
	"github.com/dgallion1/docsite/internal/pipeline"
	"github.com/dgallion1/docsite/internal/preview"
	"github.com/dgallion1/docsite/internal/sitestore"
)

// Server is the HTTP API server for docsite.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	sites        *sitestore.Store
	preview      *preview.Renderer
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, sites *sitestore.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		sites:        sites,
		preview:      preview.New(cfg.PreviewLimit),
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DocsiteAPIKey, s.log))

		r.Post("/api/convert", s.handleConvert)
		r.Post("/api/convert/batch", s.handleBatchConvert)
		r.Get("/api/convert/{jobID}/status", s.handleConvertStatus)
		r.Get("/api/stats/conversions", s.handleConversionStats)

		r.Route("/api/sites", func(r chi.Router) {
			r.Get("/", s.handleListSites)
			r.Route("/{siteID}", func(r chi.Router) {
				r.Get("/", s.handleGetSite)
				r.Delete("/", s.handleDeleteSite)
				r.Get("/home/preview", s.handleHomePreview)
				r.Get("/sections/{section}/items/{item}/preview", s.handleItemPreview)
			})
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.sites.Ping(r.Context()); err != nil {
		s.log.Warn("health check: store unavailable", "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":      status,
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
