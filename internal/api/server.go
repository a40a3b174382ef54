package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/WaterCountry/CodeGra.de/internal/config"
	"github.com/WaterCountry/CodeGra.de/internal/pipeline"
)

// Server is the HTTP API for rendering plagiarism reports.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	validator    *requestValidator
	log          *zap.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *zap.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		validator:    newRequestValidator(),
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
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/backends", s.handleBackends)

		r.Post("/api/reports", s.handleRenderReport)
		r.Post("/api/reports/jobs", s.handleSubmitReport)
		r.Get("/api/reports/jobs/{jobID}/status", s.handleReportStatus)
		r.Get("/api/reports/jobs/{jobID}/artifact", s.handleReportArtifact)

		r.Post("/api/sources/lines", s.handleSourceLines)

		r.Get("/api/stats/render", s.handleRenderStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
