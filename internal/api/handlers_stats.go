package api

import (
	"net/http"

	"github.com/WaterCountry/CodeGra.de/internal/document"
)

func (s *Server) handleRenderStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       s.orchestrator.Stats(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func (s *Server) handleBackends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"backends": document.Backends(),
		"default":  s.cfg.DefaultBackend,
	})
}
