package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/WaterCountry/CodeGra.de/internal/document"
	"github.com/WaterCountry/CodeGra.de/internal/pipeline"
	"github.com/WaterCountry/CodeGra.de/internal/plagiarism"
)

var artifactTypes = map[string]struct {
	contentType string
	extension   string
}{
	document.BackendLaTeX: {"application/x-tex", ".tex"},
	document.BackendDOCX:  {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", ".docx"},
}

// decodeReport reads and validates a report request. It writes the error
// response itself and returns false when the request can not be used.
func (s *Server) decodeReport(w http.ResponseWriter, r *http.Request) (reportRequest, bool) {
	var req reportRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return req, false
		}
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return req, false
	}

	fields, err := s.validator.Check(req)
	if err != nil {
		jsonError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return req, false
	}
	if fields != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": fields,
		})
		return req, false
	}

	if s.cfg.MaxMatches > 0 && len(req.Matches) > s.cfg.MaxMatches {
		jsonError(w, fmt.Sprintf("too many matches: %d (max %d)", len(req.Matches), s.cfg.MaxMatches), http.StatusBadRequest)
		return req, false
	}

	if err := plagiarism.CheckMatches(req.matches()); err != nil {
		details := make([]string, 0)
		for _, e := range multierr.Errors(err) {
			details = append(details, e.Error())
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "inconsistent matches",
			"details": details,
		})
		return req, false
	}
	return req, true
}

// handleRenderReport renders a report and returns the artifact directly.
// Renders that outlive the timeout keep running and are answered with the
// job to poll.
func (s *Server) handleRenderReport(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeReport(w, r)
	if !ok {
		return
	}
	backend := req.backend(s.cfg.DefaultBackend)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RenderTimeout)
	defer cancel()

	job, out, err := s.orchestrator.Render(ctx, backend, req.matches(), req.options())
	switch {
	case err == nil:
		s.writeArtifact(w, job, out)
	case errors.Is(err, context.DeadlineExceeded):
		s.log.Warn("render still running at timeout", zap.String("job_id", job.ID))
		writeJSON(w, http.StatusAccepted, s.jobResponse(job))
	case errors.Is(err, context.Canceled):
		// Client went away; the job carries on.
	default:
		s.renderError(w, job, err)
	}
}

// handleSubmitReport queues a report and returns the job to poll.
func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeReport(w, r)
	if !ok {
		return
	}

	job := pipeline.NewJob(req.backend(s.cfg.DefaultBackend), req.matches(), req.options())
	if err := s.orchestrator.Submit(job); err != nil {
		s.renderError(w, job, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.jobResponse(job))
}

func (s *Server) handleReportStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleReportArtifact(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	if err := job.Err(); err != nil {
		s.renderError(w, job, err)
		return
	}
	out, ok := job.Artifact()
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "job not finished",
			"status": job.Snapshot().Status,
		})
		return
	}
	s.writeArtifact(w, job, out)
}

func (s *Server) jobResponse(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"job_id":       snap.ID,
		"status":       snap.Status,
		"poll_url":     "/api/reports/jobs/" + snap.ID + "/status",
		"artifact_url": "/api/reports/jobs/" + snap.ID + "/artifact",
	}
}

func (s *Server) writeArtifact(w http.ResponseWriter, job *pipeline.Job, out []byte) {
	t, ok := artifactTypes[job.Backend]
	if !ok {
		t.contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", t.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s%s"`, job.ID, t.extension))
	w.Header().Set("X-Job-ID", job.ID)
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// renderError maps pipeline and builder errors onto HTTP responses.
func (s *Server) renderError(w http.ResponseWriter, job *pipeline.Job, err error) {
	var (
		unknownBackend *document.UnknownBackendError
		unsupported    *plagiarism.UnsupportedAlignmentError
		queueFull      *pipeline.QueueFullError
	)
	switch {
	case errors.As(err, &unknownBackend), errors.As(err, &unsupported):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &queueFull), errors.Is(err, pipeline.ErrStopped):
		w.Header().Set("Retry-After", "5")
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.log.Error("render failed", zap.String("job_id", job.ID), zap.Error(err))
		jsonError(w, "render failed: "+err.Error(), http.StatusInternalServerError)
	}
}
