package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/WaterCountry/CodeGra.de/internal/source"
)

// handleSourceLines splits an uploaded submission file into the lines
// matches refer to.
func (s *Server) handleSourceLines(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	loader := source.ForFile(filename, source.Options{PDFFallback: s.cfg.PDFFallbackPdftotext})
	lines, err := loader.Lines(bytes.NewReader(data))
	if err != nil {
		s.log.Warn("source decode failed", zap.String("filename", filename), zap.Error(err))
		jsonError(w, "failed to decode file: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"filename":   filename,
		"document":   source.IsDocumentFormat(filename),
		"line_count": len(lines),
		"lines":      lines,
	})
}
