package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/WaterCountry/CodeGra.de/internal/config"
	"github.com/WaterCountry/CodeGra.de/internal/document"
	"github.com/WaterCountry/CodeGra.de/internal/pipeline"
)

const testKey = "secret"

func testConfig() config.Config {
	return config.Config{
		APIKey:         testKey,
		DefaultBackend: document.BackendLaTeX,
		RenderTimeout:  10 * time.Second,
		MaxMatches:     3,
		WorkerCount:    2,
		MaxQueueSize:   10,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
		StatsWindow:    time.Hour,
	}
}

func newTestServer(t *testing.T) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	cfg := testConfig()
	log := zaptest.NewLogger(t)
	orch := pipeline.NewOrchestrator(cfg, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, log, cfg), orch
}

func do(t *testing.T, s *Server, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not json: %v: %s", err, rec.Body.String())
	}
	return out
}

// reportBody returns a valid request with n matches as a generic map so
// tests can break individual fields.
func reportBody(n int) map[string]any {
	lines := []string{"a", "b", "c", "d", "e", "f"}
	matches := make([]any, n)
	for i := range matches {
		matches[i] = map[string]any{
			"match_a": map[string]any{"start_line": 1, "end_line": 3, "lines": lines, "name": "a.go", "owner": "Alice"},
			"match_b": map[string]any{"start_line": 2, "end_line": 4, "lines": lines, "name": "b.go"},
			"color":   []int{200, 40, 40},
		}
	}
	return map[string]any{
		"matches": matches,
		"options": map[string]any{"matches_align": "sequential", "context_lines": 1},
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return data
}

func TestHealth_NoAuth(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestAuth_Rejected(t *testing.T) {
	s, _ := newTestServer(t)
	for _, header := range []string{"", "Bearer wrong", "Basic " + testKey} {
		req := httptest.NewRequest(http.MethodGet, "/api/backends", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestBackends(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/backends", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	backends, _ := body["backends"].([]any)
	if len(backends) != 2 || backends[0] != "DOCX" || backends[1] != "LaTeX" {
		t.Errorf("unexpected backends %v", body["backends"])
	}
	if body["default"] != document.BackendLaTeX {
		t.Errorf("expected default %q, got %v", document.BackendLaTeX, body["default"])
	}
}

func TestRenderReport_LaTeX(t *testing.T) {
	s, orch := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/reports", mustJSON(t, reportBody(2)), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-tex" {
		t.Errorf("expected latex content type, got %q", ct)
	}
	out := rec.Body.String()
	for _, want := range []string{`\section{Match 1}`, `\section{Match 2}`, `\begin{lstlisting}`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected report to contain %q", want)
		}
	}

	id := rec.Header().Get("X-Job-ID")
	if id == "" {
		t.Fatal("expected a job id header")
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), id+".tex") {
		t.Errorf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	if job := orch.GetJob(id); job == nil || job.Snapshot().Status != pipeline.StatusCompleted {
		t.Error("expected a completed job")
	}
}

func TestRenderReport_DOCX(t *testing.T) {
	s, _ := newTestServer(t)
	body := reportBody(1)
	body["backend"] = "DOCX"
	body["options"] = map[string]any{"matches_align": "sidebyside"}
	rec := do(t, s, http.MethodPost, "/api/reports", mustJSON(t, body), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("expected a zip archive")
	}
	if !strings.HasSuffix(rec.Header().Get("Content-Disposition"), `.docx"`) {
		t.Errorf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
}

func TestRenderReport_ValidationFields(t *testing.T) {
	s, _ := newTestServer(t)

	body := reportBody(1)
	body["backend"] = "PDF"
	body["options"] = map[string]any{"matches_align": "diagonal", "context_lines": -1}
	m := body["matches"].([]any)[0].(map[string]any)
	m["color"] = []int{1, 2}
	m["match_b"].(map[string]any)["end_line"] = 1

	rec := do(t, s, http.MethodPost, "/api/reports", mustJSON(t, body), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	fields, _ := decodeBody(t, rec)["fields"].(map[string]any)
	for _, key := range []string{
		"backend",
		"options.matches_align",
		"options.context_lines",
		"matches[0].color",
		"matches[0].match_b.end_line",
	} {
		if _, ok := fields[key]; !ok {
			t.Errorf("expected a message for %q, got %v", key, fields)
		}
	}
	if msg, _ := fields["backend"].(string); !strings.Contains(msg, "must be one of") {
		t.Errorf("unexpected backend message %q", msg)
	}
}

func TestRenderReport_MissingMatches(t *testing.T) {
	s, _ := newTestServer(t)
	body := map[string]any{"options": map[string]any{"matches_align": "newpage"}}
	rec := do(t, s, http.MethodPost, "/api/reports", mustJSON(t, body), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	fields, _ := decodeBody(t, rec)["fields"].(map[string]any)
	if _, ok := fields["matches"]; !ok {
		t.Errorf("expected a message for matches, got %v", fields)
	}
}

func TestRenderReport_InvalidJSON(t *testing.T) {
	s, _ := newTestServer(t)
	for _, body := range []string{"{", `{"unknown": 1}`} {
		rec := do(t, s, http.MethodPost, "/api/reports", []byte(body), "application/json")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestRenderReport_TooManyMatches(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/reports", mustJSON(t, reportBody(4)), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "too many matches") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestRenderReport_InconsistentMatches(t *testing.T) {
	s, _ := newTestServer(t)
	body := reportBody(2)
	m := body["matches"].([]any)[1].(map[string]any)
	m["match_a"].(map[string]any)["end_line"] = 40

	rec := do(t, s, http.MethodPost, "/api/reports", mustJSON(t, body), "application/json")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	details, _ := decodeBody(t, rec)["details"].([]any)
	if len(details) != 1 || !strings.HasPrefix(details[0].(string), "match 2") {
		t.Errorf("unexpected details %v", details)
	}
}

func TestSubmitReport_Poll(t *testing.T) {
	s, orch := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/reports/jobs", mustJSON(t, reportBody(1)), "application/json")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	id, _ := body["job_id"].(string)
	if id == "" {
		t.Fatal("expected a job id")
	}
	if body["poll_url"] != "/api/reports/jobs/"+id+"/status" {
		t.Errorf("unexpected poll url %v", body["poll_url"])
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := orch.GetJob(id).Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec = do(t, s, http.MethodGet, "/api/reports/jobs/"+id+"/status", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if status := decodeBody(t, rec)["status"]; status != string(pipeline.StatusCompleted) {
		t.Errorf("expected completed, got %v", status)
	}

	rec = do(t, s, http.MethodGet, "/api/reports/jobs/"+id+"/artifact", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `\begin{document}`) {
		t.Error("expected the latex artifact")
	}
}

func TestReportJob_NotFound(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{"/api/reports/jobs/nope/status", "/api/reports/jobs/nope/artifact"} {
		rec := do(t, s, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestReportArtifact_Pending(t *testing.T) {
	cfg := testConfig()
	log := zaptest.NewLogger(t)
	// Never started, so submitted jobs stay queued.
	orch := pipeline.NewOrchestrator(cfg, log)
	t.Cleanup(orch.Stop)
	s := NewServer(orch, log, cfg)

	rec := do(t, s, http.MethodPost, "/api/reports/jobs", mustJSON(t, reportBody(1)), "application/json")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	id, _ := decodeBody(t, rec)["job_id"].(string)

	rec = do(t, s, http.MethodGet, "/api/reports/jobs/"+id+"/artifact", nil, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if status := decodeBody(t, rec)["status"]; status != string(pipeline.StatusQueued) {
		t.Errorf("expected queued, got %v", status)
	}
}

func TestSubmitReport_AfterStop(t *testing.T) {
	s, orch := newTestServer(t)
	body := reportBody(1)
	body["backend"] = "DOCX"
	rec := do(t, s, http.MethodPost, "/api/reports/jobs", mustJSON(t, body), "application/json")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	id, _ := decodeBody(t, rec)["job_id"].(string)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := orch.GetJob(id).Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	orch.Stop()
	rec = do(t, s, http.MethodPost, "/api/reports/jobs", mustJSON(t, body), "application/json")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after stop, got %d", rec.Code)
	}
}

func TestRenderStats(t *testing.T) {
	s, _ := newTestServer(t)
	if rec := do(t, s, http.MethodPost, "/api/reports", mustJSON(t, reportBody(1)), "application/json"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/api/stats/render", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if _, ok := body["queue_depth"]; !ok {
		t.Error("expected queue depth")
	}
	stats, _ := body["stats"].(map[string]any)
	if stats == nil {
		t.Fatalf("expected stats, got %v", body)
	}
	if p50, _ := stats["p50_us"].(float64); p50 <= 0 {
		t.Errorf("expected a non-zero median latency, got %v", stats)
	}
}

func upload(t *testing.T, s *Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return do(t, s, http.MethodPost, "/api/sources/lines", buf.Bytes(), mw.FormDataContentType())
}

func TestSourceLines_Text(t *testing.T) {
	s, _ := newTestServer(t)
	rec := upload(t, s, "../../main.go", "package main\n\nfunc main() {}\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["filename"] != "main.go" {
		t.Errorf("expected sanitized filename, got %v", body["filename"])
	}
	lines, _ := body["lines"].([]any)
	if len(lines) != 3 || lines[0] != "package main" || lines[1] != "" {
		t.Errorf("unexpected lines %v", lines)
	}
	if body["document"] != false {
		t.Errorf("expected a plain text source, got %v", body["document"])
	}
}

func TestSourceLines_HTML(t *testing.T) {
	s, _ := newTestServer(t)
	rec := upload(t, s, "answer.html", "<p>one</p><p>two</p>")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	lines, _ := body["lines"].([]any)
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Errorf("unexpected lines %v", lines)
	}
}

func TestSourceLines_BadDocument(t *testing.T) {
	s, _ := newTestServer(t)
	rec := upload(t, s, "essay.docx", "not a zip")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
}

func TestSourceLines_MissingFile(t *testing.T) {
	s, _ := newTestServer(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "x")
	mw.Close()
	rec := do(t, s, http.MethodPost, "/api/sources/lines", buf.Bytes(), mw.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"main.go":          "main.go",
		"../../etc/passwd": "passwd",
		`C:\work\a.py`:     "a.py",
		"":                 "unnamed",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}
