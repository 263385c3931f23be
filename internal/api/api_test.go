package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"smartresume/internal/ai"
	"smartresume/internal/auth"
	"smartresume/internal/database"
	"smartresume/internal/notify"
	"smartresume/internal/resume"
	"smartresume/internal/session"
	"smartresume/internal/store"
	"smartresume/internal/tasks"
)

type fakeCollaborator struct {
	reply    string
	analysis ai.Analysis
	err      error
	lastText string
}

func (f *fakeCollaborator) Generate(_ context.Context, prompt string) (string, error) {
	return f.reply, f.err
}

func (f *fakeCollaborator) AnalyzeCompatibility(_ context.Context, resumeText, _ string) (ai.Analysis, error) {
	f.lastText = resumeText
	return f.analysis, f.err
}

func (f *fakeCollaborator) GenerateCoverLetter(_ context.Context, _ resume.Document, _ resume.JobDetails) (string, error) {
	return f.reply, f.err
}

type fakeExports struct {
	mu   sync.Mutex
	rows map[string]*database.Export
}

func (f *fakeExports) Create(_ context.Context, export *database.Export) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *export
	f.rows[export.ID] = &cp
	return nil
}

func (f *fakeExports) Get(_ context.Context, sessionID, id string) (*database.Export, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.SessionID != sessionID {
		return nil, database.ErrExportNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakeExports) MarkFailed(_ context.Context, id string, code int, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return database.ErrExportNotFound
	}
	row.Status, row.ErrorCode, row.ErrorMessage = notify.ExportStatusError, code, message
	return nil
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type fakeLinks struct{}

func (fakeLinks) GeneratePresignedURL(_ context.Context, objectKey, _ string, _ time.Duration) (string, error) {
	return "https://example.invalid/" + objectKey, nil
}

type fakeScanner struct{ err error }

func (f fakeScanner) Scan(r io.Reader) error {
	_, _ = io.Copy(io.Discard, r)
	return f.err
}

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	collab  *fakeCollaborator
	exports *fakeExports
	queue   *fakeQueue
	token   string
}

func newTestServer(t *testing.T, scanner Scanner) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	collab := &fakeCollaborator{}
	factory := func(context.Context, string) (ai.Collaborator, error) { return collab, nil }
	sessions := session.NewManager(store.NewMemoryPersister(), factory, nil)
	tokens, err := auth.NewTokenService([]byte(strings.Repeat("k", 32)), time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	ts := &testServer{
		t:       t,
		collab:  collab,
		exports: &fakeExports{rows: map[string]*database.Export{}},
		queue:   &fakeQueue{},
	}
	ts.router = NewRouter(nil, nil)
	RegisterRoutes(ts.router, Deps{
		Sessions:       sessions,
		Tokens:         tokens,
		Exports:        ts.exports,
		Queue:          ts.queue,
		Links:          fakeLinks{},
		Scanner:        scanner,
		UploadMaxBytes: 1 << 10,
	})

	rec := ts.do(http.MethodPost, "/v1/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body.String())
	}
	var created sessionResponse
	decode(t, rec, &created)
	if created.Token == "" || created.SessionID == "" {
		t.Fatalf("unexpected session response %+v", created)
	}
	ts.token = created.Token
	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ts.send(req)
}

func (ts *testServer) send(req *http.Request) *httptest.ResponseRecorder {
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	if rec := ts.do(http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
}

func TestResume_RequiresToken(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.token = ""
	if rec := ts.do(http.MethodGet, "/v1/resume", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	ts.token = "garbage"
	if rec := ts.do(http.MethodGet, "/v1/resume", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestResume_GetDefaults(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(http.MethodGet, "/v1/resume", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	var got resumeResponse
	decode(t, rec, &got)
	if got.Resume.Metadata.Template != resume.TemplateModern || got.ActiveSection != resume.DefaultActiveSection {
		t.Fatalf("unexpected defaults %+v", got)
	}
	if got.Resume.Work == nil || len(got.Resume.Work) != 0 {
		t.Fatal("work should be an empty list")
	}
}

func TestResume_EntryLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodPost, "/v1/resume/work", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}
	var added addEntryResponse
	decode(t, rec, &added)
	if added.ID == "" || len(added.Resume.Work) != 1 {
		t.Fatalf("unexpected add response %+v", added)
	}

	rec = ts.do(http.MethodPatch, "/v1/resume/work/"+added.ID, map[string]any{"company": "Acme", "highlights": []string{"Shipped"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	var updated resumeResponse
	decode(t, rec, &updated)
	if w := updated.Resume.Work[0]; w.Company != "Acme" || len(w.Highlights) != 1 || w.Position != "" {
		t.Fatalf("unexpected entry %+v", w)
	}

	if rec = ts.do(http.MethodDelete, "/v1/resume/work/"+added.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("remove: %d", rec.Code)
	}
	if rec = ts.do(http.MethodDelete, "/v1/resume/work/"+added.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("second remove should be a no-op, got %d", rec.Code)
	}
}

func TestResume_UnknownSection(t *testing.T) {
	ts := newTestServer(t, nil)
	if rec := ts.do(http.MethodPost, "/v1/resume/hobbies", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodPut, "/v1/resume/active-section", map[string]string{"section": "hobbies"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodPut, "/v1/resume/active-section", map[string]string{"section": "metadata"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("metadata is not an editor tab: expected 400, got %d", rec.Code)
	}
	for _, key := range []string{"basics", "skills"} {
		if rec := ts.do(http.MethodPut, "/v1/resume/active-section", map[string]string{"section": key}); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", key, rec.Code)
		}
	}
}

func TestResume_ValidationRejectsBeforeStore(t *testing.T) {
	ts := newTestServer(t, nil)
	before := ts.do(http.MethodGet, "/v1/resume", nil).Body.String()

	if rec := ts.do(http.MethodPatch, "/v1/resume/basics", map[string]any{"email": "not-an-email"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for email, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodPatch, "/v1/resume/metadata", map[string]any{"template": "fancy"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for template, got %d", rec.Code)
	}
	req := httptest.NewRequest(http.MethodPatch, "/v1/resume/basics", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	if rec := ts.send(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", rec.Code)
	}

	if after := ts.do(http.MethodGet, "/v1/resume", nil).Body.String(); after != before {
		t.Fatal("document changed after rejected requests")
	}
}

func TestResume_PreviewUsesTemplate(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(http.MethodPatch, "/v1/resume/basics", map[string]any{"name": "Ada Lovelace", "email": "ada@example.com"})

	rec := ts.do(http.MethodGet, "/v1/resume/preview", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("preview: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "Ada Lovelace") {
		t.Fatal("name missing from preview")
	}

	rec = ts.do(http.MethodGet, "/v1/resume/preview?template=classic", nil)
	if !strings.Contains(rec.Body.String(), "ADA LOVELACE") {
		t.Fatal("classic template not applied")
	}
}

func TestAI_CredentialFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.collab.reply = "Seasoned engineer."

	if rec := ts.do(http.MethodPost, "/v1/ai/summary", nil); rec.Code != http.StatusPreconditionRequired {
		t.Fatalf("expected 428, got %d", rec.Code)
	}

	if rec := ts.do(http.MethodPut, "/v1/ai/credential", map[string]string{"api_key": "sk-test"}); rec.Code != http.StatusNoContent {
		t.Fatalf("set credential: %d", rec.Code)
	}
	rec := ts.do(http.MethodGet, "/v1/ai/status", nil)
	if strings.Contains(rec.Body.String(), "sk-test") || !strings.Contains(rec.Body.String(), `"has_credential":true`) {
		t.Fatalf("unexpected status body %s", rec.Body.String())
	}

	rec = ts.do(http.MethodPost, "/v1/ai/summary", map[string]string{"job_description": "Go"})
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: %d %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Summary string          `json:"summary"`
		Resume  resume.Document `json:"resume"`
	}
	decode(t, rec, &got)
	if got.Summary != "Seasoned engineer." || got.Resume.Basics.Summary != got.Summary {
		t.Fatalf("summary not applied: %+v", got)
	}

	ts.do(http.MethodDelete, "/v1/ai/credential", nil)
	if rec := ts.do(http.MethodPost, "/v1/ai/summary", nil); rec.Code != http.StatusPreconditionRequired {
		t.Fatalf("expected 428 after clearing, got %d", rec.Code)
	}
}

func TestAI_ErrorMapping(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(http.MethodPut, "/v1/ai/credential", map[string]string{"api_key": "sk-test"})

	if rec := ts.do(http.MethodPost, "/v1/ai/work/missing/description", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodPost, "/v1/ai/job-match", map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodPost, "/v1/ai/cover-letter", map[string]string{"position": "Dev"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	ts.collab.err = errors.New("upstream 500")
	if rec := ts.do(http.MethodPost, "/v1/ai/summary", nil); rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func newUpload(t *testing.T, content, jobDescription string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "resume.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.WriteField("job_description", jobDescription); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestAI_ATSUpload(t *testing.T) {
	ts := newTestServer(t, fakeScanner{})
	ts.do(http.MethodPut, "/v1/ai/credential", map[string]string{"api_key": "sk-test"})
	ts.collab.analysis = ai.Analysis{Score: 64, Suggestions: []string{"Add metrics"}}

	body, contentType := newUpload(t, "Ada Lovelace\nEngineer", "")
	req := httptest.NewRequest(http.MethodPost, "/v1/ai/ats", body)
	req.Header.Set("Content-Type", contentType)
	rec := ts.send(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ats: %d %s", rec.Code, rec.Body.String())
	}
	var got ai.Analysis
	decode(t, rec, &got)
	if got.Score != 64 || ts.collab.lastText != "Ada Lovelace\nEngineer" {
		t.Fatalf("unexpected analysis %+v text=%q", got, ts.collab.lastText)
	}

	big, contentType := newUpload(t, strings.Repeat("x", 2<<10), "")
	req = httptest.NewRequest(http.MethodPost, "/v1/ai/ats", big)
	req.Header.Set("Content-Type", contentType)
	if rec := ts.send(req); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestAI_ATSUploadInfected(t *testing.T) {
	ts := newTestServer(t, fakeScanner{err: ErrInfected})
	ts.do(http.MethodPut, "/v1/ai/credential", map[string]string{"api_key": "sk-test"})

	body, contentType := newUpload(t, "X5O!P%@AP", "")
	req := httptest.NewRequest(http.MethodPost, "/v1/ai/ats", body)
	req.Header.Set("Content-Type", contentType)
	if rec := ts.send(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCoverLetterExport(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(http.MethodPost, "/v1/cover-letter/export", map[string]string{"company": "Acme Corp", "cover_letter": "Dear team,"})
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="Cover_Letter_Acme_Corp.txt"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if rec.Body.String() != "Dear team," {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestPDFExport_Lifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(http.MethodPatch, "/v1/resume/basics", map[string]any{"name": "Ada"})

	req := httptest.NewRequest(http.MethodPost, "/v1/exports/pdf", strings.NewReader(`{"template":"classic"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-ID", "corr-1")
	rec := ts.send(req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ExportID string `json:"export_id"`
		TaskID   string `json:"task_id"`
	}
	decode(t, rec, &created)
	if created.ExportID == "" || created.TaskID != "task-1" || len(ts.queue.tasks) != 1 {
		t.Fatalf("unexpected create response %+v", created)
	}

	payload, err := tasks.ParseExportPDFPayload(ts.queue.tasks[0].Payload())
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.Template != "classic" || payload.Document.Basics.Name != "Ada" || payload.CorrelationID != "corr-1" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	rec = ts.do(http.MethodGet, "/v1/exports/"+created.ExportID, nil)
	var status exportResponse
	decode(t, rec, &status)
	if status.Status != notify.ExportStatusPending {
		t.Fatalf("unexpected status %q", status.Status)
	}
	if rec := ts.do(http.MethodGet, "/v1/exports/"+created.ExportID+"/download-link", nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	ts.exports.rows[created.ExportID].Status = notify.ExportStatusCompleted
	ts.exports.rows[created.ExportID].ObjectKey = "exports/x.pdf"
	rec = ts.do(http.MethodGet, "/v1/exports/"+created.ExportID+"/download-link", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "exports/x.pdf") {
		t.Fatalf("download link: %d %s", rec.Code, rec.Body.String())
	}

	if rec := ts.do(http.MethodGet, "/v1/exports/unknown", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPDFExport_EnqueueFailureMarksError(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.queue.err = errors.New("redis down")

	if rec := ts.do(http.MethodPost, "/v1/exports/pdf", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	for _, row := range ts.exports.rows {
		if row.Status != notify.ExportStatusError {
			t.Fatalf("export not marked failed: %+v", row)
		}
	}
}

func TestOriginAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/v1/ws", nil)
	if !originAllowed(nil, req) {
		t.Fatal("missing origin should be allowed")
	}
	req.Header.Set("Origin", "http://api.example.com")
	if !originAllowed(nil, req) {
		t.Fatal("same origin should be allowed")
	}
	req.Header.Set("Origin", "http://evil.example.com")
	if originAllowed(nil, req) || originAllowed([]string{"http://app.example.com"}, req) {
		t.Fatal("foreign origin should be rejected")
	}
	req.Header.Set("Origin", "http://app.example.com")
	if !originAllowed([]string{"http://app.example.com"}, req) {
		t.Fatal("listed origin should be allowed")
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter([]string{"http://app.example.com"}, nil)
	router.PATCH("/v1/resume/basics", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/v1/resume/basics", nil)
	req.Header.Set("Origin", "http://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://app.example.com" {
		t.Fatalf("unexpected allow origin %q (status %d)", got, rec.Code)
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Fatal("correlation id header missing")
	}
}
