package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docsite/internal/config"
	"github.com/dgallion1/docsite/internal/pipeline"
	"github.com/dgallion1/docsite/internal/sitemodel"
	"github.com/dgallion1/docsite/internal/sitestore"
)

const testKey = "secret"

const sampleMarkdown = `# Главная

## Меню

### Новости

## Название

Школа №1

# Новости

### Выпускной

Праздник прошёл в актовом зале.

![](media/photo.jpg)
`

type testEnv struct {
	srv   *Server
	store *sitestore.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sitestore.Open(":memory:", log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cfg := config.Config{
		DocsiteAPIKey:  testKey,
		WorkerCount:    1,
		MaxQueueSize:   8,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
		StatsWindow:    time.Hour,
		PreviewLimit:   6,
	}
	orch := pipeline.NewOrchestrator(cfg, store, log)
	orch.Start(context.Background())
	t.Cleanup(func() {
		orch.Stop()
		store.Close()
	})
	return &testEnv{srv: NewServer(orch, store, log, cfg), store: store}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) putSite(t *testing.T, id string) {
	t.Helper()
	err := e.store.Put(context.Background(), &sitestore.Site{
		ID:          id,
		ContentHash: "hash-" + id,
		Filename:    "site.docx",
		Model: &sitemodel.SiteModel{
			HomeTitle:  "Главная",
			SiteTitle:  "Школа",
			HeaderMain: "Школа",
			Sections: []sitemodel.MenuSection{{
				Title: "Новости",
				Slug:  "news",
				Items: []sitemodel.Item{{Index: 1, Title: "Выпускной", Slug: "vypusknoy", Body: "Праздник <script>x</script>", Images: []string{"rId6"}}},
			}},
			PreviewKeys: []string{"новости"},
			Images:      map[string]string{"rId6": "word/media/photo.jpg"},
		},
	})
	if err != nil {
		t.Fatalf("put site: %v", err)
	}
}

func multipartBody(t *testing.T, field string, files map[string]string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte(content))
	}
	for k, v := range extra {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	e := newTestEnv(t)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	e := newTestEnv(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", "Basic abc"},
		{"wrong key", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sites", nil)
			req.Header.Set("Authorization", tt.header)
			rec := e.do(t, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON error, got %q", ct)
			}
		})
	}
}

func TestConvert_EndToEnd(t *testing.T) {
	e := newTestEnv(t)
	body, ct := multipartBody(t, "file", map[string]string{"site.md": sampleMarkdown}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/convert", body)
	req.Header.Set("Content-Type", ct)
	rec := e.do(t, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	decode(t, rec, &accepted)
	if accepted.PollURL != "/api/convert/"+accepted.JobID+"/status" {
		t.Errorf("unexpected poll url %q", accepted.PollURL)
	}

	var snap pipeline.JobSnapshot
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec = e.do(t, httptest.NewRequest(http.MethodGet, accepted.PollURL, nil))
		decode(t, rec, &snap)
		if snap.Status.Terminal() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if snap.Status != pipeline.StatusCompleted || snap.SiteID == "" {
		t.Fatalf("expected completed job with site, got %+v", snap)
	}

	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/sites/"+snap.SiteID, nil))
	var m sitemodel.SiteModel
	decode(t, rec, &m)
	if m.SiteTitle != "Школа №1" || len(m.Sections) != 1 || m.Sections[0].Slug != "news" {
		t.Errorf("unexpected model %+v", m)
	}

	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/stats/conversions", nil))
	if !strings.Contains(rec.Body.String(), `"completed":1`) {
		t.Errorf("expected one conversion sample, got %s", rec.Body.String())
	}
}

func TestConvert_MissingFile(t *testing.T) {
	e := newTestEnv(t)
	body, ct := multipartBody(t, "other", map[string]string{"a.md": "x"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/convert", body)
	req.Header.Set("Content-Type", ct)
	if rec := e.do(t, req); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestConvert_TooLarge(t *testing.T) {
	e := newTestEnv(t)
	e.srv.cfg.MaxUploadBytes = 10
	body, ct := multipartBody(t, "file", map[string]string{"a.md": strings.Repeat("x", 100)}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/convert", body)
	req.Header.Set("Content-Type", ct)
	if rec := e.do(t, req); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestBatchConvert(t *testing.T) {
	e := newTestEnv(t)
	body, ct := multipartBody(t, "files", map[string]string{"a.md": sampleMarkdown, "b.txt": "Главная\n\nТекст"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/convert/batch", body)
	req.Header.Set("Content-Type", ct)
	rec := e.do(t, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var out struct {
		Jobs []map[string]any `json:"jobs"`
	}
	decode(t, rec, &out)
	if len(out.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(out.Jobs))
	}
	for _, j := range out.Jobs {
		if j["job_id"] == nil {
			t.Errorf("expected job id, got %v", j)
		}
	}
}

func TestStatus_UnknownJob(t *testing.T) {
	e := newTestEnv(t)
	if rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/convert/nope/status", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetSite_Formats(t *testing.T) {
	e := newTestEnv(t)
	e.putSite(t, "s1")

	rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/sites/s1?format=yaml", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/yaml" {
		t.Fatalf("unexpected yaml response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "site_title: Школа") {
		t.Errorf("expected yaml body, got %s", rec.Body.String())
	}

	if rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/sites/s1?format=xml", nil)); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown format, got %d", rec.Code)
	}
	if rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/sites/missing", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestListAndDeleteSites(t *testing.T) {
	e := newTestEnv(t)
	e.putSite(t, "s1")

	rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/sites", nil))
	var out struct {
		Sites []sitestore.Summary `json:"sites"`
	}
	decode(t, rec, &out)
	if len(out.Sites) != 1 || out.Sites[0].ID != "s1" {
		t.Fatalf("unexpected list %+v", out.Sites)
	}

	if rec := e.do(t, httptest.NewRequest(http.MethodDelete, "/api/sites/s1", nil)); rec.Code != http.StatusOK {
		t.Errorf("expected 200 on delete, got %d", rec.Code)
	}
	if rec := e.do(t, httptest.NewRequest(http.MethodDelete, "/api/sites/s1", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestPreviews(t *testing.T) {
	e := newTestEnv(t)
	e.putSite(t, "s1")

	rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/sites/s1/home/preview", nil))
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected home preview %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), `href="/news/vypusknoy/"`) {
		t.Errorf("expected detail link in home preview")
	}

	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/sites/s1/sections/news/items/vypusknoy/preview", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<script") {
		t.Error("expected item body sanitized")
	}

	for _, path := range []string{
		"/api/sites/s1/sections/nope/items/vypusknoy/preview",
		"/api/sites/s1/sections/news/items/nope/preview",
	} {
		if rec := e.do(t, httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"site.docx", "site.docx"},
		{"../../etc/passwd", "passwd"},
		{`C:\docs\site.docx`, "site.docx"},
		{"", "unnamed"},
		{"..", "_"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
