package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/texpad/internal/config"
	"github.com/dgallion1/texpad/internal/doctree"
	"github.com/dgallion1/texpad/internal/layout"
	"github.com/dgallion1/texpad/internal/pipeline"
	"github.com/dgallion1/texpad/internal/project"
	"github.com/dgallion1/texpad/internal/render"
	"github.com/dgallion1/texpad/internal/render/pdf"
)

func TestMain(m *testing.M) {
	pdf.DisableConfigDir()
	os.Exit(m.Run())
}

type testEnv struct {
	srv      *httptest.Server
	projects *project.Store
	project  project.Project
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	return newTestEnvWith(t, apiKey, render.Default(pdf.Config{}, "pdf"))
}

func newTestEnvWith(t *testing.T, apiKey string, renderers *render.Registry) *testEnv {
	t.Helper()
	cfg := config.Config{
		Port:           "0",
		APIKey:         apiKey,
		WorkerCount:    2,
		MaxQueueSize:   16,
		MaxSourceBytes: 1 << 16,
		JobTTL:         time.Hour,
		RenderTimeout:  10 * time.Second,
		SectionMode:    "bodies",
		DefaultFormat:  "pdf",
	}
	log := slog.New(slog.DiscardHandler)
	orch, err := pipeline.NewOrchestrator(cfg, renderers, log)
	require.NoError(t, err)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	store := project.NewStore()
	p := store.Create("")
	srv := httptest.NewServer(NewServer(orch, store, log, cfg))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, projects: store, project: p}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func jsonBody(v any) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func (e *testEnv) mainFile() project.File {
	f, _ := e.project.ActiveFile()
	return f
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "secret")
	resp := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, "secret")

	resp := env.do(t, http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	env := newTestEnv(t, "")
	resp := env.do(t, http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodPost, "/api/projects", jsonBody(map[string]string{"name": "Thesis"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	p := decode[project.Project](t, resp)
	assert.Equal(t, "Thesis", p.Name)
	require.Len(t, p.Files, 2)

	resp = env.do(t, http.MethodGet, "/api/projects", nil)
	list := decode[struct {
		Projects []project.Project `json:"projects"`
	}](t, resp)
	assert.Len(t, list.Projects, 2)

	resp = env.do(t, http.MethodPost, "/api/projects/"+p.ID+"/files", jsonBody(map[string]string{"name": "ch1.tex"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	f := decode[project.File](t, resp)
	assert.Equal(t, project.NewTexSkeleton, f.Content)

	resp = env.do(t, http.MethodPut, "/api/projects/"+p.ID+"/active", jsonBody(map[string]string{"file_id": f.ID}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, f.ID, decode[project.Project](t, resp).ActiveFileID)

	resp = env.do(t, http.MethodPut, "/api/projects/"+p.ID+"/files/"+f.ID, jsonBody(map[string]string{"content": `\title{Ch1}`}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/projects/"+p.ID+"/files/"+f.ID, nil)
	assert.Equal(t, `\title{Ch1}`, decode[project.File](t, resp).Content)

	resp = env.do(t, http.MethodDelete, "/api/projects/"+p.ID+"/files/"+f.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/projects/"+p.ID, nil)
	got := decode[project.Project](t, resp)
	assert.Equal(t, got.Files[0].ID, got.ActiveFileID)

	resp = env.do(t, http.MethodDelete, "/api/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddFile_InvalidName(t *testing.T) {
	env := newTestEnv(t, "")
	resp := env.do(t, http.MethodPost, "/api/projects/"+env.project.ID+"/files", jsonBody(map[string]string{"name": ""}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateFile_TooLarge(t *testing.T) {
	env := newTestEnv(t, "")
	big := strings.Repeat("x", 1<<17)
	resp := env.do(t, http.MethodPut, "/api/projects/"+env.project.ID+"/files/"+env.mainFile().ID, jsonBody(map[string]string{"content": big}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t, "")
	resp := env.do(t, http.MethodGet, "/api/projects/"+env.project.ID+"/files/"+env.mainFile().ID+"/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	s := decode[doctree.Summary](t, resp)
	require.NotNil(t, s.Title)
	assert.Equal(t, "Sample LaTeX Document", *s.Title)
	require.Len(t, s.Sections, 3)
	assert.Equal(t, "Lists", s.Sections[2].Title)
	assert.Equal(t, 2, s.Sections[2].Level)
	require.Len(t, s.Lists, 1)
	assert.Equal(t, []string{"First item", "Second item", "Third item"}, s.Lists[0].Items)
}

func TestOutputBeforeCompile(t *testing.T) {
	env := newTestEnv(t, "")
	resp := env.do(t, http.MethodGet, "/api/projects/"+env.project.ID+"/files/"+env.mainFile().ID+"/output", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCompileAndDownload(t *testing.T) {
	env := newTestEnv(t, "")
	base := "/api/projects/" + env.project.ID + "/files/" + env.mainFile().ID

	resp := env.do(t, http.MethodPost, base+"/compile?wait=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[pipeline.JobSnapshot](t, resp)
	assert.Equal(t, pipeline.StatusCompleted, snap.Status)
	assert.Equal(t, "pdf", snap.Format)

	resp = env.do(t, http.MethodGet, base+"/output", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, `inline; filename=main.pdf`, resp.Header.Get("Content-Disposition"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp = env.do(t, http.MethodGet, base+"/output?download=true", nil)
	assert.Equal(t, `attachment; filename=main.pdf`, resp.Header.Get("Content-Disposition"))

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+base+"/output", nil)
	req.Header.Set("If-None-Match", resp.Header.Get("ETag"))
	cached, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	cached.Body.Close()
	assert.Equal(t, http.StatusNotModified, cached.StatusCode)
}

func TestCompileAsyncAndPoll(t *testing.T) {
	env := newTestEnv(t, "")
	base := "/api/projects/" + env.project.ID + "/files/" + env.mainFile().ID

	resp := env.do(t, http.MethodPost, base+"/compile?format=html", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	accepted := decode[struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}](t, resp)
	require.NotEmpty(t, accepted.JobID)

	require.Eventually(t, func() bool {
		r := env.do(t, http.MethodGet, accepted.PollURL, nil)
		return decode[pipeline.JobSnapshot](t, r).Status == pipeline.StatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	resp = env.do(t, http.MethodGet, base+"/output?format=html", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

	resp = env.do(t, http.MethodGet, base+"/output?format=docx", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCompile_Errors(t *testing.T) {
	env := newTestEnv(t, "")
	bib := env.project.Files[1]
	base := "/api/projects/" + env.project.ID + "/files/"

	resp := env.do(t, http.MethodPost, base+bib.ID+"/compile", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = env.do(t, http.MethodPost, base+env.mainFile().ID+"/compile?format=ps", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, base+"missing/compile", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/compile/missing/status", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCompile_FileWithoutExtension(t *testing.T) {
	env := newTestEnv(t, "")
	base := "/api/projects/" + env.project.ID + "/files"

	resp := env.do(t, http.MethodPost, base, jsonBody(map[string]string{"name": "chapter1"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	f := decode[project.File](t, resp)
	assert.Equal(t, project.TypeTex, f.Type)

	resp = env.do(t, http.MethodPost, base+"/"+f.ID+"/compile?wait=true&format=html", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, pipeline.StatusCompleted, decode[pipeline.JobSnapshot](t, resp).Status)

	resp = env.do(t, http.MethodGet, base+"/"+f.ID+"/output?format=html&download=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename=chapter1.html`, resp.Header.Get("Content-Disposition"))
}

// brokenRenderer always fails, standing in for a backend that cannot
// produce output.
type brokenRenderer struct{}

func (brokenRenderer) Render(context.Context, layout.Document) ([]byte, error) {
	return nil, errors.New("font subsystem unavailable")
}
func (brokenRenderer) Format() string      { return "pdf" }
func (brokenRenderer) ContentType() string { return "application/pdf" }
func (brokenRenderer) Ext() string         { return ".pdf" }

func TestGenerationFailedIsBadGateway(t *testing.T) {
	env := newTestEnvWith(t, "", render.NewRegistry(brokenRenderer{}))

	resp := env.do(t, http.MethodPost, "/api/render", strings.NewReader(`\title{Doomed}`))
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["error"], "document generation failed")
	assert.Contains(t, body["error"], "font subsystem unavailable")

	base := "/api/projects/" + env.project.ID + "/files/" + env.mainFile().ID
	resp = env.do(t, http.MethodPost, base+"/compile?wait=true", nil)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	snap := decode[pipeline.JobSnapshot](t, resp)
	assert.Equal(t, pipeline.StatusFailed, snap.Status)
	assert.Equal(t, "assembling", snap.Phase)

	resp = env.do(t, http.MethodGet, base+"/output", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestParseEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodPost, "/api/parse", strings.NewReader(`\section{A} text $x$`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s := decode[doctree.Summary](t, resp)
	require.Len(t, s.Sections, 1)
	assert.Equal(t, "text $x$", s.Sections[0].Content)
	assert.Equal(t, []string{"x"}, s.Sections[0].MathRefs)

	resp = env.do(t, http.MethodPost, "/api/parse?mode=titles", strings.NewReader(`\section{A} text`))
	s = decode[doctree.Summary](t, resp)
	assert.Empty(t, s.Sections[0].Content)

	resp = env.do(t, http.MethodPost, "/api/parse?mode=chapters", strings.NewReader(""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/parse", strings.NewReader(strings.Repeat("x", 1<<16+1)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRenderEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodPost, "/api/render?format=html&name=notes.tex", strings.NewReader(`\title{Quick}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `inline; filename=notes.html`, resp.Header.Get("Content-Disposition"))
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Quick")

	resp = env.do(t, http.MethodPost, "/api/render?format=docx", strings.NewReader(`\title{Quick}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `inline; filename=document.docx`, resp.Header.Get("Content-Disposition"))
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, "")
	resp := env.do(t, http.MethodGet, "/api/stats", nil)
	stats := decode[map[string]any](t, resp)
	assert.Equal(t, float64(1), stats["projects"])
	assert.Equal(t, []any{"docx", "html", "pdf"}, stats["formats"])
}
