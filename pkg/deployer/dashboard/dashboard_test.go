package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/deployer-cli/deployer/pkg/apiresponses"
	"github.com/deployer-cli/deployer/pkg/audit"
	"github.com/deployer-cli/deployer/pkg/deployer/client"
	"github.com/deployer-cli/deployer/pkg/system"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeGitHub struct {
	repos   []client.Repository
	listErr error
	delErr  error
	opts    client.ListOptions
	deleted []string
}

func (f *fakeGitHub) ListRepositories(_ context.Context, opts client.ListOptions) ([]client.Repository, error) {
	f.opts = opts
	return f.repos, f.listErr
}

func (f *fakeGitHub) DeleteRepository(_ context.Context, owner, repo string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, owner+"/"+repo)
	return nil
}

type fakeVercel struct {
	projects []client.Project
	listErr  error
	limit    int
	deleted  []string
}

func (f *fakeVercel) ListProjects(_ context.Context, limit int) ([]client.Project, error) {
	f.limit = limit
	return f.projects, f.listErr
}

func (f *fakeVercel) DeleteProject(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type memorySink struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (m *memorySink) Write(_ context.Context, e *audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}
func (m *memorySink) Close() error { return nil }
func (m *memorySink) Name() string { return "memory" }

type fakeOpener struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeOpener) Open(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return nil
}

func (f *fakeOpener) opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

func newDashboard(t *testing.T) (*Dashboard, *fakeGitHub, *fakeVercel, *memorySink) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gh := &fakeGitHub{repos: []client.Repository{
		{Name: "newer", HTMLURL: "https://github.com/octocat/newer", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "older", HTMLURL: "https://github.com/octocat/older", CreatedAt: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)},
	}}
	vc := &fakeVercel{projects: []client.Project{{ID: "prj_1", Name: "newer", CreatedAt: 1700000000000}}}
	sink := &memorySink{}
	d := &Dashboard{
		GitHub:   gh,
		Vercel:   vc,
		Owner:    "octocat",
		Recorder: audit.NewRecorder(sink, zaptest.NewLogger(t)),
		Logger:   zaptest.NewLogger(t),
		Debug:    true,
	}
	return d, gh, vc, sink
}

func do(t *testing.T, d *Dashboard, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	srv, err := d.Server()
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestListRepositories(t *testing.T) {
	d, gh, _, _ := newDashboard(t)
	w := do(t, d, http.MethodGet, "/api/github-repos")
	require.Equal(t, http.StatusOK, w.Code)

	var repos []client.Repository
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &repos))
	require.Len(t, repos, 2)
	assert.Equal(t, "newer", repos[0].Name)
	assert.Equal(t, "all", gh.opts.Visibility)
}

func TestListRepositoriesEmptyIsArray(t *testing.T) {
	d, gh, _, _ := newDashboard(t)
	gh.repos = nil
	w := do(t, d, http.MethodGet, "/api/github-repos")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestListRepositoriesUpstreamError(t *testing.T) {
	d, gh, _, _ := newDashboard(t)
	gh.listErr = &client.HTTPError{StatusCode: http.StatusUnauthorized, Message: "Bad credentials"}
	w := do(t, d, http.MethodGet, "/api/github-repos")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body apiresponses.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Error fetching GitHub repositories", body.Error)
	assert.Contains(t, body.Details, "Bad credentials")
}

func TestDeleteRepository(t *testing.T) {
	d, gh, _, sink := newDashboard(t)
	w := do(t, d, http.MethodDelete, "/api/github-repos/older")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"GitHub repo deleted"}`, w.Body.String())
	assert.Equal(t, []string{"octocat/older"}, gh.deleted)
	require.Len(t, sink.events, 1)
	assert.Equal(t, audit.EventRepositoryDeleted, sink.events[0].Type)
	assert.Equal(t, "older", sink.events[0].Target.Name)
}

func TestDeleteRepositoryFailure(t *testing.T) {
	d, gh, _, sink := newDashboard(t)
	gh.delErr = errors.New("boom")
	w := do(t, d, http.MethodDelete, "/api/github-repos/older")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Error deleting GitHub repository")
	assert.Empty(t, sink.events)
}

func TestListProjects(t *testing.T) {
	d, _, vc, _ := newDashboard(t)
	d.SiteURL = func(name string) string { return "https://" + name + "-octo.vercel.app" }
	w := do(t, d, http.MethodGet, "/api/vercel-projects")
	require.Equal(t, http.StatusOK, w.Code)

	var projects []ProjectView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projects))
	require.Len(t, projects, 1)
	assert.Equal(t, "prj_1", projects[0].ID)
	assert.Equal(t, "https://newer-octo.vercel.app", projects[0].URL)
	assert.Equal(t, DefaultProjectLimit, vc.limit)
}

func TestListProjectsTruncates(t *testing.T) {
	d, _, vc, _ := newDashboard(t)
	vc.projects = make([]client.Project, DefaultProjectLimit+5)
	w := do(t, d, http.MethodGet, "/api/vercel-projects")
	require.Equal(t, http.StatusOK, w.Code)

	var projects []ProjectView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projects))
	assert.Len(t, projects, DefaultProjectLimit)
}

func TestDeleteProject(t *testing.T) {
	d, _, vc, sink := newDashboard(t)
	w := do(t, d, http.MethodDelete, "/api/vercel-projects/prj_1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Vercel project deleted"}`, w.Body.String())
	assert.Equal(t, []string{"prj_1"}, vc.deleted)
	require.Len(t, sink.events, 1)
	assert.Equal(t, audit.EventProjectDeleted, sink.events[0].Type)
}

func TestMissingProvider(t *testing.T) {
	d, _, _, _ := newDashboard(t)
	d.Vercel = nil
	w := do(t, d, http.MethodGet, "/api/vercel-projects")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRepositoryControllerWithoutRecorder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gh := &fakeGitHub{}
	rc := &RepositoryController{GitHub: gh, Owner: "octocat", Logger: system.NewTestLogger()}
	engine := gin.New()
	require.NoError(t, rc.Register(engine.Group(rc.BasePath())))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/github-repos/old", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"octocat/old"}, gh.deleted)
}

func TestServesEmbeddedPage(t *testing.T) {
	d, _, _, _ := newDashboard(t)
	w := do(t, d, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "github-table")

	w = do(t, d, http.MethodGet, "/script.js")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/vercel-projects")
}

func TestAssets(t *testing.T) {
	for _, name := range []string{"index.html", "script.js", "style.css"} {
		_, err := fs.Stat(Assets(), name)
		assert.NoError(t, err, name)
	}
}

func TestRunOpensBrowser(t *testing.T) {
	d, _, _, _ := newDashboard(t)
	opener := &fakeOpener{}
	out := &bytes.Buffer{}
	d.Opener = opener
	d.Out = out

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, "127.0.0.1:0") }()

	require.Eventually(t, func() bool { return len(opener.opened()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, opener.opened()[0], "http://localhost:")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("dashboard did not stop")
	}
	assert.Contains(t, out.String(), "Server is running on http://localhost:")
	assert.Contains(t, out.String(), "Server is up and running!")
}
