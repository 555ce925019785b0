package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deployer-cli/deployer/pkg/deployer/config"
	"github.com/deployer-cli/deployer/pkg/deployer/prompt"
	"github.com/stretchr/testify/require"
)

const (
	testGitHubToken = "ghp_xyz"
	testVercelToken = "vc_111"
	testOAuthCode   = "abc123"
)

func configPathForTest(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.yaml")
}

// providers fakes the GitHub API, the GitHub OAuth token endpoint and the
// Vercel API on one server.
type providers struct {
	*httptest.Server

	mu          sync.Mutex
	repos       []map[string]any
	created     []string
	deleted     []string
	deployments []map[string]any
	files       []string
}

func newProviders(t *testing.T) *providers {
	t.Helper()
	p := &providers{
		repos: []map[string]any{
			{"id": 2, "name": "newest", "full_name": "alice/newest", "html_url": "https://github.com/alice/newest", "created_at": "2024-05-01T00:00:00Z"},
			{"id": 1, "name": "older", "full_name": "alice/older", "html_url": "https://github.com/alice/older", "created_at": "2023-05-01T00:00:00Z"},
		},
	}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Close)
	return p
}

func (p *providers) serve(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	switch {
	case r.URL.Path == "/login/oauth/access_token":
		_ = r.ParseForm()
		if r.PostForm.Get("code") != testOAuthCode {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"access_token":%q,"token_type":"bearer"}`, testGitHubToken)

	case r.URL.Path == "/user" && token == testGitHubToken:
		_, _ = w.Write([]byte(`{"login":"alice","id":7}`))
	case r.URL.Path == "/v2/user" && token == testVercelToken:
		_, _ = w.Write([]byte(`{"user":{"id":"u1","username":"alice-v"}}`))
	case r.URL.Path == "/user" || r.URL.Path == "/v2/user":
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))

	case r.URL.Path == "/user/repos" && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(p.repos)
	case r.URL.Path == "/user/repos" && r.Method == http.MethodPost:
		var body struct {
			Name    string `json:"name"`
			Private bool   `json:"private"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.created = append(p.created, body.Name)
		repo := map[string]any{
			"id": 3, "name": body.Name, "full_name": "alice/" + body.Name, "private": body.Private,
			"html_url":   "https://github.com/alice/" + body.Name,
			"clone_url":  "https://github.com/alice/" + body.Name + ".git",
			"created_at": time.Now().UTC().Format(time.RFC3339),
		}
		p.repos = append([]map[string]any{repo}, p.repos...)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(repo)
	case strings.HasPrefix(r.URL.Path, "/repos/") && strings.Contains(r.URL.Path, "/contents/"):
		p.files = append(p.files, r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	case strings.HasPrefix(r.URL.Path, "/repos/") && r.Method == http.MethodDelete:
		p.deleted = append(p.deleted, strings.TrimPrefix(r.URL.Path, "/repos/"))
		w.WriteHeader(http.StatusNoContent)

	case r.URL.Path == "/v13/deployments":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.deployments = append(p.deployments, body)
		_, _ = fmt.Fprintf(w, `{"id":"dpl_1","name":%q,"url":"%s-abc.vercel.app","readyState":"QUEUED"}`, body["name"], body["name"])
	case r.URL.Path == "/v9/projects":
		_, _ = w.Write([]byte(`{"projects":[{"id":"prj_1","name":"newest","createdAt":1700000000000}]}`))

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}
}

func (p *providers) snapshot() (created, deleted, files []string, deployments []map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.created...), append([]string(nil), p.deleted...),
		append([]string(nil), p.files...), append([]map[string]any(nil), p.deployments...)
}

// fakeBrowser records opened URLs. Opening the GitHub authorize page follows
// redirect_uri back to the callback server, like a user clicking Authorize.
type fakeBrowser struct {
	mu     sync.Mutex
	opened []string
	kills  int
}

func (b *fakeBrowser) Open(_ context.Context, rawURL string) error {
	b.mu.Lock()
	b.opened = append(b.opened, rawURL)
	b.mu.Unlock()

	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	redirect := u.Query().Get("redirect_uri")
	if redirect == "" {
		return nil
	}
	target := redirect + "?code=" + testOAuthCode + "&state=" + url.QueryEscape(u.Query().Get("state"))
	go func() {
		resp, err := http.Get(target)
		if err == nil {
			_ = resp.Body.Close()
		}
	}()
	return nil
}

func (b *fakeBrowser) Kill(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kills++
	return nil
}

func (b *fakeBrowser) Opened() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.opened...)
}

type recordingGit struct {
	mu    sync.Mutex
	calls []string
}

func (g *recordingGit) Run(_ context.Context, _ string, args ...string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, strings.Join(args, " "))
	return "", nil
}

type harness struct {
	t         *testing.T
	path      string
	envFile   string
	providers *providers
	browser   *fakeBrowser
	git       *recordingGit
	out       *bytes.Buffer
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		path:      configPathForTest(t),
		envFile:   filepath.Join(t.TempDir(), ".env"),
		providers: newProviders(t),
		browser:   &fakeBrowser{},
		git:       &recordingGit{},
		out:       &bytes.Buffer{},
	}
	cfg := config.DefaultConfig()
	cfg.GitHub.APIURL = h.providers.URL
	cfg.GitHub.AuthURL = h.providers.URL + "/login/oauth/authorize"
	cfg.GitHub.TokenURL = h.providers.URL + "/login/oauth/access_token"
	cfg.GitHub.ClientSecret = "client-secret"
	cfg.GitHub.ClientSecretEnv = ""
	cfg.GitHub.CallbackAddress = "127.0.0.1:0"
	cfg.Vercel.APIURL = h.providers.URL
	cfg.Settings.EnvFile = h.envFile
	cfg.Settings.Countdown = -time.Second
	for _, m := range mutate {
		m(&cfg)
	}
	require.NoError(t, config.Save(h.path, &cfg))
	return h
}

// run executes one command line with scripted answers.
func (h *harness) run(answers []string, args ...string) (*prompt.Scripted, error) {
	h.t.Helper()
	prompter := prompt.NewScripted(answers...)
	root := NewRootCommand(Config{
		ConfigPath:   h.path,
		OutputWriter: h.out,
		Prompter:     prompter,
		Browser:      h.browser,
		Git:          h.git,
		Environ:      func() []string { return nil },
	})
	root.SetArgs(args)
	root.SetOut(h.out)
	root.SetErr(h.out)
	return prompter, root.Execute()
}

func (h *harness) writeCredentials() {
	h.t.Helper()
	content := "GITHUB_TOKEN=" + testGitHubToken + "\nGITHUB_USERNAME=alice\nVERCEL_TOKEN=" + testVercelToken + "\n"
	require.NoError(h.t, writeFile(h.envFile, content))
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
