package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/deployer-cli/deployer/pkg/audit"
	"github.com/deployer-cli/deployer/pkg/deployer/auth"
	"github.com/deployer-cli/deployer/pkg/deployer/browser"
	"github.com/deployer-cli/deployer/pkg/deployer/client"
	"github.com/deployer-cli/deployer/pkg/deployer/config"
	"github.com/deployer-cli/deployer/pkg/deployer/credentials"
	"github.com/deployer-cli/deployer/pkg/deployer/gitops"
	"github.com/deployer-cli/deployer/pkg/deployer/pipeline"
	"github.com/deployer-cli/deployer/pkg/deployer/prompt"
	"github.com/deployer-cli/deployer/pkg/deployer/render"
	"github.com/deployer-cli/deployer/pkg/mail"
	"github.com/deployer-cli/deployer/pkg/version"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

func (rt *runtimeState) Prompter() prompt.Prompter {
	if rt.prompter == nil {
		rt.prompter = prompt.NewTerminal(rt.input, rt.Writer())
	}
	return rt.prompter
}

func (rt *runtimeState) Browser() Browser {
	if rt.browser == nil {
		process := config.DefaultBrowserProcess
		if rt.cfg != nil {
			process = rt.cfg.Settings.BrowserProcess
		}
		rt.browser = browser.New(process)
	}
	return rt.browser
}

func (rt *runtimeState) Git() gitops.Runner {
	if rt.git == nil {
		rt.git = gitops.ExecRunner{Logger: rt.Logger()}
	}
	return rt.git
}

func (rt *runtimeState) Environ() []string {
	if rt.environ != nil {
		return rt.environ()
	}
	return os.Environ()
}

func (rt *runtimeState) Store() (credentials.Store, error) {
	return credentials.NewStore(rt.TokenStorage(), rt.EnvFile())
}

// Credentials loads the stored record with environment overrides applied.
func (rt *runtimeState) Credentials() (credentials.Record, error) {
	store, err := rt.Store()
	if err != nil {
		return credentials.Record{}, err
	}
	record, err := credentials.Resolve(store, rt.Environ())
	if err != nil {
		return credentials.Record{}, fmt.Errorf("%w; run 'deployer setup'", err)
	}
	return record, nil
}

func (rt *runtimeState) clientOptions() []client.Option {
	options := []client.Option{
		client.WithUserAgent(version.UserAgent()),
		client.WithLogger(rt.Logger()),
	}
	if rt.cfg != nil && rt.cfg.Settings.RequestTimeout > 0 {
		options = append(options, client.WithTimeout(rt.cfg.Settings.RequestTimeout))
	}
	return options
}

func (rt *runtimeState) githubOptions() []client.Option {
	return append(rt.clientOptions(), client.WithServer(rt.cfg.GitHub.APIURL))
}

func (rt *runtimeState) vercelOptions() []client.Option {
	return append(rt.clientOptions(), client.WithServer(rt.cfg.Vercel.APIURL))
}

func (rt *runtimeState) GitHub(token string) (*client.GitHub, error) {
	return client.NewGitHub(append(rt.githubOptions(), client.WithToken(token))...)
}

func (rt *runtimeState) Vercel(token string) (*client.Vercel, error) {
	return client.NewVercel(rt.cfg.Vercel.TeamID, append(rt.vercelOptions(), client.WithToken(token))...)
}

func (rt *runtimeState) GitHubVerifier() *auth.GitHubVerifier {
	return &auth.GitHubVerifier{Options: rt.githubOptions(), Logger: rt.Logger()}
}

func (rt *runtimeState) VercelVerifier() *auth.VercelVerifier {
	return &auth.VercelVerifier{TeamID: rt.cfg.Vercel.TeamID, Options: rt.vercelOptions(), Logger: rt.Logger()}
}

// Recorder builds the audit recorder from the configured sinks. Without sinks
// it returns nil, which records nothing.
func (rt *runtimeState) Recorder(actor string) (*audit.Recorder, error) {
	sink, err := audit.BuildSink(rt.cfg.Audit.Sinks, rt.Logger())
	if err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, nil
	}
	return audit.NewRecorder(sink, rt.Logger()).WithActor(actor), nil
}

// Notifier returns nil when mail is not configured.
func (rt *runtimeState) Notifier() (*mail.Notifier, error) {
	cfg := rt.cfg.Notifications.Mail
	if !cfg.Enabled() {
		return nil, nil
	}
	password := cfg.Password
	if password == "" && cfg.PasswordEnv != "" {
		password = os.Getenv(cfg.PasswordEnv)
	}
	sender, err := mail.NewSender(cfg, password, rt.Logger().Sugar())
	if err != nil {
		return nil, err
	}
	return mail.NewNotifier(sender, cfg.Recipients), nil
}

func (rt *runtimeState) Renderer() (*render.Renderer, error) {
	return render.New(rt.cfg.Settings.ReadmeTemplate, rt.cfg.Vercel.URLTemplate)
}

// SiteURL renders the public address of a project from the URL template.
func (rt *runtimeState) SiteURL(renderer *render.Renderer, owner string) func(string) string {
	return func(project string) string {
		url, err := renderer.DeploymentURL(render.DeploymentData{
			Name:          project,
			Owner:         owner,
			Project:       project,
			Scope:         rt.cfg.Vercel.Scope,
			DeploymentURL: project + ".vercel.app",
		})
		if err != nil {
			return "https://" + project + ".vercel.app"
		}
		return url
	}
}

// session bundles what the repository and deployment commands need.
type session struct {
	pipeline *pipeline.Pipeline
	github   *client.GitHub
	vercel   *client.Vercel
	record   credentials.Record
	recorder *audit.Recorder
}

func (s *session) Close() {
	_ = s.recorder.Close()
}

// newSession resolves credentials and builds the pipeline. needVercel is false
// for commands that only talk to GitHub.
func (rt *runtimeState) newSession(needVercel bool) (*session, error) {
	record, err := rt.Credentials()
	if err != nil {
		return nil, err
	}
	if err := record.RequireGitHub(); err != nil {
		return nil, fmt.Errorf("%w; run 'deployer setup'", err)
	}
	gh, err := rt.GitHub(record.GitHubToken)
	if err != nil {
		return nil, err
	}

	s := &session{github: gh, record: record}
	if needVercel {
		if err := record.RequireVercel(); err != nil {
			return nil, fmt.Errorf("%w; run 'deployer setup'", err)
		}
		if s.vercel, err = rt.Vercel(record.VercelToken); err != nil {
			return nil, err
		}
	}

	renderer, err := rt.Renderer()
	if err != nil {
		return nil, err
	}
	recorder, err := rt.Recorder(record.GitHubUsername)
	if err != nil {
		return nil, err
	}
	notifier, err := rt.Notifier()
	if err != nil {
		_ = recorder.Close()
		return nil, err
	}
	dir, err := os.Getwd()
	if err != nil {
		_ = recorder.Close()
		return nil, err
	}

	p := &pipeline.Pipeline{
		GitHub:      gh,
		Git:         rt.Git(),
		Renderer:    renderer,
		Prompter:    rt.Prompter(),
		Opener:      rt.Browser(),
		Out:         rt.Writer(),
		Recorder:    recorder,
		Notifier:    notifier,
		Logger:      rt.Logger(),
		Owner:       record.GitHubUsername,
		Dir:         dir,
		Branch:      rt.cfg.GitHub.DefaultBranch,
		Scope:       rt.cfg.Vercel.Scope,
		Countdown:   rt.cfg.Settings.Countdown,
		SelectLimit: rt.cfg.Settings.SelectLimit,
		AssumeYes:   rt.assumeYes,
	}
	if s.vercel != nil {
		p.Vercel = s.vercel
	}
	s.pipeline = p
	s.recorder = recorder
	return s, nil
}

// oauthConfig builds the GitHub OAuth app configuration. AuthURL and TokenURL
// overrides point the flow at GitHub Enterprise or a test server.
func (rt *runtimeState) oauthConfig() (oauth2.Config, error) {
	gh := rt.cfg.GitHub
	secret, err := gh.ResolveClientSecret()
	if err != nil {
		return oauth2.Config{}, err
	}
	endpoint := github.Endpoint
	if gh.AuthURL != "" {
		endpoint.AuthURL = gh.AuthURL
	}
	if gh.TokenURL != "" {
		endpoint.TokenURL = gh.TokenURL
	}
	return oauth2.Config{
		ClientID:     gh.ClientID,
		ClientSecret: secret,
		Endpoint:     endpoint,
		Scopes:       gh.Scopes,
	}, nil
}

func (rt *runtimeState) newPrimary() (auth.PrimaryFlow, error) {
	oauthCfg, err := rt.oauthConfig()
	if err != nil {
		return nil, err
	}
	return auth.NewCallbackServer(auth.CallbackConfig{
		Address: rt.cfg.GitHub.CallbackAddress,
		Path:    rt.cfg.GitHub.CallbackPath,
		OAuth:   oauthCfg,
	}, rt.GitHubVerifier(), rt.Logger())
}

// secondaryStrategy picks how the Vercel token is collected.
func (rt *runtimeState) secondaryStrategy(name string) (auth.SecondaryTokenStrategy, error) {
	if name == "" {
		name = rt.cfg.Settings.SecondaryStrategy
	}
	promptStrategy := &auth.PromptStrategy{
		Prompter:     rt.Prompter(),
		Verifier:     rt.VercelVerifier(),
		Out:          rt.Writer(),
		Label:        "Enter your Vercel token",
		TokenPageURL: rt.cfg.Vercel.TokenPageURL,
	}
	switch strings.ToLower(name) {
	case "", config.StrategyPrompt:
		return promptStrategy, nil
	case config.StrategyClipboard:
		clip := rt.clipboard
		if clip == nil {
			clip = auth.SystemClipboard{}
		}
		return &auth.ClipboardWatchStrategy{
			Clipboard: clip,
			Interval:  rt.cfg.Settings.ClipboardInterval,
			Killer:    rt.Browser(),
			Prompt:    promptStrategy,
			Logger:    rt.Logger(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown secondary strategy %q (use %s or %s)", name, config.StrategyPrompt, config.StrategyClipboard)
	}
}

func (rt *runtimeState) bootstrap(strategy string) (*auth.Bootstrap, error) {
	store, err := rt.Store()
	if err != nil {
		return nil, err
	}
	secondary, err := rt.secondaryStrategy(strategy)
	if err != nil {
		return nil, err
	}
	recorder, err := rt.Recorder("")
	if err != nil {
		return nil, err
	}
	return &auth.Bootstrap{
		Prompter:     rt.Prompter(),
		Out:          rt.Writer(),
		Opener:       rt.Browser(),
		NewPrimary:   rt.newPrimary,
		Secondary:    secondary,
		TokenPageURL: rt.cfg.Vercel.TokenPageURL,
		Store:        store,
		Recorder:     recorder,
		Logger:       rt.Logger(),
	}, nil
}

func (rt *runtimeState) manual(githubToken, vercelToken string) (*auth.Manual, error) {
	store, err := rt.Store()
	if err != nil {
		return nil, err
	}
	recorder, err := rt.Recorder("")
	if err != nil {
		return nil, err
	}
	return &auth.Manual{
		Prompter:       rt.Prompter(),
		Out:            rt.Writer(),
		GitHub:         rt.GitHubVerifier(),
		Vercel:         rt.VercelVerifier(),
		GitHubToken:    githubToken,
		VercelToken:    vercelToken,
		GitHubTokenURL: githubTokenPage,
		VercelTokenURL: rt.cfg.Vercel.TokenPageURL,
		Store:          store,
		Recorder:       recorder,
	}, nil
}

const githubTokenPage = "https://github.com/settings/tokens"

func closeRecorder(log *zap.Logger, r *audit.Recorder) {
	if err := r.Close(); err != nil {
		log.Debug("audit sink close failed", zap.Error(err))
	}
}
