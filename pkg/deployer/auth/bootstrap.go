package auth

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/deployer-cli/deployer/pkg/audit"
	"github.com/deployer-cli/deployer/pkg/deployer/browser"
	"github.com/deployer-cli/deployer/pkg/deployer/credentials"
	"github.com/deployer-cli/deployer/pkg/deployer/output"
	"github.com/deployer-cli/deployer/pkg/deployer/prompt"
	"github.com/deployer-cli/deployer/pkg/metrics"
	"go.uber.org/zap"
)

type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeDeclined
)

const vercelNotice = "In a few seconds, Vercel will open. Please create a Vercel token and come back. Do not press anything."

// PrimaryFlow is the GitHub half of the bootstrap. CallbackServer implements it.
type PrimaryFlow interface {
	Start() error
	AuthCodeURL() string
	Wait(ctx context.Context) (*CallbackResult, error)
	Close() error
}

// Bootstrap runs the automatic setup: GitHub OAuth, then the Vercel token,
// then a single write to Store.
type Bootstrap struct {
	Prompter     prompt.Prompter
	Out          io.Writer
	Opener       browser.Opener
	NewPrimary   func() (PrimaryFlow, error)
	Secondary    SecondaryTokenStrategy
	TokenPageURL string
	Store        credentials.Store
	Recorder     *audit.Recorder
	Logger       *zap.Logger
}

func (b *Bootstrap) Run(ctx context.Context) (Outcome, error) {
	logger := logOrNop(b.Logger)
	ready, err := b.Prompter.Confirm("Are you ready to proceed?", true)
	if err != nil {
		return OutcomeDeclined, err
	}
	if !ready {
		_, _ = fmt.Fprintln(b.Out, "Setup cancelled, please run this app again when you are ready.")
		return OutcomeDeclined, nil
	}

	session := NewSession()
	if err := b.primary(ctx, session); err != nil {
		return OutcomeCompleted, err
	}

	output.Box(b.Out, vercelNotice)
	if err := b.Opener.Open(ctx, b.TokenPageURL); err != nil {
		logger.Warn("failed to open browser", zap.Error(err))
		_, _ = fmt.Fprintf(b.Out, "Open %s to create a token.\n", b.TokenPageURL)
	}
	if err := session.BeginSecondary(); err != nil {
		return OutcomeCompleted, err
	}
	token, err := b.Secondary.Acquire(ctx)
	if err != nil {
		return OutcomeCompleted, fmt.Errorf("vercel token: %w", err)
	}
	if err := session.AcceptSecondary(token); err != nil {
		return OutcomeCompleted, err
	}

	if err := persist(ctx, session, b.Store, b.Recorder, "automatic"); err != nil {
		return OutcomeCompleted, err
	}
	output.Banner(b.Out, "Setup Completed")
	return OutcomeCompleted, nil
}

func (b *Bootstrap) primary(ctx context.Context, session *Session) error {
	logger := logOrNop(b.Logger)
	flow, err := b.NewPrimary()
	if err != nil {
		return err
	}
	if err := flow.Start(); err != nil {
		return err
	}
	defer func() {
		if err := flow.Close(); err != nil {
			logger.Debug("callback server shutdown", zap.Error(err))
		}
	}()

	if err := session.BeginPrimary(); err != nil {
		return err
	}
	authURL := flow.AuthCodeURL()
	_, _ = fmt.Fprintf(b.Out, "Opening GitHub to authorize deployer. If nothing opens, visit:\n%s\n", authURL)
	if err := b.Opener.Open(ctx, authURL); err != nil {
		logger.Warn("failed to open browser", zap.Error(err))
	}

	result, err := flow.Wait(ctx)
	if err != nil {
		session.ResetPrimary()
		return fmt.Errorf("github authorization failed: %w", err)
	}
	if err := session.AcceptPrimary(result.Token); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(b.Out, "Authenticated with GitHub as %s.\n", result.Token.Identity().Username)
	return nil
}

// Manual collects both tokens by prompting, verifying each before it is
// accepted. Preset tokens are verified once instead of prompting.
type Manual struct {
	Prompter       prompt.Prompter
	Out            io.Writer
	GitHub         Verifier
	Vercel         Verifier
	GitHubToken    string
	VercelToken    string
	GitHubTokenURL string
	VercelTokenURL string
	Store          credentials.Store
	Recorder       *audit.Recorder
}

var errRejected = errors.New("token was rejected by the provider")

func (m *Manual) Run(ctx context.Context) (credentials.Record, error) {
	session := NewSession()
	if err := session.BeginPrimary(); err != nil {
		return credentials.Record{}, err
	}
	gh, err := m.acquire(ctx, m.GitHubToken, m.GitHub, "GitHub token", m.GitHubTokenURL)
	if err != nil {
		return credentials.Record{}, fmt.Errorf("github token: %w", err)
	}
	if err := session.AcceptPrimary(gh); err != nil {
		return credentials.Record{}, err
	}
	_, _ = fmt.Fprintf(m.Out, "GitHub token belongs to %s.\n", gh.Identity().Username)

	if err := session.BeginSecondary(); err != nil {
		return credentials.Record{}, err
	}
	vc, err := m.acquire(ctx, m.VercelToken, m.Vercel, "Vercel token", m.VercelTokenURL)
	if err != nil {
		return credentials.Record{}, fmt.Errorf("vercel token: %w", err)
	}
	if err := session.AcceptSecondary(vc); err != nil {
		return credentials.Record{}, err
	}

	if err := persist(ctx, session, m.Store, m.Recorder, "manual"); err != nil {
		return credentials.Record{}, err
	}
	record, _ := session.Record()
	output.Banner(m.Out, "Setup Completed")
	return record, nil
}

func (m *Manual) acquire(ctx context.Context, preset string, v Verifier, label, pageURL string) (VerifiedToken, error) {
	if preset != "" {
		token, ok := Check(ctx, v, preset)
		if !ok {
			return VerifiedToken{}, errRejected
		}
		return token, nil
	}
	strategy := &PromptStrategy{Prompter: m.Prompter, Verifier: v, Out: m.Out, Label: label, TokenPageURL: pageURL}
	return strategy.Acquire(ctx)
}

func persist(ctx context.Context, session *Session, store credentials.Store, recorder *audit.Recorder, mode string) error {
	record, err := session.Persist(store)
	if err != nil {
		return err
	}
	metrics.CredentialsPersisted.WithLabelValues(store.Kind()).Inc()
	recorder.WithActor(record.GitHubUsername).Record(ctx, audit.EventCredentialsSaved,
		audit.Target{Kind: audit.KindCredentials, Name: store.Location(), Provider: store.Kind()},
		map[string]string{"mode": mode})
	return nil
}
