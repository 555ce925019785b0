// Package pipeline chains the GitHub, git and Vercel steps behind the
// push, deploy and ship commands.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/deployer-cli/deployer/pkg/audit"
	"github.com/deployer-cli/deployer/pkg/deployer/browser"
	"github.com/deployer-cli/deployer/pkg/deployer/client"
	"github.com/deployer-cli/deployer/pkg/deployer/gitops"
	"github.com/deployer-cli/deployer/pkg/deployer/prompt"
	"github.com/deployer-cli/deployer/pkg/deployer/render"
	"github.com/deployer-cli/deployer/pkg/mail"
	"go.uber.org/zap"
)

// ErrNoRepositories is returned when the account has nothing to deploy.
var ErrNoRepositories = errors.New("no repositories found")

// ErrCancelled is returned when the operator answers no to a confirmation.
var ErrCancelled = errors.New("cancelled")

type GitHubAPI interface {
	CreateRepository(ctx context.Context, req client.RepositoryRequest) (*client.Repository, error)
	PutFile(ctx context.Context, owner, repo string, file client.FileRequest) error
	ListRepositories(ctx context.Context, opts client.ListOptions) ([]client.Repository, error)
}

type VercelAPI interface {
	CreateDeployment(ctx context.Context, req client.DeploymentRequest) (*client.Deployment, error)
}

type Pipeline struct {
	GitHub   GitHubAPI
	Vercel   VercelAPI
	Git      gitops.Runner
	Renderer *render.Renderer
	Prompter prompt.Prompter
	Opener   browser.Opener
	Out      io.Writer
	Recorder *audit.Recorder
	Notifier *mail.Notifier
	Logger   *zap.Logger

	// Owner is the GitHub login the repositories belong to.
	Owner       string
	Dir         string
	Branch      string
	Scope       string
	Countdown   time.Duration
	SelectLimit int
	AssumeYes   bool

	// Sleep waits between countdown ticks. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Pipeline) branch() string {
	if p.Branch == "" {
		return "main"
	}
	return p.Branch
}

func (p *Pipeline) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.Out, format, args...)
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
