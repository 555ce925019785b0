package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deployer-cli/deployer/pkg/audit"
	"github.com/deployer-cli/deployer/pkg/deployer/client"
	"github.com/deployer-cli/deployer/pkg/deployer/output"
	"github.com/deployer-cli/deployer/pkg/deployer/render"
	"github.com/deployer-cli/deployer/pkg/mail"
	"github.com/deployer-cli/deployer/pkg/metrics"
	"go.uber.org/zap"
)

type Result struct {
	Repository client.Repository `json:"repository" yaml:"repository"`
	Deployment client.Deployment `json:"deployment" yaml:"deployment"`
	URL        string            `json:"url" yaml:"url"`
}

// DeployLatest deploys the most recently created repository.
func (p *Pipeline) DeployLatest(ctx context.Context) (*Result, error) {
	if !p.AssumeYes {
		ok, err := p.Prompter.Confirm("Do you want to deploy the latest GitHub repository to Vercel?", true)
		if err != nil {
			return nil, err
		}
		if !ok {
			p.printf("Deployment cancelled.\n")
			return nil, ErrCancelled
		}
	}
	repos, err := p.GitHub.ListRepositories(ctx, client.ListOptions{Affiliation: "owner", Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	if len(repos) == 0 {
		return nil, ErrNoRepositories
	}
	p.printf("✔ Deploying the latest repository: %s\n", repos[0].Name)
	return p.DeployRepository(ctx, repos[0])
}

// DeploySelected lists the newest repositories, oldest first, and deploys
// the one the operator picks.
func (p *Pipeline) DeploySelected(ctx context.Context) (*Result, error) {
	limit := p.SelectLimit
	if limit <= 0 {
		limit = 20
	}
	repos, err := p.GitHub.ListRepositories(ctx, client.ListOptions{Affiliation: "owner", Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	if len(repos) == 0 {
		return nil, ErrNoRepositories
	}
	for i, j := 0, len(repos)-1; i < j; i, j = i+1, j-1 {
		repos[i], repos[j] = repos[j], repos[i]
	}
	output.WriteNumberedRepositories(p.Out, repos)
	choice, err := p.Prompter.Number("Enter a number", 1, len(repos))
	if err != nil {
		return nil, err
	}
	return p.DeployRepository(ctx, repos[choice-1])
}

// Deploy deploys the repository called name.
func (p *Pipeline) Deploy(ctx context.Context, name string) (*Result, error) {
	repos, err := p.GitHub.ListRepositories(ctx, client.ListOptions{Affiliation: "owner"})
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	for _, repo := range repos {
		if strings.EqualFold(repo.Name, name) {
			return p.DeployRepository(ctx, repo)
		}
	}
	return nil, fmt.Errorf("repository %q not found for %s", name, p.Owner)
}

// DeployRepository creates a Vercel deployment from repo, then counts down
// and opens the rendered site URL.
func (p *Pipeline) DeployRepository(ctx context.Context, repo client.Repository) (*Result, error) {
	project := render.ProjectName(repo.Name)
	repoURL := repo.HTMLURL
	if repoURL == "" {
		repoURL = fmt.Sprintf("https://github.com/%s/%s", p.Owner, repo.Name)
	}
	target := audit.Target{Kind: audit.KindDeployment, Name: project, Provider: "vercel"}

	deployment, err := p.Vercel.CreateDeployment(ctx, client.DeploymentRequest{
		Name: project,
		GitSource: client.GitSource{
			Type:    "github",
			RepoURL: repoURL,
			Ref:     p.branch(),
			RepoID:  repo.ID,
		},
	})
	if err != nil {
		metrics.DeploymentsCreated.WithLabelValues("failed").Inc()
		p.Recorder.WithActor(p.Owner).Record(ctx, audit.EventDeploymentFailed, target,
			map[string]string{"repository": repo.Name, "error": err.Error()})
		return nil, fmt.Errorf("deploy %s: %w", repo.Name, err)
	}
	metrics.DeploymentsCreated.WithLabelValues("created").Inc()
	p.Recorder.WithActor(p.Owner).Record(ctx, audit.EventDeploymentCreated, target,
		map[string]string{"repository": repo.Name, "url": deployment.URL, "id": deployment.ID})
	p.printf("✔ Deployment URL: %s\n", deployment.URL)
	output.Banner(p.Out, "Deployment Completed")

	siteURL, err := p.Renderer.DeploymentURL(render.DeploymentData{
		Name:          repo.Name,
		Owner:         p.Owner,
		Project:       project,
		Scope:         p.Scope,
		DeploymentURL: deployment.URL,
	})
	if err != nil {
		return nil, err
	}
	result := &Result{Repository: repo, Deployment: *deployment, URL: siteURL}

	if err := p.Notifier.DeploymentReady(mail.DeploymentReadyParams{
		Repository:    repo.Name,
		Owner:         p.Owner,
		DeploymentURL: deployment.URL,
		SiteURL:       siteURL,
	}); err != nil {
		p.logger().Warn("deployment notification not sent", zap.Error(err))
	}

	if err := p.countdown(ctx); err != nil {
		return result, err
	}
	if err := p.Opener.Open(ctx, siteURL); err != nil {
		p.logger().Warn("failed to open browser", zap.Error(err))
		p.printf("Open %s in your browser.\n", siteURL)
	}
	return result, nil
}

func (p *Pipeline) countdown(ctx context.Context) error {
	seconds := int(p.Countdown / time.Second)
	for i := seconds; i > 0; i-- {
		p.printf("\rOpening URL in %d seconds...", i)
		if err := p.sleep(ctx, time.Second); err != nil {
			p.printf("\n")
			return err
		}
	}
	if seconds > 0 {
		p.printf("\n")
	}
	return nil
}

// Ship creates and pushes a repository, then deploys it.
func (p *Pipeline) Ship(ctx context.Context) (*Result, error) {
	repo, err := p.CreateAndPush(ctx)
	if err != nil {
		return nil, err
	}
	return p.DeployRepository(ctx, *repo)
}
