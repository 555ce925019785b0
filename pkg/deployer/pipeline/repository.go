package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deployer-cli/deployer/pkg/audit"
	"github.com/deployer-cli/deployer/pkg/deployer/client"
	"github.com/deployer-cli/deployer/pkg/deployer/gitops"
	"github.com/deployer-cli/deployer/pkg/deployer/output"
	"github.com/deployer-cli/deployer/pkg/deployer/render"
	"github.com/deployer-cli/deployer/pkg/metrics"
)

// CreateRepository asks for a name and visibility until GitHub accepts them.
func (p *Pipeline) CreateRepository(ctx context.Context) (*client.Repository, error) {
	for {
		name, err := p.Prompter.Input("Enter the repository name")
		if err != nil {
			return nil, err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			p.printf("The repository name cannot be empty.\n")
			continue
		}
		private, err := p.Prompter.Confirm("Make the repository private?", false)
		if err != nil {
			return nil, err
		}
		repo, err := p.CreateNamed(ctx, name, private)
		if errors.Is(err, client.ErrRepositoryExists) {
			p.printf("%s already exists. Please enter a different repository name.\n", name)
			continue
		}
		return repo, err
	}
}

// CreateNamed creates one repository without prompting.
func (p *Pipeline) CreateNamed(ctx context.Context, name string, private bool) (*client.Repository, error) {
	repo, err := p.GitHub.CreateRepository(ctx, client.RepositoryRequest{Name: name, Private: private})
	if err != nil {
		return nil, err
	}
	metrics.RepositoriesCreated.Inc()
	p.Recorder.WithActor(p.Owner).Record(ctx, audit.EventRepositoryCreated,
		audit.Target{Kind: audit.KindRepository, Name: repo.FullName, Provider: "github"},
		map[string]string{"private": fmt.Sprint(repo.Private)})
	p.printf("✔ Repository %s created at: %s\n", repo.Name, repo.CloneURL)
	return repo, nil
}

// Push seeds the remote README and pushes the working directory to repo.
func (p *Pipeline) Push(ctx context.Context, repo *client.Repository) error {
	readme, err := p.Renderer.Readme(render.ReadmeData{
		Name:        repo.Name,
		Owner:       p.Owner,
		Description: repo.Description,
		Private:     repo.Private,
	})
	if err != nil {
		return err
	}
	if err := p.GitHub.PutFile(ctx, p.Owner, repo.Name, client.FileRequest{
		Path:    "README.md",
		Message: "Add README.md",
		Content: readme,
	}); err != nil {
		return fmt.Errorf("create README.md: %w", err)
	}
	p.printf("✔ README.md created in %s\n", repo.Name)

	remote := repo.CloneURL
	if remote == "" {
		remote = fmt.Sprintf("https://github.com/%s/%s.git", p.Owner, repo.Name)
	}
	err = gitops.InitialPush(ctx, p.Git, gitops.InitialPushOptions{
		Dir:       p.Dir,
		RemoteURL: remote,
		Branch:    p.branch(),
		Readme:    readme,
		Progress:  func(step string) { p.printf("✔ %s\n", step) },
	})
	if err != nil {
		return err
	}
	p.Recorder.WithActor(p.Owner).Record(ctx, audit.EventRepositoryPushed,
		audit.Target{Kind: audit.KindRepository, Name: repo.FullName, Provider: "github"},
		map[string]string{"branch": p.branch()})
	output.Banner(p.Out, "Git Push Completed")
	return nil
}

// CreateAndPush runs CreateRepository followed by Push.
func (p *Pipeline) CreateAndPush(ctx context.Context) (*client.Repository, error) {
	repo, err := p.CreateRepository(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.Push(ctx, repo); err != nil {
		return repo, err
	}
	return repo, nil
}
