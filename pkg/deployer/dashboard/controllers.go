package dashboard

import (
	"context"
	"strings"

	"github.com/deployer-cli/deployer/pkg/apiresponses"
	"github.com/deployer-cli/deployer/pkg/audit"
	"github.com/deployer-cli/deployer/pkg/deployer/client"
	"github.com/deployer-cli/deployer/pkg/metrics"
	"github.com/deployer-cli/deployer/pkg/system"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultProjectLimit matches what the page shows.
const DefaultProjectLimit = 30

type RepositoryLister interface {
	ListRepositories(ctx context.Context, opts client.ListOptions) ([]client.Repository, error)
	DeleteRepository(ctx context.Context, owner, repo string) error
}

type ProjectLister interface {
	ListProjects(ctx context.Context, limit int) ([]client.Project, error)
	DeleteProject(ctx context.Context, idOrName string) error
}

// RepositoryController serves /api/github-repos.
type RepositoryController struct {
	GitHub   RepositoryLister
	Owner    string
	Recorder *audit.Recorder
	Logger   *zap.SugaredLogger
}

func (rc *RepositoryController) BasePath() string { return "/github-repos" }

func (rc *RepositoryController) Handlers() []gin.HandlerFunc { return nil }

func (rc *RepositoryController) Register(rg *gin.RouterGroup) error {
	rg.GET("", rc.list)
	rg.DELETE("/:repo", rc.delete)
	return nil
}

func (rc *RepositoryController) list(c *gin.Context) {
	log := system.GetReqLogger(c, rc.Logger)
	if rc.GitHub == nil {
		apiresponses.RespondServiceUnavailable(c, "github")
		return
	}
	repos, err := rc.GitHub.ListRepositories(c.Request.Context(), client.ListOptions{Visibility: "all"})
	if err != nil {
		apiresponses.RespondUpstreamError(c, "fetching GitHub repositories", err, log)
		return
	}
	if repos == nil {
		repos = []client.Repository{}
	}
	apiresponses.RespondOK(c, repos)
}

func (rc *RepositoryController) delete(c *gin.Context) {
	log := system.GetReqLogger(c, rc.Logger)
	if rc.GitHub == nil {
		apiresponses.RespondServiceUnavailable(c, "github")
		return
	}
	name := strings.TrimSpace(c.Param("repo"))
	if name == "" {
		apiresponses.RespondBadRequest(c, "repository name is required")
		return
	}
	if log != nil {
		log.Infow("Deleting GitHub repository", "owner", rc.Owner, "repository", name)
	}
	if err := rc.GitHub.DeleteRepository(c.Request.Context(), rc.Owner, name); err != nil {
		apiresponses.RespondUpstreamError(c, "deleting GitHub repository", err, log)
		return
	}
	metrics.RepositoriesDeleted.Inc()
	rc.Recorder.Record(c.Request.Context(), audit.EventRepositoryDeleted,
		audit.Target{Kind: audit.KindRepository, Name: name, Provider: "github"},
		map[string]string{"owner": rc.Owner})
	apiresponses.RespondDeleted(c, "GitHub repo deleted")
}

// ProjectView is a project plus the site address shown on the page.
type ProjectView struct {
	client.Project
	URL string `json:"url"`
}

// ProjectController serves /api/vercel-projects.
type ProjectController struct {
	Vercel   ProjectLister
	Limit    int
	SiteURL  func(project string) string
	Recorder *audit.Recorder
	Logger   *zap.SugaredLogger
}

func (pc *ProjectController) BasePath() string { return "/vercel-projects" }

func (pc *ProjectController) Handlers() []gin.HandlerFunc { return nil }

func (pc *ProjectController) Register(rg *gin.RouterGroup) error {
	rg.GET("", pc.list)
	rg.DELETE("/:projectId", pc.delete)
	return nil
}

func (pc *ProjectController) list(c *gin.Context) {
	log := system.GetReqLogger(c, pc.Logger)
	if pc.Vercel == nil {
		apiresponses.RespondServiceUnavailable(c, "vercel")
		return
	}
	limit := pc.Limit
	if limit <= 0 {
		limit = DefaultProjectLimit
	}
	projects, err := pc.Vercel.ListProjects(c.Request.Context(), limit)
	if err != nil {
		apiresponses.RespondUpstreamError(c, "fetching Vercel projects", err, log)
		return
	}
	if len(projects) > limit {
		projects = projects[:limit]
	}
	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, ProjectView{Project: p, URL: pc.siteURL(p.Name)})
	}
	apiresponses.RespondOK(c, views)
}

func (pc *ProjectController) siteURL(name string) string {
	if pc.SiteURL != nil {
		return pc.SiteURL(name)
	}
	return "https://" + name + ".vercel.app"
}

func (pc *ProjectController) delete(c *gin.Context) {
	log := system.GetReqLogger(c, pc.Logger)
	if pc.Vercel == nil {
		apiresponses.RespondServiceUnavailable(c, "vercel")
		return
	}
	id := strings.TrimSpace(c.Param("projectId"))
	if id == "" {
		apiresponses.RespondBadRequest(c, "project id is required")
		return
	}
	if err := pc.Vercel.DeleteProject(c.Request.Context(), id); err != nil {
		apiresponses.RespondUpstreamError(c, "deleting Vercel project", err, log)
		return
	}
	metrics.ProjectsDeleted.Inc()
	pc.Recorder.Record(c.Request.Context(), audit.EventProjectDeleted,
		audit.Target{Kind: audit.KindProject, Name: id, Provider: "vercel"}, nil)
	apiresponses.RespondDeleted(c, "Vercel project deleted")
}
