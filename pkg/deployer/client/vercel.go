package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultVercelURL = "https://api.vercel.com"

type VercelUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

type GitSource struct {
	Type    string `json:"type"`
	RepoURL string `json:"repoUrl,omitempty"`
	Ref     string `json:"ref"`
	RepoID  int64  `json:"repoId"`
}

// ProjectSettings is sent with every deployment. Nil fields serialize as
// null so Vercel falls back to framework detection.
type ProjectSettings struct {
	BuildCommand                *string `json:"buildCommand"`
	CommandForIgnoringBuildStep *string `json:"commandForIgnoringBuildStep"`
	DevCommand                  *string `json:"devCommand"`
	Framework                   *string `json:"framework"`
	InstallCommand              *string `json:"installCommand"`
	OutputDirectory             *string `json:"outputDirectory"`
}

type DeploymentRequest struct {
	Name            string          `json:"name"`
	GitSource       GitSource       `json:"gitSource"`
	ProjectSettings ProjectSettings `json:"projectSettings"`
	Target          string          `json:"target,omitempty"`
}

type Deployment struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	URL          string `json:"url" yaml:"url"`
	ReadyState   string `json:"readyState,omitempty" yaml:"readyState,omitempty"`
	InspectorURL string `json:"inspectorUrl,omitempty" yaml:"inspectorURL,omitempty"`
}

type Project struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Framework string `json:"framework,omitempty" yaml:"framework,omitempty"`
	CreatedAt int64  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt int64  `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// Created converts the millisecond timestamp Vercel reports.
func (p Project) Created() time.Time {
	return time.UnixMilli(p.CreatedAt)
}

type Vercel struct {
	client *Client
	teamID string
}

func NewVercel(teamID string, opts ...Option) (*Vercel, error) {
	base := []Option{WithServer(DefaultVercelURL), WithProvider("vercel")}
	c, err := New(append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Vercel{client: c, teamID: teamID}, nil
}

func (v *Vercel) scoped(endpoint string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	if v.teamID != "" {
		query.Set("teamId", v.teamID)
	}
	return withQuery(endpoint, query)
}

func (v *Vercel) CurrentUser(ctx context.Context) (*VercelUser, error) {
	var resp struct {
		User VercelUser `json:"user"`
	}
	if err := v.client.do(ctx, http.MethodGet, "v2/user", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (v *Vercel) CreateDeployment(ctx context.Context, req DeploymentRequest) (*Deployment, error) {
	if req.Name == "" {
		return nil, errors.New("deployment name is required")
	}
	if req.GitSource.Type == "" {
		req.GitSource.Type = "github"
	}
	var deployment Deployment
	if err := v.client.do(ctx, http.MethodPost, v.scoped("v13/deployments", nil), req, &deployment); err != nil {
		return nil, err
	}
	if deployment.URL == "" {
		return nil, errors.New("deployment response has no url")
	}
	return &deployment, nil
}

// ListProjects returns at most limit projects. Non-positive limits use the
// API default.
func (v *Vercel) ListProjects(ctx context.Context, limit int) ([]Project, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Projects []Project `json:"projects"`
	}
	if err := v.client.do(ctx, http.MethodGet, v.scoped("v9/projects", query), nil, &resp); err != nil {
		return nil, err
	}
	if limit > 0 && len(resp.Projects) > limit {
		resp.Projects = resp.Projects[:limit]
	}
	return resp.Projects, nil
}

func (v *Vercel) DeleteProject(ctx context.Context, idOrName string) error {
	if idOrName == "" {
		return errors.New("project id is required")
	}
	return v.client.do(ctx, http.MethodDelete, v.scoped("v9/projects/"+url.PathEscape(idOrName), nil), nil, nil)
}
