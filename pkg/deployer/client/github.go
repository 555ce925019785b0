package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultGitHubURL = "https://api.github.com"
	githubPageSize   = 100
)

// ErrRepositoryExists is returned when GitHub rejects a repository name that
// is already taken on the account.
var ErrRepositoryExists = errors.New("repository name already exists on this account")

type GitHubUser struct {
	ID      int64  `json:"id"`
	Login   string `json:"login"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	HTMLURL string `json:"html_url,omitempty"`
}

type Owner struct {
	Login string `json:"login"`
}

type Repository struct {
	ID            int64     `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	FullName      string    `json:"full_name" yaml:"fullName"`
	Owner         Owner     `json:"owner" yaml:"owner"`
	Private       bool      `json:"private" yaml:"private"`
	Visibility    string    `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Description   string    `json:"description,omitempty" yaml:"description,omitempty"`
	HTMLURL       string    `json:"html_url" yaml:"htmlURL"`
	CloneURL      string    `json:"clone_url" yaml:"cloneURL"`
	DefaultBranch string    `json:"default_branch,omitempty" yaml:"defaultBranch,omitempty"`
	CreatedAt     time.Time `json:"created_at" yaml:"createdAt"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updatedAt"`
}

type RepositoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
}

type FileRequest struct {
	Path    string
	Message string
	Content []byte
	Branch  string
}

// ListOptions narrows a repository listing. Zero Limit lists everything.
type ListOptions struct {
	Visibility  string
	Affiliation string
	Limit       int
}

type GitHub struct {
	client *Client
}

func NewGitHub(opts ...Option) (*GitHub, error) {
	base := []Option{WithServer(DefaultGitHubURL), WithProvider("github")}
	c, err := New(append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &GitHub{client: c}, nil
}

func (g *GitHub) CurrentUser(ctx context.Context) (*GitHubUser, error) {
	var user GitHubUser
	if err := g.client.do(ctx, http.MethodGet, "user", nil, &user); err != nil {
		return nil, err
	}
	if user.Login == "" {
		return nil, errors.New("github user response has no login")
	}
	return &user, nil
}

func (g *GitHub) CreateRepository(ctx context.Context, req RepositoryRequest) (*Repository, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("repository name is required")
	}
	var repo Repository
	if err := g.client.do(ctx, http.MethodPost, "user/repos", req, &repo); err != nil {
		if isNameTaken(err) {
			return nil, fmt.Errorf("%w: %s", ErrRepositoryExists, req.Name)
		}
		return nil, err
	}
	return &repo, nil
}

func isNameTaken(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	for _, d := range httpErr.Details {
		if strings.Contains(strings.ToLower(d), "already exists") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(httpErr.Message), "already exists")
}

// PutFile creates or replaces a single file through the contents API.
func (g *GitHub) PutFile(ctx context.Context, owner, repo string, file FileRequest) error {
	if file.Path == "" {
		return errors.New("file path is required")
	}
	body := map[string]string{
		"message": file.Message,
		"content": base64.StdEncoding.EncodeToString(file.Content),
	}
	if file.Branch != "" {
		body["branch"] = file.Branch
	}
	endpoint := fmt.Sprintf("repos/%s/%s/contents/%s", url.PathEscape(owner), url.PathEscape(repo), strings.TrimPrefix(file.Path, "/"))
	return g.client.do(ctx, http.MethodPut, endpoint, body, nil)
}

// ListRepositories pages through the authenticated user's repositories and
// returns them newest first.
func (g *GitHub) ListRepositories(ctx context.Context, opts ListOptions) ([]Repository, error) {
	var all []Repository
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("per_page", strconv.Itoa(githubPageSize))
		query.Set("page", strconv.Itoa(page))
		query.Set("sort", "created")
		query.Set("direction", "desc")
		if opts.Visibility != "" {
			query.Set("visibility", opts.Visibility)
		}
		if opts.Affiliation != "" {
			query.Set("affiliation", opts.Affiliation)
		}

		var batch []Repository
		if err := g.client.do(ctx, http.MethodGet, withQuery("user/repos", query), nil, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < githubPageSize || (opts.Limit > 0 && len(all) >= opts.Limit) {
			break
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if opts.Limit > 0 && len(all) > opts.Limit {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (g *GitHub) DeleteRepository(ctx context.Context, owner, repo string) error {
	if owner == "" || repo == "" {
		return errors.New("owner and repository are required")
	}
	endpoint := fmt.Sprintf("repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
	return g.client.do(ctx, http.MethodDelete, endpoint, nil, nil)
}
