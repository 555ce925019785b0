// Package render produces the README committed to new repositories and the
// URL opened after a deployment, from user-configurable templates.
package render

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/gosimple/slug"
)

const maxProjectName = 100

type ReadmeData struct {
	Name        string
	Owner       string
	Description string
	Private     bool
}

type DeploymentData struct {
	Name          string
	Owner         string
	Project       string
	Scope         string
	DeploymentURL string
}

type Renderer struct {
	readme *template.Template
	url    *template.Template
}

func New(readmeTemplate, urlTemplate string) (*Renderer, error) {
	readme, err := template.New("readme").Funcs(funcMap()).Option("missingkey=error").Parse(readmeTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid readme template: %w", err)
	}
	u, err := template.New("url").Funcs(funcMap()).Option("missingkey=error").Parse(urlTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid url template: %w", err)
	}
	return &Renderer{readme: readme, url: u}, nil
}

func (r *Renderer) Readme(data ReadmeData) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.readme.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render readme: %w", err)
	}
	return buf.Bytes(), nil
}

// DeploymentURL renders the URL template and requires an absolute http(s) URL.
func (r *Renderer) DeploymentURL(data DeploymentData) (string, error) {
	var buf bytes.Buffer
	if err := r.url.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render deployment url: %w", err)
	}
	raw := strings.TrimSpace(buf.String())
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("rendered deployment url %q is not an absolute http(s) url", raw)
	}
	return parsed.String(), nil
}

// ProjectName converts a repository name into a valid Vercel project name.
func ProjectName(repo string) string {
	name := slug.Make(repo)
	if len(name) > maxProjectName {
		name = strings.TrimRight(name[:maxProjectName], "-")
	}
	if name == "" {
		return "project"
	}
	return name
}

func funcMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["projectName"] = ProjectName
	return fm
}
