package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultReadme = "# {{ .Name }}\nThis is the repository for {{ .Name }}."
	defaultURL    = "https://{{ .DeploymentURL }}"
)

func TestReadme(t *testing.T) {
	r, err := New(defaultReadme, defaultURL)
	require.NoError(t, err)

	out, err := r.Readme(ReadmeData{Name: "site"})
	require.NoError(t, err)
	assert.Equal(t, "# site\nThis is the repository for site.", string(out))
}

func TestReadmeWithSprig(t *testing.T) {
	r, err := New(`# {{ .Name | title }}{{ if .Description }}
{{ .Description | trim }}{{ end }}`, defaultURL)
	require.NoError(t, err)

	out, err := r.Readme(ReadmeData{Name: "site", Description: "  my site  "})
	require.NoError(t, err)
	assert.Equal(t, "# Site\nmy site", string(out))
}

func TestDeploymentURL(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		data    DeploymentData
		want    string
		wantErr bool
	}{
		{
			name: "default",
			tmpl: defaultURL,
			data: DeploymentData{DeploymentURL: "site-abc.vercel.app"},
			want: "https://site-abc.vercel.app",
		},
		{
			name: "production alias",
			tmpl: "https://{{ .Project }}.vercel.app",
			data: DeploymentData{Project: "site"},
			want: "https://site.vercel.app",
		},
		{
			name: "scoped project",
			tmpl: "https://{{ .Project }}-{{ .Scope }}.vercel.app/",
			data: DeploymentData{Project: "site", Scope: "alices-projects"},
			want: "https://site-alices-projects.vercel.app/",
		},
		{
			name:    "not absolute",
			tmpl:    "{{ .DeploymentURL }}",
			data:    DeploymentData{DeploymentURL: "site-abc.vercel.app"},
			wantErr: true,
		},
		{
			name:    "unknown field",
			tmpl:    "https://{{ .Nope }}",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(defaultReadme, tt.tmpl)
			require.NoError(t, err)
			got, err := r.DeploymentURL(tt.data)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRejectsBadTemplates(t *testing.T) {
	_, err := New("{{ .Name", defaultURL)
	require.Error(t, err)
	_, err = New(defaultReadme, "{{ end }}")
	require.Error(t, err)
}

func TestProjectName(t *testing.T) {
	assert.Equal(t, "my-site", ProjectName("My Site"))
	assert.Equal(t, "cafe-deploy", ProjectName("Café Deploy"))
	assert.Equal(t, "project", ProjectName("!!!"))
	long := ProjectName(strings.Repeat("a", 150))
	assert.Len(t, long, 100)
}
