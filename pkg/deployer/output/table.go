package output

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/deployer-cli/deployer/pkg/deployer/client"
	"github.com/deployer-cli/deployer/pkg/deployer/credentials"
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
}

func WriteRepositoryTable(w io.Writer, repos []client.Repository) {
	tw := newTabWriter(w)
	_, _ = fmt.Fprintln(tw, "NAME\tVISIBILITY\tCREATED\tURL")
	for _, r := range repos {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, visibility(r), formatTime(r.CreatedAt), r.HTMLURL)
	}
	_ = tw.Flush()
}

func WriteRepositoryTableWide(w io.Writer, repos []client.Repository) {
	tw := newTabWriter(w)
	_, _ = fmt.Fprintln(tw, "ID\tFULL_NAME\tVISIBILITY\tBRANCH\tCREATED\tUPDATED\tCLONE_URL")
	for _, r := range repos {
		branch := r.DefaultBranch
		if branch == "" {
			branch = "-"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.FullName, visibility(r), branch, formatTime(r.CreatedAt), formatTime(r.UpdatedAt), r.CloneURL)
	}
	_ = tw.Flush()
}

// WriteNumberedRepositories lists repos with 1-based indexes for selection.
func WriteNumberedRepositories(w io.Writer, repos []client.Repository) {
	tw := newTabWriter(w)
	for i, r := range repos {
		_, _ = fmt.Fprintf(tw, "%d.\t%s\t%s\n", i+1, r.Name, formatTime(r.CreatedAt))
	}
	_ = tw.Flush()
}

func WriteProjectTable(w io.Writer, projects []client.Project) {
	tw := newTabWriter(w)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tFRAMEWORK\tCREATED")
	for _, p := range projects {
		framework := p.Framework
		if framework == "" {
			framework = "-"
		}
		created := "-"
		if p.CreatedAt > 0 {
			created = formatTime(p.Created())
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, framework, created)
	}
	_ = tw.Flush()
}

func WriteCredentialStatus(w io.Writer, status credentials.Status) {
	tw := newTabWriter(w)
	_, _ = fmt.Fprintf(tw, "STORAGE\t%s\n", status.Storage)
	_, _ = fmt.Fprintf(tw, "LOCATION\t%s\n", status.Location)
	_, _ = fmt.Fprintf(tw, "GITHUB_USERNAME\t%s\n", orDash(status.GitHubUsername))
	_, _ = fmt.Fprintf(tw, "GITHUB_TOKEN\t%s\n", orDash(status.GitHubToken))
	_, _ = fmt.Fprintf(tw, "VERCEL_TOKEN\t%s\n", orDash(status.VercelToken))
	_ = tw.Flush()
}

func visibility(r client.Repository) string {
	if r.Visibility != "" {
		return r.Visibility
	}
	if r.Private {
		return "private"
	}
	return "public"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
