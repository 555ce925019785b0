package cmd

import (
	"fmt"
	"strings"

	"github.com/deployer-cli/deployer/pkg/audit"
	"github.com/deployer-cli/deployer/pkg/deployer/client"
	"github.com/deployer-cli/deployer/pkg/deployer/output"
	"github.com/deployer-cli/deployer/pkg/metrics"
	"github.com/spf13/cobra"
)

func NewRepoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "repo",
		Aliases: []string{"repos", "repository"},
		Short:   "Create, list and delete GitHub repositories",
	}
	cmd.AddCommand(newRepoCreateCommand(), newRepoListCommand(), newRepoDeleteCommand())
	return cmd
}

func newRepoCreateCommand() *cobra.Command {
	var private bool
	cmd := &cobra.Command{
		Use:   "create [NAME]",
		Short: "Create a GitHub repository; prompts for the name when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			s, err := rt.newSession(false)
			if err != nil {
				return err
			}
			defer s.Close()

			var repo *client.Repository
			if len(args) == 1 {
				repo, err = s.pipeline.CreateNamed(cmd.Context(), args[0], private)
			} else {
				repo, err = s.pipeline.CreateRepository(cmd.Context())
			}
			if err != nil {
				return err
			}
			return writeStructured(rt, repo)
		},
	}
	cmd.Flags().BoolVar(&private, "private", false, "Create a private repository")
	return cmd
}

func newRepoListCommand() *cobra.Command {
	var (
		visibility string
		limit      int
		page       int
		pageSize   int
		all        bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your repositories, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			s, err := rt.newSession(false)
			if err != nil {
				return err
			}
			defer s.Close()

			repos, err := s.github.ListRepositories(cmd.Context(), client.ListOptions{Visibility: visibility, Limit: limit})
			if err != nil {
				return err
			}
			format, err := output.ParseFormat(rt.OutputFormat())
			if err != nil {
				return err
			}
			if format.IsStructured() {
				return output.WriteObject(rt.Writer(), format, repos)
			}
			paged, info := paginate(repos, page, pageSize, all)
			if format == output.FormatWide {
				output.WriteRepositoryTableWide(rt.Writer(), paged)
			} else {
				output.WriteRepositoryTable(rt.Writer(), paged)
			}
			if info != "" {
				_, _ = fmt.Fprintln(rt.Writer(), info)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&visibility, "visibility", "all", "Repository visibility: all, public, private")
	cmd.Flags().IntVar(&limit, "limit", 0, "Fetch at most this many repositories (0 for all)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number for table output")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Rows per page for table output")
	cmd.Flags().BoolVar(&all, "all", false, "Show every row without paging")
	return cmd
}

func newRepoDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a GitHub repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			s, err := rt.newSession(false)
			if err != nil {
				return err
			}
			defer s.Close()

			if !rt.assumeYes {
				ok, err := rt.Prompter().Confirm(fmt.Sprintf("Are you sure you want to delete %s?", name), false)
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(rt.Writer(), "Deletion cancelled.")
					return nil
				}
			}
			owner := s.record.GitHubUsername
			if err := s.github.DeleteRepository(cmd.Context(), owner, name); err != nil {
				return fmt.Errorf("delete %s/%s: %w", owner, name, err)
			}
			metrics.RepositoriesDeleted.Inc()
			s.recorder.Record(cmd.Context(), audit.EventRepositoryDeleted,
				audit.Target{Kind: audit.KindRepository, Name: name, Provider: "github"},
				map[string]string{"owner": owner})
			_, _ = fmt.Fprintf(rt.Writer(), "✔ Repository %s/%s deleted\n", owner, name)
			return nil
		},
	}
}
