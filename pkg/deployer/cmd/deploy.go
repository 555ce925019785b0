package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/deployer-cli/deployer/pkg/deployer/output"
	"github.com/deployer-cli/deployer/pkg/deployer/pipeline"
	"github.com/spf13/cobra"
)

func NewPushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Create a GitHub repository and push the current directory to it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			return runPush(cmd.Context(), rt)
		},
	}
}

func NewDeployCommand() *cobra.Command {
	var latest bool
	cmd := &cobra.Command{
		Use:   "deploy [NAME]",
		Short: "Deploy a GitHub repository on Vercel",
		Long:  "Without arguments the newest repositories are listed for selection. --latest deploys the most recently created one.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if latest && len(args) == 1 {
				return errors.New("--latest cannot be combined with a repository name")
			}
			return runDeploy(cmd.Context(), rt, func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Result, error) {
				switch {
				case latest:
					return p.DeployLatest(ctx)
				case len(args) == 1:
					return p.Deploy(ctx, args[0])
				default:
					return p.DeploySelected(ctx)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "Deploy the most recently created repository")
	return cmd
}

func NewShipCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ship",
		Short: "Create a repository, push the current directory and deploy it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			return runDeploy(cmd.Context(), rt, func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Result, error) {
				return p.Ship(ctx)
			})
		},
	}
}

func runPush(ctx context.Context, rt *runtimeState) error {
	s, err := rt.newSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	repo, err := s.pipeline.CreateAndPush(ctx)
	if err != nil {
		return err
	}
	return writeStructured(rt, repo)
}

func runDeploy(ctx context.Context, rt *runtimeState, run func(context.Context, *pipeline.Pipeline) (*pipeline.Result, error)) error {
	s, err := rt.newSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := run(ctx, s.pipeline)
	switch {
	case errors.Is(err, pipeline.ErrCancelled):
		return nil
	case errors.Is(err, pipeline.ErrNoRepositories):
		return fmt.Errorf("%w for %s", err, s.record.GitHubUsername)
	case err != nil:
		return err
	}
	return writeStructured(rt, result)
}

// writeStructured prints obj only for json and yaml output; the pipeline has
// already reported progress in human form.
func writeStructured(rt *runtimeState, obj any) error {
	format, err := output.ParseFormat(rt.OutputFormat())
	if err != nil {
		return err
	}
	if !format.IsStructured() {
		return nil
	}
	return output.WriteObject(rt.Writer(), format, obj)
}
