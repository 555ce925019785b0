package cmd

import (
	"context"
	"fmt"

	"github.com/deployer-cli/deployer/pkg/deployer/pipeline"
	"github.com/spf13/cobra"
)

type menuEntry struct {
	label string
	run   func(cmd *cobra.Command, rt *runtimeState) error
}

var menu = []menuEntry{
	{"Git Push", func(cmd *cobra.Command, rt *runtimeState) error {
		return runPush(cmd.Context(), rt)
	}},
	{"Git Push and Deploy", func(cmd *cobra.Command, rt *runtimeState) error {
		return runDeploy(cmd.Context(), rt, func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Result, error) {
			return p.Ship(ctx)
		})
	}},
	{"Deploy only", func(cmd *cobra.Command, rt *runtimeState) error {
		return runDeploy(cmd.Context(), rt, func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Result, error) {
			return p.DeploySelected(ctx)
		})
	}},
	{"Set up credentials (run first time only)", func(cmd *cobra.Command, rt *runtimeState) error {
		mode, err := chooseSetup(rt)
		if err != nil {
			return err
		}
		if mode == setupAutomatic {
			return runAutomatic(cmd, rt, "")
		}
		return runManual(cmd, rt, "", "")
	}},
}

// runMenu is what a bare "deployer" does.
func runMenu(cmd *cobra.Command) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	w := rt.Writer()
	_, _ = fmt.Fprintln(w, "Select an option:")
	for i, entry := range menu {
		_, _ = fmt.Fprintf(w, "%d. %s\n", i+1, entry.label)
	}
	choice, err := rt.Prompter().Number("Enter your choice", 1, len(menu))
	if err != nil {
		return err
	}
	return menu[choice-1].run(cmd, rt)
}
