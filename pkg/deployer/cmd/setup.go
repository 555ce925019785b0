package cmd

import (
	"fmt"

	"github.com/deployer-cli/deployer/pkg/deployer/auth"
	"github.com/spf13/cobra"
)

const (
	setupAutomatic = "automatic"
	setupManual    = "manual"
)

func NewSetupCommand() *cobra.Command {
	var (
		strategy    string
		githubToken string
		vercelToken string
	)

	cmd := &cobra.Command{
		Use:       "setup [automatic|manual]",
		Short:     "Store GitHub and Vercel credentials",
		Long:      "Automatic setup signs in to GitHub through the browser and then waits for a Vercel token. Manual setup asks for both tokens.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{setupAutomatic, setupManual},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			mode := ""
			if len(args) == 1 {
				mode = args[0]
			}
			if mode == "" {
				if githubToken != "" || vercelToken != "" {
					mode = setupManual
				} else if mode, err = chooseSetup(rt); err != nil {
					return err
				}
			}
			switch mode {
			case setupAutomatic:
				return runAutomatic(cmd, rt, strategy)
			case setupManual:
				return runManual(cmd, rt, githubToken, vercelToken)
			default:
				return fmt.Errorf("unknown setup mode %q (use %s or %s)", mode, setupAutomatic, setupManual)
			}
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "Vercel token strategy for automatic setup: prompt or clipboard")
	cmd.Flags().StringVar(&githubToken, "github-token", "", "GitHub token for manual setup")
	cmd.Flags().StringVar(&vercelToken, "vercel-token", "", "Vercel token for manual setup")
	return cmd
}

// NewLoginCommand is a shortcut for "setup automatic".
func NewLoginCommand() *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to GitHub in the browser and store a Vercel token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			return runAutomatic(cmd, rt, strategy)
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "Vercel token strategy: prompt or clipboard")
	return cmd
}

func chooseSetup(rt *runtimeState) (string, error) {
	w := rt.Writer()
	_, _ = fmt.Fprintln(w, "Please select a setup option:")
	_, _ = fmt.Fprintln(w, "1. Automatic Setup")
	_, _ = fmt.Fprintln(w, "2. Manual Setup (Not Recommended)")
	choice, err := rt.Prompter().Number("Enter your choice", 1, 2)
	if err != nil {
		return "", err
	}
	if choice == 1 {
		return setupAutomatic, nil
	}
	return setupManual, nil
}

func runAutomatic(cmd *cobra.Command, rt *runtimeState, strategy string) error {
	b, err := rt.bootstrap(strategy)
	if err != nil {
		return err
	}
	defer closeRecorder(rt.Logger(), b.Recorder)

	outcome, err := b.Run(cmd.Context())
	if err != nil {
		return err
	}
	if outcome == auth.OutcomeCompleted {
		_, _ = fmt.Fprintf(rt.Writer(), "Credentials saved to %s\n", b.Store.Location())
	}
	return nil
}

func runManual(cmd *cobra.Command, rt *runtimeState, githubToken, vercelToken string) error {
	m, err := rt.manual(githubToken, vercelToken)
	if err != nil {
		return err
	}
	defer closeRecorder(rt.Logger(), m.Recorder)

	if _, err := m.Run(cmd.Context()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(rt.Writer(), "Credentials saved to %s\n", m.Store.Location())
	return nil
}
