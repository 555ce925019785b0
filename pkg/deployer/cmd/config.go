package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/deployer-cli/deployer/pkg/deployer/config"
	"github.com/deployer-cli/deployer/pkg/deployer/output"
	"github.com/spf13/cobra"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage deployer configuration",
	}

	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigViewCommand(),
		newConfigSetValueCommand(),
		newConfigPathCommand(),
	)

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		clientID     string
		strategy     string
		tokenStorage string
		scope        string
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			path := rt.configPathValue()
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists: %s", path)
				}
			}
			cfg := config.DefaultConfig()
			if clientID != "" {
				cfg.GitHub.ClientID = clientID
			}
			if strategy != "" {
				cfg.Settings.SecondaryStrategy = strategy
			}
			if tokenStorage != "" {
				cfg.Settings.TokenStorage = tokenStorage
			}
			cfg.Vercel.Scope = scope
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, &cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Initialized config at %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "GitHub OAuth app client ID")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Vercel token strategy: prompt or clipboard")
	cmd.Flags().StringVar(&tokenStorage, "token-storage", "", "Credential storage: file or keychain")
	cmd.Flags().StringVar(&scope, "scope", "", "Vercel account scope used in site URLs")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			format := output.FormatYAML
			if f, err := output.ParseFormat(rt.OutputFormat()); err == nil && f == output.FormatJSON {
				format = f
			}
			view := *rt.cfg
			if view.GitHub.ClientSecret != "" {
				view.GitHub.ClientSecret = "********"
			}
			if view.Notifications.Mail.Password != "" {
				view.Notifications.Mail.Password = "********"
			}
			return output.WriteObject(rt.Writer(), format, view)
		},
	}
}

func newConfigSetValueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Keys:\n  " + strings.Join(config.Keys(), "\n  "),
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.Keys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			if err := rt.cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(rt.configPathValue(), rt.cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Set %s\n", args[0])
			return nil
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config and credential file locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			_ = rt.EnsureConfigLoaded()
			_, _ = fmt.Fprintf(rt.Writer(), "config:      %s\n", rt.configPathValue())
			_, _ = fmt.Fprintf(rt.Writer(), "credentials: %s (%s)\n", rt.EnvFile(), rt.TokenStorage())
			return nil
		},
	}
}
