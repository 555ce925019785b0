package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/deployer-cli/deployer/pkg/deployer/auth"
	"github.com/deployer-cli/deployer/pkg/deployer/browser"
	"github.com/deployer-cli/deployer/pkg/deployer/config"
	"github.com/deployer-cli/deployer/pkg/deployer/gitops"
	"github.com/deployer-cli/deployer/pkg/deployer/prompt"
	"github.com/deployer-cli/deployer/pkg/system"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Config wires the command tree to its surroundings. Nil collaborators fall
// back to the real terminal, browser, clipboard and git binary.
type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
	Input        io.Reader

	Prompter  prompt.Prompter
	Browser   Browser
	Clipboard auth.ClipboardReader
	Git       gitops.Runner
	Environ   func() []string
}

// Browser opens URLs and closes the browser process.
type Browser interface {
	browser.Opener
	browser.Killer
}

type runtimeState struct {
	configPath           string
	cfg                  *config.Config
	outputFormat         string
	envFileOverride      string
	tokenStorageOverride string
	assumeYes            bool
	verbose              bool
	writer               io.Writer
	input                io.Reader
	logger               *zap.Logger

	prompter  prompt.Prompter
	browser   Browser
	clipboard auth.ClipboardReader
	git       gitops.Runner
	environ   func() []string
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
		Input:        os.Stdin,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{
		configPath: cfg.ConfigPath,
		writer:     cfg.OutputWriter,
		input:      cfg.Input,
		prompter:   cfg.Prompter,
		browser:    cfg.Browser,
		clipboard:  cfg.Clipboard,
		git:        cfg.Git,
		environ:    cfg.Environ,
	}

	root := &cobra.Command{
		Use:           "deployer",
		Short:         "Create GitHub repositories and deploy them on Vercel",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.input == nil {
				rt.input = os.Stdin
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("DEPLOYER_OUTPUT")
			}
			if rt.envFileOverride == "" {
				rt.envFileOverride = os.Getenv("DEPLOYER_ENV_FILE")
			}
			if rt.tokenStorageOverride == "" {
				rt.tokenStorageOverride = os.Getenv("DEPLOYER_TOKEN_STORAGE")
			}
			if !rt.assumeYes {
				rt.assumeYes = strings.EqualFold(os.Getenv("DEPLOYER_YES"), "true")
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("DEPLOYER_VERBOSE"), "true")
			}

			// Skip config loading for commands that don't need it
			if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}
			if cmd.Name() == "path" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}
			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			cfg, err := config.Load(rt.configPath)
			if err != nil {
				return err
			}
			rt.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMenu(cmd)
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, wide, json, yaml")
	root.PersistentFlags().StringVar(&rt.envFileOverride, "env-file", "", "Credential file override")
	root.PersistentFlags().StringVar(&rt.tokenStorageOverride, "token-storage", "", "Token storage backend: file or keychain")
	root.PersistentFlags().BoolVarP(&rt.assumeYes, "yes", "y", false, "Answer yes to confirmations")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable verbose logging on stderr")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewSetupCommand(),
		NewLoginCommand(),
		NewCredentialsCommand(),
		NewAuthCommand(),
		NewRepoCommand(),
		NewPushCommand(),
		NewDeployCommand(),
		NewShipCommand(),
		NewDashboardCommand(),
		NewConfigCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) OutputFormat() string {
	if rt.outputFormat != "" {
		return rt.outputFormat
	}
	if rt.cfg != nil && rt.cfg.Settings.OutputFormat != "" {
		return rt.cfg.Settings.OutputFormat
	}
	return "table"
}

func (rt *runtimeState) TokenStorage() string {
	if rt.tokenStorageOverride != "" {
		return rt.tokenStorageOverride
	}
	if rt.cfg != nil && rt.cfg.Settings.TokenStorage != "" {
		return rt.cfg.Settings.TokenStorage
	}
	return config.StorageFile
}

func (rt *runtimeState) EnvFile() string {
	if rt.envFileOverride != "" {
		return rt.envFileOverride
	}
	if rt.cfg != nil {
		return rt.cfg.EnvFilePath()
	}
	return config.DefaultEnvFilePath()
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) EnsureConfigLoaded() error {
	if rt.cfg != nil {
		return nil
	}
	cfg, err := config.Load(rt.configPath)
	if err != nil {
		return err
	}
	rt.cfg = cfg
	return nil
}

func (rt *runtimeState) Logger() *zap.Logger {
	if rt.logger != nil {
		return rt.logger
	}
	logger, err := system.NewLogger(rt.verbose)
	if err != nil {
		logger = zap.NewNop()
	}
	rt.logger = logger
	return logger
}

func (rt *runtimeState) configPathValue() string {
	if rt.configPath == "" {
		return config.DefaultConfigPath()
	}
	return rt.configPath
}
