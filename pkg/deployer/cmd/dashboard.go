package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/deployer-cli/deployer/pkg/deployer/dashboard"
	"github.com/spf13/cobra"
)

func NewDashboardCommand() *cobra.Command {
	var (
		address   string
		staticDir string
		debug     bool
		noBrowser bool
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve a local page listing repositories and Vercel projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			record, err := rt.Credentials()
			if err != nil {
				return err
			}
			if err := record.RequireGitHub(); err != nil {
				return err
			}
			gh, err := rt.GitHub(record.GitHubToken)
			if err != nil {
				return err
			}
			renderer, err := rt.Renderer()
			if err != nil {
				return err
			}
			recorder, err := rt.Recorder(record.GitHubUsername)
			if err != nil {
				return err
			}
			defer closeRecorder(rt.Logger(), recorder)

			cfg := rt.cfg.Dashboard
			if address == "" {
				address = cfg.Address
			}
			if staticDir == "" {
				staticDir = cfg.StaticDir
			}
			d := &dashboard.Dashboard{
				GitHub:    gh,
				Owner:     record.GitHubUsername,
				SiteURL:   rt.SiteURL(renderer, record.GitHubUsername),
				Recorder:  recorder.WithSource("dashboard"),
				Out:       rt.Writer(),
				Logger:    rt.Logger(),
				Debug:     debug,
				StaticDir: staticDir,
				RateLimit: cfg.RateLimit,
			}
			if record.VercelToken != "" {
				vc, err := rt.Vercel(record.VercelToken)
				if err != nil {
					return err
				}
				d.Vercel = vc
			} else {
				rt.Logger().Warn("no Vercel token stored; project endpoints are disabled")
			}
			if !noBrowser {
				d.Opener = rt.Browser()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return d.Run(ctx, address)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Listen address (default from config, 127.0.0.1:3000)")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "Serve the page from this directory instead of the built-in one")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable gin debug mode and CORS for local UI development")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open the browser")
	return cmd
}
