package cmd

import (
	"errors"
	"fmt"

	"github.com/deployer-cli/deployer/pkg/audit"
	"github.com/deployer-cli/deployer/pkg/deployer/credentials"
	"github.com/deployer-cli/deployer/pkg/deployer/output"
	"github.com/spf13/cobra"
)

func NewCredentialsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"creds"},
		Short:   "Manage stored GitHub and Vercel credentials",
	}
	cmd.AddCommand(newCredentialsSetCommand(), newCredentialsShowCommand())
	return cmd
}

func newCredentialsSetCommand() *cobra.Command {
	var githubToken, vercelToken string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Enter both tokens by hand; each is verified before it is saved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			return runManual(cmd, rt, githubToken, vercelToken)
		},
	}
	cmd.Flags().StringVar(&githubToken, "github-token", "", "GitHub token (prompted when empty)")
	cmd.Flags().StringVar(&vercelToken, "vercel-token", "", "Vercel token (prompted when empty)")
	return cmd
}

func newCredentialsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show stored credentials with tokens masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			store, err := rt.Store()
			if err != nil {
				return err
			}
			record, err := store.Load()
			if err != nil && !errors.Is(err, credentials.ErrNotFound) {
				return err
			}
			status := record.Masked()
			status.Storage = store.Kind()
			status.Location = store.Location()
			return writeFormatted(rt, status, func() {
				output.WriteCredentialStatus(rt.Writer(), status)
			})
		},
	}
}

func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Inspect or remove the stored credentials",
	}
	cmd.AddCommand(newAuthStatusCommand(), newAuthLogoutCommand())
	return cmd
}

type providerStatus struct {
	Provider string `json:"provider" yaml:"provider"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Token    string `json:"token" yaml:"token"`
	Valid    bool   `json:"valid" yaml:"valid"`
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the stored tokens against GitHub and Vercel",
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
			ctx := cmd.Context()
			gh := providerStatus{Provider: "github", Token: credentials.Mask(record.GitHubToken)}
			if record.GitHubToken != "" {
				if identity, ok := rt.GitHubVerifier().Verify(ctx, record.GitHubToken); ok {
					gh.Valid = true
					gh.Username = identity.Username
				}
			}
			vc := providerStatus{Provider: "vercel", Token: credentials.Mask(record.VercelToken)}
			if record.VercelToken != "" {
				if identity, ok := rt.VercelVerifier().Verify(ctx, record.VercelToken); ok {
					vc.Valid = true
					if identity != nil {
						vc.Username = identity.Username
					}
				}
			}
			statuses := []providerStatus{gh, vc}
			return writeFormatted(rt, statuses, func() {
				w := newTabWriter(rt.Writer())
				_, _ = fmt.Fprintln(w, "PROVIDER\tUSER\tTOKEN\tVALID")
				for _, s := range statuses {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", s.Provider, dash(s.Username), dash(s.Token), s.Valid)
				}
				_ = w.Flush()
			})
		},
	}
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if !rt.assumeYes {
				ok, err := rt.Prompter().Confirm("Delete the stored GitHub and Vercel credentials?", false)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			store, err := rt.Store()
			if err != nil {
				return err
			}
			if err := store.Delete(); err != nil {
				return err
			}
			recorder, err := rt.Recorder("")
			if err != nil {
				return err
			}
			defer closeRecorder(rt.Logger(), recorder)
			recorder.Record(cmd.Context(), audit.EventCredentialsDeleted,
				audit.Target{Kind: audit.KindCredentials, Name: store.Location()},
				map[string]string{"storage": store.Kind()})
			_, _ = fmt.Fprintf(rt.Writer(), "Removed credentials from %s\n", store.Location())
			return nil
		},
	}
}
