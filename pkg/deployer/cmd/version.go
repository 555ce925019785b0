package cmd

import (
	"fmt"

	"github.com/deployer-cli/deployer/pkg/deployer/output"
	"github.com/deployer-cli/deployer/pkg/version"
	"github.com/spf13/cobra"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show deployer version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetBuildInfo()

			// Runtime may be missing when the command runs detached from root.
			rt, _ := getRuntime(cmd)
			writer := cmd.OutOrStdout()
			format := ""
			if rt != nil {
				writer = rt.Writer()
				format = rt.outputFormat
			}

			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			if f.IsStructured() {
				return output.WriteObject(writer, f, info)
			}
			_, _ = fmt.Fprintln(writer, info.String())
			return nil
		},
	}
}
