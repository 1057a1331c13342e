package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kenjpais/diagram-generator/display"
	"github.com/kenjpais/diagram-generator/version"
)

func newVersionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show diagen version information",
		Long:  `Display version, build time, commit hash, and platform information for the diagen binary.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if app.jsonOutput(cmd) {
				return display.OutputJSON(info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, info.String())
			fmt.Fprintf(out, "Platform: %s\n", info.Platform)
			fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
			return nil
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
	return cmd
}
