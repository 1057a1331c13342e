package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kenjpais/diagram-generator/am"
	"github.com/kenjpais/diagram-generator/compiler"
	"github.com/kenjpais/diagram-generator/display"
	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/graph"
)

func newCompileCmd(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "compile <graph.json>",
		Short: "Compile graph JSON to DOT without an LLM",
		Long: `Decode a graph model (title, groups, components, relationships) and
emit deterministic DOT. Lint warnings are printed to stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", args[0])
			}
			m, err := graph.Decode(data)
			if err != nil {
				return errors.Wrapf(err, "invalid graph in %s", args[0])
			}
			for _, w := range m.Lint() {
				cmd.PrintErrln("warning: " + w)
			}

			src := compiler.Compile(m)
			if output == "" || output == "-" {
				fmt.Fprint(cmd.OutOrStdout(), src)
				return nil
			}
			if err := os.WriteFile(output, []byte(src), am.DefaultFilePermissions); err != nil {
				return errors.Wrapf(err, "failed to write %s", output)
			}
			if !app.jsonOutput(cmd) {
				display.Success("Wrote %s", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write DOT to this file instead of stdout")
	return cmd
}
