// Package commands implements the diagen cobra command tree.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/logger"
)

// NewRootCmd builds the full command tree. A fresh tree per call keeps flag
// state out of package globals.
func NewRootCmd() *cobra.Command {
	app := &App{}
	gen := &generateOptions{}

	root := &cobra.Command{
		Use:   "diagen [request] [output-name]",
		Short: "Turn natural-language requests into validated Graphviz diagrams",
		Long: `diagen - natural language to validated, rendered architecture diagrams.

With no arguments diagen starts an interactive session. With a request it
runs one generation, like 'diagen generate'.

Configuration sources (later overrides earlier):
  defaults, /etc/diagen/config.toml, ~/.diagen/config.toml,
  ./diagen.toml (searched upward), --config, .env, DIAGEN_* variables

Examples:
  diagen                                          # interactive session
  diagen "three-tier web app on AWS" shop         # one-shot, writes shop.svg
  diagen generate "k8s cluster" --filename arch.md
  diagen compile graph.json -o graph.dot
  diagen config show --sources`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Initialize(app.JSON, app.Verbosity); err != nil {
				return errors.Wrap(err, "failed to initialize logger")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runREPL(cmd, app, gen)
			}
			return runGenerate(cmd, app, gen, args)
		},
	}

	root.PersistentFlags().CountVarP(&app.Verbosity, "verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	root.PersistentFlags().BoolVar(&app.JSON, "json", false, "Output JSON instead of formatted text")
	root.PersistentFlags().StringVar(&app.ConfigFile, "config", "", "Config file (highest file precedence)")
	gen.register(root)

	root.AddCommand(
		newGenerateCmd(app),
		newCompileCmd(app),
		newValidateCmd(app),
		newRenderCmd(app),
		newStylesCmd(app),
		newHistoryCmd(app),
		newUsageCmd(app),
		newDBCmd(app),
		newConfigCmd(app),
		newVersionCmd(app),
	)
	return root
}
