package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kenjpais/diagram-generator/display"
	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/validate"
)

func newValidateCmd(app *App) *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "validate <file.dot>",
		Short: "Check DOT syntax",
		Long: `Validate a DOT file with the configured validator, or the one named by
--strategy (auto, parser, heuristic, dot). Exits 1 when the file is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig()
			if err != nil {
				return err
			}
			if strategy == "" {
				strategy = cfg.Validator.Strategy
			}
			v, err := validate.New(strategy, validate.Options{DotBinary: cfg.Render.Binary, DotTimeout: cfg.RenderTimeout()})
			if err != nil {
				return err
			}

			src, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", args[0])
			}
			res := v.Validate(string(src))

			if app.jsonOutput(cmd) {
				if err := display.OutputJSON(map[string]interface{}{
					"file":  args[0],
					"valid": res.Valid,
					"error": res.Error,
				}); err != nil {
					return err
				}
			} else if res.Valid {
				display.Success("%s is valid", args[0])
			}
			if !res.Valid {
				return errors.Newf("%s is invalid: %s", args[0], res.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "Validator strategy (default from config)")
	return cmd
}
