package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kenjpais/diagram-generator/display"
	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/logger"
	"github.com/kenjpais/diagram-generator/render"
)

func newRenderCmd(app *App) *cobra.Command {
	var format, outputDir string
	cmd := &cobra.Command{
		Use:   "render <file.dot> [name]",
		Short: "Render an existing DOT file",
		Long: `Render a DOT file with Graphviz into the output directory. The source
is copied next to the artifact as <name>.dot.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig()
			if err != nil {
				return err
			}
			if format == "" {
				format = cfg.Render.Format
			}
			if outputDir == "" {
				outputDir = cfg.Render.OutputDir
			}
			r, err := render.New(render.Config{
				Binary:    cfg.Render.Binary,
				Format:    format,
				OutputDir: outputDir,
				Timeout:   cfg.RenderTimeout(),
				Logger:    logger.ComponentLogger("render"),
			})
			if err != nil {
				return err
			}

			src, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", args[0])
			}
			name := ""
			if len(args) > 1 {
				name = args[1]
			}
			artifact, source, err := r.Render(cmd.Context(), string(src), name)
			if err != nil {
				return err
			}

			if app.jsonOutput(cmd) {
				return display.OutputJSON(map[string]string{"artifact_path": artifact, "source_path": source})
			}
			display.Success("Rendered %s", artifact)
			display.Info("Source code: %s", source)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Render format: svg, png or pdf (default from config)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory (default from config)")
	return cmd
}
