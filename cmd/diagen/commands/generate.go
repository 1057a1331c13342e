package commands

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenjpais/diagram-generator/am"
	"github.com/kenjpais/diagram-generator/display"
	"github.com/kenjpais/diagram-generator/internal/docinput"
	"github.com/kenjpais/diagram-generator/logger"
	"github.com/kenjpais/diagram-generator/pipeline"
)

// generateOptions are the per-run overrides accepted by generate and the root shorthand
type generateOptions struct {
	filename    string
	strategy    string
	format      string
	outputDir   string
	maxAttempts int

	// maxAttemptsSet distinguishes an explicit --max-attempts 0 from the flag default
	maxAttemptsSet bool
}

func (o *generateOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.filename, "filename", "", "Context document (.md or .txt) passed to intent extraction")
	f.StringVar(&o.strategy, "strategy", "", "Generation strategy: compiler or llm (default from config)")
	f.StringVar(&o.format, "format", "", "Render format: svg, png or pdf (default from config)")
	f.StringVar(&o.outputDir, "output-dir", "", "Directory for the .dot source and rendered artifact")
	f.IntVar(&o.maxAttempts, "max-attempts", 0, "Maximum correction attempts, 0 disables correction (default from config)")
}

// captureChanged records which flags were set on the command line
func (o *generateOptions) captureChanged(cmd *cobra.Command) {
	o.maxAttemptsSet = cmd.Flags().Changed("max-attempts")
}

// apply copies the flags that were set onto cfg and revalidates it
func (o *generateOptions) apply(cfg *am.Config) error {
	if o.strategy != "" {
		cfg.Generation.Strategy = o.strategy
	}
	if o.format != "" {
		cfg.Render.Format = o.format
	}
	if o.outputDir != "" {
		cfg.Render.OutputDir = o.outputDir
	}
	if o.maxAttemptsSet {
		cfg.Generation.MaxAttempts = o.maxAttempts
	}
	return cfg.Validate()
}

func newGenerateCmd(app *App) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate <request> [output-name]",
		Short: "Generate one diagram from a natural-language request",
		Long: `Extract a graph from the request, generate DOT, validate and correct it,
then render <output-name>.dot and <output-name>.<format>.

Without an output name the files are named diagram_YYYYMMDD_HHMMSS.`,
		Example: `  diagen generate "three-tier web app with a postgres database"
  diagen generate "payment flow" payments --strategy llm --format png
  diagen generate "summarize the services" --filename docs/architecture.md`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, app, opts, args)
		},
	}
	opts.register(cmd)
	return cmd
}

func runGenerate(cmd *cobra.Command, app *App, opts *generateOptions, args []string) error {
	opts.captureChanged(cmd)
	cfg, _, err := app.loadConfig()
	if err != nil {
		return err
	}
	if err := opts.apply(cfg); err != nil {
		return err
	}

	req := pipeline.Request{Text: args[0]}
	if len(args) > 1 {
		req.BaseName = args[1]
	}
	if opts.filename != "" {
		if err := attachDocument(&req, opts.filename, app.Verbosity); err != nil {
			return err
		}
	}

	conn, err := openDatabase(cfg)
	if err != nil {
		logger.Warnw("History disabled for this run", logger.FieldError, err)
	}
	if conn != nil {
		defer conn.Close()
	}

	useJSON := app.jsonOutput(cmd)
	progress := newProgress(!useJSON && isTerminal(os.Stdout), app.Verbosity)
	st, err := buildStack(cfg, conn, progress)
	if err != nil {
		return err
	}
	if err := st.renderer.Available(); err != nil {
		return err
	}
	if logger.ShouldOutput(app.Verbosity, logger.OutputStartup) {
		display.Info("Provider: %s, strategy: %s, validator: %s, format: %s",
			st.provider, cfg.Generation.Strategy, cfg.Validator.Strategy, st.renderer.Format())
	}

	res, err := runOnce(cmd.Context(), st, req, progress)
	if useJSON {
		out := generateOutput{Result: res}
		if err != nil {
			out.Error = err.Error()
			out.Hints = display.Hints(err)
		}
		if jerr := display.OutputJSON(out); jerr != nil {
			return jerr
		}
		return err
	}
	if err != nil {
		return err
	}
	printResult(res, app.Verbosity)
	return nil
}

type generateOutput struct {
	Result *pipeline.Result `json:"result"`
	Error  string           `json:"error,omitempty"`
	Hints  []string         `json:"hints,omitempty"`
}

func attachDocument(req *pipeline.Request, path string, verbosity int) error {
	doc, err := docinput.ReadDocument(path)
	if err != nil {
		return err
	}
	req.Document = doc.Content
	req.DocumentPath = doc.Path
	if doc.Chunks > 1 {
		display.Warning("%s has %d lines; passing it as %d chunks", doc.Path, doc.Lines, doc.Chunks)
	} else if logger.ShouldOutput(verbosity, logger.OutputProgress) {
		display.Info("Attached %s (%d lines)", doc.Path, doc.Lines)
	}
	return nil
}

// runOnce runs the controller with the progress spinner around it
func runOnce(ctx context.Context, st *stack, req pipeline.Request, progress *progress) (*pipeline.Result, error) {
	progress.start()
	defer progress.stop()
	return st.controller.Generate(ctx, req)
}

func printResult(res *pipeline.Result, verbosity int) {
	display.Success("Success! Diagram saved to: %s", res.ArtifactPath)
	display.Info("Source code: %s", res.SourcePath)
	if logger.ShouldOutput(verbosity, logger.OutputTiming) {
		display.Info("Run %s: %d validation(s), %d correction(s) in %s",
			res.RunID, len(res.Attempts), res.Corrections, res.Duration.Round(time.Millisecond))
	}
	display.Tip("Open %s to view the diagram", res.ArtifactPath)
}

// progress turns pipeline events into spinner text and, at higher
// verbosity, per-attempt warnings
type progress struct {
	enabled   bool
	verbosity int
	spinner   *display.Spinner
}

func newProgress(enabled bool, verbosity int) *progress {
	return &progress{enabled: enabled, verbosity: verbosity, spinner: &display.Spinner{}}
}

func (p *progress) start() {
	p.spinner = display.StartSpinner(p.enabled, "Extracting intent...")
}

func (p *progress) stop() { p.spinner.Stop() }

// OnEvent implements pipeline.Observer
func (p *progress) OnEvent(ev pipeline.Event) {
	switch ev.State {
	case pipeline.StateExtractingIntent:
		p.spinner.Update("Extracting intent...")
	case pipeline.StateGenerating:
		p.spinner.Update("Generating diagram code...")
	case pipeline.StateValidating:
		p.spinner.Update("Validating syntax...")
	case pipeline.StateCorrecting:
		if logger.ShouldOutput(p.verbosity, logger.OutputAttempts) {
			display.Warning("Attempt %d failed validation: %s", ev.Attempt, ev.Message)
		}
		p.spinner.Update("Correcting syntax errors (attempt " + strconv.Itoa(ev.Attempt+1) + ")...")
	case pipeline.StateRendering:
		p.spinner.Update("Rendering...")
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
