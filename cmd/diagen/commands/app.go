package commands

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/kenjpais/diagram-generator/agent"
	"github.com/kenjpais/diagram-generator/ai/provider"
	"github.com/kenjpais/diagram-generator/ai/tracker"
	"github.com/kenjpais/diagram-generator/am"
	"github.com/kenjpais/diagram-generator/db"
	"github.com/kenjpais/diagram-generator/display"
	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/history"
	"github.com/kenjpais/diagram-generator/logger"
	"github.com/kenjpais/diagram-generator/pipeline"
	"github.com/kenjpais/diagram-generator/prompt"
	"github.com/kenjpais/diagram-generator/render"
	"github.com/kenjpais/diagram-generator/validate"
)

// App carries the global flags shared by every command
type App struct {
	Verbosity  int
	JSON       bool
	ConfigFile string
}

func (a *App) jsonOutput(cmd *cobra.Command) bool {
	return a.JSON || display.ShouldOutputJSON(cmd)
}

func (a *App) loader() *am.Loader {
	return am.NewLoader(am.LoadOptions{ConfigFile: a.ConfigFile})
}

// loadConfig reads and validates the configuration
func (a *App) loadConfig() (*am.Config, *am.Loader, error) {
	l := a.loader()
	cfg, err := l.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.WithHint(err, "run 'diagen config validate' for details")
	}
	return cfg, l, nil
}

// openDatabase opens and migrates the history/usage store. It returns nil
// when the database is disabled.
func openDatabase(cfg *am.Config) (*sql.DB, error) {
	if !cfg.Database.Enabled {
		return nil, nil
	}
	path := cfg.GetDatabasePath()
	conn, err := db.OpenWithMigrations(path, logger.ComponentLogger("db"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", path)
	}
	return conn, nil
}

// requireDatabase is openDatabase for commands that cannot work without it
func requireDatabase(cfg *am.Config) (*sql.DB, error) {
	if !cfg.Database.Enabled {
		return nil, errors.WithHint(errors.Wrap(errors.ErrNotConfigured, "database is disabled"),
			"run 'diagen config set database.enabled true'")
	}
	return openDatabase(cfg)
}

// stack is everything a generation needs, built from one Config
type stack struct {
	controller *pipeline.Controller
	renderer   *render.Renderer
	provider   string
}

// buildStack wires providers, prompts, validator, renderer and history into
// a pipeline.Controller. conn may be nil.
func buildStack(cfg *am.Config, conn *sql.DB, observer pipeline.Observer) (*stack, error) {
	var usage *tracker.UsageTracker
	var recorder pipeline.Recorder
	if conn != nil {
		usage = tracker.NewUsageTracker(conn)
		recorder = history.NewStore(conn)
	}

	prompts, err := prompt.NewLoader(cfg.Generation.PromptsDir).LoadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load prompts")
	}

	log := logger.ComponentLogger("agent")
	client, err := provider.NewFromConfig(cfg, provider.Options{Tracker: usage, Logger: logger.ComponentLogger("ai")})
	if err != nil {
		return nil, err
	}

	var generator pipeline.Generator = pipeline.CompilerGenerator{}
	if cfg.Generation.Strategy == am.StrategyLLM {
		codegen, err := provider.NewFromConfig(cfg, provider.Options{Tracker: usage, Logger: logger.ComponentLogger("ai"), Codegen: true})
		if err != nil {
			return nil, errors.Wrap(err, "code generation provider")
		}
		generator = agent.NewCodeGenerator(codegen, prompts[prompt.CodeGeneration], log)
	}

	validator, err := validate.New(cfg.Validator.Strategy, validate.Options{
		DotBinary:  cfg.Render.Binary,
		DotTimeout: cfg.RenderTimeout(),
	})
	if err != nil {
		return nil, err
	}

	renderer, err := render.New(render.Config{
		Binary:    cfg.Render.Binary,
		Format:    cfg.Render.Format,
		OutputDir: cfg.Render.OutputDir,
		Timeout:   cfg.RenderTimeout(),
		Logger:    logger.ComponentLogger("render"),
	})
	if err != nil {
		return nil, err
	}

	controller, err := pipeline.New(pipeline.Options{
		IntentExtractor: agent.NewIntentExtractor(client, prompts[prompt.IntentExtraction], cfg.Generation.DefaultTitle, log),
		Generator:       generator,
		Validator:       validator,
		Corrector:       agent.NewCorrector(client, prompts[prompt.ErrorCorrection], log),
		Renderer:        renderer,
		MaxAttempts:     cfg.Generation.MaxAttempts,
		Strategy:        cfg.Generation.Strategy,
		Format:          renderer.Format(),
		Logger:          logger.ComponentLogger("pipeline"),
		Recorder:        recorder,
		Observer:        observer,
	})
	if err != nil {
		return nil, err
	}
	return &stack{controller: controller, renderer: renderer, provider: cfg.LLM.Provider}, nil
}
