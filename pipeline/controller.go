// Package pipeline drives one diagram request through intent extraction,
// generation, the validate/correct loop and rendering.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kenjpais/diagram-generator/compiler"
	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/graph"
	"github.com/kenjpais/diagram-generator/history"
	"github.com/kenjpais/diagram-generator/logger"
	"github.com/kenjpais/diagram-generator/validate"
)

// DefaultMaxAttempts applies when Options.MaxAttempts is negative.
// Zero is a valid budget: one validation, no corrections.
const DefaultMaxAttempts = 3

// IntentExtractor turns a request into a graph model
type IntentExtractor interface {
	Extract(ctx context.Context, request, document string) (*graph.Model, error)
}

// Generator produces the first DOT source for a model
type Generator interface {
	Generate(ctx context.Context, m *graph.Model) (string, error)
}

// Corrector repairs DOT source that failed validation
type Corrector interface {
	Correct(ctx context.Context, m *graph.Model, flawed, errMsg string) (string, error)
}

// Renderer writes the source and the rendered artifact
type Renderer interface {
	Render(ctx context.Context, source, baseName string) (artifactPath, sourcePath string, err error)
}

// Recorder persists one record per run
type Recorder interface {
	Save(ctx context.Context, g *history.Generation) error
}

// CompilerGenerator generates DOT deterministically from the model
type CompilerGenerator struct{}

// Generate compiles m. It never fails.
func (CompilerGenerator) Generate(_ context.Context, m *graph.Model) (string, error) {
	return compiler.Compile(m), nil
}

// Options configures a Controller
type Options struct {
	IntentExtractor IntentExtractor
	Generator       Generator
	Validator       validate.Validator
	Corrector       Corrector
	Renderer        Renderer

	MaxAttempts int
	Strategy    string // recorded in history only
	Format      string // recorded in history only

	Logger   *zap.SugaredLogger
	Recorder Recorder
	Observer Observer
}

// Request is one diagram request
type Request struct {
	Text         string
	Document     string
	DocumentPath string
	BaseName     string
}

// Attempt is one validated source
type Attempt struct {
	Number int    `json:"number"`
	Source string `json:"source"`
	Valid  bool   `json:"valid"`
	Error  string `json:"error,omitempty"`
}

// Result describes a finished run. On failure it is still returned with
// whatever stages completed.
type Result struct {
	RunID        string        `json:"run_id"`
	Model        *graph.Model  `json:"model,omitempty"`
	Source       string        `json:"source,omitempty"`
	ArtifactPath string        `json:"artifact_path,omitempty"`
	SourcePath   string        `json:"source_path,omitempty"`
	Attempts     []Attempt     `json:"attempts"`
	Corrections  int           `json:"corrections"`
	Duration     time.Duration `json:"duration"`
}

// Controller runs requests. It holds no per-request state and may be reused.
type Controller struct {
	opts   Options
	logger *zap.SugaredLogger
}

// New validates the collaborators and returns a Controller
func New(opts Options) (*Controller, error) {
	switch {
	case opts.IntentExtractor == nil:
		return nil, errors.NewInvalidRequestError("pipeline requires an intent extractor")
	case opts.Generator == nil:
		return nil, errors.NewInvalidRequestError("pipeline requires a generator")
	case opts.Validator == nil:
		return nil, errors.NewInvalidRequestError("pipeline requires a validator")
	case opts.Corrector == nil:
		return nil, errors.NewInvalidRequestError("pipeline requires a corrector")
	case opts.Renderer == nil:
		return nil, errors.NewInvalidRequestError("pipeline requires a renderer")
	}
	if opts.MaxAttempts < 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{opts: opts, logger: log}, nil
}

// MaxAttempts returns the correction bound in effect
func (c *Controller) MaxAttempts() int { return c.opts.MaxAttempts }

// run carries the state of a single Generate call
type run struct {
	*Controller
	ctx     context.Context
	log     *zap.SugaredLogger
	res     *Result
	attempt int
}

// Generate runs one request to completion.
func (c *Controller) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)

	r := &run{
		Controller: c,
		ctx:        ctx,
		log:        c.logger.With(logger.FieldRunID, runID),
		res:        &Result{RunID: runID},
	}
	err := r.execute(req)
	r.res.Duration = time.Since(start)
	r.res.Corrections = r.attempt

	if err != nil {
		r.emit(StateFailed, err.Error())
		r.log.Errorw("Generation failed",
			logger.FieldError, err,
			logger.FieldAttempt, r.attempt,
			logger.FieldDurationMS, r.res.Duration.Milliseconds(),
		)
	} else {
		r.emit(StateSucceeded, "")
		r.log.Infow("Generation succeeded",
			logger.FieldFile, r.res.ArtifactPath,
			logger.FieldAttempt, r.attempt,
			logger.FieldDurationMS, r.res.Duration.Milliseconds(),
		)
	}
	r.record(req, err)
	return r.res, err
}

func (r *run) execute(req Request) error {
	if err := r.checkpoint(StateExtractingIntent); err != nil {
		return err
	}
	m, err := r.opts.IntentExtractor.Extract(r.ctx, req.Text, req.Document)
	if err != nil {
		if ctxErr := r.ctx.Err(); ctxErr != nil {
			return errors.Wrap(ctxErr, "intent extraction cancelled")
		}
		if !errors.Is(err, errors.ErrExtraction) {
			err = errors.Mark(err, errors.ErrExtraction)
		}
		return err
	}
	r.res.Model = m
	groups, comps, rels := m.Stats()
	r.log.Infow("Intent extracted", "title", m.Title, "groups", groups, "components", comps, "relationships", rels)

	if err := r.checkpoint(StateGenerating); err != nil {
		return err
	}
	source, err := r.opts.Generator.Generate(r.ctx, m)
	if err != nil {
		return errors.Wrap(err, "generation failed")
	}

	for {
		if err := r.checkpoint(StateValidating); err != nil {
			return err
		}
		res := r.opts.Validator.Validate(source)
		r.res.Attempts = append(r.res.Attempts, Attempt{
			Number: r.attempt,
			Source: source,
			Valid:  res.Valid,
			Error:  res.Error,
		})
		r.res.Source = source
		if res.Valid {
			break
		}
		r.log.Infow("Validation failed", logger.FieldAttempt, r.attempt, logger.FieldMax, r.opts.MaxAttempts, logger.FieldError, res.Error)
		if r.attempt >= r.opts.MaxAttempts {
			return &MaxRetriesExceededError{Attempts: r.attempt, LastError: res.Error}
		}

		if err := r.checkpointMsg(StateCorrecting, res.Error); err != nil {
			return err
		}
		corrected, err := r.opts.Corrector.Correct(r.ctx, m, source, res.Error)
		switch {
		case err != nil:
			if ctxErr := r.ctx.Err(); ctxErr != nil {
				return errors.Wrap(ctxErr, "correction cancelled")
			}
			if !errors.Is(err, errors.ErrCorrection) {
				err = errors.Mark(err, errors.ErrCorrection)
			}
			r.log.Warnw("Correction failed, keeping previous source", logger.FieldAttempt, r.attempt, logger.FieldError, err)
		default:
			source = corrected
		}
		r.attempt++
	}

	if err := r.checkpoint(StateRendering); err != nil {
		return err
	}
	artifact, sourcePath, err := r.opts.Renderer.Render(r.ctx, source, req.BaseName)
	if err != nil {
		if !errors.IsRenderError(err) {
			err = errors.Mark(err, errors.ErrRender)
		}
		return err
	}
	r.res.ArtifactPath = artifact
	r.res.SourcePath = sourcePath
	return nil
}

func (r *run) checkpoint(s State) error {
	return r.checkpointMsg(s, "")
}

// checkpointMsg stops on a cancelled context, then announces the next state
func (r *run) checkpointMsg(s State, msg string) error {
	if err := r.ctx.Err(); err != nil {
		return errors.Wrapf(err, "cancelled before %s", s)
	}
	r.log.Debugw("State transition", logger.FieldState, string(s), logger.FieldAttempt, r.attempt)
	r.emit(s, msg)
	return nil
}

func (r *run) emit(s State, msg string) {
	if r.opts.Observer != nil {
		r.opts.Observer.OnEvent(Event{RunID: r.res.RunID, State: s, Attempt: r.attempt, Message: msg})
	}
}

func (r *run) record(req Request, runErr error) {
	if r.opts.Recorder == nil {
		return
	}
	g := &history.Generation{
		ID:           r.res.RunID,
		Request:      req.Text,
		DocumentPath: req.DocumentPath,
		Strategy:     r.opts.Strategy,
		Status:       history.StatusSucceeded,
		Attempts:     r.attempt,
		Validations:  len(r.res.Attempts),
		ArtifactPath: r.res.ArtifactPath,
		SourcePath:   r.res.SourcePath,
		Format:       r.opts.Format,
		Duration:     r.res.Duration,
	}
	if r.res.Model != nil {
		g.Title = r.res.Model.Title
	}
	if runErr != nil {
		g.Status = history.StatusFailed
		if errors.IsAny(runErr, context.Canceled, context.DeadlineExceeded) {
			g.Status = history.StatusCancelled
		}
		g.Error = runErr.Error()
	}
	if err := r.opts.Recorder.Save(context.WithoutCancel(r.ctx), g); err != nil {
		r.log.Warnw("Failed to record generation", logger.FieldError, err)
	}
}
