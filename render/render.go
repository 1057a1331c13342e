// Package render turns validated DOT source into an image with the graphviz
// binary. Each successful Render writes exactly two files into the output
// directory: <base>.dot holding the source verbatim, and <base>.<format>.
package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/internal/graphviz"
	"github.com/kenjpais/diagram-generator/logger"
)

// Supported output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// Formats is the closed set of output formats.
var Formats = []string{FormatSVG, FormatPNG, FormatPDF}

const (
	// DefaultTimeout bounds one dot invocation.
	DefaultTimeout = 30 * time.Second
	// DefaultOutputDir is relative to the working directory.
	DefaultOutputDir = "output"

	dirPerm  = 0755
	filePerm = 0644
)

// Config configures a Renderer.
type Config struct {
	Binary    string
	Format    string
	OutputDir string
	Timeout   time.Duration
	Logger    *zap.SugaredLogger
}

// Renderer writes diagrams to disk.
type Renderer struct {
	runner    graphviz.Runner
	format    string
	outputDir string
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// New validates the format and applies defaults.
func New(cfg Config) (*Renderer, error) {
	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.ComponentLogger("render")
	}
	return &Renderer{
		runner:    graphviz.Runner{Binary: cfg.Binary, Timeout: cfg.Timeout},
		format:    format,
		outputDir: cfg.OutputDir,
		logger:    cfg.Logger,
		now:       time.Now,
	}, nil
}

// ParseFormat normalizes a format name; "" means svg.
func ParseFormat(s string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	if f == "" {
		return FormatSVG, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.NewInvalidRequestError("unsupported render format %q (valid: %s)", s, strings.Join(Formats, ", "))
}

// DefaultBaseName is the timestamp-derived file stem, e.g. diagram_20240131_154502.
func DefaultBaseName(t time.Time) string {
	return "diagram_" + t.Format("20060102_150405")
}

// Format returns the configured output format.
func (r *Renderer) Format() string { return r.format }

// OutputDir returns the configured output directory.
func (r *Renderer) OutputDir() string { return r.outputDir }

// Available reports whether the graphviz binary can be found.
func (r *Renderer) Available() error {
	_, err := r.runner.Lookup()
	return err
}

// Render writes the source and the rendered artifact. On any failure the
// files written by this call are removed. Errors match errors.ErrRender;
// timeouts additionally match errors.ErrRenderTimeout.
func (r *Renderer) Render(ctx context.Context, source, baseName string) (artifactPath, sourcePath string, err error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	baseName = strings.TrimSpace(baseName)
	if baseName == "" {
		baseName = DefaultBaseName(r.now())
	}
	baseName = strings.TrimSuffix(baseName, "."+r.format)
	baseName = strings.TrimSuffix(baseName, ".dot")
	if baseName == "." || baseName == ".." || strings.ContainsAny(baseName, `/\`) {
		return "", "", errors.Mark(
			errors.NewInvalidRequestError("output name %q must be a plain file name", baseName), errors.ErrRender)
	}

	if err := os.MkdirAll(r.outputDir, dirPerm); err != nil {
		return "", "", errors.Mark(errors.Wrapf(err, "create output directory %s", r.outputDir), errors.ErrRender)
	}

	srcFile := filepath.Join(r.outputDir, baseName+".dot")
	outFile := filepath.Join(r.outputDir, baseName+"."+r.format)

	defer func() {
		if err != nil {
			_ = os.Remove(srcFile)
			_ = os.Remove(outFile)
		}
	}()

	if err := os.WriteFile(srcFile, []byte(source), filePerm); err != nil {
		return "", "", errors.Mark(errors.Wrapf(err, "write %s", srcFile), errors.ErrRender)
	}

	start := time.Now()
	runErr := r.runner.Run(ctx, source, "-T"+r.format, "-o", outFile)
	switch {
	case runErr == nil:
	case errors.Is(runErr, graphviz.ErrNotFound):
		return "", "", errors.Mark(runErr, errors.ErrRender)
	case errors.Is(runErr, context.DeadlineExceeded) && ctx.Err() == nil:
		return "", "", errors.NewRenderTimeoutError("rendering timed out after %s", r.runner.Timeout)
	case ctx.Err() != nil:
		return "", "", ctx.Err()
	default:
		return "", "", errors.Wrapf(errors.ErrRender, "rendering failed: %s", runErr.Error())
	}

	r.logger.Infow("Rendered diagram",
		logger.FieldFile, outFile,
		logger.FieldFormat, r.format,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return outFile, srcFile, nil
}
