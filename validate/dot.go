package validate

import (
	"context"
	"runtime"

	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/internal/graphviz"
)

// Dot validates by running the graphviz binary and discarding its output.
type Dot struct {
	Runner graphviz.Runner
}

func (d Dot) Validate(src string) Result {
	err := d.Runner.Run(context.Background(), src, "-Tdot", "-o", nullDevice())
	switch {
	case err == nil:
		return Ok
	case errors.Is(err, graphviz.ErrNotFound):
		return Invalid("Graphviz 'dot' command not found")
	case errors.Is(err, context.DeadlineExceeded):
		return Invalid("Validation timed out")
	default:
		return Invalid(err.Error())
	}
}

func nullDevice() string {
	if runtime.GOOS == "windows" {
		return "NUL"
	}
	return "/dev/null"
}
