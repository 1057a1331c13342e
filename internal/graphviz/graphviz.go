// Package graphviz runs the Graphviz `dot` binary with DOT source on stdin.
package graphviz

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/kenjpais/diagram-generator/errors"
)

// DefaultBinary is resolved through PATH.
const DefaultBinary = "dot"

// ErrNotFound means the binary could not be resolved.
var ErrNotFound = errors.New("graphviz binary not found")

// InstallHint is attached to ErrNotFound failures.
const InstallHint = "install graphviz:\n" +
	"  macOS: brew install graphviz\n" +
	"  Ubuntu/Debian: sudo apt-get install graphviz\n" +
	"  Windows: https://graphviz.org/download/"

// Runner invokes one Graphviz binary.
type Runner struct {
	Binary  string
	Timeout time.Duration
}

// Lookup resolves the binary on PATH.
func (r Runner) Lookup() (string, error) {
	path, err := exec.LookPath(r.binary())
	if err != nil {
		return "", errors.WithHint(errors.Wrapf(ErrNotFound, "%s", r.binary()), InstallHint)
	}
	return path, nil
}

// Run executes the binary with args, feeding input on stdin.
//
// A timeout yields an error matching context.DeadlineExceeded. A non-zero exit
// yields an error carrying trimmed stderr.
func (r Runner) Run(ctx context.Context, input string, args ...string) error {
	path, err := r.Lookup()
	if err != nil {
		return err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = strings.NewReader(input)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// children that inherit stderr must not hold Wait open past cancellation
	cmd.WaitDelay = time.Second

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrapf(ctxErr, "%s %s", r.binary(), strings.Join(args, " "))
	}
	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return errors.Newf("%s", msg)
	}
	return nil
}

func (r Runner) binary() string {
	if r.Binary == "" {
		return DefaultBinary
	}
	return r.Binary
}
