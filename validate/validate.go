// Package validate checks DOT source for structural well-formedness.
//
// Three interchangeable strategies satisfy Validator:
//
//	Parser     full DOT grammar via gographviz (default)
//	Heuristic  keyword + brace balance only; accepts many invalid inputs
//	Dot        asks the graphviz binary itself (dot -Tdot)
//
// None of them panic or return errors: the outcome is always a Result.
package validate

import (
	"strings"
	"time"

	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/internal/graphviz"
)

// Result is the outcome of one validation.
type Result struct {
	Valid bool
	Error string
}

// Ok is the valid result.
var Ok = Result{Valid: true}

// Invalid builds a failing result.
func Invalid(msg string) Result {
	return Result{Valid: false, Error: msg}
}

// Validator checks DOT source.
type Validator interface {
	Validate(src string) Result
}

// Func adapts a plain function to Validator.
type Func func(src string) Result

func (f Func) Validate(src string) Result { return f(src) }

// Strategy names accepted by New and by validator.strategy config.
const (
	StrategyAuto      = "auto"
	StrategyParser    = "parser"
	StrategyHeuristic = "heuristic"
	StrategyDot       = "dot"
)

// Strategies lists the accepted strategy names.
var Strategies = []string{StrategyAuto, StrategyParser, StrategyHeuristic, StrategyDot}

// Options configure strategies that need them.
type Options struct {
	DotBinary  string
	DotTimeout time.Duration
}

// New resolves a strategy name. auto selects the parser, which is always linked in.
func New(strategy string, opts Options) (Validator, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyAuto, StrategyParser:
		return Parser{}, nil
	case StrategyHeuristic:
		return Heuristic{}, nil
	case StrategyDot:
		timeout := opts.DotTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return Dot{Runner: graphviz.Runner{Binary: opts.DotBinary, Timeout: timeout}}, nil
	default:
		return nil, errors.NewInvalidRequestError("unknown validator strategy %q (valid: %s)",
			strategy, strings.Join(Strategies, ", "))
	}
}
