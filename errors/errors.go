// Package errors provides error handling for diagen.
//
// This package re-exports github.com/cockroachdb/errors, providing stack
// traces, wrapping, user hints and sentinel marking. On top of that it
// defines the diagram pipeline's error taxonomy:
//
//	ErrSchema         graph JSON is missing a required field or has the wrong type
//	ErrExtraction     the intent extractor could not produce a graph
//	ErrMaxRetries     the repair loop exhausted its attempt budget
//	ErrRender         the renderer failed after validation
//	ErrRenderTimeout  the renderer exceeded its wall-clock budget (also matches ErrRender)
//	ErrCorrection     the corrector failed; logged by the pipeline, never returned
//
// Usage:
//
//	if errors.Is(err, errors.ErrMaxRetries) {
//	    // report last validator error
//	}
//
//	return errors.WithHint(err, "install graphviz: brew install graphviz")
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// Diagram pipeline sentinels. Wrap these to add context; errors.Is still matches.
var (
	// ErrSchema indicates graph input failed required-field or type checks
	ErrSchema = New("schema error")

	// ErrExtraction indicates intent extraction produced no usable graph
	ErrExtraction = New("intent extraction failed")

	// ErrMaxRetries indicates the validate/correct loop ran out of attempts
	ErrMaxRetries = New("max retries exceeded")

	// ErrRender indicates the external renderer failed
	ErrRender = New("render failed")

	// ErrRenderTimeout indicates the external renderer exceeded its timeout
	ErrRenderTimeout = New("render timed out")

	// ErrCorrection indicates the LLM corrector itself failed
	ErrCorrection = New("correction failed")

	// ErrInvalidRequest indicates the caller supplied bad input (empty request, unknown format)
	ErrInvalidRequest = New("invalid request")

	// ErrNotConfigured indicates a provider is missing credentials or endpoint
	ErrNotConfigured = New("not configured")
)

// IsRenderError reports whether err is a render failure of any kind, timeouts included.
func IsRenderError(err error) bool {
	return err != nil && IsAny(err, ErrRender, ErrRenderTimeout)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}

// NewRenderTimeoutError builds an error matching both ErrRenderTimeout and ErrRender.
func NewRenderTimeoutError(format string, args ...interface{}) error {
	return Mark(Wrap(ErrRenderTimeout, Newf(format, args...).Error()), ErrRender)
}
