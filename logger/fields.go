package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging.
// Use these constants instead of raw strings.
const (
	FieldRunID     = "run_id"
	FieldComponent = "component"
	FieldState     = "state"
	FieldAttempt   = "attempt"
	FieldMax       = "max_attempts"

	FieldProvider = "provider"
	FieldModel    = "model"
	FieldTokens   = "tokens"

	FieldDurationMS = "duration_ms"
	FieldError      = "error"

	FieldFile   = "file"
	FieldFormat = "format"
	FieldBinary = "binary"
	FieldSize   = "size"
)

type contextKey string

const runIDKey contextKey = "logger_run_id"

// WithRunID adds a pipeline run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the run ID stored by WithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}
	if id := RunIDFromContext(ctx); id != "" {
		fields = append(fields, FieldRunID, id)
	}
	return fields
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection:
//
//	logger.ComponentLogger("pipeline")
func ComponentLogger(name string) *zap.SugaredLogger {
	return current().Named(name)
}

// ChildLogger creates a child logger with additional context.
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
