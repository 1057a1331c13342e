package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Verbosity is the count of -v flags. It selects output categories
// (output.go) as well as the zap level.
const (
	VerbosityUser  = 0 // result and errors
	VerbosityInfo  = 1 // -v: stage progress, provider selection
	VerbosityDebug = 2 // -vv: attempt details, timing, config
	VerbosityTrace = 3 // -vvv: SQL, dot invocations
	VerbosityAll   = 4 // -vvvv: prompts and raw LLM responses
)

var levelNames = []string{"user", "info", "debug", "trace", "all"}

// VerbosityToLevel maps a -v count to the zap level: warn with no flag,
// info at -v, debug from -vv up.
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// LevelName describes a verbosity for the REPL banner and subtests,
// e.g. "debug (-vv)"
func LevelName(verbosity int) string {
	switch {
	case verbosity < 0:
		return "unknown"
	case verbosity == VerbosityUser:
		return levelNames[VerbosityUser]
	case verbosity > VerbosityAll:
		return levelNames[VerbosityAll] + " (-" + strings.Repeat("v", verbosity) + ")"
	default:
		return levelNames[verbosity] + " (-" + strings.Repeat("v", verbosity) + ")"
	}
}
