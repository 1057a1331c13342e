// Package logger wraps zap for diagen. Logs go to stderr so stdout stays
// free for DOT source and JSON results.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the process logger. It is a no-op until Initialize runs.
	Logger = zap.NewNop().Sugar()
	// JSONOutput records whether Initialize selected JSON logs
	JSONOutput bool
)

// Initialize replaces Logger according to the --json and -v flags.
// JSON logs use zap's production encoding; otherwise the compact console
// encoder is used, colored when stderr is a terminal.
func Initialize(jsonOutput bool, verbosity int) error {
	JSONOutput = jsonOutput
	level := VerbosityToLevel(verbosity)
	if jsonOutput {
		Logger = newJSON(os.Stderr, level)
		return nil
	}
	Logger = New(os.Stderr, isTerminal(os.Stderr), level)
	return nil
}

// New builds a console logger writing to w
func New(w io.Writer, color bool, level zapcore.Level) *zap.SugaredLogger {
	core := zapcore.NewCore(newConsoleEncoder(color), zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core).Sugar()
}

func newJSON(w io.Writer, level zapcore.Level) *zap.SugaredLogger {
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).Sugar()
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func current() *zap.SugaredLogger {
	if Logger == nil {
		return zap.NewNop().Sugar()
	}
	return Logger
}

// Cleanup flushes buffered entries before exit
func Cleanup() {
	_ = current().Sync()
}

func Infow(msg string, keysAndValues ...interface{}) {
	current().Infow(msg, keysAndValues...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	current().Warnw(msg, keysAndValues...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	current().Errorw(msg, keysAndValues...)
}

func Debugw(msg string, keysAndValues ...interface{}) {
	current().Debugw(msg, keysAndValues...)
}
