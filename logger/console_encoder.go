package logger

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorDim   = "\x1b[38;5;245m"
	colorName  = "\x1b[38;5;108m"
	colorKey   = "\x1b[38;5;109m"
	colorWarn  = "\x1b[1;38;5;214m"
	colorError = "\x1b[1;38;5;167m"
)

var bufferPool = buffer.NewPool()

// consoleEncoder writes compact single-line entries:
//
//	13:04:35  WARN  pipeline  validation failed  attempt=1 error="syntax error"
//
// Context fields (from With) come first sorted by key, then entry fields in call order.
type consoleEncoder struct {
	*zapcore.MapObjectEncoder
	color bool
}

func newConsoleEncoder(color bool) *consoleEncoder {
	return &consoleEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder(), color: color}
}

func (enc *consoleEncoder) Clone() zapcore.Encoder {
	clone := newConsoleEncoder(enc.color)
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return clone
}

func (enc *consoleEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := bufferPool.Get()

	enc.paint(line, colorDim, ent.Time.Format("15:04:05"))

	switch {
	case ent.Level >= zapcore.ErrorLevel:
		line.AppendString("  ")
		enc.paint(line, colorError, ent.Level.CapitalString())
	case ent.Level == zapcore.WarnLevel:
		line.AppendString("  ")
		enc.paint(line, colorWarn, "WARN")
	case ent.Level == zapcore.DebugLevel:
		line.AppendString("  ")
		enc.paint(line, colorDim, "DEBUG")
	}

	if ent.LoggerName != "" {
		line.AppendString("  ")
		enc.paint(line, colorName, ent.LoggerName)
	}

	line.AppendString("  ")
	line.AppendString(ent.Message)

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i == 0 {
			line.AppendString(" ")
		}
		enc.appendField(line, k, enc.Fields[k])
	}

	for i, f := range fields {
		if i == 0 && len(keys) == 0 {
			line.AppendString(" ")
		}
		m := zapcore.NewMapObjectEncoder()
		f.AddTo(m)
		// error fields also emit <key>Verbose with a stack; only the primary key is printed
		enc.appendField(line, f.Key, m.Fields[f.Key])
	}

	line.AppendString("\n")
	return line, nil
}

func (enc *consoleEncoder) appendField(line *buffer.Buffer, key string, value interface{}) {
	line.AppendString(" ")
	enc.paint(line, colorKey, key)
	line.AppendByte('=')
	line.AppendString(formatValue(value))
}

func (enc *consoleEncoder) paint(line *buffer.Buffer, color, s string) {
	if !enc.color {
		line.AppendString(s)
		return
	}
	line.AppendString(color)
	line.AppendString(s)
	line.AppendString(colorReset)
}

func formatValue(v interface{}) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
