package display

import (
	"bytes"
	"encoding/json"
)

// MarshalJSON encodes v for command output: compact for machines, indented
// for people. HTML escaping is off so DOT edges stay readable as "->".
func MarshalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if !MachineEnvironment() {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
