package display

import (
	"strings"

	"github.com/pterm/pterm"

	"github.com/kenjpais/diagram-generator/errors"
)

// Success prints a green status line
func Success(format string, args ...interface{}) {
	pterm.Success.Printfln(format, args...)
}

// Info prints an informational status line
func Info(format string, args ...interface{}) {
	pterm.Info.Printfln(format, args...)
}

// Warning prints a warning status line
func Warning(format string, args ...interface{}) {
	pterm.Warning.Printfln(format, args...)
}

// Tip prints a "Tip:" line
func Tip(format string, args ...interface{}) {
	pterm.Println(pterm.LightCyan("Tip: ") + pterm.Sprintf(format, args...))
}

// Error prints err and every hint attached to it
func Error(err error) {
	if err == nil {
		return
	}
	pterm.Error.Println(err.Error())
	for _, hint := range Hints(err) {
		Tip("%s", hint)
	}
}

// Hints returns the de-duplicated user hints attached to err
func Hints(err error) []string {
	seen := make(map[string]bool)
	var out []string
	for _, h := range errors.GetAllHints(err) {
		for _, line := range strings.Split(h, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			out = append(out, line)
		}
	}
	return out
}

// Table renders a header row plus data rows
func Table(header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// Spinner wraps a pterm spinner that is a no-op when disabled
type Spinner struct {
	sp *pterm.SpinnerPrinter
}

// StartSpinner starts a spinner unless enabled is false
func StartSpinner(enabled bool, text string) *Spinner {
	if !enabled {
		return &Spinner{}
	}
	sp, err := pterm.DefaultSpinner.Start(text)
	if err != nil {
		return &Spinner{}
	}
	return &Spinner{sp: sp}
}

// Update replaces the spinner text
func (s *Spinner) Update(text string) {
	if s.sp != nil {
		s.sp.UpdateText(text)
	}
}

// Stop ends the spinner without a status line
func (s *Spinner) Stop() {
	if s.sp != nil {
		_ = s.sp.Stop()
		s.sp = nil
	}
}
