// Package display holds the console conventions shared by diagen commands:
// pterm status lines, tables, spinners and JSON output.
package display

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kenjpais/diagram-generator/errors"
)

// EnvJSON forces JSON output when set to a true value
const EnvJSON = "DIAGEN_JSON"

// MachineEnvironment reports whether output should default to JSON
func MachineEnvironment() bool {
	v, err := strconv.ParseBool(os.Getenv(EnvJSON))
	return err == nil && v
}

// ShouldOutputJSON determines if a command should output JSON based on flags and environment
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return MachineEnvironment()
	}

	// Check if --json flag was explicitly set
	if cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}

	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
		return true
	}

	return MachineEnvironment()
}

// OutputJSON marshals and prints JSON using display.MarshalJSON
func OutputJSON(v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}
