package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/kenjpais/diagram-generator/compiler"
	"github.com/kenjpais/diagram-generator/display"
)

var styleTables = []compiler.StyleTable{compiler.TableComponent, compiler.TableRelationship, compiler.TableGroup}

func newStylesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List the component, relationship and group style tables",
		Long:  `Show the DOT attributes the compiler uses for each type. Unknown types use "default".`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.jsonOutput(cmd) {
				out := make(map[string][]compiler.Entry, len(styleTables))
				for _, t := range styleTables {
					out[string(t)] = compiler.Entries(t)
				}
				return display.OutputJSON(out)
			}
			for _, t := range styleTables {
				pterm.DefaultSection.Printfln("%s types", t)
				var rows [][]string
				for _, e := range compiler.Entries(t) {
					rows = append(rows, []string{e.Type, e.Style})
				}
				if err := display.Table([]string{"Type", "Style"}, rows); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
