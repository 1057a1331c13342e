package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenjpais/diagram-generator/display"
	"github.com/kenjpais/diagram-generator/history"
)

func newHistoryCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generations",
		Long:  `List recent pipeline runs from the history database, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig()
			if err != nil {
				return err
			}
			conn, err := requireDatabase(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			runs, err := history.NewStore(conn).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if app.jsonOutput(cmd) {
				if runs == nil {
					runs = []history.Generation{}
				}
				return display.OutputJSON(runs)
			}
			if len(runs) == 0 {
				display.Info("No generations recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, g := range runs {
				outcome := g.ArtifactPath
				if g.Error != "" {
					outcome = truncate(g.Error, 60)
				}
				rows = append(rows, []string{
					g.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					g.Status,
					truncate(g.Request, 40),
					g.Strategy,
					strconv.Itoa(g.Attempts),
					g.Duration.Round(time.Millisecond).String(),
					outcome,
				})
			}
			return display.Table([]string{"When", "Status", "Request", "Strategy", "Corrections", "Duration", "Output"}, rows)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", history.DefaultListLimit, "Number of runs to show")
	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
