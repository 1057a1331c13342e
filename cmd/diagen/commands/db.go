package commands

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenjpais/diagram-generator/db"
	"github.com/kenjpais/diagram-generator/history"
)

func newDBCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the diagen database",
		Long: `Inspect the SQLite database that stores generation history and AI usage.

Examples:
  diagen db stats          # Show database statistics`,
	}
	cmd.AddCommand(newDBStatsCmd(app))
	return cmd
}

// dbStats is the JSON shape of db stats
type dbStats struct {
	Path        string         `json:"path"`
	SizeBytes   int64          `json:"size_bytes"`
	Migrations  []string       `json:"migrations"`
	Generations *history.Stats `json:"generations"`
}

func newDBStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Long:  "Display the database location, applied schema migrations and a summary of recorded generations.",
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

			out := dbStats{Path: cfg.GetDatabasePath()}
			if info, err := os.Stat(out.Path); err == nil {
				out.SizeBytes = info.Size()
			}
			if out.Migrations, err = db.AppliedVersions(conn); err != nil {
				return err
			}
			if out.Generations, err = history.NewStore(conn).Stats(cmd.Context()); err != nil {
				return err
			}

			if app.jsonOutput(cmd) {
				return writeFormatted(cmd.OutOrStdout(), "json", out)
			}
			printDBStats(cmd.OutOrStdout(), &out)
			return nil
		},
	}
}

func printDBStats(w io.Writer, s *dbStats) {
	fmt.Fprintln(w, "Database Statistics")
	fmt.Fprintln(w, strings.Repeat("━", 46))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Database Path:      %s\n", s.Path)
	fmt.Fprintf(w, "Size:               %s\n", humanBytes(s.SizeBytes))
	fmt.Fprintf(w, "Schema Migrations:  %s\n", strings.Join(s.Migrations, ", "))
	fmt.Fprintln(w)

	g := s.Generations
	fmt.Fprintf(w, "Generations:        %d\n", g.Total)
	if g.Total == 0 {
		fmt.Fprintln(w, "  No generations recorded yet")
		return
	}
	statuses := make([]string, 0, len(g.ByStatus))
	for status := range g.ByStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Fprintf(w, "  %-16s  %d\n", status+":", g.ByStatus[status])
	}
	fmt.Fprintf(w, "Avg Validations:    %.1f\n", g.AvgValidations)
	fmt.Fprintf(w, "Avg Duration:       %s\n", (time.Duration(g.AvgDurationMS) * time.Millisecond).Round(time.Millisecond))
	if g.Last != nil {
		fmt.Fprintf(w, "Last Run:           %s\n", g.Last.Local().Format("2006-01-02 15:04:05"))
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
