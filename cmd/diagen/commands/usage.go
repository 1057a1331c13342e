package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/kenjpais/diagram-generator/ai/tracker"
	"github.com/kenjpais/diagram-generator/display"
	"github.com/kenjpais/diagram-generator/errors"
)

type usageReport struct {
	Since      time.Time                    `json:"since"`
	Stats      *tracker.UsageStats          `json:"stats"`
	Models     []tracker.ModelBreakdown     `json:"models"`
	Operations []tracker.OperationBreakdown `json:"operations"`
}

func newUsageCmd(app *App) *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show LLM token usage and estimated cost",
		Long:  `Summarize recorded LLM calls: totals, a per-model breakdown and a per-operation breakdown.`,
		Example: `  diagen usage
  diagen usage --since 168h --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if since <= 0 {
				return errors.NewInvalidRequestError("--since must be positive, got %s", since)
			}
			cfg, _, err := app.loadConfig()
			if err != nil {
				return err
			}
			conn, err := requireDatabase(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx := cmd.Context()
			t := tracker.NewUsageTracker(conn)
			report := usageReport{Since: time.Now().Add(-since)}
			if report.Stats, err = t.GetUsageStats(ctx, report.Since); err != nil {
				return err
			}
			if report.Models, err = t.GetModelBreakdown(ctx, report.Since); err != nil {
				return err
			}
			if report.Operations, err = t.GetOperationBreakdown(ctx, report.Since); err != nil {
				return err
			}

			if app.jsonOutput(cmd) {
				return display.OutputJSON(report)
			}
			printUsage(report, since)
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Look-back window")
	return cmd
}

func printUsage(r usageReport, window time.Duration) {
	s := r.Stats
	pterm.DefaultSection.Printfln("LLM usage (last %s)", window)
	pterm.Printfln("  Requests:     %d (%.1f%% successful)", s.TotalRequests, s.SuccessRate*100)
	pterm.Printfln("  Tokens:       %d", s.TotalTokens)
	pterm.Printfln("  Cost (USD):   %.4f", s.TotalCost)
	pterm.Printfln("  Models used:  %d", s.UniqueModels)
	if s.TotalRequests == 0 {
		return
	}

	pterm.DefaultSection.Println("By model")
	rows := make([][]string, 0, len(r.Models))
	for _, m := range r.Models {
		avg := "-"
		if m.AvgResponseTimeMs != nil {
			avg = fmt.Sprintf("%.0fms", *m.AvgResponseTimeMs)
		}
		rows = append(rows, []string{m.ModelProvider, m.ModelName, strconv.Itoa(m.RequestCount),
			strconv.Itoa(m.TotalTokens), fmt.Sprintf("%.4f", m.TotalCost), avg})
	}
	if err := display.Table([]string{"Provider", "Model", "Requests", "Tokens", "Cost", "Avg latency"}, rows); err != nil {
		display.Error(err)
	}

	pterm.DefaultSection.Println("By operation")
	rows = rows[:0]
	for _, o := range r.Operations {
		rows = append(rows, []string{o.OperationType, strconv.Itoa(o.RequestCount), strconv.Itoa(o.FailedCount),
			strconv.Itoa(o.TotalTokens), fmt.Sprintf("%.4f", o.TotalCost)})
	}
	if err := display.Table([]string{"Operation", "Requests", "Failed", "Tokens", "Cost"}, rows); err != nil {
		display.Error(err)
	}
}
