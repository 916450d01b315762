package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/studyflow-api/internal/dto"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the dashboard tiers and progress statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, c *container) error {
			dashboard, err := c.dashboard.GetDashboard(ctx)
			if err != nil {
				return err
			}
			printDashboard(cmd, dashboard)
			return nil
		})
	},
}

func printDashboard(cmd *cobra.Command, dashboard dto.DashboardResponse) {
	out := cmd.OutOrStdout()

	tiers := []struct {
		name  string
		items []dto.AssignmentResponse
	}{
		{"Overdue", dashboard.Overdue},
		{"High priority", dashboard.HighPriority},
		{"Coming up", dashboard.ComingUp},
		{"Long term", dashboard.LongTerm},
	}
	for _, tier := range tiers {
		fmt.Fprintf(out, "%s (%d)\n", tier.name, len(tier.items))
		for _, item := range tier.items {
			fmt.Fprintf(out, "  %-40s %-10s %s %s\n", shortTitle(item.Title), item.Subject, item.DueDate.Local().Format("2006-01-02"), item.DueTime)
		}
	}

	stats := dashboard.Stats
	fmt.Fprintf(out, "\nActive: %d  Completed: %d  Overdue: %d  High priority: %d  Done: %.0f%%\n",
		stats.TotalActive, stats.Completed, stats.Overdue, stats.HighPriority, stats.CompletionPercentage)
}

func shortTitle(title string) string {
	runes := []rune(title)
	if len(runes) > 38 {
		return string(runes[:35]) + "..."
	}
	return title
}

