package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/studyflow-api/internal/dto"
	"github.com/noah-isme/studyflow-api/internal/models"
	"github.com/noah-isme/studyflow-api/internal/service"
)

var syncSource string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull assignments from connected LMS sources once",
	Long:  "Runs one sync pass for every connected source with auto-sync on, or only --source when given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, c *container) error {
			results, err := runSync(ctx, c.syncer, syncSource)
			if err != nil {
				return err
			}
			printSyncSummary(cmd, dto.NewSyncSummary(results))
			return nil
		})
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncSource, "source", "", "only sync this source (canvas, google_classroom)")
}

func runSync(ctx context.Context, syncer service.SyncService, raw string) ([]dto.SyncResult, error) {
	if strings.TrimSpace(raw) == "" {
		return syncer.SyncAll(ctx, service.TriggerManual)
	}

	source, ok := models.ParseSource(raw)
	if !ok || source == models.SourceManual {
		return nil, fmt.Errorf("unknown source %q", raw)
	}
	result, err := syncer.SyncSource(ctx, source, service.TriggerManual)
	if err != nil {
		return nil, err
	}
	return []dto.SyncResult{result}, nil
}

func printSyncSummary(cmd *cobra.Command, summary dto.SyncSummary) {
	out := cmd.OutOrStdout()
	if len(summary.Results) == 0 {
		fmt.Fprintln(out, "No connected sources with auto-sync enabled.")
		return
	}

	fmt.Fprintf(out, "%-18s %-8s %-8s %-8s %s\n", "SOURCE", "FETCHED", "INSERTED", "SKIPPED", "STATUS")
	fmt.Fprintln(out, strings.Repeat("-", 60))
	for _, result := range summary.Results {
		status := "ok"
		if !result.Success {
			status = "failed: " + result.Error
		}
		fmt.Fprintf(out, "%-18s %-8d %-8d %-8d %s\n", result.Source, result.Fetched, result.Inserted, result.Skipped, status)
	}
	fmt.Fprintf(out, "\n%d inserted, %d skipped\n", summary.Inserted, summary.Skipped)
}
