package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyflow-api/internal/dto"
	"github.com/noah-isme/studyflow-api/internal/models"
	"github.com/noah-isme/studyflow-api/internal/service"
)

type recordingSyncer struct {
	all     int
	sources []models.AssignmentSource
}

func (r *recordingSyncer) SyncAll(context.Context, service.SyncTrigger) ([]dto.SyncResult, error) {
	r.all++
	return []dto.SyncResult{{Source: "CANVAS", Fetched: 3, Inserted: 2, Skipped: 1, Success: true}}, nil
}

func (r *recordingSyncer) SyncSource(_ context.Context, source models.AssignmentSource, _ service.SyncTrigger) (dto.SyncResult, error) {
	r.sources = append(r.sources, source)
	return dto.SyncResult{Source: string(source), Success: false, Error: "timeout"}, nil
}

func TestRunSyncRoutesBySource(t *testing.T) {
	syncer := &recordingSyncer{}
	ctx := context.Background()

	results, err := runSync(ctx, syncer, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, syncer.all)

	_, err = runSync(ctx, syncer, "classroom")
	require.NoError(t, err)
	assert.Equal(t, []models.AssignmentSource{models.SourceGoogleClassroom}, syncer.sources)

	_, err = runSync(ctx, syncer, "manual")
	require.Error(t, err)
	_, err = runSync(ctx, syncer, "myspace")
	require.Error(t, err)
}

func TestPrintSyncSummary(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	printSyncSummary(cmd, dto.NewSyncSummary([]dto.SyncResult{
		{Source: "CANVAS", Fetched: 3, Inserted: 2, Skipped: 1, Success: true},
		{Source: "GOOGLE_CLASSROOM", Success: false, Error: "timeout"},
	}))
	assert.Contains(t, out.String(), "failed: timeout")
	assert.Contains(t, out.String(), "2 inserted, 1 skipped")

	out.Reset()
	printSyncSummary(cmd, dto.NewSyncSummary(nil))
	assert.Contains(t, out.String(), "No connected sources")
}

func TestPrintDashboard(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	printDashboard(cmd, dto.DashboardResponse{
		Overdue: []dto.AssignmentResponse{{Title: "A very long assignment title that keeps going on", Subject: "math", DueDate: time.Now(), DueTime: "23:59"}},
		Stats:   dto.StatsResponse{TotalActive: 1, Overdue: 1, CompletionPercentage: 50},
	})

	text := out.String()
	assert.Contains(t, text, "Overdue (1)")
	assert.Contains(t, text, "A very long assignment title that k...")
	assert.Contains(t, text, "Done: 50%")
}

func TestShortTitleCutsOnCharacters(t *testing.T) {
	title := strings.Repeat("é", 40)
	short := shortTitle(title)

	assert.True(t, utf8.ValidString(short))
	assert.Equal(t, strings.Repeat("é", 35)+"...", short)
	assert.Equal(t, "Lab report", shortTitle("Lab report"))
}

func TestSeedConnectionsFromConfig(t *testing.T) {
	c := &container{}
	assert.Empty(t, c.seedConnections())

	c.cfg.CanvasToken = "canvas-token"
	c.cfg.CanvasBaseURL = "https://canvas.example.edu"
	c.cfg.ClassroomToken = "classroom-token"
	seeds := c.seedConnections()
	require.Len(t, seeds, 2)
	assert.Equal(t, models.SourceCanvas, seeds[0].Source)
	assert.Equal(t, "https://canvas.example.edu", seeds[0].BaseURL)
	assert.Equal(t, models.SourceGoogleClassroom, seeds[1].Source)
}
