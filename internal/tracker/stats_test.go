package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/studyflow-api/internal/models"
)

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	assignments := []models.Assignment{
		{Title: "late", DueDate: now.Add(-time.Hour), Priority: models.PriorityLow},
		{Title: "urgent", DueDate: now.Add(48 * time.Hour), Priority: models.PriorityHigh},
		{Title: "far", DueDate: now.Add(30 * 24 * time.Hour), Priority: models.PriorityHigh},
		{Title: "done", DueDate: now.Add(-time.Hour), Priority: models.PriorityHigh, Completed: true},
	}

	stats := ComputeStats(assignments, now)

	assert.Equal(t, 3, stats.TotalActive)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 2, stats.HighPriority, "stored priority, not the time tier")
	assert.InDelta(t, 25.0, stats.CompletionPercentage, 0.001)
	assert.Zero(t, stats.Streak)
}

func TestComputeStatsWithoutCompletions(t *testing.T) {
	now := time.Now()
	stats := ComputeStats([]models.Assignment{
		{Title: "far but flagged", DueDate: now.Add(60 * 24 * time.Hour), Priority: models.PriorityHigh},
	}, now)

	assert.Equal(t, 1, stats.HighPriority)
	assert.Zero(t, stats.Overdue)
	assert.Zero(t, stats.CompletionPercentage)
}

func TestComputeStatsEmpty(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil, time.Now()))
}
