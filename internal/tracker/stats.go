package tracker

import (
	"time"

	"github.com/noah-isme/studyflow-api/internal/models"
)

// Stats aggregates counts over the whole collection.
//
// HighPriority counts the stored priority field, not the time-based tier.
type Stats struct {
	TotalActive          int     `json:"total_active"`
	Completed            int     `json:"completed"`
	Overdue              int     `json:"overdue"`
	HighPriority         int     `json:"high_priority"`
	CompletionPercentage float64 `json:"completion_percentage"`
	Streak               int     `json:"streak"`
}

// ComputeStats counts pending and completed assignments at now.
func ComputeStats(assignments []models.Assignment, now time.Time) Stats {
	var stats Stats
	for _, assignment := range assignments {
		if assignment.Completed {
			stats.Completed++
			continue
		}

		stats.TotalActive++
		if assignment.IsPastDue(now) {
			stats.Overdue++
		}
		if assignment.Priority == models.PriorityHigh {
			stats.HighPriority++
		}
	}

	if total := stats.Completed + stats.TotalActive; total > 0 {
		stats.CompletionPercentage = float64(stats.Completed) / float64(total) * 100
	}

	// TODO: count consecutive days ending today that have at least one CompletedAt.
	stats.Streak = 0

	return stats
}
