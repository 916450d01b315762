package dto

import (
	"time"

	"github.com/noah-isme/studyflow-api/internal/models"
	"github.com/noah-isme/studyflow-api/internal/tracker"
)

// DashboardResponse is the tiered overview of every assignment.
type DashboardResponse struct {
	GeneratedAt  time.Time            `json:"generated_at"`
	Overdue      []AssignmentResponse `json:"overdue"`
	HighPriority []AssignmentResponse `json:"high_priority"`
	ComingUp     []AssignmentResponse `json:"coming_up"`
	LongTerm     []AssignmentResponse `json:"long_term"`
	Completed    []AssignmentResponse `json:"completed"`
	Stats        StatsResponse        `json:"stats"`
}

// StatsResponse summarises progress across the collection.
type StatsResponse struct {
	TotalActive          int     `json:"total_active"`
	Completed            int     `json:"completed"`
	Overdue              int     `json:"overdue"`
	HighPriority         int     `json:"high_priority"`
	CompletionPercentage float64 `json:"completion_percentage"`
	Streak               int     `json:"streak"`
}

// NewStatsResponse converts computed stats into a DTO.
func NewStatsResponse(stats tracker.Stats) StatsResponse {
	return StatsResponse{
		TotalActive:          stats.TotalActive,
		Completed:            stats.Completed,
		Overdue:              stats.Overdue,
		HighPriority:         stats.HighPriority,
		CompletionPercentage: stats.CompletionPercentage,
		Streak:               stats.Streak,
	}
}

// NewDashboardResponse assembles tiers, the completed view and stats.
func NewDashboardResponse(tiers tracker.Tiers, completed []models.Assignment, stats tracker.Stats, generatedAt time.Time) DashboardResponse {
	return DashboardResponse{
		GeneratedAt:  generatedAt,
		Overdue:      NewAssignmentResponseSlice(tiers.Overdue),
		HighPriority: NewAssignmentResponseSlice(tiers.HighPriority),
		ComingUp:     NewAssignmentResponseSlice(tiers.ComingUp),
		LongTerm:     NewAssignmentResponseSlice(tiers.LongTerm),
		Completed:    NewAssignmentResponseSlice(completed),
		Stats:        NewStatsResponse(stats),
	}
}
