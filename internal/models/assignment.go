package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Priority is the stored urgency of an assignment.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ParsePriority accepts low/medium/high in any case.
func ParsePriority(value string) (Priority, bool) {
	switch Priority(strings.ToUpper(strings.TrimSpace(value))) {
	case PriorityLow:
		return PriorityLow, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityHigh:
		return PriorityHigh, true
	default:
		return "", false
	}
}

// AssignmentSource identifies where an assignment record came from.
type AssignmentSource string

const (
	SourceManual          AssignmentSource = "MANUAL"
	SourceCanvas          AssignmentSource = "CANVAS"
	SourceGoogleClassroom AssignmentSource = "GOOGLE_CLASSROOM"
	SourceBlackboard      AssignmentSource = "BLACKBOARD"
	SourceMoodle          AssignmentSource = "MOODLE"
)

// ParseSource resolves a source name such as "canvas" or "google_classroom".
func ParseSource(value string) (AssignmentSource, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch AssignmentSource(normalized) {
	case SourceManual, SourceCanvas, SourceGoogleClassroom, SourceBlackboard, SourceMoodle:
		return AssignmentSource(normalized), true
	}
	if normalized == "CLASSROOM" {
		return SourceGoogleClassroom, true
	}
	return "", false
}

const (
	DefaultDueTime = "23:59"
	DefaultColor   = "#667eea"
)

// Assignment is the canonical unit of schoolwork tracked by the service.
type Assignment struct {
	ID             uint                        `gorm:"primaryKey" json:"id"`
	Title          string                      `gorm:"size:255;not null;index:idx_assignment_dedup,priority:3" json:"title"`
	Description    string                      `gorm:"type:text" json:"description"`
	Subject        string                      `gorm:"size:64;index" json:"subject"`
	CourseName     string                      `gorm:"size:255;index:idx_assignment_dedup,priority:2" json:"course_name"`
	DueDate        time.Time                   `gorm:"not null;index" json:"due_date"`
	DueTime        string                      `gorm:"size:5" json:"due_time"`
	Completed      bool                        `gorm:"not null;index" json:"completed"`
	CompletedAt    *time.Time                  `json:"completed_at"`
	Priority       Priority                    `gorm:"size:16;not null" json:"priority"`
	CustomColor    string                      `gorm:"size:16" json:"custom_color"`
	Source         AssignmentSource            `gorm:"size:32;not null;index:idx_assignment_dedup,priority:1" json:"source"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	EstimatedHours float64                     `json:"estimated_hours"`
	ActualHours    float64                     `json:"actual_hours"`
	Tags           datatypes.JSONSlice[string] `json:"tags"`
	Attachments    datatypes.JSONSlice[string] `json:"attachments"`
	Notes          string                      `gorm:"type:text" json:"notes"`
}

// BeforeCreate fills defaults for fields left empty by callers.
func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.applyDefaults()
	return nil
}

// BeforeSave keeps the completion timestamp consistent with the flag.
// Timestamps are stored in UTC so range queries compare consistently.
func (a *Assignment) BeforeSave(tx *gorm.DB) error {
	a.applyDefaults()
	a.DueDate = a.DueDate.UTC()
	if !a.Completed {
		a.CompletedAt = nil
	} else if a.CompletedAt == nil {
		now := time.Now().UTC()
		a.CompletedAt = &now
	} else {
		stamp := a.CompletedAt.UTC()
		a.CompletedAt = &stamp
	}
	return nil
}

func (a *Assignment) applyDefaults() {
	if a.DueTime == "" {
		a.DueTime = DefaultDueTime
	}
	if a.Priority == "" {
		a.Priority = PriorityMedium
	}
	if a.CustomColor == "" {
		a.CustomColor = DefaultColor
	}
	if a.Source == "" {
		a.Source = SourceManual
	}
	a.Tags = cleanList(a.Tags)
	a.Attachments = cleanList(a.Attachments)
}

func cleanList(values []string) datatypes.JSONSlice[string] {
	cleaned := make(datatypes.JSONSlice[string], 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return a.DueDate.Before(reference)
}

// DedupKey identifies a synced assignment across fetches.
func (a Assignment) DedupKey() string {
	return string(a.Source) + "_" + a.CourseName + "_" + a.Title
}

// MarkCompleted flips the completion flag and keeps CompletedAt in step with it.
func (a *Assignment) MarkCompleted(completed bool, at time.Time) {
	a.Completed = completed
	if completed {
		stamp := at
		a.CompletedAt = &stamp
		return
	}
	a.CompletedAt = nil
}
