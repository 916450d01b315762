package lms

import (
	"strings"
	"time"

	"github.com/noah-isme/studyflow-api/internal/models"
)

// Thresholds are the inclusive whole-day cut-offs used to infer priority.
type Thresholds struct {
	HighDays   int64
	MediumDays int64
}

var (
	CanvasThresholds    = Thresholds{HighDays: 3, MediumDays: 7}
	ClassroomThresholds = Thresholds{HighDays: 4, MediumDays: 20}
)

const subjectOther = "other"

// Order matters: the first subject whose keyword appears wins.
var subjectKeywords = []struct {
	subject  string
	keywords []string
}{
	{"math", []string{"math", "algebra", "calculus", "geometry"}},
	{"science", []string{"science", "biology", "chemistry", "physics"}},
	{"english", []string{"english", "literature", "writing"}},
	{"history", []string{"history", "social"}},
	{"art", []string{"art", "music", "drama"}},
	{"computer", []string{"computer", "programming", "coding"}},
}

var subjectColors = map[string]string{
	"math":     "#ef4444",
	"science":  "#10b981",
	"english":  "#8b5cf6",
	"history":  "#f59e0b",
	"art":      "#ec4899",
	"computer": "#06b6d4",
}

// DetermineSubject maps a course name to a subject bucket by substring match.
func DetermineSubject(courseName string) string {
	name := strings.ToLower(courseName)
	for _, entry := range subjectKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(name, keyword) {
				return entry.subject
			}
		}
	}
	return subjectOther
}

// SubjectColor returns the display colour of a subject bucket.
func SubjectColor(subject string) string {
	if color, ok := subjectColors[subject]; ok {
		return color
	}
	return models.DefaultColor
}

// InferPriority derives priority from the whole days remaining until due.
// Anything already past due is HIGH.
func InferPriority(due, now time.Time, thresholds Thresholds) models.Priority {
	days := int64(due.Sub(now) / (24 * time.Hour))
	switch {
	case days < 0:
		return models.PriorityHigh
	case days <= thresholds.HighDays:
		return models.PriorityHigh
	case days <= thresholds.MediumDays:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// Normalizer turns raw LMS fields into canonical assignments.
type Normalizer struct {
	Source     models.AssignmentSource
	Thresholds Thresholds
	Location   *time.Location
	Now        func() time.Time
}

// Assignment builds the canonical record for one fetched item.
func (n Normalizer) Assignment(courseName, title, description string, due time.Time) models.Assignment {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}

	loc := n.Location
	if loc == nil {
		loc = time.Local
	}

	subject := DetermineSubject(courseName)
	return models.Assignment{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Subject:     subject,
		CourseName:  courseName,
		DueDate:     due,
		DueTime:     due.In(loc).Format("15:04"),
		Priority:    InferPriority(due, now(), n.Thresholds),
		Source:      n.Source,
		CustomColor: SubjectColor(subject),
		Tags:        []string{},
		Attachments: []string{},
	}
}
