package tracker

import (
	"strings"
	"time"

	"github.com/noah-isme/studyflow-api/internal/models"
)

// All is the neutral value of the subject and priority filters.
const All = "all"

// Filter is the search state applied to the full collection.
type Filter struct {
	Query            string
	Subject          string
	Priority         string
	IncludeCompleted bool
}

// Neutral reports whether no predicate of the filter narrows the result.
func (f Filter) Neutral() bool {
	return strings.TrimSpace(f.Query) == "" && isAll(f.Subject) && isAll(f.Priority)
}

// Matches reports whether a single assignment passes every predicate.
func (f Filter) Matches(a models.Assignment) bool {
	return f.matchesQuery(a) && f.matchesSubject(a) && f.matchesPriority(a) && (f.IncludeCompleted || !a.Completed)
}

func (f Filter) matchesQuery(a models.Assignment) bool {
	if strings.TrimSpace(f.Query) == "" {
		return true
	}
	query := strings.ToLower(f.Query)
	return strings.Contains(strings.ToLower(a.Title), query) ||
		strings.Contains(strings.ToLower(a.Description), query) ||
		strings.Contains(strings.ToLower(a.Subject), query)
}

func (f Filter) matchesSubject(a models.Assignment) bool {
	return isAll(f.Subject) || a.Subject == f.Subject
}

func (f Filter) matchesPriority(a models.Assignment) bool {
	return isAll(f.Priority) || strings.EqualFold(string(a.Priority), strings.TrimSpace(f.Priority))
}

// Apply returns the matching assignments sorted by due date ascending.
func Apply(assignments []models.Assignment, filter Filter) []models.Assignment {
	result := make([]models.Assignment, 0, len(assignments))
	for _, assignment := range assignments {
		if filter.Matches(assignment) {
			result = append(result, assignment)
		}
	}
	SortByDueDate(result)
	return result
}

// DueOn returns the assignments due on the calendar day of day, in day's location.
func DueOn(assignments []models.Assignment, day time.Time) []models.Assignment {
	year, month, date := day.Date()
	result := make([]models.Assignment, 0)
	for _, assignment := range assignments {
		y, m, d := assignment.DueDate.In(day.Location()).Date()
		if y == year && m == month && d == date {
			result = append(result, assignment)
		}
	}
	SortByDueDate(result)
	return result
}

// isAll treats an empty value like "all" so zero-value filters are neutral.
func isAll(value string) bool {
	trimmed := strings.TrimSpace(value)
	return trimmed == "" || trimmed == All
}
