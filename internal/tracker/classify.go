// Package tracker holds the pure rules that turn a collection of assignments into the
// views the API serves: urgency tiers, aggregate statistics and filtered listings.
package tracker

import (
	"sort"
	"time"

	"github.com/noah-isme/studyflow-api/internal/models"
)

// Tier names an urgency bucket.
type Tier string

const (
	TierOverdue      Tier = "overdue"
	TierHighPriority Tier = "high_priority"
	TierComingUp     Tier = "coming_up"
	TierLongTerm     Tier = "long_term"
)

const (
	highPriorityDays = 4
	comingUpFromDays = 5
	comingUpToDays   = 20
	longTermFromDays = 21
)

// Tiers partitions pending assignments by urgency. Every slice is sorted by due date ascending.
type Tiers struct {
	Overdue      []models.Assignment
	HighPriority []models.Assignment
	ComingUp     []models.Assignment
	LongTerm     []models.Assignment
}

// Boundaries are the instants separating tiers for a given reference time.
type Boundaries struct {
	Now           time.Time
	ComingUpStart time.Time // start of day now+5
	LongTermStart time.Time // start of day now+21
}

// BoundariesAt computes tier boundaries in now's location.
//
// High priority runs to day(now+4) 23:59:59 inclusive, which is everything before the start
// of day(now+5). Coming up ends at day(now+20) 23:59:59, i.e. before the start of day(now+21).
func BoundariesAt(now time.Time) Boundaries {
	return Boundaries{
		Now:           now,
		ComingUpStart: startOfDay(now.AddDate(0, 0, comingUpFromDays)),
		LongTermStart: startOfDay(now.AddDate(0, 0, longTermFromDays)),
	}
}

// TierOf returns the tier of a single due date.
func (b Boundaries) TierOf(due time.Time) Tier {
	switch {
	case due.Before(b.Now):
		return TierOverdue
	case due.Before(b.ComingUpStart):
		return TierHighPriority
	case due.Before(b.LongTermStart):
		return TierComingUp
	default:
		return TierLongTerm
	}
}

// Classify buckets the pending assignments in the collection. Completed items are ignored.
func Classify(assignments []models.Assignment, now time.Time) Tiers {
	bounds := BoundariesAt(now)
	tiers := Tiers{
		Overdue:      []models.Assignment{},
		HighPriority: []models.Assignment{},
		ComingUp:     []models.Assignment{},
		LongTerm:     []models.Assignment{},
	}

	for _, assignment := range assignments {
		if assignment.Completed {
			continue
		}
		switch bounds.TierOf(assignment.DueDate) {
		case TierOverdue:
			tiers.Overdue = append(tiers.Overdue, assignment)
		case TierHighPriority:
			tiers.HighPriority = append(tiers.HighPriority, assignment)
		case TierComingUp:
			tiers.ComingUp = append(tiers.ComingUp, assignment)
		default:
			tiers.LongTerm = append(tiers.LongTerm, assignment)
		}
	}

	SortByDueDate(tiers.Overdue)
	SortByDueDate(tiers.HighPriority)
	SortByDueDate(tiers.ComingUp)
	SortByDueDate(tiers.LongTerm)

	return tiers
}

// CompletedView returns the completed assignments, most recently completed first.
func CompletedView(assignments []models.Assignment) []models.Assignment {
	completed := make([]models.Assignment, 0, len(assignments))
	for _, assignment := range assignments {
		if assignment.Completed {
			completed = append(completed, assignment)
		}
	}

	sort.SliceStable(completed, func(i, j int) bool {
		return completedAt(completed[i]).After(completedAt(completed[j]))
	})
	return completed
}

// SortByDueDate orders assignments by due date ascending, keeping ties in input order.
func SortByDueDate(assignments []models.Assignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		return assignments[i].DueDate.Before(assignments[j].DueDate)
	})
}

func completedAt(a models.Assignment) time.Time {
	if a.CompletedAt == nil {
		return time.Time{}
	}
	return *a.CompletedAt
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
