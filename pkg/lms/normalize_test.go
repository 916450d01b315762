package lms

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/studyflow-api/internal/models"
)

func TestInferPriorityThresholds(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	day := 24 * time.Hour

	cases := []struct {
		name       string
		thresholds Thresholds
		until      time.Duration
		want       models.Priority
	}{
		{"canvas two days late", CanvasThresholds, -48 * time.Hour, models.PriorityHigh},
		{"canvas hours late", CanvasThresholds, -2 * time.Hour, models.PriorityHigh},
		{"canvas due now", CanvasThresholds, 0, models.PriorityHigh},
		{"canvas three days", CanvasThresholds, 3 * day, models.PriorityHigh},
		{"canvas end of third day", CanvasThresholds, 4*day - time.Second, models.PriorityHigh},
		{"canvas four days", CanvasThresholds, 4 * day, models.PriorityMedium},
		{"canvas seven days", CanvasThresholds, 7 * day, models.PriorityMedium},
		{"canvas eight days", CanvasThresholds, 8 * day, models.PriorityLow},
		{"classroom two days late", ClassroomThresholds, -48 * time.Hour, models.PriorityHigh},
		{"classroom four days", ClassroomThresholds, 4 * day, models.PriorityHigh},
		{"classroom five days", ClassroomThresholds, 5 * day, models.PriorityMedium},
		{"classroom twenty days", ClassroomThresholds, 20 * day, models.PriorityMedium},
		{"classroom twenty one days", ClassroomThresholds, 21 * day, models.PriorityLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InferPriority(now.Add(tc.until), now, tc.thresholds))
		})
	}
}

func TestInferPriorityDiffersBySource(t *testing.T) {
	now := time.Now()
	due := now.Add(4 * 24 * time.Hour)

	assert.Equal(t, models.PriorityMedium, InferPriority(due, now, CanvasThresholds))
	assert.Equal(t, models.PriorityHigh, InferPriority(due, now, ClassroomThresholds))
}

func TestNormalizerPastDueAssignmentIsHigh(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	for _, thresholds := range []Thresholds{CanvasThresholds, ClassroomThresholds} {
		t.Run(fmt.Sprintf("high_%d", thresholds.HighDays), func(t *testing.T) {
			normalizer := Normalizer{
				Source:     models.SourceCanvas,
				Thresholds: thresholds,
				Location:   time.UTC,
				Now:        func() time.Time { return now },
			}
			assignment := normalizer.Assignment("Algebra II", "Late quiz", "", now.Add(-48*time.Hour))
			assert.Equal(t, models.PriorityHigh, assignment.Priority)
		})
	}
}
