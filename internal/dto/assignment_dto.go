package dto

import (
	"time"

	"github.com/noah-isme/studyflow-api/internal/models"
)

const (
	isoLayout  = time.RFC3339
	dateLayout = "2006-01-02"
)

// AssignmentCreateRequest describes the payload for creating a manual assignment.
type AssignmentCreateRequest struct {
	Title          string   `json:"title" validate:"required,max=255"`
	Description    string   `json:"description" validate:"omitempty,max=10000"`
	Subject        string   `json:"subject" validate:"omitempty,max=64"`
	CourseName     string   `json:"course_name" validate:"omitempty,max=255"`
	DueDate        string   `json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	DueTime        string   `json:"due_time" validate:"omitempty,datetime=15:04"`
	Priority       string   `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH low medium high"`
	CustomColor    string   `json:"custom_color" validate:"omitempty,hexcolor"`
	EstimatedHours float64  `json:"estimated_hours" validate:"gte=0"`
	Tags           []string `json:"tags" validate:"omitempty,dive,max=64"`
	Attachments    []string `json:"attachments" validate:"omitempty,dive,max=2048"`
	Notes          string   `json:"notes" validate:"omitempty,max=10000"`
}

// AssignmentUpdateRequest describes a partial edit of a manual assignment.
type AssignmentUpdateRequest struct {
	Title          *string   `json:"title" validate:"omitempty,max=255"`
	Description    *string   `json:"description" validate:"omitempty,max=10000"`
	Subject        *string   `json:"subject" validate:"omitempty,max=64"`
	CourseName     *string   `json:"course_name" validate:"omitempty,max=255"`
	DueDate        *string   `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	DueTime        *string   `json:"due_time" validate:"omitempty,datetime=15:04"`
	Priority       *string   `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH low medium high"`
	CustomColor    *string   `json:"custom_color" validate:"omitempty,hexcolor"`
	EstimatedHours *float64  `json:"estimated_hours" validate:"omitempty,gte=0"`
	ActualHours    *float64  `json:"actual_hours" validate:"omitempty,gte=0"`
	Tags           *[]string `json:"tags" validate:"omitempty,dive,max=64"`
	Attachments    *[]string `json:"attachments" validate:"omitempty,dive,max=2048"`
	Notes          *string   `json:"notes" validate:"omitempty,max=10000"`
}

// AssignmentListQuery carries the search state sent as query parameters.
type AssignmentListQuery struct {
	Query            string `query:"q"`
	Subject          string `query:"subject"`
	Priority         string `query:"priority" validate:"omitempty,oneof=all ALL LOW MEDIUM HIGH low medium high"`
	IncludeCompleted bool   `query:"include_completed"`
}

// CalendarQuery selects the day shown by the calendar view.
type CalendarQuery struct {
	Date string `query:"date" validate:"required,datetime=2006-01-02"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID             uint       `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Subject        string     `json:"subject"`
	CourseName     string     `json:"course_name"`
	DueDate        time.Time  `json:"due_date"`
	DueTime        string     `json:"due_time"`
	Completed      bool       `json:"completed"`
	CompletedAt    *time.Time `json:"completed_at"`
	Priority       string     `json:"priority"`
	CustomColor    string     `json:"custom_color"`
	Source         string     `json:"source"`
	ReadOnly       bool       `json:"read_only"`
	EstimatedHours float64    `json:"estimated_hours"`
	ActualHours    float64    `json:"actual_hours"`
	Tags           []string   `json:"tags"`
	Attachments    []string   `json:"attachments"`
	Notes          string     `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:             model.ID,
		Title:          model.Title,
		Description:    model.Description,
		Subject:        model.Subject,
		CourseName:     model.CourseName,
		DueDate:        model.DueDate,
		DueTime:        model.DueTime,
		Completed:      model.Completed,
		CompletedAt:    model.CompletedAt,
		Priority:       string(model.Priority),
		CustomColor:    model.CustomColor,
		Source:         string(model.Source),
		ReadOnly:       model.Source != models.SourceManual,
		EstimatedHours: model.EstimatedHours,
		ActualHours:    model.ActualHours,
		Tags:           nonNil(model.Tags),
		Attachments:    nonNil(model.Attachments),
		Notes:          model.Notes,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}

// ParseDueDate parses an RFC3339 due date.
func ParseDueDate(value string) (time.Time, error) {
	return time.Parse(isoLayout, value)
}

// ParseDay parses a YYYY-MM-DD day in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, value, loc)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
