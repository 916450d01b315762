package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/studyflow-api/internal/dto"
	"github.com/noah-isme/studyflow-api/internal/models"
	"github.com/noah-isme/studyflow-api/internal/repository"
	"github.com/noah-isme/studyflow-api/internal/tracker"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrAssignmentReadOnly is returned when editing an assignment imported from an LMS.
	ErrAssignmentReadOnly = errors.New("synced assignments can only be completed or deleted")
	// ErrInvalidTitle rejects blank titles.
	ErrInvalidTitle = errors.New("title must not be empty")
	// ErrInvalidDueDate rejects due dates that cannot be parsed.
	ErrInvalidDueDate = errors.New("due_date must be an RFC3339 timestamp")
)

// AssignmentService exposes assignment domain use cases.
type AssignmentService interface {
	List(ctx context.Context) ([]dto.AssignmentResponse, error)
	Search(ctx context.Context, filter tracker.Filter) ([]dto.AssignmentResponse, error)
	DueOn(ctx context.Context, day time.Time) ([]dto.AssignmentResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	ToggleCompletion(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id uint) error
	DeleteCompleted(ctx context.Context) (int64, error)
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	feed      AssignmentFeed
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(repo repository.AssignmentRepository, feed AssignmentFeed, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:      repo,
		feed:      feed,
		validator: validate,
		logger:    logger.With().Str("component", "assignment_service").Logger(),
		now:       time.Now,
	}
}

func (s *assignmentService) List(ctx context.Context) ([]dto.AssignmentResponse, error) {
	assignments, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) Search(ctx context.Context, filter tracker.Filter) ([]dto.AssignmentResponse, error) {
	assignments, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(tracker.Apply(assignments, filter)), nil
}

func (s *assignmentService) DueOn(ctx context.Context, day time.Time) ([]dto.AssignmentResponse, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	assignments, err := s.repo.ListDueBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(tracker.DueOn(assignments, start)), nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.load(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return dto.AssignmentResponse{}, ErrInvalidTitle
	}

	dueDate, err := dto.ParseDueDate(payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, ErrInvalidDueDate
	}

	// An omitted due_time follows the due date's clock time in the app timezone,
	// matching synced records. models.DefaultDueTime only fills rows stored without one.
	dueTime := payload.DueTime
	if dueTime == "" {
		dueTime = clockTime(dueDate)
	}

	priority, _ := models.ParsePriority(payload.Priority)

	assignment := models.Assignment{
		Title:          title,
		Description:    strings.TrimSpace(payload.Description),
		Subject:        strings.TrimSpace(payload.Subject),
		CourseName:     strings.TrimSpace(payload.CourseName),
		DueDate:        dueDate,
		DueTime:        dueTime,
		Priority:       priority,
		CustomColor:    payload.CustomColor,
		Source:         models.SourceManual,
		EstimatedHours: payload.EstimatedHours,
		Tags:           payload.Tags,
		Attachments:    payload.Attachments,
		Notes:          payload.Notes,
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		s.logger.Error().Err(err).Msg("failed to create assignment")
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Msg("assignment created")
	s.feed.Notify(ctx, "created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.load(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if assignment.Source != models.SourceManual {
		return dto.AssignmentResponse{}, ErrAssignmentReadOnly
	}

	if err := applyAssignmentUpdate(&assignment, payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.repo.Update(ctx, &assignment); err != nil {
		s.logger.Error().Err(err).Uint("assignment_id", id).Msg("failed to update assignment")
		return dto.AssignmentResponse{}, err
	}

	s.feed.Notify(ctx, "updated")
	return dto.NewAssignmentResponse(assignment), nil
}

func applyAssignmentUpdate(assignment *models.Assignment, payload dto.AssignmentUpdateRequest) error {
	if payload.Title != nil {
		title := strings.TrimSpace(*payload.Title)
		if title == "" {
			return ErrInvalidTitle
		}
		assignment.Title = title
	}
	if payload.Description != nil {
		assignment.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.Subject != nil {
		assignment.Subject = strings.TrimSpace(*payload.Subject)
	}
	if payload.CourseName != nil {
		assignment.CourseName = strings.TrimSpace(*payload.CourseName)
	}
	if payload.DueDate != nil {
		dueDate, err := dto.ParseDueDate(*payload.DueDate)
		if err != nil {
			return ErrInvalidDueDate
		}
		assignment.DueDate = dueDate
		if payload.DueTime == nil {
			assignment.DueTime = clockTime(dueDate)
		}
	}
	if payload.DueTime != nil {
		assignment.DueTime = *payload.DueTime
	}
	if payload.Priority != nil {
		if priority, ok := models.ParsePriority(*payload.Priority); ok {
			assignment.Priority = priority
		}
	}
	if payload.CustomColor != nil {
		assignment.CustomColor = *payload.CustomColor
	}
	if payload.EstimatedHours != nil {
		assignment.EstimatedHours = *payload.EstimatedHours
	}
	if payload.ActualHours != nil {
		assignment.ActualHours = *payload.ActualHours
	}
	if payload.Tags != nil {
		assignment.Tags = *payload.Tags
	}
	if payload.Attachments != nil {
		assignment.Attachments = *payload.Attachments
	}
	if payload.Notes != nil {
		assignment.Notes = *payload.Notes
	}
	return nil
}

func (s *assignmentService) ToggleCompletion(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.load(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment.MarkCompleted(!assignment.Completed, s.now())
	if err := s.repo.Update(ctx, &assignment); err != nil {
		s.logger.Error().Err(err).Uint("assignment_id", id).Msg("failed to toggle completion")
		return dto.AssignmentResponse{}, err
	}

	s.logger.Debug().Uint("assignment_id", id).Bool("completed", assignment.Completed).Msg("completion toggled")
	s.feed.Notify(ctx, "completion")
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	s.feed.Notify(ctx, "deleted")
	return nil
}

func (s *assignmentService) DeleteCompleted(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteWhere(ctx, repository.CompletedScope)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.logger.Info().Int64("removed", removed).Msg("completed assignments deleted")
		s.feed.Notify(ctx, "deleted")
	}
	return removed, nil
}

func (s *assignmentService) load(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

func clockTime(due time.Time) string {
	return due.In(time.Local).Format("15:04")
}

