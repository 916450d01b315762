package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/studyflow-api/internal/models"
)

// AssignmentScope narrows a bulk assignment query.
type AssignmentScope func(db *gorm.DB) *gorm.DB

// CompletedScope selects every completed assignment.
func CompletedScope(db *gorm.DB) *gorm.DB {
	return db.Where("completed = ?", true)
}

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	List(ctx context.Context) ([]models.Assignment, error)
	ListPending(ctx context.Context) ([]models.Assignment, error)
	ListCompleted(ctx context.Context) ([]models.Assignment, error)
	ListDueBetween(ctx context.Context, from, to time.Time) ([]models.Assignment, error)
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	FindByDedupKey(ctx context.Context, source models.AssignmentSource, courseName, title string) (models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id uint) error
	DeleteWhere(ctx context.Context, scope AssignmentScope) (int64, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) List(ctx context.Context) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).Order("due_date ASC").Order("id ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) ListPending(ctx context.Context) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("completed = ?", false).
		Order("due_date ASC").
		Order("id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) ListCompleted(ctx context.Context) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("completed = ?", true).
		Order("completed_at DESC").
		Order("id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}

	return assignments, nil
}

// ListDueBetween returns assignments with from <= due_date < to.
func (r *assignmentRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("due_date >= ? AND due_date < ?", from.UTC(), to.UTC()).
		Order("due_date ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) FindByDedupKey(ctx context.Context, source models.AssignmentSource, courseName, title string) (models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).
		Where("source = ? AND course_name = ? AND title = ?", source, courseName, title).
		First(&assignment).Error
	if err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Assignment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *assignmentRepository) DeleteWhere(ctx context.Context, scope AssignmentScope) (int64, error) {
	result := r.db.WithContext(ctx).Scopes(scope).Delete(&models.Assignment{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
