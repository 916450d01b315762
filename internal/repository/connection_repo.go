package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/studyflow-api/internal/models"
)

// ConnectionRepository persists LMS connection settings.
type ConnectionRepository interface {
	Get(ctx context.Context, source models.AssignmentSource) (models.SourceConnection, error)
	List(ctx context.Context) ([]models.SourceConnection, error)
	Save(ctx context.Context, connection *models.SourceConnection) error
	SetConnected(ctx context.Context, source models.AssignmentSource, connected bool, at time.Time) error
	MarkSynced(ctx context.Context, source models.AssignmentSource, at time.Time) error
}

type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository instantiates a GORM-backed repository.
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) Get(ctx context.Context, source models.AssignmentSource) (models.SourceConnection, error) {
	var connection models.SourceConnection
	if err := r.db.WithContext(ctx).Where("source = ?", source).First(&connection).Error; err != nil {
		return models.SourceConnection{}, err
	}

	return connection, nil
}

func (r *connectionRepository) List(ctx context.Context) ([]models.SourceConnection, error) {
	var connections []models.SourceConnection
	if err := r.db.WithContext(ctx).Order("source ASC").Find(&connections).Error; err != nil {
		return nil, err
	}

	return connections, nil
}

// Save inserts the connection or overwrites the stored row for the same source.
func (r *connectionRepository) Save(ctx context.Context, connection *models.SourceConnection) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "source"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"base_url", "token", "connected", "auto_sync", "last_tested_at", "last_synced_at", "updated_at",
			}),
		}).
		Create(connection).Error
}

// SetConnected records a connection test, creating the row when the source is new.
func (r *connectionRepository) SetConnected(ctx context.Context, source models.AssignmentSource, connected bool, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.SourceConnection{}).
			Where("source = ?", source).
			Updates(map[string]interface{}{
				"connected":      connected,
				"last_tested_at": at,
				"updated_at":     at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		return tx.Create(&models.SourceConnection{
			Source:       source,
			Connected:    connected,
			AutoSync:     true,
			LastTestedAt: &at,
		}).Error
	})
}

func (r *connectionRepository) MarkSynced(ctx context.Context, source models.AssignmentSource, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.SourceConnection{}).
		Where("source = ?", source).
		Updates(map[string]interface{}{
			"last_synced_at": at,
			"updated_at":     at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
