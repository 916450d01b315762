package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/studyflow-api/internal/models"
	"github.com/noah-isme/studyflow-api/pkg/lms"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Assignment{}, &models.SourceConnection{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// countingFeed returns a local-only feed and a counter of change notifications.
func countingFeed() (AssignmentFeed, *int32) {
	var count int32
	feed := NewAssignmentFeed(nil, "", nil, zerolog.Nop())
	feed.OnChange(func(context.Context) { atomic.AddInt32(&count, 1) })
	return feed, &count
}

type stubAdapter struct {
	source    models.AssignmentSource
	connected bool
	items     []models.Assignment
	recorder  lms.ConnectionRecorder
	fetches   *int32
	started   chan struct{}
	release   chan struct{}
}

func (a *stubAdapter) Source() models.AssignmentSource { return a.source }

func (a *stubAdapter) TestConnection(ctx context.Context) bool {
	if a.recorder != nil {
		_ = a.recorder.RecordConnection(ctx, a.source, a.connected)
	}
	return a.connected
}

func (a *stubAdapter) FetchAssignments(ctx context.Context) []models.Assignment {
	if a.fetches != nil {
		atomic.AddInt32(a.fetches, 1)
	}
	if a.started != nil {
		a.started <- struct{}{}
	}
	if a.release != nil {
		<-a.release
	}
	out := make([]models.Assignment, len(a.items))
	copy(out, a.items)
	return out
}

func stubFactory(adapters map[models.AssignmentSource]*stubAdapter) AdapterFactory {
	return func(cfg lms.ConnectionConfig) (lms.Adapter, error) {
		adapter, ok := adapters[cfg.Source]
		if !ok {
			return nil, lms.ErrUnsupportedSource
		}
		return adapter, nil
	}
}
