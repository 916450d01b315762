package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyflow-api/internal/models"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasTable(&models.Assignment{}))
	assert.True(t, db.Migrator().HasTable(&models.SourceConnection{}))

	record := models.Assignment{Title: "Essay", CourseName: "English", DueDate: time.Now().Add(time.Hour)}
	require.NoError(t, db.WithContext(context.Background()).Create(&record).Error)
	assert.NotZero(t, record.ID)
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
	assert.True(t, isPostgres("postgres://user@localhost/studyflow"))
	assert.True(t, isPostgres("POSTGRESQL://localhost"))
	assert.False(t, isPostgres("file:studyflow.db"))
}

func TestConnectRedis(t *testing.T) {
	server := miniredis.RunT(t)

	client, err := ConnectRedis("redis://" + server.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = ConnectRedis("")
	require.Error(t, err)
}

func TestConnectNATSRequiresURL(t *testing.T) {
	_, err := ConnectNATS("", "studyflow")
	require.Error(t, err)
}
