package contract_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyflow-api/internal/database"
	"github.com/noah-isme/studyflow-api/internal/dto"
	"github.com/noah-isme/studyflow-api/internal/handler"
	"github.com/noah-isme/studyflow-api/internal/models"
	"github.com/noah-isme/studyflow-api/internal/repository"
	"github.com/noah-isme/studyflow-api/internal/service"
)

func TestDashboardContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "dashboard.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	db, err := database.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	logger := zerolog.Nop()
	repo := repository.NewAssignmentRepository(db)
	feed := service.NewAssignmentFeed(nil, "", nil, logger)
	assignments := service.NewAssignmentService(repo, feed, validator.New(), logger)
	dashboard := service.NewDashboardService(repo, feed, nil, 0, logger)

	ctx := context.Background()
	now := time.Now()
	for i, offset := range []time.Duration{-26 * time.Hour, 30 * time.Hour, 9 * 24 * time.Hour, 40 * 24 * time.Hour} {
		_, err := assignments.Create(ctx, dto.AssignmentCreateRequest{
			Title:      fmt.Sprintf("Assignment %d", i+1),
			Subject:    "math",
			CourseName: "Algebra II",
			DueDate:    now.Add(offset).Format(time.RFC3339),
			Tags:       []string{"unit-3"},
		})
		require.NoError(t, err)
	}

	done, err := assignments.Create(ctx, dto.AssignmentCreateRequest{
		Title:   "Reading log",
		Subject: "english",
		DueDate: now.Add(-time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	_, err = assignments.ToggleCompletion(ctx, done.ID)
	require.NoError(t, err)

	synced := models.Assignment{
		Title:      "Cell diagram",
		Subject:    "science",
		CourseName: "Biology",
		Source:     models.SourceCanvas,
		DueDate:    now.Add(3 * 24 * time.Hour),
		Priority:   models.PriorityHigh,
	}
	require.NoError(t, repo.Create(ctx, &synced))

	app := fiber.New()
	handler.NewDashboardHandler(dashboard, logger).Register(app.Group("/api/v1/dashboard"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))

	var typed struct {
		Data dto.DashboardResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &typed))
	require.Len(t, typed.Data.Overdue, 1)
	require.Len(t, typed.Data.Completed, 1)
	require.Equal(t, 1, typed.Data.Stats.Completed)
	require.Equal(t, 5, typed.Data.Stats.TotalActive)
}
