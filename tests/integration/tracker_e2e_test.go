package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyflow-api/internal/config"
	"github.com/noah-isme/studyflow-api/internal/database"
	"github.com/noah-isme/studyflow-api/internal/dto"
	"github.com/noah-isme/studyflow-api/internal/handler"
	"github.com/noah-isme/studyflow-api/internal/middleware"
	"github.com/noah-isme/studyflow-api/internal/repository"
	"github.com/noah-isme/studyflow-api/internal/router"
	"github.com/noah-isme/studyflow-api/internal/service"
	"github.com/noah-isme/studyflow-api/pkg/lms"
)

const jwtSecret = "integration-secret"

type trackerApp struct {
	app   *fiber.App
	token string
	cache *miniredis.Miniredis
}

func newCanvasServer(t *testing.T) *httptest.Server {
	t.Helper()
	due := time.Now().UTC().Add(48 * time.Hour).Format("2006-01-02T15:04:05Z")

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/self", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer canvas-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"id": 1}`)
	})
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 10, "name": "Calculus I"}]`)
	})
	mux.HandleFunc("/api/v1/courses/10/assignments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"name": "Derivatives worksheet", "description": "<p>Problems 1&ndash;20</p>", "due_at": %q}]`, due)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func setupTrackerApp(t *testing.T) trackerApp {
	t.Helper()

	db, err := database.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cache := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: cache.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	assignmentRepo := repository.NewAssignmentRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)

	opts := lms.Options{Timeout: 2 * time.Second, Recorder: service.NewConnectionRecorder(connectionRepo), Location: time.UTC, Logger: logger}
	factory := func(cfg lms.ConnectionConfig) (lms.Adapter, error) { return lms.New(cfg, opts) }

	feed := service.NewAssignmentFeed(redisClient, "studyflow-test", nil, logger)
	assignments := service.NewAssignmentService(assignmentRepo, feed, validate, logger)
	dashboard := service.NewDashboardService(assignmentRepo, feed, redisClient, time.Minute, logger)
	syncer := service.NewSyncService(assignmentRepo, connectionRepo, factory, feed, logger)
	connections := service.NewConnectionService(connectionRepo, factory, syncer, validate, logger)

	cfg := config.Config{AppName: "StudyFlow API", AppEnv: "test", SyncRateLimit: 100}

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignments, validate, logger, time.UTC),
		DashboardHandler:  handler.NewDashboardHandler(dashboard, logger),
		LiveHandler:       handler.NewLiveHandler(dashboard, logger, time.Minute),
		ConnectionHandler: handler.NewConnectionHandler(connections, validate, logger),
		SyncHandler:       handler.NewSyncHandler(syncer, logger),
		JWTMiddleware:     middleware.JWTProtected(jwtSecret),
	})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "student",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	return trackerApp{app: app, token: token, cache: cache}
}

func (a trackerApp) do(t *testing.T, method, target string, body interface{}) (int, json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload.Data
}

func TestTrackerEndToEnd(t *testing.T) {
	tracker := setupTrackerApp(t)
	canvas := newCanvasServer(t)

	unauthenticated, err := tracker.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, unauthenticated.StatusCode)

	status, data := tracker.do(t, http.MethodPut, "/api/v1/connections/canvas", map[string]string{
		"base_url": canvas.URL,
		"token":    "canvas-token",
	})
	require.Equal(t, fiber.StatusOK, status)
	var connected dto.ConnectResponse
	require.NoError(t, json.Unmarshal(data, &connected))
	require.True(t, connected.Connection.Connected)
	require.NotNil(t, connected.Sync)
	require.Equal(t, 1, connected.Sync.Inserted)

	status, data = tracker.do(t, http.MethodPost, "/api/v1/assignments", map[string]interface{}{
		"title":    "History essay",
		"subject":  "history",
		"due_date": time.Now().UTC().Add(-3 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, fiber.StatusCreated, status)
	var manual dto.AssignmentResponse
	require.NoError(t, json.Unmarshal(data, &manual))
	assert.Equal(t, "MANUAL", manual.Source)

	status, data = tracker.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, fiber.StatusOK, status)
	var dashboard dto.DashboardResponse
	require.NoError(t, json.Unmarshal(data, &dashboard))
	require.Len(t, dashboard.Overdue, 1)
	require.Len(t, dashboard.HighPriority, 1)
	imported := dashboard.HighPriority[0]
	assert.Equal(t, "Derivatives worksheet", imported.Title)
	assert.Equal(t, "Problems 1–20", imported.Description)
	assert.Equal(t, "math", imported.Subject)
	assert.Equal(t, "HIGH", imported.Priority)
	assert.True(t, imported.ReadOnly)
	assert.True(t, tracker.cache.Exists(service.DashboardCacheKey))

	status, _ = tracker.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/assignments/%d", imported.ID), map[string]string{"title": "Renamed"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = tracker.do(t, http.MethodPost, fmt.Sprintf("/api/v1/assignments/%d/toggle", manual.ID), nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.False(t, tracker.cache.Exists(service.DashboardCacheKey))

	status, data = tracker.do(t, http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, fiber.StatusOK, status)
	var summary dto.SyncSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Zero(t, summary.Inserted)
	assert.Equal(t, 1, summary.Skipped)

	status, data = tracker.do(t, http.MethodGet, "/api/v1/assignments?q=essay&include_completed=true", nil)
	require.Equal(t, fiber.StatusOK, status)
	var found []dto.AssignmentResponse
	require.NoError(t, json.Unmarshal(data, &found))
	require.Len(t, found, 1)
	assert.True(t, found[0].Completed)

	status, _ = tracker.do(t, http.MethodDelete, "/api/v1/assignments/completed", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, data = tracker.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &dashboard))
	assert.Empty(t, dashboard.Overdue)
	assert.Empty(t, dashboard.Completed)
	assert.Equal(t, 1, dashboard.Stats.TotalActive)

	status, _ = tracker.do(t, http.MethodDelete, "/api/v1/connections/canvas", nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = tracker.do(t, http.MethodPost, "/api/v1/sync?source=canvas", nil)
	assert.Equal(t, fiber.StatusConflict, status)
}
