package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/studyflow-api/internal/models"
)

const canvasDateLayout = "2006-01-02T15:04:05Z"

var tracer = otel.Tracer("github.com/noah-isme/studyflow-api/pkg/lms")

type canvasAssignment struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	DueAt       *string `json:"due_at"`
}

// Canvas reads assignments from a Canvas LMS instance.
type Canvas struct {
	config     ConnectionConfig
	client     *jsonClient
	normalizer Normalizer
	recorder   ConnectionRecorder
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
}

// NewCanvas constructs a Canvas adapter from stored credentials.
func NewCanvas(cfg ConnectionConfig, opts Options) *Canvas {
	opts = opts.withDefaults()
	cfg.Source = models.SourceCanvas

	return &Canvas{
		config: cfg,
		client: &jsonClient{http: opts.HTTPClient, token: cfg.Token, source: string(models.SourceCanvas)},
		normalizer: Normalizer{
			Source:     models.SourceCanvas,
			Thresholds: CanvasThresholds,
			Location:   opts.Location,
			Now:        opts.Now,
		},
		recorder:  opts.Recorder,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    opts.Logger.With().Str("component", "canvas_adapter").Logger(),
	}
}

func (c *Canvas) Source() models.AssignmentSource {
	return models.SourceCanvas
}

func (c *Canvas) TestConnection(ctx context.Context) bool {
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return false
	}

	ctx, span := tracer.Start(ctx, "lms.canvas.test_connection")
	defer span.End()

	status, err := c.client.status(ctx, joinURL(c.config.BaseURL, "/api/v1/users/self"))
	connected := err == nil && status == http.StatusOK
	if err != nil {
		span.RecordError(err)
		c.logger.Warn().Err(err).Msg("canvas probe failed")
	}
	span.SetAttributes(attribute.Bool("lms.connected", connected))

	c.config.Connected = connected
	record(ctx, c.recorder, models.SourceCanvas, connected, c.logger)
	return connected
}

func (c *Canvas) FetchAssignments(ctx context.Context) []models.Assignment {
	result := make([]models.Assignment, 0)
	if !c.config.Connected || strings.TrimSpace(c.config.BaseURL) == "" {
		return result
	}

	ctx, span := tracer.Start(ctx, "lms.canvas.fetch_assignments")
	defer span.End()

	var courses []course
	coursesURL := joinURL(c.config.BaseURL, "/api/v1/courses?enrollment_state=active")
	if err := c.client.getJSON(ctx, coursesURL, &courses); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "course list failed")
		c.logger.Warn().Err(err).Msg("canvas course list failed")
		return result
	}

	for _, item := range courses {
		if item.ID == "" {
			continue
		}
		result = append(result, c.fetchCourse(ctx, item)...)
	}

	span.SetAttributes(
		attribute.Int("lms.courses", len(courses)),
		attribute.Int("lms.assignments", len(result)),
	)
	return result
}

func (c *Canvas) fetchCourse(ctx context.Context, item course) []models.Assignment {
	endpoint := joinURL(c.config.BaseURL, fmt.Sprintf("/api/v1/courses/%s/assignments", url.PathEscape(string(item.ID))))

	var raw []json.RawMessage
	if err := c.client.getJSON(ctx, endpoint, &raw); err != nil {
		c.logger.Warn().Err(err).Str("course_id", string(item.ID)).Msg("canvas course assignments failed")
		return nil
	}

	assignments := make([]models.Assignment, 0, len(raw))
	for _, entry := range raw {
		var work canvasAssignment
		if err := json.Unmarshal(entry, &work); err != nil {
			continue
		}
		if strings.TrimSpace(work.Name) == "" || work.DueAt == nil {
			continue
		}
		due, err := time.Parse(canvasDateLayout, *work.DueAt)
		if err != nil {
			continue
		}

		description := ""
		if work.Description != nil {
			description = c.plainText(*work.Description)
		}
		assignments = append(assignments, c.normalizer.Assignment(item.Name, work.Name, description, due))
	}
	return assignments
}

func (c *Canvas) plainText(markup string) string {
	return strings.TrimSpace(html.UnescapeString(c.sanitizer.Sanitize(markup)))
}
