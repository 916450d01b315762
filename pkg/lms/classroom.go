package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/studyflow-api/internal/models"
)

// DefaultClassroomAPI is the public Google Classroom endpoint.
const DefaultClassroomAPI = "https://classroom.googleapis.com/v1"

const (
	defaultDueHour   = 23
	defaultDueMinute = 59
)

type classroomCourses struct {
	Courses []course `json:"courses"`
}

type classroomCourseWork struct {
	CourseWork []json.RawMessage `json:"courseWork"`
}

type classroomDate struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

type classroomTime struct {
	Hours   *int `json:"hours"`
	Minutes *int `json:"minutes"`
}

type classroomWork struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	DueDate     *classroomDate `json:"dueDate"`
	DueTime     *classroomTime `json:"dueTime"`
}

// Classroom reads course work from the Google Classroom API.
type Classroom struct {
	config     ConnectionConfig
	apiBase    string
	client     *jsonClient
	normalizer Normalizer
	recorder   ConnectionRecorder
	location   *time.Location
	logger     zerolog.Logger
}

// NewClassroom constructs a Classroom adapter. A blank BaseURL targets the public API.
func NewClassroom(cfg ConnectionConfig, opts Options) *Classroom {
	opts = opts.withDefaults()
	cfg.Source = models.SourceGoogleClassroom

	apiBase := strings.TrimSpace(cfg.BaseURL)
	if apiBase == "" {
		apiBase = DefaultClassroomAPI
	}

	return &Classroom{
		config:  cfg,
		apiBase: apiBase,
		client:  &jsonClient{http: opts.HTTPClient, token: cfg.Token, source: string(models.SourceGoogleClassroom)},
		normalizer: Normalizer{
			Source:     models.SourceGoogleClassroom,
			Thresholds: ClassroomThresholds,
			Location:   opts.Location,
			Now:        opts.Now,
		},
		recorder: opts.Recorder,
		location: opts.Location,
		logger:   opts.Logger.With().Str("component", "classroom_adapter").Logger(),
	}
}

func (c *Classroom) Source() models.AssignmentSource {
	return models.SourceGoogleClassroom
}

func (c *Classroom) TestConnection(ctx context.Context) bool {
	if strings.TrimSpace(c.config.Token) == "" {
		return false
	}

	ctx, span := tracer.Start(ctx, "lms.classroom.test_connection")
	defer span.End()

	status, err := c.client.status(ctx, joinURL(c.apiBase, "/courses"))
	connected := err == nil && status == http.StatusOK
	if err != nil {
		span.RecordError(err)
		c.logger.Warn().Err(err).Msg("classroom probe failed")
	}
	span.SetAttributes(attribute.Bool("lms.connected", connected))

	c.config.Connected = connected
	record(ctx, c.recorder, models.SourceGoogleClassroom, connected, c.logger)
	return connected
}

func (c *Classroom) FetchAssignments(ctx context.Context) []models.Assignment {
	result := make([]models.Assignment, 0)
	if !c.config.Connected || strings.TrimSpace(c.config.Token) == "" {
		return result
	}

	ctx, span := tracer.Start(ctx, "lms.classroom.fetch_assignments")
	defer span.End()

	var payload classroomCourses
	if err := c.client.getJSON(ctx, joinURL(c.apiBase, "/courses?courseStates=ACTIVE"), &payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "course list failed")
		c.logger.Warn().Err(err).Msg("classroom course list failed")
		return result
	}

	for _, item := range payload.Courses {
		if item.ID == "" {
			continue
		}
		result = append(result, c.fetchCourse(ctx, item)...)
	}

	span.SetAttributes(
		attribute.Int("lms.courses", len(payload.Courses)),
		attribute.Int("lms.assignments", len(result)),
	)
	return result
}

func (c *Classroom) fetchCourse(ctx context.Context, item course) []models.Assignment {
	endpoint := joinURL(c.apiBase, fmt.Sprintf("/courses/%s/courseWork", url.PathEscape(string(item.ID))))

	var payload classroomCourseWork
	if err := c.client.getJSON(ctx, endpoint, &payload); err != nil {
		c.logger.Warn().Err(err).Str("course_id", string(item.ID)).Msg("classroom course work failed")
		return nil
	}

	assignments := make([]models.Assignment, 0, len(payload.CourseWork))
	for _, entry := range payload.CourseWork {
		var work classroomWork
		if err := json.Unmarshal(entry, &work); err != nil {
			continue
		}
		if strings.TrimSpace(work.Title) == "" {
			continue
		}
		due, ok := c.dueDate(work)
		if !ok {
			continue
		}
		assignments = append(assignments, c.normalizer.Assignment(item.Name, work.Title, work.Description, due))
	}
	return assignments
}

// dueDate combines the wire date with an optional time of day, defaulting to 23:59.
func (c *Classroom) dueDate(work classroomWork) (time.Time, bool) {
	date := work.DueDate
	if date == nil || date.Year == nil || date.Month == nil || date.Day == nil {
		return time.Time{}, false
	}

	hour, minute := defaultDueHour, defaultDueMinute
	if work.DueTime != nil {
		if work.DueTime.Hours != nil {
			hour = *work.DueTime.Hours
		}
		if work.DueTime.Minutes != nil {
			minute = *work.DueTime.Minutes
		}
	}

	return time.Date(*date.Year, time.Month(*date.Month), *date.Day, hour, minute, 0, 0, c.location), true
}
