// Package lms adapts external learning-management systems to the canonical assignment model.
package lms

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/studyflow-api/internal/models"
)

const defaultTimeout = 15 * time.Second

// ErrUnsupportedSource is returned when no adapter exists for a source.
var ErrUnsupportedSource = errors.New("lms: unsupported source")

// Adapter fetches and normalizes assignments from one LMS.
type Adapter interface {
	Source() models.AssignmentSource
	// TestConnection probes the LMS and reports whether it answered 200.
	TestConnection(ctx context.Context) bool
	// FetchAssignments never fails: any problem yields an empty or partial result.
	FetchAssignments(ctx context.Context) []models.Assignment
}

// ConnectionConfig carries the credentials and flags of one source.
type ConnectionConfig struct {
	Source    models.AssignmentSource
	BaseURL   string
	Token     string
	Connected bool
	AutoSync  bool
}

// ConnectionRecorder persists the outcome of a connection test.
type ConnectionRecorder interface {
	RecordConnection(ctx context.Context, source models.AssignmentSource, connected bool) error
}

// Options tunes adapter behaviour. Zero values fall back to sensible defaults.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Recorder   ConnectionRecorder
	Location   *time.Location
	Now        func() time.Time
	Logger     zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger.GetLevel() == zerolog.Disabled {
		o.Logger = zerolog.Nop()
	}
	return o
}

// New builds the adapter for cfg.Source.
func New(cfg ConnectionConfig, opts Options) (Adapter, error) {
	switch cfg.Source {
	case models.SourceCanvas:
		return NewCanvas(cfg, opts), nil
	case models.SourceGoogleClassroom:
		return NewClassroom(cfg, opts), nil
	default:
		return nil, ErrUnsupportedSource
	}
}

func record(ctx context.Context, recorder ConnectionRecorder, source models.AssignmentSource, connected bool, logger zerolog.Logger) {
	if recorder == nil {
		return
	}
	if err := recorder.RecordConnection(ctx, source, connected); err != nil {
		logger.Warn().Err(err).Str("source", string(source)).Msg("failed to persist connection state")
	}
}
