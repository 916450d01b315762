package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/noah-isme/studyflow-api/internal/dto"
	"github.com/noah-isme/studyflow-api/internal/models"
	"github.com/noah-isme/studyflow-api/internal/observability"
	"github.com/noah-isme/studyflow-api/internal/repository"
	"github.com/noah-isme/studyflow-api/pkg/lms"
)

// SyncTrigger names what started a sync pass.
type SyncTrigger string

const (
	TriggerStartup   SyncTrigger = "startup"
	TriggerManual    SyncTrigger = "manual"
	TriggerConnect   SyncTrigger = "connect"
	TriggerScheduled SyncTrigger = "scheduled"
)

var (
	// ErrConnectionNotFound indicates no credentials are stored for the source.
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrSourceNotConnected is returned when syncing a source whose last test failed.
	ErrSourceNotConnected = errors.New("source is not connected")
)

// AdapterFactory builds the LMS adapter for a stored connection.
type AdapterFactory func(cfg lms.ConnectionConfig) (lms.Adapter, error)

// SyncService pulls assignments from connected LMS sources into the store.
type SyncService interface {
	// SyncAll runs a pass for every connected source with auto-sync enabled.
	SyncAll(ctx context.Context, trigger SyncTrigger) ([]dto.SyncResult, error)
	// SyncSource runs a pass for one connected source regardless of auto-sync.
	SyncSource(ctx context.Context, source models.AssignmentSource, trigger SyncTrigger) (dto.SyncResult, error)
}

type syncService struct {
	assignments repository.AssignmentRepository
	connections repository.ConnectionRepository
	factory     AdapterFactory
	feed        AssignmentFeed
	logger      zerolog.Logger
	tracer      trace.Tracer
	inflight    singleflight.Group
	now         func() time.Time
}

// NewSyncService constructs the sync orchestrator.
func NewSyncService(assignments repository.AssignmentRepository, connections repository.ConnectionRepository, factory AdapterFactory, feed AssignmentFeed, logger zerolog.Logger) SyncService {
	return &syncService{
		assignments: assignments,
		connections: connections,
		factory:     factory,
		feed:        feed,
		logger:      logger.With().Str("component", "sync_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/studyflow-api/internal/service/sync"),
		now:         time.Now,
	}
}

func (s *syncService) SyncAll(ctx context.Context, trigger SyncTrigger) ([]dto.SyncResult, error) {
	connections, err := s.connections.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]dto.SyncResult, 0, len(connections))
	for _, connection := range connections {
		if !connection.Syncable() {
			continue
		}
		results = append(results, s.run(ctx, connection, trigger))
	}
	return results, nil
}

func (s *syncService) SyncSource(ctx context.Context, source models.AssignmentSource, trigger SyncTrigger) (dto.SyncResult, error) {
	connection, err := s.connections.Get(ctx, source)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SyncResult{}, ErrConnectionNotFound
		}
		return dto.SyncResult{}, err
	}
	if !connection.Connected {
		return dto.SyncResult{}, ErrSourceNotConnected
	}

	return s.run(ctx, connection, trigger), nil
}

// run joins an in-flight pass for the same source instead of starting another.
func (s *syncService) run(ctx context.Context, connection models.SourceConnection, trigger SyncTrigger) dto.SyncResult {
	value, _, shared := s.inflight.Do(string(connection.Source), func() (interface{}, error) {
		return s.pass(ctx, connection, trigger), nil
	})

	result := value.(dto.SyncResult)
	if shared {
		s.logger.Debug().Str("source", string(connection.Source)).Str("trigger", string(trigger)).Msg("joined in-flight sync pass")
	}
	return result
}

func (s *syncService) pass(ctx context.Context, connection models.SourceConnection, trigger SyncTrigger) dto.SyncResult {
	source := string(connection.Source)
	result := dto.SyncResult{Source: source, Trigger: string(trigger), StartedAt: s.now()}

	spanCtx, span := s.tracer.Start(ctx, "sync.pass", trace.WithAttributes(
		attribute.String("sync.source", source),
		attribute.String("sync.trigger", string(trigger)),
	))
	defer span.End()

	logger := s.logger.With().Str("source", source).Str("trigger", string(trigger)).Logger()

	err := s.merge(spanCtx, connection, &result)
	result.FinishedAt = s.now()

	if result.Inserted > 0 {
		s.feed.Notify(spanCtx, "sync")
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
		result.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync pass failed")
		logger.Error().Err(err).Int("inserted", result.Inserted).Msg("sync pass aborted")
	} else {
		result.Success = true
		if markErr := s.connections.MarkSynced(spanCtx, connection.Source, result.FinishedAt); markErr != nil {
			logger.Warn().Err(markErr).Msg("failed to record sync time")
		}
		logger.Info().
			Int("fetched", result.Fetched).
			Int("inserted", result.Inserted).
			Int("skipped", result.Skipped).
			Msg("sync pass completed")
	}

	span.SetAttributes(
		attribute.Int("sync.fetched", result.Fetched),
		attribute.Int("sync.inserted", result.Inserted),
		attribute.Int("sync.skipped", result.Skipped),
	)
	observability.SyncPasses().WithLabelValues(source, outcome).Inc()
	observability.SyncAssignments().WithLabelValues(source, "inserted").Add(float64(result.Inserted))
	observability.SyncAssignments().WithLabelValues(source, "skipped").Add(float64(result.Skipped))
	observability.SyncDuration().WithLabelValues(source, string(trigger)).Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())

	return result
}

// merge inserts fetched items that are not yet stored. A store error stops the
// pass; rows inserted before it stay.
func (s *syncService) merge(ctx context.Context, connection models.SourceConnection, result *dto.SyncResult) error {
	adapter, err := s.factory(lms.ConnectionConfig{
		Source:    connection.Source,
		BaseURL:   connection.BaseURL,
		Token:     connection.Token,
		Connected: connection.Connected,
		AutoSync:  connection.AutoSync,
	})
	if err != nil {
		return err
	}

	fetched := adapter.FetchAssignments(ctx)
	result.Fetched = len(fetched)

	for i := range fetched {
		item := fetched[i]
		_, err := s.assignments.FindByDedupKey(ctx, item.Source, item.CourseName, item.Title)
		switch {
		case err == nil:
			result.Skipped++
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("lookup %q: %w", item.DedupKey(), err)
		}

		if err := s.assignments.Create(ctx, &item); err != nil {
			return fmt.Errorf("insert %q: %w", item.DedupKey(), err)
		}
		result.Inserted++
	}

	return nil
}
