package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyflow-api/internal/dto"
	"github.com/noah-isme/studyflow-api/internal/models"
	"github.com/noah-isme/studyflow-api/internal/observability"
	"github.com/noah-isme/studyflow-api/internal/repository"
	"github.com/noah-isme/studyflow-api/internal/tracker"
)

// DashboardCacheKey is the Redis key holding the cached assignment snapshot.
// Tiers and stats are derived from it on every read.
const DashboardCacheKey = "dashboard:assignments"

// DashboardService produces the tiered overview of all assignments.
type DashboardService interface {
	GetDashboard(ctx context.Context) (dto.DashboardResponse, error)
	// Watch streams a fresh dashboard now and after every store change.
	Watch(ctx context.Context) (<-chan dto.DashboardResponse, func())
}

type dashboardService struct {
	assignments repository.AssignmentRepository
	feed        AssignmentFeed
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDashboardService builds the dashboard aggregator. The cache is optional.
func NewDashboardService(assignments repository.AssignmentRepository, feed AssignmentFeed, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DashboardService {
	service := &dashboardService{
		assignments: assignments,
		feed:        feed,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "dashboard_service").Logger(),
		now:         time.Now,
	}
	feed.OnChange(service.invalidate)
	return service
}

func (s *dashboardService) GetDashboard(ctx context.Context) (dto.DashboardResponse, error) {
	assignments, err := s.loadAssignments(ctx)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	return buildDashboard(assignments, s.now()), nil
}

func (s *dashboardService) loadAssignments(ctx context.Context) ([]models.Assignment, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, DashboardCacheKey).Result(); err == nil {
			var assignments []models.Assignment
			if unmarshalErr := json.Unmarshal([]byte(cached), &assignments); unmarshalErr == nil {
				observability.DashboardCache().WithLabelValues("hit").Inc()
				return assignments, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
		observability.DashboardCache().WithLabelValues("miss").Inc()
	}

	assignments, err := s.assignments.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.cacheTTL > 0 {
		payload, err := json.Marshal(assignments)
		if err == nil {
			if err := s.cache.Set(ctx, DashboardCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return assignments, nil
}

func (s *dashboardService) Watch(ctx context.Context) (<-chan dto.DashboardResponse, func()) {
	updates, stop := s.feed.Observe(ctx, s.assignments.List)
	out := make(chan dto.DashboardResponse, 1)

	go func() {
		defer close(out)
		for assignments := range updates {
			dashboard := buildDashboard(assignments, s.now())
			select {
			case out <- dashboard:
			default:
				select {
				case <-out:
				default:
				}
				out <- dashboard
			}
		}
	}()

	return out, stop
}

func (s *dashboardService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, DashboardCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate dashboard cache")
	}
}

func buildDashboard(assignments []models.Assignment, now time.Time) dto.DashboardResponse {
	return dto.NewDashboardResponse(
		tracker.Classify(assignments, now),
		tracker.CompletedView(assignments),
		tracker.ComputeStats(assignments, now),
		now,
	)
}
