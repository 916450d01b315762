package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SyncScheduler triggers sync passes at startup and on a fixed interval.
type SyncScheduler struct {
	syncer    SyncService
	interval  time.Duration
	onStartup bool
	logger    zerolog.Logger
}

// NewSyncScheduler builds a scheduler. A zero interval disables periodic passes.
func NewSyncScheduler(syncer SyncService, interval time.Duration, onStartup bool, logger zerolog.Logger) *SyncScheduler {
	return &SyncScheduler{
		syncer:    syncer,
		interval:  interval,
		onStartup: onStartup,
		logger:    logger.With().Str("component", "sync_scheduler").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (s *SyncScheduler) Run(ctx context.Context) {
	if s.onStartup {
		s.tick(ctx, TriggerStartup)
	}

	if s.interval <= 0 {
		s.logger.Debug().Msg("periodic sync disabled")
		return
	}

	s.logger.Info().Dur("interval", s.interval).Msg("sync scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sync scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx, TriggerScheduled)
		}
	}
}

func (s *SyncScheduler) tick(ctx context.Context, trigger SyncTrigger) {
	results, err := s.syncer.SyncAll(ctx, trigger)
	if err != nil {
		s.logger.Error().Err(err).Str("trigger", string(trigger)).Msg("sync run failed")
		return
	}

	inserted := 0
	for _, result := range results {
		inserted += result.Inserted
	}
	s.logger.Debug().Str("trigger", string(trigger)).Int("sources", len(results)).Int("inserted", inserted).Msg("sync run finished")
}
