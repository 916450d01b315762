package commands

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/studyflow-api/internal/config"
	"github.com/noah-isme/studyflow-api/internal/database"
	"github.com/noah-isme/studyflow-api/internal/models"
	"github.com/noah-isme/studyflow-api/internal/repository"
	"github.com/noah-isme/studyflow-api/internal/service"
	"github.com/noah-isme/studyflow-api/pkg/lms"
)

// container holds the wired services shared by every command.
type container struct {
	cfg      config.Config
	logger   zerolog.Logger
	db       *gorm.DB
	redis    *redis.Client
	nats     *nats.Conn
	validate *validator.Validate

	assignmentRepo repository.AssignmentRepository
	connectionRepo repository.ConnectionRepository

	feed        service.AssignmentFeed
	assignments service.AssignmentService
	dashboard   service.DashboardService
	syncer      service.SyncService
	connections service.ConnectionService
}

func newContainer(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*container, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	c := &container{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	if cfg.RedisURL != "" {
		client, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			c.close()
			return nil, err
		}
		c.redis = client
	}

	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			c.close()
			return nil, err
		}
		c.nats = conn
	}

	c.assignmentRepo = repository.NewAssignmentRepository(db)
	c.connectionRepo = repository.NewConnectionRepository(db)

	loc, err := cfg.Location()
	if err != nil {
		c.close()
		return nil, err
	}

	adapterOpts := lms.Options{
		Timeout:  cfg.LMSTimeout,
		Recorder: service.NewConnectionRecorder(c.connectionRepo),
		Location: loc,
		Logger:   logger,
	}
	factory := func(conn lms.ConnectionConfig) (lms.Adapter, error) {
		return lms.New(conn, adapterOpts)
	}

	c.feed = service.NewAssignmentFeed(c.redis, cfg.LiveChannel, c.nats, logger)
	c.assignments = service.NewAssignmentService(c.assignmentRepo, c.feed, c.validate, logger)
	c.dashboard = service.NewDashboardService(c.assignmentRepo, c.feed, c.redis, cfg.DashboardCacheTTL, logger)
	c.syncer = service.NewSyncService(c.assignmentRepo, c.connectionRepo, factory, c.feed, logger)
	c.connections = service.NewConnectionService(c.connectionRepo, factory, c.syncer, c.validate, logger)

	if err := c.connections.Bootstrap(ctx, c.seedConnections()); err != nil {
		logger.Warn().Err(err).Msg("failed to store configured lms credentials")
	}

	return c, nil
}

// seedConnections turns credentials from the environment into connection configs.
func (c *container) seedConnections() []lms.ConnectionConfig {
	var seeds []lms.ConnectionConfig
	if c.cfg.CanvasToken != "" {
		seeds = append(seeds, lms.ConnectionConfig{
			Source:   models.SourceCanvas,
			BaseURL:  c.cfg.CanvasBaseURL,
			Token:    c.cfg.CanvasToken,
			AutoSync: true,
		})
	}
	if c.cfg.ClassroomToken != "" {
		seeds = append(seeds, lms.ConnectionConfig{
			Source:   models.SourceGoogleClassroom,
			BaseURL:  c.cfg.ClassroomAPIBase,
			Token:    c.cfg.ClassroomToken,
			AutoSync: true,
		})
	}
	return seeds
}

func (c *container) pingDatabase(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *container) pingRedis(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

func (c *container) pingNATS(context.Context) error {
	if !c.nats.IsConnected() {
		return errors.New(c.nats.Status().String())
	}
	return nil
}

func (c *container) close() {
	if c.nats != nil {
		c.nats.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to close redis")
		}
	}
	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
