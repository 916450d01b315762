package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/studyflow-api/internal/dto"
	"github.com/noah-isme/studyflow-api/internal/models"
	"github.com/noah-isme/studyflow-api/internal/repository"
	"github.com/noah-isme/studyflow-api/pkg/lms"
)

var (
	// ErrUnknownSource rejects sources without an adapter.
	ErrUnknownSource = errors.New("unsupported assignment source")
	// ErrBaseURLRequired is returned when connecting Canvas without an instance URL.
	ErrBaseURLRequired = errors.New("base_url is required for canvas")
)

// ConnectionService manages LMS credentials and connection tests.
type ConnectionService interface {
	List(ctx context.Context) ([]dto.ConnectionResponse, error)
	Connect(ctx context.Context, source models.AssignmentSource, payload dto.ConnectRequest) (dto.ConnectResponse, error)
	SetAutoSync(ctx context.Context, source models.AssignmentSource, enabled bool) (dto.ConnectionResponse, error)
	Test(ctx context.Context, source models.AssignmentSource) (dto.ConnectionTestResponse, error)
	Disconnect(ctx context.Context, source models.AssignmentSource) error
	// Bootstrap stores configured credentials for sources that have none yet.
	Bootstrap(ctx context.Context, configs []lms.ConnectionConfig) error
}

type connectionService struct {
	repo      repository.ConnectionRepository
	factory   AdapterFactory
	syncer    SyncService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewConnectionService builds the connection manager.
func NewConnectionService(repo repository.ConnectionRepository, factory AdapterFactory, syncer SyncService, validate *validator.Validate, logger zerolog.Logger) ConnectionService {
	return &connectionService{
		repo:      repo,
		factory:   factory,
		syncer:    syncer,
		validator: validate,
		logger:    logger.With().Str("component", "connection_service").Logger(),
	}
}

// Supported reports whether an adapter exists for the source.
func Supported(source models.AssignmentSource) bool {
	return source == models.SourceCanvas || source == models.SourceGoogleClassroom
}

func (s *connectionService) List(ctx context.Context) ([]dto.ConnectionResponse, error) {
	connections, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewConnectionResponseSlice(connections), nil
}

func (s *connectionService) Connect(ctx context.Context, source models.AssignmentSource, payload dto.ConnectRequest) (dto.ConnectResponse, error) {
	if !Supported(source) {
		return dto.ConnectResponse{}, ErrUnknownSource
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ConnectResponse{}, err
	}
	if source == models.SourceCanvas && strings.TrimSpace(payload.BaseURL) == "" {
		return dto.ConnectResponse{}, ErrBaseURLRequired
	}

	autoSync := true
	if payload.AutoSync != nil {
		autoSync = *payload.AutoSync
	}

	connection := models.SourceConnection{
		Source:   source,
		BaseURL:  strings.TrimSpace(payload.BaseURL),
		Token:    strings.TrimSpace(payload.Token),
		AutoSync: autoSync,
	}
	existing, err := s.load(ctx, source)
	switch {
	case err == nil:
		connection.LastTestedAt = existing.LastTestedAt
		connection.LastSyncedAt = existing.LastSyncedAt
	case !errors.Is(err, ErrConnectionNotFound):
		return dto.ConnectResponse{}, err
	}
	if err := s.repo.Save(ctx, &connection); err != nil {
		return dto.ConnectResponse{}, err
	}

	connected, err := s.probe(ctx, connection)
	if err != nil {
		return dto.ConnectResponse{}, err
	}

	response := dto.ConnectResponse{}
	if connected {
		result, err := s.syncer.SyncSource(ctx, source, TriggerConnect)
		if err != nil {
			s.logger.Warn().Err(err).Str("source", string(source)).Msg("initial sync failed")
		} else {
			response.Sync = &result
		}
	}

	stored, err := s.load(ctx, source)
	if err != nil {
		return dto.ConnectResponse{}, err
	}
	response.Connection = dto.NewConnectionResponse(stored)

	s.logger.Info().Str("source", string(source)).Bool("connected", connected).Msg("connection stored")
	return response, nil
}

func (s *connectionService) SetAutoSync(ctx context.Context, source models.AssignmentSource, enabled bool) (dto.ConnectionResponse, error) {
	connection, err := s.load(ctx, source)
	if err != nil {
		return dto.ConnectionResponse{}, err
	}

	connection.AutoSync = enabled
	if err := s.repo.Save(ctx, &connection); err != nil {
		return dto.ConnectionResponse{}, err
	}
	return dto.NewConnectionResponse(connection), nil
}

func (s *connectionService) Test(ctx context.Context, source models.AssignmentSource) (dto.ConnectionTestResponse, error) {
	connection, err := s.load(ctx, source)
	if err != nil {
		return dto.ConnectionTestResponse{}, err
	}

	connected, err := s.probe(ctx, connection)
	if err != nil {
		return dto.ConnectionTestResponse{}, err
	}
	return dto.ConnectionTestResponse{Source: string(source), Connected: connected}, nil
}

// Disconnect forgets the token; already imported assignments are kept.
func (s *connectionService) Disconnect(ctx context.Context, source models.AssignmentSource) error {
	connection, err := s.load(ctx, source)
	if err != nil {
		return err
	}

	connection.Token = ""
	connection.Connected = false
	if err := s.repo.Save(ctx, &connection); err != nil {
		return err
	}

	s.logger.Info().Str("source", string(source)).Msg("source disconnected")
	return nil
}

func (s *connectionService) Bootstrap(ctx context.Context, configs []lms.ConnectionConfig) error {
	for _, cfg := range configs {
		if strings.TrimSpace(cfg.Token) == "" || !Supported(cfg.Source) {
			continue
		}

		_, err := s.repo.Get(ctx, cfg.Source)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		connection := models.SourceConnection{
			Source:   cfg.Source,
			BaseURL:  cfg.BaseURL,
			Token:    cfg.Token,
			AutoSync: true,
		}
		if err := s.repo.Save(ctx, &connection); err != nil {
			return err
		}
		if _, err := s.probe(ctx, connection); err != nil {
			return err
		}
		s.logger.Info().Str("source", string(cfg.Source)).Msg("connection bootstrapped from configuration")
	}
	return nil
}

func (s *connectionService) probe(ctx context.Context, connection models.SourceConnection) (bool, error) {
	adapter, err := s.factory(lms.ConnectionConfig{
		Source:    connection.Source,
		BaseURL:   connection.BaseURL,
		Token:     connection.Token,
		Connected: connection.Connected,
		AutoSync:  connection.AutoSync,
	})
	if err != nil {
		if errors.Is(err, lms.ErrUnsupportedSource) {
			return false, ErrUnknownSource
		}
		return false, err
	}
	return adapter.TestConnection(ctx), nil
}

func (s *connectionService) load(ctx context.Context, source models.AssignmentSource) (models.SourceConnection, error) {
	connection, err := s.repo.Get(ctx, source)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.SourceConnection{}, ErrConnectionNotFound
		}
		return models.SourceConnection{}, err
	}
	return connection, nil
}

// connectionRecorder persists adapter test outcomes.
type connectionRecorder struct {
	repo repository.ConnectionRepository
	now  func() time.Time
}

// NewConnectionRecorder returns an lms.ConnectionRecorder backed by the repository.
func NewConnectionRecorder(repo repository.ConnectionRepository) lms.ConnectionRecorder {
	return &connectionRecorder{repo: repo, now: time.Now}
}

func (r *connectionRecorder) RecordConnection(ctx context.Context, source models.AssignmentSource, connected bool) error {
	return r.repo.SetConnected(ctx, source, connected, r.now())
}
