package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyflow-api/internal/dto"
	"github.com/noah-isme/studyflow-api/internal/models"
	"github.com/noah-isme/studyflow-api/internal/service"
	"github.com/noah-isme/studyflow-api/internal/utils"
)

// SyncHandler triggers manual sync passes.
type SyncHandler struct {
	service service.SyncService
	logger  zerolog.Logger
}

// NewSyncHandler constructs a sync handler.
func NewSyncHandler(service service.SyncService, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		service: service,
		logger:  logger.With().Str("component", "sync_handler").Logger(),
	}
}

// Register binds the sync route.
func (h *SyncHandler) Register(router fiber.Router) {
	router.Post("", h.sync)
}

// sync runs every auto-sync source, or only ?source= when given.
func (h *SyncHandler) sync(c *fiber.Ctx) error {
	ctx := requestContext(c)

	if raw := strings.TrimSpace(c.Query("source")); raw != "" {
		source, ok := models.ParseSource(raw)
		if !ok || source == models.SourceManual {
			return utils.SendError(c, fiber.StatusBadRequest, errInvalidSource.Error())
		}

		result, err := h.service.SyncSource(ctx, source, service.TriggerManual)
		if err != nil {
			return h.handleError(c, err)
		}
		return utils.SendSuccess(c, "sync finished", dto.NewSyncSummary([]dto.SyncResult{result}))
	}

	results, err := h.service.SyncAll(ctx, service.TriggerManual)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "sync finished", dto.NewSyncSummary(results))
}

func (h *SyncHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrConnectionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "connection not found")
	case errors.Is(err, service.ErrSourceNotConnected), errors.Is(err, service.ErrUnknownSource):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("sync request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
