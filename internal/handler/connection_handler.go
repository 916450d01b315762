package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyflow-api/internal/dto"
	"github.com/noah-isme/studyflow-api/internal/service"
	"github.com/noah-isme/studyflow-api/internal/utils"
)

// ConnectionHandler manages LMS source credentials.
type ConnectionHandler struct {
	service   service.ConnectionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewConnectionHandler constructs a connection handler.
func NewConnectionHandler(service service.ConnectionService, validator *validator.Validate, logger zerolog.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "connection_handler").Logger(),
	}
}

// Register binds the connection routes.
func (h *ConnectionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Put("/:source", h.connect)
	router.Patch("/:source", h.setAutoSync)
	router.Post("/:source/test", h.test)
	router.Delete("/:source", h.disconnect)
}

func (h *ConnectionHandler) list(c *fiber.Ctx) error {
	connections, err := h.service.List(requestContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "connections retrieved", connections)
}

func (h *ConnectionHandler) connect(c *fiber.Ctx) error {
	source, err := parseSourceParam(c, "source")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ConnectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Connect(requestContext(c), source, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	message := "connection saved"
	if !response.Connection.Connected {
		message = "connection saved but the source could not be reached"
	}
	return utils.SendSuccess(c, message, response)
}

func (h *ConnectionHandler) setAutoSync(c *fiber.Ctx) error {
	source, err := parseSourceParam(c, "source")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AutoSyncRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	connection, err := h.service.SetAutoSync(requestContext(c), source, *payload.AutoSync)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "auto-sync updated", connection)
}

func (h *ConnectionHandler) test(c *fiber.Ctx) error {
	source, err := parseSourceParam(c, "source")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Test(requestContext(c), source)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "connection tested", result)
}

func (h *ConnectionHandler) disconnect(c *fiber.Ctx) error {
	source, err := parseSourceParam(c, "source")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Disconnect(requestContext(c), source); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "connection removed", fiber.Map{"source": source})
}

func (h *ConnectionHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrConnectionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "connection not found")
	case errors.Is(err, service.ErrUnknownSource), errors.Is(err, service.ErrBaseURLRequired):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("connection request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
