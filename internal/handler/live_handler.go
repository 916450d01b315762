package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyflow-api/internal/dto"
	"github.com/noah-isme/studyflow-api/internal/service"
)

const liveEventName = "dashboard"

// LiveHandler pushes a fresh dashboard to clients whenever assignments change.
type LiveHandler struct {
	service   service.DashboardService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewLiveHandler constructs the live update handler.
func NewLiveHandler(service service.DashboardService, logger zerolog.Logger, keepAlive time.Duration) *LiveHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &LiveHandler{
		service:   service,
		logger:    logger.With().Str("component", "live_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register binds the SSE stream and the websocket upgrade.
func (h *LiveHandler) Register(router fiber.Router) {
	router.Get("/stream", h.stream)

	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *LiveHandler) stream(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(requestContext(c))
	updates, stop := h.service.Watch(ctx)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			stop()
			cancel()
		}()

		ticker := time.NewTicker(h.keepAlive / 2)
		defer ticker.Stop()

		for {
			select {
			case dashboard, ok := <-updates:
				if !ok {
					return
				}
				if err := writeDashboardEvent(w, dashboard); err != nil {
					h.logger.Debug().Err(err).Msg("live stream closed")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					h.logger.Debug().Err(err).Msg("live keepalive failed")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func (h *LiveHandler) handleConnection(conn *websocket.Conn) {
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	updates, stop := h.service.Watch(ctx)
	defer stop()

	// Clients only listen; a read error means the peer went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Info().Msg("live websocket connected")
	defer h.logger.Info().Msg("live websocket disconnected")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case dashboard, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(liveMessage{Event: liveEventName, Data: dashboard}); err != nil {
				h.logger.Debug().Err(err).Msg("live write loop terminated")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				h.logger.Debug().Err(err).Msg("live ping failed")
				return
			}
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

type liveMessage struct {
	Event string                `json:"event"`
	Data  dto.DashboardResponse `json:"data"`
}

func writeDashboardEvent(w *bufio.Writer, dashboard dto.DashboardResponse) error {
	payload, err := json.Marshal(dashboard)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", liveEventName); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
