package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/noah-isme/studyflow-api/internal/handler"
	"github.com/noah-isme/studyflow-api/internal/middleware"
	"github.com/noah-isme/studyflow-api/internal/router"
	"github.com/noah-isme/studyflow-api/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, live updates and the sync scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, serve)
	},
}

func serve(ctx context.Context, c *container) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.feed.Start(ctx)
	go service.NewSyncScheduler(c.syncer, c.cfg.SyncInterval, c.cfg.SyncOnStartup, c.logger).Run(ctx)

	app := newApp(c)

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info().Str("addr", c.cfg.HTTPAddress()).Msg("http server listening")
		errCh <- app.Listen(c.cfg.HTTPAddress())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		c.logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}

	c.logger.Info().Msg("server stopped")
	return nil
}

func newApp(c *container) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      c.cfg.AppName,
		ServerHeader: c.cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &c.logger})

	loc, _ := c.cfg.Location()
	probes := map[string]handler.HealthProbe{"database": c.pingDatabase}
	if c.redis != nil {
		probes["redis"] = c.pingRedis
	}
	if c.nats != nil {
		probes["nats"] = c.pingNATS
	}

	deps := router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(c.assignments, c.validate, c.logger, loc),
		DashboardHandler:  handler.NewDashboardHandler(c.dashboard, c.logger),
		LiveHandler:       handler.NewLiveHandler(c.dashboard, c.logger, c.cfg.LiveKeepAlive),
		ConnectionHandler: handler.NewConnectionHandler(c.connections, c.validate, c.logger),
		SyncHandler:       handler.NewSyncHandler(c.syncer, c.logger),
		HealthProbes:      probes,
	}
	if c.cfg.JWTSecret != "" {
		deps.JWTMiddleware = middleware.JWTProtected(c.cfg.JWTSecret)
	}

	router.Register(app, c.cfg, deps)
	return app
}
