// Package main provides the Blitz chat and pipeline configuration API server.
package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/blitz/pkg/credentials"
	"github.com/dukex/blitz/pkg/registry"
	"github.com/dukex/blitz/pkg/services"
	"github.com/dukex/blitz/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type API struct {
	logger      *slog.Logger
	workflows   *services.Workflow
	chat        *services.Chat
	credentials credentials.Store
	registry    *registry.Registry
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	workflows *services.Workflow,
	chat *services.Chat,
	credentialStore credentials.Store,
	registry *registry.Registry,
) *API {
	return &API{
		logger:      logger,
		workflows:   workflows,
		chat:        chat,
		credentials: credentialStore,
		registry:    registry,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.workflows, a.chat, a.credentials, a.validate, a.registry)

	app := fiber.New(fiber.Config{
		AppName:      "blitz-api",
		ErrorHandler: web.ErrorHandler,
	})
	app.Use(cors.New(), logger.New(logger.Config{DisableColors: true}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			_, ok := a.workflows.HealthCheck(c.Context())

			return ok
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Blitz API")
	})

	handlers.Register(app)

	return app
}

// Serve listens on port until ctx is cancelled, then shuts the server down.
func (a *API) Serve(ctx context.Context, port int) error {
	app := a.App()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "Starting API server", "port", port)

		return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.InfoContext(ctx, "Shutting down API server")

		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	return g.Wait()
}
