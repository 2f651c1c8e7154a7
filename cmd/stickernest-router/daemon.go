// Package main provides the StickerNest router daemon: the pipeline router
// for one canvas scope plus the management API in front of it.
package main

import (
	"context"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/hkcm91/stickernest/pkg/cmd"
	"github.com/hkcm91/stickernest/pkg/eventbus"
	"github.com/hkcm91/stickernest/pkg/log"
	"github.com/hkcm91/stickernest/pkg/otelhelper"
	"github.com/hkcm91/stickernest/pkg/persistence"
	"github.com/hkcm91/stickernest/pkg/registry"
	"github.com/hkcm91/stickernest/pkg/router"
	"github.com/hkcm91/stickernest/pkg/services"
	"github.com/hkcm91/stickernest/pkg/web"
)

type Config struct {
	CanvasID    string
	Port        int
	DatabaseURL string
	EventBus    string
	WidgetsPath string
	Tracing     bool
}

type Daemon struct {
	config      Config
	logger      *slog.Logger
	registry    *registry.Registry
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	emissionBus eventbus.EmissionBus
	service     *services.Pipeline
	router      *router.Router
}

func NewDaemon(ctx context.Context, config Config) (*Daemon, error) {
	logger := log.WithModule("daemon").With("canvas_id", config.CanvasID)

	if config.Tracing {
		if _, err := otelhelper.NewTracer(ctx, "stickernest-router"); err != nil {
			return nil, err
		}
	}

	reg := cmd.NewRegistry(logger, config.WidgetsPath)

	store, err := cmd.NewPersistence(ctx, logger, config.DatabaseURL)
	if err != nil {
		return nil, err
	}

	eventBus := cmd.NewEventBus(config.EventBus, "stickernest-router", logger)
	emissionBus := cmd.NewEmissionBus(config.EventBus, "stickernest-router", logger)

	service := services.NewPipeline(store, reg, eventBus)

	rt := router.NewRouter(config.CanvasID, service, logger,
		router.WithEventPublisher(eventBus),
		router.WithEmissionBus(emissionBus),
	)

	return &Daemon{
		config:      config,
		logger:      logger,
		registry:    reg,
		persistence: store,
		eventBus:    eventBus,
		emissionBus: emissionBus,
		service:     service,
		router:      rt,
	}, nil
}

func (d *Daemon) App() *fiber.App {
	handlers := web.NewAPIHandlers(d.service, d.registry, validator.New())

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("StickerNest Router")
	})

	handlers.Register(app)

	return app
}

// Run starts the router and the API server, then blocks until the context
// is cancelled or a termination signal arrives.
func (d *Daemon) Run(ctx context.Context) error {
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.router.Start(runCtx); err != nil {
		return err
	}

	app := d.App()

	serveErr := make(chan error, 1)

	go func() {
		d.logger.Info("Starting API server", "port", d.config.Port)
		serveErr <- app.Listen(":" + strconv.Itoa(d.config.Port))
	}()

	select {
	case err := <-serveErr:
		d.shutdown(ctx)

		return err
	case <-runCtx.Done():
		d.logger.Info("Shutting down")

		if err := app.ShutdownWithContext(ctx); err != nil {
			d.logger.Error("Failed to shut down API server", "error", err)
		}

		d.shutdown(ctx)

		return nil
	}
}

func (d *Daemon) shutdown(ctx context.Context) {
	d.router.Close()

	if err := d.emissionBus.Close(); err != nil {
		d.logger.Error("Failed to close emission bus", "error", err)
	}

	if err := d.eventBus.Close(); err != nil {
		d.logger.Error("Failed to close event bus", "error", err)
	}

	if err := d.persistence.Close(ctx); err != nil {
		d.logger.Error("Failed to close persistence", "error", err)
	}
}
