package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"studentrecords/internal/config"
	"studentrecords/internal/database"
	"studentrecords/internal/export"
	"studentrecords/internal/handlers"
	"studentrecords/internal/logger"
	"studentrecords/internal/middleware"
	"studentrecords/internal/services"
	"studentrecords/pkg/rabbitmq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Configure(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	// --- Storage ---
	stores, err := database.Open(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to open storage")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := stores.Close(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to close storage")
		}
	}()

	// --- RabbitMQ (optional) ---
	var events services.EventPublisher
	if cfg.RabbitMQEnabled {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize RabbitMQ client")
		}
		defer mqClient.Close()
		events = mqClient

		if err := mqClient.ConsumeStudentEvents(rabbitmq.LogStudentEvent); err != nil {
			logger.Error().Err(err).Msg("failed to start RabbitMQ consumer")
		}
	}

	app := setupApp(cfg, stores, events)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("addr", cfg.AppPort).Str("driver", cfg.StorageDriver).Msg("starting server")
		if err := app.Listen(cfg.AppPort); err != nil {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-quit
	logger.Info().Msg("shutting down server")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("error during Fiber shutdown")
	}
	logger.Info().Msg("server gracefully stopped")
}

// setupApp wires services, handlers and middleware onto a new Fiber app.
// events may be nil.
func setupApp(cfg *config.Config, stores *database.Stores, events services.EventPublisher) *fiber.App {
	studentService := services.NewStudentService(stores.Students, events, services.ListingConfig{
		DefaultLimit: cfg.DefaultPageLimit,
		MaxLimit:     cfg.MaxPageLimit,
	})
	authService := services.NewAuthService(stores.Users, cfg.JWTSecret, cfg.JWTExpiration)
	exporter := export.New(cfg.ExportLocation)

	app := fiber.New(fiber.Config{
		AppName:      "Student Management System",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(fiberrecover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSAllowOrigins}))
	app.Use(middleware.RequestLogger())

	api := app.Group("/api")
	api.Get("/health", handlers.HandleHealth)

	// Authentication routes (public, except /auth/me)
	handlers.NewAuthHandler(authService).RegisterRoutes(api)

	// Student routes require a token
	handlers.NewStudentHandler(studentService, exporter).RegisterRoutes(api, middleware.AuthRequired(authService))

	return app
}
