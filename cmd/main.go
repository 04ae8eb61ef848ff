package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/folio/internal/api"
	"github.com/bilgisen/folio/internal/app"
	"github.com/bilgisen/folio/internal/config"
	"github.com/bilgisen/folio/internal/logger"
	"github.com/bilgisen/folio/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: cfg.LogFile,
		Pretty: cfg.LogPretty,
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Msg("Starting application...")

	services, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer func() {
		log.Info().Msg("Closing connections...")
		if err := services.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing connections")
		}
	}()

	// Create Fiber app with custom config
	server := fiber.New(fiber.Config{
		ReadTimeout:           cfg.HTTPTimeout,
		WriteTimeout:          cfg.HTTPTimeout,
		IdleTimeout:           120 * time.Second,
		ErrorHandler:          middleware.ErrorHandler,
		DisableStartupMessage: cfg.IsProduction(),
	})

	// Global middleware
	server.Use(recover.New())
	server.Use(middleware.RequestLogger())
	server.Use(middleware.CanonicalHost(cfg.CanonicalHost))
	server.Use(middleware.SecurityHeaders())
	server.Use(middleware.CacheHeaders())
	server.Use(middleware.ResourceHints())
	server.Use(compress.New())

	api.SetupRoutes(server, api.NewHandlers(services.Posts, cfg.SiteURL), services.Images, cfg.AdminAPIKey)

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := server.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
