package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"lptrack/internal/config"
	"lptrack/internal/export"
	"lptrack/internal/importer"
	"lptrack/internal/service"
	"lptrack/internal/store"
)

func main() {
	ctx := context.Background()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log.Info().Int("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Msg("config loaded")

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	// 3. Create record tables
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("bootstrap tables")
	}
	log.Info().Msg("record tables ready")

	// 4. Seed empty tables from the CSV drop directory
	seeder := importer.New(db, log)
	if err := seeder.SeedFromDir(ctx, cfg.Import.Dir); err != nil {
		log.Warn().Err(err).Str("dir", cfg.Import.Dir).Msg("csv seed failed")
	}

	// 5. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler(log),
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 6. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 7. Register record and analytics routes
	exporter := export.NewExporter(db, cfg.Export.Dir)
	handler := service.NewHandler(db, exporter, log)
	service.RegisterRoutes(app, handler)

	// 8. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("starting server")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func errorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var apiErr *service.APIError
		if errors.As(err, &apiErr) {
			return c.Status(apiErr.Status).JSON(apiErr)
		}

		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			return c.Status(code).JSON(service.APIError{Detail: fiberErr.Message})
		}

		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.Status(code).JSON(service.APIError{Detail: "Internal server error"})
	}
}
