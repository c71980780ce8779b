package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"sentinel-backend/internal/admin"
	"sentinel-backend/internal/auth"
	"sentinel-backend/internal/config"
	"sentinel-backend/internal/engine"
	"sentinel-backend/internal/metadata"
	"sentinel-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	if err := st.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap database: %v", err)
	}

	registry := metadata.NewRegistry()
	if err := metadata.LoadAll(ctx, st.Pool, registry); err != nil {
		log.Fatalf("Failed to load entity validations: %v", err)
	}

	validator := engine.NewValidator(
		engine.WithUniquenessOracle(store.NewOracle(st.Pool, registry)),
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.Auth)
	authHandler := auth.NewHandler(st, issuer)
	auth.RegisterRoutes(app, authHandler)

	authMW := auth.Middleware(issuer)
	auth.RegisterProtectedRoutes(app, authHandler, authMW)

	admin.RegisterRoutes(app, admin.NewHandler(st, registry), validator,
		authMW, auth.RequireAdmin())

	engine.RegisterValidationRoutes(app,
		engine.NewHandler(validator, registry, cfg.Validation.VerboseErrors), authMW)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// errorHandler maps application errors onto JSON responses. Unrecognized
// errors are logged and returned as opaque 500s.
func errorHandler(c *fiber.Ctx, err error) error {
	var appErr *engine.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(engine.ErrorResponse{
			Error: engine.NewAppError("HTTP_ERROR", fiberErr.Code, fiberErr.Message),
		})
	}

	log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(engine.ErrorResponse{
		Error: engine.NewAppError("INTERNAL_ERROR", 500, "Internal server error"),
	})
}
