package engine

import "github.com/gofiber/fiber/v2"

func RegisterValidationRoutes(app *fiber.App, h *Handler, mw ...fiber.Handler) {
	api := app.Group("/api", mw...)

	api.Post("/validate/:entity/:operation", h.Validate)
}
