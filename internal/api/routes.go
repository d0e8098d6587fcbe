package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/conversa/conversa-backend/internal/api/handlers"
	"github.com/conversa/conversa-backend/internal/services"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, svc *services.Services) {
	api := app.Group("/api/v1")

	// Session management
	api.Post("/sessions", handlers.CreateSession(svc))
	api.Get("/sessions/:id", handlers.GetSession(svc))
	api.Delete("/sessions/:id", handlers.DeactivateSession(svc))

	// Conversation flow
	api.Get("/sessions/:id/messages", handlers.GetSessionMessages(svc))
	api.Post("/sessions/:id/messages", handlers.SendMessage(svc))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "conversa-backend",
		})
	})
}
