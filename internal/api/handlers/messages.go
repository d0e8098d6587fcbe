package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/conversa/conversa-backend/internal/repository"
	"github.com/conversa/conversa-backend/internal/services"
)

// SendMessage runs the full conversation flow: record the user message,
// build the bounded window, invoke the agent, record and return the reply.
func SendMessage(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Params("id")
		if !validSessionID(sessionID) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}

		var req struct {
			Content string `json:"content"`
		}

		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		if strings.TrimSpace(req.Content) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Message content is required",
			})
		}

		exchange, err := svc.Chat.Respond(c.Context(), sessionID, req.Content)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Session not found",
				})
			}
			if errors.Is(err, services.ErrSessionRace) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(exchange)
	}
}
