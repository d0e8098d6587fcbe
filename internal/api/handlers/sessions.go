package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/conversa/conversa-backend/internal/repository"
	"github.com/conversa/conversa-backend/internal/services"
)

// sessions.id is a uuid column; a malformed path id would otherwise reach
// the driver as a cast error and surface as a 500.
func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CreateSession creates a new chat session
func CreateSession(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := svc.Chat.CreateSession(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(session)
	}
}

// GetSession returns an active session
func GetSession(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Params("id")
		if !validSessionID(sessionID) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}

		session, err := svc.Chat.GetActiveSession(c.Context(), sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Session not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(session)
	}
}

// DeactivateSession soft-closes a session
func DeactivateSession(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Params("id")
		if !validSessionID(sessionID) {
			// Same answer as a session that never existed.
			return c.JSON(fiber.Map{
				"deactivated": false,
			})
		}

		deactivated, err := svc.Chat.DeactivateSession(c.Context(), sessionID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"deactivated": deactivated,
		})
	}
}

// GetSessionMessages returns a session's full history
func GetSessionMessages(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Params("id")
		if !validSessionID(sessionID) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}

		messages, err := svc.Chat.GetMessages(c.Context(), sessionID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"messages": messages,
		})
	}
}
