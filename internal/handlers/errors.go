package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"stackhub/internal/models"
)

// fail maps service errors onto HTTP statuses with a JSON error body.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrUnsupportedFormat):
		status = fiber.StatusBadRequest
	case errors.Is(err, models.ErrUpstream):
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
