package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"stackhub/internal/models"
	"stackhub/internal/services"
)

// ItemHandler handles catalog item requests
type ItemHandler struct {
	itemService *services.ItemService
}

// NewItemHandler creates a new item handler
func NewItemHandler(itemService *services.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

// List returns every catalog item
func (h *ItemHandler) List(c *fiber.Ctx) error {
	items, err := h.itemService.List(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"items": items,
	})
}

// Upsert validates and stores one item, queueing it for indexing
func (h *ItemHandler) Upsert(c *fiber.Ctx) error {
	var item models.Item
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body: " + err.Error(),
		})
	}

	queued, err := h.itemService.Upsert(c.Context(), &item)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"ok":     true,
		"queued": queued,
	})
}
