package handlers

import (
	"github.com/gofiber/fiber/v2"

	"stackhub/internal/services"
)

// SearchHandler handles semantic search and reindex requests
type SearchHandler struct {
	indexService *services.IndexService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(indexService *services.IndexService) *SearchHandler {
	return &SearchHandler{indexService: indexService}
}

// Search returns items ranked by similarity to the query
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	items, err := h.indexService.Search(c.Context(), c.Query("q"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"items": items,
	})
}

// Reindex rebuilds the vector index from the item store
func (h *SearchHandler) Reindex(c *fiber.Ctx) error {
	count, err := h.indexService.Reindex(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"ok":    true,
		"count": count,
	})
}
