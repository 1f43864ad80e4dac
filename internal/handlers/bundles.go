package handlers

import (
	"github.com/gofiber/fiber/v2"

	"stackhub/internal/models"
	"stackhub/internal/services"
)

// BundleHandler handles curated bundle and selection validation requests
type BundleHandler struct {
	bundleService *services.BundleService
}

// NewBundleHandler creates a new bundle handler
func NewBundleHandler(bundleService *services.BundleService) *BundleHandler {
	return &BundleHandler{bundleService: bundleService}
}

// List returns the curated bundle presets
func (h *BundleHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"bundles": h.bundleService.List(),
	})
}

// Validate reports port collisions across the selected items
func (h *BundleHandler) Validate(c *fiber.Ctx) error {
	conflicts, err := h.bundleService.ValidatePorts(c.Context(), splitIDs(c.Query("ids")))
	if err != nil {
		return fail(c, err)
	}
	if conflicts == nil {
		conflicts = []models.PortConflict{}
	}
	return c.JSON(fiber.Map{
		"ok":        len(conflicts) == 0,
		"conflicts": conflicts,
	})
}
