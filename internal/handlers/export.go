package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"stackhub/internal/services"
)

// ExportHandler handles bundle export and share-link requests
type ExportHandler struct {
	exportService *services.ExportService
}

// NewExportHandler creates a new export handler
func NewExportHandler(exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// Export renders the selected items in the requested mode and serves
// the artifact as a plain-text download
func (h *ExportHandler) Export(c *fiber.Ctx) error {
	mode := c.Query("mode")
	ids := splitIDs(c.Query("ids"))

	result, err := h.exportService.GetOrCreate(c.Context(), mode, ids)
	if err != nil {
		return fail(c, err)
	}

	for k, v := range result.Headers {
		c.Set(k, v)
	}
	return c.SendString(result.Content)
}

// Share serves a previously exported artifact by digest
func (h *ExportHandler) Share(c *fiber.Ctx) error {
	result, err := h.exportService.Share(c.Context(), c.Params("digest"))
	if err != nil {
		return fail(c, err)
	}

	for k, v := range result.Headers {
		c.Set(k, v)
	}
	return c.SendString(result.Content)
}

// splitIDs parses a comma-separated id list, dropping empty segments.
func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
