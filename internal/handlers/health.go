package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"stackhub/internal/database"
	"stackhub/internal/queue"
	"stackhub/internal/vecindex"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db    *database.DB
	queue queue.Queue
	index *vecindex.Index
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, q queue.Queue, index *vecindex.Index) *HealthHandler {
	return &HealthHandler{db: db, queue: q, index: index}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	status := "healthy"
	if err := h.db.Ping(); err != nil {
		status = "degraded"
	}

	pending := int64(0)
	if h.queue != nil {
		if n, err := h.queue.Pending(c.Context()); err == nil {
			pending = n
		}
	}

	indexed := 0
	if h.index != nil {
		if n, err := h.index.Count(c.Context()); err == nil {
			indexed = n
		}
	}

	return c.JSON(fiber.Map{
		"status":        status,
		"queue_pending": pending,
		"indexed_items": indexed,
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}
