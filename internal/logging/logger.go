package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithJob returns a logger with indexing job context fields attached.
// Use this for all logging within the queue consumer.
func WithJob(jobID, itemID string) *slog.Logger {
	return slog.With(
		"job_id", jobID,
		"item_id", itemID,
	)
}

// WithExport returns a logger scoped to one export request.
func WithExport(format, digest string) *slog.Logger {
	return slog.With(
		"format", format,
		"digest", digest,
	)
}
