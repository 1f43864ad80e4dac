package models

import "errors"

// Error taxonomy shared across services and handlers. Services wrap these
// with %w and context; handlers map them to HTTP status codes with errors.Is.
var (
	// ErrNotFound covers unknown item ids and unknown share digests.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFormat is returned for an unrecognized export mode.
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrValidation covers malformed input: missing required fields, empty id lists.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream covers embedding-function or vector-index failures.
	// Indexing jobs are retried on it; synchronous search surfaces it as a 5xx.
	ErrUpstream = errors.New("upstream dependency failed")

	// ErrStorage covers blob or durable-store write errors. Never swallowed
	// before a write is confirmed.
	ErrStorage = errors.New("storage failure")
)
