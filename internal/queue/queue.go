// Package queue delivers indexing work units with at-least-once
// semantics and an explicit acknowledge/negative-acknowledge contract.
// A nacked unit is redelivered until MaxAttempts, then moved to a
// dead-letter list so a poison job can never loop forever.
package queue

import (
	"context"

	"stackhub/internal/models"
)

// DefaultMaxAttempts bounds redelivery before dead-lettering.
const DefaultMaxAttempts = 5

// Delivery is one in-flight work unit. It must be settled exactly once
// via Ack or Nack.
type Delivery struct {
	Job *models.IndexJob

	// raw is the serialized payload as it sits in the processing list;
	// needed to remove exactly this entry on settle.
	raw string
}

// Queue is the durable indexing work queue.
type Queue interface {
	// Enqueue adds a work unit to the pending list.
	Enqueue(ctx context.Context, job *models.IndexJob) error

	// Dequeue blocks until a unit is available or the context ends.
	// The unit stays in the processing list until settled.
	Dequeue(ctx context.Context) (*Delivery, error)

	// Ack marks the unit done and removes it from processing.
	Ack(ctx context.Context, d *Delivery) error

	// Nack returns the unit for redelivery, or dead-letters it once the
	// attempt budget is spent.
	Nack(ctx context.Context, d *Delivery) error

	// Pending returns the number of units waiting for delivery.
	Pending(ctx context.Context) (int64, error)

	// Close releases queue resources.
	Close() error
}
