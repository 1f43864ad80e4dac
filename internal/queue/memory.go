package queue

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"stackhub/internal/models"
)

// MemoryQueue implements Queue in process, for deployments without
// Redis and for tests. Same ack/nack/dead-letter semantics, no
// durability across restarts.
type MemoryQueue struct {
	mu          sync.Mutex
	pending     []string
	processing  map[string]bool
	dead        []string
	notify      chan struct{}
	maxAttempts int
}

// NewMemoryQueue creates an in-process queue.
func NewMemoryQueue(maxAttempts int) *MemoryQueue {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &MemoryQueue{
		processing:  make(map[string]bool),
		notify:      make(chan struct{}, 1),
		maxAttempts: maxAttempts,
	}
}

// Enqueue adds a work unit to the pending list.
func (q *MemoryQueue) Enqueue(ctx context.Context, job *models.IndexJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	q.mu.Lock()
	q.pending = append(q.pending, string(payload))
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue blocks until a unit is available or the context ends.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			raw := q.pending[0]
			q.pending = q.pending[1:]
			q.processing[raw] = true
			q.mu.Unlock()

			var job models.IndexJob
			if err := json.Unmarshal([]byte(raw), &job); err != nil {
				log.Printf("⚠️  [QUEUE] Dropping malformed job payload: %v", err)
				q.mu.Lock()
				delete(q.processing, raw)
				q.dead = append(q.dead, raw)
				q.mu.Unlock()
				continue
			}
			return &Delivery{Job: &job, raw: raw}, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

// Ack removes the settled unit from processing.
func (q *MemoryQueue) Ack(ctx context.Context, d *Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.processing, d.raw)
	return nil
}

// Nack requeues the unit or dead-letters it after the attempt budget.
func (q *MemoryQueue) Nack(ctx context.Context, d *Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.processing, d.raw)

	d.Job.Attempts++
	payload, err := json.Marshal(d.Job)
	if err != nil {
		return err
	}

	if d.Job.Attempts >= q.maxAttempts {
		log.Printf("💀 [QUEUE] Dead-lettering job %s for item %s after %d attempts",
			d.Job.JobID, d.Job.ItemID, d.Job.Attempts)
		q.dead = append(q.dead, string(payload))
		return nil
	}

	q.pending = append(q.pending, string(payload))
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of units waiting for delivery.
func (q *MemoryQueue) Pending(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.pending)), nil
}

// DeadCount returns the number of dead-lettered units.
func (q *MemoryQueue) DeadCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dead)
}

// Close is a no-op for the in-process queue.
func (q *MemoryQueue) Close() error {
	return nil
}
