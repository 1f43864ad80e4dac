package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"stackhub/internal/models"
)

const (
	pendingKey    = "stackhub:index:pending"
	processingKey = "stackhub:index:processing"
	deadKey       = "stackhub:index:dead"

	pollTimeout = 2 * time.Second
)

// RedisQueue is the durable queue implementation backed by Redis lists.
// Enqueue pushes to pending; Dequeue atomically moves the unit to a
// processing list (BLMOVE) so a crashed consumer leaves it visible for
// recovery instead of losing it.
type RedisQueue struct {
	client      *redis.Client
	maxAttempts int
}

// NewRedisQueue creates a queue over an existing Redis client.
func NewRedisQueue(client *redis.Client, maxAttempts int) *RedisQueue {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &RedisQueue{client: client, maxAttempts: maxAttempts}
}

// Enqueue adds a work unit to the pending list.
func (q *RedisQueue) Enqueue(ctx context.Context, job *models.IndexJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal index job: %w", err)
	}
	if err := q.client.LPush(ctx, pendingKey, payload).Err(); err != nil {
		return fmt.Errorf("%w: enqueue index job: %v", models.ErrStorage, err)
	}
	return nil
}

// Dequeue blocks until a unit is available or the context ends.
func (q *RedisQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	for {
		raw, err := q.client.BLMove(ctx, pendingKey, processingKey, "RIGHT", "LEFT", pollTimeout).Result()
		if err == nil {
			var job models.IndexJob
			if uerr := json.Unmarshal([]byte(raw), &job); uerr != nil {
				// Malformed payload: drop it to the dead list, keep consuming.
				log.Printf("⚠️  [QUEUE] Dropping malformed job payload: %v", uerr)
				q.client.LRem(ctx, processingKey, 1, raw)
				q.client.LPush(ctx, deadKey, raw)
				continue
			}
			return &Delivery{Job: &job, raw: raw}, nil
		}
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: dequeue index job: %v", models.ErrStorage, err)
	}
}

// Ack removes the settled unit from the processing list.
func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.client.LRem(ctx, processingKey, 1, d.raw).Err(); err != nil {
		return fmt.Errorf("%w: ack index job: %v", models.ErrStorage, err)
	}
	return nil
}

// Nack requeues the unit with an incremented attempt count, or moves it
// to the dead-letter list once the budget is spent.
func (q *RedisQueue) Nack(ctx context.Context, d *Delivery) error {
	if err := q.client.LRem(ctx, processingKey, 1, d.raw).Err(); err != nil {
		return fmt.Errorf("%w: nack index job: %v", models.ErrStorage, err)
	}

	d.Job.Attempts++
	payload, err := json.Marshal(d.Job)
	if err != nil {
		return fmt.Errorf("failed to marshal index job: %w", err)
	}

	target := pendingKey
	if d.Job.Attempts >= q.maxAttempts {
		target = deadKey
		log.Printf("💀 [QUEUE] Dead-lettering job %s for item %s after %d attempts",
			d.Job.JobID, d.Job.ItemID, d.Job.Attempts)
	}
	if err := q.client.LPush(ctx, target, payload).Err(); err != nil {
		return fmt.Errorf("%w: requeue index job: %v", models.ErrStorage, err)
	}
	return nil
}

// Pending returns the number of units waiting for delivery.
func (q *RedisQueue) Pending(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, pendingKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: queue length: %v", models.ErrStorage, err)
	}
	return n, nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (q *RedisQueue) Close() error {
	return nil
}
