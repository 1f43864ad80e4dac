package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"stackhub/internal/embedding"
	"stackhub/internal/logging"
	"stackhub/internal/models"
	"stackhub/internal/queue"
	"stackhub/internal/vecindex"
)

const (
	// reindexBatchSize bounds vector-index writes per batch during a
	// full rebuild, matching typical index API limits.
	reindexBatchSize = 64

	// searchTopK is the neighbor count fetched per search query.
	searchTopK = 20

	// embedTimeout is the caller-side budget for one embedding call; a
	// hung embedding backend fails the unit instead of stalling the
	// worker.
	embedTimeout = 30 * time.Second
)

// IndexService keeps the vector index consistent with the item store.
// It consumes queued work units (one embed + upsert per changed item),
// runs full rebuilds, and answers semantic search queries.
type IndexService struct {
	items   *ItemService
	index   *vecindex.Index
	engine  embedding.Engine
	queue   queue.Queue
	metrics *Metrics

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewIndexService creates a new index service
func NewIndexService(items *ItemService, index *vecindex.Index, engine embedding.Engine, q queue.Queue, metrics *Metrics) *IndexService {
	return &IndexService{
		items:   items,
		index:   index,
		engine:  engine,
		queue:   q,
		metrics: metrics,
	}
}

// Start launches the queue consumer goroutine.
func (s *IndexService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.consume(ctx)

	log.Printf("✅ [INDEX] Queue consumer started (engine: %s)", s.engine.Name())
}

// Stop shuts down the consumer and waits for the in-flight unit.
func (s *IndexService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Println("🛑 [INDEX] Queue consumer stopped")
}

// consume delivers work units one at a time. A unit is acked only after
// a successful upsert; failures nack it for redelivery.
func (s *IndexService) consume(ctx context.Context) {
	defer s.wg.Done()

	for {
		delivery, err := s.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("⚠️  [INDEX] Dequeue failed: %v", err)
			// Back off so a down broker does not spin the loop.
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		logger := logging.WithJob(delivery.Job.JobID, delivery.Job.ItemID)

		// Settling uses its own context: a shutdown mid-job must not
		// strand the unit in the processing list.
		settleCtx, settleCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.ProcessJob(ctx, delivery.Job); err != nil {
			logger.Warn("indexing failed, unit will be redelivered", "error", err)
			if s.metrics != nil {
				s.metrics.IndexJobs.WithLabelValues("retried").Inc()
			}
			if nerr := s.queue.Nack(settleCtx, delivery); nerr != nil {
				logger.Error("nack failed", "error", nerr)
			}
		} else {
			if s.metrics != nil {
				s.metrics.IndexJobs.WithLabelValues("ok").Inc()
			}
			if aerr := s.queue.Ack(settleCtx, delivery); aerr != nil {
				logger.Error("ack failed", "error", aerr)
			}
		}
		settleCancel()

		if ctx.Err() != nil {
			return
		}
	}
}

// ProcessJob embeds one snapshot and upserts it into the vector index.
func (s *IndexService) ProcessJob(ctx context.Context, job *models.IndexJob) error {
	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	vector, err := s.engine.Embed(embedCtx, job.SearchableText())
	if err != nil {
		return fmt.Errorf("%w: embed item %s: %v", models.ErrUpstream, job.ItemID, err)
	}

	return s.index.Upsert(ctx, vecindex.Record{
		ID:       job.ItemID,
		Vector:   vector,
		Name:     job.Name,
		Category: job.Category,
	})
}

// Reindex rebuilds the whole vector index: every item is re-embedded
// and upserted in bounded batches. Safe to run concurrently with the
// queue consumer; the index is keyed by id so last write wins.
func (s *IndexService) Reindex(ctx context.Context) (int, error) {
	if s.metrics != nil {
		s.metrics.ReindexRuns.Inc()
	}

	items, err := s.items.List(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for start := 0; start < len(items); start += reindexBatchSize {
		end := start + reindexBatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			job := models.NewIndexJob("", &batch[i])
			texts[i] = job.SearchableText()
		}

		embedCtx, cancel := context.WithTimeout(ctx, embedTimeout*time.Duration(len(batch)))
		vectors, err := s.engine.EmbedBatch(embedCtx, texts)
		cancel()
		if err != nil {
			return count, fmt.Errorf("%w: embed batch: %v", models.ErrUpstream, err)
		}

		records := make([]vecindex.Record, len(batch))
		for i := range batch {
			records[i] = vecindex.Record{
				ID:       batch[i].ID,
				Vector:   vectors[i],
				Name:     batch[i].Name,
				Category: batch[i].Category,
			}
		}
		if err := s.index.UpsertBatch(ctx, records); err != nil {
			return count, err
		}

		count += len(batch)
		if s.metrics != nil {
			s.metrics.ReindexedItems.Add(float64(len(batch)))
		}
	}

	log.Printf("🔄 [INDEX] Full reindex complete: %d items", count)
	return count, nil
}

// Search embeds the query, fetches the nearest neighbors and hydrates
// full records in neighbor-rank order. Ids that no longer resolve in
// the item store are dropped, not surfaced as errors.
func (s *IndexService) Search(ctx context.Context, query string) ([]models.Item, error) {
	if query == "" {
		return []models.Item{}, nil
	}

	if s.metrics != nil {
		s.metrics.SearchRequests.Inc()
		timer := time.Now()
		defer func() {
			s.metrics.SearchLatency.Observe(time.Since(timer).Seconds())
		}()
	}

	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	vector, err := s.engine.Embed(embedCtx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", models.ErrUpstream, err)
	}

	matches, err := s.index.Query(ctx, vector, searchTopK)
	if err != nil {
		return nil, err
	}

	items := make([]models.Item, 0, len(matches))
	for _, m := range matches {
		item, err := s.items.Get(ctx, m.ID)
		if errors.Is(err, models.ErrNotFound) {
			// Stale index entry; tolerated.
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}
