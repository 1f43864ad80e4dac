package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
)

// ReindexScheduler runs periodic full rebuilds of the vector index so
// it converges even when individual queue units were dead-lettered.
type ReindexScheduler struct {
	indexService *IndexService
	scheduler    gocron.Scheduler
}

// NewReindexScheduler creates a scheduler for the given cron expression
func NewReindexScheduler(indexService *IndexService, cronExpr string) (*ReindexScheduler, error) {
	// Validate the expression up front so a bad schedule fails at
	// startup, not at first tick.
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return nil, fmt.Errorf("invalid reindex cron expression %q: %w", cronExpr, err)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create reindex scheduler: %w", err)
	}

	s := &ReindexScheduler{indexService: indexService, scheduler: scheduler}

	_, err = scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			count, err := s.indexService.Reindex(context.Background())
			if err != nil {
				log.Printf("⚠️  [SCHEDULER] Scheduled reindex failed after %d items: %v", count, err)
				return
			}
			log.Printf("📅 [SCHEDULER] Scheduled reindex complete: %d items", count)
		}),
		gocron.WithName("reindex"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reindex job: %w", err)
	}

	return s, nil
}

// Start begins running the schedule
func (s *ReindexScheduler) Start() {
	s.scheduler.Start()
	log.Println("✅ [SCHEDULER] Reindex scheduler started")
}

// Stop shuts the scheduler down
func (s *ReindexScheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		log.Printf("⚠️  [SCHEDULER] Shutdown error: %v", err)
	}
}
