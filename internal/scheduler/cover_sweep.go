// Package scheduler triggers periodic background work over the task
// queue. It only enqueues; the tasks package does the actual work.
package scheduler

import (
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/shelfmark/shelfmark/internal/tasks"
)

// CoverSweepScheduler periodically enqueues a cover backfill task so
// books added without a cover pick one up eventually.
type CoverSweepScheduler struct {
	client   *tasks.Client
	schedule string

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewCoverSweepScheduler creates a scheduler with a standard five
// field cron schedule, e.g. "0 3 * * *" for daily at 03:00.
func NewCoverSweepScheduler(client *tasks.Client, schedule string) *CoverSweepScheduler {
	return &CoverSweepScheduler{
		client:   client,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start registers the cron entry and starts the ticker.
func (s *CoverSweepScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, s.enqueueSweep)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Cover sweep scheduled: %s", s.schedule)
	return nil
}

// Stop halts the ticker. A sweep already handed to the task queue
// keeps running there.
func (s *CoverSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	s.cron.Stop()
	s.isRunning = false
}

func (s *CoverSweepScheduler) enqueueSweep() {
	if _, err := s.client.Add(tasks.BackfillCoversTask{}).Save(); err != nil {
		log.Printf("Failed to enqueue cover sweep: %v", err)
	}
}
