/*
scheduler.go - Automated recalculation scheduler

PURPOSE:
  Periodically rebuilds stored contribution chains so each model's
  calculation date tracks the current day. A chain computed yesterday
  still charges yesterday's contribution today; the nightly rebuild
  rolls it forward.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Skips models whose calculation date is already current
  - Skips models whose start date has passed; their stored chain stands
  - A model that fails to rebuild is logged and left untouched

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RecalculateModel endpoint (manual recalculation)
  - budget/model.go: Recalculate
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"
)

// Scheduler keeps stored models recalculated against the current date.
type Scheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduler creates a new scheduler.
func NewScheduler(handler *Handler) *Scheduler {
	return &Scheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started with check interval: %v", s.CheckInterval)
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.recalculateAll()

	for {
		select {
		case <-s.ticker.C:
			s.recalculateAll()
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) recalculateAll() {
	ctx := context.Background()
	today := s.Handler.Clock()

	models, err := s.Handler.Store.ListModels(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing models: %v", err)
		return
	}

	processedCount := 0
	skippedCount := 0

	for _, m := range models {
		if !m.CalculationDate.Before(today) {
			skippedCount++
			continue
		}
		// Once the start date passes, the stored chain is the schedule of
		// record; rebuilding it is no longer allowed.
		if today.After(m.Start) {
			skippedCount++
			continue
		}

		if err := m.Recalculate(today); err != nil {
			log.Printf("[Scheduler] Error recalculating %q: %v", m.Name, err)
			continue
		}
		if err := s.Handler.Store.SaveModel(ctx, m); err != nil {
			log.Printf("[Scheduler] Error saving %q: %v", m.Name, err)
			continue
		}
		processedCount++
	}

	if processedCount > 0 {
		log.Printf("[Scheduler] Completed: %d recalculated, %d current", processedCount, skippedCount)
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (s *Scheduler) RunNow() {
	s.recalculateAll()
}
