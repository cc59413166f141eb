/*
scheduler.go - Automated payroll runs

PURPOSE:
  Periodically runs the payroll batch for the month that just ended.
  Batches are idempotent, so every tick after the first one in a month
  only reports skipped employees.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Logs each run's counts; failures never stop the loop

CONFIGURATION:
  - Interval: How often to run (default: 24 hours)
  - Enabled: Whether the scheduler is active (default: false)

USAGE:
  scheduler := payroll.NewScheduler(generator, logger)
  scheduler.Enabled = true
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - batch.go: Generator
  - api/payroll_handlers.go: manual batch endpoint
*/
package payroll

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs the previous month's batch on a ticker.
type Scheduler struct {
	Generator *Generator
	Logger    *zap.Logger
	Interval  time.Duration
	Enabled   bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewScheduler(generator *Generator, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Generator: generator,
		Logger:    logger.Named("payroll-scheduler"),
		Interval:  24 * time.Hour,
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run()

	s.Logger.Info("started", zap.Duration("interval", s.Interval))
}

// Stop stops the scheduler and waits for an in-flight run.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Logger.Info("stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	s.RunNow(context.Background())
	for {
		select {
		case <-s.ticker.C:
			s.RunNow(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunNow generates the batch for the month before today.
func (s *Scheduler) RunNow(ctx context.Context) (BatchResult, error) {
	month, year := PreviousMonth(s.Generator.Clock.Now())
	result, err := s.Generator.Generate(ctx, int(month), year)
	if err != nil {
		s.Logger.Warn("payroll run failed",
			zap.Int("month", int(month)),
			zap.Int("year", year),
			zap.Error(err))
		return result, err
	}
	return result, nil
}

// PreviousMonth returns the calendar month before t.
func PreviousMonth(t time.Time) (time.Month, int) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	return prev.Month(), prev.Year()
}
