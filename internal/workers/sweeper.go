package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// ExpiredSweeper is the repository surface the sweep job drives
type ExpiredSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper periodically cancels orders whose reservation hold lapsed and
// releases their quota back to the pool. Sweeps use SKIP LOCKED, so
// multiple instances can run without stepping on each other.
type Sweeper struct {
	orders    ExpiredSweeper
	interval  time.Duration
	scheduler gocron.Scheduler
}

// NewSweeper creates a new expiry sweeper
func NewSweeper(orders ExpiredSweeper, interval time.Duration) *Sweeper {
	return &Sweeper{orders: orders, interval: interval}
}

// Start schedules the sweep and begins running it
func (s *Sweeper) Start() error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	s.scheduler = scheduler

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.RunOnce),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	scheduler.Start()
	log.Printf("Expiry sweeper started (every %s)", s.interval)
	return nil
}

// RunOnce performs a single sweep pass. Exposed so operators can trigger a
// sweep outside the schedule.
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cancelled, err := s.orders.SweepExpired(ctx, time.Now())
	if err != nil {
		log.Printf("Expiry sweep failed: %v", err)
		return
	}
	if cancelled > 0 {
		log.Printf("Expiry sweep cancelled %d orders", cancelled)
	}
}

// Stop shuts the scheduler down, waiting for a running sweep to finish
func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}
