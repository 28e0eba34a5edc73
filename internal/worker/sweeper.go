// Package worker runs background maintenance jobs.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// OrderSweeper cancels PENDING orders whose payment never arrived.
type OrderSweeper interface {
	CancelStale(ctx context.Context, olderThan time.Time) (int64, error)
}

type Sweeper struct {
	orders     OrderSweeper
	logger     *slog.Logger
	pendingTTL time.Duration
	interval   time.Duration
	scheduler  gocron.Scheduler
}

func NewSweeper(orders OrderSweeper, logger *slog.Logger, pendingTTL, interval time.Duration) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if pendingTTL <= 0 {
		pendingTTL = 30 * time.Minute
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		orders:     orders,
		logger:     logger,
		pendingTTL: pendingTTL,
		interval:   interval,
	}
}

// Start schedules the sweep and returns. Stop must be called on shutdown.
func (s *Sweeper) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("worker.Sweeper.Start:%w", err)
	}
	s.scheduler = sched

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.sweep(ctx) }),
	)
	if err != nil {
		return fmt.Errorf("worker.Sweeper.Start:%w", err)
	}

	sched.Start()
	s.logger.Info("order sweeper started",
		"interval", s.interval, "pending_ttl", s.pendingTTL)
	return nil
}

func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.pendingTTL)

	n, err := s.orders.CancelStale(ctx, cutoff)
	if err != nil {
		s.logger.Error("stale order sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("stale orders cancelled", "count", n, "cutoff", cutoff)
	}
}
