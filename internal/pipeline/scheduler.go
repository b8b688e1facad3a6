package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

const initialBackoff = 200 * time.Millisecond

// Runner executes one enrichment run.
type Runner interface {
	Run(ctx context.Context) (Summary, error)
}

// Scheduler repeats enrichment runs on a fixed interval for the long-running
// serve mode. A failed fetch is retried with exponential backoff capped at the
// interval.
type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
	clock      clockwork.Clock
	ready      atomic.Bool
}

// NewScheduler creates a Scheduler. A nil clock uses the real clock.
func NewScheduler(runner Runner, interval, runTimeout time.Duration, logger *slog.Logger, clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
		clock:      clock,
	}
}

// CheckReadiness returns nil once a run has completed its page.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no enrichment run has completed yet")
	}
	return nil
}

// Run executes runs until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "run_timeout", s.runTimeout)

	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		}

		wait := s.interval
		if err := s.runOnce(ctx); err != nil {
			s.logger.Error("enrichment run failed, backing off", "error", err, "backoff", backoff)
			wait = backoff
			backoff = retry.NextBackoff(backoff, s.interval)
		} else {
			backoff = initialBackoff
		}

		if !s.sleepWithContext(ctx, wait) {
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	summary, err := s.runner.Run(runCtx)
	if err != nil {
		return err
	}
	if !summary.Interrupted {
		s.ready.Store(true)
	}
	return nil
}

func (s *Scheduler) sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
