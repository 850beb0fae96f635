package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"upbit_bot/internal/infra"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context)

// Scheduler fires a job on a fixed period. A tick that arrives while the
// previous job is still running is skipped, never queued.
type Scheduler struct {
	interval   time.Duration
	clock      infra.Clock
	job        Job
	runOnStart bool
	metrics    *infra.Metrics
	logger     *slog.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. A nil clock means the system clock.
func NewScheduler(interval time.Duration, clock infra.Clock, job Job, runOnStart bool, metrics *infra.Metrics) *Scheduler {
	if clock == nil {
		clock = infra.SystemClock{}
	}
	return &Scheduler{
		interval:   interval,
		clock:      clock,
		job:        job,
		runOnStart: runOnStart,
		metrics:    metrics,
		logger:     slog.Default().With("module", "scheduler"),
	}
}

// Run fires the job until ctx is done, then waits for the in-flight job.
func (s *Scheduler) Run(ctx context.Context) error {
	tick, stop := s.clock.NewTicker(s.interval)
	defer stop()

	s.logger.Info("scheduler started", slog.Duration("interval", s.interval), slog.Bool("run_on_start", s.runOnStart))
	if s.runOnStart {
		s.fire(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping, waiting for running job")
			s.wg.Wait()
			return nil
		case <-tick:
			s.fire(ctx)
		}
	}
}

// fire starts the job unless one is running. It reports whether it started.
func (s *Scheduler) fire(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.metrics.RecordTickSkipped()
		s.logger.Warn("previous tick still running, skipping")
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("job panic recovered", slog.Any("panic", r))
			}
		}()
		s.job(ctx)
	}()
	return true
}
