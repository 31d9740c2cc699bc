// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package reconcile repairs drifted comment counters.

The ledger and the comment store keep upvotes, downvotes and repliescount
exact inside their own transactions. Manual SQL, restores and bugs can still
leave a snapshot behind its source rows, so a cron-scheduled [Job] recomputes
the counters and rewrites the rows that disagree.
*/
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/polutek/tingtong/internal/platform/metrics"
)

// retryDelay is how long the scheduler waits after a bad tick computation.
const retryDelay = 30 * time.Second

// Repairer rewrites drifted counters and reports how many comments changed.
type Repairer interface {
	Repair(ctx context.Context) (int, error)
}

// Job runs a [Repairer] on a cron schedule. Runs never overlap.
type Job struct {
	repairer Repairer
	cron     string
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewJob validates the cron expression and builds a job.
func NewJob(repairer Repairer, cron string, m *metrics.Metrics, logger *slog.Logger) (*Job, error) {
	if !gronx.New().IsValid(cron) {
		return nil, fmt.Errorf("reconcile: invalid cron expression %q", cron)
	}
	return &Job{repairer: repairer, cron: cron, metrics: m, logger: logger}, nil
}

// Next returns the first scheduled run strictly after t.
func (job *Job) Next(t time.Time) (time.Time, error) {
	return gronx.NextTickAfter(job.cron, t, false)
}

// Start runs the schedule in a goroutine until ctx is cancelled.
func (job *Job) Start(ctx context.Context) {
	job.logger.Info("reconcile_scheduled", slog.String("cron", job.cron))
	go job.loop(ctx)
}

func (job *Job) loop(ctx context.Context) {
	for {
		next, err := job.Next(time.Now())
		if err != nil {
			job.logger.Error("reconcile_next_tick_failed", slog.String("cron", job.cron), slog.Any("error", err))
			if !sleep(ctx, retryDelay) {
				return
			}
			continue
		}

		if !sleep(ctx, time.Until(next)) {
			job.logger.Info("reconcile_stopped")
			return
		}

		if _, err := job.RunOnce(ctx); err != nil && ctx.Err() == nil {
			job.logger.Error("reconcile_run_failed", slog.Any("error", err))
		}
	}
}

/*
RunOnce repairs counters now.

Returns:
  - int: Number of comments rewritten (0 when a run is already in progress)
  - error: Repair failures
*/
func (job *Job) RunOnce(ctx context.Context) (int, error) {
	job.mu.Lock()
	if job.running {
		job.mu.Unlock()
		job.logger.Warn("reconcile_run_skipped", slog.String("reason", "already_running"))
		return 0, nil
	}
	job.running = true
	job.mu.Unlock()

	defer func() {
		job.mu.Lock()
		job.running = false
		job.mu.Unlock()
	}()

	started := time.Now()
	repaired, err := job.repairer.Repair(ctx)
	if err != nil {
		return 0, err
	}

	job.metrics.Repaired(repaired)
	job.logger.Info("reconcile_finished",
		slog.Int("repaired", repaired),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()),
	)
	return repaired, nil
}

// sleep waits for d or until ctx ends, reporting whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
