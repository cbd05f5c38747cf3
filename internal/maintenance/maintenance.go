// Package maintenance drives the pipeline's background cadence as Go timers.
// Collection fires at the scheduled update anchors (the same ones the refresh
// policy checks staleness against), publishing follows each collection, and a
// cleanup ticker prunes old bookkeeping rows.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pinetar/dugout-data/internal/refresh"
	"github.com/pinetar/dugout-data/internal/store"
)

// Tasks are the units of work the cadence drives. Nil tasks are skipped.
type Tasks struct {
	Collect func(context.Context) error // scheduled collection pass
	Publish func(context.Context) error // replica publish after collection
	Cleanup func(context.Context) error // prune old change-log and run rows
}

// Config controls maintenance intervals. Zero duration disables a task.
type Config struct {
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval: 1 * time.Hour,
	}
}

// Start launches the anchor-scheduled collection loop and the cleanup ticker.
// Blocks until ctx is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, strat *refresh.Strategy, tasks Tasks, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance started",
		"scheduled_collection", tasks.Collect != nil,
		"cleanup", cfg.CleanupInterval)

	if tasks.Collect != nil {
		go anchorLoop(ctx, strat, tasks, logger)
	}

	if cfg.CleanupInterval > 0 && tasks.Cleanup != nil {
		t := time.NewTicker(cfg.CleanupInterval)
		defer t.Stop()
		go runLoop(ctx, t.C, func() {
			if err := tasks.Cleanup(ctx); err != nil {
				logger.Warn("Cleanup failed", "error", err)
			}
		})
	}

	<-ctx.Done()
	logger.Info("Maintenance stopped")
}

// anchorLoop sleeps until the next scheduled update anchor, then runs a
// collection pass followed by a publish.
func anchorLoop(ctx context.Context, strat *refresh.Strategy, tasks Tasks, logger *slog.Logger) {
	for {
		next := strat.NextScheduledUpdate(time.Now())
		wait := time.Until(next)
		logger.Info("Next scheduled collection", "at", next.Format(time.RFC3339), "in", wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			RunScheduled(ctx, tasks, logger)
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// RunScheduled runs one collect-then-publish pass. Errors are logged, not
// returned: a failed collection still publishes whatever landed, and the
// next anchor retries the rest.
func RunScheduled(ctx context.Context, tasks Tasks, logger *slog.Logger) {
	if tasks.Collect != nil {
		if err := tasks.Collect(ctx); err != nil {
			logger.Error("Scheduled collection failed", "error", err)
		}
	}
	if tasks.Publish != nil {
		if err := tasks.Publish(ctx); err != nil {
			logger.Error("Scheduled publish failed", "error", err)
		}
	}
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// CleanupTask prunes change-log rows older than changeRetention and run rows
// older than runRetention. Both prunes run even if the first fails.
func CleanupTask(st *store.Store, changeRetention, runRetention time.Duration, logger *slog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		var firstErr error

		n, err := st.PruneChanges(ctx, time.Now().Add(-changeRetention))
		if err != nil {
			firstErr = fmt.Errorf("prune changes: %w", err)
		} else if n > 0 {
			logger.Info("Cleanup: pruned change rows", "count", n)
		}

		n, err = st.PruneRuns(ctx, time.Now().Add(-runRetention))
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("prune runs: %w", err)
			}
		} else if n > 0 {
			logger.Info("Cleanup: pruned run rows", "count", n)
		}

		return firstErr
	}
}
