package maintenance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pinetar/dugout-data/internal/model"
	"github.com/pinetar/dugout-data/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunScheduledOrder(t *testing.T) {
	var order []string
	tasks := Tasks{
		Collect: func(context.Context) error {
			order = append(order, "collect")
			return nil
		},
		Publish: func(context.Context) error {
			order = append(order, "publish")
			return nil
		},
	}

	RunScheduled(context.Background(), tasks, discardLogger())
	if len(order) != 2 || order[0] != "collect" || order[1] != "publish" {
		t.Fatalf("order = %v, want [collect publish]", order)
	}
}

func TestRunScheduledPublishesAfterCollectError(t *testing.T) {
	published := false
	tasks := Tasks{
		Collect: func(context.Context) error { return fmt.Errorf("upstream down") },
		Publish: func(context.Context) error {
			published = true
			return nil
		},
	}

	RunScheduled(context.Background(), tasks, discardLogger())
	if !published {
		t.Fatal("publish skipped after collect error")
	}
}

func TestRunScheduledSkipsNilTasks(t *testing.T) {
	RunScheduled(context.Background(), Tasks{}, discardLogger())
}

func TestCleanupTask(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	if err := st.InsertChange(ctx, model.KindLineup, "2025-08-15|t1", "2025-08-15", "new", ""); err != nil {
		t.Fatalf("seed change: %v", err)
	}
	if err := st.StartRun(ctx, "run-1", "file"); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	// Generous retention keeps everything.
	if err := CleanupTask(st, time.Hour, time.Hour, discardLogger())(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	changes, err := st.Changes(ctx, "", "", 0)
	if err != nil {
		t.Fatalf("read changes: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("fresh change pruned, have %d rows", len(changes))
	}

	// Zero retention prunes everything already written.
	if err := CleanupTask(st, 0, 0, discardLogger())(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	changes, err = st.Changes(ctx, "", "", 0)
	if err != nil {
		t.Fatalf("read changes: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("change rows remain after prune: %d", len(changes))
	}
	runs, err := st.RecentRuns(ctx, 0)
	if err != nil {
		t.Fatalf("read runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("run rows remain after prune: %d", len(runs))
	}
}

func TestStartRunsCleanupTicker(t *testing.T) {
	var calls atomic.Int32
	tasks := Tasks{
		Cleanup: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	Start(ctx, nil, tasks, Config{CleanupInterval: 15 * time.Millisecond}, discardLogger())

	if calls.Load() == 0 {
		t.Fatal("cleanup never ran")
	}
}

func TestStartReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Start(ctx, nil, Tasks{}, DefaultConfig(), discardLogger())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
