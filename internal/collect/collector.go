package collect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/pinetar/dugout-data/internal/change"
	"github.com/pinetar/dugout-data/internal/metrics"
	"github.com/pinetar/dugout-data/internal/model"
	"github.com/pinetar/dugout-data/internal/provider"
	"github.com/pinetar/dugout-data/internal/refresh"
	"github.com/pinetar/dugout-data/internal/store"
)

// Collector drives the fetch -> detect -> store cycle for one source.
type Collector struct {
	store    *store.Store
	source   provider.Source
	strategy *refresh.Strategy
	log      *slog.Logger

	workers int
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]
}

// New builds a Collector. workers bounds date-level concurrency; sourceRPS
// throttles upstream calls (0 disables throttling). The circuit breaker
// opens after a 60% failure rate over at least 5 calls and recovers through
// a half-open probe.
func New(st *store.Store, src provider.Source, strat *refresh.Strategy, log *slog.Logger, workers int, sourceRPS float64) *Collector {
	if workers < 1 {
		workers = 1
	}
	c := &Collector{store: st, source: src, strategy: strat, log: log, workers: workers}
	if sourceRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(sourceRPS), 1)
	}
	c.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        src.Name(),
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Source circuit state change", "source", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Run collects the most recent days dates, today inclusive. force bypasses
// the refresh strategy for every (kind, date) pair. Errors are collected per
// record, never aborting the run.
func (c *Collector) Run(ctx context.Context, days int, force bool) Result {
	start := time.Now()
	result := Result{RunID: uuid.NewString()}

	if days < 1 {
		days = 1
	}
	today := c.strategy.Today()
	dates := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, today.AddDate(0, 0, -i))
	}
	result.DatesPlanned = len(dates)

	if err := c.store.StartRun(ctx, result.RunID, c.source.Name()); err != nil {
		result.AddErrorf("start run: %v", err)
	}
	c.log.Info("Collection run starting",
		"run_id", result.RunID, "source", c.source.Name(), "dates", len(dates), "force", force)

	// Worker pool: one channel of dates, N workers merging into the shared
	// result under a mutex.
	workers := c.workers
	if workers > len(dates) {
		workers = len(dates)
	}
	ch := make(chan time.Time, len(dates))
	for _, d := range dates {
		ch <- d
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for date := range ch {
				day := c.collectDate(ctx, date, force)
				mu.Lock()
				result.Add(day)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	result.Duration = time.Since(start)
	metrics.CollectDuration.Observe(result.Duration.Seconds())

	if err := c.store.FinishRun(ctx, store.Run{
		ID:               result.RunID,
		DatesPlanned:     result.DatesPlanned,
		DatesFetched:     result.DatesFetched,
		DatesSkipped:     result.DatesSkipped,
		RecordsNew:       result.RecordsNew,
		RecordsModified:  result.RecordsModified,
		RecordsUnchanged: result.RecordsUnchanged,
		Errors:           result.Errors,
	}); err != nil {
		result.AddErrorf("finish run: %v", err)
	}

	c.log.Info("Collection run complete", "run_id", result.RunID, "summary", result.Summary())
	return result
}

// collectDate runs the refresh gate and fetch for every kind on one date.
func (c *Collector) collectDate(ctx context.Context, date time.Time, force bool) Result {
	var r Result
	dateStr := model.FormatDate(date)

	fetched := false
	for _, kind := range model.Kinds() {
		last, err := c.store.LastFetched(ctx, kind, dateStr)
		if err != nil {
			r.AddErrorf("%s %s: last fetched: %v", kind, dateStr, err)
			continue
		}
		decision := c.strategy.ShouldRefresh(date, kind, last, force)
		metrics.ObserveRefresh(string(kind), string(decision.Reason))
		if !decision.Refresh {
			c.log.Debug("Skipping fetch", "kind", kind, "date", dateStr, "reason", decision.Reason)
			continue
		}
		fetched = true
		if err := c.collectKind(ctx, kind, date, dateStr, &r); err != nil {
			r.AddErrorf("%s %s: %v", kind, dateStr, err)
		}
	}

	if fetched {
		r.DatesFetched = 1
	} else {
		r.DatesSkipped = 1
	}
	return r
}

// collectKind fetches one (kind, date) pair and applies change detection per
// record. The fetch log is touched after every successful fetch, changed or
// not, so the refresh strategy sees accurate freshness.
func (c *Collector) collectKind(ctx context.Context, kind model.Kind, date time.Time, dateStr string, r *Result) error {
	switch kind {
	case model.KindLineup:
		lineups, err := c.fetchLineups(ctx, date)
		metrics.ObserveFetch(string(kind), err)
		if err != nil {
			return fmt.Errorf("fetch lineups: %w", err)
		}
		for _, l := range lineups {
			c.applyLineup(ctx, l, r)
		}
	case model.KindStats:
		lines, err := c.fetchStatLines(ctx, date)
		metrics.ObserveFetch(string(kind), err)
		if err != nil {
			return fmt.Errorf("fetch stat lines: %w", err)
		}
		for _, line := range lines {
			c.applyStatLine(ctx, line, r)
		}
	case model.KindTransaction:
		txns, err := c.fetchTransactions(ctx, date)
		metrics.ObserveFetch(string(kind), err)
		if err != nil {
			return fmt.Errorf("fetch transactions: %w", err)
		}
		for _, t := range txns {
			c.applyTransaction(ctx, t, r)
		}
	}

	if err := c.store.TouchFetchLog(ctx, kind, dateStr); err != nil {
		return fmt.Errorf("touch fetch log: %w", err)
	}
	return nil
}

func (c *Collector) applyLineup(ctx context.Context, l model.Lineup, r *Result) {
	existing, err := c.store.LineupFingerprint(ctx, l.Date, l.TeamKey)
	if err != nil {
		r.AddErrorf("lineup %s/%s: %v", l.Date, l.TeamKey, err)
		return
	}
	ch := change.Detect(existing, l, change.FingerprintLineup)
	if !ch.Changed {
		r.RecordsUnchanged++
		return
	}

	detail := ""
	if ch.Type == change.ChangeModified {
		if old, ok, err := c.store.LineupOn(ctx, l.Date, l.TeamKey); err == nil && ok {
			if d := change.DiffLineups(old, l); !d.Empty() {
				if blob, err := json.Marshal(d); err == nil {
					detail = string(blob)
				}
			}
		}
	}

	if err := c.store.UpsertLineup(ctx, l, ch.Fingerprint); err != nil {
		r.AddErrorf("lineup %s/%s: %v", l.Date, l.TeamKey, err)
		return
	}
	if err := c.store.InsertChange(ctx, model.KindLineup, l.Date+"|"+l.TeamKey, l.Date, string(ch.Type), detail); err != nil {
		r.AddErrorf("lineup change %s/%s: %v", l.Date, l.TeamKey, err)
	}
	metrics.ObserveChange(string(model.KindLineup), string(ch.Type))
	c.count(ch.Type, r)

	for _, p := range l.Players {
		if p.PlayerID == "" {
			continue
		}
		ref := model.PlayerRef{PlayerID: p.PlayerID, Name: p.Name, TeamKey: l.TeamKey, Position: p.Position}
		if err := c.store.UpsertPlayerRef(ctx, ref); err != nil {
			r.AddErrorf("player %s: %v", p.PlayerID, err)
		}
	}
}

func (c *Collector) applyStatLine(ctx context.Context, line model.StatLine, r *Result) {
	existing, err := c.store.StatLineFingerprint(ctx, line.PlayerID, line.Date)
	if err != nil {
		r.AddErrorf("stats %s/%s: %v", line.PlayerID, line.Date, err)
		return
	}
	ch := change.Detect(existing, line, change.FingerprintStats)
	if !ch.Changed {
		r.RecordsUnchanged++
		return
	}

	detail := ""
	if ch.Type == change.ChangeModified {
		if old, ok, err := c.store.StatLineOn(ctx, line.PlayerID, line.Date); err == nil && ok {
			if d := change.DiffStats(old, line); len(d) > 0 {
				if blob, err := json.Marshal(d); err == nil {
					detail = string(blob)
				}
			}
		}
	}

	if err := c.store.UpsertStatLine(ctx, line, ch.Fingerprint); err != nil {
		r.AddErrorf("stats %s/%s: %v", line.PlayerID, line.Date, err)
		return
	}
	if err := c.store.InsertChange(ctx, model.KindStats, line.PlayerID+"|"+line.Date, line.Date, string(ch.Type), detail); err != nil {
		r.AddErrorf("stats change %s/%s: %v", line.PlayerID, line.Date, err)
	}
	metrics.ObserveChange(string(model.KindStats), string(ch.Type))
	c.count(ch.Type, r)

	if line.PlayerID != "" {
		ref := model.PlayerRef{PlayerID: line.PlayerID, Name: line.Name}
		if err := c.store.UpsertPlayerRef(ctx, ref); err != nil {
			r.AddErrorf("player %s: %v", line.PlayerID, err)
		}
	}
}

func (c *Collector) applyTransaction(ctx context.Context, t model.Transaction, r *Result) {
	existing, err := c.store.TransactionFingerprint(ctx, t.TransactionID)
	if err != nil {
		r.AddErrorf("transaction %s: %v", t.TransactionID, err)
		return
	}
	ch := change.Detect(existing, t, change.FingerprintTransaction)
	if !ch.Changed {
		r.RecordsUnchanged++
		return
	}

	if err := c.store.UpsertTransaction(ctx, t, ch.Fingerprint); err != nil {
		r.AddErrorf("transaction %s: %v", t.TransactionID, err)
		return
	}
	if err := c.store.InsertChange(ctx, model.KindTransaction, t.TransactionID, t.Date, string(ch.Type), ""); err != nil {
		r.AddErrorf("transaction change %s: %v", t.TransactionID, err)
	}
	metrics.ObserveChange(string(model.KindTransaction), string(ch.Type))
	c.count(ch.Type, r)

	if t.PlayerID != "" {
		ref := model.PlayerRef{PlayerID: t.PlayerID, TeamKey: t.TeamKey}
		if err := c.store.UpsertPlayerRef(ctx, ref); err != nil {
			r.AddErrorf("player %s: %v", t.PlayerID, err)
		}
	}
}

func (c *Collector) count(t change.ChangeType, r *Result) {
	if t == change.ChangeNew {
		r.RecordsNew++
	} else {
		r.RecordsModified++
	}
}

func (c *Collector) fetchLineups(ctx context.Context, date time.Time) ([]model.Lineup, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return cast[[]model.Lineup](c.breaker.Execute(func() (any, error) {
		return c.source.Lineups(ctx, date)
	}))
}

func (c *Collector) fetchStatLines(ctx context.Context, date time.Time) ([]model.StatLine, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return cast[[]model.StatLine](c.breaker.Execute(func() (any, error) {
		return c.source.StatLines(ctx, date)
	}))
}

func (c *Collector) fetchTransactions(ctx context.Context, date time.Time) ([]model.Transaction, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return cast[[]model.Transaction](c.breaker.Execute(func() (any, error) {
		return c.source.Transactions(ctx, date)
	}))
}

func (c *Collector) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func cast[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected result type %T", v)
	}
	return typed, nil
}
