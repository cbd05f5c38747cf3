package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/pinetar/dugout-data/internal/config"
	"github.com/pinetar/dugout-data/internal/metrics"
	"github.com/pinetar/dugout-data/internal/store"
)

// DefaultChannel is the pg_notify channel replica consumers listen on.
const DefaultChannel = "dugout_publish"

// Publisher streams rows updated since each table's watermark into the
// replica. Every upsert is idempotent, so a run that fails mid-table leaves
// the watermark untouched and simply replays on the next run.
type Publisher struct {
	Store *store.Store
	Pool  *Pool
	Log   *slog.Logger

	// BatchSize bounds rows per pgx batch. Zero means DefaultBatchSize.
	BatchSize int
	// Channel overrides the pg_notify channel. Empty means DefaultChannel.
	Channel string
}

// DefaultBatchSize bounds rows per pgx batch.
const DefaultBatchSize = 500

// Result tracks rows published per table.
type Result struct {
	Lineups      int
	StatLines    int
	Transactions int
	Players      int
	Duration     time.Duration
}

// Total returns the number of rows published across all tables.
func (r *Result) Total() int {
	return r.Lineups + r.StatLines + r.Transactions + r.Players
}

// Summary returns a human-readable summary of the publish run.
func (r *Result) Summary() string {
	return fmt.Sprintf("lineups=%d stat_lines=%d transactions=%d players=%d dur=%s",
		r.Lineups, r.StatLines, r.Transactions, r.Players, r.Duration.Round(time.Millisecond))
}

// Run publishes every table's dirty rows and advances the watermarks. A
// failing table aborts the run; already-published tables keep their advanced
// watermarks.
func (p *Publisher) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	var res Result
	var err error

	if res.Lineups, err = p.publishLineups(ctx); err != nil {
		metrics.PublishErrors.Inc()
		return res, fmt.Errorf("publish %s: %w", config.LineupsTable, err)
	}
	if res.StatLines, err = p.publishStatLines(ctx); err != nil {
		metrics.PublishErrors.Inc()
		return res, fmt.Errorf("publish %s: %w", config.StatLinesTable, err)
	}
	if res.Transactions, err = p.publishTransactions(ctx); err != nil {
		metrics.PublishErrors.Inc()
		return res, fmt.Errorf("publish %s: %w", config.TransactionsTable, err)
	}
	if res.Players, err = p.publishPlayers(ctx); err != nil {
		metrics.PublishErrors.Inc()
		return res, fmt.Errorf("publish %s: %w", config.PlayersTable, err)
	}

	res.Duration = time.Since(start)
	metrics.PublishDuration.Observe(res.Duration.Seconds())

	if res.Total() > 0 {
		p.notify(ctx, res)
	}
	p.Log.Info("Publish run complete", "summary", res.Summary())
	return res, nil
}

func (p *Publisher) publishLineups(ctx context.Context) (int, error) {
	since, err := p.Store.Watermark(ctx, config.LineupsTable)
	if err != nil {
		return 0, err
	}
	rows, err := p.Store.DirtyLineups(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	for start := 0; start < len(rows); start += p.batchSize() {
		end := min(start+p.batchSize(), len(rows))
		batch := &pgx.Batch{}
		for _, r := range rows[start:end] {
			batch.Queue("publish_lineup", r.Date, r.TeamKey, r.PlayersJSON, r.ContentHash, r.UpdatedAt)
		}
		if err := p.sendBatch(ctx, batch); err != nil {
			return 0, err
		}
	}

	if err := p.Store.SetWatermark(ctx, config.LineupsTable, rows[len(rows)-1].UpdatedAt); err != nil {
		return 0, err
	}
	metrics.RowsPublished.WithLabelValues(config.LineupsTable).Add(float64(len(rows)))
	return len(rows), nil
}

func (p *Publisher) publishStatLines(ctx context.Context) (int, error) {
	since, err := p.Store.Watermark(ctx, config.StatLinesTable)
	if err != nil {
		return 0, err
	}
	rows, err := p.Store.DirtyStatLines(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	for start := 0; start < len(rows); start += p.batchSize() {
		end := min(start+p.batchSize(), len(rows))
		batch := &pgx.Batch{}
		for _, r := range rows[start:end] {
			batch.Queue("publish_stat_line", r.PlayerID, r.Date, r.Name, r.StatsJSON, r.ContentHash, r.UpdatedAt)
		}
		if err := p.sendBatch(ctx, batch); err != nil {
			return 0, err
		}
	}

	if err := p.Store.SetWatermark(ctx, config.StatLinesTable, rows[len(rows)-1].UpdatedAt); err != nil {
		return 0, err
	}
	metrics.RowsPublished.WithLabelValues(config.StatLinesTable).Add(float64(len(rows)))
	return len(rows), nil
}

func (p *Publisher) publishTransactions(ctx context.Context) (int, error) {
	since, err := p.Store.Watermark(ctx, config.TransactionsTable)
	if err != nil {
		return 0, err
	}
	rows, err := p.Store.DirtyTransactions(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	for start := 0; start < len(rows); start += p.batchSize() {
		end := min(start+p.batchSize(), len(rows))
		batch := &pgx.Batch{}
		for _, r := range rows[start:end] {
			batch.Queue("publish_transaction", r.TransactionID, r.Type, r.PlayerID, r.TeamKey, r.Date, r.Status, r.ContentHash, r.UpdatedAt)
		}
		if err := p.sendBatch(ctx, batch); err != nil {
			return 0, err
		}
	}

	if err := p.Store.SetWatermark(ctx, config.TransactionsTable, rows[len(rows)-1].UpdatedAt); err != nil {
		return 0, err
	}
	metrics.RowsPublished.WithLabelValues(config.TransactionsTable).Add(float64(len(rows)))
	return len(rows), nil
}

func (p *Publisher) publishPlayers(ctx context.Context) (int, error) {
	since, err := p.Store.Watermark(ctx, config.PlayersTable)
	if err != nil {
		return 0, err
	}
	rows, err := p.Store.DirtyPlayers(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	for start := 0; start < len(rows); start += p.batchSize() {
		end := min(start+p.batchSize(), len(rows))
		batch := &pgx.Batch{}
		for _, r := range rows[start:end] {
			batch.Queue("publish_player", r.PlayerID, r.Name, r.TeamKey, r.Position, r.MLBID, r.UpdatedAt)
		}
		if err := p.sendBatch(ctx, batch); err != nil {
			return 0, err
		}
	}

	if err := p.Store.SetWatermark(ctx, config.PlayersTable, rows[len(rows)-1].UpdatedAt); err != nil {
		return 0, err
	}
	metrics.RowsPublished.WithLabelValues(config.PlayersTable).Add(float64(len(rows)))
	return len(rows), nil
}

// sendBatch executes a batch and surfaces the first per-query error.
func (p *Publisher) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := p.Pool.SendBatch(ctx, batch)
	var firstErr error
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := br.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// notify tells replica consumers new rows landed. Best effort: a failed
// notify never fails the publish.
func (p *Publisher) notify(ctx context.Context, res Result) {
	payload, err := json.Marshal(map[string]int{
		config.LineupsTable:      res.Lineups,
		config.StatLinesTable:    res.StatLines,
		config.TransactionsTable: res.Transactions,
		config.PlayersTable:      res.Players,
	})
	if err != nil {
		return
	}
	if _, err := p.Pool.Exec(ctx, "notify_publish", p.channel(), string(payload)); err != nil {
		p.Log.Warn("Publish notify failed", "error", err)
	}
}

func (p *Publisher) batchSize() int {
	if p.BatchSize > 0 {
		return p.BatchSize
	}
	return DefaultBatchSize
}

func (p *Publisher) channel() string {
	if p.Channel != "" {
		return p.Channel
	}
	return DefaultChannel
}
