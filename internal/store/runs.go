package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pinetar/dugout-data/internal/config"
)

// Run is one collection run's bookkeeping row.
type Run struct {
	ID               string     `json:"id"`
	Source           string     `json:"source"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	DatesPlanned     int        `json:"dates_planned"`
	DatesFetched     int        `json:"dates_fetched"`
	DatesSkipped     int        `json:"dates_skipped"`
	RecordsNew       int        `json:"records_new"`
	RecordsModified  int        `json:"records_modified"`
	RecordsUnchanged int        `json:"records_unchanged"`
	Errors           []string   `json:"errors"`
}

// StartRun records the start of a collection run.
func (s *Store) StartRun(ctx context.Context, id, source string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+config.RunsTable+` (id, source, started_at) VALUES (?,?,?)`,
		id, source, s.now(),
	)
	if err != nil {
		return fmt.Errorf("start run %s: %w", id, err)
	}
	return nil
}

// FinishRun records a run's final counters. The run keeps its started_at.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	if run.Errors == nil {
		run.Errors = []string{}
	}
	errs, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE `+config.RunsTable+` SET
			finished_at = ?,
			dates_planned = ?,
			dates_fetched = ?,
			dates_skipped = ?,
			records_new = ?,
			records_modified = ?,
			records_unchanged = ?,
			errors = ?
		WHERE id = ?`,
		s.now(), run.DatesPlanned, run.DatesFetched, run.DatesSkipped,
		run.RecordsNew, run.RecordsModified, run.RecordsUnchanged,
		string(errs), run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, started_at, finished_at,
		       dates_planned, dates_fetched, dates_skipped,
		       records_new, records_modified, records_unchanged, errors
		FROM `+config.RunsTable+`
		ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		var errsJSON string
		if err := rows.Scan(&r.ID, &r.Source, &r.StartedAt, &finished,
			&r.DatesPlanned, &r.DatesFetched, &r.DatesSkipped,
			&r.RecordsNew, &r.RecordsModified, &r.RecordsUnchanged, &errsJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = r.StartedAt.UTC()
		if finished.Valid {
			t := finished.Time.UTC()
			r.FinishedAt = &t
		}
		if err := json.Unmarshal([]byte(errsJSON), &r.Errors); err != nil {
			return nil, fmt.Errorf("decode run errors %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// PruneRuns deletes run rows older than the cutoff.
func (s *Store) PruneRuns(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM `+config.RunsTable+` WHERE started_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
