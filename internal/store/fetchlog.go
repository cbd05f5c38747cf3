package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pinetar/dugout-data/internal/config"
	"github.com/pinetar/dugout-data/internal/model"
)

// LastFetched returns when a (kind, date) pair was last fetched from the
// source, or nil if it never was.
func (s *Store) LastFetched(ctx context.Context, kind model.Kind, date string) (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT last_fetched FROM `+config.FetchLogTable+` WHERE kind = ? AND date = ?`,
		string(kind), date).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last fetched %s/%s: %w", kind, date, err)
	}
	t = t.UTC()
	return &t, nil
}

// TouchFetchLog records a completed fetch for a (kind, date) pair. Called
// after every fetch, changed or not, so the refresh strategy sees accurate
// freshness.
func (s *Store) TouchFetchLog(ctx context.Context, kind model.Kind, date string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+config.FetchLogTable+` (kind, date, last_fetched, fetch_count)
		VALUES (?,?,?,1)
		ON CONFLICT(kind, date) DO UPDATE SET
			last_fetched = excluded.last_fetched,
			fetch_count = `+config.FetchLogTable+`.fetch_count + 1`,
		string(kind), date, s.now(),
	)
	if err != nil {
		return fmt.Errorf("touch fetch log %s/%s: %w", kind, date, err)
	}
	return nil
}

// FetchCount returns how many times a (kind, date) pair has been fetched.
func (s *Store) FetchCount(ctx context.Context, kind model.Kind, date string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT fetch_count FROM `+config.FetchLogTable+` WHERE kind = ? AND date = ?`,
		string(kind), date).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("fetch count %s/%s: %w", kind, date, err)
	}
	return n, nil
}
