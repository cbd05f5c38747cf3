package store

import (
	"context"
	"fmt"
)

// bootstrap creates the schema if missing. Statements are idempotent so
// every open converges to the same schema; there is no migration tooling.
func (s *Store) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lineups (
			date         TEXT NOT NULL,
			team_key     TEXT NOT NULL,
			players_json TEXT NOT NULL DEFAULT '[]',
			content_hash TEXT NOT NULL,
			created_at   TIMESTAMP NOT NULL,
			updated_at   TIMESTAMP NOT NULL,
			PRIMARY KEY (date, team_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lineups_team ON lineups(team_key, date)`,
		`CREATE INDEX IF NOT EXISTS idx_lineups_updated ON lineups(updated_at)`,

		`CREATE TABLE IF NOT EXISTS stat_lines (
			player_id    TEXT NOT NULL,
			date         TEXT NOT NULL,
			name         TEXT NOT NULL DEFAULT '',
			stats_json   TEXT NOT NULL DEFAULT '{}',
			content_hash TEXT NOT NULL,
			created_at   TIMESTAMP NOT NULL,
			updated_at   TIMESTAMP NOT NULL,
			PRIMARY KEY (player_id, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stat_lines_date ON stat_lines(date)`,
		`CREATE INDEX IF NOT EXISTS idx_stat_lines_updated ON stat_lines(updated_at)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			transaction_id TEXT PRIMARY KEY,
			type           TEXT NOT NULL DEFAULT '',
			player_id      TEXT NOT NULL DEFAULT '',
			team_key       TEXT NOT NULL DEFAULT '',
			date           TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT '',
			content_hash   TEXT NOT NULL,
			created_at     TIMESTAMP NOT NULL,
			updated_at     TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_updated ON transactions(updated_at)`,

		`CREATE TABLE IF NOT EXISTS players (
			player_id  TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			team_key   TEXT NOT NULL DEFAULT '',
			position   TEXT NOT NULL DEFAULT '',
			mlb_id     TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_players_updated ON players(updated_at)`,

		`CREATE TABLE IF NOT EXISTS fetch_log (
			kind         TEXT NOT NULL,
			date         TEXT NOT NULL,
			last_fetched TIMESTAMP NOT NULL,
			fetch_count  INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (kind, date)
		)`,

		`CREATE TABLE IF NOT EXISTS changes (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			kind        TEXT NOT NULL,
			record_key  TEXT NOT NULL,
			date        TEXT NOT NULL DEFAULT '',
			change_type TEXT NOT NULL,
			detail      TEXT NOT NULL DEFAULT '',
			detected_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_changes_detected ON changes(detected_at)`,
		`CREATE INDEX IF NOT EXISTS idx_changes_kind ON changes(kind, date)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id                TEXT PRIMARY KEY,
			source            TEXT NOT NULL DEFAULT '',
			started_at        TIMESTAMP NOT NULL,
			finished_at       TIMESTAMP,
			dates_planned     INTEGER NOT NULL DEFAULT 0,
			dates_fetched     INTEGER NOT NULL DEFAULT 0,
			dates_skipped     INTEGER NOT NULL DEFAULT 0,
			records_new       INTEGER NOT NULL DEFAULT 0,
			records_modified  INTEGER NOT NULL DEFAULT 0,
			records_unchanged INTEGER NOT NULL DEFAULT 0,
			errors            TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS publish_state (
			table_name   TEXT PRIMARY KEY,
			watermark    TIMESTAMP NOT NULL,
			published_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}
