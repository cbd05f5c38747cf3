package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pinetar/dugout-data/internal/config"
)

// Watermark returns the replica publish watermark for a table, or nil if the
// table has never been published.
func (s *Store) Watermark(ctx context.Context, table string) (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT watermark FROM `+config.PublishStateTable+` WHERE table_name = ?`,
		table).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("watermark %s: %w", table, err)
	}
	t = t.UTC()
	return &t, nil
}

// SetWatermark advances the replica publish watermark for a table.
func (s *Store) SetWatermark(ctx context.Context, table string, watermark time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+config.PublishStateTable+` (table_name, watermark, published_at)
		VALUES (?,?,?)
		ON CONFLICT(table_name) DO UPDATE SET
			watermark = excluded.watermark,
			published_at = excluded.published_at`,
		table, watermark.UTC(), s.now(),
	)
	if err != nil {
		return fmt.Errorf("set watermark %s: %w", table, err)
	}
	return nil
}

// LineupRow is a lineup row as stored, for replica publishing.
type LineupRow struct {
	Date        string
	TeamKey     string
	PlayersJSON string
	ContentHash string
	UpdatedAt   time.Time
}

// DirtyLineups returns lineups updated after since (all of them when since
// is nil), oldest update first so the watermark can advance monotonically.
func (s *Store) DirtyLineups(ctx context.Context, since *time.Time) ([]LineupRow, error) {
	query := `SELECT date, team_key, players_json, content_hash, updated_at FROM ` + config.LineupsTable
	var args []interface{}
	if since != nil {
		query += ` WHERE updated_at > ?`
		args = append(args, since.UTC())
	}
	query += ` ORDER BY updated_at, date, team_key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dirty lineups: %w", err)
	}
	defer rows.Close()

	var out []LineupRow
	for rows.Next() {
		var r LineupRow
		if err := rows.Scan(&r.Date, &r.TeamKey, &r.PlayersJSON, &r.ContentHash, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dirty lineup: %w", err)
		}
		r.UpdatedAt = r.UpdatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// StatLineRow is a stat line row as stored, for replica publishing.
type StatLineRow struct {
	PlayerID    string
	Date        string
	Name        string
	StatsJSON   string
	ContentHash string
	UpdatedAt   time.Time
}

// DirtyStatLines returns stat lines updated after since.
func (s *Store) DirtyStatLines(ctx context.Context, since *time.Time) ([]StatLineRow, error) {
	query := `SELECT player_id, date, name, stats_json, content_hash, updated_at FROM ` + config.StatLinesTable
	var args []interface{}
	if since != nil {
		query += ` WHERE updated_at > ?`
		args = append(args, since.UTC())
	}
	query += ` ORDER BY updated_at, player_id, date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dirty stat lines: %w", err)
	}
	defer rows.Close()

	var out []StatLineRow
	for rows.Next() {
		var r StatLineRow
		if err := rows.Scan(&r.PlayerID, &r.Date, &r.Name, &r.StatsJSON, &r.ContentHash, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dirty stat line: %w", err)
		}
		r.UpdatedAt = r.UpdatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// TransactionRow is a transaction row as stored, for replica publishing.
type TransactionRow struct {
	TransactionID string
	Type          string
	PlayerID      string
	TeamKey       string
	Date          string
	Status        string
	ContentHash   string
	UpdatedAt     time.Time
}

// DirtyTransactions returns transactions updated after since.
func (s *Store) DirtyTransactions(ctx context.Context, since *time.Time) ([]TransactionRow, error) {
	query := `SELECT transaction_id, type, player_id, team_key, date, status, content_hash, updated_at FROM ` + config.TransactionsTable
	var args []interface{}
	if since != nil {
		query += ` WHERE updated_at > ?`
		args = append(args, since.UTC())
	}
	query += ` ORDER BY updated_at, transaction_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dirty transactions: %w", err)
	}
	defer rows.Close()

	var out []TransactionRow
	for rows.Next() {
		var r TransactionRow
		if err := rows.Scan(&r.TransactionID, &r.Type, &r.PlayerID, &r.TeamKey, &r.Date, &r.Status, &r.ContentHash, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dirty transaction: %w", err)
		}
		r.UpdatedAt = r.UpdatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// PlayerRow is a player reference row as stored, for replica publishing.
type PlayerRow struct {
	PlayerID  string
	Name      string
	TeamKey   string
	Position  string
	MLBID     string
	UpdatedAt time.Time
}

// DirtyPlayers returns player references updated after since.
func (s *Store) DirtyPlayers(ctx context.Context, since *time.Time) ([]PlayerRow, error) {
	query := `SELECT player_id, name, team_key, position, mlb_id, updated_at FROM ` + config.PlayersTable
	var args []interface{}
	if since != nil {
		query += ` WHERE updated_at > ?`
		args = append(args, since.UTC())
	}
	query += ` ORDER BY updated_at, player_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dirty players: %w", err)
	}
	defer rows.Close()

	var out []PlayerRow
	for rows.Next() {
		var r PlayerRow
		if err := rows.Scan(&r.PlayerID, &r.Name, &r.TeamKey, &r.Position, &r.MLBID, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dirty player: %w", err)
		}
		r.UpdatedAt = r.UpdatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Counts returns per-table row counts for the status endpoint.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 4)
	for _, table := range []string{
		config.LineupsTable, config.StatLinesTable, config.TransactionsTable, config.PlayersTable,
	} {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
