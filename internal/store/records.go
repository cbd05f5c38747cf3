package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/pinetar/dugout-data/internal/config"
	"github.com/pinetar/dugout-data/internal/model"
)

// --------------------------------------------------------------------------
// Lineups
// --------------------------------------------------------------------------

// UpsertLineup writes a lineup and its content hash. Callers only invoke
// this after the change tracker reported a change, so updated_at always
// reflects real content movement.
func (s *Store) UpsertLineup(ctx context.Context, l model.Lineup, contentHash string) error {
	players, err := json.Marshal(nonNilPlayers(l.Players))
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	now := s.now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO `+config.LineupsTable+` (date, team_key, players_json, content_hash, created_at, updated_at)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(date, team_key) DO UPDATE SET
			players_json = excluded.players_json,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at`,
		l.Date, l.TeamKey, string(players), contentHash, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert lineup %s/%s: %w", l.Date, l.TeamKey, err)
	}
	return nil
}

// LineupFingerprint returns the stored content hash for a (date, team) pair,
// or "" if the lineup was never stored.
func (s *Store) LineupFingerprint(ctx context.Context, date, teamKey string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM `+config.LineupsTable+` WHERE date = ? AND team_key = ?`,
		date, teamKey).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lineup fingerprint %s/%s: %w", date, teamKey, err)
	}
	return hash, nil
}

// LineupOn returns the stored lineup for a (date, team) pair.
func (s *Store) LineupOn(ctx context.Context, date, teamKey string) (model.Lineup, bool, error) {
	var l model.Lineup
	var playersJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT date, team_key, players_json FROM `+config.LineupsTable+` WHERE date = ? AND team_key = ?`,
		date, teamKey).Scan(&l.Date, &l.TeamKey, &playersJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Lineup{}, false, nil
	}
	if err != nil {
		return model.Lineup{}, false, fmt.Errorf("lineup %s/%s: %w", date, teamKey, err)
	}
	if err := json.Unmarshal([]byte(playersJSON), &l.Players); err != nil {
		return model.Lineup{}, false, fmt.Errorf("decode players %s/%s: %w", date, teamKey, err)
	}
	return l, true, nil
}

// TeamLineups returns a team's most recent lineups, newest first.
func (s *Store) TeamLineups(ctx context.Context, teamKey string, limit int) ([]model.Lineup, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, team_key, players_json FROM `+config.LineupsTable+`
		 WHERE team_key = ? ORDER BY date DESC LIMIT ?`, teamKey, limit)
	if err != nil {
		return nil, fmt.Errorf("team lineups %s: %w", teamKey, err)
	}
	defer rows.Close()

	var lineups []model.Lineup
	for rows.Next() {
		var l model.Lineup
		var playersJSON string
		if err := rows.Scan(&l.Date, &l.TeamKey, &playersJSON); err != nil {
			return nil, fmt.Errorf("scan lineup: %w", err)
		}
		if err := json.Unmarshal([]byte(playersJSON), &l.Players); err != nil {
			return nil, fmt.Errorf("decode players %s/%s: %w", l.Date, l.TeamKey, err)
		}
		lineups = append(lineups, l)
	}
	return lineups, rows.Err()
}

// --------------------------------------------------------------------------
// Stat lines
// --------------------------------------------------------------------------

// UpsertStatLine writes a stat line and its content hash.
func (s *Store) UpsertStatLine(ctx context.Context, line model.StatLine, contentHash string) error {
	stats, err := json.Marshal(nonNilStats(line.Stats))
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	now := s.now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO `+config.StatLinesTable+` (player_id, date, name, stats_json, content_hash, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(player_id, date) DO UPDATE SET
			name = COALESCE(NULLIF(excluded.name, ''), `+config.StatLinesTable+`.name),
			stats_json = excluded.stats_json,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at`,
		line.PlayerID, line.Date, line.Name, string(stats), contentHash, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert stat line %s/%s: %w", line.PlayerID, line.Date, err)
	}
	return nil
}

// StatLineFingerprint returns the stored content hash for a (player, date)
// pair, or "" if never stored.
func (s *Store) StatLineFingerprint(ctx context.Context, playerID, date string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM `+config.StatLinesTable+` WHERE player_id = ? AND date = ?`,
		playerID, date).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("stat line fingerprint %s/%s: %w", playerID, date, err)
	}
	return hash, nil
}

// StatLineOn returns the stored stat line for a (player, date) pair.
func (s *Store) StatLineOn(ctx context.Context, playerID, date string) (model.StatLine, bool, error) {
	var line model.StatLine
	var statsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT player_id, date, name, stats_json FROM `+config.StatLinesTable+`
		 WHERE player_id = ? AND date = ?`,
		playerID, date).Scan(&line.PlayerID, &line.Date, &line.Name, &statsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StatLine{}, false, nil
	}
	if err != nil {
		return model.StatLine{}, false, fmt.Errorf("stat line %s/%s: %w", playerID, date, err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &line.Stats); err != nil {
		return model.StatLine{}, false, fmt.Errorf("decode stats %s/%s: %w", playerID, date, err)
	}
	return line, true, nil
}

// PlayerStatLines returns a player's stat lines in [from, to], newest first.
// Empty bounds are open.
func (s *Store) PlayerStatLines(ctx context.Context, playerID, from, to string, limit int) ([]model.StatLine, error) {
	if limit <= 0 {
		limit = 60
	}
	query := `SELECT player_id, date, name, stats_json FROM ` + config.StatLinesTable + ` WHERE player_id = ?`
	args := []interface{}{playerID}
	if from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY date DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("player stat lines %s: %w", playerID, err)
	}
	defer rows.Close()

	var lines []model.StatLine
	for rows.Next() {
		var line model.StatLine
		var statsJSON string
		if err := rows.Scan(&line.PlayerID, &line.Date, &line.Name, &statsJSON); err != nil {
			return nil, fmt.Errorf("scan stat line: %w", err)
		}
		if err := json.Unmarshal([]byte(statsJSON), &line.Stats); err != nil {
			return nil, fmt.Errorf("decode stats %s/%s: %w", line.PlayerID, line.Date, err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

// UpsertTransaction writes a transaction and its content hash.
func (s *Store) UpsertTransaction(ctx context.Context, t model.Transaction, contentHash string) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+config.TransactionsTable+` (transaction_id, type, player_id, team_key, date, status, content_hash, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			type = excluded.type,
			player_id = excluded.player_id,
			team_key = excluded.team_key,
			date = excluded.date,
			status = excluded.status,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at`,
		t.TransactionID, t.Type, t.PlayerID, t.TeamKey, t.Date, t.Status, contentHash, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert transaction %s: %w", t.TransactionID, err)
	}
	return nil
}

// TransactionFingerprint returns the stored content hash for a transaction,
// or "" if never stored.
func (s *Store) TransactionFingerprint(ctx context.Context, transactionID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM `+config.TransactionsTable+` WHERE transaction_id = ?`,
		transactionID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("transaction fingerprint %s: %w", transactionID, err)
	}
	return hash, nil
}

// Transactions returns stored transactions, newest date first. A non-empty
// date filters to that day.
func (s *Store) Transactions(ctx context.Context, date string, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT transaction_id, type, player_id, team_key, date, status FROM ` + config.TransactionsTable
	args := []interface{}{}
	if date != "" {
		query += ` WHERE date = ?`
		args = append(args, date)
	}
	query += ` ORDER BY date DESC, transaction_id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.TransactionID, &t.Type, &t.PlayerID, &t.TeamKey, &t.Date, &t.Status); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func nonNilPlayers(p []model.LineupPlayer) []model.LineupPlayer {
	if p == nil {
		return []model.LineupPlayer{}
	}
	return p
}

func nonNilStats(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
