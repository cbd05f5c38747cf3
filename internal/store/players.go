package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pinetar/dugout-data/internal/config"
	"github.com/pinetar/dugout-data/internal/model"
)

// UpsertPlayerRef records a player sighting in the reference directory.
// The update clause is conditional so updated_at only moves when something
// actually changed, and an already-resolved mlb_id is never clobbered by
// an empty one.
func (s *Store) UpsertPlayerRef(ctx context.Context, ref model.PlayerRef) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+config.PlayersTable+` (player_id, name, team_key, position, mlb_id, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(player_id) DO UPDATE SET
			name = COALESCE(NULLIF(excluded.name, ''), `+config.PlayersTable+`.name),
			team_key = COALESCE(NULLIF(excluded.team_key, ''), `+config.PlayersTable+`.team_key),
			position = COALESCE(NULLIF(excluded.position, ''), `+config.PlayersTable+`.position),
			mlb_id = COALESCE(NULLIF(excluded.mlb_id, ''), `+config.PlayersTable+`.mlb_id),
			updated_at = excluded.updated_at
		WHERE COALESCE(NULLIF(excluded.name, ''), `+config.PlayersTable+`.name) != `+config.PlayersTable+`.name
		   OR COALESCE(NULLIF(excluded.team_key, ''), `+config.PlayersTable+`.team_key) != `+config.PlayersTable+`.team_key
		   OR COALESCE(NULLIF(excluded.position, ''), `+config.PlayersTable+`.position) != `+config.PlayersTable+`.position
		   OR COALESCE(NULLIF(excluded.mlb_id, ''), `+config.PlayersTable+`.mlb_id) != `+config.PlayersTable+`.mlb_id`,
		ref.PlayerID, ref.Name, ref.TeamKey, ref.Position, ref.MLBID, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert player %s: %w", ref.PlayerID, err)
	}
	return nil
}

// Player returns one player reference row.
func (s *Store) Player(ctx context.Context, playerID string) (model.PlayerRef, bool, error) {
	var ref model.PlayerRef
	err := s.db.QueryRowContext(ctx,
		`SELECT player_id, name, team_key, position, mlb_id FROM `+config.PlayersTable+` WHERE player_id = ?`,
		playerID).Scan(&ref.PlayerID, &ref.Name, &ref.TeamKey, &ref.Position, &ref.MLBID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlayerRef{}, false, nil
	}
	if err != nil {
		return model.PlayerRef{}, false, fmt.Errorf("player %s: %w", playerID, err)
	}
	return ref, true, nil
}

// Players returns the full player reference directory.
func (s *Store) Players(ctx context.Context) ([]model.PlayerRef, error) {
	return s.queryPlayers(ctx,
		`SELECT player_id, name, team_key, position, mlb_id FROM `+config.PlayersTable+` ORDER BY player_id`)
}

// UnresolvedPlayers returns players with no MLB id yet.
func (s *Store) UnresolvedPlayers(ctx context.Context) ([]model.PlayerRef, error) {
	return s.queryPlayers(ctx,
		`SELECT player_id, name, team_key, position, mlb_id FROM `+config.PlayersTable+`
		 WHERE mlb_id = '' ORDER BY player_id`)
}

func (s *Store) queryPlayers(ctx context.Context, query string, args ...interface{}) ([]model.PlayerRef, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("players: %w", err)
	}
	defer rows.Close()

	var refs []model.PlayerRef
	for rows.Next() {
		var ref model.PlayerRef
		if err := rows.Scan(&ref.PlayerID, &ref.Name, &ref.TeamKey, &ref.Position, &ref.MLBID); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// SetPlayerMLBID stores a resolved MLB person id for a player.
func (s *Store) SetPlayerMLBID(ctx context.Context, playerID, mlbID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+config.PlayersTable+` SET mlb_id = ?, updated_at = ? WHERE player_id = ?`,
		mlbID, s.now(), playerID)
	if err != nil {
		return fmt.Errorf("set mlb id %s: %w", playerID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set mlb id %s: no such player", playerID)
	}
	return nil
}
