// Package publish streams locally stored rows into the Postgres replica the
// analytics stack reads from. SQLite stays the source of truth; the replica
// is rebuildable from it at any time by clearing the publish watermarks.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pinetar/dugout-data/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates and validates a replica connection pool. The replica
// schema is bootstrapped on a throwaway connection first so the prepared
// statements registered below can reference the tables.
func NewPool(ctx context.Context, cfg *config.Config) (*Pool, error) {
	boot, err := pgx.Connect(ctx, cfg.ReplicaDatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect replica: %w", err)
	}
	if err := ensureReplicaSchema(ctx, boot); err != nil {
		_ = boot.Close(ctx)
		return nil, fmt.Errorf("bootstrap replica schema: %w", err)
	}
	if err := boot.Close(ctx); err != nil {
		return nil, fmt.Errorf("close bootstrap connection: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ReplicaDatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse replica URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create replica pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping replica: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the replica is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// ensureReplicaSchema creates the mirrored tables if missing. Dates stay
// TEXT (YYYY-MM-DD) to match the local store; payloads become JSONB so the
// replica is queryable.
func ensureReplicaSchema(ctx context.Context, conn *pgx.Conn) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS ` + config.LineupsTable + ` (
			date         TEXT NOT NULL,
			team_key     TEXT NOT NULL,
			players      JSONB NOT NULL DEFAULT '[]',
			content_hash TEXT NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL,
			published_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (date, team_key)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + config.StatLinesTable + ` (
			player_id    TEXT NOT NULL,
			date         TEXT NOT NULL,
			name         TEXT NOT NULL DEFAULT '',
			stats        JSONB NOT NULL DEFAULT '{}',
			content_hash TEXT NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL,
			published_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (player_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + config.TransactionsTable + ` (
			transaction_id TEXT PRIMARY KEY,
			type           TEXT NOT NULL DEFAULT '',
			player_id      TEXT NOT NULL DEFAULT '',
			team_key       TEXT NOT NULL DEFAULT '',
			date           TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT '',
			content_hash   TEXT NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL,
			published_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + config.PlayersTable + ` (
			player_id    TEXT PRIMARY KEY,
			name         TEXT NOT NULL DEFAULT '',
			team_key     TEXT NOT NULL DEFAULT '',
			position     TEXT NOT NULL DEFAULT '',
			mlb_id       TEXT NOT NULL DEFAULT '',
			updated_at   TIMESTAMPTZ NOT NULL,
			published_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + config.LineupsTable + `_team ON ` + config.LineupsTable + `(team_key, date)`,
		`CREATE INDEX IF NOT EXISTS idx_` + config.StatLinesTable + `_date ON ` + config.StatLinesTable + `(date)`,
		`CREATE INDEX IF NOT EXISTS idx_` + config.TransactionsTable + `_date ON ` + config.TransactionsTable + `(date)`,
	}
	for _, stmt := range ddl {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// registerPreparedStatements registers the replica upserts. Prepared
// statements eliminate parse overhead on every batched row.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		"health_check": "SELECT 1",

		"publish_lineup": `
			INSERT INTO ` + config.LineupsTable + ` (date, team_key, players, content_hash, updated_at)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (date, team_key) DO UPDATE SET
				players = EXCLUDED.players,
				content_hash = EXCLUDED.content_hash,
				updated_at = EXCLUDED.updated_at,
				published_at = NOW()`,

		"publish_stat_line": `
			INSERT INTO ` + config.StatLinesTable + ` (player_id, date, name, stats, content_hash, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (player_id, date) DO UPDATE SET
				name = EXCLUDED.name,
				stats = EXCLUDED.stats,
				content_hash = EXCLUDED.content_hash,
				updated_at = EXCLUDED.updated_at,
				published_at = NOW()`,

		"publish_transaction": `
			INSERT INTO ` + config.TransactionsTable + ` (transaction_id, type, player_id, team_key, date, status, content_hash, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (transaction_id) DO UPDATE SET
				type = EXCLUDED.type,
				player_id = EXCLUDED.player_id,
				team_key = EXCLUDED.team_key,
				date = EXCLUDED.date,
				status = EXCLUDED.status,
				content_hash = EXCLUDED.content_hash,
				updated_at = EXCLUDED.updated_at,
				published_at = NOW()`,

		"publish_player": `
			INSERT INTO ` + config.PlayersTable + ` (player_id, name, team_key, position, mlb_id, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (player_id) DO UPDATE SET
				name = EXCLUDED.name,
				team_key = EXCLUDED.team_key,
				position = EXCLUDED.position,
				mlb_id = EXCLUDED.mlb_id,
				updated_at = EXCLUDED.updated_at,
				published_at = NOW()`,

		"notify_publish": "SELECT pg_notify($1, $2)",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
