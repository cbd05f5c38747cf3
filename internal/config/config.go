// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pinetar/dugout-data/internal/model"
)

// --------------------------------------------------------------------------
// Kind registry — the record kinds the pipeline tracks
// --------------------------------------------------------------------------

type KindConfig struct {
	ID    model.Kind
	Name  string
	Table string
}

var KindRegistry = map[model.Kind]KindConfig{
	model.KindLineup:      {ID: model.KindLineup, Name: "Daily Lineups", Table: LineupsTable},
	model.KindStats:       {ID: model.KindStats, Name: "Player Stat Lines", Table: StatLinesTable},
	model.KindTransaction: {ID: model.KindTransaction, Name: "League Transactions", Table: TransactionsTable},
}

// --------------------------------------------------------------------------
// Table names — single source of truth, matches the store schema
// --------------------------------------------------------------------------

const (
	LineupsTable      = "lineups"
	StatLinesTable    = "stat_lines"
	TransactionsTable = "transactions"
	PlayersTable      = "players"
	FetchLogTable     = "fetch_log"
	ChangesTable      = "changes"
	RunsTable         = "runs"
	PublishStateTable = "publish_state"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Local store (SQLite)
	DBPath string

	// Replica (Postgres). Empty disables publishing.
	ReplicaDatabaseURL string
	DBPoolMinConns     int
	DBPoolMaxConns     int
	DBPoolMaxLife      time.Duration
	PublishBatchSize   int

	// Source
	SourceDir         string // directory of JSON dumps
	SourceRateLimit   int    // upstream requests per minute
	CollectWorkers    int
	CollectDays       int // how many trailing days an unscoped collect covers
	CollectRetention  time.Duration
	RunRetention      time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool
	AdminToken  string

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Cache
	CacheEnabled bool

	// Timezone governing data dates and refresh anchors.
	Location *time.Location
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	loc := time.Local
	if tz := os.Getenv("DUGOUT_TZ"); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load DUGOUT_TZ %q: %w", tz, err)
		}
		loc = parsed
	}

	return &Config{
		DBPath: envOr("DUGOUT_DB_PATH", "dugout.db"),

		ReplicaDatabaseURL: envOr("REPLICA_DATABASE_URL", envOr("DATABASE_URL", "")),
		DBPoolMinConns:     envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns:     envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:      time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,
		PublishBatchSize:   envInt("PUBLISH_BATCH_SIZE", 500),

		SourceDir:        envOr("SOURCE_DIR", "data/source"),
		SourceRateLimit:  envInt("SOURCE_RATE_LIMIT", 60),
		CollectWorkers:   envInt("COLLECT_WORKERS", 2),
		CollectDays:      envInt("COLLECT_DAYS", 10),
		CollectRetention: time.Duration(envInt("CHANGE_RETENTION_DAYS", 90)) * 24 * time.Hour,
		RunRetention:     time.Duration(envInt("RUN_RETENTION_DAYS", 30)) * 24 * time.Hour,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),
		AdminToken:  envOr("ADMIN_TOKEN", ""),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:4321",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CacheEnabled: envBool("CACHE_ENABLED", true),

		Location: loc,
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
