package config

import (
	"testing"
	"time"

	"github.com/pinetar/dugout-data/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DBPath != "dugout.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.APIPort != 8000 {
		t.Errorf("APIPort = %d", cfg.APIPort)
	}
	if cfg.CollectWorkers != 2 || cfg.CollectDays != 10 {
		t.Errorf("collector defaults: workers=%d days=%d", cfg.CollectWorkers, cfg.CollectDays)
	}
	if !cfg.RateLimitEnabled || !cfg.CacheEnabled {
		t.Error("rate limiting and cache should default on")
	}
	if cfg.IsProduction() {
		t.Error("default environment should not be production")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DUGOUT_DB_PATH", "/tmp/test.db")
	t.Setenv("REPLICA_DATABASE_URL", "postgres://replica")
	t.Setenv("API_PORT", "9000")
	t.Setenv("COLLECT_WORKERS", "4")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DUGOUT_TZ", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ReplicaDatabaseURL != "postgres://replica" {
		t.Errorf("ReplicaDatabaseURL = %q", cfg.ReplicaDatabaseURL)
	}
	if cfg.APIPort != 9000 {
		t.Errorf("APIPort = %d", cfg.APIPort)
	}
	if cfg.CollectWorkers != 4 {
		t.Errorf("CollectWorkers = %d", cfg.CollectWorkers)
	}
	if cfg.CacheEnabled {
		t.Error("CACHE_ENABLED=false not honored")
	}
	if len(cfg.CORSAllowOrigins) != 2 || cfg.CORSAllowOrigins[1] != "https://b.example" {
		t.Errorf("CORSAllowOrigins = %v", cfg.CORSAllowOrigins)
	}
	if !cfg.IsProduction() {
		t.Error("ENVIRONMENT=production not honored")
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v", cfg.Location)
	}
}

func TestLoadBadTimezone(t *testing.T) {
	t.Setenv("DUGOUT_TZ", "Mars/Olympus_Mons")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestKindRegistryCoversAllKinds(t *testing.T) {
	for _, k := range model.Kinds() {
		kc, ok := KindRegistry[k]
		if !ok {
			t.Fatalf("kind %q missing from registry", k)
		}
		if kc.Table == "" || kc.Name == "" {
			t.Fatalf("kind %q has incomplete registry entry: %+v", k, kc)
		}
	}
}
