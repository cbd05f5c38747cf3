// Command api is the Dugout Data API server and pipeline daemon.
//
// Usage:
//
//	dugout-api
//	API_PORT=8080 dugout-api

// @title Dugout Data API
// @version 1.0.0
// @description Read API over the fantasy-baseball pipeline's local store: lineups, stat lines, transactions, the player directory, and pipeline introspection (change log, runs, status). The daemon also runs scheduled collection and replica publishing.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/pinetar/dugout-data/internal/api"
	"github.com/pinetar/dugout-data/internal/api/handler"
	"github.com/pinetar/dugout-data/internal/cache"
	"github.com/pinetar/dugout-data/internal/collect"
	"github.com/pinetar/dugout-data/internal/config"
	"github.com/pinetar/dugout-data/internal/maintenance"
	"github.com/pinetar/dugout-data/internal/provider/file"
	"github.com/pinetar/dugout-data/internal/publish"
	"github.com/pinetar/dugout-data/internal/refresh"
	"github.com/pinetar/dugout-data/internal/store"

	_ "github.com/pinetar/dugout-data/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Open the local store
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("Store opened", "path", cfg.DBPath)

	// Connect the replica when configured
	var pool *publish.Pool
	if cfg.ReplicaDatabaseURL != "" {
		pool, err = publish.NewPool(ctx, cfg)
		if err != nil {
			logger.Error("Failed to connect to replica", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		logger.Info("Replica connected",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)
	} else {
		logger.Info("Replica publishing disabled (no REPLICA_DATABASE_URL)")
	}

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Refresh policy drives both the collector and the schedule anchors
	strat := refresh.New()
	strat.Location = cfg.Location

	// Collector over the configured source directory
	var collector *collect.Collector
	if cfg.SourceDir != "" {
		src := file.New(cfg.SourceDir)
		collector = collect.New(st, src, strat, logger, cfg.CollectWorkers,
			float64(cfg.SourceRateLimit)/60.0)
		logger.Info("Collector ready", "source", src.Name(), "dir", cfg.SourceDir)
	} else {
		logger.Info("Scheduled collection disabled (no SOURCE_DIR)")
	}

	// Background cadence: collect at anchors, publish after, prune hourly
	tasks := maintenance.Tasks{
		Cleanup: maintenance.CleanupTask(st, cfg.CollectRetention, cfg.RunRetention, logger),
	}
	if collector != nil {
		tasks.Collect = func(ctx context.Context) error {
			res := collector.Run(ctx, cfg.CollectDays, false)
			if res.RecordsNew+res.RecordsModified > 0 {
				appCache.Clear()
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("collection completed with %d errors", len(res.Errors))
			}
			return nil
		}
	}
	if pool != nil {
		publisher := &publish.Publisher{
			Store:     st,
			Pool:      pool,
			Log:       logger,
			BatchSize: cfg.PublishBatchSize,
		}
		tasks.Publish = func(ctx context.Context) error {
			_, err := publisher.Run(ctx)
			return err
		}
	}
	go maintenance.Start(ctx, strat, tasks, maintenance.DefaultConfig(), logger)

	// Admin trigger shares the scheduler's collector
	var trigger handler.TriggerFunc
	if collector != nil {
		trigger = func(ctx context.Context, days int, force bool) (collect.Result, error) {
			return collector.Run(ctx, days, force), nil
		}
	}

	// Create router
	router := api.NewRouter(st, pool, appCache, cfg, logger, trigger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Dugout Data API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
