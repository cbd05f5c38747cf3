// Command ingest is the Dugout data pipeline CLI.
//
// Usage:
//
//	dugout-ingest collect --days 10
//	dugout-ingest collect --days 30 --force
//	dugout-ingest publish
//	dugout-ingest resolve --directory data/mlb_people.json
//	dugout-ingest status
//	dugout-ingest prune
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pinetar/dugout-data/internal/collect"
	"github.com/pinetar/dugout-data/internal/config"
	"github.com/pinetar/dugout-data/internal/identity"
	"github.com/pinetar/dugout-data/internal/maintenance"
	"github.com/pinetar/dugout-data/internal/provider/file"
	"github.com/pinetar/dugout-data/internal/publish"
	"github.com/pinetar/dugout-data/internal/refresh"
	"github.com/pinetar/dugout-data/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "dugout-ingest",
		Short: "Dugout data pipeline CLI",
	}

	root.AddCommand(collectCmd())
	root.AddCommand(publishCmd())
	root.AddCommand(resolveCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(pruneCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// collect command
// --------------------------------------------------------------------------

func collectCmd() *cobra.Command {
	var (
		days    int
		force   bool
		workers int
	)
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect records from the configured source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				strat := refresh.New()
				strat.Location = cfg.Location

				src := file.New(cfg.SourceDir)
				if days == 0 {
					days = cfg.CollectDays
				}
				if workers == 0 {
					workers = cfg.CollectWorkers
				}
				collector := collect.New(st, src, strat, logger, workers,
					float64(cfg.SourceRateLimit)/60.0)

				start := time.Now()
				result := collector.Run(ctx, days, force)
				logger.Info("Collection finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("collect error", "error", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Days back from today to collect (default COLLECT_DAYS)")
	cmd.Flags().BoolVar(&force, "force", false, "Bypass the refresh policy for every date")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent worker count (default COLLECT_WORKERS)")
	return cmd
}

// --------------------------------------------------------------------------
// publish command
// --------------------------------------------------------------------------

func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish rows updated since the last publish to the replica",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				if cfg.ReplicaDatabaseURL == "" {
					return fmt.Errorf("REPLICA_DATABASE_URL is required")
				}
				pool, err := publish.NewPool(ctx, cfg)
				if err != nil {
					return fmt.Errorf("connect to replica: %w", err)
				}
				defer pool.Close()

				publisher := &publish.Publisher{
					Store:     st,
					Pool:      pool,
					Log:       logger,
					BatchSize: cfg.PublishBatchSize,
				}
				res, err := publisher.Run(ctx)
				if err != nil {
					return err
				}
				logger.Info("Publish finished", "rows", res.Total(), "summary", res.Summary())
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// resolve command
// --------------------------------------------------------------------------

func resolveCmd() *cobra.Command {
	var (
		directory string
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve fantasy player keys against an MLB person directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if directory == "" {
				return fmt.Errorf("--directory is required")
			}
			return runPipeline(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				people, err := identity.LoadDirectory(directory)
				if err != nil {
					return fmt.Errorf("load directory: %w", err)
				}
				resolver := identity.NewResolver(people)
				if threshold > 0 {
					resolver.Threshold = threshold
				}

				unresolved, err := st.UnresolvedPlayers(ctx)
				if err != nil {
					return fmt.Errorf("read unresolved players: %w", err)
				}

				resolved := 0
				for _, p := range unresolved {
					m, ok := resolver.Resolve(p.Name)
					if !ok {
						continue
					}
					if err := st.SetPlayerMLBID(ctx, p.PlayerID, m.Person.ID); err != nil {
						return fmt.Errorf("set mlb id for %s: %w", p.PlayerID, err)
					}
					logger.Info("Resolved player",
						"player_id", p.PlayerID, "name", p.Name,
						"mlb_id", m.Person.ID, "score", fmt.Sprintf("%.3f", m.Score))
					resolved++
				}
				logger.Info("Resolution finished",
					"directory_size", len(people),
					"candidates", len(unresolved),
					"resolved", resolved,
					"remaining", len(unresolved)-resolved)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&directory, "directory", "", "Path to the MLB person directory JSON")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity for fuzzy matches (default 0.85)")
	return cmd
}

// --------------------------------------------------------------------------
// status command
// --------------------------------------------------------------------------

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored row counts, publish watermarks, and recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				counts, err := st.Counts(ctx)
				if err != nil {
					return fmt.Errorf("read counts: %w", err)
				}
				for _, table := range []string{
					config.LineupsTable, config.StatLinesTable,
					config.TransactionsTable, config.PlayersTable,
				} {
					wm, err := st.Watermark(ctx, table)
					if err != nil {
						return fmt.Errorf("read watermark for %s: %w", table, err)
					}
					published := "never"
					if wm != nil {
						published = wm.UTC().Format(time.RFC3339)
					}
					logger.Info("Table status", "table", table, "rows", counts[table], "published_through", published)
				}

				runs, err := st.RecentRuns(ctx, 5)
				if err != nil {
					return fmt.Errorf("read runs: %w", err)
				}
				for _, run := range runs {
					logger.Info("Run",
						"id", run.ID,
						"started_at", run.StartedAt.Format(time.RFC3339),
						"finished", run.FinishedAt != nil,
						"fetched", run.DatesFetched,
						"skipped", run.DatesSkipped,
						"new", run.RecordsNew,
						"modified", run.RecordsModified,
						"unchanged", run.RecordsUnchanged,
						"errors", len(run.Errors))
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// prune command
// --------------------------------------------------------------------------

func pruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Prune old change-log and run rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				return maintenance.CleanupTask(st, cfg.CollectRetention, cfg.RunRetention, logger)(ctx)
			})
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runPipeline handles config loading, store opening, and context cancellation.
func runPipeline(fn func(ctx context.Context, cfg *config.Config, st *store.Store) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	return fn(ctx, cfg, st)
}
