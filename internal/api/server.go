package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/pinetar/dugout-data/internal/api/handler"
	"github.com/pinetar/dugout-data/internal/cache"
	"github.com/pinetar/dugout-data/internal/config"
	"github.com/pinetar/dugout-data/internal/publish"
	"github.com/pinetar/dugout-data/internal/store"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(st *store.Store, replica *publish.Pool, appCache *cache.Cache, cfg *config.Config, log *slog.Logger, trigger handler.TriggerFunc) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Authorization", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "Link", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(st, replica, appCache, cfg, log, trigger)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Records
		r.Get("/lineups/{teamKey}", h.GetTeamLineups)
		r.Get("/stats/{playerID}", h.GetPlayerStats)
		r.Get("/transactions", h.GetTransactions)

		// Player directory
		r.Get("/players", h.GetPlayers)
		r.Get("/players/{playerID}", h.GetPlayer)

		// Pipeline introspection
		r.Get("/changes", h.GetChanges)
		r.Get("/runs", h.GetRuns)
		r.Get("/status", h.GetStatus)

		// Admin: mounted only when a token is configured
		if cfg.AdminToken != "" {
			r.Post("/admin/collect", h.TriggerCollect)
		}
	})

	return r
}
