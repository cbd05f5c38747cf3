// Package handler provides HTTP handlers for all API endpoints.
// Handlers read the local store directly — no service layer. GET responses
// flow through the in-memory cache and support ETag revalidation.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pinetar/dugout-data/internal/api/respond"
	"github.com/pinetar/dugout-data/internal/cache"
	"github.com/pinetar/dugout-data/internal/collect"
	"github.com/pinetar/dugout-data/internal/config"
	"github.com/pinetar/dugout-data/internal/metrics"
	"github.com/pinetar/dugout-data/internal/model"
	"github.com/pinetar/dugout-data/internal/publish"
	"github.com/pinetar/dugout-data/internal/store"
)

// TriggerFunc starts an on-demand collection run. Wired by the daemon so the
// admin endpoint shares the scheduler's collector.
type TriggerFunc func(ctx context.Context, days int, force bool) (collect.Result, error)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store   *store.Store
	replica *publish.Pool
	cache   *cache.Cache
	cfg     *config.Config
	log     *slog.Logger
	trigger TriggerFunc
}

// New creates a Handler with shared dependencies. replica and trigger may be
// nil when the daemon runs without a replica or scheduler.
func New(st *store.Store, replica *publish.Pool, c *cache.Cache, cfg *config.Config, log *slog.Logger, trigger TriggerFunc) *Handler {
	return &Handler{
		store:   st,
		replica: replica,
		cache:   c,
		cfg:     cfg,
		log:     log,
		trigger: trigger,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status, and tracked record kinds.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"name":    "Dugout Data API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"kinds":   model.Kinds(),
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies store connectivity, and replica connectivity when a
// replica is configured.
// @Summary Database health check
// @Description Verifies local store connectivity and, when configured, replica connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"store":     "disconnected",
			"error":     "Store connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	replica := "not_configured"
	if h.replica != nil {
		replica = "connected"
		if err := h.replica.HealthCheck(r.Context()); err != nil {
			replica = "disconnected"
		}
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"store":     "connected",
		"replica":   replica,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// serveCached serves the loader's result as JSON through the response cache.
// If-None-Match revalidation answers 304 on a matching ETag.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, load func() (any, error)) {
	if data, etag, ok := h.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}
	metrics.CacheMisses.Inc()

	v, err := load()
	if err != nil {
		h.log.Error("Read failed", "path", r.URL.Path, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "READ_FAILED", "Failed to read records")
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode response")
		return
	}
	etag := h.cache.Set(key, data, ttl)
	respond.WriteJSON(w, data, etag, ttl, false)
}
