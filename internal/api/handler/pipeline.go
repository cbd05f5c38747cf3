package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pinetar/dugout-data/internal/api/respond"
	"github.com/pinetar/dugout-data/internal/cache"
	"github.com/pinetar/dugout-data/internal/config"
	"github.com/pinetar/dugout-data/internal/model"
)

// GetChanges returns the change log, newest first.
// @Summary Get change log
// @Description Returns detected record changes, newest first. kind and date narrow the result.
// @Tags pipeline
// @Produce json
// @Param kind query string false "Record kind" Enums(lineup, stats, transaction)
// @Param date query string false "Data date (YYYY-MM-DD)"
// @Param limit query int false "Maximum changes to return (default 100)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /changes [get]
func (h *Handler) GetChanges(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && !validKind(kind) {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_KIND",
			"kind must be one of: lineup, stats, transaction")
		return
	}
	date := r.URL.Query().Get("date")
	if date != "" {
		if _, err := model.ParseDate(date, nil); err != nil {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD")
			return
		}
	}
	limit, err := parseLimit(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", err.Error())
		return
	}

	key := fmt.Sprintf("changes:%s:%s:%d", kind, date, limit)
	h.serveCached(w, r, key, cache.TTLChanges, func() (any, error) {
		changes, err := h.store.Changes(r.Context(), kind, date, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"count":   len(changes),
			"changes": changes,
		}, nil
	})
}

// GetRuns returns recent collection runs.
// @Summary Get collection runs
// @Description Returns recent collection run summaries, newest first.
// @Tags pipeline
// @Produce json
// @Param limit query int false "Maximum runs to return (default 20)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /runs [get]
func (h *Handler) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", err.Error())
		return
	}

	key := fmt.Sprintf("runs:%d", limit)
	h.serveCached(w, r, key, cache.TTLStatus, func() (any, error) {
		runs, err := h.store.RecentRuns(r.Context(), limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"count": len(runs),
			"runs":  runs,
		}, nil
	})
}

// GetStatus returns pipeline status: row counts, publish watermarks, and the
// latest collection run.
// @Summary Get pipeline status
// @Description Returns stored row counts per table, replica publish watermarks, and the latest collection run.
// @Tags pipeline
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /status [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "status", cache.TTLStatus, func() (any, error) {
		counts, err := h.store.Counts(r.Context())
		if err != nil {
			return nil, err
		}

		watermarks := make(map[string]any, 4)
		for _, table := range []string{
			config.LineupsTable, config.StatLinesTable,
			config.TransactionsTable, config.PlayersTable,
		} {
			wm, err := h.store.Watermark(r.Context(), table)
			if err != nil {
				return nil, err
			}
			if wm == nil {
				watermarks[table] = nil
			} else {
				watermarks[table] = wm.UTC().Format(time.RFC3339)
			}
		}

		out := map[string]any{
			"counts":     counts,
			"watermarks": watermarks,
			"replica":    h.replica != nil,
		}
		runs, err := h.store.RecentRuns(r.Context(), 1)
		if err != nil {
			return nil, err
		}
		if len(runs) > 0 {
			out["last_run"] = runs[0]
		}
		return out, nil
	})
}

// TriggerCollect starts an on-demand collection run.
// Guarded by ADMIN_TOKEN; returns 401 if missing/invalid.
// @Summary Trigger collection
// @Description Runs an immediate collection pass. force bypasses the refresh policy for every date.
// @Tags admin
// @Produce json
// @Param days query int false "Days back from today to collect (default COLLECT_DAYS)"
// @Param force query bool false "Bypass the refresh policy"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /admin/collect [post]
func (h *Handler) TriggerCollect(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(r) {
		h.log.Warn("Admin unauthorized", "path", r.URL.Path, "remote", r.RemoteAddr)
		respond.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid admin token")
		return
	}
	if h.trigger == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "Collector is not configured")
		return
	}

	days := h.cfg.CollectDays
	if d := r.URL.Query().Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_DAYS", "days must be a positive integer")
			return
		}
		days = n
	}
	force := r.URL.Query().Get("force") == "true"

	res, err := h.trigger(r.Context(), days, force)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "COLLECT_FAILED",
			"Collection run failed", err.Error())
		return
	}

	h.cache.Clear()
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"run_id":    res.RunID,
		"summary":   res.Summary(),
		"planned":   res.DatesPlanned,
		"fetched":   res.DatesFetched,
		"skipped":   res.DatesSkipped,
		"new":       res.RecordsNew,
		"modified":  res.RecordsModified,
		"unchanged": res.RecordsUnchanged,
		"errors":    res.Errors,
	})
}

func (h *Handler) authorize(r *http.Request) bool {
	if h.cfg.AdminToken == "" {
		return false
	}
	return r.Header.Get("Authorization") == "Bearer "+h.cfg.AdminToken
}

func validKind(s string) bool {
	for _, k := range model.Kinds() {
		if s == string(k) {
			return true
		}
	}
	return false
}
