package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pinetar/dugout-data/internal/api/respond"
	"github.com/pinetar/dugout-data/internal/cache"
	"github.com/pinetar/dugout-data/internal/model"
)

const maxLimit = 500

// GetTeamLineups returns recent lineups for a fantasy team.
// @Summary Get team lineups
// @Description Returns the most recent stored lineups for a fantasy team, newest first.
// @Tags records
// @Produce json
// @Param teamKey path string true "Fantasy team key"
// @Param limit query int false "Maximum lineups to return (default 30)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /lineups/{teamKey} [get]
func (h *Handler) GetTeamLineups(w http.ResponseWriter, r *http.Request) {
	teamKey := chi.URLParam(r, "teamKey")
	limit, err := parseLimit(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", err.Error())
		return
	}

	key := fmt.Sprintf("lineups:%s:%d", teamKey, limit)
	h.serveCached(w, r, key, cache.TTLRecords, func() (any, error) {
		lineups, err := h.store.TeamLineups(r.Context(), teamKey, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"team_key": teamKey,
			"count":    len(lineups),
			"lineups":  lineups,
		}, nil
	})
}

// GetPlayerStats returns stat lines for a player, optionally bounded by date.
// @Summary Get player stat lines
// @Description Returns stored stat lines for a player, newest first. from/to bound the date range.
// @Tags records
// @Produce json
// @Param playerID path string true "Fantasy player key"
// @Param from query string false "Earliest date (YYYY-MM-DD)"
// @Param to query string false "Latest date (YYYY-MM-DD)"
// @Param limit query int false "Maximum stat lines to return (default 60)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /stats/{playerID} [get]
func (h *Handler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	for _, d := range []string{from, to} {
		if d != "" {
			if _, err := model.ParseDate(d, nil); err != nil {
				respond.WriteError(w, http.StatusBadRequest, "INVALID_DATE", "Dates must be YYYY-MM-DD")
				return
			}
		}
	}
	limit, err := parseLimit(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", err.Error())
		return
	}

	key := fmt.Sprintf("stats:%s:%s:%s:%d", playerID, from, to, limit)
	h.serveCached(w, r, key, cache.TTLRecords, func() (any, error) {
		lines, err := h.store.PlayerStatLines(r.Context(), playerID, from, to, limit)
		if err != nil {
			return nil, err
		}
		out := map[string]any{
			"player_id":  playerID,
			"count":      len(lines),
			"stat_lines": lines,
		}
		if ref, ok, err := h.store.Player(r.Context(), playerID); err == nil && ok {
			out["player"] = ref
		}
		return out, nil
	})
}

// GetTransactions returns league transactions, optionally for one date.
// @Summary Get transactions
// @Description Returns stored league transactions, newest first. date narrows to one day.
// @Tags records
// @Produce json
// @Param date query string false "Transaction date (YYYY-MM-DD)"
// @Param limit query int false "Maximum transactions to return (default 100)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /transactions [get]
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
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

	key := fmt.Sprintf("transactions:%s:%d", date, limit)
	h.serveCached(w, r, key, cache.TTLRecords, func() (any, error) {
		txns, err := h.store.Transactions(r.Context(), date, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"date":         date,
			"count":        len(txns),
			"transactions": txns,
		}, nil
	})
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// parseLimit reads the limit query parameter. Zero means the store default.
func parseLimit(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(s)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if limit > maxLimit {
		return 0, fmt.Errorf("limit must be at most %d", maxLimit)
	}
	return limit, nil
}
