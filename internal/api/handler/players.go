package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pinetar/dugout-data/internal/api/respond"
	"github.com/pinetar/dugout-data/internal/cache"
)

// GetPlayer returns one player directory entry.
// @Summary Get player
// @Description Returns the directory entry for a fantasy player key, including the MLB id when resolved.
// @Tags players
// @Produce json
// @Param playerID path string true "Fantasy player key"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /players/{playerID} [get]
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	key := "player:" + playerID
	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLPlayers, true)
		return
	}

	ref, ok, err := h.store.Player(r.Context(), playerID)
	if err != nil {
		h.log.Error("Read failed", "path", r.URL.Path, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "READ_FAILED", "Failed to read player")
		return
	}
	if !ok {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND",
			fmt.Sprintf("No player with key %s", playerID))
		return
	}

	h.serveCached(w, r, key, cache.TTLPlayers, func() (any, error) {
		return ref, nil
	})
}

// GetPlayers returns the player directory.
// @Summary List players
// @Description Returns every player the pipeline has seen. unresolved=true narrows to players without an MLB id.
// @Tags players
// @Produce json
// @Param unresolved query bool false "Only players without an MLB id"
// @Success 200 {object} map[string]interface{}
// @Router /players [get]
func (h *Handler) GetPlayers(w http.ResponseWriter, r *http.Request) {
	unresolved := r.URL.Query().Get("unresolved") == "true"

	key := fmt.Sprintf("players:%v", unresolved)
	h.serveCached(w, r, key, cache.TTLPlayers, func() (any, error) {
		load := h.store.Players
		if unresolved {
			load = h.store.UnresolvedPlayers
		}
		players, err := load(r.Context())
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"count":   len(players),
			"players": players,
		}, nil
	})
}
