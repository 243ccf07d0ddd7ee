package handlers

import (
	"context"
	"net/http"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/logger"
)

// LeaderboardService ranks users
type LeaderboardService interface {
	Leaderboard(ctx context.Context, scope contracts.LeaderboardScope, limit int) ([]contracts.LeaderboardEntry, error)
}

// LeaderboardHandler leaderboard endpoint
type LeaderboardHandler struct {
	stats  LeaderboardService
	logger *logger.Logger
}

// NewLeaderboardHandler creates a leaderboard handler
func NewLeaderboardHandler(stats LeaderboardService, log *logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{stats: stats, logger: log}
}

// Get returns a contest leaderboard, or the all-time board when no contest is given
// GET /api/leaderboard?contest_id=|scope=all_time&limit=
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := contracts.AllTime

	switch s := q.Get("scope"); s {
	case "", "all_time":
	case "contest":
		if q.Get("contest_id") == "" {
			respondError(w, http.StatusBadRequest, "scope=contest requires contest_id")
			return
		}
	default:
		respondError(w, http.StatusBadRequest, "invalid scope (valid: all_time, contest)")
		return
	}

	if v := q.Get("contest_id"); v != "" {
		if q.Get("scope") == "all_time" {
			respondError(w, http.StatusBadRequest, "contest_id conflicts with scope=all_time")
			return
		}
		id, ok := parseID(v)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid contest_id")
			return
		}
		scope = contracts.LeaderboardScope{ContestID: id}
	}

	limit, _, err := queryInt(r, "limit")
	if err != nil || limit < 0 {
		respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	entries, err := h.stats.Leaderboard(r.Context(), scope, limit)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []contracts.LeaderboardEntry{}
	}

	scopeName := "all_time"
	if !scope.IsAllTime() {
		scopeName = "contest"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"scope":      scopeName,
		"contest_id": scope.ContestID,
		"entries":    entries,
	})
}
