package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/logger"
)

// ContestReader serves contest lookups
type ContestReader interface {
	Current(ctx context.Context) (*contracts.Contest, error)
	Get(ctx context.Context, id int64) (*contracts.Contest, error)
	List(ctx context.Context, limit int) ([]contracts.Contest, error)
}

// ContestStatsReader serves stored contest aggregates
type ContestStatsReader interface {
	ContestStats(ctx context.Context, contestID int64) (*contracts.ContestSummary, error)
}

// ContestHandler contest endpoints
type ContestHandler struct {
	contests ContestReader
	stats    ContestStatsReader
	logger   *logger.Logger
}

// NewContestHandler creates a contest handler
func NewContestHandler(contests ContestReader, stats ContestStatsReader, log *logger.Logger) *ContestHandler {
	return &ContestHandler{contests: contests, stats: stats, logger: log}
}

// GetCurrent returns the open contest
// GET /api/contests/current
func (h *ContestHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	c, err := h.contests.Current(r.Context())
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// List returns recent contests, newest first
// GET /api/contests?limit=
func (h *ContestHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	list, err := h.contests.List(r.Context(), limit)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	if list == nil {
		list = []contracts.Contest{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"contests": list,
		"count":    len(list),
	})
}

// GetStats returns a contest's aggregated statistics
// GET /api/contests/{id}/stats
func (h *ContestHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(mux.Vars(r)["id"])
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid contest id")
		return
	}
	summary, err := h.stats.ContestStats(r.Context(), id)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
