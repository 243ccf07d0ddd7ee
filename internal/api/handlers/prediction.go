package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/logger"
)

// UserIDHeader carries the caller's user id, set by the auth proxy in front of the API
const UserIDHeader = "X-User-ID"

// PredictionService submits and lists predictions
type PredictionService interface {
	Submit(ctx context.Context, sub contracts.Submission) (*contracts.Prediction, error)
	ListForUser(ctx context.Context, userID int64, f contracts.PredictionFilter) ([]contracts.PredictionWithResult, error)
}

// CurrentContest resolves the open contest
type CurrentContest interface {
	Current(ctx context.Context) (*contracts.Contest, error)
}

// PredictionHandler prediction endpoints
type PredictionHandler struct {
	predictions PredictionService
	contests    CurrentContest
	logger      *logger.Logger
}

// NewPredictionHandler creates a prediction handler
func NewPredictionHandler(predictions PredictionService, contests CurrentContest, log *logger.Logger) *PredictionHandler {
	return &PredictionHandler{predictions: predictions, contests: contests, logger: log}
}

// CreatePredictionRequest body of POST /api/predictions.
// contest_id defaults to the open contest.
type CreatePredictionRequest struct {
	ContestID      int64  `json:"contest_id"`
	ChartID        string `json:"chart_id"`
	PredictionType string `json:"prediction_type"`
	SongName       string `json:"song_name"`
	ArtistName     string `json:"artist_name"`
	Value          *int   `json:"value"`
}

// Create records a prediction for the calling user
// POST /api/predictions
func (h *PredictionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(r.Header.Get(UserIDHeader))
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing or invalid "+UserIDHeader)
		return
	}

	var req CreatePredictionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ContestID == 0 {
		c, err := h.contests.Current(r.Context())
		if errors.Is(err, contracts.ErrNoOpenContest) {
			respondErr(w, h.logger, contracts.NewValidationError("contest_id", "no contest is open"))
			return
		}
		if err != nil {
			respondErr(w, h.logger, err)
			return
		}
		req.ContestID = c.ID
	}

	p, err := h.predictions.Submit(r.Context(), contracts.Submission{
		UserID:     userID,
		ContestID:  req.ContestID,
		ChartID:    req.ChartID,
		Type:       contracts.PredictionType(req.PredictionType),
		SongName:   req.SongName,
		ArtistName: req.ArtistName,
		Value:      req.Value,
	})
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// ListForUser returns a user's predictions with their results
// GET /api/users/{id}/predictions?contest_id=&chart_id=&type=&processed=&limit=
func (h *PredictionHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(mux.Vars(r)["id"])
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	q := r.URL.Query()
	f := contracts.PredictionFilter{
		ChartID: q.Get("chart_id"),
		Type:    contracts.PredictionType(q.Get("type")),
	}
	if v := q.Get("contest_id"); v != "" {
		id, ok := parseID(v)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid contest_id")
			return
		}
		f.ContestID = &id
	}
	if v := q.Get("processed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid processed")
			return
		}
		f.Processed = &b
	}
	limit, _, err := queryInt(r, "limit")
	if err != nil || limit < 0 {
		respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	f.Limit = limit

	list, err := h.predictions.ListForUser(r.Context(), userID, f)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	if list == nil {
		list = []contracts.PredictionWithResult{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": list,
		"count":       len(list),
	})
}
