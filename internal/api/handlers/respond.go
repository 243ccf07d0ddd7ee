package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/internal/user"
	"github.com/wonny/waveger/backend/pkg/logger"
)

// ErrorResponse body of every non-2xx response
type ErrorResponse struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondErr maps domain errors onto HTTP statuses
func respondErr(w http.ResponseWriter, log *logger.Logger, err error) {
	var verr *contracts.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "validation failed",
			Field:  verr.Field,
			Reason: verr.Reason,
		})
	case errors.Is(err, contracts.ErrContestNotFound),
		errors.Is(err, contracts.ErrNoOpenContest),
		errors.Is(err, contracts.ErrSnapshotNotCached),
		errors.Is(err, user.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contracts.ErrSourceUnavailable):
		log.WithError(err).Warn("Chart source unavailable")
		respondError(w, http.StatusServiceUnavailable, "chart source unavailable")
	default:
		log.WithError(err).Error("Request failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseID parses a positive int64 path or query value
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, key string) (int, bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	return n, true, err
}
