package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/waveger/backend/pkg/database"
	"github.com/wonny/waveger/backend/pkg/logger"
)

// DBHealth reports database health
type DBHealth interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// HealthHandler liveness and database health
type HealthHandler struct {
	db     DBHealth
	logger *logger.Logger
}

// NewHealthHandler creates a health handler. db may be nil.
func NewHealthHandler(db DBHealth, log *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: log}
}

// Get reports service health
// GET /health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "ok",
		"service": "waveger-api",
	}
	if h.db == nil {
		respondJSON(w, http.StatusOK, body)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status, err := h.db.HealthCheck(ctx)
	body["database"] = status
	if err != nil {
		h.logger.WithError(err).Warn("Database health check failed")
		body["status"] = "degraded"
		respondJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	respondJSON(w, http.StatusOK, body)
}
