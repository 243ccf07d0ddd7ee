package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/waveger/backend/internal/api/handlers"
	"github.com/wonny/waveger/backend/pkg/logger"
)

// Handlers groups every endpoint handler
type Handlers struct {
	Health      *handlers.HealthHandler
	Contests    *handlers.ContestHandler
	Predictions *handlers.PredictionHandler
	Leaderboard *handlers.LeaderboardHandler
	Charts      *handlers.ChartHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: routes are only declared here
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.HandleFunc("/health", h.Health.Get).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/contests", h.Contests.List).Methods("GET")
	api.HandleFunc("/contests/current", h.Contests.GetCurrent).Methods("GET")
	api.HandleFunc("/contests/{id:[0-9]+}/stats", h.Contests.GetStats).Methods("GET")

	api.HandleFunc("/predictions", h.Predictions.Create).Methods("POST")
	api.HandleFunc("/users/{id:[0-9]+}/predictions", h.Predictions.ListForUser).Methods("GET")

	api.HandleFunc("/leaderboard", h.Leaderboard.Get).Methods("GET")

	api.HandleFunc("/charts/{chart}", h.Charts.Get).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusNotFound, "not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start).String(),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeJSONError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
