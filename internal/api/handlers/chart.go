package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/waveger/backend/internal/chart"
	"github.com/wonny/waveger/backend/internal/contestconfig"
	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/logger"
)

// ChartReader serves snapshots. Cached never reaches the upstream.
type ChartReader interface {
	contracts.SnapshotFetcher
	Cached(ctx context.Context, chartID string, date time.Time) (*contracts.Snapshot, error)
}

// ChartHandler published chart snapshots
type ChartHandler struct {
	charts ChartReader
	rules  *contestconfig.Config
	clock  contracts.Clock
	logger *logger.Logger
}

// NewChartHandler creates a chart handler
func NewChartHandler(charts ChartReader, rules *contestconfig.Config, clock contracts.Clock, log *logger.Logger) *ChartHandler {
	if clock == nil {
		clock = contracts.SystemClock{}
	}
	return &ChartHandler{charts: charts, rules: rules, clock: clock, logger: log}
}

// Get returns the chart published on or before date (default today),
// aligned to the release weekday. Only the latest week may be fetched from
// upstream; older weeks are served from stored snapshots.
// GET /api/charts/{chart}?date=YYYY-MM-DD
func (h *ChartHandler) Get(w http.ResponseWriter, r *http.Request) {
	chartID := mux.Vars(r)["chart"]
	if _, ok := h.rules.Chart(chartID); !ok {
		respondError(w, http.StatusNotFound, "unsupported chart (supported: "+strings.Join(h.rules.ChartIDs(), ", ")+")")
		return
	}

	today := contracts.DateOnly(h.clock.Now().In(h.rules.Location()))
	date := today
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = d
	}
	if date.After(today) {
		respondErr(w, h.logger, contracts.NewValidationError("date", "chart for that week is not published yet"))
		return
	}

	week := chart.AlignToRelease(date, h.rules.ReleaseWeekday())
	latest := chart.AlignToRelease(today, h.rules.ReleaseWeekday())

	var (
		snap *contracts.Snapshot
		err  error
	)
	if week.Before(latest) {
		snap, err = h.charts.Cached(r.Context(), chartID, week)
	} else {
		snap, err = h.charts.FetchSnapshot(r.Context(), chartID, week)
	}
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}
