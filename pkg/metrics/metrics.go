package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const namespace = "waveger"

// Metrics holds every collector the service exports.
// ⭐ SSOT: collectors are only registered here
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal          *prometheus.CounterVec
	CycleDuration        prometheus.Histogram
	PredictionsEvaluated *prometheus.CounterVec
	PointsAwarded        prometheus.Counter
	SnapshotFetches      *prometheus.CounterVec
	PredictionsSubmitted *prometheus.CounterVec
	JobRuns              *prometheus.CounterVec
}

// New creates and registers all collectors on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weekly_cycles_total",
			Help:      "Weekly contest cycles by outcome.",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weekly_cycle_duration_seconds",
			Help:      "Wall time of a weekly contest cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		PredictionsEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_evaluated_total",
			Help:      "Evaluated predictions by type and outcome.",
		}, []string{"type", "outcome"}),
		PointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Points credited to users.",
		}),
		SnapshotFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_snapshot_fetches_total",
			Help:      "Chart snapshot lookups by serving layer and result.",
		}, []string{"layer", "result"}),
		PredictionsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_submitted_total",
			Help:      "Prediction submissions by result.",
		}, []string{"result"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_job_runs_total",
			Help:      "Scheduled job executions by job and status.",
		}, []string{"job", "status"}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.PredictionsEvaluated,
		m.PointsAwarded,
		m.SnapshotFetches,
		m.PredictionsSubmitted,
		m.JobRuns,
	)
	return m
}

// Registry exposes the underlying registry (tests, custom handlers)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCycle records one finished cycle
func (m *Metrics) ObserveCycle(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(took.Seconds())
}

// ObservePrediction records one evaluated prediction
func (m *Metrics) ObservePrediction(predictionType string, correct bool, points int) {
	if m == nil {
		return
	}
	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	m.PredictionsEvaluated.WithLabelValues(predictionType, outcome).Inc()
	if points > 0 {
		m.PointsAwarded.Add(float64(points))
	}
}

// ObserveSnapshot records where a chart snapshot was served from
func (m *Metrics) ObserveSnapshot(layer, result string) {
	if m == nil {
		return
	}
	m.SnapshotFetches.WithLabelValues(layer, result).Inc()
}

// ObserveSubmission records a prediction submission
func (m *Metrics) ObserveSubmission(result string) {
	if m == nil {
		return
	}
	m.PredictionsSubmitted.WithLabelValues(result).Inc()
}

// ObserveJob records a scheduler job run
func (m *Metrics) ObserveJob(job, status string) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, status).Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
