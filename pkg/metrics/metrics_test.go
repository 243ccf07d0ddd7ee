package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservePrediction(t *testing.T) {
	m := New()

	m.ObservePrediction("entry", true, 10)
	m.ObservePrediction("entry", false, 0)
	m.ObservePrediction("exit", true, 5)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PredictionsEvaluated.WithLabelValues("entry", "correct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PredictionsEvaluated.WithLabelValues("entry", "incorrect")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.PointsAwarded))
}

func TestObserveCycle(t *testing.T) {
	m := New()
	m.ObserveCycle("success", 2*time.Second)
	m.ObserveCycle("failed", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues("success")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CycleDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCycle("success", time.Second)
	m.ObservePrediction("entry", true, 10)
	m.ObserveSnapshot("memory", "hit")
	m.ObserveSubmission("accepted")
	m.ObserveJob("weekly_cycle", "success")
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveSnapshot("upstream", "miss")
	m.ObserveJob("contest_guard", "success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `waveger_chart_snapshot_fetches_total{layer="upstream",result="miss"} 1`))
	assert.True(t, strings.Contains(string(body), `waveger_scheduler_job_runs_total{job="contest_guard",status="success"} 1`))
}
