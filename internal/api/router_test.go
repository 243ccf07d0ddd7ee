package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/waveger/backend/internal/api/handlers"
	"github.com/wonny/waveger/backend/internal/contest"
	"github.com/wonny/waveger/backend/internal/contestconfig"
	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/internal/prediction"
	"github.com/wonny/waveger/backend/internal/stats"
	"github.com/wonny/waveger/backend/internal/user"
	"github.com/wonny/waveger/backend/pkg/logger"
)

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

type predictionStore struct {
	mu   sync.Mutex
	rows []contracts.Prediction
}

func (s *predictionStore) Create(ctx context.Context, p *contracts.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, *p)
	return nil
}

func (s *predictionStore) CountForUser(ctx context.Context, userID, contestID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.rows {
		if p.UserID == userID && p.ContestID == contestID {
			n++
		}
	}
	return n, nil
}

func (s *predictionStore) Unprocessed(ctx context.Context, contestID int64) ([]contracts.Prediction, error) {
	return nil, nil
}

func (s *predictionStore) ListForUser(ctx context.Context, userID int64, f contracts.PredictionFilter) ([]contracts.PredictionWithResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []contracts.PredictionWithResult
	for _, p := range s.rows {
		if p.UserID != userID {
			continue
		}
		if f.ContestID != nil && p.ContestID != *f.ContestID {
			continue
		}
		out = append(out, contracts.PredictionWithResult{Prediction: p})
	}
	return out, nil
}

func (s *predictionStore) ScoredForContest(ctx context.Context, contestID int64) ([]contracts.ScoredPrediction, error) {
	return []contracts.ScoredPrediction{
		{UserID: 1, Username: "ana", Type: contracts.PredictionEntry, IsCorrect: true, PointsEarned: 15},
	}, nil
}

type standings struct{}

func (standings) ContestStandings(ctx context.Context, contestID int64, limit int) ([]contracts.LeaderboardEntry, error) {
	return []contracts.LeaderboardEntry{{UserID: 1, Username: "ana", Points: 15}}, nil
}

type fetcher struct {
	err    error
	last   time.Time
	stored map[string]bool
	cached []time.Time
}

func (f *fetcher) Cached(ctx context.Context, chartID string, date time.Time) (*contracts.Snapshot, error) {
	f.cached = append(f.cached, date)
	if !f.stored[chartID+"@"+date.Format("2006-01-02")] {
		return nil, contracts.ErrSnapshotNotCached
	}
	return &contracts.Snapshot{ChartID: chartID, Date: date, Entries: []contracts.ChartEntry{
		{Position: 1, Name: "Cruel Summer", Artist: "Taylor Swift"},
	}}, nil
}

func (f *fetcher) FetchSnapshot(ctx context.Context, chartID string, date time.Time) (*contracts.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.last = date
	return &contracts.Snapshot{ChartID: chartID, Date: date, Entries: []contracts.ChartEntry{
		{Position: 1, Name: "Espresso", Artist: "Sabrina Carpenter"},
	}}, nil
}

type testAPI struct {
	handler  http.Handler
	contests *contest.MemoryRepository
	fetcher  *fetcher
	store    *predictionStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	rules := contestconfig.Default()
	clock := contracts.FixedClock{T: day("2025-03-06").Add(10 * time.Hour)}
	log := logger.Nop()

	contests := contest.NewMemoryRepository()
	contests.Seed(contracts.Contest{ID: 1, StartDate: day("2025-02-25"), EndDate: day("2025-03-03"), ChartReleaseDate: day("2025-03-04"), Status: contracts.ContestClosed})
	contests.Seed(contracts.Contest{ID: 2, StartDate: day("2025-03-04"), EndDate: day("2025-03-10"), ChartReleaseDate: day("2025-03-11"), Status: contracts.ContestOpen})
	lifecycle := contest.NewService(contests, rules, clock, zerolog.Nop())

	store := &predictionStore{}
	predictions := prediction.NewService(store, lifecycle, rules, clock, nil, zerolog.Nop())

	users := user.NewMemoryRepository(
		contracts.UserStats{UserID: 1, Username: "ana", TotalPoints: 40},
		contracts.UserStats{UserID: 2, Username: "ben", TotalPoints: 55},
	)
	statsSvc := stats.NewService(store, lifecycle, standings{}, users, nil, zerolog.Nop())
	_, err := statsSvc.Recompute(context.Background(), 1)
	require.NoError(t, err)

	f := &fetcher{}
	router := NewRouter(Handlers{
		Health:      handlers.NewHealthHandler(nil, log),
		Contests:    handlers.NewContestHandler(lifecycle, statsSvc, log),
		Predictions: handlers.NewPredictionHandler(predictions, lifecycle, log),
		Leaderboard: handlers.NewLeaderboardHandler(statsSvc, log),
		Charts:      handlers.NewChartHandler(f, rules, clock, log),
	}, log)

	return &testAPI{handler: router, contests: contests, fetcher: f, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	rec, body := a.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestCurrentContest(t *testing.T) {
	a := newTestAPI(t)
	rec, body := a.do(t, "GET", "/api/contests/current", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["id"])
	assert.Equal(t, "open", body["status"])
}

func TestCurrentContest_NoneOpen(t *testing.T) {
	a := newTestAPI(t)
	_, _, err := a.contests.CloseActive(context.Background(), time.Now())
	require.NoError(t, err)

	rec, _ := a.do(t, "GET", "/api/contests/current", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListContests(t *testing.T) {
	a := newTestAPI(t)
	rec, body := a.do(t, "GET", "/api/contests?limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["count"])
}

func TestContestStats(t *testing.T) {
	a := newTestAPI(t)

	rec, body := a.do(t, "GET", "/api/contests/1/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(15), body["total_points_awarded"])
	stats := body["contest_stats"].(map[string]interface{})
	assert.Len(t, stats["top_performers"], 1)

	rec, _ = a.do(t, "GET", "/api/contests/99/stats", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePrediction(t *testing.T) {
	a := newTestAPI(t)
	body := `{"chart_id":"hot-100","prediction_type":"entry","song_name":"Espresso","artist_name":"Sabrina Carpenter","value":3}`

	rec, out := a.do(t, "POST", "/api/predictions", body, map[string]string{handlers.UserIDHeader: "7"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), out["contest_id"], "defaults to the open contest")
	assert.Equal(t, float64(7), out["user_id"])

	rec, out = a.do(t, "GET", "/api/users/7/predictions?contest_id=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), out["count"])
}

func TestCreatePrediction_Rejections(t *testing.T) {
	a := newTestAPI(t)
	caller := map[string]string{handlers.UserIDHeader: "7"}

	rec, _ := a.do(t, "POST", "/api/predictions", `{"chart_id":"hot-100"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = a.do(t, "POST", "/api/predictions", `{not json`, caller)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := a.do(t, "POST", "/api/predictions",
		`{"chart_id":"uk-top-40","prediction_type":"exit","song_name":"a","artist_name":"b"}`, caller)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "chart_id", out["field"])

	rec, out = a.do(t, "POST", "/api/predictions",
		`{"contest_id":1,"chart_id":"hot-100","prediction_type":"exit","song_name":"a","artist_name":"b"}`, caller)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "contest_id", out["field"])
	assert.Empty(t, a.store.rows)
}

func TestListPredictions_BadParams(t *testing.T) {
	a := newTestAPI(t)
	rec, _ := a.do(t, "GET", "/api/users/7/predictions?processed=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = a.do(t, "GET", "/api/users/7/predictions?type=bogus", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLeaderboard(t *testing.T) {
	a := newTestAPI(t)

	rec, body := a.do(t, "GET", "/api/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "all_time", body["scope"])
	entries := body["entries"].([]interface{})
	require.Len(t, entries, 2)
	assert.Equal(t, "ben", entries[0].(map[string]interface{})["username"])

	rec, body = a.do(t, "GET", "/api/leaderboard?contest_id=1&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "contest", body["scope"])

	rec, _ = a.do(t, "GET", "/api/leaderboard?scope=weekly", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = a.do(t, "GET", "/api/leaderboard?scope=all_time&contest_id=1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChart(t *testing.T) {
	a := newTestAPI(t)

	rec, body := a.do(t, "GET", "/api/charts/hot-100?date=2025-03-05", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hot-100", body["chart_id"])
	assert.Equal(t, day("2025-03-04"), a.fetcher.last, "aligned back to Tuesday")

	rec, _ = a.do(t, "GET", "/api/charts/hot-100", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, day("2025-03-04"), a.fetcher.last)

	rec, _ = a.do(t, "GET", "/api/charts/hot-100?date=13-03-2025", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = a.do(t, "GET", "/api/charts/uk-top-40", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	a.fetcher.err = &contracts.SourceError{ChartID: "hot-100", Err: errors.New("timeout")}
	rec, _ = a.do(t, "GET", "/api/charts/hot-100", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestChart_FutureWeekRejected(t *testing.T) {
	a := newTestAPI(t)

	rec, body := a.do(t, "GET", "/api/charts/hot-100?date=2025-03-11", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "date", body["field"])
	assert.True(t, a.fetcher.last.IsZero(), "no fetch for an unpublished week")
	assert.Empty(t, a.fetcher.cached)
}

func TestChart_PastWeekServedFromStore(t *testing.T) {
	a := newTestAPI(t)

	rec, _ := a.do(t, "GET", "/api/charts/hot-100?date=2025-02-27", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, []time.Time{day("2025-02-25")}, a.fetcher.cached)

	a.fetcher.stored = map[string]bool{"hot-100@2025-02-25": true}
	rec, body := a.do(t, "GET", "/api/charts/hot-100?date=2025-02-27", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := body["entries"].([]interface{})
	require.Len(t, entries, 1)
	assert.True(t, a.fetcher.last.IsZero(), "past weeks never reach the upstream")
}

func TestNotFoundIsJSON(t *testing.T) {
	a := newTestAPI(t)
	rec, body := a.do(t, "GET", "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", body["error"])
}
