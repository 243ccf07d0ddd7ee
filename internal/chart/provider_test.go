package chart

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/waveger/backend/pkg/config"
	"github.com/wonny/waveger/backend/pkg/httputil"
	"github.com/wonny/waveger/backend/pkg/logger"
)

func testHTTP() *httputil.Client {
	return httputil.New(httputil.Options{Timeout: 5 * time.Second}, logger.Nop()).DisableRetry()
}

func TestRapidAPI_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chart.php", r.URL.Path)
		assert.Equal(t, "hot-100", r.URL.Query().Get("id"))
		assert.Equal(t, "2025-03-11", r.URL.Query().Get("week"))
		assert.Equal(t, "k", r.Header.Get("x-rapidapi-key"))
		assert.Equal(t, "billboard-charts-api.p.rapidapi.com", r.Header.Get("x-rapidapi-host"))
		_, _ = w.Write([]byte(`{"data":{"songs":[{"name":"A","artist":"X","position":1}]}}`))
	}))
	defer server.Close()

	p := NewRapidAPI(testHTTP(), "k", "billboard-charts-api.p.rapidapi.com").WithBaseURL(server.URL)
	raw, err := p.Fetch(context.Background(), "hot-100", date("2025-03-11"))
	require.NoError(t, err)

	snap, err := Decode("hot-100", date("2025-03-11"), raw)
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 1)
}

func TestRapidAPI_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewRapidAPI(testHTTP(), "k", "host").WithBaseURL(server.URL).
		Fetch(context.Background(), "hot-100", date("2025-03-11"))
	var statusErr *httputil.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)

	_, err = NewRapidAPI(testHTTP(), "", "host").Fetch(context.Background(), "hot-100", date("2025-03-11"))
	assert.Error(t, err)
}

func TestParseChartHTML(t *testing.T) {
	html, err := os.ReadFile("testdata/hot-100.html")
	require.NoError(t, err)

	songs, err := parseChartHTML(html)
	require.NoError(t, err)
	require.Len(t, songs, 2)

	assert.Equal(t, "Song X", songs[0].Name)
	assert.Equal(t, "Artist Y", songs[0].Artist)
	assert.Equal(t, 1, songs[0].Position)
	require.NotNil(t, songs[0].LastWeekPosition)
	assert.Equal(t, 2, *songs[0].LastWeekPosition)
	assert.Equal(t, 1, songs[0].PeakPosition)
	assert.Equal(t, 12, songs[0].WeeksOnChart)

	assert.Equal(t, "Brand New", songs[1].Name)
	assert.Equal(t, "Debut Artist", songs[1].Artist)
	assert.Nil(t, songs[1].LastWeekPosition)
}

func TestBillboard_Fetch(t *testing.T) {
	html, err := os.ReadFile("testdata/hot-100.html")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charts/hot-100/2025-03-11/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(html)
	}))
	defer server.Close()

	p := NewBillboard(testHTTP(), server.URL+"/")
	raw, err := p.Fetch(context.Background(), "hot-100", date("2025-03-11"))
	require.NoError(t, err)

	snap, err := Decode("hot-100", date("2025-03-11"), raw)
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 2)

	_, err = p.Fetch(context.Background(), "billboard-200", date("2025-03-11"))
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	cfg := config.ChartConfig{Provider: config.ProviderBillboard, BillboardBaseURL: "https://example.com", RequestsPerSecond: 2}
	p, err := NewProvider(cfg, nil, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "billboard", p.Name())

	cfg.Provider = config.ProviderRapidAPI
	p, err = NewProvider(cfg, nil, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "rapidapi", p.Name())

	cfg.Provider = "spotify"
	_, err = NewProvider(cfg, nil, logger.Nop())
	assert.Error(t, err)
}

func TestNewProvider_RetriesFromConfig(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tests := []struct {
		name       string
		maxRetries int
		want       int32
	}{
		{"retries enabled", 2, 3},
		{"single attempt", 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			atomic.StoreInt32(&attempts, 0)
			cfg := config.ChartConfig{
				Provider:          config.ProviderBillboard,
				BillboardBaseURL:  server.URL,
				RequestsPerSecond: 100,
				Timeout:           5 * time.Second,
				MaxRetries:        tt.maxRetries,
				RetryDelay:        5 * time.Millisecond,
			}
			p, err := NewProvider(cfg, nil, logger.Nop())
			require.NoError(t, err)

			_, err = p.Fetch(context.Background(), "hot-100", date("2025-03-11"))
			var statusErr *httputil.StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
			assert.Equal(t, tt.want, atomic.LoadInt32(&attempts))
		})
	}
}
