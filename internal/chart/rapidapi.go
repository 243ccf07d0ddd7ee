package chart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/waveger/backend/pkg/httputil"
)

// RapidAPI reads charts from the billboard-charts RapidAPI endpoint
// ⭐ SSOT: RapidAPI calls happen only here
type RapidAPI struct {
	http    *httputil.Client
	key     string
	baseURL string
}

// NewRapidAPI creates a RapidAPI provider for host
func NewRapidAPI(client *httputil.Client, key, host string) *RapidAPI {
	client.WithHeader("x-rapidapi-key", key).WithHeader("x-rapidapi-host", host)
	return &RapidAPI{
		http:    client,
		key:     key,
		baseURL: "https://" + host,
	}
}

// Name implements Provider
func (r *RapidAPI) Name() string { return "rapidapi" }

// Fetch implements Provider
func (r *RapidAPI) Fetch(ctx context.Context, chartID string, date time.Time) ([]byte, error) {
	if r.key == "" {
		return nil, errors.New("RAPIDAPI_KEY is not set")
	}

	params := url.Values{}
	params.Set("id", chartID)
	params.Set("week", date.Format("2006-01-02"))

	target := fmt.Sprintf("%s/chart.php?%s", r.baseURL, params.Encode())
	resp, err := r.http.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httputil.StatusError{StatusCode: resp.StatusCode, URL: target}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rapidapi body: %w", err)
	}
	return body, nil
}

// WithBaseURL points the provider at another origin (proxies, tests)
func (r *RapidAPI) WithBaseURL(u string) *RapidAPI {
	r.baseURL = strings.TrimRight(u, "/")
	return r
}
