package chart

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/waveger/backend/pkg/config"
	"github.com/wonny/waveger/backend/pkg/httputil"
	"github.com/wonny/waveger/backend/pkg/logger"
	"github.com/wonny/waveger/backend/pkg/redis"
)

// Provider fetches one chart week from an upstream source as a raw payload
type Provider interface {
	Name() string
	Fetch(ctx context.Context, chartID string, date time.Time) ([]byte, error)
}

// NewProvider builds the configured upstream provider.
// The limiter may be disabled; it is shared by every process hitting the same upstream.
func NewProvider(cfg config.ChartConfig, limiter *redis.RateLimiter, log *logger.Logger) (Provider, error) {
	client := httputil.New(httputil.Options{
		Timeout:        cfg.Timeout,
		RequestsPerSec: cfg.RequestsPerSecond,
	}, log)
	if cfg.MaxRetries > 0 {
		client.WithRetry(cfg.MaxRetries, cfg.RetryDelay)
	} else {
		client.DisableRetry()
	}
	if limiter != nil {
		client.WithRateLimiter(limiter, redis.ChartRateLimit(cfg.Provider, cfg.RequestsPerSecond))
	}

	switch cfg.Provider {
	case config.ProviderRapidAPI:
		return NewRapidAPI(client, cfg.RapidAPIKey, cfg.RapidAPIHost), nil
	case config.ProviderBillboard:
		return NewBillboard(client, cfg.BillboardBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown chart provider %q", cfg.Provider)
	}
}
