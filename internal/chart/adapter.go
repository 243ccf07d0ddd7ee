package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/metrics"
	"github.com/wonny/waveger/backend/pkg/redis"
)

// Calendar yields the current date in the contest timezone
type Calendar interface {
	Today() time.Time
}

type utcCalendar struct{}

func (utcCalendar) Today() time.Time { return contracts.DateOnly(time.Now().UTC()) }

// Store persists raw payloads
type Store interface {
	Get(ctx context.Context, chartID string, week time.Time) ([]byte, bool, error)
	Save(ctx context.Context, chartID string, week time.Time, raw []byte) ([]byte, error)
}

// Serving layers, used as metric labels
const (
	LayerMemory   = "memory"
	LayerRedis    = "redis"
	LayerDatabase = "database"
	LayerUpstream = "upstream"
)

// Adapter is a read-through cache over an upstream chart provider:
// in-process memo -> Redis -> charts table -> upstream.
// Once a (chart, date) key resolves it returns the same snapshot for the
// life of the Adapter.
// ⭐ SSOT: implements contracts.SnapshotFetcher
type Adapter struct {
	provider Provider
	store    Store
	calendar Calendar
	cache    *redis.Cache
	metrics  *metrics.Metrics
	log      zerolog.Logger

	mu    sync.RWMutex
	memo  map[string]*contracts.Snapshot
	group singleflight.Group
}

// NewAdapter creates an Adapter. calendar, cache and m may be nil; a nil
// calendar uses the UTC date.
func NewAdapter(provider Provider, store Store, calendar Calendar, cache *redis.Cache, m *metrics.Metrics, log zerolog.Logger) *Adapter {
	if calendar == nil {
		calendar = utcCalendar{}
	}
	if cache == nil {
		cache = redis.NewCache(redis.Disabled(), "waveger")
	}
	return &Adapter{
		provider: provider,
		store:    store,
		calendar: calendar,
		cache:    cache,
		metrics:  m,
		log:      log.With().Str("component", "chart.adapter").Logger(),
		memo:     make(map[string]*contracts.Snapshot),
	}
}

var _ contracts.SnapshotFetcher = (*Adapter)(nil)

// FetchSnapshot implements contracts.SnapshotFetcher.
// Upstream failures are returned as *contracts.SourceError. A date after
// today is refused the same way so nothing is ever stored under a week
// that has not been published.
func (a *Adapter) FetchSnapshot(ctx context.Context, chartID string, date time.Time) (*contracts.Snapshot, error) {
	date = contracts.DateOnly(date)
	if date.After(a.calendar.Today()) {
		return nil, &contracts.SourceError{ChartID: chartID, Date: date, Err: contracts.ErrNotPublished}
	}
	key := redis.SnapshotKey(chartID, date)

	a.mu.RLock()
	snap, ok := a.memo[key]
	a.mu.RUnlock()
	if ok {
		a.metrics.ObserveSnapshot(LayerMemory, "hit")
		return snap, nil
	}

	v, err, _ := a.group.Do(key, func() (interface{}, error) {
		return a.resolve(ctx, key, chartID, date)
	})
	if err != nil {
		return nil, err
	}
	snap = v.(*contracts.Snapshot)

	a.mu.Lock()
	if existing, ok := a.memo[key]; ok {
		snap = existing
	} else {
		a.memo[key] = snap
	}
	a.mu.Unlock()

	return snap, nil
}

// Cached returns a snapshot only if some layer below the upstream has it
func (a *Adapter) Cached(ctx context.Context, chartID string, date time.Time) (*contracts.Snapshot, error) {
	date = contracts.DateOnly(date)
	key := redis.SnapshotKey(chartID, date)

	a.mu.RLock()
	snap, ok := a.memo[key]
	a.mu.RUnlock()
	if ok {
		return snap, nil
	}

	if snap, ok := a.fromRedis(ctx, key, chartID, date); ok {
		return snap, nil
	}

	raw, found, err := a.store.Get(ctx, chartID, date)
	if err != nil {
		return nil, contracts.Persistence("read charts", err)
	}
	if !found {
		return nil, contracts.ErrSnapshotNotCached
	}
	snap, err = Decode(chartID, date, raw)
	if err != nil {
		return nil, &contracts.SourceError{ChartID: chartID, Date: date, Err: err}
	}
	return snap, nil
}

func (a *Adapter) resolve(ctx context.Context, key, chartID string, date time.Time) (*contracts.Snapshot, error) {
	if snap, ok := a.fromRedis(ctx, key, chartID, date); ok {
		a.metrics.ObserveSnapshot(LayerRedis, "hit")
		return snap, nil
	}

	raw, found, err := a.store.Get(ctx, chartID, date)
	if err != nil {
		a.metrics.ObserveSnapshot(LayerDatabase, "error")
		return nil, &contracts.SourceError{ChartID: chartID, Date: date, Err: fmt.Errorf("read charts table: %w", err)}
	}
	if found {
		snap, err := Decode(chartID, date, raw)
		if err != nil {
			return nil, &contracts.SourceError{ChartID: chartID, Date: date, Err: err}
		}
		a.metrics.ObserveSnapshot(LayerDatabase, "hit")
		a.warm(ctx, key, raw)
		return snap, nil
	}

	a.log.Info().
		Str("chart_id", chartID).
		Str("date", date.Format("2006-01-02")).
		Str("provider", a.provider.Name()).
		Msg("fetching chart from upstream")

	raw, err = a.provider.Fetch(ctx, chartID, date)
	if err != nil {
		a.metrics.ObserveSnapshot(LayerUpstream, "error")
		return nil, &contracts.SourceError{ChartID: chartID, Date: date, Err: err}
	}

	// Validate before persisting so a broken page is never cached.
	if _, err := Decode(chartID, date, raw); err != nil {
		a.metrics.ObserveSnapshot(LayerUpstream, "error")
		return nil, &contracts.SourceError{ChartID: chartID, Date: date, Err: err}
	}

	stored, err := a.store.Save(ctx, chartID, date, raw)
	if err != nil {
		// The payload is still valid; only the cache write failed.
		a.log.Warn().Err(err).Str("chart_id", chartID).Msg("failed to persist chart payload")
		stored = raw
	}

	snap, err := Decode(chartID, date, stored)
	if err != nil {
		return nil, &contracts.SourceError{ChartID: chartID, Date: date, Err: err}
	}
	a.metrics.ObserveSnapshot(LayerUpstream, "miss")
	a.warm(ctx, key, stored)
	return snap, nil
}

func (a *Adapter) fromRedis(ctx context.Context, key, chartID string, date time.Time) (*contracts.Snapshot, bool) {
	var payload Payload
	found, err := a.cache.Get(ctx, key, &payload)
	if err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("redis snapshot read failed")
		return nil, false
	}
	if !found {
		return nil, false
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	snap, err := Decode(chartID, date, raw)
	if err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("discarding corrupt redis snapshot")
		_ = a.cache.Delete(ctx, key)
		return nil, false
	}
	return snap, true
}

func (a *Adapter) warm(ctx context.Context, key string, raw []byte) {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, payload, redis.TTLDaily); err != nil {
		a.log.Debug().Err(err).Str("key", key).Msg("redis snapshot write failed")
	}
}
