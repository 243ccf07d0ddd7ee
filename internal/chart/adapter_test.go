package chart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/metrics"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	pages map[string][]byte
	err   error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Fetch(ctx context.Context, chartID string, d time.Time) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	raw, ok := f.pages[chartID+"@"+d.Format("2006-01-02")]
	if !ok {
		return nil, errors.New("not published")
	}
	return raw, nil
}

type memStore struct {
	mu      sync.Mutex
	rows    map[string][]byte
	saves   int
	getErr  error
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string][]byte)}
}

func (s *memStore) Get(ctx context.Context, chartID string, week time.Time) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	raw, ok := s.rows[chartID+"@"+week.Format("2006-01-02")]
	return raw, ok, nil
}

func (s *memStore) Save(ctx context.Context, chartID string, week time.Time, raw []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	s.saves++
	k := chartID + "@" + week.Format("2006-01-02")
	if existing, ok := s.rows[k]; ok {
		return existing, nil
	}
	s.rows[k] = raw
	return raw, nil
}

type fixedCalendar time.Time

func (c fixedCalendar) Today() time.Time { return time.Time(c) }

var releaseDay = fixedCalendar(date("2025-03-11"))

const oneSong = `{"data":{"songs":[{"name":"A","artist":"X","position":1}]}}`

func TestAdapter_UpstreamThenMemo(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]byte{"hot-100@2025-03-11": []byte(oneSong)}}
	store := newMemStore()
	m := metrics.New()
	a := NewAdapter(provider, store, releaseDay, nil, m, zerolog.Nop())
	ctx := context.Background()

	first, err := a.FetchSnapshot(ctx, "hot-100", date("2025-03-11").Add(15*time.Hour))
	require.NoError(t, err)
	second, err := a.FetchSnapshot(ctx, "hot-100", date("2025-03-11"))
	require.NoError(t, err)

	assert.Same(t, first, second, "a resolved key must return the same snapshot")
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotFetches.WithLabelValues(LayerUpstream, "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotFetches.WithLabelValues(LayerMemory, "hit")))
}

func TestAdapter_DatabaseHitSkipsUpstream(t *testing.T) {
	provider := &fakeProvider{}
	store := newMemStore()
	store.rows["hot-100@2025-03-04"] = []byte(oneSong)

	a := NewAdapter(provider, store, releaseDay, nil, nil, zerolog.Nop())
	snap, err := a.FetchSnapshot(context.Background(), "hot-100", date("2025-03-04"))
	require.NoError(t, err)

	assert.Len(t, snap.Entries, 1)
	assert.Zero(t, provider.calls)
}

func TestAdapter_FreshAdapterReadsPersistedCopy(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]byte{"hot-100@2025-03-11": []byte(oneSong)}}
	store := newMemStore()

	_, err := NewAdapter(provider, store, releaseDay, nil, nil, zerolog.Nop()).FetchSnapshot(context.Background(), "hot-100", date("2025-03-11"))
	require.NoError(t, err)

	provider.pages["hot-100@2025-03-11"] = []byte(`{"data":{"songs":[{"name":"Changed","artist":"Z","position":1}]}}`)
	snap, err := NewAdapter(provider, store, releaseDay, nil, nil, zerolog.Nop()).FetchSnapshot(context.Background(), "hot-100", date("2025-03-11"))
	require.NoError(t, err)

	assert.Equal(t, "A", snap.Entries[0].Name)
	assert.Equal(t, 1, provider.calls)
}

func TestAdapter_UpstreamFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("503")}
	store := newMemStore()
	a := NewAdapter(provider, store, releaseDay, nil, nil, zerolog.Nop())

	_, err := a.FetchSnapshot(context.Background(), "hot-100", date("2025-03-11"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrSourceUnavailable))
	assert.True(t, errors.Is(err, contracts.ErrSourceUnavailable))

	var serr *contracts.SourceError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "hot-100", serr.ChartID)
	assert.Zero(t, store.saves)
}

func TestAdapter_InvalidPayloadNotPersisted(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]byte{"hot-100@2025-03-11": []byte(`<html>captcha</html>`)}}
	store := newMemStore()
	a := NewAdapter(provider, store, releaseDay, nil, nil, zerolog.Nop())

	_, err := a.FetchSnapshot(context.Background(), "hot-100", date("2025-03-11"))
	assert.True(t, errors.Is(err, contracts.ErrSourceUnavailable))
	assert.Zero(t, store.saves)
}

func TestAdapter_SaveFailureStillServes(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]byte{"hot-100@2025-03-11": []byte(oneSong)}}
	store := newMemStore()
	store.saveErr = errors.New("disk full")
	a := NewAdapter(provider, store, releaseDay, nil, nil, zerolog.Nop())

	snap, err := a.FetchSnapshot(context.Background(), "hot-100", date("2025-03-11"))
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 1)
}

func TestAdapter_StoreReadFailureIsSourceError(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	a := NewAdapter(&fakeProvider{}, store, releaseDay, nil, nil, zerolog.Nop())

	_, err := a.FetchSnapshot(context.Background(), "hot-100", date("2025-03-11"))
	assert.True(t, errors.Is(err, contracts.ErrSourceUnavailable))
}

func TestAdapter_ConcurrentCallersShareOneFetch(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]byte{"hot-100@2025-03-11": []byte(oneSong)}}
	a := NewAdapter(provider, newMemStore(), releaseDay, nil, nil, zerolog.Nop())

	var wg sync.WaitGroup
	results := make([]*contracts.Snapshot, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := a.FetchSnapshot(context.Background(), "hot-100", date("2025-03-11"))
			assert.NoError(t, err)
			results[i] = snap
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Same(t, results[0], r)
	}
	assert.LessOrEqual(t, provider.calls, 8)
}

func TestAdapter_Cached(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{pages: map[string][]byte{"hot-100@2025-03-11": []byte(oneSong)}}
	a := NewAdapter(provider, store, releaseDay, nil, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := a.Cached(ctx, "hot-100", date("2025-03-11"))
	assert.True(t, errors.Is(err, contracts.ErrSnapshotNotCached))
	assert.Zero(t, provider.calls)

	store.rows["hot-100@2025-03-11"] = []byte(oneSong)
	snap, err := a.Cached(ctx, "hot-100", date("2025-03-11"))
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 1)
}

func TestAdapter_SonglessPayloadNotPersisted(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]byte{
		"hot-100@2025-03-11": []byte(`{"message":"You have exceeded the rate limit"}`),
	}}
	store := newMemStore()

	_, err := NewAdapter(provider, store, releaseDay, nil, nil, zerolog.Nop()).FetchSnapshot(context.Background(), "hot-100", date("2025-03-11"))
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrSourceUnavailable)
	assert.ErrorIs(t, err, contracts.ErrEmptyChart)
	assert.Zero(t, store.saves)

	// A later run sees the real chart once the upstream recovers.
	provider.pages["hot-100@2025-03-11"] = []byte(oneSong)
	snap, err := NewAdapter(provider, store, releaseDay, nil, nil, zerolog.Nop()).FetchSnapshot(context.Background(), "hot-100", date("2025-03-11"))
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 1)
	assert.Equal(t, 2, provider.calls)
}

func TestAdapter_RefusesUnpublishedWeek(t *testing.T) {
	provider := &fakeProvider{pages: map[string][]byte{
		"hot-100@2025-03-18": []byte(oneSong),
	}}
	store := newMemStore()
	a := NewAdapter(provider, store, releaseDay, nil, nil, zerolog.Nop())

	_, err := a.FetchSnapshot(context.Background(), "hot-100", date("2025-03-18"))
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrSourceUnavailable)
	assert.ErrorIs(t, err, contracts.ErrNotPublished)

	var serr *contracts.SourceError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, date("2025-03-18"), serr.Date)

	assert.Zero(t, provider.calls)
	assert.Zero(t, store.saves)
}
