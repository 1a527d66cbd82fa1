package valkey_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/nrplanner/internal/adapters/valkey"
	"github.com/samirrijal/nrplanner/internal/core/domain"
)

type memCache struct {
	data   map[string][]byte
	ttls   map[string]int
	getErr error
	setErr error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (m *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[key], nil
}

func (m *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttlSeconds
	return nil
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) Name() string { return "overpass" }

func (s *countingSource) Fetch(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.RawMapData{Format: domain.FormatOverpassJSON, Source: "overpass", Body: []byte(`{"elements":[]}`)}, nil
}

func testRegion(t *testing.T) domain.BoundingRegion {
	t.Helper()
	r, err := domain.NewBoundingRegion(domain.GeoPoint{Lat: 43.263, Lon: -2.935}, 5000)
	require.NoError(t, err)
	return r
}

func TestCachingSource_ReadThrough(t *testing.T) {
	next := &countingSource{}
	cache := newMemCache()
	src := valkey.NewCachingSource(next, cache, 10*time.Minute)
	r := testRegion(t)

	first, err := src.Fetch(context.Background(), r)
	require.NoError(t, err)
	second, err := src.Fetch(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 600, cache.ttls[valkey.CacheKey("overpass", r)])
	assert.Equal(t, "overpass", src.Name())
}

func TestCachingSource_ErrorsAreNotCached(t *testing.T) {
	next := &countingSource{err: errors.New("boom")}
	cache := newMemCache()
	src := valkey.NewCachingSource(next, cache, time.Minute)

	_, err := src.Fetch(context.Background(), testRegion(t))
	require.Error(t, err)
	assert.Empty(t, cache.data)
}

func TestCachingSource_CacheFailuresFallThrough(t *testing.T) {
	next := &countingSource{}
	cache := newMemCache()
	cache.getErr = errors.New("valkey down")
	cache.setErr = errors.New("valkey down")
	src := valkey.NewCachingSource(next, cache, time.Minute)

	raw, err := src.Fetch(context.Background(), testRegion(t))
	require.NoError(t, err)
	assert.Equal(t, domain.FormatOverpassJSON, raw.Format)
	assert.Equal(t, 1, next.calls)
}

func TestCachingSource_CorruptEntryIsMiss(t *testing.T) {
	next := &countingSource{}
	cache := newMemCache()
	r := testRegion(t)
	cache.data[valkey.CacheKey("overpass", r)] = []byte("garbage")
	src := valkey.NewCachingSource(next, cache, time.Minute)

	_, err := src.Fetch(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestCachingSource_ZeroTTLDisablesCache(t *testing.T) {
	next := &countingSource{}
	cache := newMemCache()
	src := valkey.NewCachingSource(next, cache, 0)

	for i := 0; i < 2; i++ {
		_, err := src.Fetch(context.Background(), testRegion(t))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, next.calls)
	assert.Empty(t, cache.data)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "mapdata:overpass:43.26300:-2.93500:5000", valkey.CacheKey("overpass", testRegion(t)))
}
