package valkey

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/nrplanner/internal/core/domain"
	"github.com/samirrijal/nrplanner/internal/core/ports"
	"github.com/samirrijal/nrplanner/internal/pkg/metrics"
)

const cacheOperation = "map_fetch"

// CachingSource is a read-through cache in front of another map source.
// Payloads are stored verbatim, so cached and uncached queries decode to
// the same features. Failures are never cached.
type CachingSource struct {
	next  ports.MapSource
	cache ports.CacheService
	ttl   time.Duration
}

// NewCachingSource wraps next with cache. A non-positive ttl disables
// caching and every call goes to next.
func NewCachingSource(next ports.MapSource, cache ports.CacheService, ttl time.Duration) *CachingSource {
	return &CachingSource{next: next, cache: cache, ttl: ttl}
}

// Name reports the wrapped source so results stay attributable.
func (s *CachingSource) Name() string { return s.next.Name() }

// Fetch serves region from the cache, falling back to the wrapped source.
func (s *CachingSource) Fetch(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error) {
	if s.cache == nil || s.ttl <= 0 {
		return s.next.Fetch(ctx, region)
	}
	key := CacheKey(s.next.Name(), region)

	if cached, err := s.cache.Get(ctx, key); err != nil {
		slog.WarnContext(ctx, "map cache read failed", "key", key, "error", err)
	} else if raw, ok := decodeEntry(cached); ok {
		metrics.CacheHits.WithLabelValues(cacheOperation).Inc()
		return raw, nil
	}
	metrics.CacheMisses.WithLabelValues(cacheOperation).Inc()

	raw, err := s.next.Fetch(ctx, region)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := s.cache.Set(ctx, key, encodeEntry(raw), int(s.ttl.Seconds())); err != nil {
			slog.WarnContext(ctx, "map cache write failed", "key", key, "error", err)
		}
	}
	return raw, nil
}

// CacheKey identifies a region query against a named source.
func CacheKey(source string, region domain.BoundingRegion) string {
	return fmt.Sprintf("mapdata:%s:%.5f:%.5f:%.0f", source, region.Center.Lat, region.Center.Lon, region.RadiusMeters)
}

// An entry is "<format>\x00<source>\x00<body>".
func encodeEntry(raw *domain.RawMapData) []byte {
	var buf bytes.Buffer
	buf.Grow(len(raw.Format) + len(raw.Source) + len(raw.Body) + 2)
	buf.WriteString(string(raw.Format))
	buf.WriteByte(0)
	buf.WriteString(raw.Source)
	buf.WriteByte(0)
	buf.Write(raw.Body)
	return buf.Bytes()
}

func decodeEntry(b []byte) (*domain.RawMapData, bool) {
	if len(b) == 0 {
		return nil, false
	}
	parts := bytes.SplitN(b, []byte{0}, 3)
	if len(parts) != 3 || len(parts[0]) == 0 {
		return nil, false
	}
	return &domain.RawMapData{
		Format: domain.MapFormat(parts[0]),
		Source: string(parts[1]),
		Body:   parts[2],
	}, true
}
