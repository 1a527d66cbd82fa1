package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/samirrijal/nrplanner/internal/core/domain"
	"github.com/samirrijal/nrplanner/internal/core/ports"
	"github.com/samirrijal/nrplanner/internal/osmdata"
	"github.com/samirrijal/nrplanner/internal/pkg/metrics"
)

// FeatureFetcher retrieves and decodes the roads and buildings around a point.
type FeatureFetcher struct {
	source ports.MapSource
}

// NewFeatureFetcher creates a FeatureFetcher backed by source.
func NewFeatureFetcher(source ports.MapSource) *FeatureFetcher {
	return &FeatureFetcher{source: source}
}

// SourceName identifies the configured map source.
func (f *FeatureFetcher) SourceName() string {
	return f.source.Name()
}

// Fetch returns the features within radiusMeters of center. Source
// failures surface as domain.ErrDataUnavailable and malformed payloads as
// domain.ErrParse; an empty set is only returned when the source really
// holds nothing for the area.
func (f *FeatureFetcher) Fetch(ctx context.Context, center domain.GeoPoint, radiusMeters float64) (*domain.FeatureSet, error) {
	region, err := domain.NewBoundingRegion(center, radiusMeters)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := f.source.Fetch(ctx, region)
	metrics.FetchDuration.WithLabelValues(f.source.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) || errors.Is(err, domain.ErrParse) {
			return nil, err
		}
		return nil, domain.Unavailable(f.source.Name(), region, err)
	}
	if raw == nil {
		return nil, domain.Unavailable(f.source.Name(), region, errors.New("source returned no payload"))
	}

	features, err := osmdata.Decode(ctx, raw)
	if err != nil {
		return nil, err
	}

	clipped := clip(features, center.Point(), radiusMeters)
	slog.DebugContext(ctx, "features fetched",
		"source", f.source.Name(),
		"region", region.Bounds.String(),
		"roads", len(clipped.Roads),
		"buildings", len(clipped.Buildings),
		"dropped", len(features.Roads)+len(features.Buildings)-len(clipped.Roads)-len(clipped.Buildings),
	)
	return clipped, nil
}

// clip keeps roads with at least one vertex inside the circle and buildings
// whose bound center lies inside it, so the sample matches the circular
// area used for density.
func clip(fs *domain.FeatureSet, center orb.Point, radiusMeters float64) *domain.FeatureSet {
	out := &domain.FeatureSet{
		Roads:     make([]domain.RoadFeature, 0, len(fs.Roads)),
		Buildings: make([]domain.BuildingFeature, 0, len(fs.Buildings)),
	}
	for _, r := range fs.Roads {
		for _, p := range r.Geometry {
			if geo.Distance(center, p) <= radiusMeters {
				out.Roads = append(out.Roads, r)
				break
			}
		}
	}
	for _, b := range fs.Buildings {
		if geo.Distance(center, b.Anchor()) <= radiusMeters {
			out.Buildings = append(out.Buildings, b)
		}
	}
	return out
}
