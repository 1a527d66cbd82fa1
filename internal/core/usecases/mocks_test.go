package usecases_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/paulmach/orb"

	"github.com/samirrijal/nrplanner/internal/core/domain"
	"github.com/samirrijal/nrplanner/internal/osmdata"
)

// --- Mock MapSource ---

type mockSource struct {
	fetchFn func(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error)
	calls   int
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Fetch(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error) {
	m.calls++
	if m.fetchFn != nil {
		return m.fetchFn(ctx, region)
	}
	return nil, nil
}

// --- Mock EvaluationPublisher ---

type mockPublisher struct {
	publishFn func(ctx context.Context, ev *domain.Evaluation) error
	published []*domain.Evaluation
}

func (m *mockPublisher) PublishEvaluation(ctx context.Context, ev *domain.Evaluation) error {
	m.published = append(m.published, ev)
	if m.publishFn != nil {
		return m.publishFn(ctx, ev)
	}
	return nil
}

// geojsonSource serves fs as a GeoJSON payload for every region.
func geojsonSource(t *testing.T, fs *domain.FeatureSet) *mockSource {
	t.Helper()
	body, err := osmdata.EncodeGeoJSON(fs)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return &mockSource{
		fetchFn: func(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error) {
			return &domain.RawMapData{Format: domain.FormatGeoJSON, Source: "mock", Body: body}, nil
		},
	}
}

// square returns a closed ring of side ~size degrees with its SW corner at (lat, lon).
func square(lat, lon, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{lon, lat}, {lon + size, lat}, {lon + size, lat + size}, {lon, lat + size}, {lon, lat},
	}}
}

// cityFixture builds n buildings with the given floors spread within ~1 km
// of center, plus roads with the given speed limits.
func cityFixture(center domain.GeoPoint, n, floors int, speeds ...float64) *domain.FeatureSet {
	fs := &domain.FeatureSet{}
	for i := 0; i < n; i++ {
		f := floors
		dLat := float64(i%25) * 0.0004
		dLon := float64(i/25) * 0.0004
		fs.Buildings = append(fs.Buildings, domain.BuildingFeature{
			ID:         int64(i + 1),
			OSMType:    "way",
			Geometry:   square(center.Lat+dLat, center.Lon+dLon, 0.0001),
			FloorCount: &f,
		})
	}
	for i, s := range speeds {
		speed := s
		off := float64(i) * 0.001
		fs.Roads = append(fs.Roads, domain.RoadFeature{
			ID:            int64(1000 + i),
			RoadClass:     fmt.Sprintf("class-%d", i),
			Geometry:      orb.LineString{{center.Lon + off, center.Lat}, {center.Lon + off, center.Lat + 0.002}},
			SpeedLimitKph: &speed,
		})
	}
	return fs
}
