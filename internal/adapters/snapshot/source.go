// Package snapshot serves map data from OSM extracts loaded into memory.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/samirrijal/nrplanner/internal/core/domain"
	"github.com/samirrijal/nrplanner/internal/osmdata"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50
	// epsilon gives zero-extent geometries (vertical or horizontal roads)
	// a searchable rectangle.
	epsilon = 1e-9
)

type featureKind int

const (
	kindRoad featureKind = iota
	kindBuilding
)

// item indexes one feature of the loaded extracts.
type item struct {
	kind  featureKind
	index int
	rect  *rtreego.Rect
}

func (it *item) Bounds() *rtreego.Rect {
	return it.rect
}

// Source implements ports.MapSource over a fixed feature set. It is safe
// for concurrent use; the data is never mutated after Open.
type Source struct {
	features *domain.FeatureSet
	tree     *rtreego.Rtree
	coverage []domain.Coverage
}

// Open loads and indexes the given extract files. The format of each
// file is inferred from its extension, and each file contributes its own
// coverage area.
func Open(ctx context.Context, paths ...string) (*Source, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("snapshot: no extract files configured")
	}
	extracts := make([]*domain.FeatureSet, 0, len(paths))
	for _, path := range paths {
		fs, err := ReadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		extracts = append(extracts, fs)
	}
	return NewSource(extracts...)
}

// ReadFile decodes one extract file.
func ReadFile(ctx context.Context, path string) (*domain.FeatureSet, error) {
	format, err := osmdata.FormatForPath(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	fs, err := osmdata.Decode(ctx, &domain.RawMapData{Format: format, Source: filepath.Base(path), Body: body})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %s: %w", path, err)
	}
	slog.Info("snapshot extract loaded",
		"path", path,
		"format", format,
		"roads", len(fs.Roads),
		"buildings", len(fs.Buildings),
	)
	return fs, nil
}

// NewSource indexes already decoded extracts. Each extract is one
// coverage area; a region is served only when its center is covered by
// at least one of them.
func NewSource(extracts ...*domain.FeatureSet) (*Source, error) {
	s := &Source{
		features: &domain.FeatureSet{},
		tree:     rtreego.NewTree(dimensions, minChildren, maxChildren),
	}

	for _, fs := range extracts {
		if fs == nil {
			continue
		}
		if cov, ok := domain.NewCoverage(fs); ok {
			s.coverage = append(s.coverage, cov)
		}
		s.features.Roads = append(s.features.Roads, fs.Roads...)
		s.features.Buildings = append(s.features.Buildings, fs.Buildings...)
	}

	for i, r := range s.features.Roads {
		if len(r.Geometry) == 0 {
			continue
		}
		rect, err := toRect(r.Geometry.Bound())
		if err != nil {
			return nil, fmt.Errorf("snapshot: index road %d: %w", r.ID, err)
		}
		s.tree.Insert(&item{kind: kindRoad, index: i, rect: rect})
	}
	for i, b := range s.features.Buildings {
		if len(b.Geometry) == 0 || len(b.Geometry[0]) == 0 {
			continue
		}
		rect, err := toRect(b.Geometry.Bound())
		if err != nil {
			return nil, fmt.Errorf("snapshot: index building %d: %w", b.ID, err)
		}
		s.tree.Insert(&item{kind: kindBuilding, index: i, rect: rect})
	}
	return s, nil
}

// Name identifies the source in logs and metrics.
func (s *Source) Name() string { return "snapshot" }

// Size returns the number of indexed features.
func (s *Source) Size() int {
	return s.tree.Size()
}

// Fetch returns, as GeoJSON, every loaded feature whose extent intersects
// the region box. A region whose center no extract covers is reported as
// unavailable rather than as an empty area.
func (s *Source) Fetch(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.covers(region.Center) {
		return nil, domain.Unavailable(s.Name(), region, fmt.Errorf("no extract covers %s", region.Center))
	}

	query, err := toRect(region.Bounds.Bound())
	if err != nil {
		return nil, domain.Unavailable(s.Name(), region, err)
	}
	hits := s.tree.SearchIntersect(query)

	// Tree order depends on insertion history; sort for stable output.
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i].(*item), hits[j].(*item)
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		return a.index < b.index
	})

	out := &domain.FeatureSet{}
	for _, h := range hits {
		it := h.(*item)
		switch it.kind {
		case kindRoad:
			out.Roads = append(out.Roads, s.features.Roads[it.index])
		case kindBuilding:
			out.Buildings = append(out.Buildings, s.features.Buildings[it.index])
		}
	}

	body, err := osmdata.EncodeGeoJSON(out)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return &domain.RawMapData{Format: domain.FormatGeoJSON, Source: s.Name(), Body: body}, nil
}

func (s *Source) covers(p domain.GeoPoint) bool {
	for _, c := range s.coverage {
		if c.Contains(p) {
			return true
		}
	}
	return false
}

// toRect converts an orb bound to a lat/lon rectangle.
func toRect(b orb.Bound) (*rtreego.Rect, error) {
	dLat := b.Max.Lat() - b.Min.Lat()
	dLon := b.Max.Lon() - b.Min.Lon()
	return rtreego.NewRect(
		rtreego.Point{b.Min.Lat(), b.Min.Lon()},
		[]float64{dLat + epsilon, dLon + epsilon},
	)
}
