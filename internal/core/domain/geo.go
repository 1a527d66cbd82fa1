package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/samirrijal/nrplanner/internal/pkg/geospatial"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports whether the point lies within the WGS 84 coordinate ranges.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidPoint, p.Lat)
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidPoint, p.Lon)
	}
	return nil
}

// Point converts to an orb point (lon, lat order).
func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lat, p.Lon)
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// BoundsFromOrb converts an orb bound into Bounds.
func BoundsFromOrb(b orb.Bound) Bounds {
	return Bounds{MinLat: b.Min.Lat(), MinLon: b.Min.Lon(), MaxLat: b.Max.Lat(), MaxLon: b.Max.Lon()}
}

// Bound converts to an orb bound.
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Intersects reports whether the two boxes share any area or edge.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat &&
		b.MinLon <= o.MaxLon && o.MinLon <= b.MaxLon
}

// Within reports whether b lies entirely inside o.
func (b Bounds) Within(o Bounds) bool {
	return b.MinLat >= o.MinLat && b.MaxLat <= o.MaxLat &&
		b.MinLon >= o.MinLon && b.MaxLon <= o.MaxLon
}

// Union returns the smallest box covering both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinLat: math.Min(b.MinLat, o.MinLat),
		MinLon: math.Min(b.MinLon, o.MinLon),
		MaxLat: math.Max(b.MaxLat, o.MaxLat),
		MaxLon: math.Max(b.MaxLon, o.MaxLon),
	}
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%.5f,%.5f,%.5f,%.5f]", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

// BoundingRegion is the lat/lon box enclosing a circle of RadiusMeters
// around Center. It is the unit of work requested from a map source.
type BoundingRegion struct {
	Center       GeoPoint `json:"center"`
	RadiusMeters float64  `json:"radius"`
	Bounds       Bounds   `json:"bounds"`
}

// NewBoundingRegion derives the region around center using an
// equirectangular approximation. Near the poles the longitude span is
// widened to the full range.
func NewBoundingRegion(center GeoPoint, radiusMeters float64) (BoundingRegion, error) {
	if err := center.Validate(); err != nil {
		return BoundingRegion{}, err
	}
	if !(radiusMeters > 0) || math.IsInf(radiusMeters, 0) {
		return BoundingRegion{}, fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidPoint, radiusMeters)
	}

	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(center.Lat, center.Lon, radiusMeters)
	if math.IsInf(minLon, 0) || math.IsInf(maxLon, 0) || math.IsNaN(minLon) || maxLon-minLon >= 360 {
		minLon, maxLon = -180, 180
	}

	return BoundingRegion{
		Center:       center,
		RadiusMeters: radiusMeters,
		Bounds: Bounds{
			MinLat: math.Max(minLat, -90),
			MinLon: math.Max(minLon, -180),
			MaxLat: math.Min(maxLat, 90),
			MaxLon: math.Min(maxLon, 180),
		},
	}, nil
}

func (r BoundingRegion) String() string {
	return fmt.Sprintf("%s r=%.0fm %s", r.Center, r.RadiusMeters, r.Bounds)
}
