package domain

import "github.com/paulmach/orb"

// RoadFeature is an OSM way tagged highway=*.
type RoadFeature struct {
	ID            int64          `json:"id"`
	Geometry      orb.LineString `json:"-"`
	SpeedLimitKph *float64       `json:"speed_limit_kph,omitempty"` // nil when untagged or unparseable
	RoadClass     string         `json:"road_class"`
}

// BuildingFeature is an OSM way or relation tagged building=*.
type BuildingFeature struct {
	ID         int64       `json:"id"`
	OSMType    string      `json:"osm_type"` // "way" or "relation"
	Geometry   orb.Polygon `json:"-"`
	FloorCount *int        `json:"floor_count,omitempty"`
}

// Anchor is the representative point used for radius clipping.
func (b BuildingFeature) Anchor() orb.Point {
	return b.Geometry.Bound().Center()
}

// FeatureSet is the typed result of parsing one map payload.
type FeatureSet struct {
	Roads     []RoadFeature     `json:"roads"`
	Buildings []BuildingFeature `json:"buildings"`
}

// Bound returns the extent of every feature geometry. ok is false for an
// empty set.
func (fs *FeatureSet) Bound() (b orb.Bound, ok bool) {
	for _, r := range fs.Roads {
		if len(r.Geometry) == 0 {
			continue
		}
		if !ok {
			b, ok = r.Geometry.Bound(), true
			continue
		}
		b = b.Union(r.Geometry.Bound())
	}
	for _, bl := range fs.Buildings {
		if len(bl.Geometry) == 0 || len(bl.Geometry[0]) == 0 {
			continue
		}
		if !ok {
			b, ok = bl.Geometry.Bound(), true
			continue
		}
		b = b.Union(bl.Geometry.Bound())
	}
	return b, ok
}

// MapFormat identifies the encoding of a raw map payload.
type MapFormat string

const (
	FormatOverpassJSON MapFormat = "overpass-json"
	FormatOSMXML       MapFormat = "osm-xml"
	FormatOSMPBF       MapFormat = "osm-pbf"
	FormatGeoJSON      MapFormat = "geojson"
)

// RawMapData is an undecoded payload returned by a map source.
type RawMapData struct {
	Format MapFormat
	Source string
	Body   []byte
}
