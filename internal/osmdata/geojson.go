package osmdata

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/samirrijal/nrplanner/internal/core/domain"
)

// decodeGeoJSON reads a FeatureCollection in the osm2geojson layout, where
// OSM tags live under properties.tags. Flat properties are accepted too.
func decodeGeoJSON(body []byte) (*domain.FeatureSet, error) {
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, domain.ParseErrorf("geojson: %v", err)
	}

	fs := &domain.FeatureSet{}
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			return nil, domain.ParseErrorf("geojson feature %d has no geometry", i)
		}
		tags := featureTags(f.Properties)
		id := featureID(f)

		switch g := f.Geometry.(type) {
		case orb.LineString:
			if highway := tags["highway"]; highway != "" {
				if len(g) < 2 {
					return nil, domain.ParseErrorf("geojson feature %d: road with %d points", i, len(g))
				}
				fs.Roads = append(fs.Roads, newRoad(id, g, highway, tags["maxspeed"]))
			} else if isBuilding(tags["building"]) {
				if ring := closeRing(g); ring != nil {
					fs.Buildings = append(fs.Buildings, newBuilding(id, featureType(f), orb.Polygon{ring}, tags["building:levels"]))
				}
			}

		case orb.Polygon:
			if len(g) == 0 {
				return nil, domain.ParseErrorf("geojson feature %d: empty polygon", i)
			}
			if highway := tags["highway"]; highway != "" {
				// Area highways (pedestrian squares, rest areas) count as roads.
				fs.Roads = append(fs.Roads, newRoad(id, orb.LineString(g[0]), highway, tags["maxspeed"]))
			} else if isBuilding(tags["building"]) {
				fs.Buildings = append(fs.Buildings, newBuilding(id, featureType(f), g, tags["building:levels"]))
			}

		case orb.MultiPolygon:
			if !isBuilding(tags["building"]) || len(g) == 0 {
				continue
			}
			largest := g[0]
			for _, p := range g[1:] {
				if planar.Area(p) > planar.Area(largest) {
					largest = p
				}
			}
			fs.Buildings = append(fs.Buildings, newBuilding(id, featureType(f), largest, tags["building:levels"]))
		}
	}

	return fs, nil
}

// EncodeGeoJSON writes fs as a FeatureCollection that decodeGeoJSON reads
// back into an equivalent feature set.
func EncodeGeoJSON(fs *domain.FeatureSet) ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	for _, r := range fs.Roads {
		tags := map[string]interface{}{"highway": r.RoadClass}
		if r.SpeedLimitKph != nil {
			tags["maxspeed"] = strconv.FormatFloat(*r.SpeedLimitKph, 'f', -1, 64)
		}
		f := geojson.NewFeature(r.Geometry)
		f.Properties["type"] = "way"
		f.Properties["id"] = r.ID
		f.Properties["tags"] = tags
		fc.Append(f)
	}

	for _, b := range fs.Buildings {
		tags := map[string]interface{}{"building": "yes"}
		if b.FloorCount != nil {
			tags["building:levels"] = strconv.Itoa(*b.FloorCount)
		}
		osmType := b.OSMType
		if osmType == "" {
			osmType = "way"
		}
		f := geojson.NewFeature(b.Geometry)
		f.Properties["type"] = osmType
		f.Properties["id"] = b.ID
		f.Properties["tags"] = tags
		fc.Append(f)
	}

	return fc.MarshalJSON()
}

func featureTags(props geojson.Properties) map[string]string {
	src := map[string]interface{}(props)
	if nested, ok := props["tags"].(map[string]interface{}); ok {
		src = nested
	}
	tags := make(map[string]string, len(src))
	for k, v := range src {
		switch val := v.(type) {
		case string:
			tags[k] = val
		case float64:
			tags[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case nil:
		default:
			tags[k] = fmt.Sprint(val)
		}
	}
	return tags
}

func featureID(f *geojson.Feature) int64 {
	for _, v := range []interface{}{f.Properties["id"], f.ID} {
		switch id := v.(type) {
		case float64:
			return int64(id)
		case string:
			if n, err := strconv.ParseInt(id, 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

func featureType(f *geojson.Feature) string {
	if t, ok := f.Properties["type"].(string); ok && t == "relation" {
		return "relation"
	}
	return "way"
}
