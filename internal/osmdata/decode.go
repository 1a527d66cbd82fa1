// Package osmdata turns raw OpenStreetMap payloads into typed road and
// building features. Overpass JSON, OSM XML, OSM PBF and GeoJSON
// (osm2geojson layout) are understood.
package osmdata

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/samirrijal/nrplanner/internal/core/domain"
)

// Decode parses raw into a feature set, keeping only roads and buildings.
// Malformed payloads yield an error matching domain.ErrParse.
func Decode(ctx context.Context, raw *domain.RawMapData) (*domain.FeatureSet, error) {
	if raw == nil {
		return nil, domain.ParseErrorf("nil payload")
	}
	if len(bytes.TrimSpace(raw.Body)) == 0 {
		return nil, domain.ParseErrorf("empty %s payload from %s", raw.Format, raw.Source)
	}

	switch raw.Format {
	case domain.FormatOverpassJSON:
		return decodeOverpass(raw.Body)
	case domain.FormatOSMXML:
		return decodeXML(ctx, raw.Body)
	case domain.FormatOSMPBF:
		return decodePBF(ctx, raw.Body)
	case domain.FormatGeoJSON:
		return decodeGeoJSON(raw.Body)
	default:
		return nil, domain.ParseErrorf("unsupported map format %q", raw.Format)
	}
}

// FormatForPath infers the payload format from a file name. Overpass
// downloads are plain .json; osm2geojson output uses .geojson.
func FormatForPath(path string) (domain.MapFormat, error) {
	name := strings.ToLower(path)
	switch {
	case strings.HasSuffix(name, ".geojson"):
		return domain.FormatGeoJSON, nil
	case strings.HasSuffix(name, ".json"):
		return domain.FormatOverpassJSON, nil
	case strings.HasSuffix(name, ".osm"), strings.HasSuffix(name, ".xml"):
		return domain.FormatOSMXML, nil
	case strings.HasSuffix(name, ".pbf"):
		return domain.FormatOSMPBF, nil
	}
	return "", fmt.Errorf("cannot infer map format of %q", path)
}
