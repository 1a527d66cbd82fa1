package osmdata_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/nrplanner/internal/core/domain"
	"github.com/samirrijal/nrplanner/internal/osmdata"
)

// Two roads (one untagged speed), one building way and one multipolygon
// building relation split into two outer segments, as returned by
// "out body; >; out skel qt;".
const overpassSample = `{
  "version": 0.6,
  "generator": "Overpass API",
  "elements": [
    {"type": "way", "id": 10, "nodes": [1, 2, 3], "tags": {"highway": "primary", "maxspeed": "50"}},
    {"type": "way", "id": 11, "nodes": [3, 4], "tags": {"highway": "footway"}},
    {"type": "way", "id": 20, "nodes": [5, 6, 7, 8, 5], "tags": {"building": "yes", "building:levels": "4"}},
    {"type": "way", "id": 21, "nodes": [9, 10, 11]},
    {"type": "way", "id": 22, "nodes": [11, 12, 9]},
    {"type": "relation", "id": 30, "members": [
      {"type": "way", "ref": 21, "role": "outer"},
      {"type": "way", "ref": 22, "role": "outer"}
    ], "tags": {"type": "multipolygon", "building": "apartments"}},
    {"type": "way", "id": 40, "nodes": [1, 2], "tags": {"landuse": "grass"}},
    {"type": "node", "id": 1, "lat": 43.2600, "lon": -2.9400},
    {"type": "node", "id": 2, "lat": 43.2610, "lon": -2.9390},
    {"type": "node", "id": 3, "lat": 43.2620, "lon": -2.9380},
    {"type": "node", "id": 4, "lat": 43.2630, "lon": -2.9370},
    {"type": "node", "id": 5, "lat": 43.2640, "lon": -2.9360},
    {"type": "node", "id": 6, "lat": 43.2640, "lon": -2.9350},
    {"type": "node", "id": 7, "lat": 43.2650, "lon": -2.9350},
    {"type": "node", "id": 8, "lat": 43.2650, "lon": -2.9360},
    {"type": "node", "id": 9, "lat": 43.2660, "lon": -2.9340},
    {"type": "node", "id": 10, "lat": 43.2660, "lon": -2.9330},
    {"type": "node", "id": 11, "lat": 43.2670, "lon": -2.9330},
    {"type": "node", "id": 12, "lat": 43.2670, "lon": -2.9340}
  ]
}`

func decode(t *testing.T, format domain.MapFormat, body string) *domain.FeatureSet {
	t.Helper()
	fs, err := osmdata.Decode(context.Background(), &domain.RawMapData{Format: format, Body: []byte(body)})
	require.NoError(t, err)
	return fs
}

func TestDecode_OverpassJSON(t *testing.T) {
	fs := decode(t, domain.FormatOverpassJSON, overpassSample)

	require.Len(t, fs.Roads, 2)
	assert.Equal(t, int64(10), fs.Roads[0].ID)
	assert.Equal(t, "primary", fs.Roads[0].RoadClass)
	require.NotNil(t, fs.Roads[0].SpeedLimitKph)
	assert.Equal(t, 50.0, *fs.Roads[0].SpeedLimitKph)
	assert.Len(t, fs.Roads[0].Geometry, 3)
	assert.Nil(t, fs.Roads[1].SpeedLimitKph, "untagged speed must stay absent")

	require.Len(t, fs.Buildings, 2)
	assert.Equal(t, "way", fs.Buildings[0].OSMType)
	require.NotNil(t, fs.Buildings[0].FloorCount)
	assert.Equal(t, 4, *fs.Buildings[0].FloorCount)

	rel := fs.Buildings[1]
	assert.Equal(t, int64(30), rel.ID)
	assert.Equal(t, "relation", rel.OSMType)
	assert.Nil(t, rel.FloorCount)
	require.Len(t, rel.Geometry, 1)
	assert.Len(t, rel.Geometry[0], 5, "two outer segments stitch into one closed ring")
}

func TestDecode_OverpassInlineGeometry(t *testing.T) {
	body := `{"elements": [
	  {"type": "way", "id": 1, "nodes": [100, 101],
	   "geometry": [{"lat": 1.0, "lon": 2.0}, {"lat": 1.1, "lon": 2.1}],
	   "tags": {"highway": "residential", "maxspeed": "20 mph"}}
	]}`

	fs := decode(t, domain.FormatOverpassJSON, body)

	require.Len(t, fs.Roads, 1)
	assert.Equal(t, 2.0, fs.Roads[0].Geometry[0].Lon())
	assert.Equal(t, 1.1, fs.Roads[0].Geometry[1].Lat())
	assert.InDelta(t, 32.18688, *fs.Roads[0].SpeedLimitKph, 1e-9)
}

func TestDecode_SkipsUnresolvableWays(t *testing.T) {
	body := `{"elements": [{"type": "way", "id": 1, "nodes": [7, 8], "tags": {"highway": "service"}}]}`

	fs := decode(t, domain.FormatOverpassJSON, body)
	assert.Empty(t, fs.Roads)
}

func TestDecode_OverpassRuntimeError(t *testing.T) {
	body := `{"elements": [], "remark": "runtime error: Query timed out in \"query\" at line 3 after 26 seconds."}`

	_, err := osmdata.Decode(context.Background(), &domain.RawMapData{Format: domain.FormatOverpassJSON, Body: []byte(body)})
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		format domain.MapFormat
		body   string
	}{
		{"truncated json", domain.FormatOverpassJSON, `{"elements": [{"type": "way"`},
		{"html error page", domain.FormatOverpassJSON, `<html><body>429 Too Many Requests</body></html>`},
		{"no elements", domain.FormatOverpassJSON, `{"version": 0.6}`},
		{"untyped element", domain.FormatOverpassJSON, `{"elements": [{"id": 4}]}`},
		{"empty body", domain.FormatGeoJSON, "  "},
		{"bad geojson", domain.FormatGeoJSON, `{"type": "FeatureCollection", "features": 12}`},
		{"bad xml", domain.FormatOSMXML, `<osm><way id="1"><nd ref=`},
		{"unknown format", domain.MapFormat("shapefile"), `x`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := osmdata.Decode(context.Background(), &domain.RawMapData{Format: tt.format, Body: []byte(tt.body)})
			assert.ErrorIs(t, err, domain.ErrParse)
		})
	}
}

func TestDecode_OSMXML(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="51.5000" lon="-0.1200"/>
  <node id="2" lat="51.5010" lon="-0.1190"/>
  <node id="3" lat="51.5010" lon="-0.1200"/>
  <way id="100">
    <nd ref="1"/><nd ref="2"/>
    <tag k="highway" v="trunk"/>
    <tag k="maxspeed" v="40 mph"/>
  </way>
  <way id="200">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/><nd ref="1"/>
    <tag k="building" v="house"/>
    <tag k="building:levels" v="2"/>
  </way>
  <way id="300">
    <nd ref="1"/><nd ref="3"/>
    <tag k="building" v="no"/>
  </way>
</osm>`

	fs := decode(t, domain.FormatOSMXML, body)

	require.Len(t, fs.Roads, 1)
	assert.InDelta(t, 64.37376, *fs.Roads[0].SpeedLimitKph, 1e-9)
	require.Len(t, fs.Buildings, 1)
	assert.Equal(t, 2, *fs.Buildings[0].FloorCount)
}

func TestDecode_GeoJSON(t *testing.T) {
	body := `{
	  "type": "FeatureCollection",
	  "features": [
	    {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[2.35, 48.85], [2.36, 48.86]]},
	     "properties": {"type": "way", "id": 5, "tags": {"highway": "motorway", "maxspeed": "110"}}},
	    {"type": "Feature", "geometry": {"type": "Polygon", "coordinates": [[[2.35, 48.85], [2.351, 48.85], [2.351, 48.851], [2.35, 48.85]]]},
	     "properties": {"building": "yes", "building:levels": 6}},
	    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [2.35, 48.85]},
	     "properties": {"amenity": "cafe"}}
	  ]
	}`

	fs := decode(t, domain.FormatGeoJSON, body)

	require.Len(t, fs.Roads, 1)
	assert.Equal(t, int64(5), fs.Roads[0].ID)
	assert.Equal(t, 110.0, *fs.Roads[0].SpeedLimitKph)
	require.Len(t, fs.Buildings, 1)
	assert.Equal(t, 6, *fs.Buildings[0].FloorCount)
}

func TestEncodeGeoJSON_PreservesFeatures(t *testing.T) {
	src := decode(t, domain.FormatOverpassJSON, overpassSample)

	body, err := osmdata.EncodeGeoJSON(src)
	require.NoError(t, err)

	got := decode(t, domain.FormatGeoJSON, string(body))
	assert.Equal(t, src.Roads, got.Roads)
	assert.Equal(t, src.Buildings, got.Buildings)
}

func TestFormatForPath(t *testing.T) {
	cases := map[string]domain.MapFormat{
		"output/road_network.json":      domain.FormatOverpassJSON,
		"output/buildings.GeoJSON":      domain.FormatGeoJSON,
		"extracts/bilbao.osm":           domain.FormatOSMXML,
		"extracts/bilbao.xml":           domain.FormatOSMXML,
		"extracts/spain-latest.osm.pbf": domain.FormatOSMPBF,
	}
	for path, want := range cases {
		got, err := osmdata.FormatForPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := osmdata.FormatForPath("notes.txt")
	assert.Error(t, err)
}
