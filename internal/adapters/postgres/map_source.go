package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/nrplanner/internal/core/domain"
)

// MapSource implements ports.MapSource over the PostGIS tables created by
// the nr_features and nr_coverage migrations.
type MapSource struct {
	pool Pool
}

// NewMapSource creates a MapSource reading from pool.
func NewMapSource(pool Pool) *MapSource {
	return &MapSource{pool: pool}
}

// Name identifies the source in logs and metrics.
func (s *MapSource) Name() string { return "postgis" }

const roadsInBoxSQL = `
	SELECT osm_id, highway, COALESCE(maxspeed, ''), ST_AsGeoJSON(geom)
	FROM nr_roads
	WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
	ORDER BY osm_id`

const buildingsInBoxSQL = `
	SELECT osm_type, osm_id, COALESCE(levels, ''), ST_AsGeoJSON(geom)
	FROM nr_buildings
	WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
	ORDER BY osm_type, osm_id`

const coversSQL = `
	SELECT EXISTS (
		SELECT 1 FROM nr_coverage
		WHERE ST_Intersects(extent, ST_SetSRID(ST_MakePoint($1, $2), 4326))
	)`

// Fetch returns roads and buildings intersecting the region box as a
// GeoJSON payload carrying the raw OSM tags.
func (s *MapSource) Fetch(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error) {
	covered, err := s.Covers(ctx, region.Center)
	if err != nil {
		return nil, domain.Unavailable(s.Name(), region, err)
	}
	if !covered {
		return nil, domain.Unavailable(s.Name(), region, errors.New("no import covers the region center"))
	}

	b := region.Bounds
	fc := geojson.NewFeatureCollection()

	rows, err := s.pool.Query(ctx, roadsInBoxSQL, b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
	if err != nil {
		return nil, domain.Unavailable(s.Name(), region, fmt.Errorf("query roads: %w", err))
	}
	err = appendRows(fc, rows, func(rows pgx.Rows) (*geojson.Feature, error) {
		var (
			id                int64
			highway, maxspeed string
			geom              string
		)
		if err := rows.Scan(&id, &highway, &maxspeed, &geom); err != nil {
			return nil, err
		}
		tags := map[string]interface{}{"highway": highway}
		if maxspeed != "" {
			tags["maxspeed"] = maxspeed
		}
		return feature("way", id, tags, geom)
	})
	if err != nil {
		return nil, domain.Unavailable(s.Name(), region, fmt.Errorf("scan roads: %w", err))
	}

	rows, err = s.pool.Query(ctx, buildingsInBoxSQL, b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
	if err != nil {
		return nil, domain.Unavailable(s.Name(), region, fmt.Errorf("query buildings: %w", err))
	}
	err = appendRows(fc, rows, func(rows pgx.Rows) (*geojson.Feature, error) {
		var (
			osmType, levels string
			id              int64
			geom            string
		)
		if err := rows.Scan(&osmType, &id, &levels, &geom); err != nil {
			return nil, err
		}
		tags := map[string]interface{}{"building": "yes"}
		if levels != "" {
			tags["building:levels"] = levels
		}
		return feature(osmType, id, tags, geom)
	})
	if err != nil {
		return nil, domain.Unavailable(s.Name(), region, fmt.Errorf("scan buildings: %w", err))
	}

	body, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}
	return &domain.RawMapData{Format: domain.FormatGeoJSON, Source: s.Name(), Body: body}, nil
}

// Covers reports whether any recorded import covers p. The lookup runs
// on every call so imports are visible without restarting.
func (s *MapSource) Covers(ctx context.Context, p domain.GeoPoint) (bool, error) {
	var covered bool
	if err := s.pool.QueryRow(ctx, coversSQL, p.Lon, p.Lat).Scan(&covered); err != nil {
		return false, fmt.Errorf("query coverage: %w", err)
	}
	return covered, nil
}

func appendRows(fc *geojson.FeatureCollection, rows pgx.Rows, scan func(pgx.Rows) (*geojson.Feature, error)) error {
	defer rows.Close()
	for rows.Next() {
		f, err := scan(rows)
		if err != nil {
			return err
		}
		fc.Append(f)
	}
	return rows.Err()
}

func feature(osmType string, id int64, tags map[string]interface{}, geom string) (*geojson.Feature, error) {
	g, err := geojson.UnmarshalGeometry([]byte(geom))
	if err != nil {
		return nil, fmt.Errorf("%s %d geometry: %w", osmType, id, err)
	}
	f := geojson.NewFeature(g.Geometry())
	f.Properties["type"] = osmType
	f.Properties["id"] = id
	f.Properties["tags"] = tags
	return f, nil
}
