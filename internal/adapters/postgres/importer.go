package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/nrplanner/internal/core/domain"
)

// ImportStats reports rows written by Import.
type ImportStats struct {
	Roads     int64
	Buildings int64
	Cells     int64
}

// Import upserts a decoded feature set into nr_roads and nr_buildings in
// one transaction, staging rows through COPY. The coverage recorded for
// source in nr_coverage is replaced in the same transaction, so MapSource
// serves the new area as soon as it commits.
func Import(ctx context.Context, pool Pool, source string, fs *domain.FeatureSet) (ImportStats, error) {
	var stats ImportStats
	if fs == nil || len(fs.Roads)+len(fs.Buildings) == 0 {
		return stats, nil
	}

	roadRows := make([][]any, 0, len(fs.Roads))
	for _, r := range fs.Roads {
		geom, err := geojson.NewGeometry(r.Geometry).MarshalJSON()
		if err != nil {
			return stats, fmt.Errorf("encode road %d: %w", r.ID, err)
		}
		var maxspeed *string
		if r.SpeedLimitKph != nil {
			v := strconv.FormatFloat(*r.SpeedLimitKph, 'f', -1, 64)
			maxspeed = &v
		}
		roadRows = append(roadRows, []any{r.ID, r.RoadClass, maxspeed, string(geom)})
	}

	buildingRows := make([][]any, 0, len(fs.Buildings))
	for _, b := range fs.Buildings {
		geom, err := geojson.NewGeometry(b.Geometry).MarshalJSON()
		if err != nil {
			return stats, fmt.Errorf("encode building %d: %w", b.ID, err)
		}
		var levels *string
		if b.FloorCount != nil {
			v := strconv.Itoa(*b.FloorCount)
			levels = &v
		}
		osmType := b.OSMType
		if osmType == "" {
			osmType = "way"
		}
		buildingRows = append(buildingRows, []any{osmType, b.ID, levels, string(geom)})
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return stats, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(roadRows) > 0 {
		stats.Roads, err = stage(ctx, tx, "_tmp_nr_roads",
			`CREATE TEMP TABLE _tmp_nr_roads (osm_id BIGINT, highway TEXT, maxspeed TEXT, geom_json TEXT) ON COMMIT DROP`,
			[]string{"osm_id", "highway", "maxspeed", "geom_json"}, roadRows,
			`INSERT INTO nr_roads (osm_id, highway, maxspeed, geom)
			 SELECT osm_id, highway, maxspeed, ST_SetSRID(ST_GeomFromGeoJSON(geom_json), 4326)
			 FROM _tmp_nr_roads
			 ON CONFLICT (osm_id) DO UPDATE
			 SET highway = EXCLUDED.highway, maxspeed = EXCLUDED.maxspeed, geom = EXCLUDED.geom, updated_at = now()`)
		if err != nil {
			return stats, err
		}
	}

	if len(buildingRows) > 0 {
		stats.Buildings, err = stage(ctx, tx, "_tmp_nr_buildings",
			`CREATE TEMP TABLE _tmp_nr_buildings (osm_type TEXT, osm_id BIGINT, levels TEXT, geom_json TEXT) ON COMMIT DROP`,
			[]string{"osm_type", "osm_id", "levels", "geom_json"}, buildingRows,
			`INSERT INTO nr_buildings (osm_type, osm_id, levels, geom)
			 SELECT osm_type, osm_id, levels, ST_SetSRID(ST_GeomFromGeoJSON(geom_json), 4326)
			 FROM _tmp_nr_buildings
			 ON CONFLICT (osm_type, osm_id) DO UPDATE
			 SET levels = EXCLUDED.levels, geom = EXCLUDED.geom, updated_at = now()`)
		if err != nil {
			return stats, err
		}
	}

	if cov, ok := domain.NewCoverage(fs); ok {
		stats.Cells, err = recordCoverage(ctx, tx, source, cov)
		if err != nil {
			return stats, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return stats, fmt.Errorf("commit tx: %w", err)
	}
	return stats, nil
}

func stage(ctx context.Context, tx pgx.Tx, table, createSQL string, cols []string, rows [][]any, upsertSQL string) (int64, error) {
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("create %s: %w", table, err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, cols, pgx.CopyFromRows(rows)); err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	tag, err := tx.Exec(ctx, upsertSQL)
	if err != nil {
		return 0, fmt.Errorf("upsert from %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

const deleteCoverageSQL = `DELETE FROM nr_coverage WHERE source = $1`

const insertCoverageSQL = `
	INSERT INTO nr_coverage (source, extent)
	SELECT $1, ST_MakeEnvelope(min_lon, min_lat, max_lon, max_lat, 4326)
	FROM unnest($2::float8[], $3::float8[], $4::float8[], $5::float8[]) AS c(min_lon, min_lat, max_lon, max_lat)`

func recordCoverage(ctx context.Context, tx pgx.Tx, source string, cov domain.Coverage) (int64, error) {
	cells := cov.Cells()
	minLon := make([]float64, len(cells))
	minLat := make([]float64, len(cells))
	maxLon := make([]float64, len(cells))
	maxLat := make([]float64, len(cells))
	for i, c := range cells {
		minLon[i], minLat[i], maxLon[i], maxLat[i] = c.MinLon, c.MinLat, c.MaxLon, c.MaxLat
	}

	if _, err := tx.Exec(ctx, deleteCoverageSQL, source); err != nil {
		return 0, fmt.Errorf("clear coverage of %s: %w", source, err)
	}
	tag, err := tx.Exec(ctx, insertCoverageSQL, source, minLon, minLat, maxLon, maxLat)
	if err != nil {
		return 0, fmt.Errorf("record coverage of %s: %w", source, err)
	}
	return tag.RowsAffected(), nil
}
