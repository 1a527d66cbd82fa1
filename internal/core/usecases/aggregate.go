package usecases

import (
	"fmt"
	"math"

	"github.com/samirrijal/nrplanner/internal/core/domain"
	"github.com/samirrijal/nrplanner/internal/pkg/geospatial"
)

const (
	// RadiusMeters is the fixed query radius.
	RadiusMeters = 5000.0

	// OccupantsPerFloor calibrates building floors to residents.
	OccupantsPerFloor = 25.0
)

// QueryAreaKm2 is the area of the query circle, π·5² ≈ 78.54 km².
var QueryAreaKm2 = geospatial.CircleAreaKm2(RadiusMeters)

// Aggregate reduces a feature set to area statistics over the fixed query
// area. Absent speed and floor values are excluded from the means; when no
// feature carries one, the mean is 0.
func Aggregate(fs *domain.FeatureSet) (domain.AreaStatistics, error) {
	if fs == nil {
		return domain.AreaStatistics{}, fmt.Errorf("%w: nil feature set", domain.ErrInternalInvariant)
	}

	stats := domain.AreaStatistics{
		RoadCount:     len(fs.Roads),
		BuildingCount: len(fs.Buildings),
	}

	var speedSum float64
	var speedN int
	for i, r := range fs.Roads {
		if r.SpeedLimitKph == nil {
			continue
		}
		v := *r.SpeedLimitKph
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.AreaStatistics{}, fmt.Errorf("%w: road %d (#%d) has speed %v", domain.ErrInternalInvariant, r.ID, i, v)
		}
		speedSum += v
		speedN++
	}
	if speedN > 0 {
		stats.AvgSpeedKph = speedSum / float64(speedN)
	}

	var floorSum, floorN int
	for i, b := range fs.Buildings {
		if b.FloorCount == nil {
			continue
		}
		if *b.FloorCount < 0 {
			return domain.AreaStatistics{}, fmt.Errorf("%w: building %d (#%d) has %d floors", domain.ErrInternalInvariant, b.ID, i, *b.FloorCount)
		}
		floorSum += *b.FloorCount
		floorN++
	}
	if floorN > 0 {
		stats.AvgFloors = float64(floorSum) / float64(floorN)
	}

	stats.PopulationDensity = PopulationDensity(stats.BuildingCount, stats.AvgFloors)
	return stats, nil
}

// PopulationDensity estimates persons per km² as
// buildings × avg floors × occupants per floor over the query area.
func PopulationDensity(buildingCount int, avgFloors float64) float64 {
	return float64(buildingCount) * avgFloors * OccupantsPerFloor / QueryAreaKm2
}
