package geospatial

import "math"

// MetersPerDegree is the length of one degree of latitude (and of longitude
// at the equator) used by the equirectangular approximation.
const MetersPerDegree = 111320.0

// BoundingBox returns a bounding box around a point with the given radius in meters.
// The approximation holds for radii up to roughly 10 km.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / MetersPerDegree
	lonDelta := radiusMeters / (MetersPerDegree * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// CircleAreaKm2 returns the area of a circle with the given radius in meters, in km².
func CircleAreaKm2(radiusMeters float64) float64 {
	r := radiusMeters / 1000
	return math.Pi * r * r
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
