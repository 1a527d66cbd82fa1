package osmdata

import (
	"math"
	"strconv"
	"strings"
)

const (
	kphPerMph     = 1.609344
	kphPerKnot    = 1.852
	maxLevels     = 300
	multiValueSep = ";"
)

// ParseMaxSpeed converts an OSM maxspeed value to km/h. Only the first of
// several ";"-separated values is read. Symbolic values such as "walk",
// "none" or "DE:urban" are reported as absent.
func ParseMaxSpeed(v string) (float64, bool) {
	v = firstValue(v)
	end := numericPrefix(v)
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseFloat(v[:end], 64)
	if err != nil || n <= 0 || math.IsInf(n, 0) {
		return 0, false
	}

	switch strings.ToLower(strings.TrimSpace(v[end:])) {
	case "", "km/h", "kmh", "kph":
		return n, true
	case "mph":
		return n * kphPerMph, true
	case "knots":
		return n * kphPerKnot, true
	}
	return 0, false
}

// ParseLevels reads a building:levels value. Fractional values are rounded;
// zero, negative and implausible counts are reported as absent.
func ParseLevels(v string) (int, bool) {
	v = firstValue(v)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) {
		return 0, false
	}
	levels := int(math.Round(n))
	if levels <= 0 || levels > maxLevels {
		return 0, false
	}
	return levels, true
}

func firstValue(v string) string {
	if i := strings.Index(v, multiValueSep); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func numericPrefix(v string) int {
	end := 0
	for end < len(v) && (v[end] >= '0' && v[end] <= '9' || v[end] == '.') {
		end++
	}
	return end
}

func isBuilding(value string) bool {
	return value != "" && value != "no"
}
