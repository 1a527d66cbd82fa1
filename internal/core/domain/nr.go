package domain

import (
	"fmt"
	"time"
)

// AreaStatistics are the scalar reductions of a feature set. A zero
// AvgSpeedKph or AvgFloors means no feature carried the tag.
type AreaStatistics struct {
	RoadCount         int     `json:"road_count"`
	AvgSpeedKph       float64 `json:"avg_speed"`
	BuildingCount     int     `json:"building_count"`
	AvgFloors         float64 `json:"avg_floors"`
	PopulationDensity float64 `json:"population_density"` // persons per km²
}

// AreaType is the primary classification bucket.
type AreaType string

const (
	AreaRural      AreaType = "Rural"
	AreaSuburban   AreaType = "Suburban"
	AreaUrban      AreaType = "Urban"
	AreaDenseUrban AreaType = "Dense-Urban"
)

// SubcarrierSpacing is the NR numerology spacing in kHz.
type SubcarrierSpacing int

const (
	Subcarrier15kHz SubcarrierSpacing = 15
	Subcarrier30kHz SubcarrierSpacing = 30
	Subcarrier60kHz SubcarrierSpacing = 60
)

func (s SubcarrierSpacing) String() string {
	return fmt.Sprintf("%d kHz", int(s))
}

// FrequencyBand is the coarse NR frequency range.
type FrequencyBand string

const (
	BandLow  FrequencyBand = "Low"
	BandMid  FrequencyBand = "Mid"
	BandHigh FrequencyBand = "High"
)

// Label returns the spectrum commonly deployed for the band.
func (b FrequencyBand) Label() string {
	switch b {
	case BandLow:
		return "Sub-1GHz"
	case BandMid:
		return "C-Band (3.5GHz)"
	case BandHigh:
		return "mmWave (24GHz+)"
	}
	return string(b)
}

// CyclicPrefix is the NR guard interval mode.
type CyclicPrefix string

const (
	CyclicPrefixNormal   CyclicPrefix = "Normal"
	CyclicPrefixExtended CyclicPrefix = "Extended"
)

// NRConfig is the advisory parameter set for an area.
type NRConfig struct {
	AreaType          AreaType          `json:"area_type"`
	SubcarrierSpacing SubcarrierSpacing `json:"subcarrier_spacing_khz"`
	FrequencyBand     FrequencyBand     `json:"frequency_band"`
	CyclicPrefix      CyclicPrefix      `json:"cyclic_prefix"`
}

// Evaluation is the outcome of one point query.
type Evaluation struct {
	ID           string         `json:"id"`
	Center       GeoPoint       `json:"center"`
	RadiusMeters float64        `json:"radius"`
	Stats        AreaStatistics `json:"stats"`
	Config       NRConfig       `json:"config"`
	Source       string         `json:"source"`
	EvaluatedAt  time.Time      `json:"evaluated_at"`
}
