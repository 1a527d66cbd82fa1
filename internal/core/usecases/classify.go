package usecases

import (
	"math"

	"github.com/samirrijal/nrplanner/internal/core/domain"
)

// Population density cut-offs in persons per km². A density equal to a
// cut-off falls into the denser bucket.
const (
	SuburbanMinDensity   = 50.0
	UrbanMinDensity      = 300.0
	DenseUrbanMinDensity = 1500.0
)

// Average road speed cut-offs in km/h.
const (
	HighMobilityMinKph     = 70.0
	ModerateMobilityMinKph = 40.0
)

// ExtendedCPMinBuildings is the building count from which urban-canyon
// multipath calls for the extended cyclic prefix.
const ExtendedCPMinBuildings = 300

// Mobility is the speed class derived from average road speed.
type Mobility string

const (
	MobilityUnknown  Mobility = "unknown" // no road carried a speed limit
	MobilityLow      Mobility = "low"
	MobilityModerate Mobility = "moderate"
	MobilityHigh     Mobility = "high"
)

// AreaRule maps densities strictly below Below to Area.
type AreaRule struct {
	Below float64
	Area  domain.AreaType
}

// MobilityRule maps speeds strictly below Below to Class.
type MobilityRule struct {
	Below float64
	Class Mobility
}

// DecisionTable holds every threshold the classifier consults. Rules are
// evaluated in slice order and the first match wins; the last rule of each
// slice is the fallback.
type DecisionTable struct {
	AreaTypes              []AreaRule
	Subcarriers            map[domain.AreaType]domain.SubcarrierSpacing
	Mobility               []MobilityRule
	Bands                  map[domain.AreaType]map[Mobility]domain.FrequencyBand
	ExtendedCPMinBuildings int
}

// DefaultDecisionTable returns the production thresholds.
func DefaultDecisionTable() DecisionTable {
	return DecisionTable{
		AreaTypes: []AreaRule{
			{Below: SuburbanMinDensity, Area: domain.AreaRural},
			{Below: UrbanMinDensity, Area: domain.AreaSuburban},
			{Below: DenseUrbanMinDensity, Area: domain.AreaUrban},
			{Below: math.Inf(1), Area: domain.AreaDenseUrban},
		},
		Subcarriers: map[domain.AreaType]domain.SubcarrierSpacing{
			domain.AreaRural:      domain.Subcarrier15kHz,
			domain.AreaSuburban:   domain.Subcarrier30kHz,
			domain.AreaUrban:      domain.Subcarrier60kHz,
			domain.AreaDenseUrban: domain.Subcarrier60kHz,
		},
		Mobility: []MobilityRule{
			{Below: math.SmallestNonzeroFloat64, Class: MobilityUnknown},
			{Below: ModerateMobilityMinKph, Class: MobilityLow},
			{Below: HighMobilityMinKph, Class: MobilityModerate},
			{Below: math.Inf(1), Class: MobilityHigh},
		},
		// Area type picks the row, mobility shifts within it: fast traffic
		// pulls toward propagation-friendly bands, slow dense areas toward
		// capacity.
		Bands: map[domain.AreaType]map[Mobility]domain.FrequencyBand{
			domain.AreaRural: {
				MobilityUnknown: domain.BandLow, MobilityLow: domain.BandLow,
				MobilityModerate: domain.BandLow, MobilityHigh: domain.BandLow,
			},
			domain.AreaSuburban: {
				MobilityUnknown: domain.BandMid, MobilityLow: domain.BandMid,
				MobilityModerate: domain.BandMid, MobilityHigh: domain.BandLow,
			},
			domain.AreaUrban: {
				MobilityUnknown: domain.BandMid, MobilityLow: domain.BandHigh,
				MobilityModerate: domain.BandMid, MobilityHigh: domain.BandMid,
			},
			domain.AreaDenseUrban: {
				MobilityUnknown: domain.BandHigh, MobilityLow: domain.BandHigh,
				MobilityModerate: domain.BandHigh, MobilityHigh: domain.BandMid,
			},
		},
		ExtendedCPMinBuildings: ExtendedCPMinBuildings,
	}
}

var defaultTable = DefaultDecisionTable()

// Classify maps statistics to an NR configuration using the default table.
func Classify(stats domain.AreaStatistics) domain.NRConfig {
	return defaultTable.Classify(stats)
}

// Classify maps statistics to an NR configuration. It is total: every
// input, including NaN, yields a configuration.
func (t DecisionTable) Classify(stats domain.AreaStatistics) domain.NRConfig {
	area := t.AreaType(stats.PopulationDensity)
	mobility := t.MobilityClass(stats.AvgSpeedKph)

	cp := domain.CyclicPrefixNormal
	if stats.BuildingCount >= t.ExtendedCPMinBuildings {
		cp = domain.CyclicPrefixExtended
	}

	return domain.NRConfig{
		AreaType:          area,
		SubcarrierSpacing: t.Subcarriers[area],
		FrequencyBand:     t.Bands[area][mobility],
		CyclicPrefix:      cp,
	}
}

// AreaType returns the first area rule whose bound exceeds density.
func (t DecisionTable) AreaType(density float64) domain.AreaType {
	for _, r := range t.AreaTypes {
		if density < r.Below {
			return r.Area
		}
	}
	return t.AreaTypes[len(t.AreaTypes)-1].Area
}

// MobilityClass returns the first mobility rule whose bound exceeds speed.
func (t DecisionTable) MobilityClass(avgSpeedKph float64) Mobility {
	for _, r := range t.Mobility {
		if avgSpeedKph < r.Below {
			return r.Class
		}
	}
	return t.Mobility[len(t.Mobility)-1].Class
}
