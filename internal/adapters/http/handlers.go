package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/nrplanner/internal/core/domain"
	"github.com/samirrijal/nrplanner/internal/core/usecases"
)

// NRConfigBody is the nested configuration of an NRConfigResponse.
type NRConfigBody struct {
	AreaType     string `json:"area_type"`
	Subcarrier   string `json:"subcarrier"`
	Frequency    string `json:"frequency"`
	Band         string `json:"band"`
	CyclicPrefix string `json:"cyclic_prefix"`
}

// NRConfigResponse is the flat record returned for a point query.
type NRConfigResponse struct {
	ID                string       `json:"id"`
	Lat               float64      `json:"lat"`
	Lon               float64      `json:"lon"`
	Radius            float64      `json:"radius"`
	RoadCount         int          `json:"road_count"`
	BuildingCount     int          `json:"building_count"`
	AvgFloors         float64      `json:"avg_floors"`
	AvgSpeed          float64      `json:"avg_speed"`
	PopulationDensity float64      `json:"population_density"`
	Config            NRConfigBody `json:"config"`
	Source            string       `json:"source"`
	EvaluatedAt       time.Time    `json:"evaluated_at"`
}

// NewNRConfigResponse flattens an evaluation for the wire.
func NewNRConfigResponse(ev *domain.Evaluation) NRConfigResponse {
	return NRConfigResponse{
		ID:                ev.ID,
		Lat:               ev.Center.Lat,
		Lon:               ev.Center.Lon,
		Radius:            ev.RadiusMeters,
		RoadCount:         ev.Stats.RoadCount,
		BuildingCount:     ev.Stats.BuildingCount,
		AvgFloors:         ev.Stats.AvgFloors,
		AvgSpeed:          ev.Stats.AvgSpeedKph,
		PopulationDensity: ev.Stats.PopulationDensity,
		Config: NRConfigBody{
			AreaType:     string(ev.Config.AreaType),
			Subcarrier:   ev.Config.SubcarrierSpacing.String(),
			Frequency:    string(ev.Config.FrequencyBand),
			Band:         ev.Config.FrequencyBand.Label(),
			CyclicPrefix: string(ev.Config.CyclicPrefix),
		},
		Source:      ev.Source,
		EvaluatedAt: ev.EvaluatedAt,
	}
}

// NRConfigHandler estimates the NR configuration around ?lat=&lon=.
// GET /v1/nr-config?lat=43.263&lon=-2.935
func NRConfigHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		point, err := parsePoint(c.Query("lat"), c.Query("lon"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if deps.Evaluations == nil {
			return errInternal(c, "evaluation service not available")
		}

		ev, err := deps.Evaluations.Evaluate(c.UserContext(), point)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Warn("nr-config evaluation failed",
				"lat", point.Lat, "lon", point.Lon, "error", err)
			return evaluationError(c, err)
		}

		// Results depend only on map data, which changes slowly.
		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(NewNRConfigResponse(ev))
	}
}

// DecisionTableHandler exposes the classification thresholds in use.
func DecisionTableHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		table := usecases.DefaultDecisionTable()
		if deps.Evaluations != nil {
			table = deps.Evaluations.Table()
		}
		return c.JSON(newDecisionTableResponse(table))
	}
}

type decisionTableResponse struct {
	RadiusMeters           float64                      `json:"radius_m"`
	OccupantsPerFloor      float64                      `json:"occupants_per_floor"`
	AreaTypes              []ruleResponse               `json:"area_types"`
	Subcarriers            map[string]string            `json:"subcarriers"`
	Mobility               []ruleResponse               `json:"mobility"`
	Bands                  map[string]map[string]string `json:"bands"`
	ExtendedCPMinBuildings int                          `json:"extended_cp_min_buildings"`
}

type ruleResponse struct {
	Below *float64 `json:"below,omitempty"` // omitted for the open-ended last rule
	Value string   `json:"value"`
}

func newDecisionTableResponse(t usecases.DecisionTable) decisionTableResponse {
	resp := decisionTableResponse{
		RadiusMeters:           usecases.RadiusMeters,
		OccupantsPerFloor:      usecases.OccupantsPerFloor,
		Subcarriers:            make(map[string]string, len(t.Subcarriers)),
		Bands:                  make(map[string]map[string]string, len(t.Bands)),
		ExtendedCPMinBuildings: t.ExtendedCPMinBuildings,
	}
	for i, r := range t.AreaTypes {
		resp.AreaTypes = append(resp.AreaTypes, rule(r.Below, string(r.Area), i == len(t.AreaTypes)-1))
	}
	for i, r := range t.Mobility {
		resp.Mobility = append(resp.Mobility, rule(r.Below, string(r.Class), i == len(t.Mobility)-1))
	}
	for area, sc := range t.Subcarriers {
		resp.Subcarriers[string(area)] = sc.String()
	}
	for area, row := range t.Bands {
		m := make(map[string]string, len(row))
		for mob, band := range row {
			m[string(mob)] = string(band)
		}
		resp.Bands[string(area)] = m
	}
	return resp
}

func rule(below float64, value string, last bool) ruleResponse {
	if last {
		return ruleResponse{Value: value}
	}
	b := below
	return ruleResponse{Below: &b, Value: value}
}

// parsePoint reads lat/lon query values. Zero is a valid coordinate, so
// presence is checked on the raw strings.
func parsePoint(rawLat, rawLon string) (domain.GeoPoint, error) {
	rawLat, rawLon = strings.TrimSpace(rawLat), strings.TrimSpace(rawLon)
	if rawLat == "" || rawLon == "" {
		return domain.GeoPoint{}, fiber.NewError(fiber.StatusBadRequest, "missing lat/lon")
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return domain.GeoPoint{}, fiber.NewError(fiber.StatusBadRequest, "lat must be a number")
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return domain.GeoPoint{}, fiber.NewError(fiber.StatusBadRequest, "lon must be a number")
	}
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return domain.GeoPoint{}, err
	}
	return p, nil
}
