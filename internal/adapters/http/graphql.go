package http

import (
	"errors"
	"fmt"
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/nrplanner/internal/core/domain"
	"github.com/samirrijal/nrplanner/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services. Object
// fields resolve through the json tags of the REST response types.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	configType := graphql.NewObject(graphql.ObjectConfig{
		Name: "NRConfig",
		Fields: graphql.Fields{
			"area_type":     &graphql.Field{Type: graphql.String},
			"subcarrier":    &graphql.Field{Type: graphql.String},
			"frequency":     &graphql.Field{Type: graphql.String},
			"band":          &graphql.Field{Type: graphql.String},
			"cyclic_prefix": &graphql.Field{Type: graphql.String},
		},
	})

	evaluationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Evaluation",
		Fields: graphql.Fields{
			"id":                 &graphql.Field{Type: graphql.String},
			"lat":                &graphql.Field{Type: graphql.Float},
			"lon":                &graphql.Field{Type: graphql.Float},
			"radius":             &graphql.Field{Type: graphql.Float},
			"road_count":         &graphql.Field{Type: graphql.Int},
			"building_count":     &graphql.Field{Type: graphql.Int},
			"avg_floors":         &graphql.Field{Type: graphql.Float},
			"avg_speed":          &graphql.Field{Type: graphql.Float},
			"population_density": &graphql.Field{Type: graphql.Float},
			"config":             &graphql.Field{Type: configType},
			"source":             &graphql.Field{Type: graphql.String},
			"evaluated_at":       &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"nrConfig": &graphql.Field{
				Type:        evaluationType,
				Description: "Estimate NR parameters for the 5 km area around a point",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					point := domain.GeoPoint{
						Lat: p.Args["lat"].(float64),
						Lon: p.Args["lon"].(float64),
					}
					if deps.Evaluations == nil {
						return nil, errors.New("evaluation service not available")
					}
					ev, err := deps.Evaluations.Evaluate(p.Context, point)
					if err != nil {
						return nil, err
					}
					return NewNRConfigResponse(ev), nil
				},
			},
			"classify": &graphql.Field{
				Type:        configType,
				Description: "Classify precomputed area statistics without fetching map data",
				Args: graphql.FieldConfigArgument{
					"building_count": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"avg_floors":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"avg_speed":      &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					stats, err := classifyStatistics(p.Args)
					if err != nil {
						return nil, err
					}
					table := usecases.DefaultDecisionTable()
					if deps.Evaluations != nil {
						table = deps.Evaluations.Table()
					}
					cfg := table.Classify(stats)
					return NRConfigBody{
						AreaType:     string(cfg.AreaType),
						Subcarrier:   cfg.SubcarrierSpacing.String(),
						Frequency:    string(cfg.FrequencyBand),
						Band:         cfg.FrequencyBand.Label(),
						CyclicPrefix: string(cfg.CyclicPrefix),
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// classifyStatistics validates the classify arguments; counts and
// averages of a real area are never negative.
func classifyStatistics(args map[string]interface{}) (domain.AreaStatistics, error) {
	buildings := args["building_count"].(int)
	floors := args["avg_floors"].(float64)
	speed := args["avg_speed"].(float64)

	if buildings < 0 {
		return domain.AreaStatistics{}, fmt.Errorf("building_count must not be negative, got %d", buildings)
	}
	if !(floors >= 0) || math.IsInf(floors, 0) {
		return domain.AreaStatistics{}, fmt.Errorf("avg_floors must be a non-negative number, got %v", floors)
	}
	if !(speed >= 0) || math.IsInf(speed, 0) {
		return domain.AreaStatistics{}, fmt.Errorf("avg_speed must be a non-negative number, got %v", speed)
	}

	return domain.AreaStatistics{
		BuildingCount:     buildings,
		AvgFloors:         floors,
		AvgSpeedKph:       speed,
		PopulationDensity: usecases.PopulationDensity(buildings, floors),
	}, nil
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
