package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"

	handler "github.com/samirrijal/nrplanner/internal/adapters/http"
	"github.com/samirrijal/nrplanner/internal/core/domain"
	"github.com/samirrijal/nrplanner/internal/core/usecases"
	"github.com/samirrijal/nrplanner/internal/osmdata"
)

// ---- Mock map source ----

type mockSource struct {
	fetchFn func(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error)
	calls   int
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Fetch(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error) {
	m.calls++
	if m.fetchFn != nil {
		return m.fetchFn(ctx, region)
	}
	return &domain.RawMapData{Format: domain.FormatGeoJSON, Source: "mock", Body: []byte(`{"type":"FeatureCollection","features":[]}`)}, nil
}

// servesFeatures returns a source that answers every region with fs
// placed around the requested center.
func servesFeatures(t *testing.T, build func(center domain.GeoPoint) *domain.FeatureSet) *mockSource {
	t.Helper()
	return &mockSource{
		fetchFn: func(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error) {
			body, err := osmdata.EncodeGeoJSON(build(region.Center))
			if err != nil {
				t.Fatalf("encode fixture: %v", err)
			}
			return &domain.RawMapData{Format: domain.FormatGeoJSON, Source: "mock", Body: body}, nil
		},
	}
}

// denseCity places n buildings of the given floors and one 30 km/h road
// next to center.
func denseCity(n, floors int) func(center domain.GeoPoint) *domain.FeatureSet {
	return func(center domain.GeoPoint) *domain.FeatureSet {
		speed := 30.0
		fs := &domain.FeatureSet{
			Roads: []domain.RoadFeature{{
				ID:            1,
				RoadClass:     "residential",
				SpeedLimitKph: &speed,
				Geometry:      orb.LineString{{center.Lon, center.Lat}, {center.Lon + 0.001, center.Lat}},
			}},
		}
		for i := 0; i < n; i++ {
			f := floors
			lat := center.Lat + float64(i%25)*0.0004
			lon := center.Lon + float64(i/25)*0.0004
			fs.Buildings = append(fs.Buildings, domain.BuildingFeature{
				ID:         int64(100 + i),
				FloorCount: &f,
				Geometry: orb.Polygon{orb.Ring{
					{lon, lat}, {lon + 0.0001, lat}, {lon + 0.0001, lat + 0.0001}, {lon, lat + 0.0001}, {lon, lat},
				}},
			})
		}
		return fs
	}
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(src *mockSource) *handler.Dependencies {
	svc := usecases.NewEvaluationService(usecases.NewFeatureFetcher(src), usecases.DefaultDecisionTable(), nil)
	return &handler.Dependencies{Evaluations: svc, Version: "test"}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decodeAPIError(t *testing.T, body io.Reader) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.Unmarshal(readBody(t, body), &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return apiErr
}

// ---- NR config tests ----

func TestNRConfig_DenseUrban(t *testing.T) {
	app := setupApp(makeDeps(servesFeatures(t, denseCity(500, 10))))

	req := httptest.NewRequest("GET", "/v1/nr-config?lat=43.263&lon=-2.935", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=300" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}

	var result handler.NRConfigResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Lat != 43.263 || result.Lon != -2.935 {
		t.Errorf("unexpected point %v,%v", result.Lat, result.Lon)
	}
	if result.Radius != 5000 {
		t.Errorf("expected radius 5000, got %v", result.Radius)
	}
	if result.BuildingCount != 500 || result.RoadCount != 1 {
		t.Errorf("unexpected counts: %d buildings, %d roads", result.BuildingCount, result.RoadCount)
	}
	if result.AvgFloors != 10 || result.AvgSpeed != 30 {
		t.Errorf("unexpected averages: floors %v, speed %v", result.AvgFloors, result.AvgSpeed)
	}
	want := handler.NRConfigBody{
		AreaType:     "Dense-Urban",
		Subcarrier:   "60 kHz",
		Frequency:    "High",
		Band:         "mmWave (24GHz+)",
		CyclicPrefix: "Extended",
	}
	if result.Config != want {
		t.Errorf("expected config %+v, got %+v", want, result.Config)
	}
	if result.ID == "" || result.Source != "mock" {
		t.Errorf("expected id and source, got %q %q", result.ID, result.Source)
	}
}

func TestNRConfig_RawBodyFieldNames(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	req := httptest.NewRequest("GET", "/v1/nr-config?lat=43.263&lon=-2.935", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(readBody(t, resp.Body), &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"lat", "lon", "radius", "road_count", "building_count", "avg_floors", "avg_speed", "population_density", "config"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing field %q", key)
		}
	}
	var cfg map[string]string
	if err := json.Unmarshal(raw["config"], &cfg); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"area_type", "subcarrier", "frequency", "cyclic_prefix"} {
		if cfg[key] == "" {
			t.Errorf("missing config field %q", key)
		}
	}
	if cfg["area_type"] != "Rural" {
		t.Errorf("empty area should be Rural, got %s", cfg["area_type"])
	}
}

func TestNRConfig_ZeroCoordinatesAreValid(t *testing.T) {
	src := &mockSource{}
	app := setupApp(makeDeps(src))

	req := httptest.NewRequest("GET", "/v1/nr-config?lat=0&lon=0", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if src.calls != 1 {
		t.Errorf("expected one fetch, got %d", src.calls)
	}
}

func TestNRConfig_BadInput(t *testing.T) {
	cases := map[string]string{
		"missing both": "/v1/nr-config",
		"missing lon":  "/v1/nr-config?lat=43.2",
		"not a number": "/v1/nr-config?lat=abc&lon=-2.9",
		"lat too big":  "/v1/nr-config?lat=95&lon=-2.9",
		"lon too big":  "/v1/nr-config?lat=43.2&lon=181",
	}
	for name, url := range cases {
		t.Run(name, func(t *testing.T) {
			src := &mockSource{}
			app := setupApp(makeDeps(src))

			resp, _ := app.Test(httptest.NewRequest("GET", url, nil), -1)
			if resp.StatusCode != 400 {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			if apiErr := decodeAPIError(t, resp.Body); apiErr.Code != "bad_request" {
				t.Errorf("expected bad_request, got %s", apiErr.Code)
			}
			if src.calls != 0 {
				t.Error("source must not be queried for bad input")
			}
		})
	}
}

func TestNRConfig_DataUnavailable(t *testing.T) {
	src := &mockSource{
		fetchFn: func(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error) {
			return nil, errors.New("overpass returned 429")
		},
	}
	app := setupApp(makeDeps(src))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/nr-config?lat=43.263&lon=-2.935", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("errors must not be cached, got %q", cc)
	}
	apiErr := decodeAPIError(t, resp.Body)
	if apiErr.Code != "data_unavailable" {
		t.Errorf("expected data_unavailable, got %s", apiErr.Code)
	}
	if apiErr.RequestID == "" {
		t.Error("expected request id in error body")
	}
}

func TestNRConfig_ClientCanceled(t *testing.T) {
	src := &mockSource{
		fetchFn: func(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error) {
			return nil, context.Canceled
		},
	}
	app := setupApp(makeDeps(src))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/nr-config?lat=43.263&lon=-2.935", nil), -1)
	if resp.StatusCode != 499 {
		t.Fatalf("expected 499, got %d", resp.StatusCode)
	}
	apiErr := decodeAPIError(t, resp.Body)
	if apiErr.Code != "canceled" {
		t.Errorf("expected canceled, got %s", apiErr.Code)
	}
}

func TestNRConfig_MalformedMapData(t *testing.T) {
	src := &mockSource{
		fetchFn: func(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error) {
			return &domain.RawMapData{Format: domain.FormatOverpassJSON, Source: "mock", Body: []byte(`{"elements": "nope"}`)}, nil
		},
	}
	app := setupApp(makeDeps(src))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/nr-config?lat=43.263&lon=-2.935", nil), -1)
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if apiErr := decodeAPIError(t, resp.Body); apiErr.Code != "bad_map_data" {
		t.Errorf("expected bad_map_data, got %s", apiErr.Code)
	}
}

func TestLegacy5GConfig_Deprecated(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/api/5g_config?lat=48.8566&lon=2.3522", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header")
	}
	if !strings.Contains(resp.Header.Get("Link"), "/v1/nr-config") {
		t.Errorf("expected successor link, got %q", resp.Header.Get("Link"))
	}
	if resp.Header.Get("Sunset") == "" {
		t.Error("expected Sunset header")
	}

	v1, _ := app.Test(httptest.NewRequest("GET", "/v1/nr-config?lat=48.8566&lon=2.3522", nil), -1)
	if v1.Header.Get("Deprecation") != "" {
		t.Error("v1 endpoint must not be marked deprecated")
	}
}

func TestLegacy5GConfig_MissingParams(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/api/5g_config?lat=48.8566", nil), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if apiErr := decodeAPIError(t, resp.Body); !strings.Contains(apiErr.Message, "missing lat/lon") {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

// ---- Decision table ----

func TestDecisionTable(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/decision-table", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var table struct {
		RadiusMeters float64 `json:"radius_m"`
		AreaTypes    []struct {
			Below *float64 `json:"below"`
			Value string   `json:"value"`
		} `json:"area_types"`
		Subcarriers map[string]string `json:"subcarriers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		t.Fatal(err)
	}
	if table.RadiusMeters != 5000 {
		t.Errorf("expected radius 5000, got %v", table.RadiusMeters)
	}
	if len(table.AreaTypes) != 4 {
		t.Fatalf("expected 4 area rules, got %d", len(table.AreaTypes))
	}
	if table.AreaTypes[3].Below != nil || table.AreaTypes[3].Value != "Dense-Urban" {
		t.Errorf("last rule should be open-ended Dense-Urban, got %+v", table.AreaTypes[3])
	}
	if table.Subcarriers["Rural"] != "15 kHz" {
		t.Errorf("expected Rural 15 kHz, got %q", table.Subcarriers["Rural"])
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	first, _ := app.Test(httptest.NewRequest("GET", "/v1/decision-table", nil), -1)
	etag := first.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest("GET", "/v1/decision-table", nil)
	req.Header.Set("If-None-Match", etag)
	second, _ := app.Test(req, -1)
	if second.StatusCode != 304 {
		t.Errorf("expected 304, got %d", second.StatusCode)
	}
}

// ---- GraphQL ----

func postGraphQL(t *testing.T, app *fiber.App, query string) map[string]interface{} {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"query": query})
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	return result
}

func TestGraphQL_NRConfig(t *testing.T) {
	app := setupApp(makeDeps(servesFeatures(t, denseCity(500, 10))))

	result := postGraphQL(t, app, `{ nrConfig(lat: 43.263, lon: -2.935) { radius building_count config { area_type subcarrier cyclic_prefix } } }`)
	if result["errors"] != nil {
		t.Fatalf("unexpected errors: %v", result["errors"])
	}
	data := result["data"].(map[string]interface{})["nrConfig"].(map[string]interface{})
	if data["radius"].(float64) != 5000 {
		t.Errorf("expected radius 5000, got %v", data["radius"])
	}
	if data["building_count"].(float64) != 500 {
		t.Errorf("expected 500 buildings, got %v", data["building_count"])
	}
	cfg := data["config"].(map[string]interface{})
	if cfg["area_type"] != "Dense-Urban" || cfg["subcarrier"] != "60 kHz" || cfg["cyclic_prefix"] != "Extended" {
		t.Errorf("unexpected config %v", cfg)
	}
}

func TestGraphQL_NRConfigError(t *testing.T) {
	src := &mockSource{
		fetchFn: func(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error) {
			return nil, errors.New("connection refused")
		},
	}
	app := setupApp(makeDeps(src))

	result := postGraphQL(t, app, `{ nrConfig(lat: 43.263, lon: -2.935) { radius } }`)
	if result["errors"] == nil {
		t.Fatal("expected errors")
	}
}

func TestGraphQL_Classify(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	result := postGraphQL(t, app, `{ classify(building_count: 5, avg_floors: 2, avg_speed: 70) { area_type subcarrier cyclic_prefix } }`)
	if result["errors"] != nil {
		t.Fatalf("unexpected errors: %v", result["errors"])
	}
	cfg := result["data"].(map[string]interface{})["classify"].(map[string]interface{})
	if cfg["area_type"] != "Rural" || cfg["subcarrier"] != "15 kHz" || cfg["cyclic_prefix"] != "Normal" {
		t.Errorf("unexpected classification %v", cfg)
	}
}

func TestGraphQL_ClassifyRejectsNegativeStatistics(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	for _, args := range []string{
		`building_count: -5000, avg_floors: 2`,
		`building_count: 10, avg_floors: -3`,
		`building_count: 10, avg_floors: 2, avg_speed: -40`,
	} {
		result := postGraphQL(t, app, `{ classify(`+args+`) { area_type } }`)
		if result["errors"] == nil {
			t.Errorf("classify(%s): expected errors, got %v", args, result["data"])
		}
		if data, ok := result["data"].(map[string]interface{}); ok && data["classify"] != nil {
			t.Errorf("classify(%s): expected null result, got %v", args, data["classify"])
		}
	}
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "healthy" || body["version"] != "test" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestReady_OptionalDepsNotConfigured(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Checks["map_source"] != "mock" {
		t.Errorf("expected map_source mock, got %q", body.Checks["map_source"])
	}
	if body.Checks["database"] != "not configured" {
		t.Errorf("expected database not configured, got %q", body.Checks["database"])
	}
}

func TestReady_NoEvaluationService(t *testing.T) {
	app := setupApp(&handler.Dependencies{})

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

// ---- Middleware ----

func TestSecurityHeaders(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-API-Version":          "1.0.0",
	} {
		if got := resp.Header.Get(header); got != want {
			t.Errorf("%s: expected %q, got %q", header, want, got)
		}
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header")
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/ws", nil), -1)
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("expected 426, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupApp(makeDeps(&mockSource{}))

	_, _ = app.Test(httptest.NewRequest("GET", "/v1/nr-config?lat=43.263&lon=-2.935", nil), -1)
	resp, _ := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(readBody(t, resp.Body)), "nrplanner_pipeline_evaluations_total") {
		t.Error("expected evaluation counter in metrics output")
	}
}
