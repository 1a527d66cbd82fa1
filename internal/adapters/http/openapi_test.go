package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/samirrijal/nrplanner/internal/adapters/http"
)

// findOpenAPISpec locates api/openapi.yaml by walking up from the test directory.
func findOpenAPISpec(t *testing.T) string {
	t.Helper()
	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "api", "openapi.yaml")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	t.Fatalf("could not find api/openapi.yaml")
	return ""
}

func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	data, err := os.ReadFile(findOpenAPISpec(t))
	require.NoError(t, err)

	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(data)
	require.NoError(t, err, "parse openapi.yaml")
	return doc
}

func TestOpenAPISpec(t *testing.T) {
	doc := loadOpenAPI(t)
	require.NoError(t, doc.Validate(context.Background()))

	for _, path := range []string{
		"/v1/health",
		"/v1/ready",
		"/v1/nr-config",
		"/v1/decision-table",
		"/api/5g_config",
		"/graphql",
	} {
		assert.NotNil(t, doc.Paths.Find(path), "path %s", path)
	}

	for _, name := range []string{
		"NRConfigResponse",
		"NRConfig",
		"DecisionTable",
		"Health",
		"Ready",
		"APIError",
	} {
		assert.NotNil(t, doc.Components.Schemas[name], "schema %s", name)
	}

	legacy := doc.Paths.Find("/api/5g_config")
	require.NotNil(t, legacy)
	assert.True(t, legacy.Get.Deprecated, "legacy endpoint should be marked deprecated")
}

// TestOpenAPISchemaMatchesResponse checks every field of the wire record
// is described.
func TestOpenAPISchemaMatchesResponse(t *testing.T) {
	doc := loadOpenAPI(t)
	schema := doc.Components.Schemas["NRConfigResponse"].Value

	var fields map[string]interface{}
	b, err := json.Marshal(handler.NRConfigResponse{})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &fields))

	for name := range fields {
		assert.Contains(t, schema.Properties, name, "field %s missing from NRConfigResponse schema", name)
	}
}

func TestOpenAPIInfo(t *testing.T) {
	doc := loadOpenAPI(t)

	assert.Equal(t, "NR Planner API", doc.Info.Title)
	assert.Equal(t, "1.0.0", doc.Info.Version)
	assert.NotEmpty(t, doc.Info.Description)
	assert.NotEmpty(t, doc.Servers)
}

func TestDocsServesSpec(t *testing.T) {
	prev := handler.OpenAPIPath
	handler.OpenAPIPath = findOpenAPISpec(t)
	defer func() { handler.OpenAPIPath = prev }()

	app := setupApp(makeDeps(&mockSource{}))

	resp, err := app.Test(httptest.NewRequest("GET", "/docs/openapi.yaml", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, strings.Contains(string(readBody(t, resp.Body)), "NR Planner API"))

	resp, err = app.Test(httptest.NewRequest("GET", "/docs/openapi.json", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var doc map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "3.0.3", doc["openapi"])

	handler.OpenAPIPath = filepath.Join(t.TempDir(), "missing.yaml")
	resp, _ = app.Test(httptest.NewRequest("GET", "/docs/openapi.yaml", nil), -1)
	assert.Equal(t, 404, resp.StatusCode)
}
