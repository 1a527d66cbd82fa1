package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetchCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "extract"}
	registerFetchFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestPlanFromFlags_Static(t *testing.T) {
	plan, err := planFromFlags(fetchCmd(t, "--area", "Bilbao"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("output", "road_network.json"), plan.Roads.JSON)
	assert.Equal(t, filepath.Join("output", "road_network.geojson"), plan.Roads.GeoJSON)
	assert.Equal(t, filepath.Join("output", "buildings.json"), plan.Buildings.JSON)
	assert.Contains(t, plan.Roads.Query, `area["name"="Bilbao"]`)
	assert.Contains(t, plan.Buildings.Query, `"building"`)
}

func TestPlanFromFlags_Dynamic(t *testing.T) {
	plan, err := planFromFlags(fetchCmd(t,
		"--mode", "dynamic", "--lat", "48.8566", "--lon", "2.3522", "--radius", "800", "--output", "data",
	))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data", "road_network_48.8566_2.3522.json"), plan.Roads.JSON)
	assert.Equal(t, filepath.Join("data", "buildings_48.8566_2.3522.geojson"), plan.Buildings.GeoJSON)
	assert.Contains(t, plan.Roads.Query, "around:800,48.8566,2.3522")
}

func TestPlanFromFlags_Errors(t *testing.T) {
	tests := map[string][]string{
		"dynamic without point": {"--mode", "dynamic"},
		"dynamic without lon":   {"--mode", "dynamic", "--lat", "1"},
		"latitude out of range": {"--mode", "dynamic", "--lat", "91", "--lon", "0"},
		"zero radius":           {"--mode", "dynamic", "--lat", "1", "--lon", "1", "--radius", "0"},
		"unknown mode":          {"--mode", "live"},
		"empty area":            {"--area", ""},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := planFromFlags(fetchCmd(t, args...))
			assert.Error(t, err)
		})
	}
}

func TestConvert(t *testing.T) {
	body := []byte(`{"elements":[
		{"type":"node","id":1,"lat":43.26,"lon":-2.93},
		{"type":"node","id":2,"lat":43.27,"lon":-2.93},
		{"type":"way","id":10,"nodes":[1,2],"tags":{"highway":"primary","maxspeed":"50"}}
	]}`)
	path := filepath.Join(t.TempDir(), "road_network.geojson")

	n, err := convert(context.Background(), body, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(out), `"highway":"primary"`), "unexpected geojson %s", out)
}

func TestConvert_BadPayload(t *testing.T) {
	_, err := convert(context.Background(), []byte("<html>busy</html>"), filepath.Join(t.TempDir(), "x.geojson"))
	assert.Error(t, err)
}
