package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/nrplanner/internal/adapters/overpass"
	"github.com/samirrijal/nrplanner/internal/core/domain"
	"github.com/samirrijal/nrplanner/internal/osmdata"
)

const (
	modeStatic  = "static"
	modeDynamic = "dynamic"
)

// fetchPlan describes one extraction: the queries to run and where each
// result lands.
type fetchPlan struct {
	Roads     target
	Buildings target
}

type target struct {
	Query   string
	JSON    string
	GeoJSON string
}

func init() {
	registerFetchFlags(rootCmd)
}

func registerFetchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("mode", modeStatic, "static: fetch a named area; dynamic: fetch a radius around --lat/--lon")
	f.String("area", "Paris", "area name for static mode")
	f.Float64("lat", 0, "latitude for dynamic mode")
	f.Float64("lon", 0, "longitude for dynamic mode")
	f.Int("radius", 500, "radius in meters for dynamic mode")
	f.String("output", "output", "output directory")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	plan, err := planFromFlags(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", output, err)
	}

	client := overpass.New(overpass.Options{
		Endpoint:          cfg.Source.OverpassURL,
		Timeout:           time.Duration(cfg.Source.OverpassTimeout) * time.Second,
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
		Burst:             2,
		UserAgent:         cfg.Source.UserAgent,
	})

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range []target{plan.Roads, plan.Buildings} {
		g.Go(func() error {
			return extract(gctx, client, t)
		})
	}
	return g.Wait()
}

// planFromFlags resolves the command line into queries and file names.
func planFromFlags(cmd *cobra.Command) (fetchPlan, error) {
	f := cmd.Flags()
	mode, _ := f.GetString("mode")
	output, _ := f.GetString("output")

	switch mode {
	case modeStatic:
		area, _ := f.GetString("area")
		if area == "" {
			return fetchPlan{}, fmt.Errorf("--area is required in static mode")
		}
		return newPlan(output, "",
			overpass.AreaQuery(overpass.KindRoads, area),
			overpass.AreaQuery(overpass.KindBuildings, area),
		), nil

	case modeDynamic:
		if !f.Changed("lat") || !f.Changed("lon") {
			return fetchPlan{}, fmt.Errorf("--lat and --lon are required in dynamic mode")
		}
		lat, _ := f.GetFloat64("lat")
		lon, _ := f.GetFloat64("lon")
		radius, _ := f.GetInt("radius")
		center := domain.GeoPoint{Lat: lat, Lon: lon}
		if err := center.Validate(); err != nil {
			return fetchPlan{}, err
		}
		if radius <= 0 {
			return fetchPlan{}, fmt.Errorf("--radius must be positive, got %d", radius)
		}
		suffix := "_" + strconv.FormatFloat(lat, 'f', -1, 64) + "_" + strconv.FormatFloat(lon, 'f', -1, 64)
		return newPlan(output, suffix,
			overpass.AroundQuery(overpass.KindRoads, center, float64(radius)),
			overpass.AroundQuery(overpass.KindBuildings, center, float64(radius)),
		), nil
	}

	return fetchPlan{}, fmt.Errorf("--mode must be %s or %s, got %q", modeStatic, modeDynamic, mode)
}

func newPlan(dir, suffix, roadsQL, buildingsQL string) fetchPlan {
	name := func(base, ext string) string {
		return filepath.Join(dir, base+suffix+ext)
	}
	return fetchPlan{
		Roads:     target{Query: roadsQL, JSON: name("road_network", ".json"), GeoJSON: name("road_network", ".geojson")},
		Buildings: target{Query: buildingsQL, JSON: name("buildings", ".json"), GeoJSON: name("buildings", ".geojson")},
	}
}

// extract runs one query, keeps the raw response and writes its GeoJSON
// conversion next to it.
func extract(ctx context.Context, client *overpass.Client, t target) error {
	start := time.Now()
	body, err := client.Query(ctx, t.Query)
	if err != nil {
		return fmt.Errorf("query for %s: %w", t.JSON, err)
	}
	if err := os.WriteFile(t.JSON, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", t.JSON, err)
	}
	slog.Info("data saved", "file", t.JSON, "bytes", len(body), "took", time.Since(start).Round(time.Millisecond))

	n, err := convert(ctx, body, t.GeoJSON)
	if err != nil {
		return err
	}
	slog.Info("geojson saved", "file", t.GeoJSON, "features", n)
	return nil
}

// convert decodes an Overpass JSON payload and writes it as GeoJSON.
func convert(ctx context.Context, body []byte, path string) (int, error) {
	fs, err := osmdata.Decode(ctx, &domain.RawMapData{Format: domain.FormatOverpassJSON, Source: "overpass", Body: body})
	if err != nil {
		return 0, fmt.Errorf("convert %s: %w", path, err)
	}
	out, err := osmdata.EncodeGeoJSON(fs)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return len(fs.Roads) + len(fs.Buildings), nil
}
