package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/samirrijal/nrplanner/internal/pkg/config"
	"github.com/samirrijal/nrplanner/internal/pkg/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "extract",
	Short: "Fetch OSM roads and buildings from Overpass and convert them to GeoJSON",
	Long: "Downloads the road network and building footprints for a named area (static mode) " +
		"or a radius around a point (dynamic mode), stores the raw Overpass JSON and a GeoJSON copy " +
		"that the snapshot source can serve.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		c, err := config.Load("nrplanner-extract")
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		logging.Setup(cfg.Log.Level, "text", "")
		return nil
	},
	RunE: runFetch,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("extract failed", "error", err)
		os.Exit(1)
	}
}
