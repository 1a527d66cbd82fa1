package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samirrijal/nrplanner/internal/adapters/postgres"
	"github.com/samirrijal/nrplanner/internal/adapters/snapshot"
)

var loadCmd = &cobra.Command{
	Use:   "load <file>...",
	Short: "Import extracted map files into PostGIS",
	Long:  "Decodes GeoJSON, Overpass JSON, OSM XML or PBF files and upserts their roads and buildings into nr_roads and nr_buildings. Each file is imported in its own transaction and records its coverage in nr_coverage under its base name.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()

		var total postgres.ImportStats
		for _, path := range args {
			fs, err := snapshot.ReadFile(ctx, path)
			if err != nil {
				return err
			}
			stats, err := postgres.Import(ctx, db.Pool, filepath.Base(path), fs)
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
			slog.Info("extract imported", "path", path, "roads", stats.Roads, "buildings", stats.Buildings, "cells", stats.Cells)
			total.Roads += stats.Roads
			total.Buildings += stats.Buildings
			total.Cells += stats.Cells
		}

		slog.Info("import complete", "files", len(args), "roads", total.Roads, "buildings", total.Buildings)
		fmt.Fprintf(os.Stdout, "imported %d roads and %d buildings covering %d cells\n", total.Roads, total.Buildings, total.Cells)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
