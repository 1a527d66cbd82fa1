package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/nrplanner/internal/adapters/http"
	natsadapter "github.com/samirrijal/nrplanner/internal/adapters/nats"
	"github.com/samirrijal/nrplanner/internal/adapters/overpass"
	"github.com/samirrijal/nrplanner/internal/adapters/postgres"
	"github.com/samirrijal/nrplanner/internal/adapters/snapshot"
	"github.com/samirrijal/nrplanner/internal/adapters/valkey"
	"github.com/samirrijal/nrplanner/internal/core/ports"
	"github.com/samirrijal/nrplanner/internal/core/usecases"
	"github.com/samirrijal/nrplanner/internal/pkg/config"
	"github.com/samirrijal/nrplanner/internal/pkg/logging"
	"github.com/samirrijal/nrplanner/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load("nrplanner-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Map source
	source, db, err := buildSource(ctx, cfg)
	if err != nil {
		log.Fatalf("map source: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	// Cache
	var cache *valkey.Cache
	if cfg.Valkey.Enabled {
		c, err := valkey.New(valkey.Options{Addr: cfg.Valkey.Addr, LocalTTL: time.Duration(cfg.Valkey.LocalTTL) * time.Second})
		if err != nil {
			slog.Warn("valkey unavailable, map fetches are not cached", "error", err)
		} else {
			cache = c
			defer cache.Close()
			source = valkey.NewCachingSource(source, cache, time.Duration(cfg.Source.CacheTTL)*time.Second)
		}
	}

	// NATS
	var publisher ports.EvaluationPublisher
	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, evaluations are not published", "error", err)
		} else {
			publisher = pub
			defer pub.Close()
		}

		// Raw NATS connection for WebSocket relay
		natsConn, err = natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer natsConn.Close()
		}
	}

	// Use cases
	evaluations := usecases.NewEvaluationService(
		usecases.NewFeatureFetcher(source),
		usecases.DefaultDecisionTable(),
		publisher,
	)

	deps := &http.Dependencies{
		Evaluations: evaluations,
		NATS:        natsConn,
		DB:          db,
		Cache:       cache,
		Version:     version,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "NR Planner API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps, http.RouterOptions{
		QueryTimeout:   time.Duration(cfg.Server.QueryTimeout) * time.Second,
		RateLimitPerIP: cfg.Server.RateLimit,
	})

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "source", source.Name())
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// In-flight evaluations get one query timeout to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.QueryTimeout)*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// buildSource returns the configured map source. db is non-nil only for
// the postgres source and must be closed by the caller.
func buildSource(ctx context.Context, cfg *config.Config) (ports.MapSource, *postgres.DB, error) {
	switch cfg.Source.Kind {
	case config.SourceSnapshot:
		src, err := snapshot.Open(ctx, cfg.Source.SnapshotPaths...)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil

	case config.SourcePostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		return postgres.NewMapSource(db.Pool), db, nil

	default:
		return overpass.New(overpass.Options{
			Endpoint:          cfg.Source.OverpassURL,
			Timeout:           time.Duration(cfg.Source.OverpassTimeout) * time.Second,
			RequestsPerSecond: cfg.Source.RequestsPerSecond,
			Burst:             cfg.Source.Burst,
			UserAgent:         cfg.Source.UserAgent,
		}), nil, nil
	}
}
