package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/nrplanner/internal/core/domain"
	"github.com/samirrijal/nrplanner/internal/core/ports"
	"github.com/samirrijal/nrplanner/internal/pkg/metrics"
	"github.com/samirrijal/nrplanner/internal/pkg/telemetry"
)

// EvaluationService runs fetch → aggregate → classify for a single point.
type EvaluationService struct {
	fetcher   *FeatureFetcher
	table     DecisionTable
	publisher ports.EvaluationPublisher
	now       func() time.Time
}

// NewEvaluationService creates an EvaluationService. publisher may be nil.
func NewEvaluationService(fetcher *FeatureFetcher, table DecisionTable, publisher ports.EvaluationPublisher) *EvaluationService {
	return &EvaluationService{
		fetcher:   fetcher,
		table:     table,
		publisher: publisher,
		now:       time.Now,
	}
}

// SourceName identifies the map source behind the service.
func (s *EvaluationService) SourceName() string {
	return s.fetcher.SourceName()
}

// Table returns the decision table used for classification.
func (s *EvaluationService) Table() DecisionTable {
	return s.table
}

// Evaluate estimates the NR configuration for center. Any failure aborts the
// whole query; nothing is retried.
func (s *EvaluationService) Evaluate(ctx context.Context, center domain.GeoPoint) (*domain.Evaluation, error) {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanEvaluate)
	defer span.End()
	span.SetAttributes(
		attribute.Float64("geo.lat", center.Lat),
		attribute.Float64("geo.lon", center.Lon),
	)

	ev, err := s.evaluate(ctx, center)
	if err != nil {
		metrics.EvaluationErrors.WithLabelValues(errorKind(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.EvaluationsTotal.WithLabelValues(string(ev.Config.AreaType)).Inc()
	span.SetAttributes(attribute.String("nr.area_type", string(ev.Config.AreaType)))

	if s.publisher != nil {
		if err := s.publisher.PublishEvaluation(ctx, ev); err != nil {
			slog.WarnContext(ctx, "publish evaluation failed", "id", ev.ID, "error", err)
		}
	}
	return ev, nil
}

func (s *EvaluationService) evaluate(ctx context.Context, center domain.GeoPoint) (*domain.Evaluation, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	tracer := otel.Tracer(telemetry.TracerName)

	fetchCtx, span := tracer.Start(ctx, telemetry.SpanFetch)
	features, err := s.fetcher.Fetch(fetchCtx, center, RadiusMeters)
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("osm.roads", len(features.Roads)),
		attribute.Int("osm.buildings", len(features.Buildings)),
	)
	span.End()

	_, span = tracer.Start(ctx, telemetry.SpanAggregate)
	stats, err := Aggregate(features)
	span.End()
	if err != nil {
		return nil, err
	}

	_, span = tracer.Start(ctx, telemetry.SpanClassify)
	cfg := s.table.Classify(stats)
	span.End()

	slog.DebugContext(ctx, "evaluation complete",
		"lat", center.Lat,
		"lon", center.Lon,
		"density", stats.PopulationDensity,
		"area_type", cfg.AreaType,
	)

	return &domain.Evaluation{
		ID:           uuid.NewString(),
		Center:       center,
		RadiusMeters: RadiusMeters,
		Stats:        stats,
		Config:       cfg,
		Source:       s.fetcher.SourceName(),
		EvaluatedAt:  s.now().UTC(),
	}, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidPoint):
		return "invalid_point"
	case errors.Is(err, domain.ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, domain.ErrParse):
		return "parse"
	case errors.Is(err, domain.ErrInternalInvariant):
		return "invariant"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "other"
}
