package ports

import (
	"context"

	"github.com/samirrijal/nrplanner/internal/core/domain"
)

// MapSource produces the raw OSM payload covering a bounding region.
// Implementations must not mutate their backing data and must report a
// region they cannot serve as domain.ErrDataUnavailable.
type MapSource interface {
	Name() string
	Fetch(ctx context.Context, region domain.BoundingRegion) (*domain.RawMapData, error)
}

// EvaluationPublisher broadcasts completed evaluations to a message broker.
type EvaluationPublisher interface {
	PublishEvaluation(ctx context.Context, ev *domain.Evaluation) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
