package osmdata

import (
	"bytes"
	"context"
	"runtime"

	"github.com/paulmach/osm/osmpbf"

	"github.com/samirrijal/nrplanner/internal/core/domain"
)

func decodePBF(ctx context.Context, body []byte) (*domain.FeatureSet, error) {
	scanner := osmpbf.New(ctx, bytes.NewReader(body), runtime.GOMAXPROCS(0))
	defer scanner.Close()

	c := newCollector()
	for scanner.Scan() {
		c.add(scanner.Object())
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.ParseErrorf("osm pbf: %v", err)
	}
	return c.features(), nil
}
