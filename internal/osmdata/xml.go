package osmdata

import (
	"bytes"
	"context"

	"github.com/paulmach/osm/osmxml"

	"github.com/samirrijal/nrplanner/internal/core/domain"
)

func decodeXML(ctx context.Context, body []byte) (*domain.FeatureSet, error) {
	scanner := osmxml.New(ctx, bytes.NewReader(body))
	defer scanner.Close()

	c := newCollector()
	for scanner.Scan() {
		c.add(scanner.Object())
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.ParseErrorf("osm xml: %v", err)
	}
	return c.features(), nil
}
