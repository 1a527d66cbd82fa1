package natsadapter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	natsadapter "github.com/samirrijal/nrplanner/internal/adapters/nats"
	"github.com/samirrijal/nrplanner/internal/core/domain"
)

func TestEvaluationSubject(t *testing.T) {
	cases := map[domain.AreaType]string{
		domain.AreaRural:      "nr.evaluations.rural",
		domain.AreaSuburban:   "nr.evaluations.suburban",
		domain.AreaUrban:      "nr.evaluations.urban",
		domain.AreaDenseUrban: "nr.evaluations.dense_urban",
		"":                    "nr.evaluations.unknown",
	}
	for area, want := range cases {
		assert.Equal(t, want, natsadapter.EvaluationSubject(area), "area %q", area)
	}
}
