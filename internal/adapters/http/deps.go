package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/nrplanner/internal/adapters/postgres"
	"github.com/samirrijal/nrplanner/internal/adapters/valkey"
	"github.com/samirrijal/nrplanner/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers. Only
// Evaluations is required; the rest are optional infrastructure.
type Dependencies struct {
	Evaluations *usecases.EvaluationService
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
	Version     string
}
