package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/nrplanner/internal/core/domain"
)

const (
	// StreamName retains recent evaluations for late subscribers.
	StreamName = "NR_EVALUATIONS"
	// SubjectPrefix is followed by the area type slug.
	SubjectPrefix = "nr.evaluations."
	// SubjectAll matches every evaluation subject.
	SubjectAll = SubjectPrefix + ">"
)

// Publisher implements ports.EvaluationPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the evaluation stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectAll},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishEvaluation publishes ev on the subject of its area type.
func (p *Publisher) PublishEvaluation(ctx context.Context, ev *domain.Evaluation) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(EvaluationSubject(ev.Config.AreaType), data, nats.Context(ctx), nats.MsgId(ev.ID))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// EvaluationSubject returns the subject evaluations of area are published on,
// e.g. "nr.evaluations.dense_urban".
func EvaluationSubject(area domain.AreaType) string {
	slug := strings.ToLower(strings.ReplaceAll(string(area), "-", "_"))
	if slug == "" {
		slug = "unknown"
	}
	return SubjectPrefix + slug
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("nrplanner"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
