// Package stream mirrors registration lifecycle changes onto Kafka for
// downstream tooling (notifications, analytics). The database history
// ledger stays the authoritative audit trail; delivery here is best effort
// and asynchronous.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"compreg/internal/registration/ports"
)

const defaultTopic = "registration-lifecycle"

// Publisher produces lifecycle events to a Kafka topic.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithTopic(topic string) Option {
	return func(p *Publisher) {
		p.topic = topic
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New connects a producer to the given brokers.
func New(brokers []string, opts ...Option) (*Publisher, error) {
	p := &Publisher{
		topic:  defaultTopic,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(p.topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	p.client = client
	return p, nil
}

// Publish produces the event keyed by registration id so per-registration
// ordering is preserved within a partition. Delivery errors are logged via
// the produce callback; the caller already treats this as fire-and-forget.
func (p *Publisher) Publish(ctx context.Context, event ports.LifecycleEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal lifecycle event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.RegistrationID),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.ErrorContext(ctx, "lifecycle event delivery failed",
				"registration_id", event.RegistrationID,
				"action", event.Action,
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
