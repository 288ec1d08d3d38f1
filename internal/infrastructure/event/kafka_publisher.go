package event

import (
	"context"
	"fmt"

	"github.com/residentia/backend/internal/domain/shared"
	"github.com/residentia/backend/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Kafka header names carried by every relayed event
const (
	HeaderEventType     = "event_type"
	HeaderEventID       = "event_id"
	HeaderCommunityID   = "community_id"
	HeaderAggregateType = "aggregate_type"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventPublisher relays ledger events to a Kafka topic. Messages are
// keyed by aggregate ID so every change of one account, payment or cashout
// lands on the same partition in order.
type KafkaEventPublisher struct {
	writer     MessageWriter
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewKafkaEventPublisher builds a publisher with a kafka.Writer configured from cfg
func NewKafkaEventPublisher(cfg config.KafkaConfig, serializer *EventSerializer, logger *zap.Logger) (*KafkaEventPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}
	return NewKafkaEventPublisherWithWriter(w, serializer, logger), nil
}

// NewKafkaEventPublisherWithWriter wraps an existing writer
func NewKafkaEventPublisherWithWriter(w MessageWriter, serializer *EventSerializer, logger *zap.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: w, serializer: serializer, logger: logger}
}

// Publish writes events as one batch. kafka-go retries transient broker
// errors internally; an error returned here leaves the outbox entries to the
// processor's backoff.
func (p *KafkaEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.AggregateID().String()),
			Value: payload,
			Time:  event.OccurredAt(),
			Headers: []kafka.Header{
				{Key: HeaderEventType, Value: []byte(event.EventType())},
				{Key: HeaderEventID, Value: []byte(event.EventID().String())},
				{Key: HeaderCommunityID, Value: []byte(event.CommunityID().String())},
				{Key: HeaderAggregateType, Value: []byte(event.AggregateType())},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: write %d messages: %w", len(msgs), err)
	}
	p.logger.Debug("events relayed to kafka", zap.Int("count", len(msgs)))
	return nil
}

// Close flushes and closes the writer
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

// Ensure KafkaEventPublisher implements EventPublisher
var _ shared.EventPublisher = (*KafkaEventPublisher)(nil)
