package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaEventPublisher_KeysByAggregateWithHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaEventPublisherWithWriter(w, NewLedgerSerializer(), zap.NewNop())
	communityID := uuid.New()
	event := newBalanceChangedEvent(communityID)

	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, event.AggregateID().String(), string(msg.Key))
	assert.Equal(t, ledger.EventTypeAccountBalanceChanged, header(msg, HeaderEventType))
	assert.Equal(t, event.EventID().String(), header(msg, HeaderEventID))
	assert.Equal(t, communityID.String(), header(msg, HeaderCommunityID))
	assert.Equal(t, ledger.AggregateTypeAccount, header(msg, HeaderAggregateType))
	assert.Contains(t, string(msg.Value), `"balance_after":"40"`)
}

func TestKafkaEventPublisher_WriteErrorIsWrapped(t *testing.T) {
	cause := errors.New("leader not available")
	p := NewKafkaEventPublisherWithWriter(&fakeWriter{err: cause}, NewLedgerSerializer(), zap.NewNop())

	err := p.Publish(context.Background(), newBalanceChangedEvent(uuid.New()))
	assert.ErrorIs(t, err, cause)
}

func TestKafkaEventPublisher_EmptyBatchAndClose(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaEventPublisherWithWriter(w, NewLedgerSerializer(), zap.NewNop())

	require.NoError(t, p.Publish(context.Background()))
	assert.Empty(t, w.msgs)
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaEventPublisher_Validation(t *testing.T) {
	_, err := NewKafkaEventPublisher(config.KafkaConfig{Topic: "ledger.events"}, NewLedgerSerializer(), zap.NewNop())
	assert.ErrorContains(t, err, "no brokers")

	_, err = NewKafkaEventPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, NewLedgerSerializer(), zap.NewNop())
	assert.ErrorContains(t, err, "topic is required")

	p, err := NewKafkaEventPublisher(config.KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        "ledger.events",
		RequiredAcks: -1,
	}, NewLedgerSerializer(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, p.Close())
}
