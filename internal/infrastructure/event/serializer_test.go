package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerSerializer_RegistersEveryLedgerEvent(t *testing.T) {
	s := NewLedgerSerializer()

	assert.Equal(t, []string{
		ledger.EventTypeAccountBalanceChanged,
		ledger.EventTypeAccountCreated,
		ledger.EventTypeCashoutCreated,
		ledger.EventTypeCashoutStatusChanged,
		ledger.EventTypePaymentCreated,
		ledger.EventTypePaymentStatusChanged,
	}, s.RegisteredTypes())
}

func TestEventSerializer_RoundTripKeepsDecimalsAndEnvelope(t *testing.T) {
	s := NewLedgerSerializer()
	communityID := uuid.New()
	event := newBalanceChangedEvent(communityID)

	data, err := s.Serialize(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"delta":"-60"`)

	decoded, err := s.Deserialize(ledger.EventTypeAccountBalanceChanged, data)
	require.NoError(t, err)

	got, ok := decoded.(*ledger.AccountBalanceChangedEvent)
	require.True(t, ok)
	assert.Equal(t, event.EventID(), got.EventID())
	assert.Equal(t, communityID, got.CommunityID())
	assert.Equal(t, ledger.AggregateTypeAccount, got.AggregateType())
	assert.True(t, got.Delta.Equal(decimal.NewFromInt(-60)))
	assert.True(t, got.BalanceAfter.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, ledger.TransitionApply, got.Kind)
}

func TestEventSerializer_Deserialize_Errors(t *testing.T) {
	s := NewLedgerSerializer()

	_, err := s.Deserialize("InvoiceIssued", []byte(`{}`))
	assert.ErrorContains(t, err, "unknown event type")

	_, err = s.Deserialize(ledger.EventTypePaymentCreated, []byte(`{not json`))
	assert.ErrorContains(t, err, "failed to unmarshal")
}

func TestEventSerializer_IsRegistered(t *testing.T) {
	s := NewEventSerializer()
	assert.False(t, s.IsRegistered(ledger.EventTypePaymentCreated))

	s.Register(ledger.EventTypePaymentCreated, &ledger.PaymentCreatedEvent{})
	assert.True(t, s.IsRegistered(ledger.EventTypePaymentCreated))
}
