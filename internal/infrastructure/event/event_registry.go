package event

import (
	"github.com/residentia/backend/internal/domain/ledger"
)

// RegisterLedgerEvents registers the ledger event types with the serializer.
// The outbox processor needs them to rebuild events from stored payloads.
func RegisterLedgerEvents(serializer *EventSerializer) {
	serializer.Register(ledger.EventTypeAccountCreated, &ledger.AccountCreatedEvent{})
	serializer.Register(ledger.EventTypeAccountBalanceChanged, &ledger.AccountBalanceChangedEvent{})

	serializer.Register(ledger.EventTypePaymentCreated, &ledger.PaymentCreatedEvent{})
	serializer.Register(ledger.EventTypePaymentStatusChanged, &ledger.PaymentStatusChangedEvent{})

	serializer.Register(ledger.EventTypeCashoutCreated, &ledger.CashoutCreatedEvent{})
	serializer.Register(ledger.EventTypeCashoutStatusChanged, &ledger.CashoutStatusChangedEvent{})
}

// NewLedgerSerializer returns a serializer with every ledger event registered
func NewLedgerSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterLedgerEvents(s)
	return s
}
