package event

import (
	"context"

	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes one structured log line per relayed ledger event.
// Subscribed to the in-memory bus it gives operators a balance audit trail
// when no broker is configured.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("ledger.audit")}
}

// EventTypes subscribes to every event
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event with the fields relevant to its type
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("community_id", event.CommunityID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *ledger.AccountBalanceChangedEvent:
		fields = append(fields,
			zap.String("source_type", string(e.SourceType)),
			zap.String("source_id", e.SourceID.String()),
			zap.String("kind", string(e.Kind)),
			zap.String("delta", e.Delta.String()),
			zap.String("balance_after", e.BalanceAfter.String()),
		)
	case *ledger.PaymentStatusChangedEvent:
		fields = append(fields,
			zap.String("from", string(e.From)),
			zap.String("to", string(e.To)),
			zap.String("delta", e.Delta.String()),
		)
	case *ledger.CashoutStatusChangedEvent:
		fields = append(fields,
			zap.String("from", string(e.From)),
			zap.String("to", string(e.To)),
			zap.String("delta", e.Delta.String()),
		)
	case *ledger.PaymentCreatedEvent:
		fields = append(fields, zap.String("amount", e.Amount.String()), zap.String("status", string(e.Status)))
	case *ledger.CashoutCreatedEvent:
		fields = append(fields, zap.String("amount", e.Amount.String()), zap.String("status", string(e.Status)))
	}

	h.logger.Info("ledger event", fields...)
	return nil
}

// Ensure AuditLogHandler implements EventHandler
var _ shared.EventHandler = (*AuditLogHandler)(nil)
