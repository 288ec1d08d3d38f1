package event

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuditLogHandler_LogsBalanceChange(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewAuditLogHandler(zap.New(core))
	communityID := uuid.New()

	require.NoError(t, h.Handle(context.Background(), newBalanceChangedEvent(communityID)))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "ledger event", entry.Message)
	assert.Equal(t, "ledger.audit", entry.LoggerName)

	fields := entry.ContextMap()
	assert.Equal(t, communityID.String(), fields["community_id"])
	assert.Equal(t, "AccountBalanceChanged", fields["event_type"])
	assert.Equal(t, "CASHOUT", fields["source_type"])
	assert.Equal(t, "-60", fields["delta"])
	assert.Equal(t, "40", fields["balance_after"])
}

func TestAuditLogHandler_SubscribesToEverything(t *testing.T) {
	assert.Empty(t, NewAuditLogHandler(zap.NewNop()).EventTypes())
}
