package event

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/residentia/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newBalanceChangedEvent(communityID uuid.UUID) *ledger.AccountBalanceChangedEvent {
	return ledger.NewAccountBalanceChangedEvent(&ledger.AccountMovement{
		ID:           uuid.New(),
		CommunityID:  communityID,
		AccountID:    uuid.New(),
		SourceType:   ledger.SourceTypeCashout,
		SourceID:     uuid.New(),
		Kind:         ledger.TransitionApply,
		Amount:       decimal.NewFromInt(-60),
		BalanceAfter: decimal.NewFromInt(40),
		CreatedAt:    time.Now(),
	})
}

func newPendingEntry(t *testing.T, s *EventSerializer, communityID uuid.UUID) *shared.OutboxEntry {
	t.Helper()
	event := newBalanceChangedEvent(communityID)
	payload, err := s.Serialize(event)
	require.NoError(t, err)
	return shared.NewOutboxEntry(event, payload)
}

// openOutboxDB opens a private in-memory sqlite database with the outbox table
func openOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.OutboxEntryModel{}))
	return db
}
