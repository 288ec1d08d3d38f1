package persistence

import (
	"context"

	appledger "github.com/residentia/backend/internal/application/ledger"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormLedgerTransactionScope implements appledger.TransactionScope using GORM
// transactions. Balance updates, entry writes, journal rows and outbox rows
// made inside Execute commit or roll back together.
type GormLedgerTransactionScope struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormLedgerTransactionScope creates a new GormLedgerTransactionScope.
// outbox may be nil, in which case events are dropped.
func NewGormLedgerTransactionScope(db *gorm.DB, outbox shared.OutboxEventSaver) *GormLedgerTransactionScope {
	return &GormLedgerTransactionScope{db: db, outbox: outbox}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormLedgerTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormLedgerRepositories{tx: tx, outbox: s.outbox})
	})
}

// gormLedgerRepositories provides access to the ledger repositories within a transaction
type gormLedgerRepositories struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

func (r *gormLedgerRepositories) Accounts() ledger.AccountStore {
	return NewGormAccountStore(r.tx)
}

func (r *gormLedgerRepositories) Payments() ledger.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormLedgerRepositories) Cashouts() ledger.CashoutRepository {
	return NewGormCashoutRepository(r.tx)
}

func (r *gormLedgerRepositories) Movements() ledger.AccountMovementRepository {
	return NewGormAccountMovementRepository(r.tx)
}

// Events returns a publisher that writes to the outbox inside the transaction
func (r *gormLedgerRepositories) Events() shared.EventPublisher {
	return txOutboxPublisher{tx: r.tx, outbox: r.outbox}
}

type txOutboxPublisher struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

func (p txOutboxPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if p.outbox == nil || len(events) == 0 {
		return nil
	}
	return p.outbox.SaveEvents(ctx, p.tx, events...)
}

var (
	_ appledger.TransactionScope          = (*GormLedgerTransactionScope)(nil)
	_ appledger.TransactionalRepositories = (*gormLedgerRepositories)(nil)
)
