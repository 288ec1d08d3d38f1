package ledger

import (
	"context"

	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
)

// TransactionScope runs ledger work in one database transaction.
// If fn returns an error every write made through repos is rolled back,
// including balance adjustments, journal rows and outbox events.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to the ledger repositories bound to
// the current transaction.
//
//   - Accounts is the only path through which a balance may change.
//   - Movements is append-only.
//   - Events writes to the transactional outbox; nothing leaves the process
//     until the transaction commits and the relay picks the rows up.
type TransactionalRepositories interface {
	Accounts() ledger.AccountStore
	Payments() ledger.PaymentRepository
	Cashouts() ledger.CashoutRepository
	Movements() ledger.AccountMovementRepository
	Events() shared.EventPublisher
}

// NoOpTransactionScope hands out plain repositories without a transaction.
// Tests use it with mocked repositories.
type NoOpTransactionScope struct {
	accounts  ledger.AccountStore
	payments  ledger.PaymentRepository
	cashouts  ledger.CashoutRepository
	movements ledger.AccountMovementRepository
	events    shared.EventPublisher
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(
	accounts ledger.AccountStore,
	payments ledger.PaymentRepository,
	cashouts ledger.CashoutRepository,
	movements ledger.AccountMovementRepository,
	events shared.EventPublisher,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		accounts:  accounts,
		payments:  payments,
		cashouts:  cashouts,
		movements: movements,
		events:    events,
	}
}

// Execute runs fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Accounts() ledger.AccountStore               { return s.accounts }
func (s *NoOpTransactionScope) Payments() ledger.PaymentRepository          { return s.payments }
func (s *NoOpTransactionScope) Cashouts() ledger.CashoutRepository          { return s.cashouts }
func (s *NoOpTransactionScope) Movements() ledger.AccountMovementRepository { return s.movements }

// Events returns the configured publisher, or one that drops events
func (s *NoOpTransactionScope) Events() shared.EventPublisher {
	if s.events == nil {
		return discardPublisher{}
	}
	return s.events
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, ...shared.DomainEvent) error { return nil }

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
