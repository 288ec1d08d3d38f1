package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AccountStore owns every mutation of an account balance
type AccountStore interface {
	Create(ctx context.Context, account *Account) error

	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByIDForCommunity returns shared.ErrNotFound when the account
	// exists but belongs to another community
	FindByIDForCommunity(ctx context.Context, communityID, id uuid.UUID) (*Account, error)

	FindAllForCommunity(ctx context.Context, communityID uuid.UUID, filter shared.Filter) ([]Account, int64, error)

	// ConditionalAdjust adds delta to the balance in one atomic statement.
	// When requiredMinimumAfter is set the adjustment only happens if
	// balance + delta >= *requiredMinimumAfter. It returns the account as
	// it is after the adjustment, shared.ErrNotFound when the account does
	// not exist and shared.ErrInsufficientFunds when the floor check fails.
	ConditionalAdjust(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal, requiredMinimumAfter *decimal.Decimal) (*Account, error)
}

// PaymentFilter scopes payment listings to a community
type PaymentFilter struct {
	shared.Filter
	CommunityID uuid.UUID
	AccountID   *uuid.UUID
	Status      *Status
}

// PaymentRepository persists payments
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error

	// FindByIDForCommunity scopes the lookup through the owning account
	FindByIDForCommunity(ctx context.Context, communityID, id uuid.UUID) (*Payment, error)

	FindAll(ctx context.Context, filter PaymentFilter) ([]Payment, int64, error)

	// SaveWithLock persists an edited payment only if the stored version is
	// the one it was loaded with, returning shared.ErrConflict otherwise
	SaveWithLock(ctx context.Context, payment *Payment) error

	// SumPaid totals the amount of paid payments for an account
	SumPaid(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

// CashoutFilter scopes cashout listings to a community
type CashoutFilter struct {
	shared.Filter
	CommunityID uuid.UUID
	AccountID   *uuid.UUID
	Status      *Status
}

// CashoutRepository persists cashouts
type CashoutRepository interface {
	Create(ctx context.Context, cashout *Cashout) error
	FindByIDForCommunity(ctx context.Context, communityID, id uuid.UUID) (*Cashout, error)
	FindAll(ctx context.Context, filter CashoutFilter) ([]Cashout, int64, error)
	SaveWithLock(ctx context.Context, cashout *Cashout) error
	SumPaid(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

// AccountMovementRepository persists the balance journal
type AccountMovementRepository interface {
	Create(ctx context.Context, movement *AccountMovement) error
	FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]AccountMovement, int64, error)
}
