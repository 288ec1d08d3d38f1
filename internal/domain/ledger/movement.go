package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceType identifies the kind of record that moved a balance
type SourceType string

const (
	SourceTypePayment SourceType = "PAYMENT"
	SourceTypeCashout SourceType = "CASHOUT"
)

// String returns the string representation of SourceType
func (s SourceType) String() string {
	return string(s)
}

// IsValid returns true if the source type is valid
func (s SourceType) IsValid() bool {
	return s == SourceTypePayment || s == SourceTypeCashout
}

// AccountMovement is an immutable journal row written for every non-zero
// balance adjustment, in the same transaction as the adjustment itself.
type AccountMovement struct {
	ID            uuid.UUID
	CommunityID   uuid.UUID
	AccountID     uuid.UUID
	SourceType    SourceType
	SourceID      uuid.UUID
	Kind          TransitionKind
	Amount        decimal.Decimal // signed
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	CreatedBy     *uuid.UUID
	CreatedAt     time.Time
}

// NewAccountMovement records transition t applied to account, where account
// reflects the balance after the adjustment
func NewAccountMovement(account *Account, sourceType SourceType, sourceID uuid.UUID, t Transition) *AccountMovement {
	return &AccountMovement{
		ID:            uuid.New(),
		CommunityID:   account.CommunityID,
		AccountID:     account.ID,
		SourceType:    sourceType,
		SourceID:      sourceID,
		Kind:          t.Kind,
		Amount:        t.Delta,
		BalanceBefore: account.Balance.Sub(t.Delta),
		BalanceAfter:  account.Balance,
		CreatedAt:     time.Now(),
	}
}

// WithCreatedBy sets the actor responsible for the movement
func (m *AccountMovement) WithCreatedBy(userID uuid.UUID) *AccountMovement {
	m.CreatedBy = &userID
	return m
}

// IsIncrease returns true if the movement raised the balance
func (m *AccountMovement) IsIncrease() bool {
	return m.Amount.IsPositive()
}
