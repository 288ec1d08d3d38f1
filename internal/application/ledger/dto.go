package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// Commands arrive already validated by the calling layer; the services only
// enforce business rules (existence, community scoping, sufficiency).

// NewAccount is the command to open a community account
type NewAccount struct {
	CommunityID uuid.UUID  `json:"community_id" validate:"required"`
	Name        string     `json:"name" validate:"required,max=100"`
	ActorID     *uuid.UUID `json:"actor_id,omitempty"`
}

// NewPayment is the command to record a payment
type NewPayment struct {
	CommunityID    uuid.UUID       `json:"community_id" validate:"required"`
	AccountID      uuid.UUID       `json:"account_id" validate:"required"`
	Title          string          `json:"title" validate:"required,max=200"`
	Amount         decimal.Decimal `json:"amount"`
	Status         ledger.Status   `json:"status" validate:"omitempty,oneof=PENDING PAID"`
	VoucherKey     string          `json:"voucher_key,omitempty" validate:"max=512"`
	ResidenceID    *uuid.UUID      `json:"residence_id,omitempty"`
	ResidentID     *uuid.UUID      `json:"resident_id,omitempty"`
	ActorID        *uuid.UUID      `json:"actor_id,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" validate:"max=128"`
}

// EditPayment is the command to edit a payment. Nil fields are left untouched.
type EditPayment struct {
	CommunityID uuid.UUID        `json:"community_id" validate:"required"`
	ID          uuid.UUID        `json:"id" validate:"required"`
	Title       *string          `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Status      *ledger.Status   `json:"status,omitempty" validate:"omitempty,oneof=PENDING PAID"`
	VoucherKey  *string          `json:"voucher_key,omitempty" validate:"omitempty,max=512"`
	ActorID     *uuid.UUID       `json:"actor_id,omitempty"`
}

// NewCashout is the command to record a cashout
type NewCashout struct {
	CommunityID    uuid.UUID       `json:"community_id" validate:"required"`
	AccountID      uuid.UUID       `json:"account_id" validate:"required"`
	Title          string          `json:"title" validate:"required,max=200"`
	Amount         decimal.Decimal `json:"amount"`
	Status         ledger.Status   `json:"status" validate:"omitempty,oneof=PENDING PAID"`
	ReceiptKey     string          `json:"receipt_key,omitempty" validate:"max=512"`
	ProviderID     *uuid.UUID      `json:"provider_id,omitempty"`
	ExpenseID      *uuid.UUID      `json:"expense_id,omitempty"`
	ActorID        *uuid.UUID      `json:"actor_id,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" validate:"max=128"`
}

// EditCashout is the command to edit a cashout. Nil fields are left untouched.
type EditCashout struct {
	CommunityID uuid.UUID        `json:"community_id" validate:"required"`
	ID          uuid.UUID        `json:"id" validate:"required"`
	Title       *string          `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Status      *ledger.Status   `json:"status,omitempty" validate:"omitempty,oneof=PENDING PAID"`
	ReceiptKey  *string          `json:"receipt_key,omitempty" validate:"omitempty,max=512"`
	ActorID     *uuid.UUID       `json:"actor_id,omitempty"`
}

// ListQuery selects a page of community-scoped records
type ListQuery struct {
	CommunityID uuid.UUID      `json:"community_id" validate:"required"`
	AccountID   *uuid.UUID     `json:"account_id,omitempty"`
	Status      *ledger.Status `json:"status,omitempty" validate:"omitempty,oneof=PENDING PAID"`
	Page        int            `json:"page" validate:"gte=0"`
	PageSize    int            `json:"page_size" validate:"gte=0,lte=200"`
}

// AccountResponse is the presentation view of an account
type AccountResponse struct {
	ID          uuid.UUID       `json:"id"`
	CommunityID uuid.UUID       `json:"community_id"`
	Name        string          `json:"name"`
	Balance     decimal.Decimal `json:"balance"`
	Version     int             `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PaymentResponse is the presentation view of a payment
type PaymentResponse struct {
	ID          uuid.UUID       `json:"id"`
	CommunityID uuid.UUID       `json:"community_id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Status      ledger.Status   `json:"status"`
	VoucherKey  string          `json:"voucher_key,omitempty"`
	ResidenceID *uuid.UUID      `json:"residence_id,omitempty"`
	ResidentID  *uuid.UUID      `json:"resident_id,omitempty"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedBy   *uuid.UUID      `json:"created_by,omitempty"`
	Version     int             `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CashoutResponse is the presentation view of a cashout
type CashoutResponse struct {
	ID          uuid.UUID       `json:"id"`
	CommunityID uuid.UUID       `json:"community_id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Status      ledger.Status   `json:"status"`
	ReceiptKey  string          `json:"receipt_key,omitempty"`
	ProviderID  *uuid.UUID      `json:"provider_id,omitempty"`
	ExpenseID   *uuid.UUID      `json:"expense_id,omitempty"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedBy   *uuid.UUID      `json:"created_by,omitempty"`
	Version     int             `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MovementResponse is the presentation view of a journal row
type MovementResponse struct {
	ID            uuid.UUID             `json:"id"`
	AccountID     uuid.UUID             `json:"account_id"`
	SourceType    ledger.SourceType     `json:"source_type"`
	SourceID      uuid.UUID             `json:"source_id"`
	Kind          ledger.TransitionKind `json:"kind"`
	Amount        decimal.Decimal       `json:"amount"`
	BalanceBefore decimal.Decimal       `json:"balance_before"`
	BalanceAfter  decimal.Decimal       `json:"balance_after"`
	CreatedBy     *uuid.UUID            `json:"created_by,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

func toAccountResponse(a *ledger.Account) *AccountResponse {
	return &AccountResponse{
		ID:          a.ID,
		CommunityID: a.CommunityID,
		Name:        a.Name,
		Balance:     a.Balance,
		Version:     a.Version,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toPaymentResponse(p *ledger.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:          p.ID,
		CommunityID: p.CommunityID,
		AccountID:   p.AccountID,
		Title:       p.Title,
		Amount:      p.Amount,
		Status:      p.Status,
		VoucherKey:  p.VoucherKey,
		ResidenceID: p.ResidenceID,
		ResidentID:  p.ResidentID,
		PaidAt:      p.PaidAt,
		CreatedBy:   p.CreatedBy,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toCashoutResponse(c *ledger.Cashout) *CashoutResponse {
	return &CashoutResponse{
		ID:          c.ID,
		CommunityID: c.CommunityID,
		AccountID:   c.AccountID,
		Title:       c.Title,
		Amount:      c.Amount,
		Status:      c.Status,
		ReceiptKey:  c.ReceiptKey,
		ProviderID:  c.ProviderID,
		ExpenseID:   c.ExpenseID,
		PaidAt:      c.PaidAt,
		CreatedBy:   c.CreatedBy,
		Version:     c.Version,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toMovementResponse(m *ledger.AccountMovement) MovementResponse {
	return MovementResponse{
		ID:            m.ID,
		AccountID:     m.AccountID,
		SourceType:    m.SourceType,
		SourceID:      m.SourceID,
		Kind:          m.Kind,
		Amount:        m.Amount,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
	}
}
