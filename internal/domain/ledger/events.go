package ledger

import (
	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type names
const (
	AggregateTypeAccount = "Account"
	AggregateTypePayment = "Payment"
	AggregateTypeCashout = "Cashout"
)

// Event type names
const (
	EventTypeAccountCreated        = "AccountCreated"
	EventTypeAccountBalanceChanged = "AccountBalanceChanged"
	EventTypePaymentCreated        = "PaymentCreated"
	EventTypePaymentStatusChanged  = "PaymentStatusChanged"
	EventTypeCashoutCreated        = "CashoutCreated"
	EventTypeCashoutStatusChanged  = "CashoutStatusChanged"
)

// AccountCreatedEvent is raised when a community opens a new account
type AccountCreatedEvent struct {
	shared.BaseDomainEvent
	AccountID uuid.UUID `json:"account_id"`
	Name      string    `json:"name"`
}

// NewAccountCreatedEvent creates a new AccountCreatedEvent
func NewAccountCreatedEvent(a *Account) *AccountCreatedEvent {
	return &AccountCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountCreated, AggregateTypeAccount, a.ID, a.CommunityID),
		AccountID:       a.ID,
		Name:            a.Name,
	}
}

// AccountBalanceChangedEvent is raised after every applied balance delta
type AccountBalanceChangedEvent struct {
	shared.BaseDomainEvent
	AccountID    uuid.UUID       `json:"account_id"`
	SourceType   SourceType      `json:"source_type"`
	SourceID     uuid.UUID       `json:"source_id"`
	Kind         TransitionKind  `json:"kind"`
	Delta        decimal.Decimal `json:"delta"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// NewAccountBalanceChangedEvent creates an event from a journal movement
func NewAccountBalanceChangedEvent(m *AccountMovement) *AccountBalanceChangedEvent {
	return &AccountBalanceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountBalanceChanged, AggregateTypeAccount, m.AccountID, m.CommunityID),
		AccountID:       m.AccountID,
		SourceType:      m.SourceType,
		SourceID:        m.SourceID,
		Kind:            m.Kind,
		Delta:           m.Amount,
		BalanceAfter:    m.BalanceAfter,
	}
}

// PaymentCreatedEvent is raised when a payment is recorded
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	AccountID uuid.UUID       `json:"account_id"`
	Title     string          `json:"title"`
	Amount    decimal.Decimal `json:"amount"`
	Status    Status          `json:"status"`
}

// NewPaymentCreatedEvent creates a new PaymentCreatedEvent
func NewPaymentCreatedEvent(p *Payment) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCreated, AggregateTypePayment, p.ID, p.CommunityID),
		PaymentID:       p.ID,
		AccountID:       p.AccountID,
		Title:           p.Title,
		Amount:          p.Amount,
		Status:          p.Status,
	}
}

// PaymentStatusChangedEvent is raised when a payment moves between statuses
type PaymentStatusChangedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	AccountID uuid.UUID       `json:"account_id"`
	From      Status          `json:"from"`
	To        Status          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Delta     decimal.Decimal `json:"delta"`
}

// NewPaymentStatusChangedEvent creates a new PaymentStatusChangedEvent
func NewPaymentStatusChangedEvent(p *Payment, from Status, t Transition) *PaymentStatusChangedEvent {
	return &PaymentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentStatusChanged, AggregateTypePayment, p.ID, p.CommunityID),
		PaymentID:       p.ID,
		AccountID:       p.AccountID,
		From:            from,
		To:              p.Status,
		Amount:          p.Amount,
		Delta:           t.Delta,
	}
}

// CashoutCreatedEvent is raised when a cashout is recorded
type CashoutCreatedEvent struct {
	shared.BaseDomainEvent
	CashoutID uuid.UUID       `json:"cashout_id"`
	AccountID uuid.UUID       `json:"account_id"`
	Title     string          `json:"title"`
	Amount    decimal.Decimal `json:"amount"`
	Status    Status          `json:"status"`
}

// NewCashoutCreatedEvent creates a new CashoutCreatedEvent
func NewCashoutCreatedEvent(c *Cashout) *CashoutCreatedEvent {
	return &CashoutCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCashoutCreated, AggregateTypeCashout, c.ID, c.CommunityID),
		CashoutID:       c.ID,
		AccountID:       c.AccountID,
		Title:           c.Title,
		Amount:          c.Amount,
		Status:          c.Status,
	}
}

// CashoutStatusChangedEvent is raised when a cashout moves between statuses
type CashoutStatusChangedEvent struct {
	shared.BaseDomainEvent
	CashoutID uuid.UUID       `json:"cashout_id"`
	AccountID uuid.UUID       `json:"account_id"`
	From      Status          `json:"from"`
	To        Status          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Delta     decimal.Decimal `json:"delta"`
}

// NewCashoutStatusChangedEvent creates a new CashoutStatusChangedEvent
func NewCashoutStatusChangedEvent(c *Cashout, from Status, t Transition) *CashoutStatusChangedEvent {
	return &CashoutStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCashoutStatusChanged, AggregateTypeCashout, c.ID, c.CommunityID),
		CashoutID:       c.ID,
		AccountID:       c.AccountID,
		From:            from,
		To:              c.Status,
		Amount:          c.Amount,
		Delta:           t.Delta,
	}
}
