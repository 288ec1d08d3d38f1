package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for the Account aggregate root
type AccountModel struct {
	AggregateModel
	CommunityID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name        string          `gorm:"type:varchar(100);not null"`
	Balance     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *ledger.Account {
	return &ledger.Account{
		CommunityAggregateRoot: m.toCommunityAggregateRoot(m.CommunityID),
		Name:                   m.Name,
		Balance:                m.Balance,
	}
}

// AccountModelFromDomain creates a persistence model from a domain Account
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{
		CommunityID: a.CommunityID,
		Name:        a.Name,
		Balance:     a.Balance,
	}
	m.fromCommunityAggregateRoot(a.CommunityAggregateRoot)
	return m
}

// EntryColumns are the columns shared by payments and cashouts. Payments
// and cashouts carry no community column: they belong to a community
// through their account, and CommunityID is only ever read from a join.
type EntryColumns struct {
	AggregateModel
	AccountID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title       string          `gorm:"type:varchar(200);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status      ledger.Status   `gorm:"type:varchar(20);not null;default:PENDING;index"`
	PaidAt      *time.Time
	CommunityID uuid.UUID `gorm:"->;-:migration"`
}

func (m *EntryColumns) toEntry() ledger.Entry {
	return ledger.Entry{
		AccountID: m.AccountID,
		Title:     m.Title,
		Amount:    m.Amount,
		Status:    m.Status,
		PaidAt:    m.PaidAt,
	}
}

func (m *EntryColumns) fromEntry(e ledger.Entry) {
	m.AccountID = e.AccountID
	m.Title = e.Title
	m.Amount = e.Amount
	m.Status = e.Status
	m.PaidAt = e.PaidAt
}

// PaymentModel is the persistence model for the Payment aggregate root
type PaymentModel struct {
	EntryColumns
	VoucherKey  string     `gorm:"type:varchar(512)"`
	ResidenceID *uuid.UUID `gorm:"type:uuid"`
	ResidentID  *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *ledger.Payment {
	return &ledger.Payment{
		CommunityAggregateRoot: m.toCommunityAggregateRoot(m.CommunityID),
		Entry:                  m.toEntry(),
		VoucherKey:             m.VoucherKey,
		ResidenceID:            m.ResidenceID,
		ResidentID:             m.ResidentID,
	}
}

// PaymentModelFromDomain creates a persistence model from a domain Payment
func PaymentModelFromDomain(p *ledger.Payment) *PaymentModel {
	m := &PaymentModel{
		VoucherKey:  p.VoucherKey,
		ResidenceID: p.ResidenceID,
		ResidentID:  p.ResidentID,
	}
	m.fromCommunityAggregateRoot(p.CommunityAggregateRoot)
	m.fromEntry(p.Entry)
	return m
}

// CashoutModel is the persistence model for the Cashout aggregate root
type CashoutModel struct {
	EntryColumns
	ReceiptKey string     `gorm:"type:varchar(512)"`
	ProviderID *uuid.UUID `gorm:"type:uuid"`
	ExpenseID  *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (CashoutModel) TableName() string {
	return "cashouts"
}

// ToDomain converts the persistence model to a domain Cashout
func (m *CashoutModel) ToDomain() *ledger.Cashout {
	return &ledger.Cashout{
		CommunityAggregateRoot: m.toCommunityAggregateRoot(m.CommunityID),
		Entry:                  m.toEntry(),
		ReceiptKey:             m.ReceiptKey,
		ProviderID:             m.ProviderID,
		ExpenseID:              m.ExpenseID,
	}
}

// CashoutModelFromDomain creates a persistence model from a domain Cashout
func CashoutModelFromDomain(c *ledger.Cashout) *CashoutModel {
	m := &CashoutModel{
		ReceiptKey: c.ReceiptKey,
		ProviderID: c.ProviderID,
		ExpenseID:  c.ExpenseID,
	}
	m.fromCommunityAggregateRoot(c.CommunityAggregateRoot)
	m.fromEntry(c.Entry)
	return m
}

// AccountMovementModel is the persistence model for the balance journal.
// Rows are insert-only.
type AccountMovementModel struct {
	ID            uuid.UUID             `gorm:"type:uuid;primaryKey"`
	CommunityID   uuid.UUID             `gorm:"type:uuid;not null;index"`
	AccountID     uuid.UUID             `gorm:"type:uuid;not null;index:idx_movement_account_created,priority:1"`
	SourceType    ledger.SourceType     `gorm:"type:varchar(20);not null"`
	SourceID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	Kind          ledger.TransitionKind `gorm:"type:varchar(20);not null"`
	Amount        decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	BalanceBefore decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	CreatedBy     *uuid.UUID            `gorm:"type:uuid"`
	CreatedAt     time.Time             `gorm:"not null;index:idx_movement_account_created,priority:2"`
}

// TableName returns the table name for GORM
func (AccountMovementModel) TableName() string {
	return "account_movements"
}

// ToDomain converts the persistence model to a domain AccountMovement
func (m *AccountMovementModel) ToDomain() ledger.AccountMovement {
	return ledger.AccountMovement{
		ID:            m.ID,
		CommunityID:   m.CommunityID,
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

// AccountMovementModelFromDomain creates a persistence model from a domain AccountMovement
func AccountMovementModelFromDomain(mv *ledger.AccountMovement) *AccountMovementModel {
	return &AccountMovementModel{
		ID:            mv.ID,
		CommunityID:   mv.CommunityID,
		AccountID:     mv.AccountID,
		SourceType:    mv.SourceType,
		SourceID:      mv.SourceID,
		Kind:          mv.Kind,
		Amount:        mv.Amount,
		BalanceBefore: mv.BalanceBefore,
		BalanceAfter:  mv.BalanceAfter,
		CreatedBy:     mv.CreatedBy,
		CreatedAt:     mv.CreatedAt,
	}
}

// LedgerModels lists the models owned by the ledger, in dependency order,
// for AutoMigrate in tests and local sqlite runs
func LedgerModels() []any {
	return []any{
		&AccountModel{},
		&PaymentModel{},
		&CashoutModel{},
		&AccountMovementModel{},
		&OutboxEntryModel{},
	}
}
