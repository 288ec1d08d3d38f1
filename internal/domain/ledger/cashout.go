package ledger

import (
	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Cashout is an outbound disbursement to a provider. Paid cashouts are
// debited from the owning account and may never overdraw it.
type Cashout struct {
	shared.CommunityAggregateRoot
	Entry
	ReceiptKey string
	ProviderID *uuid.UUID
	ExpenseID  *uuid.UUID
}

// CashoutPatch is an edit to a cashout. Nil fields are left untouched.
type CashoutPatch struct {
	EntryPatch
	ReceiptKey *string
}

// NewCashout creates a cashout against account in the given status and
// returns the balance effect its creation must apply. A cashout created as
// paid carries a zero floor: the store rejects it when the balance cannot
// cover the amount.
func NewCashout(account *Account, title string, amount decimal.Decimal, status Status) (*Cashout, Transition, error) {
	if account == nil {
		return nil, Transition{}, shared.NewDomainError("INVALID_ACCOUNT", "Account is required")
	}
	entry, err := newEntry(account.ID, title, amount, status)
	if err != nil {
		return nil, Transition{}, err
	}

	cashout := &Cashout{
		CommunityAggregateRoot: shared.NewCommunityAggregateRoot(account.CommunityID),
		Entry:                  entry,
	}
	cashout.AddDomainEvent(NewCashoutCreatedEvent(cashout))
	return cashout, DecideCreate(DirectionDebit, status, amount), nil
}

// WithReceipt sets the object key of the uploaded receipt
func (c *Cashout) WithReceipt(key string) *Cashout {
	c.ReceiptKey = key
	return c
}

// WithProvider links the cashout to the provider being paid
func (c *Cashout) WithProvider(providerID uuid.UUID) *Cashout {
	c.ProviderID = &providerID
	return c
}

// WithExpense links the cashout to the expense it settles
func (c *Cashout) WithExpense(expenseID uuid.UUID) *Cashout {
	c.ExpenseID = &expenseID
	return c
}

// Edit applies patch and returns the balance effect to apply to the account
func (c *Cashout) Edit(patch CashoutPatch) (Transition, error) {
	previous := c.Status
	t, err := c.apply(DirectionDebit, patch.EntryPatch)
	if err != nil {
		return Transition{}, err
	}
	if patch.ReceiptKey != nil {
		c.ReceiptKey = *patch.ReceiptKey
	}

	c.Touch()
	if previous != c.Status {
		c.AddDomainEvent(NewCashoutStatusChangedEvent(c, previous, t))
	}
	return t, nil
}
