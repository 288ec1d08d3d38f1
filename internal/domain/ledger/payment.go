package ledger

import (
	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Payment is a resident's inbound payment. Paid payments are credited to
// the owning account.
type Payment struct {
	shared.CommunityAggregateRoot
	Entry
	VoucherKey  string
	ResidenceID *uuid.UUID
	ResidentID  *uuid.UUID
}

// PaymentPatch is an edit to a payment. Nil fields are left untouched.
type PaymentPatch struct {
	EntryPatch
	VoucherKey *string
}

// NewPayment creates a payment against account in the given status and
// returns the balance effect its creation must apply.
func NewPayment(account *Account, title string, amount decimal.Decimal, status Status) (*Payment, Transition, error) {
	if account == nil {
		return nil, Transition{}, shared.NewDomainError("INVALID_ACCOUNT", "Account is required")
	}
	entry, err := newEntry(account.ID, title, amount, status)
	if err != nil {
		return nil, Transition{}, err
	}

	payment := &Payment{
		CommunityAggregateRoot: shared.NewCommunityAggregateRoot(account.CommunityID),
		Entry:                  entry,
	}
	payment.AddDomainEvent(NewPaymentCreatedEvent(payment))
	return payment, DecideCreate(DirectionCredit, status, amount), nil
}

// WithVoucher sets the object key of the uploaded voucher image
func (p *Payment) WithVoucher(key string) *Payment {
	p.VoucherKey = key
	return p
}

// WithResidence links the payment to a residence
func (p *Payment) WithResidence(residenceID uuid.UUID) *Payment {
	p.ResidenceID = &residenceID
	return p
}

// WithResident links the payment to the paying resident
func (p *Payment) WithResident(residentID uuid.UUID) *Payment {
	p.ResidentID = &residentID
	return p
}

// Edit applies patch and returns the balance effect to apply to the account
func (p *Payment) Edit(patch PaymentPatch) (Transition, error) {
	previous := p.Status
	t, err := p.apply(DirectionCredit, patch.EntryPatch)
	if err != nil {
		return Transition{}, err
	}
	if patch.VoucherKey != nil {
		p.VoucherKey = *patch.VoucherKey
	}

	p.Touch()
	if previous != p.Status {
		p.AddDomainEvent(NewPaymentStatusChangedEvent(p, previous, t))
	}
	return t, nil
}
