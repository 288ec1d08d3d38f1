package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const maxTitleLength = 200

// MaxAmount is the exclusive upper bound of an entry amount. Amounts are
// stored as NUMERIC(18,4).
var MaxAmount = decimal.New(1, 14)

// Entry holds the ledger-relevant state common to payments and cashouts
type Entry struct {
	AccountID uuid.UUID
	Title     string
	Amount    decimal.Decimal
	Status    Status
	PaidAt    *time.Time
}

// EntryPatch is an edit to an Entry. Nil fields are left untouched.
type EntryPatch struct {
	Title  *string
	Amount *decimal.Decimal
	Status *Status
}

// IsEmpty reports whether the patch changes nothing
func (p EntryPatch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Status == nil
}

func newEntry(accountID uuid.UUID, title string, amount decimal.Decimal, status Status) (Entry, error) {
	if accountID == uuid.Nil {
		return Entry{}, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if err := validateTitle(title); err != nil {
		return Entry{}, err
	}
	if err := validateAmount(amount); err != nil {
		return Entry{}, err
	}
	if !status.IsValid() {
		return Entry{}, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown status %q", status))
	}

	e := Entry{
		AccountID: accountID,
		Title:     title,
		Amount:    amount,
		Status:    status,
	}
	if status.IsPaid() {
		now := time.Now()
		e.PaidAt = &now
	}
	return e, nil
}

// apply validates and applies patch, returning the balance effect decided
// for direction. The amount is frozen while the entry is paid, so the delta
// is always computed from the amount that ends up stored: a Pending->Paid
// edit that also changes the amount moves the new amount, and a reversal
// moves exactly what was applied.
func (e *Entry) apply(direction Direction, patch EntryPatch) (Transition, error) {
	next := e.Status
	if patch.Status != nil {
		if !patch.Status.IsValid() {
			return Transition{}, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown status %q", *patch.Status))
		}
		next = *patch.Status
	}

	amount := e.Amount
	if patch.Amount != nil && !patch.Amount.Equal(e.Amount) {
		if err := validateAmount(*patch.Amount); err != nil {
			return Transition{}, err
		}
		if e.Status.IsPaid() {
			return Transition{}, shared.NewDomainError(shared.CodeInvalidState,
				"Amount cannot change while paid, move the record back to pending first")
		}
		amount = *patch.Amount
	}

	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return Transition{}, err
		}
		e.Title = *patch.Title
	}

	t := Decide(direction, e.Status, next, amount)
	e.Amount = amount
	e.Status = next
	switch t.Kind {
	case TransitionApply:
		now := time.Now()
		e.PaidAt = &now
	case TransitionReverse:
		e.PaidAt = nil
	}
	return t, nil
}

func validateTitle(title string) error {
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Title cannot be empty")
	}
	if len(title) > maxTitleLength {
		return shared.NewDomainError("INVALID_TITLE", fmt.Sprintf("Title cannot exceed %d characters", maxTitleLength))
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if amount.GreaterThanOrEqual(MaxAmount) {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount must be less than 100000000000000")
	}
	if amount.Exponent() < -4 {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount cannot have more than 4 decimal places")
	}
	return nil
}
