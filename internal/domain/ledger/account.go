package ledger

import (
	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Account is a community-scoped monetary balance. Balance is read-only on
// the aggregate: it only ever changes through AccountStore.ConditionalAdjust.
type Account struct {
	shared.CommunityAggregateRoot
	Name    string
	Balance decimal.Decimal
}

// NewAccount creates an empty account owned by a community
func NewAccount(communityID uuid.UUID, name string) (*Account, error) {
	if communityID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMMUNITY", "Community ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot exceed 100 characters")
	}

	account := &Account{
		CommunityAggregateRoot: shared.NewCommunityAggregateRoot(communityID),
		Name:                   name,
		Balance:                decimal.Zero,
	}
	account.AddDomainEvent(NewAccountCreatedEvent(account))
	return account, nil
}
