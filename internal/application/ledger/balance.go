package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
)

// moveBalance routes a decided transition through the account store and
// journals the result. It returns nil for no-op transitions.
func moveBalance(
	ctx context.Context,
	repos TransactionalRepositories,
	accountID uuid.UUID,
	source ledger.SourceType,
	sourceID uuid.UUID,
	t ledger.Transition,
	actorID *uuid.UUID,
) (*ledger.AccountMovement, error) {
	if t.IsNoop() {
		return nil, nil
	}

	account, err := repos.Accounts().ConditionalAdjust(ctx, accountID, t.Delta, t.Floor)
	if err != nil {
		return nil, err
	}

	movement := ledger.NewAccountMovement(account, source, sourceID, t)
	if actorID != nil {
		movement.WithCreatedBy(*actorID)
	}
	if err := repos.Movements().Create(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

// publish writes the aggregate events plus the balance change, if any, to
// the outbox of the current transaction
func publish(ctx context.Context, repos TransactionalRepositories, aggregate shared.AggregateRoot, movement *ledger.AccountMovement) error {
	events := append([]shared.DomainEvent{}, aggregate.GetDomainEvents()...)
	if movement != nil {
		events = append(events, ledger.NewAccountBalanceChangedEvent(movement))
	}
	if len(events) == 0 {
		return nil
	}
	return repos.Events().Publish(ctx, events...)
}

func toFilter(q ListQuery) shared.Filter {
	f := shared.DefaultFilter()
	f.Page = q.Page
	f.PageSize = q.PageSize
	return f.Normalize()
}
