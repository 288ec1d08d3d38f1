package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/residentia/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AccountService opens accounts and exposes their balance, journal and
// reconciliation. It never changes a balance.
type AccountService struct {
	scope     TransactionScope
	accounts  ledger.AccountStore
	movements ledger.AccountMovementRepository
	cfg       serviceConfig
}

// NewAccountService creates a new AccountService
func NewAccountService(
	scope TransactionScope,
	accounts ledger.AccountStore,
	movements ledger.AccountMovementRepository,
	opts ...ServiceOption,
) *AccountService {
	return &AccountService{
		scope:     scope,
		accounts:  accounts,
		movements: movements,
		cfg:       newServiceConfig(opts),
	}
}

// CreateAccount opens an empty account for a community
func (s *AccountService) CreateAccount(ctx context.Context, cmd NewAccount) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "create")
	defer span.End()

	account, err := ledger.NewAccount(cmd.CommunityID, cmd.Name)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if cmd.ActorID != nil {
		account.SetCreatedBy(*cmd.ActorID)
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Accounts().Create(ctx, account); err != nil {
			return err
		}
		return publish(ctx, repos, account, nil)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	account.ClearDomainEvents()

	s.cfg.logger.Info("account created",
		zap.String("account_id", account.ID.String()),
		zap.String("community_id", account.CommunityID.String()),
	)
	return toAccountResponse(account), nil
}

// GetAccount returns an account of the caller's community
func (s *AccountService) GetAccount(ctx context.Context, communityID, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.accounts.FindByIDForCommunity(ctx, communityID, id)
	if err != nil {
		return nil, err
	}
	return toAccountResponse(account), nil
}

// ListAccounts lists the accounts of a community
func (s *AccountService) ListAccounts(ctx context.Context, q ListQuery) (*shared.Paginated[AccountResponse], error) {
	filter := toFilter(q)
	accounts, total, err := s.accounts.FindAllForCommunity(ctx, q.CommunityID, filter)
	if err != nil {
		return nil, err
	}

	items := make([]AccountResponse, len(accounts))
	for i := range accounts {
		items[i] = *toAccountResponse(&accounts[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListMovements returns the balance journal of an account, newest first
func (s *AccountService) ListMovements(ctx context.Context, communityID, accountID uuid.UUID, q ListQuery) (*shared.Paginated[MovementResponse], error) {
	if _, err := s.accounts.FindByIDForCommunity(ctx, communityID, accountID); err != nil {
		return nil, err
	}

	filter := toFilter(q)
	movements, total, err := s.movements.FindByAccount(ctx, accountID, filter)
	if err != nil {
		return nil, err
	}

	items := make([]MovementResponse, len(movements))
	for i := range movements {
		items[i] = toMovementResponse(&movements[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Reconcile recomputes the balance of an account from its paid payments
// and cashouts and reports any drift from the stored balance
func (s *AccountService) Reconcile(ctx context.Context, communityID, accountID uuid.UUID) (*ledger.Reconciliation, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "reconcile")
	defer span.End()

	var result ledger.Reconciliation
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.Accounts().FindByIDForCommunity(ctx, communityID, accountID)
		if err != nil {
			return err
		}
		paidPayments, err := repos.Payments().SumPaid(ctx, accountID)
		if err != nil {
			return err
		}
		paidCashouts, err := repos.Cashouts().SumPaid(ctx, accountID)
		if err != nil {
			return err
		}
		result = ledger.Reconcile(account, paidPayments, paidCashouts)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !result.Consistent {
		s.cfg.metrics.RecordDrift(ctx, communityID.String())
		s.cfg.logger.Error("account balance drift detected",
			zap.String("account_id", accountID.String()),
			zap.String("balance", result.Balance.String()),
			zap.String("expected", result.Expected.String()),
		)
	}
	return &result, nil
}
