package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/residentia/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CashoutService creates and edits cashouts. Paying a cashout debits the
// owning account and fails with shared.ErrInsufficientFunds when the
// balance cannot cover it at that moment.
type CashoutService struct {
	scope    TransactionScope
	cashouts ledger.CashoutRepository
	cfg      serviceConfig
}

// NewCashoutService creates a new CashoutService
func NewCashoutService(scope TransactionScope, cashouts ledger.CashoutRepository, opts ...ServiceOption) *CashoutService {
	return &CashoutService{
		scope:    scope,
		cashouts: cashouts,
		cfg:      newServiceConfig(opts),
	}
}

// CreateCashout records a cashout. A cashout created as paid is only
// inserted if the account balance covers the amount.
func (s *CashoutService) CreateCashout(ctx context.Context, cmd NewCashout) (*CashoutResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashout", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCommunityID, cmd.CommunityID.String(),
		telemetry.SpanAttrAccountID, cmd.AccountID.String(),
		telemetry.SpanAttrAmount, cmd.Amount.String(),
	)

	release, err := s.cfg.claimIdempotencyKey(ctx, "cashout", cmd.CommunityID, cmd.IdempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	status := cmd.Status
	if status == "" {
		status = ledger.StatusPending
	}

	var cashout *ledger.Cashout
	var movement *ledger.AccountMovement
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.Accounts().FindByIDForCommunity(ctx, cmd.CommunityID, cmd.AccountID)
		if err != nil {
			return err
		}

		c, transition, err := ledger.NewCashout(account, cmd.Title, cmd.Amount, status)
		if err != nil {
			return err
		}
		c.WithReceipt(cmd.ReceiptKey)
		if cmd.ProviderID != nil {
			c.WithProvider(*cmd.ProviderID)
		}
		if cmd.ExpenseID != nil {
			c.WithExpense(*cmd.ExpenseID)
		}
		if cmd.ActorID != nil {
			c.SetCreatedBy(*cmd.ActorID)
		}

		movement, err = moveBalance(ctx, repos, c.AccountID, ledger.SourceTypeCashout, c.ID, transition, cmd.ActorID)
		if err != nil {
			return err
		}
		if err := repos.Cashouts().Create(ctx, c); err != nil {
			return err
		}
		if err := publish(ctx, repos, c, movement); err != nil {
			return err
		}
		cashout = c
		return nil
	})
	if err != nil {
		release()
		telemetry.RecordError(span, err)
		s.cfg.metrics.RecordRejection(ctx, string(ledger.SourceTypeCashout), shared.CodeOf(err))
		logRejected(s.cfg.logger, "create cashout rejected", err, zap.String("account_id", cmd.AccountID.String()))
		return nil, err
	}

	cashout.ClearDomainEvents()
	s.recordMovement(ctx, movement)
	s.cfg.logger.Info("cashout created",
		zap.String("cashout_id", cashout.ID.String()),
		zap.String("account_id", cashout.AccountID.String()),
		zap.String("status", cashout.Status.String()),
		zap.String("amount", cashout.Amount.String()),
	)
	telemetry.SetOK(span)
	return toCashoutResponse(cashout), nil
}

// EditCashout applies a patch to a cashout of the caller's community.
// Pending->Paid re-checks sufficiency inside the conditional balance
// update; Paid->Pending always returns the funds.
func (s *CashoutService) EditCashout(ctx context.Context, cmd EditCashout) (*CashoutResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashout", "edit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCommunityID, cmd.CommunityID.String(),
		telemetry.SpanAttrCashoutID, cmd.ID.String(),
	)

	patch := ledger.CashoutPatch{
		EntryPatch: ledger.EntryPatch{Title: cmd.Title, Amount: cmd.Amount, Status: cmd.Status},
		ReceiptKey: cmd.ReceiptKey,
	}

	var cashout *ledger.Cashout
	var movement *ledger.AccountMovement
	var previous ledger.Status
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := repos.Cashouts().FindByIDForCommunity(ctx, cmd.CommunityID, cmd.ID)
		if err != nil {
			return err
		}
		previous = c.Status

		transition, err := c.Edit(patch)
		if err != nil {
			return err
		}

		movement, err = moveBalance(ctx, repos, c.AccountID, ledger.SourceTypeCashout, c.ID, transition, cmd.ActorID)
		if err != nil {
			return err
		}
		if err := repos.Cashouts().SaveWithLock(ctx, c); err != nil {
			return err
		}
		if err := publish(ctx, repos, c, movement); err != nil {
			return err
		}
		cashout = c
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.cfg.metrics.RecordRejection(ctx, string(ledger.SourceTypeCashout), shared.CodeOf(err))
		logRejected(s.cfg.logger, "edit cashout rejected", err, zap.String("cashout_id", cmd.ID.String()))
		return nil, err
	}

	cashout.ClearDomainEvents()
	s.recordMovement(ctx, movement)
	if previous != cashout.Status {
		s.cfg.logger.Info("cashout status changed",
			zap.String("cashout_id", cashout.ID.String()),
			zap.String("from", previous.String()),
			zap.String("to", cashout.Status.String()),
		)
	}
	telemetry.SetOK(span)
	return toCashoutResponse(cashout), nil
}

// GetCashout returns a cashout of the caller's community
func (s *CashoutService) GetCashout(ctx context.Context, communityID, id uuid.UUID) (*CashoutResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashout", "get")
	defer span.End()

	cashout, err := s.cashouts.FindByIDForCommunity(ctx, communityID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return toCashoutResponse(cashout), nil
}

// GetAllCashouts lists the cashouts of a community, newest first
func (s *CashoutService) GetAllCashouts(ctx context.Context, q ListQuery) (*shared.Paginated[CashoutResponse], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashout", "list")
	defer span.End()

	filter := ledger.CashoutFilter{
		Filter:      toFilter(q),
		CommunityID: q.CommunityID,
		AccountID:   q.AccountID,
		Status:      q.Status,
	}
	cashouts, total, err := s.cashouts.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	items := make([]CashoutResponse, len(cashouts))
	for i := range cashouts {
		items[i] = *toCashoutResponse(&cashouts[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func (s *CashoutService) recordMovement(ctx context.Context, m *ledger.AccountMovement) {
	if m == nil {
		return
	}
	s.cfg.metrics.RecordTransition(ctx, string(m.SourceType), string(m.Kind), m.Amount.Abs())
}
