package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/residentia/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PaymentService creates and edits payments while keeping the owning
// account balance equal to the sum of its paid payments minus its paid
// cashouts
type PaymentService struct {
	scope    TransactionScope
	payments ledger.PaymentRepository
	cfg      serviceConfig
}

// NewPaymentService creates a new PaymentService. payments serves the read
// operations outside of a transaction.
func NewPaymentService(scope TransactionScope, payments ledger.PaymentRepository, opts ...ServiceOption) *PaymentService {
	return &PaymentService{
		scope:    scope,
		payments: payments,
		cfg:      newServiceConfig(opts),
	}
}

// CreatePayment records a payment. A payment created as paid credits the
// account in the same transaction.
func (s *PaymentService) CreatePayment(ctx context.Context, cmd NewPayment) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCommunityID, cmd.CommunityID.String(),
		telemetry.SpanAttrAccountID, cmd.AccountID.String(),
		telemetry.SpanAttrAmount, cmd.Amount.String(),
	)

	release, err := s.cfg.claimIdempotencyKey(ctx, "payment", cmd.CommunityID, cmd.IdempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	status := cmd.Status
	if status == "" {
		status = ledger.StatusPending
	}

	var payment *ledger.Payment
	var movement *ledger.AccountMovement
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.Accounts().FindByIDForCommunity(ctx, cmd.CommunityID, cmd.AccountID)
		if err != nil {
			return err
		}

		p, transition, err := ledger.NewPayment(account, cmd.Title, cmd.Amount, status)
		if err != nil {
			return err
		}
		p.WithVoucher(cmd.VoucherKey)
		if cmd.ResidenceID != nil {
			p.WithResidence(*cmd.ResidenceID)
		}
		if cmd.ResidentID != nil {
			p.WithResident(*cmd.ResidentID)
		}
		if cmd.ActorID != nil {
			p.SetCreatedBy(*cmd.ActorID)
		}

		movement, err = moveBalance(ctx, repos, p.AccountID, ledger.SourceTypePayment, p.ID, transition, cmd.ActorID)
		if err != nil {
			return err
		}
		if err := repos.Payments().Create(ctx, p); err != nil {
			return err
		}
		if err := publish(ctx, repos, p, movement); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		release()
		telemetry.RecordError(span, err)
		s.cfg.metrics.RecordRejection(ctx, string(ledger.SourceTypePayment), shared.CodeOf(err))
		s.logRejected("create payment rejected", err, zap.String("account_id", cmd.AccountID.String()))
		return nil, err
	}

	payment.ClearDomainEvents()
	s.recordMovement(ctx, movement)
	s.cfg.logger.Info("payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("account_id", payment.AccountID.String()),
		zap.String("status", payment.Status.String()),
		zap.String("amount", payment.Amount.String()),
	)
	telemetry.SetOK(span)
	return toPaymentResponse(payment), nil
}

// EditPayment applies a patch to a payment of the caller's community. A
// status change moves the account balance per the transition policy; the
// record update is conditioned on the version that was read, so a
// concurrent edit fails with shared.ErrConflict and nothing is applied.
func (s *PaymentService) EditPayment(ctx context.Context, cmd EditPayment) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "edit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCommunityID, cmd.CommunityID.String(),
		telemetry.SpanAttrPaymentID, cmd.ID.String(),
	)

	patch := ledger.PaymentPatch{
		EntryPatch: ledger.EntryPatch{Title: cmd.Title, Amount: cmd.Amount, Status: cmd.Status},
		VoucherKey: cmd.VoucherKey,
	}

	var payment *ledger.Payment
	var movement *ledger.AccountMovement
	var previous ledger.Status
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.Payments().FindByIDForCommunity(ctx, cmd.CommunityID, cmd.ID)
		if err != nil {
			return err
		}
		previous = p.Status

		transition, err := p.Edit(patch)
		if err != nil {
			return err
		}

		movement, err = moveBalance(ctx, repos, p.AccountID, ledger.SourceTypePayment, p.ID, transition, cmd.ActorID)
		if err != nil {
			return err
		}
		if err := repos.Payments().SaveWithLock(ctx, p); err != nil {
			return err
		}
		if err := publish(ctx, repos, p, movement); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.cfg.metrics.RecordRejection(ctx, string(ledger.SourceTypePayment), shared.CodeOf(err))
		s.logRejected("edit payment rejected", err, zap.String("payment_id", cmd.ID.String()))
		return nil, err
	}

	payment.ClearDomainEvents()
	s.recordMovement(ctx, movement)
	if previous != payment.Status {
		s.cfg.logger.Info("payment status changed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("from", previous.String()),
			zap.String("to", payment.Status.String()),
		)
	}
	telemetry.SetOK(span)
	return toPaymentResponse(payment), nil
}

// GetPayment returns a payment of the caller's community
func (s *PaymentService) GetPayment(ctx context.Context, communityID, id uuid.UUID) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "get")
	defer span.End()

	payment, err := s.payments.FindByIDForCommunity(ctx, communityID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return toPaymentResponse(payment), nil
}

// GetAllPayments lists the payments of a community, newest first
func (s *PaymentService) GetAllPayments(ctx context.Context, q ListQuery) (*shared.Paginated[PaymentResponse], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "list")
	defer span.End()

	filter := ledger.PaymentFilter{
		Filter:      toFilter(q),
		CommunityID: q.CommunityID,
		AccountID:   q.AccountID,
		Status:      q.Status,
	}
	payments, total, err := s.payments.FindAll(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	items := make([]PaymentResponse, len(payments))
	for i := range payments {
		items[i] = *toPaymentResponse(&payments[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func (s *PaymentService) recordMovement(ctx context.Context, m *ledger.AccountMovement) {
	if m == nil {
		return
	}
	s.cfg.metrics.RecordTransition(ctx, string(m.SourceType), string(m.Kind), m.Amount.Abs())
}

func (s *PaymentService) logRejected(msg string, err error, fields ...zap.Field) {
	logRejected(s.cfg.logger, msg, err, fields...)
}

// logRejected logs expected business rejections at warn and everything
// else at error
func logRejected(logger *zap.Logger, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	var de *shared.DomainError
	if errors.As(err, &de) {
		logger.Warn(msg, append(fields, zap.String("code", de.Code))...)
		return
	}
	logger.Error(msg, fields...)
}
