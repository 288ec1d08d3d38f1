package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/residentia/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const paymentsTable = "payments"

// GormPaymentRepository implements ledger.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create inserts a new payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *ledger.Payment) error {
	return r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(payment)).Error
}

// FindByIDForCommunity finds a payment whose account belongs to communityID
func (r *GormPaymentRepository) FindByIDForCommunity(ctx context.Context, communityID, id uuid.UUID) (*ledger.Payment, error) {
	var model models.PaymentModel
	err := r.db.WithContext(ctx).
		Scopes(selectWithCommunity(paymentsTable), joinAccountScope(paymentsTable, communityID)).
		Where("payments.id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists payments for a community with optional account and status filters
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter ledger.PaymentFilter) ([]ledger.Payment, int64, error) {
	page := filter.Filter.Normalize()
	scopes := []func(*gorm.DB) *gorm.DB{
		joinAccountScope(paymentsTable, filter.CommunityID),
		entryFilterScope(paymentsTable, filter.AccountID, filter.Status),
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).Scopes(scopes...).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PaymentModel
	err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Scopes(append(scopes, selectWithCommunity(paymentsTable))...).
		Order(OrderClause(paymentsTable, page.OrderBy, page.OrderDir, EntrySortFields)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	payments := make([]ledger.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, total, nil
}

// SaveWithLock writes the editable columns of payment only if the stored
// version is the one preceding payment.Version
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *ledger.Payment) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND version = ?", payment.ID, payment.Version-1).
		Updates(map[string]any{
			"title":       payment.Title,
			"amount":      payment.Amount,
			"status":      payment.Status,
			"paid_at":     payment.PaidAt,
			"voucher_key": payment.VoucherKey,
			"version":     payment.Version,
			"updated_at":  payment.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConflict
	}
	return nil
}

// SumPaid totals the paid payments of an account
func (r *GormPaymentRepository) SumPaid(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return sumPaid(ctx, r.db, &models.PaymentModel{}, accountID)
}

func sumPaid(ctx context.Context, db *gorm.DB, model any, accountID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := db.WithContext(ctx).
		Model(model).
		Select("ROUND(SUM(amount), 4)").
		Where("account_id = ? AND status = ?", accountID, ledger.StatusPaid).
		Row().
		Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// Ensure GormPaymentRepository implements ledger.PaymentRepository
var _ ledger.PaymentRepository = (*GormPaymentRepository)(nil)
