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

const cashoutsTable = "cashouts"

// GormCashoutRepository implements ledger.CashoutRepository using GORM
type GormCashoutRepository struct {
	db *gorm.DB
}

// NewGormCashoutRepository creates a new GormCashoutRepository
func NewGormCashoutRepository(db *gorm.DB) *GormCashoutRepository {
	return &GormCashoutRepository{db: db}
}

// Create inserts a new cashout
func (r *GormCashoutRepository) Create(ctx context.Context, cashout *ledger.Cashout) error {
	return r.db.WithContext(ctx).Create(models.CashoutModelFromDomain(cashout)).Error
}

// FindByIDForCommunity finds a cashout whose account belongs to communityID
func (r *GormCashoutRepository) FindByIDForCommunity(ctx context.Context, communityID, id uuid.UUID) (*ledger.Cashout, error) {
	var model models.CashoutModel
	err := r.db.WithContext(ctx).
		Scopes(selectWithCommunity(cashoutsTable), joinAccountScope(cashoutsTable, communityID)).
		Where("cashouts.id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists cashouts for a community with optional account and status filters
func (r *GormCashoutRepository) FindAll(ctx context.Context, filter ledger.CashoutFilter) ([]ledger.Cashout, int64, error) {
	page := filter.Filter.Normalize()
	scopes := []func(*gorm.DB) *gorm.DB{
		joinAccountScope(cashoutsTable, filter.CommunityID),
		entryFilterScope(cashoutsTable, filter.AccountID, filter.Status),
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.CashoutModel{}).Scopes(scopes...).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.CashoutModel
	err := r.db.WithContext(ctx).
		Model(&models.CashoutModel{}).
		Scopes(append(scopes, selectWithCommunity(cashoutsTable))...).
		Order(OrderClause(cashoutsTable, page.OrderBy, page.OrderDir, EntrySortFields)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	cashouts := make([]ledger.Cashout, len(rows))
	for i := range rows {
		cashouts[i] = *rows[i].ToDomain()
	}
	return cashouts, total, nil
}

// SaveWithLock writes the editable columns of cashout only if the stored
// version is the one preceding cashout.Version
func (r *GormCashoutRepository) SaveWithLock(ctx context.Context, cashout *ledger.Cashout) error {
	result := r.db.WithContext(ctx).
		Model(&models.CashoutModel{}).
		Where("id = ? AND version = ?", cashout.ID, cashout.Version-1).
		Updates(map[string]any{
			"title":       cashout.Title,
			"amount":      cashout.Amount,
			"status":      cashout.Status,
			"paid_at":     cashout.PaidAt,
			"receipt_key": cashout.ReceiptKey,
			"version":     cashout.Version,
			"updated_at":  cashout.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConflict
	}
	return nil
}

// SumPaid totals the paid cashouts of an account
func (r *GormCashoutRepository) SumPaid(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return sumPaid(ctx, r.db, &models.CashoutModel{}, accountID)
}

// Ensure GormCashoutRepository implements ledger.CashoutRepository
var _ ledger.CashoutRepository = (*GormCashoutRepository)(nil)
