package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/residentia/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormAccountStore implements ledger.AccountStore using GORM.
// Balances only ever change through ConditionalAdjust.
type GormAccountStore struct {
	db *gorm.DB
}

// NewGormAccountStore creates a new GormAccountStore
func NewGormAccountStore(db *gorm.DB) *GormAccountStore {
	return &GormAccountStore{db: db}
}

// Create inserts a new account
func (r *GormAccountStore) Create(ctx context.Context, account *ledger.Account) error {
	return r.db.WithContext(ctx).Create(models.AccountModelFromDomain(account)).Error
}

// FindByID finds an account by ID regardless of community
func (r *GormAccountStore) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForCommunity finds an account by ID within a community
func (r *GormAccountStore) FindByIDForCommunity(ctx context.Context, communityID, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND id = ?", communityID, id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForCommunity lists the accounts of a community
func (r *GormAccountStore) FindAllForCommunity(ctx context.Context, communityID uuid.UUID, filter shared.Filter) ([]ledger.Account, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.AccountModel{}).Where("community_id = ?", communityID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AccountModel
	err := query.
		Order(OrderClause("accounts", filter.OrderBy, filter.OrderDir, AccountSortFields)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	accounts := make([]ledger.Account, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, total, nil
}

// ConditionalAdjust applies delta in a single UPDATE whose WHERE clause
// carries the floor check, so two concurrent debits can never both pass a
// check made against the same stale balance. Both sides round to the
// column scale; SQLite keeps NUMERIC fractions as REAL.
func (r *GormAccountStore) ConditionalAdjust(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal, requiredMinimumAfter *decimal.Decimal) (*ledger.Account, error) {
	db := r.db.WithContext(ctx)

	query := db.Model(&models.AccountModel{}).Where("id = ?", accountID)
	if requiredMinimumAfter != nil {
		query = query.Where("ROUND(balance + CAST(? AS NUMERIC), 4) >= CAST(? AS NUMERIC)", delta, *requiredMinimumAfter)
	}
	result := query.Updates(map[string]any{
		"balance":    gorm.Expr("ROUND(balance + CAST(? AS NUMERIC), 4)", delta),
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.AccountModel{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, shared.ErrNotFound
		}
		return nil, shared.ErrInsufficientFunds
	}

	return r.FindByID(ctx, accountID)
}

// Ensure GormAccountStore implements ledger.AccountStore
var _ ledger.AccountStore = (*GormAccountStore)(nil)
