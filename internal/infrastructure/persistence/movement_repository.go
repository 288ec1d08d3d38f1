package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/residentia/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAccountMovementRepository implements ledger.AccountMovementRepository.
// The journal is append-only: there is no update or delete path.
type GormAccountMovementRepository struct {
	db *gorm.DB
}

// NewGormAccountMovementRepository creates a new GormAccountMovementRepository
func NewGormAccountMovementRepository(db *gorm.DB) *GormAccountMovementRepository {
	return &GormAccountMovementRepository{db: db}
}

// Create appends a movement to the journal
func (r *GormAccountMovementRepository) Create(ctx context.Context, movement *ledger.AccountMovement) error {
	return r.db.WithContext(ctx).Create(models.AccountMovementModelFromDomain(movement)).Error
}

// FindByAccount lists the movements of an account, newest first by default
func (r *GormAccountMovementRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]ledger.AccountMovement, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.AccountMovementModel{}).Where("account_id = ?", accountID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AccountMovementModel
	err := query.
		Order(OrderClause("account_movements", filter.OrderBy, filter.OrderDir, MovementSortFields)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	movements := make([]ledger.AccountMovement, len(rows))
	for i := range rows {
		movements[i] = rows[i].ToDomain()
	}
	return movements, total, nil
}

// Ensure GormAccountMovementRepository implements ledger.AccountMovementRepository
var _ ledger.AccountMovementRepository = (*GormAccountMovementRepository)(nil)
