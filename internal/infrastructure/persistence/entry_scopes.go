package persistence

import (
	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// joinAccountScope restricts payments or cashouts to the ones whose account
// belongs to communityID. Entries carry no community column of their own.
func joinAccountScope(table string, communityID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("JOIN accounts ON accounts.id = "+table+".account_id").
			Where("accounts.community_id = ?", communityID)
	}
}

// selectWithCommunity loads the entry columns plus the owning community
func selectWithCommunity(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Select(table + ".*, accounts.community_id AS community_id")
	}
}

func entryFilterScope(table string, accountID *uuid.UUID, status *ledger.Status) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if accountID != nil {
			db = db.Where(table+".account_id = ?", *accountID)
		}
		if status != nil {
			db = db.Where(table+".status = ?", *status)
		}
		return db
	}
}
