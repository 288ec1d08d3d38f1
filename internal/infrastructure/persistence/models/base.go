package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/shared"
)

// BaseModel provides the identity and timestamp columns of every table
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// AggregateModel adds the optimistic-locking version column
type AggregateModel struct {
	BaseModel
	Version   int        `gorm:"not null;default:1"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
}

func (m *AggregateModel) fromCommunityAggregateRoot(a shared.CommunityAggregateRoot) {
	m.ID = a.ID
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
	m.Version = a.Version
	m.CreatedBy = a.CreatedBy
}

func (m *AggregateModel) toCommunityAggregateRoot(communityID uuid.UUID) shared.CommunityAggregateRoot {
	return shared.CommunityAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		CommunityID: communityID,
		CreatedBy:   m.CreatedBy,
	}
}
