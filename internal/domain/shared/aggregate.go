package shared

import (
	"time"

	"github.com/google/uuid"
)

// AggregateRoot is implemented by every ledger record that is saved as a
// unit and emits events
type AggregateRoot interface {
	GetID() uuid.UUID
	GetVersion() int
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseEntity holds identity and timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// BaseAggregateRoot adds the optimistic-lock version and the events raised
// since the aggregate was loaded. Version starts at 1 and every edit bumps
// it through Touch.
type BaseAggregateRoot struct {
	BaseEntity
	Version      int
	domainEvents []DomainEvent
}

// GetVersion returns the aggregate version
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// Touch records an edit: it bumps the version and the update time
func (a *BaseAggregateRoot) Touch() {
	a.Version++
	a.UpdatedAt = time.Now()
}

// AddDomainEvent queues an event for the outbox
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns the queued events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents drops the queued events once they are in the outbox
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// CommunityAggregateRoot is an aggregate root owned by a residential
// community. Every read and write is scoped by CommunityID.
type CommunityAggregateRoot struct {
	BaseAggregateRoot
	CommunityID uuid.UUID
	CreatedBy   *uuid.UUID
}

// NewCommunityAggregateRoot creates a fresh version 1 aggregate
func NewCommunityAggregateRoot(communityID uuid.UUID) CommunityAggregateRoot {
	now := time.Now()
	return CommunityAggregateRoot{
		BaseAggregateRoot: BaseAggregateRoot{
			BaseEntity: BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			Version:    1,
		},
		CommunityID: communityID,
	}
}

// SetCreatedBy records the actor who created the aggregate
func (c *CommunityAggregateRoot) SetCreatedBy(userID uuid.UUID) {
	c.CreatedBy = &userID
}
