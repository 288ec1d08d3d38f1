package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewCommunityAggregateRoot(t *testing.T) {
	communityID := uuid.New()
	root := NewCommunityAggregateRoot(communityID)

	assert.NotEqual(t, uuid.Nil, root.GetID())
	assert.Equal(t, communityID, root.CommunityID)
	assert.Equal(t, 1, root.GetVersion())
	assert.Equal(t, root.CreatedAt, root.UpdatedAt)
	assert.Nil(t, root.CreatedBy)
}

func TestBaseAggregateRoot_Touch(t *testing.T) {
	root := NewCommunityAggregateRoot(uuid.New())
	created := root.UpdatedAt

	root.Touch()
	root.Touch()

	assert.Equal(t, 3, root.GetVersion())
	assert.False(t, root.UpdatedAt.Before(created))
}

func TestBaseAggregateRoot_DomainEvents(t *testing.T) {
	root := NewCommunityAggregateRoot(uuid.New())
	event := NewBaseDomainEvent("AccountCreated", "Account", root.ID, root.CommunityID)

	root.AddDomainEvent(&event)
	assert.Len(t, root.GetDomainEvents(), 1)

	root.ClearDomainEvents()
	assert.Empty(t, root.GetDomainEvents())
}

func TestCommunityAggregateRoot_SetCreatedBy(t *testing.T) {
	root := NewCommunityAggregateRoot(uuid.New())
	actor := uuid.New()

	root.SetCreatedBy(actor)

	if assert.NotNil(t, root.CreatedBy) {
		assert.Equal(t, actor, *root.CreatedBy)
	}
}
