package event

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGormOutboxRepository_SaveAndFindPending(t *testing.T) {
	db := openOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()
	s := NewLedgerSerializer()
	communityID := uuid.New()

	first := newPendingEntry(t, s, communityID)
	second := newPendingEntry(t, s, communityID)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, first, second))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, communityID, pending[0].CommunityID)
	assert.JSONEq(t, string(first.Payload), string(pending[0].Payload))

	limited, err := repo.FindPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormOutboxRepository_MarkProcessingClaimsOnce(t *testing.T) {
	db := openOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()
	entry := newPendingEntry(t, NewLedgerSerializer(), uuid.New())
	require.NoError(t, repo.Save(ctx, entry))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{entry.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{entry.ID})
	require.NoError(t, err)
	assert.Empty(t, again)

	none, err := repo.MarkProcessing(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestGormOutboxRepository_FailureLifecycle(t *testing.T) {
	db := openOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()
	entry := newPendingEntry(t, NewLedgerSerializer(), uuid.New())
	entry.MaxRetries = 2
	require.NoError(t, repo.Save(ctx, entry))

	entry.MarkFailed("broker unreachable")
	require.NoError(t, repo.Update(ctx, entry))

	due, err := repo.FindRetryable(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "broker unreachable", due[0].LastError)

	notYet, err := repo.FindRetryable(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, notYet)

	entry.MarkFailed("broker unreachable")
	require.True(t, entry.IsDead())
	require.NoError(t, repo.Update(ctx, entry))

	dead, total, err := repo.FindDead(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, dead, 1)
	assert.Equal(t, 2, dead[0].RetryCount)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
}

func TestGormOutboxRepository_DeleteOlderThanOnlyRemovesSent(t *testing.T) {
	db := openOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()
	s := NewLedgerSerializer()

	sent := newPendingEntry(t, s, uuid.New())
	pending := newPendingEntry(t, s, uuid.New())
	require.NoError(t, repo.Save(ctx, sent, pending))

	sent.MarkSent()
	require.NoError(t, repo.Update(ctx, sent))

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(ctx, sent.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	found, err := repo.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusPending, found.Status)
}

func TestGormOutboxRepository_MarkProcessingSkipsLockedRowsOnPostgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, DriverName: "postgres"}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	claimed, err := NewGormOutboxRepository(db).MarkProcessing(context.Background(), []uuid.UUID{id})
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
