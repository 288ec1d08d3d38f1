package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPendingPayment(t *testing.T, account *ledger.Account, amount int64) *ledger.Payment {
	t.Helper()
	p, _, err := ledger.NewPayment(account, "March fee", decimal.NewFromInt(amount), ledger.StatusPending)
	require.NoError(t, err)
	p.ClearDomainEvents()
	return p
}

func TestPaymentService_CreatePayment(t *testing.T) {
	ctx := context.Background()
	communityID := uuid.New()

	t.Run("pending payment leaves balance untouched", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 0)
		svc := NewPaymentService(f.scope, f.payments)

		f.accounts.On("FindByIDForCommunity", mock.Anything, communityID, account.ID).Return(account, nil)
		f.payments.On("Create", mock.Anything, mock.AnythingOfType("*ledger.Payment")).Return(nil)

		resp, err := svc.CreatePayment(ctx, NewPayment{
			CommunityID: communityID,
			AccountID:   account.ID,
			Title:       "March fee",
			Amount:      decimal.NewFromInt(30),
		})
		require.NoError(t, err)

		assert.Equal(t, ledger.StatusPending, resp.Status)
		assert.Equal(t, communityID, resp.CommunityID)
		f.accounts.AssertNotCalled(t, "ConditionalAdjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.movements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.Equal(t, []string{ledger.EventTypePaymentCreated}, f.events.EventTypes())
	})

	t.Run("paid payment credits the account without a floor", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 10)
		actor := uuid.New()
		svc := NewPaymentService(f.scope, f.payments)

		f.accounts.On("FindByIDForCommunity", mock.Anything, communityID, account.ID).Return(account, nil)
		f.accounts.On("ConditionalAdjust", mock.Anything, account.ID, decimalEq(30), noFloor()).Return(adjusted(account, 30), nil)
		f.movements.On("Create", mock.Anything, mock.MatchedBy(func(m *ledger.AccountMovement) bool {
			return m.BalanceAfter.Equal(decimal.NewFromInt(40)) && m.SourceType == ledger.SourceTypePayment &&
				m.CreatedBy != nil && *m.CreatedBy == actor
		})).Return(nil)
		f.payments.On("Create", mock.Anything, mock.AnythingOfType("*ledger.Payment")).Return(nil)

		resp, err := svc.CreatePayment(ctx, NewPayment{
			CommunityID: communityID,
			AccountID:   account.ID,
			Title:       "March fee",
			Amount:      decimal.NewFromInt(30),
			Status:      ledger.StatusPaid,
			ActorID:     &actor,
		})
		require.NoError(t, err)

		assert.Equal(t, ledger.StatusPaid, resp.Status)
		assert.NotNil(t, resp.PaidAt)
		assert.Equal(t, &actor, resp.CreatedBy)
		assert.Equal(t, []string{ledger.EventTypePaymentCreated, ledger.EventTypeAccountBalanceChanged}, f.events.EventTypes())
		f.accounts.AssertExpectations(t)
		f.movements.AssertExpectations(t)
	})

	t.Run("account of another community is not found", func(t *testing.T) {
		f := newTestFixture()
		svc := NewPaymentService(f.scope, f.payments)
		accountID := uuid.New()

		f.accounts.On("FindByIDForCommunity", mock.Anything, communityID, accountID).Return(nil, shared.ErrNotFound)

		_, err := svc.CreatePayment(ctx, NewPayment{
			CommunityID: communityID,
			AccountID:   accountID,
			Title:       "March fee",
			Amount:      decimal.NewFromInt(30),
		})

		assert.ErrorIs(t, err, shared.ErrNotFound)
		f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid amount is rejected before any write", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 0)
		svc := NewPaymentService(f.scope, f.payments)

		f.accounts.On("FindByIDForCommunity", mock.Anything, communityID, account.ID).Return(account, nil)

		_, err := svc.CreatePayment(ctx, NewPayment{
			CommunityID: communityID,
			AccountID:   account.ID,
			Title:       "March fee",
			Amount:      decimal.NewFromInt(-1),
		})

		assert.Equal(t, "INVALID_AMOUNT", shared.CodeOf(err))
		f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_CreatePayment_Idempotency(t *testing.T) {
	ctx := context.Background()
	communityID := uuid.New()
	f := newTestFixture()
	account := newAccount(communityID, 0)
	store := newFakeIdempotencyStore()
	svc := NewPaymentService(f.scope, f.payments, WithIdempotencyStore(store, 0))

	cmd := NewPayment{
		CommunityID:    communityID,
		AccountID:      account.ID,
		Title:          "March fee",
		Amount:         decimal.NewFromInt(30),
		IdempotencyKey: "req-1",
	}

	f.accounts.On("FindByIDForCommunity", mock.Anything, communityID, account.ID).Return(account, nil)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(shared.ErrConflict).Once()
	f.payments.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.CreatePayment(ctx, cmd)
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.CreatePayment(ctx, cmd)
	require.NoError(t, err, "a failed create releases its key")

	_, err = svc.CreatePayment(ctx, cmd)
	assert.ErrorIs(t, err, shared.ErrDuplicateRequest)
	f.payments.AssertNumberOfCalls(t, "Create", 2)
}

func TestPaymentService_EditPayment(t *testing.T) {
	ctx := context.Background()
	communityID := uuid.New()

	t.Run("pending to paid credits and saves with lock", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 100)
		payment := newPendingPayment(t, account, 30)
		svc := NewPaymentService(f.scope, f.payments)

		f.payments.On("FindByIDForCommunity", mock.Anything, communityID, payment.ID).Return(payment, nil)
		f.accounts.On("ConditionalAdjust", mock.Anything, account.ID, decimalEq(30), noFloor()).Return(adjusted(account, 30), nil)
		f.movements.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.payments.On("SaveWithLock", mock.Anything, payment).Return(nil)

		resp, err := svc.EditPayment(ctx, EditPayment{CommunityID: communityID, ID: payment.ID, Status: ptr(ledger.StatusPaid)})
		require.NoError(t, err)

		assert.Equal(t, ledger.StatusPaid, resp.Status)
		assert.Equal(t, 2, resp.Version)
		assert.Equal(t, []string{ledger.EventTypePaymentStatusChanged, ledger.EventTypeAccountBalanceChanged}, f.events.EventTypes())
		f.payments.AssertExpectations(t)
	})

	t.Run("paid to pending reverses without a floor", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 0)
		payment := newPendingPayment(t, account, 30)
		_, err := payment.Edit(ledger.PaymentPatch{EntryPatch: ledger.EntryPatch{Status: ptr(ledger.StatusPaid)}})
		require.NoError(t, err)
		payment.ClearDomainEvents()
		svc := NewPaymentService(f.scope, f.payments)

		f.payments.On("FindByIDForCommunity", mock.Anything, communityID, payment.ID).Return(payment, nil)
		f.accounts.On("ConditionalAdjust", mock.Anything, account.ID, decimalEq(-30), noFloor()).Return(adjusted(account, -30), nil)
		f.movements.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.payments.On("SaveWithLock", mock.Anything, payment).Return(nil)

		resp, err := svc.EditPayment(ctx, EditPayment{CommunityID: communityID, ID: payment.ID, Status: ptr(ledger.StatusPending)})
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusPending, resp.Status)
		f.accounts.AssertExpectations(t)
	})

	t.Run("same status edit never touches the balance", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 0)
		payment := newPendingPayment(t, account, 30)
		svc := NewPaymentService(f.scope, f.payments)

		f.payments.On("FindByIDForCommunity", mock.Anything, communityID, payment.ID).Return(payment, nil)
		f.payments.On("SaveWithLock", mock.Anything, payment).Return(nil)

		resp, err := svc.EditPayment(ctx, EditPayment{
			CommunityID: communityID,
			ID:          payment.ID,
			Status:      ptr(ledger.StatusPending),
			Title:       ptr("April fee"),
		})
		require.NoError(t, err)

		assert.Equal(t, "April fee", resp.Title)
		f.accounts.AssertNotCalled(t, "ConditionalAdjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, f.events.EventTypes())
	})

	t.Run("payment of another community is not found", func(t *testing.T) {
		f := newTestFixture()
		svc := NewPaymentService(f.scope, f.payments)
		id := uuid.New()

		f.payments.On("FindByIDForCommunity", mock.Anything, communityID, id).Return(nil, shared.ErrNotFound)

		_, err := svc.EditPayment(ctx, EditPayment{CommunityID: communityID, ID: id, Status: ptr(ledger.StatusPaid)})

		assert.ErrorIs(t, err, shared.ErrNotFound)
		f.accounts.AssertNotCalled(t, "ConditionalAdjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stale version surfaces as conflict", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 0)
		payment := newPendingPayment(t, account, 30)
		svc := NewPaymentService(f.scope, f.payments)

		f.payments.On("FindByIDForCommunity", mock.Anything, communityID, payment.ID).Return(payment, nil)
		f.accounts.On("ConditionalAdjust", mock.Anything, account.ID, decimalEq(30), noFloor()).Return(adjusted(account, 30), nil)
		f.movements.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.payments.On("SaveWithLock", mock.Anything, payment).Return(shared.ErrConflict)

		_, err := svc.EditPayment(ctx, EditPayment{CommunityID: communityID, ID: payment.ID, Status: ptr(ledger.StatusPaid)})

		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.Empty(t, f.events.EventTypes())
	})

	t.Run("amount of a paid payment is frozen", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 0)
		payment := newPendingPayment(t, account, 30)
		_, err := payment.Edit(ledger.PaymentPatch{EntryPatch: ledger.EntryPatch{Status: ptr(ledger.StatusPaid)}})
		require.NoError(t, err)
		svc := NewPaymentService(f.scope, f.payments)

		f.payments.On("FindByIDForCommunity", mock.Anything, communityID, payment.ID).Return(payment, nil)

		_, err = svc.EditPayment(ctx, EditPayment{CommunityID: communityID, ID: payment.ID, Amount: ptr(decimal.NewFromInt(50))})

		assert.ErrorIs(t, err, shared.ErrInvalidState)
		f.payments.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_GetAllPayments(t *testing.T) {
	f := newTestFixture()
	communityID := uuid.New()
	account := newAccount(communityID, 0)
	p1 := newPendingPayment(t, account, 10)
	p2 := newPendingPayment(t, account, 20)
	svc := NewPaymentService(f.scope, f.payments)
	paid := ledger.StatusPaid

	f.payments.On("FindAll", mock.Anything, mock.MatchedBy(func(filter ledger.PaymentFilter) bool {
		return filter.CommunityID == communityID && filter.Page == 1 && filter.PageSize == 20 && *filter.Status == paid
	})).Return([]ledger.Payment{*p1, *p2}, int64(2), nil)

	page, err := svc.GetAllPayments(context.Background(), ListQuery{CommunityID: communityID, Status: &paid})
	require.NoError(t, err)

	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.TotalPages)
}
