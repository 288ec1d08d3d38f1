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

func newPendingCashout(t *testing.T, account *ledger.Account, amount int64) *ledger.Cashout {
	t.Helper()
	c, _, err := ledger.NewCashout(account, "Gardening", decimal.NewFromInt(amount), ledger.StatusPending)
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
}

func TestCashoutService_CreateCashout(t *testing.T) {
	ctx := context.Background()
	communityID := uuid.New()

	t.Run("paid cashout debits with a zero floor", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 100)
		svc := NewCashoutService(f.scope, f.cashouts)

		f.accounts.On("FindByIDForCommunity", mock.Anything, communityID, account.ID).Return(account, nil)
		f.accounts.On("ConditionalAdjust", mock.Anything, account.ID, decimalEq(-60), zeroFloor()).Return(adjusted(account, -60), nil)
		f.movements.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.cashouts.On("Create", mock.Anything, mock.AnythingOfType("*ledger.Cashout")).Return(nil)

		resp, err := svc.CreateCashout(ctx, NewCashout{
			CommunityID: communityID,
			AccountID:   account.ID,
			Title:       "Gardening",
			Amount:      decimal.NewFromInt(60),
			Status:      ledger.StatusPaid,
			ProviderID:  ptr(uuid.New()),
		})
		require.NoError(t, err)

		assert.Equal(t, ledger.StatusPaid, resp.Status)
		assert.NotNil(t, resp.ProviderID)
		f.accounts.AssertExpectations(t)
	})

	t.Run("insufficient funds inserts nothing", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 40)
		svc := NewCashoutService(f.scope, f.cashouts)

		f.accounts.On("FindByIDForCommunity", mock.Anything, communityID, account.ID).Return(account, nil)
		f.accounts.On("ConditionalAdjust", mock.Anything, account.ID, decimalEq(-50), zeroFloor()).Return(nil, shared.ErrInsufficientFunds)

		_, err := svc.CreateCashout(ctx, NewCashout{
			CommunityID: communityID,
			AccountID:   account.ID,
			Title:       "Plumbing",
			Amount:      decimal.NewFromInt(50),
			Status:      ledger.StatusPaid,
		})

		assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
		f.cashouts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.movements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.Empty(t, f.events.EventTypes())
	})

	t.Run("pending cashout never checks funds", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 0)
		svc := NewCashoutService(f.scope, f.cashouts)

		f.accounts.On("FindByIDForCommunity", mock.Anything, communityID, account.ID).Return(account, nil)
		f.cashouts.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := svc.CreateCashout(ctx, NewCashout{
			CommunityID: communityID,
			AccountID:   account.ID,
			Title:       "Plumbing",
			Amount:      decimal.NewFromInt(500),
		})

		require.NoError(t, err)
		f.accounts.AssertNotCalled(t, "ConditionalAdjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCashoutService_EditCashout(t *testing.T) {
	ctx := context.Background()
	communityID := uuid.New()

	t.Run("pending to paid rechecks sufficiency", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 40)
		cashout := newPendingCashout(t, account, 50)
		svc := NewCashoutService(f.scope, f.cashouts)

		f.cashouts.On("FindByIDForCommunity", mock.Anything, communityID, cashout.ID).Return(cashout, nil)
		f.accounts.On("ConditionalAdjust", mock.Anything, account.ID, decimalEq(-50), zeroFloor()).Return(nil, shared.ErrInsufficientFunds)

		_, err := svc.EditCashout(ctx, EditCashout{CommunityID: communityID, ID: cashout.ID, Status: ptr(ledger.StatusPaid)})

		assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
		f.cashouts.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("paid to pending returns funds without a floor", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 40)
		cashout := newPendingCashout(t, account, 60)
		_, err := cashout.Edit(ledger.CashoutPatch{EntryPatch: ledger.EntryPatch{Status: ptr(ledger.StatusPaid)}})
		require.NoError(t, err)
		cashout.ClearDomainEvents()
		svc := NewCashoutService(f.scope, f.cashouts)

		f.cashouts.On("FindByIDForCommunity", mock.Anything, communityID, cashout.ID).Return(cashout, nil)
		f.accounts.On("ConditionalAdjust", mock.Anything, account.ID, decimalEq(60), noFloor()).Return(adjusted(account, 60), nil)
		f.movements.On("Create", mock.Anything, mock.MatchedBy(func(m *ledger.AccountMovement) bool {
			return m.Kind == ledger.TransitionReverse && m.BalanceAfter.Equal(decimal.NewFromInt(100))
		})).Return(nil)
		f.cashouts.On("SaveWithLock", mock.Anything, cashout).Return(nil)

		resp, err := svc.EditCashout(ctx, EditCashout{CommunityID: communityID, ID: cashout.ID, Status: ptr(ledger.StatusPending)})
		require.NoError(t, err)

		assert.Equal(t, ledger.StatusPending, resp.Status)
		assert.Nil(t, resp.PaidAt)
		assert.Equal(t, []string{ledger.EventTypeCashoutStatusChanged, ledger.EventTypeAccountBalanceChanged}, f.events.EventTypes())
		f.movements.AssertExpectations(t)
	})

	t.Run("paid to paid is a no-op", func(t *testing.T) {
		f := newTestFixture()
		account := newAccount(communityID, 40)
		cashout := newPendingCashout(t, account, 60)
		_, err := cashout.Edit(ledger.CashoutPatch{EntryPatch: ledger.EntryPatch{Status: ptr(ledger.StatusPaid)}})
		require.NoError(t, err)
		cashout.ClearDomainEvents()
		svc := NewCashoutService(f.scope, f.cashouts)

		f.cashouts.On("FindByIDForCommunity", mock.Anything, communityID, cashout.ID).Return(cashout, nil)
		f.cashouts.On("SaveWithLock", mock.Anything, cashout).Return(nil)

		_, err = svc.EditCashout(ctx, EditCashout{CommunityID: communityID, ID: cashout.ID, Status: ptr(ledger.StatusPaid)})
		require.NoError(t, err)
		f.accounts.AssertNotCalled(t, "ConditionalAdjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCashoutService_GetCashout(t *testing.T) {
	f := newTestFixture()
	communityID := uuid.New()
	svc := NewCashoutService(f.scope, f.cashouts)
	id := uuid.New()

	f.cashouts.On("FindByIDForCommunity", mock.Anything, communityID, id).Return(nil, shared.ErrNotFound)

	_, err := svc.GetCashout(context.Background(), communityID, id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
