package ledger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestVoucherService_Upload(t *testing.T) {
	ctx := context.Background()
	communityID := uuid.New()

	t.Run("stores the file under the community prefix", func(t *testing.T) {
		storage := new(MockObjectStorage)
		svc := NewVoucherService(storage, nil, nil)

		storage.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "communities/"+communityID.String()+"/cashouts/") && strings.HasSuffix(key, ".pdf")
		}), []byte("%PDF"), "application/pdf").Return(nil)

		key, err := svc.Upload(ctx, VoucherUpload{
			CommunityID: communityID,
			Kind:        ledger.SourceTypeCashout,
			FileName:    "Invoice.PDF",
			ContentType: "application/pdf",
			Data:        []byte("%PDF"),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, key)
		storage.AssertExpectations(t)
	})

	t.Run("rejects disallowed content types", func(t *testing.T) {
		storage := new(MockObjectStorage)
		svc := NewVoucherService(storage, nil, nil)

		_, err := svc.Upload(ctx, VoucherUpload{
			CommunityID: communityID,
			Kind:        ledger.SourceTypePayment,
			FileName:    "x.svg",
			ContentType: "image/svg+xml",
			Data:        []byte("<svg/>"),
		})
		assert.Equal(t, shared.CodeInvalidInput, shared.CodeOf(err))
		storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects oversized files", func(t *testing.T) {
		storage := new(MockObjectStorage)
		svc := NewVoucherService(storage, nil, nil)
		svc.SetConfig(VoucherServiceConfig{MaxSize: 4})

		_, err := svc.Upload(ctx, VoucherUpload{
			CommunityID: communityID,
			Kind:        ledger.SourceTypePayment,
			FileName:    "v.png",
			ContentType: "image/png",
			Data:        []byte("12345"),
		})
		assert.Equal(t, shared.CodeInvalidInput, shared.CodeOf(err))
	})
}

func TestVoucherService_InitiateUpload(t *testing.T) {
	storage := new(MockObjectStorage)
	svc := NewVoucherService(storage, nil, nil)
	expires := time.Now().Add(15 * time.Minute)

	storage.On("GenerateUploadURL", mock.Anything, mock.AnythingOfType("string"), "image/jpeg", 15*time.Minute).
		Return("https://s3.local/put", expires, nil)

	url, err := svc.InitiateUpload(context.Background(), uuid.New(), ledger.SourceTypePayment, "photo.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.local/put", url.URL)
	assert.Contains(t, url.Key, "/payments/")
	assert.Equal(t, expires, url.ExpiresAt)
}

func TestVoucherService_PaymentVoucherURL(t *testing.T) {
	ctx := context.Background()
	communityID := uuid.New()
	account := newAccount(communityID, 0)

	newPaymentWithVoucher := func(key string) *ledger.Payment {
		p, _, err := ledger.NewPayment(account, "Fee", decimal.NewFromInt(10), ledger.StatusPending)
		require.NoError(t, err)
		p.WithVoucher(key)
		return p
	}

	t.Run("presigns an existing voucher", func(t *testing.T) {
		f := newTestFixture()
		storage := new(MockObjectStorage)
		svc := NewVoucherService(storage, f.payments, f.cashouts)
		payment := newPaymentWithVoucher("communities/x/payments/v.png")

		f.payments.On("FindByIDForCommunity", mock.Anything, communityID, payment.ID).Return(payment, nil)
		storage.On("ObjectExists", mock.Anything, payment.VoucherKey).Return(true, nil)
		storage.On("GenerateDownloadURL", mock.Anything, payment.VoucherKey, time.Hour).
			Return("https://s3.local/get", time.Now().Add(time.Hour), nil)

		url, err := svc.PaymentVoucherURL(ctx, communityID, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://s3.local/get", url.URL)
	})

	t.Run("payment without voucher is not found", func(t *testing.T) {
		f := newTestFixture()
		svc := NewVoucherService(new(MockObjectStorage), f.payments, f.cashouts)
		payment := newPaymentWithVoucher("")

		f.payments.On("FindByIDForCommunity", mock.Anything, communityID, payment.ID).Return(payment, nil)

		_, err := svc.PaymentVoucherURL(ctx, communityID, payment.ID)
		assert.Equal(t, shared.CodeNotFound, shared.CodeOf(err))
	})

	t.Run("payment of another community is not found", func(t *testing.T) {
		f := newTestFixture()
		svc := NewVoucherService(new(MockObjectStorage), f.payments, f.cashouts)
		id := uuid.New()

		f.payments.On("FindByIDForCommunity", mock.Anything, communityID, id).Return(nil, shared.ErrNotFound)

		_, err := svc.PaymentVoucherURL(ctx, communityID, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestVoucherService_Discard(t *testing.T) {
	communityID := uuid.New()
	storage := new(MockObjectStorage)
	svc := NewVoucherService(storage, nil, nil)

	own := "communities/" + communityID.String() + "/payments/a.png"
	storage.On("DeleteObject", mock.Anything, own).Return(nil)

	require.NoError(t, svc.Discard(context.Background(), communityID, own))
	assert.ErrorIs(t, svc.Discard(context.Background(), communityID, "communities/"+uuid.NewString()+"/payments/a.png"), shared.ErrNotFound)
	storage.AssertNumberOfCalls(t, "DeleteObject", 1)
}
