package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AllowedVoucherContentTypes is the whitelist for payment vouchers and
// cashout receipts. SVG is excluded since it can carry script.
var AllowedVoucherContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
	"application/pdf": true,
}

// ObjectStorageService is implemented by the infrastructure layer (S3, MinIO, etc.)
type ObjectStorageService interface {
	// Upload stores data under storageKey
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error

	// GenerateUploadURL returns a presigned PUT URL and its expiry
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL returns a presigned GET URL and its expiry
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// DeleteObject deletes an object from storage
	DeleteObject(ctx context.Context, storageKey string) error

	// ObjectExists checks if an object exists in storage
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// VoucherServiceConfig holds configuration for the voucher service
type VoucherServiceConfig struct {
	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
	MaxSize           int64
}

// DefaultVoucherServiceConfig returns the default configuration
func DefaultVoucherServiceConfig() VoucherServiceConfig {
	return VoucherServiceConfig{
		UploadURLExpiry:   15 * time.Minute,
		DownloadURLExpiry: time.Hour,
		MaxSize:           10 << 20,
	}
}

// VoucherUpload is the command to store a voucher or receipt file
type VoucherUpload struct {
	CommunityID uuid.UUID         `json:"community_id" validate:"required"`
	Kind        ledger.SourceType `json:"kind" validate:"required,oneof=PAYMENT CASHOUT"`
	FileName    string            `json:"file_name" validate:"required,max=255"`
	ContentType string            `json:"content_type" validate:"required"`
	Data        []byte            `json:"-"`
}

// PresignedURL is a time-limited link to a stored object
type PresignedURL struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VoucherService stores the files referenced by voucher_key and receipt_key.
// The ledger never reads the files; it only keeps their object keys.
type VoucherService struct {
	storage  ObjectStorageService
	payments ledger.PaymentRepository
	cashouts ledger.CashoutRepository
	config   VoucherServiceConfig
	logger   *zap.Logger
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(
	storage ObjectStorageService,
	payments ledger.PaymentRepository,
	cashouts ledger.CashoutRepository,
	opts ...ServiceOption,
) *VoucherService {
	return &VoucherService{
		storage:  storage,
		payments: payments,
		cashouts: cashouts,
		config:   DefaultVoucherServiceConfig(),
		logger:   newServiceConfig(opts).logger,
	}
}

// SetConfig sets the service configuration
func (s *VoucherService) SetConfig(config VoucherServiceConfig) {
	s.config = config
}

// Upload validates and stores a voucher file and returns its object key,
// ready to be set as voucher_key or receipt_key
func (s *VoucherService) Upload(ctx context.Context, req VoucherUpload) (string, error) {
	if err := s.validate(req.Kind, req.ContentType); err != nil {
		return "", err
	}
	if len(req.Data) == 0 {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Voucher file is empty")
	}
	if int64(len(req.Data)) > s.config.MaxSize {
		return "", shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Voucher file exceeds %d bytes", s.config.MaxSize))
	}

	key := voucherKey(req.CommunityID, req.Kind, req.FileName)
	if err := s.storage.Upload(ctx, key, req.Data, req.ContentType); err != nil {
		return "", fmt.Errorf("upload voucher: %w", err)
	}

	s.logger.Info("voucher uploaded",
		zap.String("community_id", req.CommunityID.String()),
		zap.String("key", key),
		zap.Int("size", len(req.Data)),
	)
	return key, nil
}

// InitiateUpload reserves an object key and returns a presigned PUT URL for it
func (s *VoucherService) InitiateUpload(ctx context.Context, communityID uuid.UUID, kind ledger.SourceType, fileName, contentType string) (*PresignedURL, error) {
	if err := s.validate(kind, contentType); err != nil {
		return nil, err
	}

	key := voucherKey(communityID, kind, fileName)
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, contentType, s.config.UploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate upload url: %w", err)
	}
	return &PresignedURL{Key: key, URL: url, ExpiresAt: expiresAt}, nil
}

// Discard removes an uploaded voucher that never got attached to an entry
func (s *VoucherService) Discard(ctx context.Context, communityID uuid.UUID, key string) error {
	if !strings.HasPrefix(key, communityPrefix(communityID)) {
		return shared.ErrNotFound
	}
	return s.storage.DeleteObject(ctx, key)
}

// PaymentVoucherURL returns a download link for the voucher of a payment
func (s *VoucherService) PaymentVoucherURL(ctx context.Context, communityID, paymentID uuid.UUID) (*PresignedURL, error) {
	payment, err := s.payments.FindByIDForCommunity(ctx, communityID, paymentID)
	if err != nil {
		return nil, err
	}
	return s.downloadURL(ctx, payment.VoucherKey)
}

// CashoutReceiptURL returns a download link for the receipt of a cashout
func (s *VoucherService) CashoutReceiptURL(ctx context.Context, communityID, cashoutID uuid.UUID) (*PresignedURL, error) {
	cashout, err := s.cashouts.FindByIDForCommunity(ctx, communityID, cashoutID)
	if err != nil {
		return nil, err
	}
	return s.downloadURL(ctx, cashout.ReceiptKey)
}

func (s *VoucherService) downloadURL(ctx context.Context, key string) (*PresignedURL, error) {
	if key == "" {
		return nil, shared.NewDomainError(shared.CodeNotFound, "No voucher attached")
	}

	exists, err := s.storage.ObjectExists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		s.logger.Warn("voucher object missing", zap.String("key", key))
		return nil, shared.NewDomainError(shared.CodeNotFound, "Voucher object not found in storage")
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, key, s.config.DownloadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate download url: %w", err)
	}
	return &PresignedURL{Key: key, URL: url, ExpiresAt: expiresAt}, nil
}

func (s *VoucherService) validate(kind ledger.SourceType, contentType string) error {
	if s.storage == nil {
		return errors.New("voucher storage is not configured")
	}
	if !kind.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Voucher kind must be PAYMENT or CASHOUT")
	}
	if !AllowedVoucherContentTypes[strings.ToLower(contentType)] {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Content type '%s' is not allowed for vouchers", contentType))
	}
	return nil
}

func communityPrefix(communityID uuid.UUID) string {
	return "communities/" + communityID.String() + "/"
}

// voucherKey has the form communities/{community}/{payments|cashouts}/{uuid}{ext}
func voucherKey(communityID uuid.UUID, kind ledger.SourceType, fileName string) string {
	folder := "payments"
	if kind == ledger.SourceTypeCashout {
		folder = "cashouts"
	}
	return fmt.Sprintf("%s%s/%s%s",
		communityPrefix(communityID),
		folder,
		uuid.New().String(),
		strings.ToLower(filepath.Ext(fileName)),
	)
}
