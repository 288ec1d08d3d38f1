package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/residentia/backend/internal/domain/ledger"
	"github.com/residentia/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockAccountStore is a mock implementation of ledger.AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) Create(ctx context.Context, account *ledger.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountStore) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountStore) FindByIDForCommunity(ctx context.Context, communityID, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, communityID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountStore) FindAllForCommunity(ctx context.Context, communityID uuid.UUID, filter shared.Filter) ([]ledger.Account, int64, error) {
	args := m.Called(ctx, communityID, filter)
	return args.Get(0).([]ledger.Account), args.Get(1).(int64), args.Error(2)
}

func (m *MockAccountStore) ConditionalAdjust(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal, requiredMinimumAfter *decimal.Decimal) (*ledger.Account, error) {
	args := m.Called(ctx, accountID, delta, requiredMinimumAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

// MockPaymentRepository is a mock implementation of ledger.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *ledger.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *MockPaymentRepository) FindByIDForCommunity(ctx context.Context, communityID, id uuid.UUID) (*ledger.Payment, error) {
	args := m.Called(ctx, communityID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindAll(ctx context.Context, filter ledger.PaymentFilter) ([]ledger.Payment, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]ledger.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) SaveWithLock(ctx context.Context, payment *ledger.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *MockPaymentRepository) SumPaid(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockCashoutRepository is a mock implementation of ledger.CashoutRepository
type MockCashoutRepository struct {
	mock.Mock
}

func (m *MockCashoutRepository) Create(ctx context.Context, cashout *ledger.Cashout) error {
	return m.Called(ctx, cashout).Error(0)
}

func (m *MockCashoutRepository) FindByIDForCommunity(ctx context.Context, communityID, id uuid.UUID) (*ledger.Cashout, error) {
	args := m.Called(ctx, communityID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Cashout), args.Error(1)
}

func (m *MockCashoutRepository) FindAll(ctx context.Context, filter ledger.CashoutFilter) ([]ledger.Cashout, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]ledger.Cashout), args.Get(1).(int64), args.Error(2)
}

func (m *MockCashoutRepository) SaveWithLock(ctx context.Context, cashout *ledger.Cashout) error {
	return m.Called(ctx, cashout).Error(0)
}

func (m *MockCashoutRepository) SumPaid(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockMovementRepository is a mock implementation of ledger.AccountMovementRepository
type MockMovementRepository struct {
	mock.Mock
}

func (m *MockMovementRepository) Create(ctx context.Context, movement *ledger.AccountMovement) error {
	return m.Called(ctx, movement).Error(0)
}

func (m *MockMovementRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]ledger.AccountMovement, int64, error) {
	args := m.Called(ctx, accountID, filter)
	return args.Get(0).([]ledger.AccountMovement), args.Get(1).(int64), args.Error(2)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.events))
	for i, e := range m.events {
		types[i] = e.EventType()
	}
	return types
}

// fakeIdempotencyStore is a map-backed shared.IdempotencyStore
type fakeIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *fakeIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }

// MockObjectStorage is a mock implementation of ObjectStorageService
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	return m.Called(ctx, storageKey, data, contentType).Error(0)
}

func (m *MockObjectStorage) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	return m.Called(ctx, storageKey).Error(0)
}

func (m *MockObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	args := m.Called(ctx, storageKey)
	return args.Bool(0), args.Error(1)
}

type testFixture struct {
	accounts  *MockAccountStore
	payments  *MockPaymentRepository
	cashouts  *MockCashoutRepository
	movements *MockMovementRepository
	events    *MockEventPublisher
	scope     *NoOpTransactionScope
}

func newTestFixture() *testFixture {
	f := &testFixture{
		accounts:  new(MockAccountStore),
		payments:  new(MockPaymentRepository),
		cashouts:  new(MockCashoutRepository),
		movements: new(MockMovementRepository),
		events:    &MockEventPublisher{},
	}
	f.scope = NewNoOpTransactionScope(f.accounts, f.payments, f.cashouts, f.movements, f.events)
	return f
}

func newAccount(communityID uuid.UUID, balance int64) *ledger.Account {
	account, _ := ledger.NewAccount(communityID, "Maintenance fund")
	account.Balance = decimal.NewFromInt(balance)
	account.ClearDomainEvents()
	return account
}

// adjusted returns a copy of account with delta applied, as the store would
func adjusted(account *ledger.Account, delta int64) *ledger.Account {
	after := *account
	after.Balance = account.Balance.Add(decimal.NewFromInt(delta))
	return &after
}

func decimalEq(v int64) any {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(v)) })
}

func noFloor() any {
	return mock.MatchedBy(func(f *decimal.Decimal) bool { return f == nil })
}

func zeroFloor() any {
	return mock.MatchedBy(func(f *decimal.Decimal) bool { return f != nil && f.IsZero() })
}

func ptr[T any](v T) *T { return &v }
