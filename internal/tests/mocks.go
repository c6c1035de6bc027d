package tests

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"swift/internal/auth"
	"swift/internal/domain"
	"swift/internal/logger"
	"swift/internal/repository"
	"swift/internal/service"
)

var (
	_ repository.AccountRepository = (*MockAccountRepository)(nil)
	_ repository.ReceiptRepository = (*MockReceiptRepository)(nil)
	_ repository.AuditRepository   = (*MockAuditRepository)(nil)
	_ service.ReportCache          = (*MockReportCache)(nil)
	_ auth.PasswordHasher          = MockHasher{}
)

// ──────────────────────────────────────────────
// MOCK ACCOUNT REPOSITORY
// ──────────────────────────────────────────────

// MockAccountRepository is an in-memory AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	// Counters for verification
	SaveCallCount    int32
	RewriteCallCount int32

	// Error injection
	SaveError    error
	RewriteError error
}

// NewMockAccountRepository creates a new mock account repository.
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// AddAccount seeds an account as if it were already in the ledger.
func (m *MockAccountRepository) AddAccount(acct *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acct.Key()] = acct.Clone()
}

func (m *MockAccountRepository) Load(ctx context.Context) (map[string]*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*domain.Account, len(m.accounts))
	for k, a := range m.accounts {
		out[k] = a.Clone()
	}
	return out, nil
}

func (m *MockAccountRepository) Save(ctx context.Context, acct *domain.Account) error {
	atomic.AddInt32(&m.SaveCallCount, 1)
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acct.Key()] = acct.Clone()
	return nil
}

func (m *MockAccountRepository) Rewrite(ctx context.Context, accounts []*domain.Account) error {
	atomic.AddInt32(&m.RewriteCallCount, 1)
	if m.RewriteError != nil {
		return m.RewriteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		m.accounts[a.Key()] = a.Clone()
	}
	return nil
}

// Stored returns the persisted copy of an account for test assertions.
func (m *MockAccountRepository) Stored(username string) *domain.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accounts[domain.UsernameKey(username)]
}

// ──────────────────────────────────────────────
// MOCK RECEIPT REPOSITORY
// ──────────────────────────────────────────────

// MockReceiptRepository is an in-memory ReceiptRepository.
type MockReceiptRepository struct {
	mu       sync.RWMutex
	receipts []domain.Receipt

	AppendCallCount int32
	AppendError     error
}

// NewMockReceiptRepository creates a new mock receipt repository.
func NewMockReceiptRepository() *MockReceiptRepository {
	return &MockReceiptRepository{}
}

// AddReceipt seeds a receipt.
func (m *MockReceiptRepository) AddReceipt(r domain.Receipt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = append(m.receipts, r)
}

func (m *MockReceiptRepository) Append(ctx context.Context, r *domain.Receipt) error {
	atomic.AddInt32(&m.AppendCallCount, 1)
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = append(m.receipts, *r)
	return nil
}

func (m *MockReceiptRepository) All(ctx context.Context) ([]domain.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Receipt, len(m.receipts))
	copy(out, m.receipts)
	return out, nil
}

// Count returns the number of stored receipts.
func (m *MockReceiptRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.receipts)
}

// ──────────────────────────────────────────────
// MOCK AUDIT REPOSITORY
// ──────────────────────────────────────────────

// MockAuditRepository is an in-memory AuditRepository.
type MockAuditRepository struct {
	mu      sync.Mutex
	entries []domain.AuditEntry

	AppendError error
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Append(ctx context.Context, e domain.AuditEntry) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *MockAuditRepository) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEntry, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK REPORT CACHE
// ──────────────────────────────────────────────

// MockReportCache is an in-memory ReportCache.
type MockReportCache struct {
	mu      sync.Mutex
	entries map[string][]byte

	GetCallCount        int32
	HitCount            int32
	InvalidateCallCount int32

	GetError error
}

func NewMockReportCache() *MockReportCache {
	return &MockReportCache{entries: make(map[string][]byte)}
}

func (m *MockReportCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, false, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if ok {
		atomic.AddInt32(&m.HitCount, 1)
	}
	return v, ok, nil
}

func (m *MockReportCache) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *MockReportCache) Invalidate(ctx context.Context) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]byte)
	return nil
}

// ──────────────────────────────────────────────
// MOCK PASSWORD HASHER
// ──────────────────────────────────────────────

// MockHasher prefixes passwords instead of hashing them. Stored values
// without the prefix are treated as legacy plaintext.
type MockHasher struct{}

const mockHashPrefix = "hashed:"

func (MockHasher) Hash(password string) (string, error) {
	if password == "explode" {
		return "", errors.New("hasher failure")
	}
	return mockHashPrefix + password, nil
}

func (MockHasher) Verify(stored, password string) (bool, bool) {
	if strings.HasPrefix(stored, mockHashPrefix) {
		return stored == mockHashPrefix+password, false
	}
	ok := stored == password
	return ok, ok
}

// ──────────────────────────────────────────────
// FIXTURE
// ──────────────────────────────────────────────

// Fixture wires the services over in-memory fakes.
type Fixture struct {
	Accounts      *MockAccountRepository
	Receipts      *MockReceiptRepository
	Audit         *MockAuditRepository
	Cache         *MockReportCache
	Log           *logger.Logger
	Fares         *service.FareService
	AccountSvc    *service.AccountService
	ReceiptSvc    *service.ReceiptService
	Registry      *service.TripRegistry
	Revenue       *service.RevenueService
	AuditSvc      *service.AuditService
	Notifications *service.NotificationService
}

// NewFixture builds services with the given accounts preloaded.
func NewFixture(accounts ...*domain.Account) *Fixture {
	f := &Fixture{
		Accounts: NewMockAccountRepository(),
		Receipts: NewMockReceiptRepository(),
		Audit:    NewMockAuditRepository(),
		Cache:    NewMockReportCache(),
		Log:      logger.Discard(),
	}
	for _, a := range accounts {
		f.Accounts.AddAccount(a)
	}

	f.Notifications = service.NewNotificationService(f.Log)
	f.Fares = service.NewFareService(1.0, f.Log)
	f.AccountSvc = service.NewAccountService(f.Accounts, MockHasher{}, f.Log)
	if err := f.AccountSvc.Load(context.Background()); err != nil {
		panic(err)
	}
	f.ReceiptSvc = service.NewReceiptService(f.Receipts, f.Cache, f.Notifications, f.Log)
	f.Registry = service.NewTripRegistry(f.Fares, f.AccountSvc, f.ReceiptSvc, f.Notifications, f.Log)
	f.Revenue = service.NewRevenueService(f.Receipts, f.Cache, f.Log)
	f.AuditSvc = service.NewAuditService(f.Audit, f.Log)
	return f
}

// Driver returns a driver account fixture.
func Driver(username, plate string) *domain.Account {
	return &domain.Account{
		Role:        domain.RoleDriver,
		Username:    username,
		Password:    mockHashPrefix + "pw",
		PlateNumber: plate,
		IsOnline:    true,
	}
}

// Passenger returns a passenger account fixture.
func Passenger(username string) *domain.Account {
	return &domain.Account{
		Role:     domain.RolePassenger,
		Username: username,
		Password: mockHashPrefix + "pw",
		IsOnline: true,
	}
}

// Operator returns an operator account fixture.
func Operator(username string) *domain.Account {
	return &domain.Account{
		Role:     domain.RoleOperator,
		Username: username,
		Password: mockHashPrefix + "pw",
	}
}

// Collect drains an open-jobs sequence into booking IDs.
func Collect(seq iter.Seq[domain.TripBooking]) []string {
	var ids []string
	for b := range seq {
		ids = append(ids, b.BookingID)
	}
	return ids
}
