package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"swift/internal/auth"
	"swift/internal/domain"
	"swift/internal/logger"
	"swift/internal/repository"
)

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// AccountService is the in-memory authority over accounts, backed by the ledger.
type AccountService struct {
	repo   repository.AccountRepository
	hasher auth.PasswordHasher
	log    *logger.Logger

	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

// NewAccountService creates a new AccountService with an empty account set.
func NewAccountService(
	repo repository.AccountRepository,
	hasher auth.PasswordHasher,
	log *logger.Logger,
) *AccountService {
	return &AccountService{
		repo:     repo,
		hasher:   hasher,
		log:      log,
		accounts: make(map[string]*domain.Account),
	}
}

// Load replaces the in-memory set with the ledger contents.
func (s *AccountService) Load(ctx context.Context) error {
	accounts, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()

	s.log.Info(logger.Entry{
		Action:     "ledger_loaded",
		Message:    "account ledger loaded",
		Additional: map[string]any{"accounts": len(accounts)},
	})
	return nil
}

// Bootstrap seeds an operator account when the ledger has none.
func (s *AccountService) Bootstrap(ctx context.Context, username, password string) error {
	s.mu.RLock()
	hasOperator := false
	for _, a := range s.accounts {
		if a.Role == domain.RoleOperator {
			hasOperator = true
			break
		}
	}
	s.mu.RUnlock()

	if hasOperator {
		return nil
	}
	if password == "" {
		s.log.Warn(logger.Entry{
			Action:  "bootstrap_skipped",
			Message: "no operator account and no bootstrap password configured",
		})
		return nil
	}

	_, err := s.Register(ctx, RegisterRequest{
		Role:     domain.RoleOperator,
		Username: username,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("bootstrap operator: %w", err)
	}

	s.log.Info(logger.Entry{Action: "bootstrap_operator", Message: "operator account created", Actor: username})
	return nil
}

// RegisterRequest contains the parameters for creating an account.
type RegisterRequest struct {
	Role        domain.Role
	Username    string
	Password    string
	PlateNumber string // drivers only
}

// Register creates an account and appends it to the ledger.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*domain.Account, error) {
	if _, ok := domain.ParseRole(string(req.Role)); !ok {
		return nil, ErrInvalidRole
	}

	username := strings.TrimSpace(req.Username)
	if !validField(username) {
		return nil, ErrInvalidUsername
	}
	if req.Password == "" || len(req.Password) > maxPasswordBytes {
		return nil, ErrInvalidPassword
	}

	plate := strings.TrimSpace(req.PlateNumber)
	if req.Role == domain.RoleDriver && !validField(plate) {
		return nil, ErrInvalidPlate
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acct := &domain.Account{
		Role:     req.Role,
		Username: username,
		Password: hash,
		IsOnline: true,
	}
	if req.Role == domain.RoleDriver {
		acct.PlateNumber = plate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[acct.Key()]; exists {
		return nil, ErrUsernameTaken
	}

	if err := s.repo.Save(ctx, acct); err != nil {
		s.logPersistence("account_register", acct.Username, err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.accounts[acct.Key()] = acct

	return acct.Clone(), nil
}

// AuthenticateRequest contains login credentials. An empty Role matches any role.
type AuthenticateRequest struct {
	Username string
	Password string
	Role     domain.Role
}

// Authenticate checks credentials. Legacy plaintext credentials are re-hashed on success.
func (s *AccountService) Authenticate(ctx context.Context, req AuthenticateRequest) (*domain.Account, error) {
	key := domain.UsernameKey(req.Username)

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[key]
	if !ok {
		return nil, ErrInvalidCredentials
	}

	match, upgrade := s.hasher.Verify(acct.Password, req.Password)
	if !match {
		return nil, ErrInvalidCredentials
	}
	if req.Role != "" && acct.Role != req.Role {
		return nil, ErrInvalidCredentials
	}

	if upgrade {
		if hash, err := s.hasher.Hash(req.Password); err == nil {
			acct.Password = hash
			if err := s.rewriteLocked(ctx); err != nil {
				s.logPersistence("credential_upgrade", acct.Username, err)
			}
		}
	}

	acct.IsOnline = true
	return acct.Clone(), nil
}

// Get returns a copy of the account.
func (s *AccountService) Get(ctx context.Context, username string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[domain.UsernameKey(username)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return acct.Clone(), nil
}

// GetDriver returns a copy of the driver account.
func (s *AccountService) GetDriver(ctx context.Context, username string) (*domain.Account, error) {
	acct, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if !acct.IsDriver() {
		return nil, ErrNotADriver
	}
	return acct, nil
}

// ListDrivers returns every driver sorted by username.
func (s *AccountService) ListDrivers(ctx context.Context) []*domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	drivers := make([]*domain.Account, 0)
	for _, a := range s.accounts {
		if a.IsDriver() {
			drivers = append(drivers, a.Clone())
		}
	}
	sort.Slice(drivers, func(i, j int) bool { return drivers[i].Key() < drivers[j].Key() })
	return drivers
}

// DeleteDriver removes a driver and rewrites the ledger.
func (s *AccountService) DeleteDriver(ctx context.Context, username string) error {
	key := domain.UsernameKey(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[key]
	if !ok {
		return repository.ErrNotFound
	}
	if !acct.IsDriver() {
		return ErrNotADriver
	}

	delete(s.accounts, key)
	if err := s.rewriteLocked(ctx); err != nil {
		s.logPersistence("driver_delete", acct.Username, err)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// CreditWallet adds amount to a driver's wallet. The in-memory balance is
// updated even when persisting fails; the returned error then wraps ErrPersistence.
func (s *AccountService) CreditWallet(ctx context.Context, username string, amount float64) (*domain.Account, error) {
	return s.mutateDriver(ctx, username, "wallet_credit", func(a *domain.Account) {
		a.WalletBalance = domain.RoundMoney(a.WalletBalance + amount)
	})
}

// ApplyRating records a 1 to 5 star rating for a driver.
func (s *AccountService) ApplyRating(ctx context.Context, username string, rating int) (*domain.Account, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	return s.mutateDriver(ctx, username, "driver_rating", func(a *domain.Account) {
		a.RatingSum += float64(rating)
		a.RatingCount++
	})
}

func (s *AccountService) mutateDriver(ctx context.Context, username, action string, apply func(*domain.Account)) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[domain.UsernameKey(username)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !acct.IsDriver() {
		return nil, ErrNotADriver
	}

	apply(acct)

	if err := s.rewriteLocked(ctx); err != nil {
		s.logPersistence(action, acct.Username, err)
		return acct.Clone(), fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return acct.Clone(), nil
}

// rewriteLocked persists the full set; callers hold s.mu.
func (s *AccountService) rewriteLocked(ctx context.Context) error {
	all := make([]*domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Key() < all[j].Key() })
	return s.repo.Rewrite(ctx, all)
}

func (s *AccountService) logPersistence(action, actor string, err error) {
	s.log.Error(logger.Entry{
		Action:  action,
		Message: "failed to persist account ledger",
		Actor:   actor,
		Error:   logger.Err(err),
	})
}

// validField rejects empty values and ledger separators.
func validField(v string) bool {
	return v != "" && !strings.ContainsAny(v, "|\r\n")
}
