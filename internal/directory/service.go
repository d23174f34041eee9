package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/lazytech/jjc-console/internal/domain"
)

var (
	// ErrInvalidCredentials covers unknown usernames and wrong passwords
	// alike; callers must not be able to tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountInactive marks a valid login on a deactivated account.
	ErrAccountInactive = errors.New("account inactive")
)

// Service authenticates accounts and registers new ones.
type Service struct {
	accounts   AccountRepository
	bcryptCost int
}

// NewService builds the service.
func NewService(accounts AccountRepository, bcryptCost int) *Service {
	return &Service{accounts: accounts, bcryptCost: bcryptCost}
}

// Authenticate validates the credentials and returns the account's
// identity tuple.
func (s *Service) Authenticate(ctx context.Context, username, password string) (domain.Identity, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, err
	}
	if !account.Active {
		return domain.Identity{}, ErrAccountInactive
	}
	if err := ComparePassword(account.PasswordHash, password); err != nil {
		return domain.Identity{}, ErrInvalidCredentials
	}
	return account.Identity(), nil
}

// Register creates a new account with a hashed password.
func (s *Service) Register(ctx context.Context, account *Account, password string) error {
	if account.Username == "" || password == "" {
		return errors.New("username and password required")
	}
	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	account.Active = true
	if account.AccessLevel == "" {
		account.AccessLevel = "user"
	}
	if account.Role == "" {
		account.Role = "employee"
	}
	return s.accounts.Create(ctx, account)
}
