package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// AccountService manages student and staff accounts.
type AccountService struct {
	accounts     persistence.AccountRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewAccountService wires dependencies for account operations.
func NewAccountService(accounts persistence.AccountRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AccountService {
	if hash == nil {
		hash = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AccountService{
		accounts:     accounts,
		hashPassword: hash,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *AccountService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccountService", operation, attrs...)
}

// CreateAccount registers a new account. Students self-register; creating a
// staff account requires a staff principal.
func (s *AccountService) CreateAccount(ctx context.Context, params CreateAccountParams) (persistence.Account, error) {
	if s == nil {
		return persistence.Account{}, fmt.Errorf("AccountService is nil")
	}
	input := params.Input
	logger := s.loggerWith(ctx, "CreateAccount", "email", input.Email, "role", string(input.Role))

	if input.Role == persistence.RoleStaff && !params.Principal.IsStaff() {
		return persistence.Account{}, ErrUnauthorized
	}

	vErr := &ValidationError{}
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email is not a valid address")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
	if input.Role != persistence.RoleStudent && input.Role != persistence.RoleStaff {
		vErr.add("role", "role must be student or staff")
	}
	if len(input.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
	if vErr.HasErrors() {
		return persistence.Account{}, vErr
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return persistence.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	account := persistence.Account{
		ID:           s.idGenerator(),
		Email:        email,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Role:         input.Role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.Account{}, ErrAlreadyExists
		}
		logger.ErrorContext(ctx, "account creation failed", "error", err, "error_kind", ErrorKind(err))
		return persistence.Account{}, err
	}

	logger.InfoContext(ctx, "account created", "account_id", account.ID)
	account.PasswordHash = ""
	return account, nil
}

// GetAccount retrieves an account. Students may only read themselves.
func (s *AccountService) GetAccount(ctx context.Context, principal Principal, id string) (persistence.Account, error) {
	if s == nil {
		return persistence.Account{}, fmt.Errorf("AccountService is nil")
	}
	if !principal.IsStaff() && principal.AccountID != id {
		return persistence.Account{}, ErrUnauthorized
	}
	account, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return persistence.Account{}, mapRepoError(err)
	}
	account.PasswordHash = ""
	return account, nil
}

// ListAccounts returns all accounts. Staff only.
func (s *AccountService) ListAccounts(ctx context.Context, principal Principal) ([]persistence.Account, error) {
	if s == nil {
		return nil, fmt.Errorf("AccountService is nil")
	}
	if !principal.IsStaff() {
		return nil, ErrUnauthorized
	}
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].PasswordHash = ""
	}
	return accounts, nil
}

// DisableAccount blocks future logins without destroying history. Staff only.
func (s *AccountService) DisableAccount(ctx context.Context, principal Principal, id string) error {
	if s == nil {
		return fmt.Errorf("AccountService is nil")
	}
	if !principal.IsStaff() {
		return ErrUnauthorized
	}

	account, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	account.Disabled = true
	account.UpdatedAt = s.now()
	if err := s.accounts.UpdateAccount(ctx, account); err != nil {
		return mapRepoError(err)
	}
	s.loggerWith(ctx, "DisableAccount", "account_id", id).InfoContext(ctx, "account disabled")
	return nil
}
