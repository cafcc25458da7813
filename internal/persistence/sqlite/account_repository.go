package sqlite

import (
	"context"

	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

// AccountRepository implements persistence.AccountRepository using SQLite.
type AccountRepository struct {
	pool *ConnectionPool
}

// NewAccountRepository creates a new SQLite account repository.
func NewAccountRepository(pool *ConnectionPool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// CreateAccount inserts a new account.
func (r *AccountRepository) CreateAccount(ctx context.Context, account persistence.Account) error {
	if account.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO accounts (id, email, display_name, role, password_hash, disabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.DB().ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.DisplayName,
		string(account.Role),
		account.PasswordHash,
		boolToInt(account.Disabled),
		formatTime(account.CreatedAt),
		formatTime(account.UpdatedAt),
	)
	return mapError(err)
}

// UpdateAccount updates an existing account.
func (r *AccountRepository) UpdateAccount(ctx context.Context, account persistence.Account) error {
	if account.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE accounts
		SET email = ?, display_name = ?, role = ?, password_hash = ?, disabled = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.pool.DB().ExecContext(ctx, query,
		account.Email,
		account.DisplayName,
		string(account.Role),
		account.PasswordHash,
		boolToInt(account.Disabled),
		formatTime(account.UpdatedAt),
		account.ID,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (r *AccountRepository) GetAccount(ctx context.Context, id string) (persistence.Account, error) {
	query := accountSelect + " WHERE id = ?"
	return r.scanAccount(r.pool.DB().QueryRowContext(ctx, query, id))
}

// GetAccountByEmail retrieves an account by email. The email column collates
// case-insensitively.
func (r *AccountRepository) GetAccountByEmail(ctx context.Context, email string) (persistence.Account, error) {
	query := accountSelect + " WHERE email = ?"
	return r.scanAccount(r.pool.DB().QueryRowContext(ctx, query, email))
}

// ListAccounts returns all accounts ordered by email.
func (r *AccountRepository) ListAccounts(ctx context.Context) ([]persistence.Account, error) {
	rows, err := r.pool.DB().QueryContext(ctx, accountSelect+" ORDER BY email")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var accounts []persistence.Account
	for rows.Next() {
		account, err := r.scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return accounts, nil
}

// DeleteAccount removes an account by ID.
func (r *AccountRepository) DeleteAccount(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

const accountSelect = `
	SELECT id, email, display_name, role, password_hash, disabled, created_at, updated_at
	FROM accounts
`

func (r *AccountRepository) scanAccount(row rowScanner) (persistence.Account, error) {
	var (
		account   persistence.Account
		role      string
		disabled  int
		createdAt string
		updatedAt string
	)
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&role,
		&account.PasswordHash,
		&disabled,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Account{}, mapError(err)
	}

	account.Role = persistence.AccountRole(role)
	account.Disabled = disabled != 0
	if account.CreatedAt, err = parseTime(createdAt, "accounts.created_at"); err != nil {
		return persistence.Account{}, err
	}
	if account.UpdatedAt, err = parseTime(updatedAt, "accounts.updated_at"); err != nil {
		return persistence.Account{}, err
	}
	return account, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
