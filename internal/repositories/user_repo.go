package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homekrypto/hkt-api/internal/database"
	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/pkg/auth"
)

const userColumns = `id, email, password_hash, first_name, last_name, username, role, email_verified,
		referral_code, referred_by, wallet_address, failed_login_attempts, locked_until,
		last_login_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var passwordHash *string

	err := scanner.Scan(
		&user.ID, &user.Email, &passwordHash, &user.FirstName, &user.LastName,
		&user.Username, &user.Role, &user.EmailVerified,
		&user.ReferralCode, &user.ReferredBy, &user.WalletAddress,
		&user.FailedLoginAttempts, &user.LockedUntil,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}

	return &user, nil
}

// scanUserRows iterates through rows and scans each into User models
func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, code))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	if user.ReferralCode == "" {
		code, err := auth.GenerateReferralCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate referral code: %w", err)
		}
		user.ReferralCode = code
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleUser
	}

	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, username, role,
			email_verified, referral_code, referred_by, wallet_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + userColumns

	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, passwordHash, user.FirstName, user.LastName, user.Username,
		user.Role, user.EmailVerified, user.ReferralCode, user.ReferredBy, user.WalletAddress,
		user.CreatedAt, user.UpdatedAt,
	))
}

func (r *UserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, username = $3, role = $4, email_verified = $5,
			failed_login_attempts = $6, locked_until = $7, last_login_at = $8, updated_at = $9
		WHERE id = $10
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.FirstName, user.LastName, user.Username, user.Role, user.EmailVerified,
		user.FailedLoginAttempts, user.LockedUntil, user.LastLoginAt, user.UpdatedAt, id,
	))
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// SetWalletAddressIfEmpty records the wallet used for a token purchase as
// the account's primary wallet, but never overwrites one already linked.
func (r *UserRepository) SetWalletAddressIfEmpty(ctx context.Context, id, address string) error {
	query := `UPDATE users SET wallet_address = $1, updated_at = NOW() WHERE id = $2 AND wallet_address IS NULL`

	if _, err := r.pool.Exec(ctx, query, address, id); err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

// UpdatePassword stores a new password hash outside a transaction
// (change-password path, where the caller is already authenticated).
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdatePasswordTx is the transactional variant used by the reset flow so the
// password change commits atomically with token consumption and session
// revocation.
func (r *UserRepository) UpdatePasswordTx(ctx context.Context, tx pgx.Tx, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`

	result, err := tx.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkEmailVerified flips the verification flag.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	query := `UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkEmailVerifiedTx is the transactional variant used by the verification
// flow so the flag flips atomically with token consumption.
func (r *UserRepository) MarkEmailVerifiedTx(ctx context.Context, tx pgx.Tx, id string) error {
	query := `UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordFailedLogin increments the per-account failure counter and returns
// the new count.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE users SET failed_login_attempts = failed_login_attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_attempts
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// LockAccount sets the lockout horizon and resets the failure counter.
func (r *UserRepository) LockAccount(ctx context.Context, id string, until time.Time) error {
	query := `
		UPDATE users SET locked_until = $1, failed_login_attempts = 0, updated_at = NOW()
		WHERE id = $2
	`

	_, err := r.pool.Exec(ctx, query, until, id)
	return database.MapPostgresError(err)
}

// RecordSuccessfulLogin clears lockout state and stamps last_login_at.
func (r *UserRepository) RecordSuccessfulLogin(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL, last_login_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id)
	return database.MapPostgresError(err)
}

// ListWithApprovedAgentCounts returns users newest-first along with how many
// agents each has approved (admin dashboard listing).
func (r *UserRepository) ListWithApprovedAgentCounts(ctx context.Context) ([]*models.User, map[string]int64, error) {
	query := `
		SELECT ` + userColumns + `,
			COALESCE((SELECT COUNT(*) FROM agents WHERE agents.approved_by = users.id), 0)
		FROM users ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	counts := make(map[string]int64)

	for rows.Next() {
		var user models.User
		var passwordHash *string
		var agentCount int64

		err := rows.Scan(
			&user.ID, &user.Email, &passwordHash, &user.FirstName, &user.LastName,
			&user.Username, &user.Role, &user.EmailVerified,
			&user.ReferralCode, &user.ReferredBy, &user.WalletAddress,
			&user.FailedLoginAttempts, &user.LockedUntil,
			&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt,
			&agentCount,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan user: %w", err)
		}

		if passwordHash != nil {
			user.PasswordHash = *passwordHash
		}

		users = append(users, &user)
		counts[user.ID] = agentCount
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, counts, nil
}
