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
)

const tokenColumns = `id, user_id, kind, token_hash, expires_at, used_at, superseded_at, created_at`

// OneTimeTokenRepository handles password-reset and email-verification token
// data access.
type OneTimeTokenRepository struct {
	pool *pgxpool.Pool
}

// NewOneTimeTokenRepository creates a new OneTimeTokenRepository
func NewOneTimeTokenRepository(db *database.DB) *OneTimeTokenRepository {
	return &OneTimeTokenRepository{pool: db.Pool}
}

func scanTokenRow(scanner rowScanner) (*models.OneTimeToken, error) {
	var t models.OneTimeToken
	err := scanner.Scan(
		&t.ID, &t.UserID, &t.Kind, &t.TokenHash,
		&t.ExpiresAt, &t.UsedAt, &t.SupersededAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &t, nil
}

// Create inserts a token row. SupersedePending should be called first when a
// single-valid-link policy is wanted.
func (r *OneTimeTokenRepository) Create(ctx context.Context, userID, kind, tokenHash string, expiresAt time.Time) (*models.OneTimeToken, error) {
	query := `
		INSERT INTO one_time_tokens (id, user_id, kind, token_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + tokenColumns

	token, err := scanTokenRow(r.pool.QueryRow(ctx, query, uuid.New().String(), userID, kind, tokenHash, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create one-time token: %w", err)
	}

	return token, nil
}

// GetByHash retrieves a token by its storage hash regardless of state; the
// service layer decides how to respond to used/expired/superseded tokens.
func (r *OneTimeTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*models.OneTimeToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM one_time_tokens WHERE token_hash = $1`

	return scanTokenRow(r.pool.QueryRow(ctx, query, tokenHash))
}

// MarkUsed consumes a token. The used_at guard makes consumption idempotent
// at the row level: a second attempt affects zero rows and maps to not-found.
func (r *OneTimeTokenRepository) MarkUsed(ctx context.Context, id string) error {
	query := `UPDATE one_time_tokens SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark token as used: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkUsedTx is the transactional variant used by the password-reset flow.
func (r *OneTimeTokenRepository) MarkUsedTx(ctx context.Context, tx pgx.Tx, id string) error {
	query := `UPDATE one_time_tokens SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`

	result, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark token as used: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SupersedePending invalidates all unconsumed tokens of a kind for a user so
// at most one reset or verification link is live at a time.
func (r *OneTimeTokenRepository) SupersedePending(ctx context.Context, userID, kind string) (int64, error) {
	query := `
		UPDATE one_time_tokens
		SET superseded_at = NOW()
		WHERE user_id = $1 AND kind = $2 AND used_at IS NULL AND superseded_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, userID, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to supersede tokens: %w", err)
	}
	return result.RowsAffected(), nil
}

// GetPendingForUser returns the newest still-valid token of a kind, if any.
func (r *OneTimeTokenRepository) GetPendingForUser(ctx context.Context, userID, kind string) (*models.OneTimeToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM one_time_tokens
		WHERE user_id = $1 AND kind = $2
			AND used_at IS NULL AND superseded_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`

	return scanTokenRow(r.pool.QueryRow(ctx, query, userID, kind))
}

// CleanupExpired deletes tokens that expired more than 30 days ago.
func (r *OneTimeTokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM one_time_tokens WHERE expires_at < NOW() - INTERVAL '30 days'`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
