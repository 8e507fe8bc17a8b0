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

const sessionColumns = `id, user_id, token, expires_at, user_agent, ip_address, created_at, last_used_at`

// SessionRepository handles session row data access
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

func scanSessionRow(scanner rowScanner) (*models.Session, error) {
	var s models.Session
	err := scanner.Scan(
		&s.ID, &s.UserID, &s.Token, &s.ExpiresAt,
		&s.UserAgent, &s.IPAddress, &s.CreatedAt, &s.LastUsedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &s, nil
}

// Create inserts a new session row for a freshly issued token.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	session.ID = uuid.New().String()
	now := time.Now()
	session.CreatedAt = now
	session.LastUsedAt = now

	query := `
		INSERT INTO sessions (id, user_id, token, expires_at, user_agent, ip_address, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + sessionColumns

	return scanSessionRow(r.pool.QueryRow(ctx, query,
		session.ID, session.UserID, session.Token, session.ExpiresAt,
		session.UserAgent, session.IPAddress, session.CreatedAt, session.LastUsedAt,
	))
}

// GetByTokenAndUser looks a session up by its bearer token scoped to the
// owning user, ignoring rows past expiry.
func (r *SessionRepository) GetByTokenAndUser(ctx context.Context, token, userID string) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE token = $1 AND user_id = $2 AND expires_at > NOW()
	`

	return scanSessionRow(r.pool.QueryRow(ctx, query, token, userID))
}

// Touch updates last_used_at for an authenticated request.
func (r *SessionRepository) Touch(ctx context.Context, id string) error {
	query := `UPDATE sessions SET last_used_at = NOW() WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)
	return database.MapPostgresError(err)
}

// DeleteByToken revokes a single session (logout).
func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	query := `DELETE FROM sessions WHERE token = $1`

	_, err := r.pool.Exec(ctx, query, token)
	return database.MapPostgresError(err)
}

// DeleteAllForUser revokes every session of a user (logout everywhere).
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM sessions WHERE user_id = $1`

	result, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// DeleteAllForUserTx is the transactional variant for the password-reset
// flow: old sessions must die in the same commit as the password change.
func (r *SessionRepository) DeleteAllForUserTx(ctx context.Context, tx pgx.Tx, userID string) error {
	query := `DELETE FROM sessions WHERE user_id = $1`

	_, err := tx.Exec(ctx, query, userID)
	return database.MapPostgresError(err)
}

// ListForUser returns a user's active sessions, most recently used first.
func (r *SessionRepository) ListForUser(ctx context.Context, userID string) ([]*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND expires_at > NOW()
		ORDER BY last_used_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}

// CleanupExpired removes sessions past their expiry.
func (r *SessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < NOW()`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}

	return result.RowsAffected(), nil
}
