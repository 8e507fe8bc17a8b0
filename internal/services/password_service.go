package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/homekrypto/hkt-api/internal/auth"
	"github.com/homekrypto/hkt-api/internal/models"
	pkgauth "github.com/homekrypto/hkt-api/pkg/auth"
	"github.com/homekrypto/hkt-api/pkg/logger"
)

// MailQueue decouples services from the background mailer so tests can
// capture enqueued jobs. Implemented by background.Mailer.
type MailQueue interface {
	Enqueue(name string, send func(ctx context.Context) error)
}

// TxRunner runs a function inside a database transaction. Implemented by
// database.DB.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error
}

type OneTimeTokenRepository interface {
	Create(ctx context.Context, userID, kind, tokenHash string, expiresAt time.Time) (*models.OneTimeToken, error)
	GetByHash(ctx context.Context, tokenHash string) (*models.OneTimeToken, error)
	MarkUsedTx(ctx context.Context, tx pgx.Tx, id string) error
	SupersedePending(ctx context.Context, userID, kind string) (int64, error)
}

type passwordUserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdatePasswordTx(ctx context.Context, tx pgx.Tx, id, passwordHash string) error
}

type passwordSessionRepository interface {
	DeleteAllForUserTx(ctx context.Context, tx pgx.Tx, userID string) error
}

// PasswordService covers the forgot/reset flow and authenticated password
// changes. Reset commits the new hash, token consumption and session
// revocation in one transaction.
type PasswordService struct {
	db          TxRunner
	users       passwordUserRepository
	sessions    passwordSessionRepository
	tokens      OneTimeTokenRepository
	email       EmailService
	mailer      MailQueue
	resetTTL    time.Duration
	baseURL     string
	auditLogger *logger.AuditLogger
	logger      *slog.Logger
}

func NewPasswordService(
	db TxRunner,
	users passwordUserRepository,
	sessions passwordSessionRepository,
	tokens OneTimeTokenRepository,
	email EmailService,
	mailer MailQueue,
	resetTTL time.Duration,
	baseURL string,
	auditLogger *logger.AuditLogger,
	log *slog.Logger,
) *PasswordService {
	return &PasswordService{
		db:          db,
		users:       users,
		sessions:    sessions,
		tokens:      tokens,
		email:       email,
		mailer:      mailer,
		resetTTL:    resetTTL,
		baseURL:     baseURL,
		auditLogger: auditLogger,
		logger:      log,
	}
}

// RequestReset issues a reset token for the address if an account exists.
// The caller must return the same response either way; only internal
// failures after a successful lookup are reported.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	if _, err := s.tokens.SupersedePending(ctx, user.ID, models.TokenKindPasswordReset); err != nil {
		return fmt.Errorf("superseding reset tokens: %w", err)
	}

	plain, hash, err := auth.GenerateOneTimeToken()
	if err != nil {
		return fmt.Errorf("generating reset token: %w", err)
	}
	if _, err := s.tokens.Create(ctx, user.ID, models.TokenKindPasswordReset, hash, time.Now().Add(s.resetTTL)); err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, plain)
	toEmail, firstName := user.Email, user.FirstName
	s.mailer.Enqueue("password_reset", func(ctx context.Context) error {
		return s.email.SendPasswordResetEmail(ctx, toEmail, firstName, resetURL)
	})

	s.auditLogger.LogAccountAction("password_reset_requested", user.ID, "", nil)
	return nil
}

// Reset consumes a valid token and replaces the password. Every invalid
// token condition collapses to ErrInvalidToken.
func (s *PasswordService) Reset(ctx context.Context, plainToken, newPassword, ipAddress, userAgent string) error {
	token, err := s.tokens.GetByHash(ctx, auth.HashOneTimeToken(plainToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidToken
		}
		return fmt.Errorf("looking up reset token: %w", err)
	}
	if token.Kind != models.TokenKindPasswordReset || !token.IsValid() {
		return models.ErrInvalidToken
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	err = s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.users.UpdatePasswordTx(ctx, tx, token.UserID, hash); err != nil {
			return err
		}
		if err := s.tokens.MarkUsedTx(ctx, tx, token.ID); err != nil {
			return err
		}
		return s.sessions.DeleteAllForUserTx(ctx, tx, token.UserID)
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidToken) || errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidToken
		}
		return fmt.Errorf("applying password reset: %w", err)
	}

	s.auditLogger.LogPasswordChange(token.UserID, ipAddress, true)
	s.notifyPasswordChanged(ctx, token.UserID, ipAddress, userAgent, true)
	return nil
}

// Change replaces the password for an authenticated user after verifying
// the current one. Existing sessions stay valid.
func (s *PasswordService) Change(ctx context.Context, userID, currentPassword, newPassword, ipAddress, userAgent string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.PasswordHash == "" {
		return models.ErrNoLoginMethod
	}
	if err := pkgauth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		s.auditLogger.LogPasswordChange(userID, ipAddress, false)
		return models.ErrUnauthorized
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	s.auditLogger.LogPasswordChange(userID, ipAddress, true)

	changedAt := time.Now()
	toEmail, firstName := user.Email, user.FirstName
	s.mailer.Enqueue("password_changed", func(ctx context.Context) error {
		return s.email.SendPasswordChangedEmail(ctx, toEmail, firstName, ipAddress, userAgent, changedAt, false)
	})
	return nil
}

func (s *PasswordService) notifyPasswordChanged(ctx context.Context, userID, ipAddress, userAgent string, sessionsRevoked bool) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load user for change notification", "user_id", userID, "error", err)
		return
	}
	changedAt := time.Now()
	toEmail, firstName := user.Email, user.FirstName
	s.mailer.Enqueue("password_changed", func(ctx context.Context) error {
		return s.email.SendPasswordChangedEmail(ctx, toEmail, firstName, ipAddress, userAgent, changedAt, sessionsRevoked)
	})
}
