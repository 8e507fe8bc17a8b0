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
	"github.com/homekrypto/hkt-api/pkg/logger"
)

type verificationUserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	MarkEmailVerifiedTx(ctx context.Context, tx pgx.Tx, id string) error
}

// SessionCreator mints a session for the freshly verified user.
// Implemented by AuthService.
type SessionCreator interface {
	CreateSession(ctx context.Context, user *models.User, rememberMe bool, ipAddress, userAgent string) (string, time.Time, error)
}

// SessionCreatorFunc adapts a plain function to the SessionCreator interface.
type SessionCreatorFunc func(ctx context.Context, user *models.User, rememberMe bool, ipAddress, userAgent string) (string, time.Time, error)

func (f SessionCreatorFunc) CreateSession(ctx context.Context, user *models.User, rememberMe bool, ipAddress, userAgent string) (string, time.Time, error) {
	return f(ctx, user, rememberMe, ipAddress, userAgent)
}

// EmailVerificationService issues and consumes email verification tokens.
// A successful verification logs the user in immediately.
type EmailVerificationService struct {
	db          TxRunner
	users       verificationUserRepository
	tokens      OneTimeTokenRepository
	sessions    SessionCreator
	email       EmailService
	mailer      MailQueue
	verifyTTL   time.Duration
	baseURL     string
	auditLogger *logger.AuditLogger
	logger      *slog.Logger
}

func NewEmailVerificationService(
	db TxRunner,
	users verificationUserRepository,
	tokens OneTimeTokenRepository,
	sessions SessionCreator,
	email EmailService,
	mailer MailQueue,
	verifyTTL time.Duration,
	baseURL string,
	auditLogger *logger.AuditLogger,
	log *slog.Logger,
) *EmailVerificationService {
	return &EmailVerificationService{
		db:          db,
		users:       users,
		tokens:      tokens,
		sessions:    sessions,
		email:       email,
		mailer:      mailer,
		verifyTTL:   verifyTTL,
		baseURL:     baseURL,
		auditLogger: auditLogger,
		logger:      log,
	}
}

// SendVerification supersedes any pending verification tokens, issues a
// fresh one and queues the email.
func (s *EmailVerificationService) SendVerification(ctx context.Context, user *models.User) error {
	if _, err := s.tokens.SupersedePending(ctx, user.ID, models.TokenKindEmailVerification); err != nil {
		return fmt.Errorf("superseding verification tokens: %w", err)
	}

	plain, hash, err := auth.GenerateOneTimeToken()
	if err != nil {
		return fmt.Errorf("generating verification token: %w", err)
	}
	if _, err := s.tokens.Create(ctx, user.ID, models.TokenKindEmailVerification, hash, time.Now().Add(s.verifyTTL)); err != nil {
		return fmt.Errorf("storing verification token: %w", err)
	}

	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, plain)
	toEmail, firstName := user.Email, user.FirstName
	s.mailer.Enqueue("email_verification", func(ctx context.Context) error {
		return s.email.SendVerificationEmail(ctx, toEmail, firstName, verifyURL)
	})
	return nil
}

// Verify consumes the token, marks the account verified and returns a live
// session so the user lands logged in. Invalid, expired, used and superseded
// tokens all surface as ErrInvalidToken.
func (s *EmailVerificationService) Verify(ctx context.Context, plainToken, ipAddress, userAgent string) (*LoginResult, error) {
	token, err := s.tokens.GetByHash(ctx, auth.HashOneTimeToken(plainToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		return nil, fmt.Errorf("looking up verification token: %w", err)
	}
	if token.Kind != models.TokenKindEmailVerification || !token.IsValid() {
		return nil, models.ErrInvalidToken
	}

	err = s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.users.MarkEmailVerifiedTx(ctx, tx, token.UserID); err != nil {
			return err
		}
		return s.tokens.MarkUsedTx(ctx, tx, token.ID)
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		return nil, fmt.Errorf("marking email verified: %w", err)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading verified user: %w", err)
	}

	sessionToken, expiresAt, err := s.sessions.CreateSession(ctx, user, false, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogAccountAction("email_verified", user.ID, ipAddress, nil)
	return &LoginResult{User: user, Token: sessionToken, ExpiresAt: expiresAt}, nil
}

// Resend issues a fresh verification token. Unknown addresses return
// ErrNotFound and verified accounts ErrAlreadyVerified; unlike the reset
// flow this endpoint is explicit about both.
func (s *EmailVerificationService) Resend(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return models.ErrAlreadyVerified
	}
	return s.SendVerification(ctx, user)
}
