package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/homekrypto/hkt-api/internal/auth"
	"github.com/homekrypto/hkt-api/internal/models"
	pkgauth "github.com/homekrypto/hkt-api/pkg/auth"
	"github.com/homekrypto/hkt-api/pkg/logger"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}

// LoginRateLimiter guards the login path. Implemented by RateLimitService.
type LoginRateLimiter interface {
	CheckLoginAllowed(user *models.User) error
	CheckIPAllowed(ctx context.Context, ipAddress string) error
	RecordFailedLogin(ctx context.Context, user *models.User, email, ipAddress, userAgent, reason string)
	RecordSuccessfulLogin(ctx context.Context, user *models.User, ipAddress, userAgent string)
}

// VerificationSender dispatches the initial email verification message.
type VerificationSender interface {
	SendVerification(ctx context.Context, user *models.User) error
}

type AuthService struct {
	users        UserRepository
	sessions     SessionRepository
	tokenManager *auth.TokenManager
	limiter      LoginRateLimiter
	verification VerificationSender
	auditLogger  *logger.AuditLogger
	logger       *slog.Logger
}

func NewAuthService(
	users UserRepository,
	sessions SessionRepository,
	tokenManager *auth.TokenManager,
	limiter LoginRateLimiter,
	verification VerificationSender,
	auditLogger *logger.AuditLogger,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		users:        users,
		sessions:     sessions,
		tokenManager: tokenManager,
		limiter:      limiter,
		verification: verification,
		auditLogger:  auditLogger,
		logger:       log,
	}
}

type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	ReferralCode string
}

type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
	IPAddress  string
	UserAgent  string
}

// LoginResult carries the authenticated user and the session token the
// handler sets as a cookie.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and dispatches the verification email.
// Duplicate emails surface as ErrConflict; unlike login, registration is
// allowed to reveal that an address is taken.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := normalizeEmail(input.Email)

	if err := pkgauth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	user := &models.User{
		Email:     email,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Role:      models.RoleUser,
	}

	if code := strings.TrimSpace(input.ReferralCode); code != "" {
		referrer, err := s.users.GetByReferralCode(ctx, strings.ToUpper(code))
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.ErrInvalidReferral
			}
			return nil, fmt.Errorf("looking up referral code: %w", err)
		}
		user.ReferredBy = &referrer.ID
	}

	hash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	user.PasswordHash = hash

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	if err := s.verification.SendVerification(ctx, created); err != nil {
		// Registration already committed; the user can request a resend.
		s.logger.Error("failed to dispatch verification email",
			"user_id", created.ID, "error", err)
	}

	s.auditLogger.LogAccountAction("user_registered", created.ID, "", nil)
	return created, nil
}

// Login authenticates credentials and mints a session. All credential
// failures collapse to ErrUnauthorized so responses do not reveal whether
// the account exists.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := normalizeEmail(input.Email)

	if err := s.limiter.CheckIPAllowed(ctx, input.IPAddress); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.limiter.RecordFailedLogin(ctx, nil, email, input.IPAddress, input.UserAgent, "unknown_email")
			return nil, models.ErrUnauthorized
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := s.limiter.CheckLoginAllowed(user); err != nil {
		s.auditLogger.LogAuthAttempt(logger.AuditEvent{
			EventType:     "login",
			UserID:        user.ID,
			IPAddress:     input.IPAddress,
			UserAgent:     input.UserAgent,
			Success:       false,
			FailureReason: "account_locked",
		})
		return nil, err
	}

	if user.PasswordHash == "" {
		// Wallet-only account, no password to check.
		s.limiter.RecordFailedLogin(ctx, user, email, input.IPAddress, input.UserAgent, "no_password")
		return nil, models.ErrUnauthorized
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, input.Password); err != nil {
		s.limiter.RecordFailedLogin(ctx, user, email, input.IPAddress, input.UserAgent, "invalid_password")
		return nil, models.ErrUnauthorized
	}

	s.limiter.RecordSuccessfulLogin(ctx, user, input.IPAddress, input.UserAgent)

	token, expiresAt, err := s.CreateSession(ctx, user, input.RememberMe, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogAuthAttempt(logger.AuditEvent{
		EventType: "login",
		UserID:    user.ID,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
		Success:   true,
	})

	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// CreateSession issues a signed session token and persists the matching
// session row. Also used by the verification flow for post-verify auto-login.
func (s *AuthService) CreateSession(ctx context.Context, user *models.User, rememberMe bool, ipAddress, userAgent string) (string, time.Time, error) {
	token, expiresAt, err := s.tokenManager.IssueSessionToken(user.ID, user.Email, rememberMe)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issuing session token: %w", err)
	}

	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: expiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}
	if _, err := s.sessions.Create(ctx, session); err != nil {
		return "", time.Time{}, fmt.Errorf("creating session: %w", err)
	}

	return token, expiresAt, nil
}

// Logout revokes the single session behind the presented token. Unknown
// tokens are not an error; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DeleteByToken(ctx, token); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// LogoutAll revokes every session for the user and returns how many were
// removed.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	count, err := s.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting sessions: %w", err)
	}
	s.auditLogger.LogAccountAction("logout_all", userID, "", map[string]string{
		"sessions_revoked": fmt.Sprintf("%d", count),
	})
	return count, nil
}

// GetProfile returns the current user.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Username  *string
}

// UpdateProfile applies the provided fields. A username collision surfaces
// as ErrUsernameTaken.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			user.Username = nil
		} else {
			user.Username = &username
		}
	}

	updated, err := s.users.Update(ctx, userID, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrUsernameTaken
		}
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return updated, nil
}
