package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/homekrypto/hkt-api/internal/models"
)

type lockoutUserRepository interface {
	RecordFailedLogin(ctx context.Context, id string) (int, error)
	LockAccount(ctx context.Context, id string, until time.Time) error
	RecordSuccessfulLogin(ctx context.Context, id string) error
}

type loginAttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	GetFailedCountByIP(ctx context.Context, ipAddress string, since time.Time) (int, error)
}

// RateLimitService tracks login failures per account and per source IP.
// Accounts lock for a fixed window after too many consecutive failures.
// Bookkeeping errors are logged and swallowed so a storage hiccup degrades
// to no limiting rather than blocking all logins.
type RateLimitService struct {
	users         lockoutUserRepository
	attempts      loginAttemptRepository
	maxFailures   int
	lockoutWindow time.Duration
	logger        *slog.Logger
}

func NewRateLimitService(users lockoutUserRepository, attempts loginAttemptRepository, maxFailures int, lockoutWindow time.Duration, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		users:         users,
		attempts:      attempts,
		maxFailures:   maxFailures,
		lockoutWindow: lockoutWindow,
		logger:        logger,
	}
}

// CheckLoginAllowed rejects attempts against a locked account before any
// password work happens.
func (s *RateLimitService) CheckLoginAllowed(user *models.User) error {
	if user.IsLocked() {
		return models.ErrAccountLocked
	}
	return nil
}

// CheckIPAllowed rejects sources that have accumulated too many failures
// across any accounts inside the window.
func (s *RateLimitService) CheckIPAllowed(ctx context.Context, ipAddress string) error {
	since := time.Now().Add(-s.lockoutWindow)
	count, err := s.attempts.GetFailedCountByIP(ctx, ipAddress, since)
	if err != nil {
		s.logger.Error("failed to count login attempts by IP", "error", err)
		return nil
	}
	if count >= s.maxFailures*2 {
		return models.ErrRateLimitExceeded
	}
	return nil
}

// RecordFailedLogin logs the attempt and advances the account failure
// counter. Crossing the threshold locks the account until the window passes.
// The user may be nil when the email did not resolve to an account.
func (s *RateLimitService) RecordFailedLogin(ctx context.Context, user *models.User, email, ipAddress, userAgent, reason string) {
	s.recordAttempt(ctx, email, ipAddress, userAgent, false, &reason)

	if user == nil {
		return
	}

	count, err := s.users.RecordFailedLogin(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to record login failure", "user_id", user.ID, "error", err)
		return
	}
	if count >= s.maxFailures {
		until := time.Now().Add(s.lockoutWindow)
		if err := s.users.LockAccount(ctx, user.ID, until); err != nil {
			s.logger.Error("failed to lock account", "user_id", user.ID, "error", err)
			return
		}
		s.logger.Warn("account locked after repeated login failures",
			"user_id", user.ID, "failures", count, "locked_until", until)
	}
}

// RecordSuccessfulLogin logs the attempt and clears lockout state.
func (s *RateLimitService) RecordSuccessfulLogin(ctx context.Context, user *models.User, ipAddress, userAgent string) {
	s.recordAttempt(ctx, user.Email, ipAddress, userAgent, true, nil)

	if err := s.users.RecordSuccessfulLogin(ctx, user.ID); err != nil {
		s.logger.Error("failed to clear lockout state", "user_id", user.ID, "error", err)
	}
}

func (s *RateLimitService) recordAttempt(ctx context.Context, email, ipAddress, userAgent string, success bool, reason *string) {
	attempt := &models.LoginAttempt{
		Email:         email,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		Success:       success,
		FailureReason: reason,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
	}
	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt", "error", err)
	}
}
