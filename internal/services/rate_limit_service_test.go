package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/homekrypto/hkt-api/internal/models"
)

func newRateLimitServiceForTest(users *MockUserRepository, attempts *MockLoginAttemptRepository) *RateLimitService {
	if attempts == nil {
		attempts = &MockLoginAttemptRepository{}
	}
	return NewRateLimitService(users, attempts, 5, 15*time.Minute, testLogger())
}

func TestRateLimitService_CheckLoginAllowed(t *testing.T) {
	svc := newRateLimitServiceForTest(&MockUserRepository{}, nil)

	future := time.Now().Add(10 * time.Minute)
	past := time.Now().Add(-time.Minute)

	assert.NoError(t, svc.CheckLoginAllowed(&models.User{}))
	assert.NoError(t, svc.CheckLoginAllowed(&models.User{LockedUntil: &past}))
	assert.ErrorIs(t, svc.CheckLoginAllowed(&models.User{LockedUntil: &future}), models.ErrAccountLocked)
}

func TestRateLimitService_RecordFailedLogin_LocksAtThreshold(t *testing.T) {
	locked := false
	mockUserRepo := &MockUserRepository{
		RecordFailedLoginFunc: func(ctx context.Context, id string) (int, error) {
			return 5, nil
		},
		LockAccountFunc: func(ctx context.Context, id string, until time.Time) error {
			locked = true
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), until, time.Minute)
			return nil
		},
	}

	svc := newRateLimitServiceForTest(mockUserRepo, nil)
	svc.RecordFailedLogin(context.Background(), &models.User{ID: "user123", Email: "user@example.com"},
		"user@example.com", "198.51.100.7", "test-agent", "invalid_password")

	assert.True(t, locked)
}

func TestRateLimitService_RecordFailedLogin_BelowThreshold(t *testing.T) {
	locked := false
	mockUserRepo := &MockUserRepository{
		RecordFailedLoginFunc: func(ctx context.Context, id string) (int, error) {
			return 2, nil
		},
		LockAccountFunc: func(ctx context.Context, id string, until time.Time) error {
			locked = true
			return nil
		},
	}

	svc := newRateLimitServiceForTest(mockUserRepo, nil)
	svc.RecordFailedLogin(context.Background(), &models.User{ID: "user123"}, "user@example.com", "", "", "invalid_password")

	assert.False(t, locked)
}

func TestRateLimitService_RecordFailedLogin_UnknownAccountOnlyLogsAttempt(t *testing.T) {
	var recorded *models.LoginAttempt
	attempts := &MockLoginAttemptRepository{
		RecordAttemptFunc: func(ctx context.Context, attempt *models.LoginAttempt) error {
			recorded = attempt
			return nil
		},
	}
	counterTouched := false
	mockUserRepo := &MockUserRepository{
		RecordFailedLoginFunc: func(ctx context.Context, id string) (int, error) {
			counterTouched = true
			return 0, nil
		},
	}

	svc := newRateLimitServiceForTest(mockUserRepo, attempts)
	svc.RecordFailedLogin(context.Background(), nil, "nobody@example.com", "198.51.100.7", "test-agent", "unknown_email")

	assert.False(t, counterTouched)
	assert.NotNil(t, recorded)
	assert.False(t, recorded.Success)
	assert.Equal(t, "nobody@example.com", recorded.Email)
}

func TestRateLimitService_CheckIPAllowed(t *testing.T) {
	attempts := &MockLoginAttemptRepository{
		GetFailedCountByIPFunc: func(ctx context.Context, ipAddress string, since time.Time) (int, error) {
			if ipAddress == "203.0.113.9" {
				return 20, nil
			}
			return 1, nil
		},
	}

	svc := newRateLimitServiceForTest(&MockUserRepository{}, attempts)
	assert.NoError(t, svc.CheckIPAllowed(context.Background(), "198.51.100.7"))
	assert.ErrorIs(t, svc.CheckIPAllowed(context.Background(), "203.0.113.9"), models.ErrRateLimitExceeded)
}

func TestRateLimitService_CheckIPAllowed_FailsOpen(t *testing.T) {
	attempts := &MockLoginAttemptRepository{
		GetFailedCountByIPFunc: func(ctx context.Context, ipAddress string, since time.Time) (int, error) {
			return 0, errors.New("connection refused")
		},
	}

	svc := newRateLimitServiceForTest(&MockUserRepository{}, attempts)
	assert.NoError(t, svc.CheckIPAllowed(context.Background(), "198.51.100.7"))
}

func TestRateLimitService_RecordSuccessfulLogin(t *testing.T) {
	cleared := false
	mockUserRepo := &MockUserRepository{
		RecordSuccessfulLoginFunc: func(ctx context.Context, id string) error {
			cleared = true
			return nil
		},
	}
	var recorded *models.LoginAttempt
	attempts := &MockLoginAttemptRepository{
		RecordAttemptFunc: func(ctx context.Context, attempt *models.LoginAttempt) error {
			recorded = attempt
			return nil
		},
	}

	svc := newRateLimitServiceForTest(mockUserRepo, attempts)
	svc.RecordSuccessfulLogin(context.Background(), &models.User{ID: "user123", Email: "user@example.com"}, "198.51.100.7", "test-agent")

	assert.True(t, cleared)
	assert.NotNil(t, recorded)
	assert.True(t, recorded.Success)
}
