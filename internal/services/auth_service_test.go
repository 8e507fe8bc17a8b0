package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homekrypto/hkt-api/internal/auth"
	"github.com/homekrypto/hkt-api/internal/models"
	pkgauth "github.com/homekrypto/hkt-api/pkg/auth"
)

const testJWTSecret = "test-secret-key-with-enough-length-123456"

func testTokenManager() *auth.TokenManager {
	return auth.NewTokenManager(testJWTSecret, 7*24*time.Hour, 30*24*time.Hour)
}

func newAuthServiceForTest(users *MockUserRepository, sessions *MockSessionRepository, limiter *MockRateLimiter, sender *MockVerificationSender) *AuthService {
	if sessions == nil {
		sessions = &MockSessionRepository{}
	}
	if limiter == nil {
		limiter = &MockRateLimiter{}
	}
	if sender == nil {
		sender = &MockVerificationSender{}
	}
	return NewAuthService(users, sessions, testTokenManager(), limiter, sender, testAuditLogger(), testLogger())
}

// ============================================================================
// Register Tests
// ============================================================================

func TestAuthService_Register_Success(t *testing.T) {
	var created *models.User
	mockUserRepo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user123"
			user.ReferralCode = "AB23CD"
			created = user
			return user, nil
		},
	}
	verificationSent := false
	sender := &MockVerificationSender{
		SendVerificationFunc: func(ctx context.Context, user *models.User) error {
			verificationSent = true
			return nil
		},
	}

	svc := newAuthServiceForTest(mockUserRepo, nil, nil, sender)
	user, err := svc.Register(context.Background(), RegisterInput{
		Email:     "  User@Example.COM ",
		Password:  "SecurePassword123",
		FirstName: "John",
		LastName:  "Doe",
	})

	require.NoError(t, err)
	assert.Equal(t, "user123", user.ID)
	assert.Equal(t, "user@example.com", created.Email)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.NotEmpty(t, created.PasswordHash)
	assert.NotEqual(t, "SecurePassword123", created.PasswordHash)
	assert.True(t, verificationSent)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	mockUserRepo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			return nil, models.ErrConflict
		},
	}

	svc := newAuthServiceForTest(mockUserRepo, nil, nil, nil)
	user, err := svc.Register(context.Background(), RegisterInput{
		Email:     "user@example.com",
		Password:  "SecurePassword123",
		FirstName: "John",
		LastName:  "Doe",
	})

	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Nil(t, user)
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	svc := newAuthServiceForTest(&MockUserRepository{}, nil, nil, nil)
	user, err := svc.Register(context.Background(), RegisterInput{
		Email:     "user@example.com",
		Password:  "short",
		FirstName: "John",
		LastName:  "Doe",
	})

	assert.Error(t, err)
	assert.Nil(t, user)
}

func TestAuthService_Register_ReferralCode(t *testing.T) {
	referrer := &models.User{ID: "referrer1", ReferralCode: "XY34ZQ"}
	var created *models.User
	mockUserRepo := &MockUserRepository{
		GetByReferralCodeFunc: func(ctx context.Context, code string) (*models.User, error) {
			if code == "XY34ZQ" {
				return referrer, nil
			}
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			created = user
			user.ID = "user123"
			return user, nil
		},
	}

	svc := newAuthServiceForTest(mockUserRepo, nil, nil, nil)
	_, err := svc.Register(context.Background(), RegisterInput{
		Email:        "user@example.com",
		Password:     "SecurePassword123",
		FirstName:    "John",
		LastName:     "Doe",
		ReferralCode: "xy34zq",
	})

	require.NoError(t, err)
	require.NotNil(t, created.ReferredBy)
	assert.Equal(t, "referrer1", *created.ReferredBy)
}

func TestAuthService_Register_InvalidReferralCode(t *testing.T) {
	svc := newAuthServiceForTest(&MockUserRepository{}, nil, nil, nil)
	user, err := svc.Register(context.Background(), RegisterInput{
		Email:        "user@example.com",
		Password:     "SecurePassword123",
		FirstName:    "John",
		LastName:     "Doe",
		ReferralCode: "NOPE99",
	})

	assert.ErrorIs(t, err, models.ErrInvalidReferral)
	assert.Nil(t, user)
}

// ============================================================================
// Login Tests
// ============================================================================

func testUserWithPassword(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := pkgauth.HashPassword(password)
	require.NoError(t, err)
	return &models.User{
		ID:           "user123",
		Email:        "user@example.com",
		PasswordHash: hash,
		FirstName:    "John",
		LastName:     "Doe",
		Role:         models.RoleUser,
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	user := testUserWithPassword(t, "SecurePassword123")
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	var storedSession *models.Session
	mockSessionRepo := &MockSessionRepository{
		CreateFunc: func(ctx context.Context, session *models.Session) (*models.Session, error) {
			storedSession = session
			return session, nil
		},
	}
	successRecorded := false
	limiter := &MockRateLimiter{
		RecordSuccessfulLoginFunc: func(ctx context.Context, user *models.User, ipAddress, userAgent string) {
			successRecorded = true
		},
	}

	svc := newAuthServiceForTest(mockUserRepo, mockSessionRepo, limiter, nil)
	result, err := svc.Login(context.Background(), LoginInput{
		Email:     "user@example.com",
		Password:  "SecurePassword123",
		IPAddress: "198.51.100.7",
		UserAgent: "test-agent",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.True(t, result.ExpiresAt.After(time.Now()))
	require.NotNil(t, storedSession)
	assert.Equal(t, user.ID, storedSession.UserID)
	assert.Equal(t, result.Token, storedSession.Token)
	assert.Equal(t, "198.51.100.7", storedSession.IPAddress)
	assert.True(t, successRecorded)
}

func TestAuthService_Login_RememberMeExtendsSession(t *testing.T) {
	user := testUserWithPassword(t, "SecurePassword123")
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}

	svc := newAuthServiceForTest(mockUserRepo, nil, nil, nil)
	result, err := svc.Login(context.Background(), LoginInput{
		Email:      "user@example.com",
		Password:   "SecurePassword123",
		RememberMe: true,
	})

	require.NoError(t, err)
	assert.True(t, result.ExpiresAt.After(time.Now().Add(29*24*time.Hour)))
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	var recordedReason string
	var recordedUser *models.User
	limiter := &MockRateLimiter{
		RecordFailedLoginFunc: func(ctx context.Context, user *models.User, email, ipAddress, userAgent, reason string) {
			recordedUser = user
			recordedReason = reason
		},
	}

	svc := newAuthServiceForTest(&MockUserRepository{}, nil, limiter, nil)
	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "SecurePassword123",
	})

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Nil(t, result)
	assert.Nil(t, recordedUser)
	assert.Equal(t, "unknown_email", recordedReason)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	user := testUserWithPassword(t, "SecurePassword123")
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	var recordedReason string
	limiter := &MockRateLimiter{
		RecordFailedLoginFunc: func(ctx context.Context, user *models.User, email, ipAddress, userAgent, reason string) {
			recordedReason = reason
		},
	}

	svc := newAuthServiceForTest(mockUserRepo, nil, limiter, nil)
	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "WrongPassword123",
	})

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Nil(t, result)
	assert.Equal(t, "invalid_password", recordedReason)
}

func TestAuthService_Login_LockedAccount(t *testing.T) {
	user := testUserWithPassword(t, "SecurePassword123")
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	limiter := &MockRateLimiter{
		CheckLoginAllowedFunc: func(user *models.User) error {
			return models.ErrAccountLocked
		},
	}

	svc := newAuthServiceForTest(mockUserRepo, nil, limiter, nil)
	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "SecurePassword123",
	})

	assert.ErrorIs(t, err, models.ErrAccountLocked)
	assert.Nil(t, result)
}

func TestAuthService_Login_WalletOnlyAccount(t *testing.T) {
	wallet := "0xabc123"
	user := &models.User{
		ID:            "user123",
		Email:         "user@example.com",
		WalletAddress: &wallet,
	}
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}

	svc := newAuthServiceForTest(mockUserRepo, nil, nil, nil)
	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "user@example.com",
		Password: "SecurePassword123",
	})

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Nil(t, result)
}

func TestAuthService_Login_IPThrottled(t *testing.T) {
	limiter := &MockRateLimiter{
		CheckIPAllowedFunc: func(ctx context.Context, ipAddress string) error {
			return models.ErrRateLimitExceeded
		},
	}

	svc := newAuthServiceForTest(&MockUserRepository{}, nil, limiter, nil)
	result, err := svc.Login(context.Background(), LoginInput{
		Email:     "user@example.com",
		Password:  "SecurePassword123",
		IPAddress: "203.0.113.9",
	})

	assert.ErrorIs(t, err, models.ErrRateLimitExceeded)
	assert.Nil(t, result)
}

// ============================================================================
// Logout and Profile Tests
// ============================================================================

func TestAuthService_Logout_Idempotent(t *testing.T) {
	mockSessionRepo := &MockSessionRepository{
		DeleteByTokenFunc: func(ctx context.Context, token string) error {
			return models.ErrNotFound
		},
	}

	svc := newAuthServiceForTest(&MockUserRepository{}, mockSessionRepo, nil, nil)
	assert.NoError(t, svc.Logout(context.Background(), "already-gone"))
}

func TestAuthService_LogoutAll(t *testing.T) {
	mockSessionRepo := &MockSessionRepository{
		DeleteAllForUserFunc: func(ctx context.Context, userID string) (int64, error) {
			return 3, nil
		},
	}

	svc := newAuthServiceForTest(&MockUserRepository{}, mockSessionRepo, nil, nil)
	count, err := svc.LogoutAll(context.Background(), "user123")

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestAuthService_UpdateProfile_UsernameTaken(t *testing.T) {
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Email: "user@example.com"}, nil
		},
		UpdateFunc: func(ctx context.Context, id string, user *models.User) (*models.User, error) {
			return nil, models.ErrConflict
		},
	}

	svc := newAuthServiceForTest(mockUserRepo, nil, nil, nil)
	username := "taken"
	user, err := svc.UpdateProfile(context.Background(), "user123", UpdateProfileInput{Username: &username})

	assert.ErrorIs(t, err, models.ErrUsernameTaken)
	assert.Nil(t, user)
}

func TestAuthService_UpdateProfile_PartialUpdate(t *testing.T) {
	var updated *models.User
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, FirstName: "John", LastName: "Doe"}, nil
		},
		UpdateFunc: func(ctx context.Context, id string, user *models.User) (*models.User, error) {
			updated = user
			return user, nil
		},
	}

	svc := newAuthServiceForTest(mockUserRepo, nil, nil, nil)
	firstName := "Jane"
	_, err := svc.UpdateProfile(context.Background(), "user123", UpdateProfileInput{FirstName: &firstName})

	require.NoError(t, err)
	assert.Equal(t, "Jane", updated.FirstName)
	assert.Equal(t, "Doe", updated.LastName)
}
