package services

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homekrypto/hkt-api/internal/auth"
	"github.com/homekrypto/hkt-api/internal/models"
)

func newVerificationServiceForTest(
	users *MockUserRepository,
	tokens *MockOneTimeTokenRepository,
	sessions *MockSessionCreator,
	mailer *MockMailQueue,
) *EmailVerificationService {
	if tokens == nil {
		tokens = &MockOneTimeTokenRepository{}
	}
	if sessions == nil {
		sessions = &MockSessionCreator{}
	}
	if mailer == nil {
		mailer = &MockMailQueue{}
	}
	return NewEmailVerificationService(
		&MockTxRunner{}, users, tokens, sessions, &MockEmailService{}, mailer,
		24*time.Hour, "https://homekrypto.com", testAuditLogger(), testLogger(),
	)
}

func TestEmailVerificationService_SendVerification(t *testing.T) {
	superseded := false
	var storedKind string
	var storedExpiry time.Time
	tokens := &MockOneTimeTokenRepository{
		SupersedePendingFunc: func(ctx context.Context, userID, kind string) (int64, error) {
			superseded = true
			return 0, nil
		},
		CreateFunc: func(ctx context.Context, userID, kind, tokenHash string, expiresAt time.Time) (*models.OneTimeToken, error) {
			storedKind = kind
			storedExpiry = expiresAt
			return &models.OneTimeToken{ID: "tok1", UserID: userID, Kind: kind, TokenHash: tokenHash, ExpiresAt: expiresAt}, nil
		},
	}
	mailer := &MockMailQueue{}

	svc := newVerificationServiceForTest(&MockUserRepository{}, tokens, nil, mailer)
	err := svc.SendVerification(context.Background(), &models.User{ID: "user123", Email: "user@example.com", FirstName: "John"})

	require.NoError(t, err)
	assert.True(t, superseded)
	assert.Equal(t, models.TokenKindEmailVerification, storedKind)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), storedExpiry, time.Minute)
	assert.Equal(t, []string{"email_verification"}, mailer.Enqueued())
}

func TestEmailVerificationService_Verify_Success(t *testing.T) {
	plain, hash, err := auth.GenerateOneTimeToken()
	require.NoError(t, err)
	token := &models.OneTimeToken{
		ID:        "tok1",
		UserID:    "user123",
		Kind:      models.TokenKindEmailVerification,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}

	verified := false
	used := false
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Email: "user@example.com", EmailVerified: true}, nil
		},
		MarkEmailVerifiedTxFunc: func(ctx context.Context, tx pgx.Tx, id string) error {
			verified = true
			return nil
		},
	}
	tokens := &MockOneTimeTokenRepository{
		GetByHashFunc: func(ctx context.Context, tokenHash string) (*models.OneTimeToken, error) {
			if tokenHash == token.TokenHash {
				return token, nil
			}
			return nil, models.ErrNotFound
		},
		MarkUsedTxFunc: func(ctx context.Context, tx pgx.Tx, id string) error {
			used = true
			return nil
		},
	}
	expiresAt := time.Now().Add(7 * 24 * time.Hour)
	sessions := &MockSessionCreator{
		CreateSessionFunc: func(ctx context.Context, user *models.User, rememberMe bool, ipAddress, userAgent string) (string, time.Time, error) {
			assert.False(t, rememberMe)
			return "fresh-session", expiresAt, nil
		},
	}

	svc := newVerificationServiceForTest(mockUserRepo, tokens, sessions, nil)
	result, err := svc.Verify(context.Background(), plain, "198.51.100.7", "test-agent")

	require.NoError(t, err)
	assert.True(t, verified)
	assert.True(t, used)
	assert.Equal(t, "fresh-session", result.Token)
	assert.Equal(t, expiresAt, result.ExpiresAt)
	assert.True(t, result.User.EmailVerified)
}

func TestEmailVerificationService_Verify_InvalidToken(t *testing.T) {
	now := time.Now()
	used := now.Add(-time.Minute)

	tests := []struct {
		name  string
		token *models.OneTimeToken
	}{
		{"expired", &models.OneTimeToken{Kind: models.TokenKindEmailVerification, ExpiresAt: now.Add(-time.Hour)}},
		{"already used", &models.OneTimeToken{Kind: models.TokenKindEmailVerification, ExpiresAt: now.Add(time.Hour), UsedAt: &used}},
		{"superseded", &models.OneTimeToken{Kind: models.TokenKindEmailVerification, ExpiresAt: now.Add(time.Hour), SupersededAt: &used}},
		{"wrong kind", &models.OneTimeToken{Kind: models.TokenKindPasswordReset, ExpiresAt: now.Add(time.Hour)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := &MockOneTimeTokenRepository{
				GetByHashFunc: func(ctx context.Context, tokenHash string) (*models.OneTimeToken, error) {
					return tt.token, nil
				},
			}
			svc := newVerificationServiceForTest(&MockUserRepository{}, tokens, nil, nil)
			result, err := svc.Verify(context.Background(), "whatever", "", "")
			assert.ErrorIs(t, err, models.ErrInvalidToken)
			assert.Nil(t, result)
		})
	}
}

func TestEmailVerificationService_Verify_UnknownToken(t *testing.T) {
	svc := newVerificationServiceForTest(&MockUserRepository{}, nil, nil, nil)
	result, err := svc.Verify(context.Background(), "never-issued", "", "")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
	assert.Nil(t, result)
}

func TestEmailVerificationService_Resend_UnknownEmail(t *testing.T) {
	svc := newVerificationServiceForTest(&MockUserRepository{}, nil, nil, nil)
	err := svc.Resend(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEmailVerificationService_Resend_AlreadyVerified(t *testing.T) {
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: "user123", Email: email, EmailVerified: true}, nil
		},
	}

	svc := newVerificationServiceForTest(mockUserRepo, nil, nil, nil)
	err := svc.Resend(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, models.ErrAlreadyVerified)
}

func TestEmailVerificationService_Resend_Success(t *testing.T) {
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: "user123", Email: email}, nil
		},
	}
	mailer := &MockMailQueue{}

	svc := newVerificationServiceForTest(mockUserRepo, nil, nil, mailer)
	err := svc.Resend(context.Background(), "user@example.com")

	require.NoError(t, err)
	assert.Equal(t, []string{"email_verification"}, mailer.Enqueued())
}
