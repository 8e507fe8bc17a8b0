package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homekrypto/hkt-api/internal/models"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

func newTestTokenManager() *TokenManager {
	return NewTokenManager(testSecret, 7*24*time.Hour, 30*24*time.Hour)
}

func TestTokenManager_IssueAndValidate_RoundTrip(t *testing.T) {
	tm := newTestTokenManager()

	token, expiresAt, err := tm.IssueSessionToken("user-123", "test@example.com", false)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, 5*time.Second)

	claims, err := tm.ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_IssueSessionToken_RememberMeExtendsExpiry(t *testing.T) {
	tm := newTestTokenManager()

	_, expiresAt, err := tm.IssueSessionToken("user-123", "test@example.com", true)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), expiresAt, 5*time.Second)
}

func TestTokenManager_IssueSessionToken_UniqueTokenIDs(t *testing.T) {
	tm := newTestTokenManager()

	token1, _, err := tm.IssueSessionToken("user-123", "test@example.com", false)
	require.NoError(t, err)
	token2, _, err := tm.IssueSessionToken("user-123", "test@example.com", false)
	require.NoError(t, err)

	assert.NotEqual(t, token1, token2)
}

func TestTokenManager_ValidateSessionToken_WrongSecret(t *testing.T) {
	tm := newTestTokenManager()
	other := NewTokenManager("a-completely-different-signing-secret!", time.Hour, time.Hour)

	token, _, err := tm.IssueSessionToken("user-123", "test@example.com", false)
	require.NoError(t, err)

	_, err = other.ValidateSessionToken(token)
	assert.Error(t, err)
}

func TestTokenManager_ValidateSessionToken_TamperedPayload(t *testing.T) {
	tm := newTestTokenManager()

	token, _, err := tm.IssueSessionToken("user-123", "test@example.com", false)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	_, err = tm.ValidateSessionToken(tampered)
	assert.Error(t, err)
}

func TestTokenManager_ValidateSessionToken_ExpiredToken(t *testing.T) {
	tm := NewTokenManager(testSecret, -time.Minute, -time.Minute)

	token, _, err := tm.IssueSessionToken("user-123", "test@example.com", false)
	require.NoError(t, err)

	_, err = tm.ValidateSessionToken(token)
	assert.Error(t, err)
}

func TestTokenManager_ValidateSessionToken_RejectsWrongSigningMethod(t *testing.T) {
	tm := newTestTokenManager()

	// alg=none token with otherwise plausible claims
	claims := &models.SessionClaims{
		UserID: "user-123",
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.ValidateSessionToken(tokenString)
	assert.Error(t, err)
}

func TestTokenManager_ValidateSessionToken_MissingUserID(t *testing.T) {
	tm := newTestTokenManager()

	claims := &models.SessionClaims{
		Email: "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = tm.ValidateSessionToken(tokenString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing user id")
}

func TestTokenManager_ValidateSessionToken_Garbage(t *testing.T) {
	tm := newTestTokenManager()

	_, err := tm.ValidateSessionToken("not-a-jwt")
	assert.Error(t, err)
}

func TestGenerateOneTimeToken_HashMatchesPlain(t *testing.T) {
	plain, hash, err := GenerateOneTimeToken()
	require.NoError(t, err)

	assert.NotEmpty(t, plain)
	assert.Len(t, hash, 64) // hex-encoded SHA-256
	assert.Equal(t, hash, HashOneTimeToken(plain))
}

func TestGenerateOneTimeToken_Unpredictable(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		plain, _, err := GenerateOneTimeToken()
		require.NoError(t, err)
		assert.False(t, seen[plain], "token generated twice")
		seen[plain] = true
	}
}

func TestHashOneTimeToken_Deterministic(t *testing.T) {
	assert.Equal(t, HashOneTimeToken("abc"), HashOneTimeToken("abc"))
	assert.NotEqual(t, HashOneTimeToken("abc"), HashOneTimeToken("abd"))
}
