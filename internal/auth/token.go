package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/homekrypto/hkt-api/internal/models"
)

const oneTimeTokenBytes = 32 // 256 bits of entropy

// TokenManager signs and validates session tokens and generates the opaque
// one-time tokens used for password reset and email verification.
//
// A session token is valid only while BOTH hold: its HS256 signature checks
// out (defense in depth, no store lookup needed to reject garbage) AND its
// sessions row still exists and is unexpired (revocability).
type TokenManager struct {
	secret           string
	sessionExpiry    time.Duration
	rememberMeExpiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, sessionExpiry, rememberMeExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:           secret,
		sessionExpiry:    sessionExpiry,
		rememberMeExpiry: rememberMeExpiry,
	}
}

// SessionTTL returns the session lifetime for the given rememberMe choice.
func (tm *TokenManager) SessionTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return tm.rememberMeExpiry
	}
	return tm.sessionExpiry
}

// IssueSessionToken creates a signed session token. The caller records the
// returned token in the session store; expiry here and on the row match.
func (tm *TokenManager) IssueSessionToken(userID, email string, rememberMe bool) (string, time.Time, error) {
	expiresAt := time.Now().Add(tm.SessionTTL(rememberMe))

	claims := &models.SessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateSessionToken verifies the token signature and returns its claims.
// A valid signature is necessary but not sufficient: the caller must still
// check the session store for revocation.
func (tm *TokenManager) ValidateSessionToken(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: missing user id")
	}

	return claims, nil
}

// GenerateOneTimeToken produces a cryptographically unpredictable opaque
// token. The plain form goes into the emailed link; only the hash is stored.
func GenerateOneTimeToken() (plain, hash string, err error) {
	buf := make([]byte, oneTimeTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}

	plain = base64.URLEncoding.EncodeToString(buf)
	return plain, HashOneTimeToken(plain), nil
}

// HashOneTimeToken returns the storage form of a one-time token.
func HashOneTimeToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
