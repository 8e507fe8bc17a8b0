package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is a server-tracked, revocable record backing the sessionToken
// cookie. The token column holds the signed JWT so a bearer credential is
// only accepted while its row exists (revocation) and before expiry.
type Session struct {
	ID         string
	UserID     string
	Token      string
	ExpiresAt  time.Time
	UserAgent  string
	IPAddress  string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// IsExpired checks if the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SessionClaims are the compact claims signed into a session token.
// The role is deliberately absent: authorization is re-read from the store
// on every request so privilege revocation takes effect immediately.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
