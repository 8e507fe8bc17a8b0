package models

import (
	"time"
)

// One-time token kinds
const (
	TokenKindPasswordReset     = "password_reset"
	TokenKindEmailVerification = "email_verification"
)

// OneTimeToken is a single-use, expiring credential used for password reset
// or email verification. Only the SHA-256 hash of the plain token is stored;
// the plain form exists solely in the emailed link.
type OneTimeToken struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Kind         string     `json:"kind"`
	TokenHash    string     `json:"-"` // Never expose token hash
	ExpiresAt    time.Time  `json:"expires_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	SupersededAt *time.Time `json:"superseded_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsExpired checks if the token has expired
func (t *OneTimeToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsUsed checks if the token has already been consumed
func (t *OneTimeToken) IsUsed() bool {
	return t.UsedAt != nil
}

// IsSuperseded checks if a newer token of the same kind replaced this one
func (t *OneTimeToken) IsSuperseded() bool {
	return t.SupersededAt != nil
}

// IsValid checks if the token is still consumable
func (t *OneTimeToken) IsValid() bool {
	return !t.IsExpired() && !t.IsUsed() && !t.IsSuperseded()
}
