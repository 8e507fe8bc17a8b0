package models

import (
	"time"
)

// User roles
const (
	RoleUser  = "user"
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

type User struct {
	ID                  string
	Email               string // stored lowercase
	PasswordHash        string // empty for wallet-only accounts
	FirstName           string
	LastName            string
	Username            *string
	Role                string // "user", "agent", "admin"
	EmailVerified       bool
	ReferralCode        string // generated at creation, unique
	ReferredBy          *string
	WalletAddress       *string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasLoginMethod reports whether the account can authenticate at all.
// Exactly one of password hash or wallet address is required for a usable login.
func (u *User) HasLoginMethod() bool {
	return u.PasswordHash != "" || u.WalletAddress != nil
}

// IsLocked reports whether the account is inside a lockout window.
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}
