package models

import "time"

// LoginAttempt records one login attempt for auditing and per-IP throttling.
// Per-account lockout state lives on the users row itself
// (FailedLoginAttempts / LockedUntil).
type LoginAttempt struct {
	ID            string
	Email         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason *string
	AttemptTime   time.Time
	ExpiresAt     time.Time // retention horizon for cleanup
}
