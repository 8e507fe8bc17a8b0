package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Auth and account state errors
	ErrAccountLocked     = errors.New("account is temporarily locked")
	ErrNoLoginMethod     = errors.New("account has no usable login method")
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrAlreadyVerified   = errors.New("email already verified")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrInvalidReferral   = errors.New("invalid referral code")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)
