package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/homekrypto/hkt-api/internal/auth"
	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/internal/services"
	pkgauth "github.com/homekrypto/hkt-api/pkg/auth"
	pkghttp "github.com/homekrypto/hkt-api/pkg/http"
)

// forgotPasswordMessage is returned whether or not the account exists.
const forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, input services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, input services.LoginInput) (*services.LoginResult, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, userID string) (int64, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, input services.UpdateProfileInput) (*models.User, error)
}

// PasswordServiceInterface defines the interface for the password flows
type PasswordServiceInterface interface {
	RequestReset(ctx context.Context, email string) error
	Reset(ctx context.Context, plainToken, newPassword, ipAddress, userAgent string) error
	Change(ctx context.Context, userID, currentPassword, newPassword, ipAddress, userAgent string) error
}

// EmailVerificationServiceInterface defines the interface for email verification
type EmailVerificationServiceInterface interface {
	Verify(ctx context.Context, plainToken, ipAddress, userAgent string) (*services.LoginResult, error)
	Resend(ctx context.Context, email string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	auth         AuthServiceInterface
	passwords    PasswordServiceInterface
	verification EmailVerificationServiceInterface
	cookieConfig auth.CookieConfig
	ipConfig     *pkghttp.IPConfig
	logger       *slog.Logger
}

func NewAuthHandler(
	authService AuthServiceInterface,
	passwords PasswordServiceInterface,
	verification EmailVerificationServiceInterface,
	cookieConfig auth.CookieConfig,
	ipConfig *pkghttp.IPConfig,
	log *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:         authService,
		passwords:    passwords,
		verification: verification,
		cookieConfig: cookieConfig,
		ipConfig:     ipConfig,
		logger:       log,
	}
}

// Request DTOs

type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	FirstName    string `json:"first_name" validate:"required,min=1,max=100"`
	LastName     string `json:"last_name" validate:"required,min=1,max=100"`
	ReferralCode string `json:"referral_code" validate:"omitempty,len=6"`
}

type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Username  *string `json:"username" validate:"omitempty,max=50"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.auth.Register(r.Context(), services.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		var pve *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteBadRequest(w, "Email is already registered")
		case errors.Is(err, models.ErrInvalidReferral):
			pkghttp.WriteBadRequest(w, "Invalid referral code")
		case errors.As(err, &pve):
			pkghttp.WriteBadRequest(w, pve.Error())
		default:
			pkghttp.WriteInternalError(w, "Registration failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":    toUserResponse(user),
		"message": "Registration successful. Please check your email to verify your account.",
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.auth.Login(r.Context(), services.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		IPAddress:  pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAccountLocked):
			pkghttp.WriteTooManyRequests(w, "Account temporarily locked due to repeated failed logins. Try again later.")
		case errors.Is(err, models.ErrRateLimitExceeded):
			pkghttp.WriteTooManyRequests(w, "Too many login attempts. Try again later.")
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Invalid email or password")
		default:
			pkghttp.WriteInternalError(w, "Login failed")
		}
		return
	}

	auth.SetSessionCookie(w, result.Token, result.ExpiresAt, h.cookieConfig)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": toUserResponse(result.User),
	})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, err := auth.GetSessionCookie(r); err == nil {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			pkghttp.WriteInternalError(w, "Logout failed")
			return
		}
	}

	auth.ClearSessionCookie(w, h.cookieConfig)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out",
	})
}

// LogoutAll handles POST /auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	count, err := h.auth.LogoutAll(r.Context(), user.ID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Logout failed")
		return
	}

	auth.ClearSessionCookie(w, h.cookieConfig)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions_revoked": count,
	})
}

// ForgotPassword handles POST /auth/forgot-password. The response is the
// same whether or not the account exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	// Internal failures are not surfaced to the client, but a broken reset
	// flow still has to show up in the logs.
	if err := h.passwords.RequestReset(r.Context(), req.Email); err != nil {
		h.logger.Warn("password reset request failed", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": forgotPasswordMessage,
	})
}

// ResetPassword handles POST /auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.passwords.Reset(r.Context(), req.Token, req.NewPassword,
		pkghttp.ExtractClientIP(r, h.ipConfig), r.UserAgent())
	if err != nil {
		var pve *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrInvalidToken):
			pkghttp.WriteBadRequest(w, "Invalid or expired reset token")
		case errors.As(err, &pve):
			pkghttp.WriteBadRequest(w, pve.Error())
		default:
			pkghttp.WriteInternalError(w, "Password reset failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password has been reset. Please log in with your new password.",
	})
}

// ChangePassword handles POST /auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.passwords.Change(r.Context(), user.ID, req.CurrentPassword, req.NewPassword,
		pkghttp.ExtractClientIP(r, h.ipConfig), r.UserAgent())
	if err != nil {
		var pve *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Current password is incorrect")
		case errors.Is(err, models.ErrNoLoginMethod):
			pkghttp.WriteBadRequest(w, "Account has no password login")
		case errors.As(err, &pve):
			pkghttp.WriteBadRequest(w, pve.Error())
		default:
			pkghttp.WriteInternalError(w, "Password change failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password changed successfully",
	})
}

// VerifyEmail handles GET /auth/verify-email?token=...
// A successful verification logs the user in.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		pkghttp.WriteBadRequest(w, "Missing verification token")
		return
	}

	result, err := h.verification.Verify(r.Context(), token,
		pkghttp.ExtractClientIP(r, h.ipConfig), r.UserAgent())
	if err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			pkghttp.WriteBadRequest(w, "Invalid or expired verification token")
			return
		}
		pkghttp.WriteInternalError(w, "Email verification failed")
		return
	}

	auth.SetSessionCookie(w, result.Token, result.ExpiresAt, h.cookieConfig)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    toUserResponse(result.User),
		"message": "Email verified successfully",
	})
}

// ResendVerification handles POST /auth/resend-verification
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.verification.Resend(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "No account found for that email")
		case errors.Is(err, models.ErrAlreadyVerified):
			pkghttp.WriteBadRequest(w, "Email is already verified")
		default:
			pkghttp.WriteInternalError(w, "Failed to resend verification email")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Verification email sent",
	})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": toUserResponse(user),
	})
}

// UpdateProfile handles PUT /auth/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	updated, err := h.auth.UpdateProfile(r.Context(), user.ID, services.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUsernameTaken):
			pkghttp.WriteBadRequest(w, "Username is already taken")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		default:
			pkghttp.WriteInternalError(w, "Profile update failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": toUserResponse(updated),
	})
}
