package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/homekrypto/hkt-api/internal/models"
	pkghttp "github.com/homekrypto/hkt-api/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing the resolved user in context
	UserContextKey contextKey = "user"
)

// SessionStore is the session lookup surface the middleware needs.
type SessionStore interface {
	GetByTokenAndUser(ctx context.Context, token, userID string) (*models.Session, error)
	Touch(ctx context.Context, id string) error
}

// UserStore loads the authenticated user fresh on every request so role
// changes and deletions take effect immediately.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Authenticator gates protected routes against the session cookie.
type Authenticator struct {
	tm        *TokenManager
	sessions  SessionStore
	users     UserStore
	cookieCfg CookieConfig
	logger    *slog.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tm *TokenManager, sessions SessionStore, users UserStore, cookieCfg CookieConfig, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		tm:        tm,
		sessions:  sessions,
		users:     users,
		cookieCfg: cookieCfg,
		logger:    logger,
	}
}

// Middleware validates the session cookie and injects the resolved user into
// the request context. Every failure path clears the cookie before the 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := GetSessionCookie(r)
		if err != nil || token == "" {
			pkghttp.WriteUnauthorized(w, "Authentication required")
			return
		}

		claims, err := a.tm.ValidateSessionToken(token)
		if err != nil {
			ClearSessionCookie(w, a.cookieCfg)
			pkghttp.WriteUnauthorized(w, "Invalid or expired session")
			return
		}

		// The row must still exist: logout, logout-all and password reset
		// all revoke by deleting session rows.
		session, err := a.sessions.GetByTokenAndUser(r.Context(), token, claims.UserID)
		if err != nil || session.IsExpired() {
			ClearSessionCookie(w, a.cookieCfg)
			pkghttp.WriteUnauthorized(w, "Invalid or expired session")
			return
		}

		if err := a.sessions.Touch(r.Context(), session.ID); err != nil {
			// Best effort: a failed last-used update never blocks the request
			a.logger.Warn("failed to touch session", slog.String("session_id", session.ID), slog.Any("error", err))
		}

		user, err := a.users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			ClearSessionCookie(w, a.cookieCfg)
			pkghttp.WriteUnauthorized(w, "Invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin enforces the admin role. Must run after Middleware. The role
// comes from the freshly loaded user, never from token claims, so privilege
// revocation is immediate.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r)
		if user == nil {
			pkghttp.WriteUnauthorized(w, "Authentication required")
			return
		}

		if user.Role != models.RoleAdmin {
			pkghttp.WriteForbidden(w, "Admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext extracts the resolved user from the request context.
func GetUserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
