package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the bearer cookie holding the signed session token.
const SessionCookieName = "sessionToken"

// CookieConfig holds session cookie settings derived from the environment.
type CookieConfig struct {
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only; true in production
	SameSite http.SameSite
}

// NewCookieConfig returns the session cookie policy for the given env:
// Secure+Strict in production, Lax over plain HTTP in development.
func NewCookieConfig(env string) CookieConfig {
	if env == "production" {
		return CookieConfig{Secure: true, SameSite: http.SameSiteStrictMode}
	}
	return CookieConfig{Secure: false, SameSite: http.SameSiteLaxMode}
}

// SetSessionCookie sets the session token in an httpOnly cookie.
func SetSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, config CookieConfig) {
	maxAge := int(time.Until(expiresAt).Seconds())
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true, // prevents JavaScript access
		Secure:   config.Secure,
		SameSite: config.SameSite,
	}
	http.SetCookie(w, cookie)
}

// ClearSessionCookie removes the session cookie so clients never retry a
// known-bad token.
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1, // Negative MaxAge deletes the cookie
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: config.SameSite,
	}
	http.SetCookie(w, cookie)
}

// GetSessionCookie retrieves the session token from the request cookies.
func GetSessionCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
