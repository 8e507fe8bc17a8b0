package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCookieConfig_Production(t *testing.T) {
	cfg := NewCookieConfig("production")
	assert.True(t, cfg.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cfg.SameSite)
}

func TestNewCookieConfig_Development(t *testing.T) {
	cfg := NewCookieConfig("development")
	assert.False(t, cfg.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cfg.SameSite)
}

func TestSetSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	expiresAt := time.Now().Add(time.Hour)

	SetSessionCookie(rec, "signed-token", expiresAt, NewCookieConfig("production"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, "signed-token", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Positive(t, c.MaxAge)
}

func TestClearSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()

	ClearSessionCookie(rec, NewCookieConfig("development"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
	assert.True(t, c.HttpOnly)
}

func TestGetSessionCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok"})

	value, err := GetSessionCookie(req)
	require.NoError(t, err)
	assert.Equal(t, "tok", value)
}

func TestGetSessionCookie_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := GetSessionCookie(req)
	assert.Error(t, err)
}
