package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveWithHeaders(t *testing.T, env string, tls bool) *httptest.ResponseRecorder {
	t.Helper()
	handler := SecurityHeaders(SecurityHeadersConfig{Env: env})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	if tls {
		req.Header.Set("X-Forwarded-Proto", "https")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_SetOnEveryResponse(t *testing.T) {
	w := serveWithHeaders(t, "production", false)

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Cross-Origin-Opener-Policy", "same-origin"},
		{"Cross-Origin-Resource-Policy", "same-origin"},
	}
	for _, tt := range tests {
		if got := w.Header().Get(tt.header); got != tt.expected {
			t.Errorf("Header %s: got %q, want %q", tt.header, got, tt.expected)
		}
	}

	csp := w.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "default-src 'none'") {
		t.Errorf("CSP should forbid all sources for a JSON API: %s", csp)
	}
}

func TestSecurityHeaders_HSTSOnlyForProductionTLS(t *testing.T) {
	if got := serveWithHeaders(t, "production", true).Header().Get("Strict-Transport-Security"); got == "" {
		t.Error("expected HSTS header for production TLS request")
	}
	if got := serveWithHeaders(t, "production", false).Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS must not be set for plain HTTP, got %q", got)
	}
	if got := serveWithHeaders(t, "development", true).Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS must not be set in development, got %q", got)
	}
}
