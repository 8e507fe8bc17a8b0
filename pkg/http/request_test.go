package http_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	pkghttp "github.com/homekrypto/hkt-api/pkg/http"
)

func TestExtractClientIP(t *testing.T) {
	internalProxies := []string{"10.0.0.0/8", "127.0.0.1/32"}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		config     *pkghttp.IPConfig
		want       string
	}{
		{
			name:       "direct connection ignores forwarding headers",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4, 5.6.7.8",
			xri:        "192.168.1.1",
			config:     &pkghttp.IPConfig{TrustedProxies: internalProxies},
			want:       "203.0.113.10",
		},
		{
			name:       "trusted proxy uses first forwarded address",
			remoteAddr: "10.0.0.5:54321",
			xff:        "203.0.113.42, 10.0.0.5",
			config:     &pkghttp.IPConfig{TrustedProxies: internalProxies},
			want:       "203.0.113.42",
		},
		{
			name:       "trusted proxy falls back to x-real-ip",
			remoteAddr: "10.0.0.5:54321",
			xri:        "203.0.113.42",
			config:     &pkghttp.IPConfig{TrustedProxies: internalProxies},
			want:       "203.0.113.42",
		},
		{
			name:       "nil config never trusts headers",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4",
			config:     nil,
			want:       "203.0.113.10",
		},
		{
			name:       "empty proxy list never trusts headers",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4",
			config:     &pkghttp.IPConfig{},
			want:       "203.0.113.10",
		},
		{
			name:       "invalid cidr entries are skipped",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4",
			config:     &pkghttp.IPConfig{TrustedProxies: []string{"not-a-cidr"}},
			want:       "203.0.113.10",
		},
		{
			name:       "ipv6 proxy and client",
			remoteAddr: "[::1]:54321",
			xff:        "2001:db8::1",
			config:     &pkghttp.IPConfig{TrustedProxies: []string{"::1/128"}},
			want:       "2001:db8::1",
		},
		{
			name:       "port stripped from remote addr",
			remoteAddr: "203.0.113.10:54321",
			config:     &pkghttp.IPConfig{},
			want:       "203.0.113.10",
		},
		{
			name:       "claimed localhost does not bypass the untrusted peer",
			remoteAddr: "203.0.113.10:54321",
			xff:        "127.0.0.1, 203.0.113.10",
			config:     &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}},
			want:       "203.0.113.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			assert.Equal(t, tt.want, pkghttp.ExtractClientIP(req, tt.config))
		})
	}
}
