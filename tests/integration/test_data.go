package integration

import (
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

var emailCounter int64

// UniqueEmail returns an email address unique within the test run
func UniqueEmail(prefix string) string {
	n := atomic.AddInt64(&emailCounter, 1)
	return fmt.Sprintf("%s-%d-%d@example.com", prefix, time.Now().UnixNano(), n)
}

// TestPassword satisfies the password policy used at registration
const TestPassword = "CorrectHorse9!"

// RegisterPayload builds a valid registration request body
func RegisterPayload(email string) map[string]interface{} {
	return map[string]interface{}{
		"email":      email,
		"password":   TestPassword,
		"first_name": "Test",
		"last_name":  "User",
	}
}

// AgentApplicationPayload builds a valid agent application request body
func AgentApplicationPayload(email string) map[string]interface{} {
	return map[string]interface{}{
		"email":      email,
		"first_name": "Anna",
		"last_name":  "Kowalska",
		"phone":      "+48 600 100 200",
		"company":    "Kowalska Estates",
		"city":       "Warsaw",
		"country":    "Poland",
	}
}

// ExtractToken pulls the token query parameter out of a link captured by
// CapturingEmailService.
func ExtractToken(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	token := u.Query().Get("token")
	if token == "" {
		return "", fmt.Errorf("no token parameter in link %q", link)
	}
	return token, nil
}

// SlugFromPageURL extracts the country/slug path from an agent page URL
func SlugFromPageURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	const prefix = "/agents/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", fmt.Errorf("unexpected agent page path %q", u.Path)
	}
	return strings.TrimPrefix(u.Path, prefix), nil
}
