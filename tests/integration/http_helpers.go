package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/homekrypto/hkt-api/internal/auth"
	"github.com/homekrypto/hkt-api/internal/config"
	"github.com/homekrypto/hkt-api/internal/database"
	"github.com/homekrypto/hkt-api/internal/handlers"
	middlewareCustom "github.com/homekrypto/hkt-api/internal/middleware"
	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/internal/repositories"
	"github.com/homekrypto/hkt-api/internal/routes"
	"github.com/homekrypto/hkt-api/internal/services"
	pkghttp "github.com/homekrypto/hkt-api/pkg/http"
	pkglogger "github.com/homekrypto/hkt-api/pkg/logger"
)

// SentEmail is a captured outbound email message
type SentEmail struct {
	To   string
	Kind string
	Link string
}

// CapturingEmailService records sent emails for test assertions
type CapturingEmailService struct {
	mu     sync.Mutex
	Emails []SentEmail
}

func (m *CapturingEmailService) record(to, kind, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Emails = append(m.Emails, SentEmail{To: to, Kind: kind, Link: link})
	return nil
}

func (m *CapturingEmailService) SendVerificationEmail(ctx context.Context, toEmail, firstName, verifyURL string) error {
	return m.record(toEmail, "email_verification", verifyURL)
}

func (m *CapturingEmailService) SendPasswordResetEmail(ctx context.Context, toEmail, firstName, resetURL string) error {
	return m.record(toEmail, "password_reset", resetURL)
}

func (m *CapturingEmailService) SendPasswordChangedEmail(ctx context.Context, toEmail, firstName, ipAddress, userAgent string, changedAt time.Time, sessionsRevoked bool) error {
	return m.record(toEmail, "password_changed", "")
}

func (m *CapturingEmailService) SendAgentApplicationEmail(ctx context.Context, agent *models.Agent) error {
	return m.record(agent.Email, "agent_application_received", "")
}

func (m *CapturingEmailService) SendAgentApprovalEmail(ctx context.Context, agent *models.Agent, pageURL string) error {
	return m.record(agent.Email, "agent_approved", pageURL)
}

func (m *CapturingEmailService) SendAgentDenialEmail(ctx context.Context, agent *models.Agent, reason string) error {
	return m.record(agent.Email, "agent_denied", "")
}

func (m *CapturingEmailService) SendAgentRemovalEmail(ctx context.Context, agent *models.Agent) error {
	return m.record(agent.Email, "agent_removed", "")
}

func (m *CapturingEmailService) SendAccountDeletedEmail(ctx context.Context, toEmail, firstName string) error {
	return m.record(toEmail, "account_deleted", "")
}

func (m *CapturingEmailService) SendNewsletterWelcomeEmail(ctx context.Context, toEmail string) error {
	return m.record(toEmail, "newsletter_welcome", "")
}

func (m *CapturingEmailService) SendNewsletterSignupNotice(ctx context.Context, subscriberEmail string) error {
	return m.record(subscriberEmail, "newsletter_signup_notice", "")
}

func (m *CapturingEmailService) SendContactFormEmail(ctx context.Context, msg *models.ContactMessage) error {
	return m.record(msg.Email, "contact_message", "")
}

// LastEmail returns the most recent captured email
func (m *CapturingEmailService) LastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Emails) == 0 {
		return nil
	}
	return &m.Emails[len(m.Emails)-1]
}

// syncMailQueue runs enqueued sends immediately so tests never race the
// background worker.
type syncMailQueue struct{}

func (syncMailQueue) Enqueue(name string, send func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = send(ctx)
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	EmailService *CapturingEmailService
	Config       *config.Config

	client *http.Client
	logger *slog.Logger
}

// NewTestServer initializes a complete HTTP server with real database + captured email
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:          "0",
			Env:           "test",
			PublicBaseURL: "http://localhost:8080",
		},
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-32-characters-long-for-testing",
			SessionExpiry:      7 * 24 * time.Hour,
			RememberMeExpiry:   30 * 24 * time.Hour,
			ResetTokenExpiry:   1 * time.Hour,
			VerifyTokenExpiry:  24 * time.Hour,
			MaxFailedLogins:    5,
			LockoutWindow:      15 * time.Minute,
			CleanupInterval:    1 * time.Hour,
			LoginRatePerMinute: 1000, // keep the transport throttle out of the way
		},
	}

	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	tokenRepo := repositories.NewOneTimeTokenRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)
	agentRepo := repositories.NewAgentRepository(db)
	agentPageRepo := repositories.NewAgentPageRepository(db)
	propertyRepo := repositories.NewPropertyRepository(db)
	hktRepo := repositories.NewTokenRepository(db)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionExpiry, cfg.Auth.RememberMeExpiry)
	cookieConfig := auth.NewCookieConfig(cfg.Server.Env)
	auditLogger := pkglogger.NewAuditLogger(logger)

	emailService := &CapturingEmailService{}
	mailer := syncMailQueue{}

	rateLimitService := services.NewRateLimitService(
		userRepo, loginAttemptRepo, cfg.Auth.MaxFailedLogins, cfg.Auth.LockoutWindow, logger)
	passwordService := services.NewPasswordService(
		db, userRepo, sessionRepo, tokenRepo, emailService, mailer,
		cfg.Auth.ResetTokenExpiry, cfg.Server.PublicBaseURL, auditLogger, logger)
	agentService := services.NewAgentService(
		agentRepo, agentPageRepo, emailService, mailer, cfg.Server.PublicBaseURL, auditLogger, logger)
	propertyService := services.NewPropertyService(propertyRepo, agentRepo, logger)
	adminService := services.NewAdminService(userRepo, emailService, mailer, auditLogger, logger)
	tokenService := services.NewTokenService(hktRepo, userRepo, auditLogger, logger)
	contactService := services.NewContactService(emailService, mailer, logger)

	var authService *services.AuthService
	verificationService := services.NewEmailVerificationService(
		db, userRepo, tokenRepo, services.SessionCreatorFunc(func(ctx context.Context, user *models.User, rememberMe bool, ipAddress, userAgent string) (string, time.Time, error) {
			return authService.CreateSession(ctx, user, rememberMe, ipAddress, userAgent)
		}),
		emailService, mailer, cfg.Auth.VerifyTokenExpiry, cfg.Server.PublicBaseURL, auditLogger, logger)
	authService = services.NewAuthService(
		userRepo, sessionRepo, tokenManager, rateLimitService, verificationService, auditLogger, logger)

	ipConfig := &pkghttp.IPConfig{}
	authHandler := handlers.NewAuthHandler(authService, passwordService, verificationService, cookieConfig, ipConfig, logger)
	agentHandler := handlers.NewAgentHandler(agentService)
	adminHandler := handlers.NewAdminHandler(agentService, adminService)
	propertyHandler := handlers.NewPropertyHandler(propertyService)
	tokenHandler := handlers.NewTokenHandler(tokenService)
	contactHandler := handlers.NewContactHandler(contactService)

	authenticator := auth.NewAuthenticator(tokenManager, sessionRepo, userRepo, cookieConfig, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authHandler, agentHandler, adminHandler, propertyHandler, tokenHandler, contactHandler, authenticator, cfg.Auth.LoginRatePerMinute)

	server := httptest.NewServer(r)

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	return &TestServer{
		Server:       server,
		DB:           db,
		EmailService: emailService,
		Config:       cfg,
		client:       client,
		logger:       logger,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// ResetClient drops all cookies, simulating a fresh browser
func (ts *TestServer) ResetClient() {
	jar, _ := cookiejar.New(nil)
	ts.client = &http.Client{Jar: jar}
}

// Request makes an HTTP request to the test server. The client keeps cookies
// between calls so the session established by login carries over.
func (ts *TestServer) Request(method, path string, body interface{}) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return ts.client.Do(req)
}

// Login authenticates as the given user and keeps the session cookie on the client
func (ts *TestServer) Login(email, password string) (*http.Response, error) {
	return ts.Request("POST", "/api/auth/login", map[string]interface{}{
		"email":    email,
		"password": password,
	})
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// GetErrorMessage extracts error message from error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
