package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditLogger() *logger.AuditLogger {
	return logger.NewAuditLogger(testLogger())
}

// MockUserRepository implements the user repository interfaces for testing
type MockUserRepository struct {
	GetByIDFunc                     func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc                  func(ctx context.Context, email string) (*models.User, error)
	GetByReferralCodeFunc           func(ctx context.Context, code string) (*models.User, error)
	CreateFunc                      func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc                      func(ctx context.Context, id string, user *models.User) (*models.User, error)
	DeleteFunc                      func(ctx context.Context, id string) error
	UpdatePasswordFunc              func(ctx context.Context, id, passwordHash string) error
	UpdatePasswordTxFunc            func(ctx context.Context, tx pgx.Tx, id, passwordHash string) error
	MarkEmailVerifiedTxFunc         func(ctx context.Context, tx pgx.Tx, id string) error
	SetWalletAddressIfEmptyFunc     func(ctx context.Context, id, address string) error
	RecordFailedLoginFunc           func(ctx context.Context, id string) (int, error)
	LockAccountFunc                 func(ctx context.Context, id string, until time.Time) error
	RecordSuccessfulLoginFunc       func(ctx context.Context, id string) error
	ListWithApprovedAgentCountsFunc func(ctx context.Context) ([]*models.User, map[string]int64, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	if m.GetByReferralCodeFunc != nil {
		return m.GetByReferralCodeFunc(ctx, code)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) UpdatePasswordTx(ctx context.Context, tx pgx.Tx, id, passwordHash string) error {
	if m.UpdatePasswordTxFunc != nil {
		return m.UpdatePasswordTxFunc(ctx, tx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) MarkEmailVerifiedTx(ctx context.Context, tx pgx.Tx, id string) error {
	if m.MarkEmailVerifiedTxFunc != nil {
		return m.MarkEmailVerifiedTxFunc(ctx, tx, id)
	}
	return nil
}

func (m *MockUserRepository) RecordFailedLogin(ctx context.Context, id string) (int, error) {
	if m.RecordFailedLoginFunc != nil {
		return m.RecordFailedLoginFunc(ctx, id)
	}
	return 1, nil
}

func (m *MockUserRepository) LockAccount(ctx context.Context, id string, until time.Time) error {
	if m.LockAccountFunc != nil {
		return m.LockAccountFunc(ctx, id, until)
	}
	return nil
}

func (m *MockUserRepository) SetWalletAddressIfEmpty(ctx context.Context, id, address string) error {
	if m.SetWalletAddressIfEmptyFunc != nil {
		return m.SetWalletAddressIfEmptyFunc(ctx, id, address)
	}
	return nil
}

func (m *MockUserRepository) RecordSuccessfulLogin(ctx context.Context, id string) error {
	if m.RecordSuccessfulLoginFunc != nil {
		return m.RecordSuccessfulLoginFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) ListWithApprovedAgentCounts(ctx context.Context) ([]*models.User, map[string]int64, error) {
	if m.ListWithApprovedAgentCountsFunc != nil {
		return m.ListWithApprovedAgentCountsFunc(ctx)
	}
	return []*models.User{}, map[string]int64{}, nil
}

// MockSessionRepository implements the session repository interfaces for testing
type MockSessionRepository struct {
	CreateFunc             func(ctx context.Context, session *models.Session) (*models.Session, error)
	DeleteByTokenFunc      func(ctx context.Context, token string) error
	DeleteAllForUserFunc   func(ctx context.Context, userID string) (int64, error)
	DeleteAllForUserTxFunc func(ctx context.Context, tx pgx.Tx, userID string) error
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return session, nil
}

func (m *MockSessionRepository) DeleteByToken(ctx context.Context, token string) error {
	if m.DeleteByTokenFunc != nil {
		return m.DeleteByTokenFunc(ctx, token)
	}
	return nil
}

func (m *MockSessionRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	if m.DeleteAllForUserFunc != nil {
		return m.DeleteAllForUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockSessionRepository) DeleteAllForUserTx(ctx context.Context, tx pgx.Tx, userID string) error {
	if m.DeleteAllForUserTxFunc != nil {
		return m.DeleteAllForUserTxFunc(ctx, tx, userID)
	}
	return nil
}

// MockOneTimeTokenRepository implements OneTimeTokenRepository for testing
type MockOneTimeTokenRepository struct {
	CreateFunc           func(ctx context.Context, userID, kind, tokenHash string, expiresAt time.Time) (*models.OneTimeToken, error)
	GetByHashFunc        func(ctx context.Context, tokenHash string) (*models.OneTimeToken, error)
	MarkUsedTxFunc       func(ctx context.Context, tx pgx.Tx, id string) error
	SupersedePendingFunc func(ctx context.Context, userID, kind string) (int64, error)
}

func (m *MockOneTimeTokenRepository) Create(ctx context.Context, userID, kind, tokenHash string, expiresAt time.Time) (*models.OneTimeToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, kind, tokenHash, expiresAt)
	}
	return &models.OneTimeToken{UserID: userID, Kind: kind, TokenHash: tokenHash, ExpiresAt: expiresAt}, nil
}

func (m *MockOneTimeTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*models.OneTimeToken, error) {
	if m.GetByHashFunc != nil {
		return m.GetByHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockOneTimeTokenRepository) MarkUsedTx(ctx context.Context, tx pgx.Tx, id string) error {
	if m.MarkUsedTxFunc != nil {
		return m.MarkUsedTxFunc(ctx, tx, id)
	}
	return nil
}

func (m *MockOneTimeTokenRepository) SupersedePending(ctx context.Context, userID, kind string) (int64, error) {
	if m.SupersedePendingFunc != nil {
		return m.SupersedePendingFunc(ctx, userID, kind)
	}
	return 0, nil
}

// MockLoginAttemptRepository implements loginAttemptRepository for testing
type MockLoginAttemptRepository struct {
	RecordAttemptFunc      func(ctx context.Context, attempt *models.LoginAttempt) error
	GetFailedCountByIPFunc func(ctx context.Context, ipAddress string, since time.Time) (int, error)
}

func (m *MockLoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	return nil
}

func (m *MockLoginAttemptRepository) GetFailedCountByIP(ctx context.Context, ipAddress string, since time.Time) (int, error) {
	if m.GetFailedCountByIPFunc != nil {
		return m.GetFailedCountByIPFunc(ctx, ipAddress, since)
	}
	return 0, nil
}

// MockAgentRepository implements AgentRepository for testing
type MockAgentRepository struct {
	CreateFunc             func(ctx context.Context, agent *models.Agent) (*models.Agent, error)
	GetByIDFunc            func(ctx context.Context, id string) (*models.Agent, error)
	ListFunc               func(ctx context.Context) ([]*models.Agent, error)
	ListApprovedActiveFunc func(ctx context.Context) ([]*models.Agent, error)
	SearchFunc             func(ctx context.Context, q, country string) ([]*models.Agent, error)
	ListCountriesFunc      func(ctx context.Context) ([]string, error)
	ApproveFunc            func(ctx context.Context, id, adminID string) (*models.Agent, error)
	DenyFunc               func(ctx context.Context, id, reason string) (*models.Agent, error)
	SetActiveFunc          func(ctx context.Context, id string, active bool) error
	DeleteFunc             func(ctx context.Context, id string) error
	StatsFunc              func(ctx context.Context) (*models.AgentStats, error)
}

func (m *MockAgentRepository) Create(ctx context.Context, agent *models.Agent) (*models.Agent, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, agent)
	}
	return agent, nil
}

func (m *MockAgentRepository) GetByID(ctx context.Context, id string) (*models.Agent, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAgentRepository) List(ctx context.Context) ([]*models.Agent, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Agent{}, nil
}

func (m *MockAgentRepository) ListApprovedActive(ctx context.Context) ([]*models.Agent, error) {
	if m.ListApprovedActiveFunc != nil {
		return m.ListApprovedActiveFunc(ctx)
	}
	return []*models.Agent{}, nil
}

func (m *MockAgentRepository) Search(ctx context.Context, q, country string) ([]*models.Agent, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, q, country)
	}
	return []*models.Agent{}, nil
}

func (m *MockAgentRepository) ListCountries(ctx context.Context) ([]string, error) {
	if m.ListCountriesFunc != nil {
		return m.ListCountriesFunc(ctx)
	}
	return []string{}, nil
}

func (m *MockAgentRepository) Approve(ctx context.Context, id, adminID string) (*models.Agent, error) {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, id, adminID)
	}
	return nil, models.ErrNotFound
}

func (m *MockAgentRepository) Deny(ctx context.Context, id, reason string) (*models.Agent, error) {
	if m.DenyFunc != nil {
		return m.DenyFunc(ctx, id, reason)
	}
	return nil, models.ErrNotFound
}

func (m *MockAgentRepository) SetActive(ctx context.Context, id string, active bool) error {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, id, active)
	}
	return nil
}

func (m *MockAgentRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockAgentRepository) Stats(ctx context.Context) (*models.AgentStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &models.AgentStats{}, nil
}

// MockAgentPageRepository implements AgentPageRepository for testing
type MockAgentPageRepository struct {
	CreateFunc            func(ctx context.Context, agentID, slug string) (*models.AgentPage, error)
	GetBySlugFunc         func(ctx context.Context, slug string) (*models.AgentPage, error)
	SlugExistsFunc        func(ctx context.Context, slug string) (bool, error)
	SetActiveForAgentFunc func(ctx context.Context, agentID string, active bool) error
	GetByAgentIDFunc      func(ctx context.Context, agentID string) (*models.AgentPage, error)
}

func (m *MockAgentPageRepository) Create(ctx context.Context, agentID, slug string) (*models.AgentPage, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, agentID, slug)
	}
	return &models.AgentPage{AgentID: agentID, Slug: slug, IsActive: true}, nil
}

func (m *MockAgentPageRepository) GetBySlug(ctx context.Context, slug string) (*models.AgentPage, error) {
	if m.GetBySlugFunc != nil {
		return m.GetBySlugFunc(ctx, slug)
	}
	return nil, models.ErrNotFound
}

func (m *MockAgentPageRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	if m.SlugExistsFunc != nil {
		return m.SlugExistsFunc(ctx, slug)
	}
	return false, nil
}

func (m *MockAgentPageRepository) SetActiveForAgent(ctx context.Context, agentID string, active bool) error {
	if m.SetActiveForAgentFunc != nil {
		return m.SetActiveForAgentFunc(ctx, agentID, active)
	}
	return nil
}

func (m *MockAgentPageRepository) GetByAgentID(ctx context.Context, agentID string) (*models.AgentPage, error) {
	if m.GetByAgentIDFunc != nil {
		return m.GetByAgentIDFunc(ctx, agentID)
	}
	return nil, models.ErrNotFound
}

// MockPropertyRepository implements PropertyRepository for testing
type MockPropertyRepository struct {
	CreateFunc     func(ctx context.Context, p *models.Property) (*models.Property, error)
	GetByIDFunc    func(ctx context.Context, id string) (*models.Property, error)
	ListActiveFunc func(ctx context.Context) ([]*models.Property, error)
	ListAllFunc    func(ctx context.Context) ([]*models.Property, error)
	UpdateFunc     func(ctx context.Context, id string, p *models.Property) (*models.Property, error)
	DeleteFunc     func(ctx context.Context, id string) error
}

func (m *MockPropertyRepository) Create(ctx context.Context, p *models.Property) (*models.Property, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	return p, nil
}

func (m *MockPropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPropertyRepository) ListActive(ctx context.Context) ([]*models.Property, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	return []*models.Property{}, nil
}

func (m *MockPropertyRepository) ListAll(ctx context.Context) ([]*models.Property, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return []*models.Property{}, nil
}

func (m *MockPropertyRepository) Update(ctx context.Context, id string, p *models.Property) (*models.Property, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, p)
	}
	return p, nil
}

func (m *MockPropertyRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockEmailService records sends instead of talking to SES
type MockEmailService struct {
	mu    sync.Mutex
	Sends []string
	Err   error

	// PasswordChangedRevoked mirrors the sessionsRevoked flag of the most
	// recent password-changed notification.
	PasswordChangedRevoked bool
}

func (m *MockEmailService) record(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sends = append(m.Sends, name)
	return m.Err
}

func (m *MockEmailService) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Sends...)
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, toEmail, firstName, verifyURL string) error {
	return m.record("verification")
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, toEmail, firstName, resetURL string) error {
	return m.record("password_reset")
}

func (m *MockEmailService) SendPasswordChangedEmail(ctx context.Context, toEmail, firstName, ipAddress, userAgent string, changedAt time.Time, sessionsRevoked bool) error {
	m.mu.Lock()
	m.PasswordChangedRevoked = sessionsRevoked
	m.mu.Unlock()
	return m.record("password_changed")
}

func (m *MockEmailService) SendAgentApplicationEmail(ctx context.Context, agent *models.Agent) error {
	return m.record("agent_application")
}

func (m *MockEmailService) SendAgentApprovalEmail(ctx context.Context, agent *models.Agent, pageURL string) error {
	return m.record("agent_approved")
}

func (m *MockEmailService) SendAgentDenialEmail(ctx context.Context, agent *models.Agent, reason string) error {
	return m.record("agent_denied")
}

func (m *MockEmailService) SendAgentRemovalEmail(ctx context.Context, agent *models.Agent) error {
	return m.record("agent_removed")
}

func (m *MockEmailService) SendAccountDeletedEmail(ctx context.Context, toEmail, firstName string) error {
	return m.record("account_deleted")
}

func (m *MockEmailService) SendNewsletterWelcomeEmail(ctx context.Context, toEmail string) error {
	return m.record("newsletter_welcome")
}

func (m *MockEmailService) SendNewsletterSignupNotice(ctx context.Context, subscriberEmail string) error {
	return m.record("newsletter_signup_notice")
}

func (m *MockEmailService) SendContactFormEmail(ctx context.Context, msg *models.ContactMessage) error {
	return m.record("contact_message")
}

// MockTokenRepository implements TokenRepository for testing
type MockTokenRepository struct {
	LatestStatsFunc         func(ctx context.Context) (*models.HktStats, error)
	CreatePurchaseFunc      func(ctx context.Context, p *models.TokenPurchase) (*models.TokenPurchase, error)
	ListPurchasesByUserFunc func(ctx context.Context, userID string) ([]*models.TokenPurchase, error)
	SumTokensForUserFunc    func(ctx context.Context, userID string) (float64, error)
}

func (m *MockTokenRepository) LatestStats(ctx context.Context) (*models.HktStats, error) {
	if m.LatestStatsFunc != nil {
		return m.LatestStatsFunc(ctx)
	}
	return nil, models.ErrNotFound
}

func (m *MockTokenRepository) CreatePurchase(ctx context.Context, p *models.TokenPurchase) (*models.TokenPurchase, error) {
	if m.CreatePurchaseFunc != nil {
		return m.CreatePurchaseFunc(ctx, p)
	}
	p.ID = "purchase-1"
	return p, nil
}

func (m *MockTokenRepository) ListPurchasesByUser(ctx context.Context, userID string) ([]*models.TokenPurchase, error) {
	if m.ListPurchasesByUserFunc != nil {
		return m.ListPurchasesByUserFunc(ctx, userID)
	}
	return []*models.TokenPurchase{}, nil
}

func (m *MockTokenRepository) SumTokensForUser(ctx context.Context, userID string) (float64, error) {
	if m.SumTokensForUserFunc != nil {
		return m.SumTokensForUserFunc(ctx, userID)
	}
	return 0, nil
}

// MockMailQueue runs enqueued jobs synchronously and records their names
type MockMailQueue struct {
	mu   sync.Mutex
	Jobs []string
}

func (m *MockMailQueue) Enqueue(name string, send func(ctx context.Context) error) {
	m.mu.Lock()
	m.Jobs = append(m.Jobs, name)
	m.mu.Unlock()
	_ = send(context.Background())
}

func (m *MockMailQueue) Enqueued() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Jobs...)
}

// MockTxRunner invokes the callback with a nil transaction so repository
// mocks can be composed without a live database
type MockTxRunner struct {
	WithTransactionFunc func(ctx context.Context, fn func(pgx.Tx) error) error
}

func (m *MockTxRunner) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(nil)
}

// MockRateLimiter implements LoginRateLimiter for testing
type MockRateLimiter struct {
	CheckLoginAllowedFunc     func(user *models.User) error
	CheckIPAllowedFunc        func(ctx context.Context, ipAddress string) error
	RecordFailedLoginFunc     func(ctx context.Context, user *models.User, email, ipAddress, userAgent, reason string)
	RecordSuccessfulLoginFunc func(ctx context.Context, user *models.User, ipAddress, userAgent string)
}

func (m *MockRateLimiter) CheckLoginAllowed(user *models.User) error {
	if m.CheckLoginAllowedFunc != nil {
		return m.CheckLoginAllowedFunc(user)
	}
	return nil
}

func (m *MockRateLimiter) CheckIPAllowed(ctx context.Context, ipAddress string) error {
	if m.CheckIPAllowedFunc != nil {
		return m.CheckIPAllowedFunc(ctx, ipAddress)
	}
	return nil
}

func (m *MockRateLimiter) RecordFailedLogin(ctx context.Context, user *models.User, email, ipAddress, userAgent, reason string) {
	if m.RecordFailedLoginFunc != nil {
		m.RecordFailedLoginFunc(ctx, user, email, ipAddress, userAgent, reason)
	}
}

func (m *MockRateLimiter) RecordSuccessfulLogin(ctx context.Context, user *models.User, ipAddress, userAgent string) {
	if m.RecordSuccessfulLoginFunc != nil {
		m.RecordSuccessfulLoginFunc(ctx, user, ipAddress, userAgent)
	}
}

// MockVerificationSender implements VerificationSender for testing
type MockVerificationSender struct {
	SendVerificationFunc func(ctx context.Context, user *models.User) error
}

func (m *MockVerificationSender) SendVerification(ctx context.Context, user *models.User) error {
	if m.SendVerificationFunc != nil {
		return m.SendVerificationFunc(ctx, user)
	}
	return nil
}

// MockSessionCreator implements SessionCreator for testing
type MockSessionCreator struct {
	CreateSessionFunc func(ctx context.Context, user *models.User, rememberMe bool, ipAddress, userAgent string) (string, time.Time, error)
}

func (m *MockSessionCreator) CreateSession(ctx context.Context, user *models.User, rememberMe bool, ipAddress, userAgent string) (string, time.Time, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, user, rememberMe, ipAddress, userAgent)
	}
	return "session-token", time.Now().Add(time.Hour), nil
}
