package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/homekrypto/hkt-api/internal/auth"
	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/internal/services"
	pkghttp "github.com/homekrypto/hkt-api/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithUserContext injects a resolved user into the request context, standing
// in for the session middleware on authenticated endpoints.
func WithUserContext(req *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(req.Context(), auth.UserContextKey, user)
	return req.WithContext(ctx)
}

// WithChiRouteContext attaches URL parameters to the request the way the
// chi router would during real routing.
func WithChiRouteContext(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc      func(ctx context.Context, input services.RegisterInput) (*models.User, error)
	LoginFunc         func(ctx context.Context, input services.LoginInput) (*services.LoginResult, error)
	LogoutFunc        func(ctx context.Context, token string) error
	LogoutAllFunc     func(ctx context.Context, userID string) (int64, error)
	GetProfileFunc    func(ctx context.Context, userID string) (*models.User, error)
	UpdateProfileFunc func(ctx context.Context, userID string, input services.UpdateProfileInput) (*models.User, error)
}

func (m *MockAuthService) Register(ctx context.Context, input services.RegisterInput) (*models.User, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, input)
}

func (m *MockAuthService) Login(ctx context.Context, input services.LoginInput) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, input)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, token)
}

func (m *MockAuthService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	if m.LogoutAllFunc == nil {
		return 0, nil
	}
	return m.LogoutAllFunc(ctx, userID)
}

func (m *MockAuthService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	if m.GetProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetProfileFunc(ctx, userID)
}

func (m *MockAuthService) UpdateProfile(ctx context.Context, userID string, input services.UpdateProfileInput) (*models.User, error) {
	if m.UpdateProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateProfileFunc(ctx, userID, input)
}

// MockPasswordService implements PasswordServiceInterface for testing
type MockPasswordService struct {
	RequestResetFunc func(ctx context.Context, email string) error
	ResetFunc        func(ctx context.Context, plainToken, newPassword, ipAddress, userAgent string) error
	ChangeFunc       func(ctx context.Context, userID, currentPassword, newPassword, ipAddress, userAgent string) error
}

func (m *MockPasswordService) RequestReset(ctx context.Context, email string) error {
	if m.RequestResetFunc == nil {
		return nil
	}
	return m.RequestResetFunc(ctx, email)
}

func (m *MockPasswordService) Reset(ctx context.Context, plainToken, newPassword, ipAddress, userAgent string) error {
	if m.ResetFunc == nil {
		return models.ErrInvalidToken
	}
	return m.ResetFunc(ctx, plainToken, newPassword, ipAddress, userAgent)
}

func (m *MockPasswordService) Change(ctx context.Context, userID, currentPassword, newPassword, ipAddress, userAgent string) error {
	if m.ChangeFunc == nil {
		return nil
	}
	return m.ChangeFunc(ctx, userID, currentPassword, newPassword, ipAddress, userAgent)
}

// MockVerificationService implements EmailVerificationServiceInterface for testing
type MockVerificationService struct {
	VerifyFunc func(ctx context.Context, plainToken, ipAddress, userAgent string) (*services.LoginResult, error)
	ResendFunc func(ctx context.Context, email string) error
}

func (m *MockVerificationService) Verify(ctx context.Context, plainToken, ipAddress, userAgent string) (*services.LoginResult, error) {
	if m.VerifyFunc == nil {
		return nil, models.ErrInvalidToken
	}
	return m.VerifyFunc(ctx, plainToken, ipAddress, userAgent)
}

func (m *MockVerificationService) Resend(ctx context.Context, email string) error {
	if m.ResendFunc == nil {
		return nil
	}
	return m.ResendFunc(ctx, email)
}

// MockAgentService implements AgentServiceInterface for testing
type MockAgentService struct {
	ApplyFunc      func(ctx context.Context, input services.AgentApplication) (*models.Agent, error)
	DirectoryFunc  func(ctx context.Context) ([]*models.Agent, error)
	SearchFunc     func(ctx context.Context, q, country string) ([]*models.Agent, error)
	CountriesFunc  func(ctx context.Context) ([]string, error)
	GetPageFunc    func(ctx context.Context, country, name string) (*models.Agent, *models.AgentPage, error)
	ReferralQRFunc func(ctx context.Context, agentID string) ([]byte, error)
}

func (m *MockAgentService) Apply(ctx context.Context, input services.AgentApplication) (*models.Agent, error) {
	if m.ApplyFunc == nil {
		return nil, models.ErrConflict
	}
	return m.ApplyFunc(ctx, input)
}

func (m *MockAgentService) Directory(ctx context.Context) ([]*models.Agent, error) {
	if m.DirectoryFunc == nil {
		return []*models.Agent{}, nil
	}
	return m.DirectoryFunc(ctx)
}

func (m *MockAgentService) Search(ctx context.Context, q, country string) ([]*models.Agent, error) {
	if m.SearchFunc == nil {
		return []*models.Agent{}, nil
	}
	return m.SearchFunc(ctx, q, country)
}

func (m *MockAgentService) Countries(ctx context.Context) ([]string, error) {
	if m.CountriesFunc == nil {
		return []string{}, nil
	}
	return m.CountriesFunc(ctx)
}

func (m *MockAgentService) GetPage(ctx context.Context, country, name string) (*models.Agent, *models.AgentPage, error) {
	if m.GetPageFunc == nil {
		return nil, nil, models.ErrNotFound
	}
	return m.GetPageFunc(ctx, country, name)
}

func (m *MockAgentService) ReferralQR(ctx context.Context, agentID string) ([]byte, error) {
	if m.ReferralQRFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ReferralQRFunc(ctx, agentID)
}

// MockAdminAgentService implements AdminAgentServiceInterface for testing
type MockAdminAgentService struct {
	ListAllFunc    func(ctx context.Context) ([]*models.Agent, error)
	StatsFunc      func(ctx context.Context) (*models.AgentStats, error)
	ApproveFunc    func(ctx context.Context, agentID, adminID string) (*models.Agent, *models.AgentPage, error)
	DenyFunc       func(ctx context.Context, agentID, adminID, reason string) (*models.Agent, error)
	DeactivateFunc func(ctx context.Context, agentID, adminID string) error
	DeleteFunc     func(ctx context.Context, agentID, adminID string) error
}

func (m *MockAdminAgentService) ListAll(ctx context.Context) ([]*models.Agent, error) {
	if m.ListAllFunc == nil {
		return []*models.Agent{}, nil
	}
	return m.ListAllFunc(ctx)
}

func (m *MockAdminAgentService) Stats(ctx context.Context) (*models.AgentStats, error) {
	if m.StatsFunc == nil {
		return &models.AgentStats{}, nil
	}
	return m.StatsFunc(ctx)
}

func (m *MockAdminAgentService) Approve(ctx context.Context, agentID, adminID string) (*models.Agent, *models.AgentPage, error) {
	if m.ApproveFunc == nil {
		return nil, nil, models.ErrNotFound
	}
	return m.ApproveFunc(ctx, agentID, adminID)
}

func (m *MockAdminAgentService) Deny(ctx context.Context, agentID, adminID, reason string) (*models.Agent, error) {
	if m.DenyFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.DenyFunc(ctx, agentID, adminID, reason)
}

func (m *MockAdminAgentService) Deactivate(ctx context.Context, agentID, adminID string) error {
	if m.DeactivateFunc == nil {
		return nil
	}
	return m.DeactivateFunc(ctx, agentID, adminID)
}

func (m *MockAdminAgentService) Delete(ctx context.Context, agentID, adminID string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, agentID, adminID)
}

// MockAdminUserService implements AdminUserServiceInterface for testing
type MockAdminUserService struct {
	ListUsersFunc  func(ctx context.Context) ([]*services.UserListing, error)
	DeleteUserFunc func(ctx context.Context, targetID, adminID string) error
}

func (m *MockAdminUserService) ListUsers(ctx context.Context) ([]*services.UserListing, error) {
	if m.ListUsersFunc == nil {
		return []*services.UserListing{}, nil
	}
	return m.ListUsersFunc(ctx)
}

func (m *MockAdminUserService) DeleteUser(ctx context.Context, targetID, adminID string) error {
	if m.DeleteUserFunc == nil {
		return nil
	}
	return m.DeleteUserFunc(ctx, targetID, adminID)
}

// MockTokenService implements TokenServiceInterface for testing
type MockTokenService struct {
	PriceFunc        func(ctx context.Context) (*models.HktStats, error)
	QuoteFunc        func(ctx context.Context, input services.QuoteInput) (*services.Quote, error)
	PurchaseFunc     func(ctx context.Context, userID string, input services.PurchaseInput) (*models.TokenPurchase, error)
	BalanceFunc      func(ctx context.Context, userID string) (*services.Balance, error)
	TransactionsFunc func(ctx context.Context, userID string) ([]*models.TokenPurchase, error)
}

func (m *MockTokenService) Price(ctx context.Context) (*models.HktStats, error) {
	if m.PriceFunc == nil {
		return &models.HktStats{CurrentPrice: "0.0001"}, nil
	}
	return m.PriceFunc(ctx)
}

func (m *MockTokenService) Quote(ctx context.Context, input services.QuoteInput) (*services.Quote, error) {
	if m.QuoteFunc == nil {
		return nil, models.ErrBadRequest
	}
	return m.QuoteFunc(ctx, input)
}

func (m *MockTokenService) Purchase(ctx context.Context, userID string, input services.PurchaseInput) (*models.TokenPurchase, error) {
	if m.PurchaseFunc == nil {
		return nil, models.ErrBadRequest
	}
	return m.PurchaseFunc(ctx, userID, input)
}

func (m *MockTokenService) Balance(ctx context.Context, userID string) (*services.Balance, error) {
	if m.BalanceFunc == nil {
		return &services.Balance{}, nil
	}
	return m.BalanceFunc(ctx, userID)
}

func (m *MockTokenService) Transactions(ctx context.Context, userID string) ([]*models.TokenPurchase, error) {
	if m.TransactionsFunc == nil {
		return []*models.TokenPurchase{}, nil
	}
	return m.TransactionsFunc(ctx, userID)
}

// MockContactService implements ContactServiceInterface for testing
type MockContactService struct {
	SubscribeFunc     func(ctx context.Context, email string) error
	SubmitMessageFunc func(ctx context.Context, msg *models.ContactMessage) error
}

func (m *MockContactService) Subscribe(ctx context.Context, email string) error {
	if m.SubscribeFunc == nil {
		return nil
	}
	return m.SubscribeFunc(ctx, email)
}

func (m *MockContactService) SubmitMessage(ctx context.Context, msg *models.ContactMessage) error {
	if m.SubmitMessageFunc == nil {
		return nil
	}
	return m.SubmitMessageFunc(ctx, msg)
}

// MockPropertyService implements PropertyServiceInterface for testing
type MockPropertyService struct {
	CreateFunc     func(ctx context.Context, input services.PropertyInput) (*models.Property, error)
	UpdateFunc     func(ctx context.Context, id string, input services.PropertyInput) (*models.Property, error)
	DeleteFunc     func(ctx context.Context, id string) error
	GetFunc        func(ctx context.Context, id string) (*services.PropertyView, error)
	ListActiveFunc func(ctx context.Context) ([]*services.PropertyView, error)
	ListAllFunc    func(ctx context.Context) ([]*models.Property, error)
}

func (m *MockPropertyService) Create(ctx context.Context, input services.PropertyInput) (*models.Property, error) {
	if m.CreateFunc == nil {
		return nil, models.ErrBadRequest
	}
	return m.CreateFunc(ctx, input)
}

func (m *MockPropertyService) Update(ctx context.Context, id string, input services.PropertyInput) (*models.Property, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, id, input)
}

func (m *MockPropertyService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, id)
}

func (m *MockPropertyService) Get(ctx context.Context, id string) (*services.PropertyView, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockPropertyService) ListActive(ctx context.Context) ([]*services.PropertyView, error) {
	if m.ListActiveFunc == nil {
		return []*services.PropertyView{}, nil
	}
	return m.ListActiveFunc(ctx)
}

func (m *MockPropertyService) ListAll(ctx context.Context) ([]*models.Property, error) {
	if m.ListAllFunc == nil {
		return []*models.Property{}, nil
	}
	return m.ListAllFunc(ctx)
}
