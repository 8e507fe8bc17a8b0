package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homekrypto/hkt-api/internal/handlers"
	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/internal/services"
)

func testAgent() *models.Agent {
	return &models.Agent{
		ID:           "agent-1",
		FirstName:    "John",
		LastName:     "Smith",
		Email:        "john@agency.example",
		Phone:        "+1 555 0100",
		City:         "Warsaw",
		Country:      "Poland",
		ReferralLink: "https://homekrypto.com/?ref=agent-1",
		Status:       models.AgentStatusPending,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
}

func validApplicationRequest() handlers.AgentApplicationRequest {
	return handlers.AgentApplicationRequest{
		FirstName:       "John",
		LastName:        "Smith",
		Email:           "john@agency.example",
		Phone:           "+1 555 0100",
		City:            "Warsaw",
		Country:         "Poland",
		YearsExperience: 5,
	}
}

func TestAgentApply_Success(t *testing.T) {
	mockAgents := &handlers.MockAgentService{
		ApplyFunc: func(ctx context.Context, input services.AgentApplication) (*models.Agent, error) {
			assert.Equal(t, "john@agency.example", input.Email)
			assert.Equal(t, "Poland", input.Country)
			return testAgent(), nil
		},
	}

	handler := handlers.NewAgentHandler(mockAgents)
	req := handlers.NewTestRequest(t, "POST", "/api/agents/apply", validApplicationRequest())

	w := httptest.NewRecorder()
	handler.Apply(w, req)

	var resp struct {
		Agent   *handlers.AgentResponse `json:"agent"`
		Message string                  `json:"message"`
	}
	handlers.AssertJSONResponse(t, w, 201, &resp)
	assert.Equal(t, "agent-1", resp.Agent.ID)
	assert.Equal(t, models.AgentStatusPending, resp.Agent.Status)
	assert.NotEmpty(t, resp.Message)
}

func TestAgentApply_DuplicateEmail(t *testing.T) {
	mockAgents := &handlers.MockAgentService{
		ApplyFunc: func(ctx context.Context, input services.AgentApplication) (*models.Agent, error) {
			return nil, models.ErrConflict
		},
	}

	handler := handlers.NewAgentHandler(mockAgents)
	req := handlers.NewTestRequest(t, "POST", "/api/agents/apply", validApplicationRequest())

	w := httptest.NewRecorder()
	handler.Apply(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestAgentApply_MissingRequiredFields(t *testing.T) {
	handler := handlers.NewAgentHandler(&handlers.MockAgentService{})

	app := validApplicationRequest()
	app.Country = ""
	req := handlers.NewTestRequest(t, "POST", "/api/agents/apply", app)

	w := httptest.NewRecorder()
	handler.Apply(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestAgentApply_InvalidWebsiteURL(t *testing.T) {
	handler := handlers.NewAgentHandler(&handlers.MockAgentService{})

	app := validApplicationRequest()
	app.Website = "not a url"
	req := handlers.NewTestRequest(t, "POST", "/api/agents/apply", app)

	w := httptest.NewRecorder()
	handler.Apply(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestAgentList_ReturnsDirectory(t *testing.T) {
	mockAgents := &handlers.MockAgentService{
		DirectoryFunc: func(ctx context.Context) ([]*models.Agent, error) {
			a := testAgent()
			a.Status = models.AgentStatusApproved
			return []*models.Agent{a}, nil
		},
	}

	handler := handlers.NewAgentHandler(mockAgents)
	req := handlers.NewTestRequest(t, "GET", "/api/agents", nil)

	w := httptest.NewRecorder()
	handler.List(w, req)

	var resp struct {
		Agents []*handlers.AgentResponse `json:"agents"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	require.Len(t, resp.Agents, 1)
	assert.Equal(t, "agent-1", resp.Agents[0].ID)
}

func TestAgentSearch_PassesQueryParams(t *testing.T) {
	mockAgents := &handlers.MockAgentService{
		SearchFunc: func(ctx context.Context, q, country string) ([]*models.Agent, error) {
			assert.Equal(t, "smith", q)
			assert.Equal(t, "Poland", country)
			return []*models.Agent{testAgent()}, nil
		},
	}

	handler := handlers.NewAgentHandler(mockAgents)
	req := httptest.NewRequest("GET", "/api/agents/search?q=smith&country=Poland", nil)

	w := httptest.NewRecorder()
	handler.Search(w, req)

	var resp struct {
		Agents []*handlers.AgentResponse `json:"agents"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Len(t, resp.Agents, 1)
}

func TestAgentCountries(t *testing.T) {
	mockAgents := &handlers.MockAgentService{
		CountriesFunc: func(ctx context.Context) ([]string, error) {
			return []string{"Dominican Republic", "Poland"}, nil
		},
	}

	handler := handlers.NewAgentHandler(mockAgents)
	req := handlers.NewTestRequest(t, "GET", "/api/agents/countries", nil)

	w := httptest.NewRecorder()
	handler.Countries(w, req)

	var resp struct {
		Countries []string `json:"countries"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, []string{"Dominican Republic", "Poland"}, resp.Countries)
}

func TestAgentPage_Found(t *testing.T) {
	mockAgents := &handlers.MockAgentService{
		GetPageFunc: func(ctx context.Context, country, name string) (*models.Agent, *models.AgentPage, error) {
			assert.Equal(t, "poland", country)
			assert.Equal(t, "john-smith", name)
			a := testAgent()
			a.Status = models.AgentStatusApproved
			return a, &models.AgentPage{ID: "page-1", AgentID: a.ID, Slug: "poland/john-smith", IsActive: true}, nil
		},
	}

	handler := handlers.NewAgentHandler(mockAgents)
	req := handlers.NewTestRequest(t, "GET", "/api/agent-page/poland/john-smith", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"country": "poland", "slug": "john-smith"})

	w := httptest.NewRecorder()
	handler.Page(w, req)

	var resp struct {
		Agent *handlers.AgentResponse `json:"agent"`
		Slug  string                  `json:"slug"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "poland/john-smith", resp.Slug)
}

func TestAgentPage_NotFound(t *testing.T) {
	mockAgents := &handlers.MockAgentService{
		GetPageFunc: func(ctx context.Context, country, name string) (*models.Agent, *models.AgentPage, error) {
			return nil, nil, models.ErrNotFound
		},
	}

	handler := handlers.NewAgentHandler(mockAgents)
	req := handlers.NewTestRequest(t, "GET", "/api/agent-page/poland/nobody", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"country": "poland", "slug": "nobody"})

	w := httptest.NewRecorder()
	handler.Page(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestAgentReferralQR_ServesPNG(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}
	mockAgents := &handlers.MockAgentService{
		ReferralQRFunc: func(ctx context.Context, agentID string) ([]byte, error) {
			assert.Equal(t, "agent-1", agentID)
			return png, nil
		},
	}

	handler := handlers.NewAgentHandler(mockAgents)
	req := handlers.NewTestRequest(t, "GET", "/api/agents/agent-1/qr", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "agent-1"})

	w := httptest.NewRecorder()
	handler.ReferralQR(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, png, w.Body.Bytes())
}

func TestAgentReferralQR_NotFound(t *testing.T) {
	mockAgents := &handlers.MockAgentService{
		ReferralQRFunc: func(ctx context.Context, agentID string) ([]byte, error) {
			return nil, models.ErrNotFound
		},
	}

	handler := handlers.NewAgentHandler(mockAgents)
	req := handlers.NewTestRequest(t, "GET", "/api/agents/missing/qr", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"id": "missing"})

	w := httptest.NewRecorder()
	handler.ReferralQR(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}
