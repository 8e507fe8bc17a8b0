package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homekrypto/hkt-api/internal/models"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G'}

func newAgentServiceForTest(agents *MockAgentRepository, pages *MockAgentPageRepository, mailer *MockMailQueue) *AgentService {
	if pages == nil {
		pages = &MockAgentPageRepository{}
	}
	if mailer == nil {
		mailer = &MockMailQueue{}
	}
	return NewAgentService(agents, pages, &MockEmailService{}, mailer, "https://homekrypto.com", testAuditLogger(), testLogger())
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Poland", "poland"},
		{"John Smith", "john-smith"},
		{"  Maria  de la Cruz  ", "maria-de-la-cruz"},
		{"O'Brien & Sons!", "obrien-sons"},
		{"Łukasz--Nowak", "ukasz-nowak"},
		{"United Arab Emirates", "united-arab-emirates"},
		{"---", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestAgentService_Apply(t *testing.T) {
	var created *models.Agent
	agents := &MockAgentRepository{
		CreateFunc: func(ctx context.Context, agent *models.Agent) (*models.Agent, error) {
			created = agent
			return agent, nil
		},
	}
	mailer := &MockMailQueue{}

	svc := newAgentServiceForTest(agents, nil, mailer)
	agent, err := svc.Apply(context.Background(), AgentApplication{
		FirstName: "John",
		LastName:  "Smith",
		Email:     "John.Smith@Example.com",
		Country:   "Poland",
		City:      "Warsaw",
	})

	require.NoError(t, err)
	assert.Equal(t, models.AgentStatusPending, created.Status)
	assert.True(t, created.IsActive)
	assert.Equal(t, "john.smith@example.com", created.Email)
	assert.Contains(t, created.ReferralLink, "https://homekrypto.com/?ref="+agent.ID)
	assert.Equal(t, []string{"agent_application_received"}, mailer.Enqueued())
}

func TestAgentService_Approve_CreatesPage(t *testing.T) {
	agent := &models.Agent{
		ID:        "agent1",
		FirstName: "John",
		LastName:  "Smith",
		Email:     "john@example.com",
		Country:   "Poland",
		Status:    models.AgentStatusApproved,
		IsActive:  true,
	}
	agents := &MockAgentRepository{
		ApproveFunc: func(ctx context.Context, id, adminID string) (*models.Agent, error) {
			return agent, nil
		},
	}
	var createdSlug string
	pages := &MockAgentPageRepository{
		CreateFunc: func(ctx context.Context, agentID, slug string) (*models.AgentPage, error) {
			createdSlug = slug
			return &models.AgentPage{ID: "page1", AgentID: agentID, Slug: slug, IsActive: true}, nil
		},
	}
	mailer := &MockMailQueue{}

	svc := newAgentServiceForTest(agents, pages, mailer)
	_, page, err := svc.Approve(context.Background(), "agent1", "admin1")

	require.NoError(t, err)
	assert.Equal(t, "poland/john-smith", createdSlug)
	assert.Equal(t, "poland/john-smith", page.Slug)
	assert.Equal(t, []string{"agent_approved"}, mailer.Enqueued())
}

func TestAgentService_Approve_SlugCollisionAppendsSuffix(t *testing.T) {
	agent := &models.Agent{
		ID:        "agent2",
		FirstName: "John",
		LastName:  "Smith",
		Country:   "Poland",
		Status:    models.AgentStatusApproved,
		IsActive:  true,
	}
	agents := &MockAgentRepository{
		ApproveFunc: func(ctx context.Context, id, adminID string) (*models.Agent, error) {
			return agent, nil
		},
	}
	taken := map[string]bool{
		"poland/john-smith":   true,
		"poland/john-smith-2": true,
	}
	var createdSlug string
	pages := &MockAgentPageRepository{
		SlugExistsFunc: func(ctx context.Context, slug string) (bool, error) {
			return taken[slug], nil
		},
		CreateFunc: func(ctx context.Context, agentID, slug string) (*models.AgentPage, error) {
			createdSlug = slug
			return &models.AgentPage{AgentID: agentID, Slug: slug, IsActive: true}, nil
		},
	}

	svc := newAgentServiceForTest(agents, pages, nil)
	_, _, err := svc.Approve(context.Background(), "agent2", "admin1")

	require.NoError(t, err)
	assert.Equal(t, "poland/john-smith-3", createdSlug)
}

func TestAgentService_Approve_ExistingPageReactivated(t *testing.T) {
	agent := &models.Agent{ID: "agent1", FirstName: "John", LastName: "Smith", Country: "Poland"}
	agents := &MockAgentRepository{
		ApproveFunc: func(ctx context.Context, id, adminID string) (*models.Agent, error) {
			return agent, nil
		},
	}
	reactivated := false
	pageCreated := false
	pages := &MockAgentPageRepository{
		GetByAgentIDFunc: func(ctx context.Context, agentID string) (*models.AgentPage, error) {
			return &models.AgentPage{ID: "page1", AgentID: agentID, Slug: "poland/john-smith", IsActive: false}, nil
		},
		SetActiveForAgentFunc: func(ctx context.Context, agentID string, active bool) error {
			reactivated = active
			return nil
		},
		CreateFunc: func(ctx context.Context, agentID, slug string) (*models.AgentPage, error) {
			pageCreated = true
			return nil, models.ErrConflict
		},
	}

	svc := newAgentServiceForTest(agents, pages, nil)
	_, page, err := svc.Approve(context.Background(), "agent1", "admin1")

	require.NoError(t, err)
	assert.True(t, reactivated)
	assert.False(t, pageCreated)
	assert.Equal(t, "poland/john-smith", page.Slug)
	assert.True(t, page.IsActive)
}

func TestAgentService_Deny_DefaultReason(t *testing.T) {
	var usedReason string
	agents := &MockAgentRepository{
		DenyFunc: func(ctx context.Context, id, reason string) (*models.Agent, error) {
			usedReason = reason
			return &models.Agent{ID: id, Status: models.AgentStatusDenied}, nil
		},
	}
	mailer := &MockMailQueue{}

	svc := newAgentServiceForTest(agents, nil, mailer)
	_, err := svc.Deny(context.Background(), "agent1", "admin1", "   ")

	require.NoError(t, err)
	assert.Equal(t, defaultDenialReason, usedReason)
	assert.Equal(t, []string{"agent_denied"}, mailer.Enqueued())
}

func TestAgentService_Deactivate(t *testing.T) {
	agentDeactivated := false
	agents := &MockAgentRepository{
		SetActiveFunc: func(ctx context.Context, id string, active bool) error {
			agentDeactivated = !active
			return nil
		},
	}
	pageDeactivated := false
	pages := &MockAgentPageRepository{
		SetActiveForAgentFunc: func(ctx context.Context, agentID string, active bool) error {
			pageDeactivated = !active
			return nil
		},
	}

	svc := newAgentServiceForTest(agents, pages, nil)
	require.NoError(t, svc.Deactivate(context.Background(), "agent1", "admin1"))
	assert.True(t, agentDeactivated)
	assert.True(t, pageDeactivated)
}

func TestAgentService_Delete_SendsRemovalNotice(t *testing.T) {
	agents := &MockAgentRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Agent, error) {
			return &models.Agent{ID: id, Email: "john@example.com", FirstName: "John"}, nil
		},
	}
	mailer := &MockMailQueue{}

	svc := newAgentServiceForTest(agents, nil, mailer)
	require.NoError(t, svc.Delete(context.Background(), "agent1", "admin1"))
	assert.Equal(t, []string{"agent_removed"}, mailer.Enqueued())
}

func TestAgentService_GetPage_FiltersUnapproved(t *testing.T) {
	pages := &MockAgentPageRepository{
		GetBySlugFunc: func(ctx context.Context, slug string) (*models.AgentPage, error) {
			return &models.AgentPage{ID: "page1", AgentID: "agent1", Slug: slug, IsActive: true}, nil
		},
	}

	tests := []struct {
		name    string
		agent   *models.Agent
		wantErr error
	}{
		{"approved active", &models.Agent{ID: "agent1", Status: models.AgentStatusApproved, IsActive: true}, nil},
		{"pending", &models.Agent{ID: "agent1", Status: models.AgentStatusPending, IsActive: true}, models.ErrNotFound},
		{"approved inactive", &models.Agent{ID: "agent1", Status: models.AgentStatusApproved, IsActive: false}, models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agents := &MockAgentRepository{
				GetByIDFunc: func(ctx context.Context, id string) (*models.Agent, error) {
					return tt.agent, nil
				},
			}
			svc := newAgentServiceForTest(agents, pages, nil)
			agent, page, err := svc.GetPage(context.Background(), "poland", "john-smith")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "agent1", agent.ID)
				assert.Equal(t, "poland/john-smith", page.Slug)
			}
		})
	}
}

func TestAgentService_ReferralQR(t *testing.T) {
	agents := &MockAgentRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Agent, error) {
			return &models.Agent{
				ID:           id,
				Status:       models.AgentStatusApproved,
				IsActive:     true,
				ReferralLink: "https://homekrypto.com/?ref=agent1",
			}, nil
		},
	}

	svc := newAgentServiceForTest(agents, nil, nil)
	png, err := svc.ReferralQR(context.Background(), "agent1")

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngHeader))
}

func TestAgentService_ReferralQR_PendingAgent(t *testing.T) {
	agents := &MockAgentRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Agent, error) {
			return &models.Agent{ID: id, Status: models.AgentStatusPending, IsActive: true}, nil
		},
	}

	svc := newAgentServiceForTest(agents, nil, nil)
	png, err := svc.ReferralQR(context.Background(), "agent1")

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Nil(t, png)
}
