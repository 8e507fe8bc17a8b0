package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/pkg/logger"
)

const defaultDenialReason = "Application does not meet current requirements"

type AgentRepository interface {
	Create(ctx context.Context, agent *models.Agent) (*models.Agent, error)
	GetByID(ctx context.Context, id string) (*models.Agent, error)
	List(ctx context.Context) ([]*models.Agent, error)
	ListApprovedActive(ctx context.Context) ([]*models.Agent, error)
	Search(ctx context.Context, q, country string) ([]*models.Agent, error)
	ListCountries(ctx context.Context) ([]string, error)
	Approve(ctx context.Context, id, adminID string) (*models.Agent, error)
	Deny(ctx context.Context, id, reason string) (*models.Agent, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.AgentStats, error)
}

type AgentPageRepository interface {
	Create(ctx context.Context, agentID, slug string) (*models.AgentPage, error)
	GetBySlug(ctx context.Context, slug string) (*models.AgentPage, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	SetActiveForAgent(ctx context.Context, agentID string, active bool) error
	GetByAgentID(ctx context.Context, agentID string) (*models.AgentPage, error)
}

// AgentService runs the application and approval workflow and serves the
// public agent directory.
type AgentService struct {
	agents      AgentRepository
	pages       AgentPageRepository
	email       EmailService
	mailer      MailQueue
	baseURL     string
	auditLogger *logger.AuditLogger
	logger      *slog.Logger
}

func NewAgentService(
	agents AgentRepository,
	pages AgentPageRepository,
	email EmailService,
	mailer MailQueue,
	baseURL string,
	auditLogger *logger.AuditLogger,
	log *slog.Logger,
) *AgentService {
	return &AgentService{
		agents:      agents,
		pages:       pages,
		email:       email,
		mailer:      mailer,
		baseURL:     baseURL,
		auditLogger: auditLogger,
		logger:      log,
	}
}

type AgentApplication struct {
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Company         string
	City            string
	State           string
	Country         string
	Website         string
	LinkedIn        string
	LicenseNumber   string
	LicenseState    string
	Bio             string
	Specializations []string
	YearsExperience int
	LanguagesSpoken []string
	PhotoURL        string
}

// Apply records a pending application and acknowledges it by email.
func (s *AgentService) Apply(ctx context.Context, input AgentApplication) (*models.Agent, error) {
	id := uuid.New().String()
	agent := &models.Agent{
		ID:              id,
		FirstName:       strings.TrimSpace(input.FirstName),
		LastName:        strings.TrimSpace(input.LastName),
		Email:           normalizeEmail(input.Email),
		Phone:           strings.TrimSpace(input.Phone),
		Company:         strings.TrimSpace(input.Company),
		City:            strings.TrimSpace(input.City),
		State:           strings.TrimSpace(input.State),
		Country:         strings.TrimSpace(input.Country),
		Website:         strings.TrimSpace(input.Website),
		LinkedIn:        strings.TrimSpace(input.LinkedIn),
		LicenseNumber:   strings.TrimSpace(input.LicenseNumber),
		LicenseState:    strings.TrimSpace(input.LicenseState),
		Bio:             strings.TrimSpace(input.Bio),
		Specializations: input.Specializations,
		YearsExperience: input.YearsExperience,
		LanguagesSpoken: input.LanguagesSpoken,
		PhotoURL:        strings.TrimSpace(input.PhotoURL),
		ReferralLink:    fmt.Sprintf("%s/?ref=%s", s.baseURL, id),
		Status:          models.AgentStatusPending,
		IsActive:        true,
	}

	created, err := s.agents.Create(ctx, agent)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("creating agent application: %w", err)
	}

	toAgent := created
	s.mailer.Enqueue("agent_application_received", func(ctx context.Context) error {
		return s.email.SendAgentApplicationEmail(ctx, toAgent)
	})

	s.logger.Info("agent application received", "agent_id", created.ID, "country", created.Country)
	return created, nil
}

// Approve marks the application approved and publishes the agent's public
// page under a country/name slug. Re-approving an agent that already has a
// page reactivates the existing slug instead of minting a new one.
func (s *AgentService) Approve(ctx context.Context, agentID, adminID string) (*models.Agent, *models.AgentPage, error) {
	agent, err := s.agents.Approve(ctx, agentID, adminID)
	if err != nil {
		return nil, nil, err
	}

	page, err := s.pages.GetByAgentID(ctx, agentID)
	switch {
	case err == nil:
		if err := s.pages.SetActiveForAgent(ctx, agentID, true); err != nil {
			return nil, nil, fmt.Errorf("reactivating agent page: %w", err)
		}
		page.IsActive = true
	case errors.Is(err, models.ErrNotFound):
		slug, err := s.uniqueSlug(ctx, agent)
		if err != nil {
			return nil, nil, err
		}
		page, err = s.pages.Create(ctx, agentID, slug)
		if err != nil {
			return nil, nil, fmt.Errorf("creating agent page: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("looking up agent page: %w", err)
	}

	pageURL := fmt.Sprintf("%s/agents/%s", s.baseURL, page.Slug)
	toAgent := agent
	s.mailer.Enqueue("agent_approved", func(ctx context.Context) error {
		return s.email.SendAgentApprovalEmail(ctx, toAgent, pageURL)
	})

	s.auditLogger.LogAccountAction("agent_approved", adminID, "", map[string]string{
		"agent_id": agentID,
		"slug":     page.Slug,
	})
	return agent, page, nil
}

// Deny rejects the application. An empty reason falls back to a standard
// message so the notification is never blank.
func (s *AgentService) Deny(ctx context.Context, agentID, adminID, reason string) (*models.Agent, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultDenialReason
	}

	agent, err := s.agents.Deny(ctx, agentID, reason)
	if err != nil {
		return nil, err
	}

	toAgent, toReason := agent, reason
	s.mailer.Enqueue("agent_denied", func(ctx context.Context) error {
		return s.email.SendAgentDenialEmail(ctx, toAgent, toReason)
	})

	s.auditLogger.LogAccountAction("agent_denied", adminID, "", map[string]string{
		"agent_id": agentID,
	})
	return agent, nil
}

// Deactivate hides the agent from the directory and takes the public page
// offline without deleting anything.
func (s *AgentService) Deactivate(ctx context.Context, agentID, adminID string) error {
	if err := s.agents.SetActive(ctx, agentID, false); err != nil {
		return err
	}
	if err := s.pages.SetActiveForAgent(ctx, agentID, false); err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("deactivating agent page: %w", err)
	}

	s.auditLogger.LogAccountAction("agent_deactivated", adminID, "", map[string]string{
		"agent_id": agentID,
	})
	return nil
}

// Delete removes the agent entirely. The page row goes with it via cascade.
func (s *AgentService) Delete(ctx context.Context, agentID, adminID string) error {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return err
	}
	if err := s.agents.Delete(ctx, agentID); err != nil {
		return err
	}

	toAgent := agent
	s.mailer.Enqueue("agent_removed", func(ctx context.Context) error {
		return s.email.SendAgentRemovalEmail(ctx, toAgent)
	})

	s.auditLogger.LogAccountAction("agent_deleted", adminID, "", map[string]string{
		"agent_id": agentID,
	})
	return nil
}

// Directory returns approved, active agents for the public listing.
func (s *AgentService) Directory(ctx context.Context) ([]*models.Agent, error) {
	return s.agents.ListApprovedActive(ctx)
}

// Search filters the public directory by free text and optional country.
func (s *AgentService) Search(ctx context.Context, q, country string) ([]*models.Agent, error) {
	return s.agents.Search(ctx, strings.TrimSpace(q), strings.TrimSpace(country))
}

// Countries lists the distinct countries of approved, active agents.
func (s *AgentService) Countries(ctx context.Context) ([]string, error) {
	return s.agents.ListCountries(ctx)
}

// ListAll returns every application for the admin review queue.
func (s *AgentService) ListAll(ctx context.Context) ([]*models.Agent, error) {
	return s.agents.List(ctx)
}

// Stats aggregates application counts for the admin dashboard.
func (s *AgentService) Stats(ctx context.Context) (*models.AgentStats, error) {
	return s.agents.Stats(ctx)
}

// GetPage resolves a public page by its country/name slug. Only pages of
// approved, active agents are served.
func (s *AgentService) GetPage(ctx context.Context, country, name string) (*models.Agent, *models.AgentPage, error) {
	page, err := s.pages.GetBySlug(ctx, country+"/"+name)
	if err != nil {
		return nil, nil, err
	}

	agent, err := s.agents.GetByID(ctx, page.AgentID)
	if err != nil {
		return nil, nil, err
	}
	if agent.Status != models.AgentStatusApproved || !agent.IsActive {
		return nil, nil, models.ErrNotFound
	}
	return agent, page, nil
}

// ReferralQR renders the agent's referral link as a PNG QR code. Only
// approved, active agents have one.
func (s *AgentService) ReferralQR(ctx context.Context, agentID string) ([]byte, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.Status != models.AgentStatusApproved || !agent.IsActive {
		return nil, models.ErrNotFound
	}

	png, err := qrcode.Encode(agent.ReferralLink, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encoding referral QR: %w", err)
	}
	return png, nil
}

var slugStripPattern = regexp.MustCompile(`[^a-z0-9-]+`)
var slugHyphenRuns = regexp.MustCompile(`-{2,}`)

// Slugify lowercases the input, converts whitespace to hyphens, drops
// anything outside [a-z0-9-] and collapses hyphen runs.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "-")
	s = slugStripPattern.ReplaceAllString(s, "")
	s = slugHyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// uniqueSlug builds "country/first-last" and appends -2, -3, ... until the
// slug is free.
func (s *AgentService) uniqueSlug(ctx context.Context, agent *models.Agent) (string, error) {
	base := Slugify(agent.Country) + "/" + Slugify(agent.FirstName+" "+agent.LastName)

	slug := base
	for i := 2; ; i++ {
		exists, err := s.pages.SlugExists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("checking slug: %w", err)
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
