package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/internal/services"
	pkghttp "github.com/homekrypto/hkt-api/pkg/http"
)

// AgentServiceInterface defines the public-facing agent operations
type AgentServiceInterface interface {
	Apply(ctx context.Context, input services.AgentApplication) (*models.Agent, error)
	Directory(ctx context.Context) ([]*models.Agent, error)
	Search(ctx context.Context, q, country string) ([]*models.Agent, error)
	Countries(ctx context.Context) ([]string, error)
	GetPage(ctx context.Context, country, name string) (*models.Agent, *models.AgentPage, error)
	ReferralQR(ctx context.Context, agentID string) ([]byte, error)
}

// AgentHandler serves the public agent directory and application intake
type AgentHandler struct {
	agents AgentServiceInterface
}

func NewAgentHandler(agents AgentServiceInterface) *AgentHandler {
	return &AgentHandler{agents: agents}
}

type AgentApplicationRequest struct {
	FirstName       string   `json:"first_name" validate:"required,min=1,max=100"`
	LastName        string   `json:"last_name" validate:"required,min=1,max=100"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           string   `json:"phone" validate:"required,max=30"`
	Company         string   `json:"company" validate:"max=200"`
	City            string   `json:"city" validate:"required,max=100"`
	State           string   `json:"state" validate:"max=100"`
	Country         string   `json:"country" validate:"required,max=100"`
	Website         string   `json:"website" validate:"omitempty,url"`
	LinkedIn        string   `json:"linkedin" validate:"omitempty,url"`
	LicenseNumber   string   `json:"license_number" validate:"max=100"`
	LicenseState    string   `json:"license_state" validate:"max=100"`
	Bio             string   `json:"bio" validate:"max=2000"`
	Specializations []string `json:"specializations"`
	YearsExperience int      `json:"years_experience" validate:"min=0,max=80"`
	LanguagesSpoken []string `json:"languages_spoken"`
	PhotoURL        string   `json:"photo_url" validate:"omitempty,url"`
}

// AgentResponse is the public representation of an agent profile.
type AgentResponse struct {
	ID              string    `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Company         string    `json:"company,omitempty"`
	City            string    `json:"city"`
	State           string    `json:"state,omitempty"`
	Country         string    `json:"country"`
	Website         string    `json:"website,omitempty"`
	LinkedIn        string    `json:"linkedin,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Specializations []string  `json:"specializations,omitempty"`
	YearsExperience int       `json:"years_experience"`
	LanguagesSpoken []string  `json:"languages_spoken,omitempty"`
	PhotoURL        string    `json:"photo_url,omitempty"`
	ReferralLink    string    `json:"referral_link,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

func toAgentResponse(agent *models.Agent) *AgentResponse {
	return &AgentResponse{
		ID:              agent.ID,
		FirstName:       agent.FirstName,
		LastName:        agent.LastName,
		Email:           agent.Email,
		Phone:           agent.Phone,
		Company:         agent.Company,
		City:            agent.City,
		State:           agent.State,
		Country:         agent.Country,
		Website:         agent.Website,
		LinkedIn:        agent.LinkedIn,
		Bio:             agent.Bio,
		Specializations: agent.Specializations,
		YearsExperience: agent.YearsExperience,
		LanguagesSpoken: agent.LanguagesSpoken,
		PhotoURL:        agent.PhotoURL,
		ReferralLink:    agent.ReferralLink,
		Status:          agent.Status,
		CreatedAt:       agent.CreatedAt,
	}
}

func toAgentResponses(agents []*models.Agent) []*AgentResponse {
	out := make([]*AgentResponse, 0, len(agents))
	for _, a := range agents {
		out = append(out, toAgentResponse(a))
	}
	return out
}

// Apply handles POST /agents/apply
func (h *AgentHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req AgentApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	agent, err := h.agents.Apply(r.Context(), services.AgentApplication{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		Company:         req.Company,
		City:            req.City,
		State:           req.State,
		Country:         req.Country,
		Website:         req.Website,
		LinkedIn:        req.LinkedIn,
		LicenseNumber:   req.LicenseNumber,
		LicenseState:    req.LicenseState,
		Bio:             req.Bio,
		Specializations: req.Specializations,
		YearsExperience: req.YearsExperience,
		LanguagesSpoken: req.LanguagesSpoken,
		PhotoURL:        req.PhotoURL,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteBadRequest(w, "An application with that email already exists")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to submit application")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"agent":   toAgentResponse(agent),
		"message": "Application received. You will be notified once it has been reviewed.",
	})
}

// List handles GET /agents
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agents.Directory(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load agents")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agents": toAgentResponses(agents),
	})
}

// Search handles GET /agents/search?q=...&country=...
func (h *AgentHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	country := r.URL.Query().Get("country")

	agents, err := h.agents.Search(r.Context(), q, country)
	if err != nil {
		pkghttp.WriteInternalError(w, "Search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agents": toAgentResponses(agents),
	})
}

// Countries handles GET /agents/countries
func (h *AgentHandler) Countries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.agents.Countries(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load countries")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"countries": countries,
	})
}

// Page handles GET /agent-page/{country}/{slug}
func (h *AgentHandler) Page(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	slug := chi.URLParam(r, "slug")

	agent, page, err := h.agents.GetPage(r.Context(), country, slug)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Agent page not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to load agent page")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agent": toAgentResponse(agent),
		"slug":  page.Slug,
	})
}

// ReferralQR handles GET /agents/{id}/qr and responds with a PNG image.
func (h *AgentHandler) ReferralQR(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")

	png, err := h.agents.ReferralQR(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Agent not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
