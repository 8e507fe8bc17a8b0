package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/homekrypto/hkt-api/internal/auth"
	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/internal/services"
	pkghttp "github.com/homekrypto/hkt-api/pkg/http"
)

// AdminAgentServiceInterface defines the admin-side agent workflow
type AdminAgentServiceInterface interface {
	ListAll(ctx context.Context) ([]*models.Agent, error)
	Stats(ctx context.Context) (*models.AgentStats, error)
	Approve(ctx context.Context, agentID, adminID string) (*models.Agent, *models.AgentPage, error)
	Deny(ctx context.Context, agentID, adminID, reason string) (*models.Agent, error)
	Deactivate(ctx context.Context, agentID, adminID string) error
	Delete(ctx context.Context, agentID, adminID string) error
}

// AdminUserServiceInterface defines admin user management
type AdminUserServiceInterface interface {
	ListUsers(ctx context.Context) ([]*services.UserListing, error)
	DeleteUser(ctx context.Context, targetID, adminID string) error
}

// AdminHandler handles admin-only HTTP requests
type AdminHandler struct {
	agents AdminAgentServiceInterface
	users  AdminUserServiceInterface
}

func NewAdminHandler(agents AdminAgentServiceInterface, users AdminUserServiceInterface) *AdminHandler {
	return &AdminHandler{agents: agents, users: users}
}

type DenyAgentRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// AdminAgentResponse extends the public agent shape with review metadata.
type AdminAgentResponse struct {
	*AgentResponse
	LicenseNumber   string     `json:"license_number,omitempty"`
	LicenseState    string     `json:"license_state,omitempty"`
	IsActive        bool       `json:"is_active"`
	ApprovedBy      *string    `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
}

func toAdminAgentResponse(agent *models.Agent) *AdminAgentResponse {
	return &AdminAgentResponse{
		AgentResponse:   toAgentResponse(agent),
		LicenseNumber:   agent.LicenseNumber,
		LicenseState:    agent.LicenseState,
		IsActive:        agent.IsActive,
		ApprovedBy:      agent.ApprovedBy,
		ApprovedAt:      agent.ApprovedAt,
		RejectionReason: agent.RejectionReason,
	}
}

// AdminUserResponse pairs a user with their approved-agent referral count.
type AdminUserResponse struct {
	*UserResponse
	ApprovedAgentCount int64 `json:"approved_agent_count"`
}

// ListAgents handles GET /admin/agents
func (h *AdminHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agents.ListAll(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load agents")
		return
	}

	out := make([]*AdminAgentResponse, 0, len(agents))
	for _, a := range agents {
		out = append(out, toAdminAgentResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agents": out,
	})
}

// AgentStats handles GET /admin/agents/stats
func (h *AdminHandler) AgentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.agents.Stats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load agent stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"total":    stats.Total,
		"pending":  stats.Pending,
		"approved": stats.Approved,
		"denied":   stats.Denied,
	})
}

// ApproveAgent handles PATCH /admin/agents/{id}/approve
func (h *AdminHandler) ApproveAgent(w http.ResponseWriter, r *http.Request) {
	admin := auth.GetUserFromContext(r)
	if admin == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}
	agentID := chi.URLParam(r, "id")

	agent, page, err := h.agents.Approve(r.Context(), agentID, admin.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Agent not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to approve agent")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agent": toAdminAgentResponse(agent),
		"slug":  page.Slug,
	})
}

// DenyAgent handles PATCH /admin/agents/{id}/deny
func (h *AdminHandler) DenyAgent(w http.ResponseWriter, r *http.Request) {
	admin := auth.GetUserFromContext(r)
	if admin == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}
	agentID := chi.URLParam(r, "id")

	var req DenyAgentRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid request body")
			return
		}
		if err := ValidateRequest(req); err != nil {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
	}

	agent, err := h.agents.Deny(r.Context(), agentID, admin.ID, req.Reason)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Agent not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to deny agent")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agent": toAdminAgentResponse(agent),
	})
}

// DeactivateAgent handles PATCH /admin/agents/{id}/deactivate
func (h *AdminHandler) DeactivateAgent(w http.ResponseWriter, r *http.Request) {
	admin := auth.GetUserFromContext(r)
	if admin == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}
	agentID := chi.URLParam(r, "id")

	if err := h.agents.Deactivate(r.Context(), agentID, admin.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Agent not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to deactivate agent")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Agent deactivated",
	})
}

// DeleteAgent handles DELETE /admin/agents/{id}
func (h *AdminHandler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	admin := auth.GetUserFromContext(r)
	if admin == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}
	agentID := chi.URLParam(r, "id")

	if err := h.agents.Delete(r.Context(), agentID, admin.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Agent not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to delete agent")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUsers handles GET /admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	listings, err := h.users.ListUsers(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load users")
		return
	}

	out := make([]*AdminUserResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, &AdminUserResponse{
			UserResponse:       toUserResponse(l.User),
			ApprovedAgentCount: l.ApprovedAgentCount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": out,
	})
}

// DeleteUser handles DELETE /admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	admin := auth.GetUserFromContext(r)
	if admin == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}
	targetID := chi.URLParam(r, "id")

	if err := h.users.DeleteUser(r.Context(), targetID, admin.ID); err != nil {
		switch {
		case errors.Is(err, models.ErrForbidden):
			pkghttp.WriteForbidden(w, "Admin accounts cannot be deleted")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		default:
			pkghttp.WriteInternalError(w, "Failed to delete user")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
