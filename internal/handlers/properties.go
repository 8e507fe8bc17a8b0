package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/internal/services"
	pkghttp "github.com/homekrypto/hkt-api/pkg/http"
)

// PropertyServiceInterface defines property catalog operations
type PropertyServiceInterface interface {
	Create(ctx context.Context, input services.PropertyInput) (*models.Property, error)
	Update(ctx context.Context, id string, input services.PropertyInput) (*models.Property, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*services.PropertyView, error)
	ListActive(ctx context.Context) ([]*services.PropertyView, error)
	ListAll(ctx context.Context) ([]*models.Property, error)
}

// PropertyHandler serves the public catalog and the admin CRUD surface
type PropertyHandler struct {
	properties PropertyServiceInterface
}

func NewPropertyHandler(properties PropertyServiceInterface) *PropertyHandler {
	return &PropertyHandler{properties: properties}
}

type PropertyRequest struct {
	ID            string   `json:"id" validate:"omitempty,max=100"`
	Name          string   `json:"name" validate:"required,max=200"`
	Location      string   `json:"location" validate:"required,max=200"`
	Description   string   `json:"description" validate:"max=5000"`
	PricePerNight string   `json:"price_per_night" validate:"required"`
	TotalShares   int      `json:"total_shares" validate:"required"`
	SharePrice    string   `json:"share_price" validate:"required"`
	Images        []string `json:"images"`
	Amenities     []string `json:"amenities"`
	MaxGuests     int      `json:"max_guests" validate:"min=0"`
	Bedrooms      int      `json:"bedrooms" validate:"min=0"`
	Bathrooms     int      `json:"bathrooms" validate:"min=0"`
	IsActive      bool     `json:"is_active"`
	AgentID       *string  `json:"agent_id"`
}

// PropertyResponse is the public representation of a listing.
type PropertyResponse struct {
	ID            string                    `json:"id"`
	Name          string                    `json:"name"`
	Location      string                    `json:"location"`
	Description   string                    `json:"description,omitempty"`
	PricePerNight string                    `json:"price_per_night"`
	TotalShares   int                       `json:"total_shares"`
	SharePrice    string                    `json:"share_price"`
	Images        []string                  `json:"images,omitempty"`
	Amenities     []string                  `json:"amenities,omitempty"`
	MaxGuests     int                       `json:"max_guests"`
	Bedrooms      int                       `json:"bedrooms"`
	Bathrooms     int                       `json:"bathrooms"`
	IsActive      bool                      `json:"is_active"`
	Agent         *PropertyAgentResponse    `json:"agent,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
}

type PropertyAgentResponse struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
}

func toPropertyResponse(p *models.Property, agent *models.PropertyAgentInfo) *PropertyResponse {
	resp := &PropertyResponse{
		ID:            p.ID,
		Name:          p.Name,
		Location:      p.Location,
		Description:   p.Description,
		PricePerNight: p.PricePerNight,
		TotalShares:   p.TotalShares,
		SharePrice:    p.SharePrice,
		Images:        p.Images,
		Amenities:     p.Amenities,
		MaxGuests:     p.MaxGuests,
		Bedrooms:      p.Bedrooms,
		Bathrooms:     p.Bathrooms,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
	}
	if agent != nil {
		resp.Agent = &PropertyAgentResponse{
			FirstName: agent.FirstName,
			LastName:  agent.LastName,
			Email:     agent.Email,
			Phone:     agent.Phone,
			City:      agent.City,
		}
	}
	return resp
}

func propertyInputFromRequest(req *PropertyRequest) services.PropertyInput {
	return services.PropertyInput{
		ID:            req.ID,
		Name:          req.Name,
		Location:      req.Location,
		Description:   req.Description,
		PricePerNight: req.PricePerNight,
		TotalShares:   req.TotalShares,
		SharePrice:    req.SharePrice,
		Images:        req.Images,
		Amenities:     req.Amenities,
		MaxGuests:     req.MaxGuests,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		IsActive:      req.IsActive,
		AgentID:       req.AgentID,
	}
}

// List handles GET /properties
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.properties.ListActive(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load properties")
		return
	}

	out := make([]*PropertyResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toPropertyResponse(v.Property, v.Agent))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"properties": out,
	})
}

// Get handles GET /properties/{id}
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.properties.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Property not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to load property")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"property": toPropertyResponse(view.Property, view.Agent),
	})
}

// AdminList handles GET /admin/properties
func (h *PropertyHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	properties, err := h.properties.ListAll(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load properties")
		return
	}

	out := make([]*PropertyResponse, 0, len(properties))
	for _, p := range properties {
		out = append(out, toPropertyResponse(p, nil))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"properties": out,
	})
}

// Create handles POST /admin/properties
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req PropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	property, err := h.properties.Create(r.Context(), propertyInputFromRequest(&req))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid property data")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "A property with that ID already exists")
		default:
			pkghttp.WriteInternalError(w, "Failed to create property")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"property": toPropertyResponse(property, nil),
	})
}

// Update handles PUT /admin/properties/{id}
func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	property, err := h.properties.Update(r.Context(), id, propertyInputFromRequest(&req))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid property data")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Property not found")
		default:
			pkghttp.WriteInternalError(w, "Failed to update property")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"property": toPropertyResponse(property, nil),
	})
}

// Delete handles DELETE /admin/properties/{id}
func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.properties.Delete(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Property not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to delete property")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
