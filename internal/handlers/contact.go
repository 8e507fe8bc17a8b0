package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/homekrypto/hkt-api/internal/models"
	pkghttp "github.com/homekrypto/hkt-api/pkg/http"
)

// ContactServiceInterface defines newsletter and contact form operations
type ContactServiceInterface interface {
	Subscribe(ctx context.Context, email string) error
	SubmitMessage(ctx context.Context, msg *models.ContactMessage) error
}

// ContactHandler serves the newsletter signup and contact form endpoints
type ContactHandler struct {
	contact ContactServiceInterface
}

func NewContactHandler(contact ContactServiceInterface) *ContactHandler {
	return &ContactHandler{contact: contact}
}

type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ContactRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Subject  string `json:"subject" validate:"required,max=200"`
	Category string `json:"category" validate:"omitempty,max=100"`
	Message  string `json:"message" validate:"required,max=10000"`
}

// Subscribe handles POST /subscribe
func (h *ContactHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.contact.Subscribe(r.Context(), req.Email); err != nil {
		pkghttp.WriteInternalError(w, "Failed to subscribe")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Successfully subscribed to our newsletter",
	})
}

// Contact handles POST /contact
func (h *ContactHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.contact.SubmitMessage(r.Context(), &models.ContactMessage{
		Name:     req.Name,
		Email:    req.Email,
		Subject:  req.Subject,
		Category: req.Category,
		Message:  req.Message,
	})
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to send message")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Message sent successfully",
	})
}
