package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/homekrypto/hkt-api/internal/models"
)

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// UserResponse is the public representation of a user account.
type UserResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Username      *string   `json:"username,omitempty"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	ReferralCode  string    `json:"referral_code"`
	CreatedAt     time.Time `json:"created_at"`
}

func toUserResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Username:      user.Username,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
		ReferralCode:  user.ReferralCode,
		CreatedAt:     user.CreatedAt,
	}
}
