package dto

import (
	"time"

	"github.com/spec-kit/locate-service/internal/domain"
)

// TokenRequest exchanges an actor secret for a bearer token.
type TokenRequest struct {
	Actor   domain.Actor `json:"actor"`
	Subject string       `json:"subject"`
	Secret  string       `json:"secret"`
}

// AuthResponse wraps issued tokens.
type AuthResponse struct {
	Token     string       `json:"token"`
	Actor     domain.Actor `json:"actor"`
	ExpiresAt time.Time    `json:"expires_at"`
}
