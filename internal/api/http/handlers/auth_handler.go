package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/locate-service/internal/api/dto"
	"github.com/spec-kit/locate-service/internal/service"
	apperrors "github.com/spec-kit/locate-service/pkg/util/errorutil"
)

// AuthHandler issues bearer tokens.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// IssueToken handles POST /auth/token.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Actor == "" || req.Secret == "" {
		return apperrors.NewValidationError("actor and secret required", nil)
	}

	token, exp, err := h.auth.IssueToken(c.UserContext(), req.Actor, strings.TrimSpace(req.Subject), req.Secret)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{Token: token, Actor: req.Actor, ExpiresAt: exp}})
}
