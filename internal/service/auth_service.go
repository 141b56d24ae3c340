package service

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/locate-service/internal/auth"
	"github.com/spec-kit/locate-service/internal/config"
	"github.com/spec-kit/locate-service/internal/domain"
	apperrors "github.com/spec-kit/locate-service/pkg/util/errorutil"
)

// AuthService exchanges an actor's shared secret for a bearer token.
type AuthService struct {
	tokenMgr *auth.TokenManager
	secrets  *auth.SecretStore
}

// NewAuthService builds the service. An actor without a configured
// secret hash cannot obtain tokens.
func NewAuthService(cfg config.AuthConfig, tokenMgr *auth.TokenManager) *AuthService {
	return &AuthService{
		tokenMgr: tokenMgr,
		secrets:  auth.NewSecretStore(cfg.AgentSecretHash, cfg.OperatorSecretHash),
	}
}

// IssueToken checks secret against the actor's bcrypt hash and signs a
// token carrying the actor claim.
func (s *AuthService) IssueToken(_ context.Context, actor domain.Actor, subject, secret string) (string, time.Time, error) {
	switch err := s.secrets.Verify(actor, secret); {
	case errors.Is(err, auth.ErrUnknownActor):
		return "", time.Time{}, apperrors.NewValidationError("unknown actor", map[string]any{"actor": actor})
	case errors.Is(err, auth.ErrActorNotEnabled):
		return "", time.Time{}, apperrors.NewUnauthorized("actor " + string(actor) + " is not enabled")
	case err != nil:
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if subject == "" {
		subject = string(actor)
	}
	return s.tokenMgr.GenerateToken(subject, actor)
}
