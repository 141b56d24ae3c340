package auth

import (
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/locate-service/internal/domain"
	apperrors "github.com/spec-kit/locate-service/pkg/util/errorutil"
)

// RequireActor ensures the caller acts as one of the allowed actors.
func RequireActor(allowed ...domain.Actor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !slices.Contains(allowed, principal.Actor) {
			return apperrors.NewForbidden("operation requires " + string(allowed[0]) + " actor")
		}
		return c.Next()
	}
}

// RequireAnyActor ensures caller is authenticated.
func RequireAnyActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// ActorFromContext returns the caller's actor, defaulting to agent.
func ActorFromContext(c *fiber.Ctx) domain.Actor {
	if principal, ok := PrincipalFromContext(c); ok {
		return principal.Actor
	}
	return domain.ActorAgent
}
