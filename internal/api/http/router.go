package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/locate-service/internal/api/http/handlers"
	"github.com/spec-kit/locate-service/internal/auth"
	"github.com/spec-kit/locate-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Lifecycle transitions past confirm
// are operator-only; everything else accepts agents and operators.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	app.Post("/auth/token", cfg.Auth.IssueToken)

	authenticated := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAnyActor()}
	app.Post("/validate", append(authenticated, cfg.Tickets.Validate)...)

	tickets := app.Group("/tickets", authenticated...)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/enrichment", cfg.Tickets.ApplyEnrichment)
	tickets.Get("/:id/audit", cfg.Tickets.ListAudit)
	tickets.Get("/:id/packet", cfg.Tickets.GetPacket)

	operator := auth.RequireActor(domain.ActorOperator)
	tickets.Post("/:id/confirm", operator, cfg.Tickets.Confirm)
	tickets.Post("/:id/submitted", operator, cfg.Tickets.MarkSubmitted)
	tickets.Post("/:id/responses", operator, cfg.Tickets.MarkResponsesIn)
	tickets.Post("/:id/cancel", operator, cfg.Tickets.Cancel)
}
