package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-agent/internal/api/http/handlers"
	"github.com/spec-kit/support-agent/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Chat           *handlers.ChatHandler
	Tickets        *handlers.TicketsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Health)

	app.Post("/chat", cfg.Chat.Chat)

	app.Post("/tickets", cfg.Tickets.CreateTicket)
	app.Get("/tickets", cfg.Tickets.ListTickets)
	app.Get("/tickets/:id", cfg.Tickets.GetTicket)
	app.Patch("/tickets/:id", cfg.Tickets.UpdateTicket)

	admin := app.Group("/admin")
	admin.Post("/token", cfg.Admin.Token)

	protected := admin.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/email", cfg.Admin.SendEmail)
	protected.Post("/sms", cfg.Admin.SendSMS)
}
