package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/netsupport-service/internal/api/http/handlers"
	"github.com/spec-kit/netsupport-service/internal/auth"
	"github.com/spec-kit/netsupport-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Accounts       *handlers.AccountsHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/verify-email", cfg.Auth.VerifyEmail)
	authGroup.Post("/resend-code", cfg.Auth.ResendCode)
	authGroup.Post("/forgot-password", cfg.Auth.ForgotPassword)
	authGroup.Post("/verify-reset-code", cfg.Auth.VerifyResetCode)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	profile := protected.Group("/profile", auth.RequireRole(domain.RoleClient, domain.RoleTechnician, domain.RoleAdmin))
	profile.Get("", cfg.Accounts.GetProfile)
	profile.Put("", cfg.Accounts.UpdateProfile)

	admins := protected.Group("/admins", auth.RequireRole(domain.RoleSuperAdmin))
	admins.Post("", cfg.Accounts.CreateAdmin)
	admins.Get("", cfg.Accounts.ListAdmins)

	technicians := protected.Group("/technicians", auth.RequireRole(domain.RoleAdmin))
	technicians.Post("", cfg.Accounts.CreateTechnician)
	technicians.Get("", cfg.Accounts.ListTechnicians)
	technicians.Patch("/:id/present", cfg.Accounts.MarkPresent)
	technicians.Patch("/:id/absent", cfg.Accounts.MarkAbsent)

	accounts := protected.Group("/accounts", auth.RequireRole(domain.RoleSuperAdmin, domain.RoleAdmin))
	accounts.Patch("/:id/deactivate", cfg.Accounts.Deactivate)
	accounts.Patch("/:id/reactivate", cfg.Accounts.Reactivate)

	tickets := protected.Group("/tickets")
	tickets.Post("", auth.RequireRole(domain.RoleClient), cfg.Tickets.CreateTicket)
	tickets.Get("", auth.RequireRole(domain.RoleClient, domain.RoleTechnician, domain.RoleAdmin), cfg.Tickets.ListTickets)
	tickets.Get("/history/:sn", auth.RequireRole(domain.RoleAdmin, domain.RoleTechnician), cfg.Tickets.HistoryBySN)
	tickets.Patch("/:id/assign", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.AssignTicket)
	tickets.Patch("/:id/status", auth.RequireRole(domain.RoleTechnician), cfg.Tickets.UpdateStatus)
}
