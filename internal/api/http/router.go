package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/sunenergyxt/service-portal/internal/api/http/handlers"
	"github.com/sunenergyxt/service-portal/internal/auth"
	"github.com/sunenergyxt/service-portal/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Companies      *handlers.CompaniesHandler
	Registrations  *handlers.RegistrationsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Post("/auth/login", cfg.Users.Login)
	app.Post("/registrations", cfg.Registrations.Submit)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	hq := auth.RequireHeadquarters()

	protected.Get("/me", cfg.Users.Me)
	protected.Post("/me/password", cfg.Users.ChangePassword)

	tickets := protected.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/summary", cfg.Tickets.Summary)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Get("/:id/actions", cfg.Tickets.Actions)
	tickets.Get("/:id/assignable-staff", cfg.Tickets.AssignableStaff)
	tickets.Post("/:id/assign-company", cfg.Tickets.AssignCompany)
	tickets.Post("/:id/assign-staff", cfg.Tickets.AssignStaff)
	tickets.Post("/:id/start", cfg.Tickets.StartWork)
	tickets.Post("/:id/submit-audit", cfg.Tickets.SubmitForAudit)
	tickets.Post("/:id/audit", cfg.Tickets.AuditDecision)
	tickets.Post("/:id/final-review", cfg.Tickets.FinalReview)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)

	companies := protected.Group("/companies")
	companies.Get("/", cfg.Companies.List)
	companies.Get("/:id", cfg.Companies.Get)
	companies.Patch("/:id", cfg.Companies.Update)
	companies.Delete("/:id", hq, cfg.Companies.Delete)

	registrations := protected.Group("/registrations", hq)
	registrations.Get("/", cfg.Registrations.List)
	registrations.Post("/:id/decision", cfg.Registrations.Decide)

	users := protected.Group("/users")
	users.Get("/", cfg.Users.List)
	users.Post("/", cfg.Users.Create)
	users.Get("/:id", cfg.Users.Get)
	users.Patch("/:id", cfg.Users.Update)
	users.Post("/:id/password", cfg.Users.ResetPassword)
	users.Delete("/:id", cfg.Users.Delete)
}
