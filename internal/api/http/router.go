package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-go/helpdesk/internal/api/http/handlers"
	"github.com/helpdesk-go/helpdesk/internal/auth"
	"github.com/helpdesk-go/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Dashboard      *handlers.DashboardHandler
	Admin          *handlers.AdminHandler
	Kb             *handlers.KbHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/register", cfg.Users.Register)
	app.Post("/auth/login", cfg.Users.Login)

	authed := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	authed.Get("/me", cfg.Users.Me)
	authed.Patch("/me", cfg.Users.UpdateProfile)

	// Reference data feeds the ticket form, so reads are open to any
	// authenticated user.
	authed.Get("/config/categories", cfg.Admin.ListCategories)
	authed.Get("/config/priorities", cfg.Admin.ListPriorities)
	authed.Get("/config/statuses", cfg.Admin.ListStatuses)

	tickets := authed.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("/mine", cfg.Tickets.ListMine)
	tickets.Get("/trash", cfg.Tickets.ListTrash)
	tickets.Post("/trash/restore", cfg.Tickets.BulkRestore)
	tickets.Delete("/trash", cfg.Tickets.EmptyTrash)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Delete("/:id", cfg.Tickets.SoftDelete)
	tickets.Post("/:id/restore", cfg.Tickets.Restore)
	tickets.Delete("/:id/purge", cfg.Tickets.Purge)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)

	tech := authed.Group("", auth.RequireRole(domain.RoleTech))
	tech.Get("/tickets", cfg.Tickets.ListAll)
	tech.Get("/tickets-assigned", cfg.Tickets.ListAssigned)
	tech.Get("/tickets-unassigned", cfg.Tickets.ListUnassigned)
	tech.Post("/tickets/:id/status", cfg.Tickets.ChangeStatus)
	tech.Post("/tickets/:id/pickup", cfg.Tickets.Pickup)

	kb := authed.Group("/kb/articles")
	kb.Get("", cfg.Kb.Search)
	kb.Get("/:id", cfg.Kb.Get)
	kb.Post("", auth.RequireRole(domain.RoleTech), cfg.Kb.Create)
	kb.Put("/:id", auth.RequireRole(domain.RoleTech), cfg.Kb.Update)
	kb.Delete("/:id", auth.RequireRole(domain.RoleTech), cfg.Kb.Delete)

	manager := authed.Group("", auth.RequireRole(domain.RoleManager))
	manager.Post("/tickets/:id/assign", cfg.Tickets.Assign)
	manager.Get("/users/assignable", cfg.Admin.ListAssignable)
	manager.Get("/dashboard/stats", cfg.Dashboard.ManagerStats)
	manager.Get("/dashboard/volume", cfg.Dashboard.Volume)
	manager.Get("/dashboard/status-distribution", cfg.Dashboard.StatusDistribution)
	manager.Get("/reports/monthly", cfg.Dashboard.MonthlyReport)

	admin := authed.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Get("/dashboard/stats", cfg.Dashboard.AdminStats)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Patch("/users/:id", cfg.Admin.UpdateUser)
	admin.Delete("/users/:id", cfg.Admin.DeleteUser)
	admin.Post("/config/categories", cfg.Admin.CreateCategory)
	admin.Delete("/config/categories/:id", cfg.Admin.DeleteCategory)
	admin.Post("/config/priorities", cfg.Admin.CreatePriority)
	admin.Delete("/config/priorities/:id", cfg.Admin.DeletePriority)
	admin.Post("/config/statuses", cfg.Admin.CreateStatus)
	admin.Delete("/config/statuses/:id", cfg.Admin.DeleteStatus)
}
