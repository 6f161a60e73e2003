package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guildkit/ticketd/internal/api/http/handlers"
	"github.com/guildkit/ticketd/internal/auth"
	"github.com/guildkit/ticketd/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Staff      *handlers.StaffHandler
	Tickets    *handlers.TicketsHandler
	Automation *handlers.AutomationHandler
	Security   *handlers.SecurityHandler
	Analytics  *handlers.AnalyticsHandler
	Tokens     *auth.TokenManager
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/staff/login", cfg.Staff.Login)

	api := app.Group("/v1", auth.RequireAuth(cfg.Tokens))
	staffOnly := auth.RequireRole(domain.StaffRoleStaff)
	adminOnly := auth.RequireRole(domain.StaffRoleAdmin)

	tickets := api.Group("/tickets", staffOnly)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.TicketHistory)
	tickets.Post("/:id/claim", cfg.Tickets.ClaimTicket)
	tickets.Post("/:id/unclaim", cfg.Tickets.UnclaimTicket)
	tickets.Post("/:id/lock", cfg.Tickets.LockTicket)
	tickets.Post("/:id/unlock", cfg.Tickets.UnlockTicket)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)
	tickets.Post("/:id/reopen", cfg.Tickets.ReopenTicket)
	tickets.Post("/:id/transfer", cfg.Tickets.TransferTicket)
	tickets.Post("/:id/participants", cfg.Tickets.AddParticipant)
	tickets.Delete("/:id/participants/:userID", cfg.Tickets.RemoveParticipant)
	tickets.Put("/:id/priority", cfg.Tickets.SetPriority)
	tickets.Put("/:id/tags", cfg.Tickets.SetTags)
	tickets.Post("/:id/notes", cfg.Tickets.AddNote)
	tickets.Put("/:id/escalation", cfg.Tickets.Escalate)
	tickets.Post("/:id/feedback", cfg.Tickets.SubmitFeedback)
	tickets.Post("/:id/staff-messages", cfg.Tickets.RegisterStaffMessage)
	tickets.Put("/:id/name", cfg.Tickets.RenameTicket)
	tickets.Put("/:id/department", cfg.Tickets.SetDepartment)
	tickets.Put("/:id/transcripts", cfg.Tickets.StoreTranscripts)
	tickets.Delete("/:id", adminOnly, cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/auto-close", cfg.Automation.ScheduleAutoClose)

	guilds := api.Group("/guilds/:guildID", staffOnly)
	guilds.Get("/tickets", cfg.Tickets.ListTickets)
	guilds.Get("/channels/:channelID/ticket", cfg.Tickets.GetTicketByChannel)
	guilds.Get("/categories", cfg.Tickets.ListCategories)
	guilds.Put("/categories", adminOnly, cfg.Tickets.UpsertCategory)
	guilds.Post("/categories/bootstrap", adminOnly, cfg.Tickets.BootstrapCategories)
	guilds.Put("/panels", adminOnly, cfg.Tickets.UpsertPanel)
	guilds.Post("/blacklist", adminOnly, cfg.Tickets.Blacklist)
	guilds.Delete("/blacklist/:userID", adminOnly, cfg.Tickets.Unblacklist)
	guilds.Get("/security/events", cfg.Security.ListEvents)
	guilds.Get("/analytics", cfg.Analytics.GuildReport)
	guilds.Get("/analytics/staff", cfg.Analytics.StaffLeaderboard)

	api.Get("/panels/:panelID", staffOnly, cfg.Tickets.GetPanel)

	automation := api.Group("/automation", staffOnly)
	automation.Get("/jobs/:jobID", cfg.Automation.GetJob)
	automation.Delete("/jobs/:jobID", cfg.Automation.CancelJob)

	security := api.Group("/security", staffOnly)
	security.Post("/joins", cfg.Security.RecordJoin)
	security.Post("/messages", cfg.Security.RecordMessage)
}
