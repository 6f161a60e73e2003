package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guildkit/ticketd/internal/service"
)

// AnalyticsHandler exposes guild reporting endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// GuildReport GET /guilds/:guildID/analytics.
func (h *AnalyticsHandler) GuildReport(c *fiber.Ctx) error {
	guildID, err := paramInt64(c, "guildID")
	if err != nil {
		return err
	}
	report, err := h.analytics.GuildReport(c.UserContext(), guildID, queryInt(c, "days", 30))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// StaffLeaderboard GET /guilds/:guildID/analytics/staff.
func (h *AnalyticsHandler) StaffLeaderboard(c *fiber.Ctx) error {
	guildID, err := paramInt64(c, "guildID")
	if err != nil {
		return err
	}
	stats, err := h.analytics.StaffLeaderboard(c.UserContext(), guildID, queryInt(c, "limit", 10))
	if err != nil {
		return err
	}
	items := make([]fiber.Map, 0, len(stats))
	for _, s := range stats {
		items = append(items, fiber.Map{
			"staff_id":                   s.StaffID,
			"tickets_claimed":            s.TicketsClaimed,
			"tickets_closed":             s.TicketsClosed,
			"total_messages":             s.TotalMessages,
			"avg_first_response_seconds": s.AvgFirstResponseSeconds(),
			"last_active_at":             s.LastActiveAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
