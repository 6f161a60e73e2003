package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guildkit/ticketd/internal/api/dto"
	"github.com/guildkit/ticketd/internal/domain"
	"github.com/guildkit/ticketd/internal/service"
	"github.com/guildkit/ticketd/pkg/util"
)

// SecurityHandler feeds gateway activity into the abuse detector and
// exposes the recorded events.
type SecurityHandler struct {
	security *service.SecurityService
}

// NewSecurityHandler constructs handler.
func NewSecurityHandler(security *service.SecurityService) *SecurityHandler {
	return &SecurityHandler{security: security}
}

// RecordJoin POST /security/joins.
func (h *SecurityHandler) RecordJoin(c *fiber.Ctx) error {
	var req dto.JoinEventRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.GuildID == 0 {
		return util.NewValidationError("guild_id required", nil)
	}
	triggered, err := h.security.RecordJoin(c.UserContext(), req.GuildID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"triggered": triggered}})
}

// RecordMessage POST /security/messages.
func (h *SecurityHandler) RecordMessage(c *fiber.Ctx) error {
	var req dto.MessageEventRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.GuildID == 0 || req.UserID == 0 {
		return util.NewValidationError("guild_id and user_id required", nil)
	}
	author := domain.Member{ID: req.UserID, IsBot: req.IsBot}
	triggered, err := h.security.RecordMessage(c.UserContext(), req.GuildID, author)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"triggered": triggered}})
}

// ListEvents GET /guilds/:guildID/security/events.
func (h *SecurityHandler) ListEvents(c *fiber.Ctx) error {
	guildID, err := paramInt64(c, "guildID")
	if err != nil {
		return err
	}
	events, err := h.security.RecentEvents(c.UserContext(), guildID, queryInt(c, "limit", 50))
	if err != nil {
		return err
	}
	items := make([]dto.SecurityEventResponse, 0, len(events))
	for _, event := range events {
		items = append(items, dto.SecurityEventResponse{
			ID:        event.ID,
			GuildID:   event.GuildID,
			EventType: event.EventType,
			Severity:  string(event.Severity),
			Payload:   event.Payload,
			CreatedAt: event.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
