package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/guildkit/ticketd/internal/api/dto"
	"github.com/guildkit/ticketd/internal/domain"
	"github.com/guildkit/ticketd/internal/service"
	"github.com/guildkit/ticketd/pkg/util"
)

// TicketsHandler exposes the ticket lifecycle over HTTP. The gateway in
// front of the chat platform is the caller; it hands in already-validated
// guild and member identifiers.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.GuildID == 0 || req.UserID == 0 || req.CategoryKey == "" {
		return util.NewValidationError("guild_id, user_id, category_key required", nil)
	}

	input := service.CreateTicketInput{
		GuildID:     req.GuildID,
		Opener:      domain.Member{ID: req.UserID, DisplayName: req.DisplayName},
		CategoryKey: req.CategoryKey,
		FormAnswers: req.FormAnswers,
		Anonymous:   req.Anonymous,
		ChannelID:   req.ChannelID,
	}
	if req.PanelID != "" {
		panel, err := h.service.GetPanel(c.UserContext(), req.PanelID)
		if err != nil {
			return err
		}
		input.Panel = panel
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	participants, err := h.service.ListParticipants(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, participants)})
}

// GetTicketByChannel GET /guilds/:guildID/channels/:channelID/ticket.
func (h *TicketsHandler) GetTicketByChannel(c *fiber.Ctx) error {
	guildID, err := paramInt64(c, "guildID")
	if err != nil {
		return err
	}
	channelID, err := paramInt64(c, "channelID")
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicketForChannel(c.UserContext(), guildID, channelID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /guilds/:guildID/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	guildID, err := paramInt64(c, "guildID")
	if err != nil {
		return err
	}
	limit := queryInt(c, "limit", 50)
	var tickets []domain.Ticket
	if c.Query("scope") == "recent" {
		tickets, err = h.service.ListRecentTickets(c.UserContext(), guildID, limit)
	} else {
		tickets, err = h.service.ListOpenTickets(c.UserContext(), guildID, limit)
	}
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ClaimTicket POST /tickets/:id/claim.
func (h *TicketsHandler) ClaimTicket(c *fiber.Ctx) error {
	req, err := parseActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	updated, err := h.service.ClaimTicket(c.UserContext(), ticket, domain.Member{ID: req.UserID, DisplayName: req.DisplayName, IsStaff: true})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(updated)})
}

// UnclaimTicket POST /tickets/:id/unclaim.
func (h *TicketsHandler) UnclaimTicket(c *fiber.Ctx) error {
	req, err := parseActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	updated, err := h.service.UnclaimTicket(c.UserContext(), ticket, domain.Member{ID: req.UserID, IsStaff: true})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(updated)})
}

// LockTicket POST /tickets/:id/lock.
func (h *TicketsHandler) LockTicket(c *fiber.Ctx) error {
	return h.withTicketActor(c, func(ticket *domain.Ticket, actorID int64) error {
		return h.service.LockTicket(c.UserContext(), ticket, actorID)
	})
}

// UnlockTicket POST /tickets/:id/unlock.
func (h *TicketsHandler) UnlockTicket(c *fiber.Ctx) error {
	return h.withTicketActor(c, func(ticket *domain.Ticket, actorID int64) error {
		return h.service.UnlockTicket(c.UserContext(), ticket, actorID)
	})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.UserID == 0 {
		return util.NewValidationError("user_id required", nil)
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.CloseTicket(c.UserContext(), ticket, req.UserID, req.Reason); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": ticket.ID, "status": domain.TicketStatusClosed}})
}

// ReopenTicket POST /tickets/:id/reopen.
func (h *TicketsHandler) ReopenTicket(c *fiber.Ctx) error {
	return h.withTicketActor(c, func(ticket *domain.Ticket, actorID int64) error {
		return h.service.ReopenTicket(c.UserContext(), ticket, actorID)
	})
}

// TransferTicket POST /tickets/:id/transfer.
func (h *TicketsHandler) TransferTicket(c *fiber.Ctx) error {
	var req dto.TransferTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.UserID == 0 || req.NewOwnerID == 0 {
		return util.NewValidationError("user_id and new_owner_id required", nil)
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	newOwner := domain.Member{ID: req.NewOwnerID, DisplayName: req.NewOwnerDisplay}
	if err := h.service.TransferTicket(c.UserContext(), ticket, req.UserID, newOwner); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": ticket.ID, "opener_id": req.NewOwnerID}})
}

// AddParticipant POST /tickets/:id/participants.
func (h *TicketsHandler) AddParticipant(c *fiber.Ctx) error {
	var req dto.ParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.AddTicketUser(c.UserContext(), ticket, req.UserID, req.TargetUserID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveParticipant DELETE /tickets/:id/participants/:userID.
func (h *TicketsHandler) RemoveParticipant(c *fiber.Ctx) error {
	targetID, err := paramInt64(c, "userID")
	if err != nil {
		return err
	}
	actorID := queryInt64(c, "actor_id")
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.RemoveTicketUser(c.UserContext(), ticket, actorID, targetID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetPriority PUT /tickets/:id/priority.
func (h *TicketsHandler) SetPriority(c *fiber.Ctx) error {
	var req dto.PriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.SetPriority(c.UserContext(), ticket, req.UserID, req.Priority); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetTags PUT /tickets/:id/tags.
func (h *TicketsHandler) SetTags(c *fiber.Ctx) error {
	var req dto.TagsRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.SetTags(c.UserContext(), ticket, req.UserID, req.Tags); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddNote POST /tickets/:id/notes.
func (h *TicketsHandler) AddNote(c *fiber.Ctx) error {
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.AddInternalNote(c.UserContext(), ticket, req.UserID, req.Note); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Escalate PUT /tickets/:id/escalation.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.Escalate(c.UserContext(), ticket, req.UserID, req.Level); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SubmitFeedback POST /tickets/:id/feedback.
func (h *TicketsHandler) SubmitFeedback(c *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.RecordFeedback(c.UserContext(), ticket, req.UserID, req.Stars, req.Feedback); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RegisterStaffMessage POST /tickets/:id/staff-messages.
func (h *TicketsHandler) RegisterStaffMessage(c *fiber.Ctx) error {
	var req dto.StaffMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	member := domain.Member{ID: req.UserID, DisplayName: req.DisplayName, IsBot: req.IsBot, IsStaff: true}
	if err := h.service.RegisterStaffMessage(c.UserContext(), ticket, member); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RenameTicket PUT /tickets/:id/name.
func (h *TicketsHandler) RenameTicket(c *fiber.Ctx) error {
	var req dto.RenameTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.UserID == 0 || req.NewChannelID == 0 {
		return util.NewValidationError("user_id and new_channel_id required", nil)
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.RenameTicket(c.UserContext(), ticket, req.UserID, req.NewChannelID, req.NewName); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetDepartment PUT /tickets/:id/department.
func (h *TicketsHandler) SetDepartment(c *fiber.Ctx) error {
	var req dto.DepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.SetDepartment(c.UserContext(), ticket, req.UserID, req.Department); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StoreTranscripts PUT /tickets/:id/transcripts.
func (h *TicketsHandler) StoreTranscripts(c *fiber.Ctx) error {
	var req dto.TranscriptsRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.service.StoreTranscripts(c.UserContext(), ticket, req.HTMLPath, req.TextPath); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteTicket DELETE /tickets/:id. Soft delete by default; ?hard=true
// also marks the row deleted for good.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actorID := queryInt64(c, "actor_id")
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if c.Query("hard") == "true" {
		err = h.service.HardDeleteTicket(c.UserContext(), ticket, actorID)
	} else {
		err = h.service.SoftDeleteTicket(c.UserContext(), ticket, actorID)
	}
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// TicketHistory GET /tickets/:id/history.
func (h *TicketsHandler) TicketHistory(c *fiber.Ctx) error {
	entries, err := h.service.TicketHistory(c.UserContext(), c.Params("id"), queryInt(c, "limit", 100))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}

// Blacklist POST /guilds/:guildID/blacklist.
func (h *TicketsHandler) Blacklist(c *fiber.Ctx) error {
	guildID, err := paramInt64(c, "guildID")
	if err != nil {
		return err
	}
	var req dto.BlacklistRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.TargetUserID == 0 {
		return util.NewValidationError("target_user_id required", nil)
	}
	if err := h.service.BlacklistUser(c.UserContext(), guildID, req.UserID, req.TargetUserID, req.Reason, req.Until); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Unblacklist DELETE /guilds/:guildID/blacklist/:userID.
func (h *TicketsHandler) Unblacklist(c *fiber.Ctx) error {
	guildID, err := paramInt64(c, "guildID")
	if err != nil {
		return err
	}
	targetID, err := paramInt64(c, "userID")
	if err != nil {
		return err
	}
	if err := h.service.UnblacklistUser(c.UserContext(), guildID, queryInt64(c, "actor_id"), targetID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListCategories GET /guilds/:guildID/categories.
func (h *TicketsHandler) ListCategories(c *fiber.Ctx) error {
	guildID, err := paramInt64(c, "guildID")
	if err != nil {
		return err
	}
	categories, err := h.service.ListCategories(c.UserContext(), guildID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categories})
}

// BootstrapCategories POST /guilds/:guildID/categories/bootstrap.
func (h *TicketsHandler) BootstrapCategories(c *fiber.Ctx) error {
	guildID, err := paramInt64(c, "guildID")
	if err != nil {
		return err
	}
	if err := h.service.BootstrapDefaultCategories(c.UserContext(), guildID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpsertCategory PUT /guilds/:guildID/categories.
func (h *TicketsHandler) UpsertCategory(c *fiber.Ctx) error {
	guildID, err := paramInt64(c, "guildID")
	if err != nil {
		return err
	}
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	category := domain.TicketCategory{
		GuildID:         guildID,
		Key:             req.Key,
		DisplayName:     req.DisplayName,
		Description:     req.Description,
		SupportRoleIDs:  req.SupportRoleIDs,
		ModalQuestions:  req.ModalQuestions,
		PriorityDefault: req.PriorityDefault,
		TagsDefault:     req.TagsDefault,
		SLAMinutes:      req.SLAMinutes,
		IsEnabled:       req.IsEnabled,
	}
	if err := h.service.UpsertCategory(c.UserContext(), &category); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": category})
}

// UpsertPanel PUT /guilds/:guildID/panels.
func (h *TicketsHandler) UpsertPanel(c *fiber.Ctx) error {
	guildID, err := paramInt64(c, "guildID")
	if err != nil {
		return err
	}
	var req dto.PanelRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	panel := domain.TicketPanel{
		PanelID:             req.PanelID,
		GuildID:             guildID,
		ChannelID:           req.ChannelID,
		MessageID:           req.MessageID,
		Title:               req.Title,
		Description:         req.Description,
		ButtonLabel:         req.ButtonLabel,
		CategoryMap:         req.CategoryMap,
		SupportRoleIDs:      req.SupportRoleIDs,
		LogChannelID:        req.LogChannelID,
		TranscriptChannelID: req.TranscriptChannelID,
		IsEnabled:           req.IsEnabled,
	}
	if err := h.service.UpsertPanel(c.UserContext(), &panel, req.UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": panel})
}

// GetPanel GET /panels/:panelID.
func (h *TicketsHandler) GetPanel(c *fiber.Ctx) error {
	panel, err := h.service.GetPanel(c.UserContext(), c.Params("panelID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": panel})
}

func (h *TicketsHandler) withTicketActor(c *fiber.Ctx, fn func(*domain.Ticket, int64) error) error {
	req, err := parseActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := fn(ticket, req.UserID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseActor(c *fiber.Ctx) (dto.ActorRequest, error) {
	var req dto.ActorRequest
	if err := c.BodyParser(&req); err != nil {
		return req, util.NewValidationError("invalid payload", nil)
	}
	if req.UserID == 0 {
		return req, util.NewValidationError("user_id required", nil)
	}
	return req, nil
}

func paramInt64(c *fiber.Ctx, name string) (int64, error) {
	val, err := strconv.ParseInt(strings.TrimSpace(c.Params(name)), 10, 64)
	if err != nil || val <= 0 {
		return 0, util.NewValidationError(name+" must be a positive integer", nil)
	}
	return val, nil
}

func queryInt(c *fiber.Ctx, name string, def int) int {
	val, err := strconv.Atoi(c.Query(name))
	if err != nil || val <= 0 {
		return def
	}
	return val
}

func queryInt64(c *fiber.Ctx, name string) int64 {
	val, _ := strconv.ParseInt(c.Query(name), 10, 64)
	return val
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:            ticket.ID,
		TicketNumber:  ticket.TicketNumber,
		GuildID:       ticket.GuildID,
		ChannelID:     ticket.ChannelID,
		OpenerID:      ticket.OpenerID,
		OpenerDisplay: ticket.OpenerDisplay,
		CategoryKey:   ticket.CategoryKey,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		Tags:          ticket.Tags,
		ClaimedByID:   ticket.ClaimedByID,
		IsAnonymous:   ticket.IsAnonymous,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, participants []int64) dto.TicketDetail {
	return dto.TicketDetail{
		TicketSummary:   ticketSummary(ticket),
		FormAnswers:     ticket.FormAnswers,
		InternalNotes:   ticket.InternalNotes,
		ClaimedAt:       ticket.ClaimedAt,
		FirstResponseAt: ticket.FirstResponseAt,
		ResponseDueAt:   ticket.ResponseDueAt,
		CloseReason:     ticket.CloseReason,
		ClosedByID:      ticket.ClosedByID,
		ClosedAt:        ticket.ClosedAt,
		ReopenedCount:   ticket.ReopenedCount,
		IsLocked:        ticket.IsLocked,
		EscalationLevel: ticket.EscalationLevel,
		Department:      ticket.Department,
		FeedbackStars:   ticket.FeedbackStars,
		Participants:    participants,
	}
}
