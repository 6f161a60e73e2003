package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guildkit/ticketd/internal/api/dto"
	"github.com/guildkit/ticketd/internal/domain"
	"github.com/guildkit/ticketd/internal/service"
	"github.com/guildkit/ticketd/pkg/util"
)

// AutomationHandler manages deferred auto-close jobs over HTTP.
type AutomationHandler struct {
	automation *service.AutomationService
	tickets    *service.TicketService
}

// NewAutomationHandler constructs handler.
func NewAutomationHandler(automation *service.AutomationService, tickets *service.TicketService) *AutomationHandler {
	return &AutomationHandler{automation: automation, tickets: tickets}
}

// ScheduleAutoClose POST /tickets/:id/auto-close.
func (h *AutomationHandler) ScheduleAutoClose(c *fiber.Ctx) error {
	var req dto.ScheduleAutoCloseRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	job, err := h.automation.ScheduleAutoClose(c.UserContext(), ticket, req.UserID, req.DelayMinutes, req.Reason)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": jobResponse(job)})
}

// GetJob GET /automation/jobs/:jobID.
func (h *AutomationHandler) GetJob(c *fiber.Ctx) error {
	job, err := h.automation.GetJob(c.UserContext(), c.Params("jobID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": jobResponse(job)})
}

// CancelJob DELETE /automation/jobs/:jobID.
func (h *AutomationHandler) CancelJob(c *fiber.Ctx) error {
	if err := h.automation.CancelJob(c.UserContext(), c.Params("jobID")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func jobResponse(job *domain.AutomationJob) dto.JobResponse {
	return dto.JobResponse{
		ID:       job.ID,
		TicketID: job.TicketID,
		GuildID:  job.GuildID,
		JobType:  string(job.JobType),
		RunAt:    job.RunAt,
		Status:   string(job.Status),
		Payload:  job.Payload,
	}
}
