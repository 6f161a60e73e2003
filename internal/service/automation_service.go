package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/guildkit/ticketd/internal/clock"
	"github.com/guildkit/ticketd/internal/domain"
	"github.com/guildkit/ticketd/internal/events"
	"github.com/guildkit/ticketd/internal/observability"
	"github.com/guildkit/ticketd/internal/repository"
	"github.com/guildkit/ticketd/pkg/util"
)

const (
	minAutoCloseMinutes = 1
	maxAutoCloseMinutes = 10080
	failureReasonMax    = 200
)

// AutomationService schedules deferred auto-close jobs and processes the
// ones that have come due. Jobs are persisted rows, not timers, so a
// restart never loses them; due jobs run on the next poll.
type AutomationService struct {
	automationRepo repository.AutomationRepository
	ticketRepo     repository.TicketRepository
	tickets        *TicketService
	dispatcher     events.Dispatcher
	metrics        *observability.Metrics
	clk            clock.Clock
	logger         *zap.Logger
	systemActorID  int64
}

// NewAutomationService constructs the service.
func NewAutomationService(
	automationRepo repository.AutomationRepository,
	ticketRepo repository.TicketRepository,
	tickets *TicketService,
	dispatcher events.Dispatcher,
	metrics *observability.Metrics,
	clk clock.Clock,
	logger *zap.Logger,
	systemActorID int64,
) *AutomationService {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutomationService{
		automationRepo: automationRepo,
		ticketRepo:     ticketRepo,
		tickets:        tickets,
		dispatcher:     dispatcher,
		metrics:        metrics,
		clk:            clk,
		logger:         logger,
		systemActorID:  systemActorID,
	}
}

// ScheduleAutoClose books a pending auto-close job for the ticket,
// delayMinutes from now. The delay is bounded to [1 minute, 7 days].
func (s *AutomationService) ScheduleAutoClose(ctx context.Context, ticket *domain.Ticket, actorID int64, delayMinutes int, reason string) (*domain.AutomationJob, error) {
	if delayMinutes < minAutoCloseMinutes || delayMinutes > maxAutoCloseMinutes {
		return nil, util.NewValidationError(
			fmt.Sprintf("auto-close delay must be between %d and %d minutes", minAutoCloseMinutes, maxAutoCloseMinutes), nil)
	}
	job := &domain.AutomationJob{
		ID:       uuid.NewString(),
		TicketID: ticket.ID,
		GuildID:  ticket.GuildID,
		JobType:  domain.JobTypeAutoClose,
		RunAt:    s.clk.NowUTC().Add(time.Duration(delayMinutes) * time.Minute),
		Status:   domain.JobStatusPending,
		Payload: map[string]any{
			"reason":       reason,
			"scheduled_by": actorID,
		},
	}
	if err := s.automationRepo.Insert(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("auto-close scheduled",
		zap.String("job_id", job.ID),
		zap.String("ticket_id", ticket.ID),
		zap.Int("delay_minutes", delayMinutes))
	return job, nil
}

// CancelJob marks a job cancelled regardless of its current status. The
// poller only picks up pending jobs, so cancelling a terminal job is a
// no-op in practice.
func (s *AutomationService) CancelJob(ctx context.Context, jobID string) error {
	if _, err := s.automationRepo.Get(ctx, jobID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewNotFound("automation job", nil)
		}
		return err
	}
	return s.automationRepo.SetStatus(ctx, jobID, domain.JobStatusCancelled)
}

// GetJob fetches a job by id.
func (s *AutomationService) GetJob(ctx context.Context, jobID string) (*domain.AutomationJob, error) {
	job, err := s.automationRepo.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("automation job", nil)
		}
		return nil, err
	}
	return job, nil
}

// ProcessDueJobs runs every pending auto-close job whose run_at has
// passed. Each job is isolated: a panic or error in one marks it failed
// and the rest of the batch still runs. Failed jobs are never retried.
func (s *AutomationService) ProcessDueJobs(ctx context.Context) (int, error) {
	due, err := s.automationRepo.ListDue(ctx, domain.JobTypeAutoClose, s.clk.NowUTC())
	if err != nil {
		return 0, err
	}
	processed := 0
	for i := range due {
		s.runJob(ctx, &due[i])
		processed++
	}
	return processed, nil
}

func (s *AutomationService) runJob(ctx context.Context, job *domain.AutomationJob) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("automation job panicked",
				zap.String("job_id", job.ID),
				zap.Any("panic", r))
			s.failJob(ctx, job, fmt.Sprintf("panic: %v", r))
		}
	}()

	ticket, err := s.ticketRepo.GetByID(ctx, job.TicketID)
	if err != nil || ticket == nil {
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			s.failJob(ctx, job, err.Error())
			return
		}
		s.failJob(ctx, job, "ticket_not_found")
		return
	}

	if ticket.Status == domain.TicketStatusClosed || ticket.Status == domain.TicketStatusDeleted {
		s.completeJob(ctx, job)
		return
	}

	reason := "Automatically closed after scheduled delay"
	if v, ok := job.Payload["reason"].(string); ok && v != "" {
		reason = v
	}
	if err := s.tickets.CloseTicket(ctx, ticket, s.systemActorID, reason); err != nil {
		s.failJob(ctx, job, err.Error())
		return
	}
	s.completeJob(ctx, job)
}

func (s *AutomationService) completeJob(ctx context.Context, job *domain.AutomationJob) {
	if err := s.automationRepo.SetStatus(ctx, job.ID, domain.JobStatusCompleted); err != nil {
		s.logger.Error("failed to mark job completed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	s.metrics.RecordJob(string(job.JobType), "completed")
	s.publishOutcome(ctx, events.EventJobCompleted, job, nil)
}

func (s *AutomationService) failJob(ctx context.Context, job *domain.AutomationJob, reason string) {
	if len(reason) > failureReasonMax {
		reason = reason[:failureReasonMax]
	}
	payload := map[string]any{}
	for k, v := range job.Payload {
		payload[k] = v
	}
	payload["failure_reason"] = reason
	if err := s.automationRepo.SetFailed(ctx, job.ID, payload); err != nil {
		s.logger.Error("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	s.metrics.RecordJob(string(job.JobType), "failed")
	s.logger.Warn("automation job failed",
		zap.String("job_id", job.ID),
		zap.String("ticket_id", job.TicketID),
		zap.String("reason", reason))
	s.publishOutcome(ctx, events.EventJobFailed, job, map[string]any{"failure_reason": reason})
}

func (s *AutomationService) publishOutcome(ctx context.Context, eventType events.EventType, job *domain.AutomationJob, payload map[string]any) {
	if s.dispatcher == nil {
		return
	}
	if payload == nil {
		payload = map[string]any{}
	}
	payload["job_id"] = job.ID
	payload["job_type"] = string(job.JobType)
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		GuildID:   job.GuildID,
		TicketID:  job.TicketID,
		ActorID:   s.systemActorID,
		Timestamp: s.clk.NowUTC(),
		Payload:   payload,
	})
}
