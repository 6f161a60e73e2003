package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildkit/ticketd/internal/domain"
	"github.com/guildkit/ticketd/internal/events"
	"github.com/guildkit/ticketd/internal/observability"
	"github.com/guildkit/ticketd/pkg/util"
)

const systemActorID int64 = 999

type automationFixture struct {
	*ticketFixture
	svc     *AutomationService
	jobs    *fakeAutomationRepo
	metrics *observability.Metrics
}

func newAutomationFixture(t *testing.T) *automationFixture {
	t.Helper()
	base := newTicketFixture(t, defaultSecurityConfig())
	jobs := newFakeAutomationRepo()
	metrics := observability.NewMetrics()
	svc := NewAutomationService(jobs, base.tickets, base.svc, events.NewInMemoryDispatcher(), metrics, base.clk, nil, systemActorID)
	return &automationFixture{ticketFixture: base, svc: svc, jobs: jobs, metrics: metrics}
}

func TestScheduleAutoCloseBounds(t *testing.T) {
	f := newAutomationFixture(t)
	ticket := f.create(t, 42, "Alice")

	_, err := f.svc.ScheduleAutoClose(context.Background(), ticket, 7, 0, "inactive")
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.svc.ScheduleAutoClose(context.Background(), ticket, 7, 10081, "inactive")
	require.Error(t, err)

	job, err := f.svc.ScheduleAutoClose(context.Background(), ticket, 7, 5, "inactive")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, f.clk.NowUTC().Add(5*time.Minute), job.RunAt)
	assert.Equal(t, "inactive", job.Payload["reason"])
}

func TestCancelJob(t *testing.T) {
	f := newAutomationFixture(t)
	ticket := f.create(t, 42, "Alice")
	job, err := f.svc.ScheduleAutoClose(context.Background(), ticket, 7, 5, "inactive")
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelJob(context.Background(), job.ID))
	cancelled, err := f.svc.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, cancelled.Status)

	// Cancelling again is harmless.
	require.NoError(t, f.svc.CancelJob(context.Background(), job.ID))

	err = f.svc.CancelJob(context.Background(), "missing-id")
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "NOT_FOUND"))
}

func TestProcessDueJobsClosesTicket(t *testing.T) {
	f := newAutomationFixture(t)
	ticket := f.create(t, 42, "Alice")
	job, err := f.svc.ScheduleAutoClose(context.Background(), ticket, 7, 5, "no response")
	require.NoError(t, err)

	// Not due yet.
	processed, err := f.svc.ProcessDueJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)

	f.clk.Advance(5 * time.Minute)
	processed, err = f.svc.ProcessDueJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	closed, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.CloseReason)
	assert.Equal(t, "no response", *closed.CloseReason)
	require.NotNil(t, closed.ClosedByID)
	assert.Equal(t, systemActorID, *closed.ClosedByID)

	done, err := f.svc.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, done.Status)
	assert.Equal(t, int64(1), f.metrics.JobCount(string(domain.JobTypeAutoClose), "completed"))

	// A second pass finds nothing pending.
	processed, err = f.svc.ProcessDueJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestProcessDueJobsAlreadyClosedTicket(t *testing.T) {
	f := newAutomationFixture(t)
	ticket := f.create(t, 42, "Alice")
	job, err := f.svc.ScheduleAutoClose(context.Background(), ticket, 7, 5, "no response")
	require.NoError(t, err)

	require.NoError(t, f.ticketFixture.svc.CloseTicket(context.Background(), ticket, 7, "resolved by staff"))
	f.clk.Advance(5 * time.Minute)

	processed, err := f.svc.ProcessDueJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	// The job completes without touching the staff close.
	done, err := f.svc.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, done.Status)

	closed, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.CloseReason)
	assert.Equal(t, "resolved by staff", *closed.CloseReason)
}

func TestProcessDueJobsMissingTicket(t *testing.T) {
	f := newAutomationFixture(t)
	job := &domain.AutomationJob{
		ID:       "job-1",
		TicketID: "gone",
		GuildID:  100,
		JobType:  domain.JobTypeAutoClose,
		RunAt:    f.clk.NowUTC().Add(-time.Minute),
		Status:   domain.JobStatusPending,
		Payload:  map[string]any{"reason": "inactive"},
	}
	require.NoError(t, f.jobs.Insert(context.Background(), job))

	processed, err := f.svc.ProcessDueJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	failed, err := f.svc.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, failed.Status)
	assert.Equal(t, "ticket_not_found", failed.Payload["failure_reason"])
	assert.Equal(t, int64(1), f.metrics.JobCount(string(domain.JobTypeAutoClose), "failed"))

	// Failed jobs never come due again.
	processed, err = f.svc.ProcessDueJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestProcessDueJobsTruncatesFailureReason(t *testing.T) {
	f := newAutomationFixture(t)
	job := &domain.AutomationJob{
		ID:       "job-2",
		TicketID: "gone",
		GuildID:  100,
		JobType:  domain.JobTypeAutoClose,
		RunAt:    f.clk.NowUTC().Add(-time.Minute),
		Status:   domain.JobStatusPending,
	}
	require.NoError(t, f.jobs.Insert(context.Background(), job))
	f.svc.failJob(context.Background(), job, string(make([]byte, 500)))

	failed, err := f.svc.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	reason, ok := failed.Payload["failure_reason"].(string)
	require.True(t, ok)
	assert.Len(t, reason, 200)
}
