package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildkit/ticketd/internal/domain"
)

// AutomationRepository persists deferred jobs. Timestamps are naive UTC so
// due-comparisons stay consistent across storage backends.
type AutomationRepository interface {
	Insert(ctx context.Context, job *domain.AutomationJob) error
	Get(ctx context.Context, jobID string) (*domain.AutomationJob, error)
	// ListDue returns pending jobs of the given type with run_at <= now.
	ListDue(ctx context.Context, jobType domain.AutomationJobType, now time.Time) ([]domain.AutomationJob, error)
	SetStatus(ctx context.Context, jobID string, status domain.AutomationJobStatus) error
	SetFailed(ctx context.Context, jobID string, payload map[string]any) error
}

type automationRepository struct {
	pool *pgxpool.Pool
}

// NewAutomationRepository instantiates repository.
func NewAutomationRepository(pool *pgxpool.Pool) AutomationRepository {
	return &automationRepository{pool: pool}
}

func (r *automationRepository) Insert(ctx context.Context, job *domain.AutomationJob) error {
	const query = `
        INSERT INTO automation_jobs (id, ticket_id, guild_id, job_type, run_at, payload_json, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.TicketID,
		job.GuildID,
		job.JobType,
		job.RunAt,
		jsonDump(job.Payload),
		job.Status,
	)
	return err
}

func (r *automationRepository) Get(ctx context.Context, jobID string) (*domain.AutomationJob, error) {
	const query = `
        SELECT id, ticket_id, guild_id, job_type, run_at, payload_json, status
        FROM automation_jobs
        WHERE id = $1`
	var job domain.AutomationJob
	var payloadJSON string
	err := r.pool.QueryRow(ctx, query, jobID).Scan(
		&job.ID,
		&job.TicketID,
		&job.GuildID,
		&job.JobType,
		&job.RunAt,
		&payloadJSON,
		&job.Status,
	)
	if err != nil {
		return nil, err
	}
	job.Payload = jsonLoadMap[any](payloadJSON)
	return &job, nil
}

func (r *automationRepository) ListDue(ctx context.Context, jobType domain.AutomationJobType, now time.Time) ([]domain.AutomationJob, error) {
	const query = `
        SELECT id, ticket_id, guild_id, job_type, run_at, payload_json, status
        FROM automation_jobs
        WHERE status = 'pending' AND job_type = $1 AND run_at <= $2
        ORDER BY run_at ASC`
	rows, err := r.pool.Query(ctx, query, jobType, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []domain.AutomationJob{}
	for rows.Next() {
		var job domain.AutomationJob
		var payloadJSON string
		if err := rows.Scan(&job.ID, &job.TicketID, &job.GuildID, &job.JobType, &job.RunAt, &payloadJSON, &job.Status); err != nil {
			return nil, err
		}
		job.Payload = jsonLoadMap[any](payloadJSON)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *automationRepository) SetStatus(ctx context.Context, jobID string, status domain.AutomationJobStatus) error {
	const query = `
        UPDATE automation_jobs SET status = $1 WHERE id = $2`
	cmd, err := r.pool.Exec(ctx, query, status, jobID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *automationRepository) SetFailed(ctx context.Context, jobID string, payload map[string]any) error {
	const query = `
        UPDATE automation_jobs SET status = 'failed', payload_json = $1 WHERE id = $2`
	_, err := r.pool.Exec(ctx, query, jsonDump(payload), jobID)
	return err
}
