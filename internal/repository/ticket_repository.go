package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildkit/ticketd/internal/domain"
)

// TicketRepository encapsulates ticket persistence. Rows are never removed;
// deletion is a pair of flags.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByChannel(ctx context.Context, guildID, channelID int64) (*domain.Ticket, error)
	ListOpenByUser(ctx context.Context, guildID, openerID int64) ([]domain.Ticket, error)
	ListOpen(ctx context.Context, guildID int64, limit int) ([]domain.Ticket, error)
	ListRecent(ctx context.Context, guildID int64, limit int) ([]domain.Ticket, error)
	SetStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error
	SetClosed(ctx context.Context, ticketID, closeReason string, closedByID int64, closedAt time.Time) error
	SetLocked(ctx context.Context, ticketID string, locked bool) error
	SetClaimed(ctx context.Context, ticketID string, staffID *int64, claimedAt *time.Time) error
	SetPriority(ctx context.Context, ticketID string, priority domain.TicketPriority) error
	SetTags(ctx context.Context, ticketID string, tags []string) error
	AppendInternalNote(ctx context.Context, ticketID string, note domain.InternalNote) error
	TransferOwner(ctx context.Context, ticketID string, newOwnerID int64, newDisplay string) error
	UpdateChannel(ctx context.Context, ticketID string, newChannelID int64) error
	SetTranscripts(ctx context.Context, ticketID string, htmlPath, txtPath *string) error
	IncrementReopened(ctx context.Context, ticketID string) error
	MarkSoftDeleted(ctx context.Context, ticketID string) error
	MarkHardDeleted(ctx context.Context, ticketID string) error
	RecordFirstResponse(ctx context.Context, ticketID string, staffID int64, at time.Time) error
	SetDepartment(ctx context.Context, ticketID, department string) error
	SetEscalationLevel(ctx context.Context, ticketID string, level int) error
	SubmitFeedback(ctx context.Context, ticketID string, guildID, userID int64, stars int, feedback *string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `
        id, ticket_number, guild_id, channel_id, opener_id, opener_display,
        panel_id, category_key, category_channel_id, status, priority,
        tags_json, form_answers_json, internal_notes_json,
        claimed_by_id, claimed_at, first_response_at, first_response_by_id,
        response_due_at, close_reason, closed_by_id, closed_at, reopened_count,
        is_locked, is_anonymous, transcript_html_path, transcript_txt_path,
        soft_deleted, hard_deleted, escalation_level, department,
        feedback_stars, feedback_text, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (
            id, ticket_number, guild_id, channel_id, opener_id, opener_display,
            panel_id, category_key, category_channel_id, status, priority,
            tags_json, form_answers_json, internal_notes_json, response_due_at,
            is_anonymous, department, created_at, updated_at
        )
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$18)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.TicketNumber,
		ticket.GuildID,
		ticket.ChannelID,
		ticket.OpenerID,
		ticket.OpenerDisplay,
		ticket.PanelID,
		ticket.CategoryKey,
		ticket.CategoryChannelID,
		ticket.Status,
		ticket.Priority,
		jsonDump(ticket.Tags),
		jsonDump(ticket.FormAnswers),
		jsonDump(ticket.InternalNotes),
		ticket.ResponseDueAt,
		ticket.IsAnonymous,
		ticket.Department,
		ticket.CreatedAt,
	)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByChannel(ctx context.Context, guildID, channelID int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE guild_id = $1 AND channel_id = $2`
	var ticket domain.Ticket
	row := r.pool.QueryRow(ctx, query, guildID, channelID)
	if err := scanTicket(row, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListOpenByUser(ctx context.Context, guildID, openerID int64) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE guild_id = $1 AND opener_id = $2 AND status IN ('open', 'pending')
        ORDER BY created_at DESC`
	return r.fetchMany(ctx, query, guildID, openerID)
}

func (r *ticketRepository) ListOpen(ctx context.Context, guildID int64, limit int) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE guild_id = $1 AND status IN ('open', 'pending', 'locked')
        ORDER BY created_at DESC
        LIMIT $2`
	return r.fetchMany(ctx, query, guildID, limit)
}

func (r *ticketRepository) ListRecent(ctx context.Context, guildID int64, limit int) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
        FROM tickets
        WHERE guild_id = $1
        ORDER BY created_at DESC
        LIMIT $2`
	return r.fetchMany(ctx, query, guildID, limit)
}

func (r *ticketRepository) SetStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	const query = `
        UPDATE tickets SET status = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, query, status, ticketID)
}

func (r *ticketRepository) SetClosed(ctx context.Context, ticketID, closeReason string, closedByID int64, closedAt time.Time) error {
	const query = `
        UPDATE tickets
        SET status = 'closed', close_reason = $1, closed_by_id = $2, closed_at = $3, updated_at = NOW()
        WHERE id = $4`
	return r.exec(ctx, query, closeReason, closedByID, closedAt, ticketID)
}

func (r *ticketRepository) SetLocked(ctx context.Context, ticketID string, locked bool) error {
	status := domain.TicketStatusOpen
	if locked {
		status = domain.TicketStatusLocked
	}
	const query = `
        UPDATE tickets SET is_locked = $1, status = $2, updated_at = NOW() WHERE id = $3`
	return r.exec(ctx, query, locked, status, ticketID)
}

func (r *ticketRepository) SetClaimed(ctx context.Context, ticketID string, staffID *int64, claimedAt *time.Time) error {
	const query = `
        UPDATE tickets SET claimed_by_id = $1, claimed_at = $2, updated_at = NOW() WHERE id = $3`
	return r.exec(ctx, query, staffID, claimedAt, ticketID)
}

func (r *ticketRepository) SetPriority(ctx context.Context, ticketID string, priority domain.TicketPriority) error {
	const query = `
        UPDATE tickets SET priority = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, query, priority, ticketID)
}

func (r *ticketRepository) SetTags(ctx context.Context, ticketID string, tags []string) error {
	const query = `
        UPDATE tickets SET tags_json = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, query, jsonDump(tags), ticketID)
}

func (r *ticketRepository) AppendInternalNote(ctx context.Context, ticketID string, note domain.InternalNote) error {
	const selectQuery = `SELECT internal_notes_json FROM tickets WHERE id = $1`
	var raw string
	if err := r.pool.QueryRow(ctx, selectQuery, ticketID).Scan(&raw); err != nil {
		return err
	}
	notes := jsonLoadSlice[domain.InternalNote](raw)
	notes = append(notes, note)
	const updateQuery = `
        UPDATE tickets SET internal_notes_json = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, updateQuery, jsonDump(notes), ticketID)
}

func (r *ticketRepository) TransferOwner(ctx context.Context, ticketID string, newOwnerID int64, newDisplay string) error {
	const query = `
        UPDATE tickets SET opener_id = $1, opener_display = $2, updated_at = NOW() WHERE id = $3`
	return r.exec(ctx, query, newOwnerID, newDisplay, ticketID)
}

func (r *ticketRepository) UpdateChannel(ctx context.Context, ticketID string, newChannelID int64) error {
	const query = `
        UPDATE tickets SET channel_id = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, query, newChannelID, ticketID)
}

func (r *ticketRepository) SetTranscripts(ctx context.Context, ticketID string, htmlPath, txtPath *string) error {
	const query = `
        UPDATE tickets SET transcript_html_path = $1, transcript_txt_path = $2, updated_at = NOW() WHERE id = $3`
	return r.exec(ctx, query, htmlPath, txtPath, ticketID)
}

func (r *ticketRepository) IncrementReopened(ctx context.Context, ticketID string) error {
	const query = `
        UPDATE tickets SET reopened_count = reopened_count + 1, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, ticketID)
}

func (r *ticketRepository) MarkSoftDeleted(ctx context.Context, ticketID string) error {
	const query = `
        UPDATE tickets SET soft_deleted = TRUE, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, ticketID)
}

func (r *ticketRepository) MarkHardDeleted(ctx context.Context, ticketID string) error {
	const query = `
        UPDATE tickets SET hard_deleted = TRUE, status = 'deleted', updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, ticketID)
}

// RecordFirstResponse stamps the first-response fields at most once, ever;
// COALESCE makes later calls no-ops.
func (r *ticketRepository) RecordFirstResponse(ctx context.Context, ticketID string, staffID int64, at time.Time) error {
	const query = `
        UPDATE tickets
        SET first_response_at = COALESCE(first_response_at, $1),
            first_response_by_id = COALESCE(first_response_by_id, $2),
            updated_at = NOW()
        WHERE id = $3`
	return r.exec(ctx, query, at, staffID, ticketID)
}

func (r *ticketRepository) SetDepartment(ctx context.Context, ticketID, department string) error {
	const query = `
        UPDATE tickets SET department = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, query, department, ticketID)
}

func (r *ticketRepository) SetEscalationLevel(ctx context.Context, ticketID string, level int) error {
	const query = `
        UPDATE tickets SET escalation_level = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, query, level, ticketID)
}

func (r *ticketRepository) SubmitFeedback(ctx context.Context, ticketID string, guildID, userID int64, stars int, feedback *string) error {
	const ratingQuery = `
        INSERT INTO ticket_ratings (id, ticket_id, guild_id, user_id, stars, feedback)
        VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
        ON CONFLICT (ticket_id) DO UPDATE SET stars = excluded.stars, feedback = excluded.feedback`
	if _, err := r.pool.Exec(ctx, ratingQuery, ticketID, guildID, userID, stars, feedback); err != nil {
		return err
	}
	const ticketQuery = `
        UPDATE tickets SET feedback_stars = $1, feedback_text = $2, updated_at = NOW() WHERE id = $3`
	return r.exec(ctx, ticketQuery, stars, feedback, ticketID)
}

func (r *ticketRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	row := r.pool.QueryRow(ctx, query, arg)
	if err := scanTicket(row, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) fetchMany(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	var tagsJSON, answersJSON, notesJSON string
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.GuildID,
		&ticket.ChannelID,
		&ticket.OpenerID,
		&ticket.OpenerDisplay,
		&ticket.PanelID,
		&ticket.CategoryKey,
		&ticket.CategoryChannelID,
		&ticket.Status,
		&ticket.Priority,
		&tagsJSON,
		&answersJSON,
		&notesJSON,
		&ticket.ClaimedByID,
		&ticket.ClaimedAt,
		&ticket.FirstResponseAt,
		&ticket.FirstResponseByID,
		&ticket.ResponseDueAt,
		&ticket.CloseReason,
		&ticket.ClosedByID,
		&ticket.ClosedAt,
		&ticket.ReopenedCount,
		&ticket.IsLocked,
		&ticket.IsAnonymous,
		&ticket.TranscriptHTML,
		&ticket.TranscriptTXT,
		&ticket.SoftDeleted,
		&ticket.HardDeleted,
		&ticket.EscalationLevel,
		&ticket.Department,
		&ticket.FeedbackStars,
		&ticket.FeedbackText,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return err
	}
	ticket.Tags = jsonLoadSlice[string](tagsJSON)
	ticket.FormAnswers = jsonLoadMap[string](answersJSON)
	ticket.InternalNotes = jsonLoadSlice[domain.InternalNote](notesJSON)
	return nil
}
