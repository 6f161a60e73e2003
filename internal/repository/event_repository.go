package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildkit/ticketd/internal/domain"
)

// EventRepository appends to a ticket's event log.
type EventRepository interface {
	Log(ctx context.Context, ticketID string, guildID, actorID int64, eventType string, payload map[string]any) error
	ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.TicketEvent, error)
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository instantiates repository.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

func (r *eventRepository) Log(ctx context.Context, ticketID string, guildID, actorID int64, eventType string, payload map[string]any) error {
	const query = `
        INSERT INTO ticket_events (id, ticket_id, guild_id, actor_id, event_type, payload_json)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if payload == nil {
		payload = map[string]any{}
	}
	_, err := r.pool.Exec(ctx, query, uuid.NewString(), ticketID, guildID, actorID, eventType, jsonDump(payload))
	return err
}

func (r *eventRepository) ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.TicketEvent, error) {
	const query = `
        SELECT id, ticket_id, guild_id, actor_id, event_type, payload_json
        FROM ticket_events
        WHERE ticket_id = $1
        ORDER BY created_at ASC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, ticketID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.TicketEvent{}
	for rows.Next() {
		var event domain.TicketEvent
		var payloadJSON string
		if err := rows.Scan(&event.ID, &event.TicketID, &event.GuildID, &event.ActorID, &event.EventType, &payloadJSON); err != nil {
			return nil, err
		}
		event.Payload = jsonLoadMap[any](payloadJSON)
		events = append(events, event)
	}
	return events, rows.Err()
}
