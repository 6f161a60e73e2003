package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildkit/ticketd/internal/domain"
)

// SecurityRepository appends abuse-detection events. Rows are never mutated.
type SecurityRepository interface {
	Log(ctx context.Context, guildID int64, eventType string, severity domain.SecuritySeverity, payload map[string]any) error
	ListRecent(ctx context.Context, guildID int64, limit int) ([]domain.SecurityEvent, error)
}

type securityRepository struct {
	pool *pgxpool.Pool
}

// NewSecurityRepository instantiates repository.
func NewSecurityRepository(pool *pgxpool.Pool) SecurityRepository {
	return &securityRepository{pool: pool}
}

func (r *securityRepository) Log(ctx context.Context, guildID int64, eventType string, severity domain.SecuritySeverity, payload map[string]any) error {
	const query = `
        INSERT INTO security_events (id, guild_id, event_type, severity, payload_json)
        VALUES ($1, $2, $3, $4, $5)`
	if payload == nil {
		payload = map[string]any{}
	}
	_, err := r.pool.Exec(ctx, query, uuid.NewString(), guildID, eventType, severity, jsonDump(payload))
	return err
}

func (r *securityRepository) ListRecent(ctx context.Context, guildID int64, limit int) ([]domain.SecurityEvent, error) {
	const query = `
        SELECT id, guild_id, event_type, severity, payload_json, created_at
        FROM security_events
        WHERE guild_id = $1
        ORDER BY created_at DESC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.SecurityEvent{}
	for rows.Next() {
		var event domain.SecurityEvent
		var payloadJSON string
		if err := rows.Scan(&event.ID, &event.GuildID, &event.EventType, &event.Severity, &payloadJSON, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.Payload = jsonLoadMap[any](payloadJSON)
		events = append(events, event)
	}
	return events, rows.Err()
}
