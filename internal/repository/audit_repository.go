package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository appends administrative action records.
type AuditRepository interface {
	Log(ctx context.Context, guildID, actorID int64, action string, targetID *string, metadata map[string]any) error
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository instantiates repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Log(ctx context.Context, guildID, actorID int64, action string, targetID *string, metadata map[string]any) error {
	const query = `
        INSERT INTO audit_logs (id, guild_id, actor_id, action, target_id, metadata_json)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err := r.pool.Exec(ctx, query, uuid.NewString(), guildID, actorID, action, targetID, jsonDump(metadata))
	return err
}
