package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildkit/ticketd/internal/domain"
)

// BlacklistRepository keys entries by (guild, user). Expiry is lazy: the
// read path deletes an expired row and treats it as absent.
type BlacklistRepository interface {
	Add(ctx context.Context, entry *domain.BlacklistEntry) error
	Remove(ctx context.Context, guildID, userID int64) error
	GetActive(ctx context.Context, guildID, userID int64, now time.Time) (*domain.BlacklistEntry, error)
}

type blacklistRepository struct {
	pool *pgxpool.Pool
}

// NewBlacklistRepository instantiates repository.
func NewBlacklistRepository(pool *pgxpool.Pool) BlacklistRepository {
	return &blacklistRepository{pool: pool}
}

func (r *blacklistRepository) Add(ctx context.Context, entry *domain.BlacklistEntry) error {
	const query = `
        INSERT INTO ticket_blacklist (guild_id, user_id, reason, until_at, created_by_id)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (guild_id, user_id) DO UPDATE SET
            reason = excluded.reason,
            until_at = excluded.until_at,
            created_by_id = excluded.created_by_id,
            created_at = NOW()`
	_, err := r.pool.Exec(ctx, query, entry.GuildID, entry.UserID, entry.Reason, entry.UntilAt, entry.CreatedByID)
	return err
}

func (r *blacklistRepository) Remove(ctx context.Context, guildID, userID int64) error {
	const query = `
        DELETE FROM ticket_blacklist WHERE guild_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, query, guildID, userID)
	return err
}

func (r *blacklistRepository) GetActive(ctx context.Context, guildID, userID int64, now time.Time) (*domain.BlacklistEntry, error) {
	const query = `
        SELECT guild_id, user_id, reason, until_at, created_by_id, created_at
        FROM ticket_blacklist
        WHERE guild_id = $1 AND user_id = $2`
	var entry domain.BlacklistEntry
	err := r.pool.QueryRow(ctx, query, guildID, userID).Scan(
		&entry.GuildID,
		&entry.UserID,
		&entry.Reason,
		&entry.UntilAt,
		&entry.CreatedByID,
		&entry.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if entry.UntilAt != nil && !entry.UntilAt.After(now) {
		if err := r.Remove(ctx, guildID, userID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &entry, nil
}
