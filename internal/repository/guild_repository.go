package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GuildRepository owns per-guild settings and the ticket counter.
type GuildRepository interface {
	EnsureGuild(ctx context.Context, guildID int64) error
	// NextTicketNumber allocates the next strictly increasing ticket number
	// for the guild. Concurrent callers never receive the same number.
	NextTicketNumber(ctx context.Context, guildID int64) (int, error)
	SetChannels(ctx context.Context, guildID int64, transcriptChannelID, logChannelID *int64) error
}

type guildRepository struct {
	pool *pgxpool.Pool
}

// NewGuildRepository instantiates repository.
func NewGuildRepository(pool *pgxpool.Pool) GuildRepository {
	return &guildRepository{pool: pool}
}

func (r *guildRepository) EnsureGuild(ctx context.Context, guildID int64) error {
	const query = `
        INSERT INTO guild_settings (guild_id)
        VALUES ($1)
        ON CONFLICT (guild_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, guildID)
	return err
}

func (r *guildRepository) NextTicketNumber(ctx context.Context, guildID int64) (int, error) {
	if err := r.EnsureGuild(ctx, guildID); err != nil {
		return 0, err
	}
	// Single-statement read-modify-write; the database serializes
	// concurrent allocations for the same guild row.
	const query = `
        UPDATE guild_settings
        SET ticket_counter = ticket_counter + 1, updated_at = NOW()
        WHERE guild_id = $1
        RETURNING ticket_counter`
	var number int
	if err := r.pool.QueryRow(ctx, query, guildID).Scan(&number); err != nil {
		return 0, err
	}
	return number, nil
}

func (r *guildRepository) SetChannels(ctx context.Context, guildID int64, transcriptChannelID, logChannelID *int64) error {
	if err := r.EnsureGuild(ctx, guildID); err != nil {
		return err
	}
	const query = `
        UPDATE guild_settings
        SET transcript_channel_id = $1, log_channel_id = $2, updated_at = NOW()
        WHERE guild_id = $3`
	_, err := r.pool.Exec(ctx, query, transcriptChannelID, logChannelID, guildID)
	return err
}
