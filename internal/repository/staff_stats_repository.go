package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildkit/ticketd/internal/domain"
)

// StaffStatsRepository aggregates per-staff activity counters.
type StaffStatsRepository interface {
	IncrementClaimed(ctx context.Context, guildID, staffID int64) error
	IncrementClosed(ctx context.Context, guildID, staffID int64) error
	AddMessage(ctx context.Context, guildID, staffID int64) error
	AddFirstResponse(ctx context.Context, guildID, staffID int64, responseSeconds int64) error
	Leaderboard(ctx context.Context, guildID int64, limit int) ([]domain.StaffStats, error)
}

type staffStatsRepository struct {
	pool *pgxpool.Pool
}

// NewStaffStatsRepository instantiates repository.
func NewStaffStatsRepository(pool *pgxpool.Pool) StaffStatsRepository {
	return &staffStatsRepository{pool: pool}
}

func (r *staffStatsRepository) ensure(ctx context.Context, guildID, staffID int64) error {
	const query = `
        INSERT INTO staff_stats (guild_id, staff_id)
        VALUES ($1, $2)
        ON CONFLICT (guild_id, staff_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, guildID, staffID)
	return err
}

func (r *staffStatsRepository) IncrementClaimed(ctx context.Context, guildID, staffID int64) error {
	if err := r.ensure(ctx, guildID, staffID); err != nil {
		return err
	}
	const query = `
        UPDATE staff_stats
        SET tickets_claimed = tickets_claimed + 1, last_active_at = NOW()
        WHERE guild_id = $1 AND staff_id = $2`
	_, err := r.pool.Exec(ctx, query, guildID, staffID)
	return err
}

func (r *staffStatsRepository) IncrementClosed(ctx context.Context, guildID, staffID int64) error {
	if err := r.ensure(ctx, guildID, staffID); err != nil {
		return err
	}
	const query = `
        UPDATE staff_stats
        SET tickets_closed = tickets_closed + 1, last_active_at = NOW()
        WHERE guild_id = $1 AND staff_id = $2`
	_, err := r.pool.Exec(ctx, query, guildID, staffID)
	return err
}

func (r *staffStatsRepository) AddMessage(ctx context.Context, guildID, staffID int64) error {
	if err := r.ensure(ctx, guildID, staffID); err != nil {
		return err
	}
	const query = `
        UPDATE staff_stats
        SET total_messages = total_messages + 1, last_active_at = NOW()
        WHERE guild_id = $1 AND staff_id = $2`
	_, err := r.pool.Exec(ctx, query, guildID, staffID)
	return err
}

func (r *staffStatsRepository) AddFirstResponse(ctx context.Context, guildID, staffID int64, responseSeconds int64) error {
	if err := r.ensure(ctx, guildID, staffID); err != nil {
		return err
	}
	const query = `
        UPDATE staff_stats
        SET total_first_response_seconds = total_first_response_seconds + $1,
            first_response_count = first_response_count + 1,
            last_active_at = NOW()
        WHERE guild_id = $2 AND staff_id = $3`
	_, err := r.pool.Exec(ctx, query, responseSeconds, guildID, staffID)
	return err
}

func (r *staffStatsRepository) Leaderboard(ctx context.Context, guildID int64, limit int) ([]domain.StaffStats, error) {
	const query = `
        SELECT guild_id, staff_id, tickets_claimed, tickets_closed, total_messages,
               total_first_response_seconds, first_response_count, last_active_at
        FROM staff_stats
        WHERE guild_id = $1
        ORDER BY tickets_closed DESC, tickets_claimed DESC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []domain.StaffStats{}
	for rows.Next() {
		var s domain.StaffStats
		if err := rows.Scan(
			&s.GuildID,
			&s.StaffID,
			&s.TicketsClaimed,
			&s.TicketsClosed,
			&s.TotalMessages,
			&s.TotalFirstResponseSeconds,
			&s.FirstResponseCount,
			&s.LastActiveAt,
		); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
