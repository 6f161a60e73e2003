package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StatusCount pairs a ticket status with its count.
type StatusCount struct {
	Status string
	Count  int64
}

// CategoryCount pairs a category key with its count.
type CategoryCount struct {
	CategoryKey string
	Count       int64
}

// DailyCount pairs a day (YYYY-MM-DD) with its count.
type DailyCount struct {
	Day   string
	Count int64
}

// AnalyticsRepository answers aggregate queries over tickets.
type AnalyticsRepository interface {
	TicketStatusCounts(ctx context.Context, guildID int64) ([]StatusCount, error)
	TicketCategoryCounts(ctx context.Context, guildID int64) ([]CategoryCount, error)
	DailyTicketCounts(ctx context.Context, guildID int64, days int) ([]DailyCount, error)
	ResponseTimeSeconds(ctx context.Context, guildID int64) ([]int64, error)
}

type analyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository instantiates repository.
func NewAnalyticsRepository(pool *pgxpool.Pool) AnalyticsRepository {
	return &analyticsRepository{pool: pool}
}

func (r *analyticsRepository) TicketStatusCounts(ctx context.Context, guildID int64) ([]StatusCount, error) {
	const query = `
        SELECT status, COUNT(*) FROM tickets WHERE guild_id = $1 GROUP BY status`
	rows, err := r.pool.Query(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []StatusCount{}
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *analyticsRepository) TicketCategoryCounts(ctx context.Context, guildID int64) ([]CategoryCount, error) {
	const query = `
        SELECT category_key, COUNT(*) FROM tickets
        WHERE guild_id = $1
        GROUP BY category_key
        ORDER BY COUNT(*) DESC`
	rows, err := r.pool.Query(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []CategoryCount{}
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.CategoryKey, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *analyticsRepository) DailyTicketCounts(ctx context.Context, guildID int64, days int) ([]DailyCount, error) {
	const query = `
        SELECT to_char(created_at::date, 'YYYY-MM-DD') AS day, COUNT(*)
        FROM tickets
        WHERE guild_id = $1 AND created_at >= NOW() - ($2 || ' days')::interval
        GROUP BY created_at::date
        ORDER BY created_at::date ASC`
	rows, err := r.pool.Query(ctx, query, guildID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []DailyCount{}
	for rows.Next() {
		var c DailyCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *analyticsRepository) ResponseTimeSeconds(ctx context.Context, guildID int64) ([]int64, error) {
	const query = `
        SELECT EXTRACT(EPOCH FROM (first_response_at - created_at))::BIGINT
        FROM tickets
        WHERE guild_id = $1 AND first_response_at IS NOT NULL`
	rows, err := r.pool.Query(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seconds := []int64{}
	for rows.Next() {
		var s int64
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seconds = append(seconds, s)
	}
	return seconds, rows.Err()
}
