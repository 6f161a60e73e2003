package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ParticipantRepository links users to ticket channels.
type ParticipantRepository interface {
	Add(ctx context.Context, ticketID string, userID, addedByID int64) error
	Remove(ctx context.Context, ticketID string, userID int64) error
	List(ctx context.Context, ticketID string) ([]int64, error)
}

type participantRepository struct {
	pool *pgxpool.Pool
}

// NewParticipantRepository instantiates repository.
func NewParticipantRepository(pool *pgxpool.Pool) ParticipantRepository {
	return &participantRepository{pool: pool}
}

func (r *participantRepository) Add(ctx context.Context, ticketID string, userID, addedByID int64) error {
	const query = `
        INSERT INTO ticket_participants (ticket_id, user_id, added_by_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (ticket_id, user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, ticketID, userID, addedByID)
	return err
}

func (r *participantRepository) Remove(ctx context.Context, ticketID string, userID int64) error {
	const query = `
        DELETE FROM ticket_participants WHERE ticket_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, query, ticketID, userID)
	return err
}

func (r *participantRepository) List(ctx context.Context, ticketID string) ([]int64, error) {
	const query = `
        SELECT user_id FROM ticket_participants WHERE ticket_id = $1 ORDER BY added_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []int64{}
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		users = append(users, userID)
	}
	return users, rows.Err()
}
