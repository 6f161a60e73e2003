package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildkit/ticketd/internal/domain"
)

// StaffPrincipalRepository stores API credentials for staff operators.
type StaffPrincipalRepository interface {
	Create(ctx context.Context, principal *domain.StaffPrincipal) error
	GetByUsername(ctx context.Context, username string) (*domain.StaffPrincipal, error)
	GetByID(ctx context.Context, id string) (*domain.StaffPrincipal, error)
}

type staffPrincipalRepository struct {
	pool *pgxpool.Pool
}

// NewStaffPrincipalRepository instantiates repository.
func NewStaffPrincipalRepository(pool *pgxpool.Pool) StaffPrincipalRepository {
	return &staffPrincipalRepository{pool: pool}
}

func (r *staffPrincipalRepository) Create(ctx context.Context, principal *domain.StaffPrincipal) error {
	const query = `
        INSERT INTO staff_principals (id, guild_id, staff_id, username, password_hash, role, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		principal.ID,
		principal.GuildID,
		principal.StaffID,
		principal.Username,
		principal.PasswordHash,
		principal.Role,
		principal.IsActive,
	)
	return err
}

func (r *staffPrincipalRepository) GetByUsername(ctx context.Context, username string) (*domain.StaffPrincipal, error) {
	const query = `
        SELECT id, guild_id, staff_id, username, password_hash, role, is_active, created_at
        FROM staff_principals
        WHERE username = $1`
	return r.fetchSingle(ctx, query, username)
}

func (r *staffPrincipalRepository) GetByID(ctx context.Context, id string) (*domain.StaffPrincipal, error) {
	const query = `
        SELECT id, guild_id, staff_id, username, password_hash, role, is_active, created_at
        FROM staff_principals
        WHERE id = $1`
	return r.fetchSingle(ctx, query, id)
}

func (r *staffPrincipalRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.StaffPrincipal, error) {
	var principal domain.StaffPrincipal
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&principal.ID,
		&principal.GuildID,
		&principal.StaffID,
		&principal.Username,
		&principal.PasswordHash,
		&principal.Role,
		&principal.IsActive,
		&principal.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &principal, nil
}
