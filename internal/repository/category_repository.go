package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildkit/ticketd/internal/domain"
)

// CategoryRepository stores ticket templates per guild.
type CategoryRepository interface {
	Upsert(ctx context.Context, category *domain.TicketCategory) error
	Get(ctx context.Context, guildID int64, key string) (*domain.TicketCategory, error)
	ListByGuild(ctx context.Context, guildID int64) ([]domain.TicketCategory, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository instantiates repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

const categoryColumns = `
        id, guild_id, key, display_name, description, channel_category_id,
        support_role_ids_json, modal_questions_json, priority_default,
        tags_default_json, sla_minutes, is_enabled`

func (r *categoryRepository) Upsert(ctx context.Context, category *domain.TicketCategory) error {
	const query = `
        INSERT INTO ticket_categories (
            id, guild_id, key, display_name, description, channel_category_id,
            support_role_ids_json, modal_questions_json, priority_default,
            tags_default_json, sla_minutes, is_enabled, updated_at
        )
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW())
        ON CONFLICT (guild_id, key) DO UPDATE SET
            display_name = excluded.display_name,
            description = excluded.description,
            channel_category_id = excluded.channel_category_id,
            support_role_ids_json = excluded.support_role_ids_json,
            modal_questions_json = excluded.modal_questions_json,
            priority_default = excluded.priority_default,
            tags_default_json = excluded.tags_default_json,
            sla_minutes = excluded.sla_minutes,
            is_enabled = excluded.is_enabled,
            updated_at = NOW()`
	_, err := r.pool.Exec(ctx, query,
		category.ID,
		category.GuildID,
		category.Key,
		category.DisplayName,
		category.Description,
		category.ChannelCategoryID,
		jsonDump(category.SupportRoleIDs),
		jsonDump(category.ModalQuestions),
		category.PriorityDefault,
		jsonDump(category.TagsDefault),
		category.SLAMinutes,
		category.IsEnabled,
	)
	return err
}

func (r *categoryRepository) Get(ctx context.Context, guildID int64, key string) (*domain.TicketCategory, error) {
	query := `SELECT ` + categoryColumns + `
        FROM ticket_categories WHERE guild_id = $1 AND key = $2`
	var category domain.TicketCategory
	if err := scanCategory(r.pool.QueryRow(ctx, query, guildID, key), &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) ListByGuild(ctx context.Context, guildID int64) ([]domain.TicketCategory, error) {
	query := `SELECT ` + categoryColumns + `
        FROM ticket_categories WHERE guild_id = $1 ORDER BY key ASC`
	rows, err := r.pool.Query(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []domain.TicketCategory{}
	for rows.Next() {
		var category domain.TicketCategory
		if err := scanCategory(rows, &category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func scanCategory(row pgx.Row, category *domain.TicketCategory) error {
	var rolesJSON, questionsJSON, tagsJSON string
	if err := row.Scan(
		&category.ID,
		&category.GuildID,
		&category.Key,
		&category.DisplayName,
		&category.Description,
		&category.ChannelCategoryID,
		&rolesJSON,
		&questionsJSON,
		&category.PriorityDefault,
		&tagsJSON,
		&category.SLAMinutes,
		&category.IsEnabled,
	); err != nil {
		return err
	}
	category.SupportRoleIDs = jsonLoadSlice[int64](rolesJSON)
	category.ModalQuestions = jsonLoadSlice[domain.ModalQuestion](questionsJSON)
	category.TagsDefault = jsonLoadSlice[string](tagsJSON)
	return nil
}
