package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guildkit/ticketd/internal/domain"
)

// PanelRepository stores guild ticket entry points.
type PanelRepository interface {
	Upsert(ctx context.Context, panel *domain.TicketPanel, createdByID int64) error
	GetByPanelID(ctx context.Context, panelID string) (*domain.TicketPanel, error)
	GetByMessage(ctx context.Context, guildID, messageID int64) (*domain.TicketPanel, error)
	SetMessageID(ctx context.Context, panelID string, messageID int64) error
}

type panelRepository struct {
	pool *pgxpool.Pool
}

// NewPanelRepository instantiates repository.
func NewPanelRepository(pool *pgxpool.Pool) PanelRepository {
	return &panelRepository{pool: pool}
}

const panelColumns = `
        id, panel_id, guild_id, channel_id, message_id, title, description,
        button_label, category_map_json, support_role_ids_json,
        log_channel_id, transcript_channel_id, is_enabled`

func (r *panelRepository) Upsert(ctx context.Context, panel *domain.TicketPanel, createdByID int64) error {
	const query = `
        INSERT INTO ticket_panels (
            id, panel_id, guild_id, channel_id, message_id, title, description,
            button_label, category_map_json, support_role_ids_json,
            log_channel_id, transcript_channel_id, is_enabled, created_by_id, updated_at
        )
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW())
        ON CONFLICT (panel_id) DO UPDATE SET
            channel_id = excluded.channel_id,
            message_id = excluded.message_id,
            title = excluded.title,
            description = excluded.description,
            button_label = excluded.button_label,
            category_map_json = excluded.category_map_json,
            support_role_ids_json = excluded.support_role_ids_json,
            log_channel_id = excluded.log_channel_id,
            transcript_channel_id = excluded.transcript_channel_id,
            is_enabled = excluded.is_enabled,
            updated_at = NOW()`
	_, err := r.pool.Exec(ctx, query,
		panel.ID,
		panel.PanelID,
		panel.GuildID,
		panel.ChannelID,
		panel.MessageID,
		panel.Title,
		panel.Description,
		panel.ButtonLabel,
		jsonDump(panel.CategoryMap),
		jsonDump(panel.SupportRoleIDs),
		panel.LogChannelID,
		panel.TranscriptChannelID,
		panel.IsEnabled,
		createdByID,
	)
	return err
}

func (r *panelRepository) GetByPanelID(ctx context.Context, panelID string) (*domain.TicketPanel, error) {
	query := `SELECT ` + panelColumns + ` FROM ticket_panels WHERE panel_id = $1`
	var panel domain.TicketPanel
	if err := scanPanel(r.pool.QueryRow(ctx, query, panelID), &panel); err != nil {
		return nil, err
	}
	return &panel, nil
}

func (r *panelRepository) GetByMessage(ctx context.Context, guildID, messageID int64) (*domain.TicketPanel, error) {
	query := `SELECT ` + panelColumns + ` FROM ticket_panels WHERE guild_id = $1 AND message_id = $2`
	var panel domain.TicketPanel
	if err := scanPanel(r.pool.QueryRow(ctx, query, guildID, messageID), &panel); err != nil {
		return nil, err
	}
	return &panel, nil
}

func (r *panelRepository) SetMessageID(ctx context.Context, panelID string, messageID int64) error {
	const query = `
        UPDATE ticket_panels SET message_id = $1, updated_at = NOW() WHERE panel_id = $2`
	_, err := r.pool.Exec(ctx, query, messageID, panelID)
	return err
}

func scanPanel(row pgx.Row, panel *domain.TicketPanel) error {
	var categoryMapJSON, rolesJSON string
	if err := row.Scan(
		&panel.ID,
		&panel.PanelID,
		&panel.GuildID,
		&panel.ChannelID,
		&panel.MessageID,
		&panel.Title,
		&panel.Description,
		&panel.ButtonLabel,
		&categoryMapJSON,
		&rolesJSON,
		&panel.LogChannelID,
		&panel.TranscriptChannelID,
		&panel.IsEnabled,
	); err != nil {
		return err
	}
	panel.CategoryMap = jsonLoadMap[string](categoryMapJSON)
	panel.SupportRoleIDs = jsonLoadSlice[int64](rolesJSON)
	return nil
}
