package domain

// TicketPanel is a guild-level entry point describing where users open tickets.
type TicketPanel struct {
	ID                  string
	PanelID             string
	GuildID             int64
	ChannelID           int64
	MessageID           *int64
	Title               string
	Description         string
	ButtonLabel         string
	CategoryMap         map[string]string
	SupportRoleIDs      []int64
	LogChannelID        *int64
	TranscriptChannelID *int64
	IsEnabled           bool
}
