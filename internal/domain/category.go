package domain

// ModalQuestion describes one intake question shown when opening a ticket.
type ModalQuestion struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Style       string `json:"style"`
	Required    bool   `json:"required"`
	MaxLength   int    `json:"max_length"`
}

// TicketCategory is a ticket template carrying defaults and SLA.
type TicketCategory struct {
	ID                string
	GuildID           int64
	Key               string
	DisplayName       string
	Description       string
	ChannelCategoryID *int64
	SupportRoleIDs    []int64
	ModalQuestions    []ModalQuestion
	PriorityDefault   TicketPriority
	TagsDefault       []string
	SLAMinutes        int
	IsEnabled         bool
}
