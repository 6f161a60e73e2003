package domain

// Member is the already-validated actor identity handed in by the chat
// gateway. IsBot suppresses staff-response accounting for automated senders.
type Member struct {
	ID          int64
	DisplayName string
	IsBot       bool
	IsStaff     bool
}

// TicketEvent is one row in a ticket's append-only event log.
type TicketEvent struct {
	ID        string
	TicketID  string
	GuildID   int64
	ActorID   int64
	EventType string
	Payload   map[string]any
}

// Participant links a user to a ticket channel.
type Participant struct {
	TicketID  string
	UserID    int64
	AddedByID int64
}
