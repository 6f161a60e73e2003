package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen    TicketStatus = "open"
	TicketStatusPending TicketStatus = "pending"
	TicketStatusLocked  TicketStatus = "locked"
	TicketStatusClosed  TicketStatus = "closed"
	TicketStatusDeleted TicketStatus = "deleted"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityNormal   TicketPriority = "normal"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityUrgent   TicketPriority = "urgent"
	TicketPriorityCritical TicketPriority = "critical"
)

// PriorityLevels lists valid priorities in ascending urgency order.
var PriorityLevels = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityNormal,
	TicketPriorityHigh,
	TicketPriorityUrgent,
	TicketPriorityCritical,
}

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p TicketPriority) bool {
	for _, candidate := range PriorityLevels {
		if candidate == p {
			return true
		}
	}
	return false
}

// InternalNote is one append-only staff note on a ticket.
type InternalNote struct {
	AuthorID int64     `json:"author_id"`
	Note     string    `json:"note"`
	At       time.Time `json:"ts"`
}

// Ticket is the aggregate for one support request channel.
type Ticket struct {
	ID                string
	TicketNumber      int
	GuildID           int64
	ChannelID         int64
	OpenerID          int64
	OpenerDisplay     string
	PanelID           *string
	CategoryKey       string
	CategoryChannelID *int64
	Status            TicketStatus
	Priority          TicketPriority
	Tags              []string
	FormAnswers       map[string]string
	InternalNotes     []InternalNote
	ClaimedByID       *int64
	ClaimedAt         *time.Time
	FirstResponseAt   *time.Time
	FirstResponseByID *int64
	ResponseDueAt     *time.Time
	CloseReason       *string
	ClosedByID        *int64
	ClosedAt          *time.Time
	ReopenedCount     int
	IsLocked          bool
	IsAnonymous       bool
	TranscriptHTML    *string
	TranscriptTXT     *string
	SoftDeleted       bool
	HardDeleted       bool
	EscalationLevel   int
	Department        *string
	FeedbackStars     *int
	FeedbackText      *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
