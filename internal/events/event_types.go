package events

import "time"

// EventType enumerates lifecycle event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketClaimed     EventType = "ticket_claimed"
	EventTicketUnclaimed   EventType = "ticket_unclaimed"
	EventTicketLocked      EventType = "ticket_locked"
	EventTicketUnlocked    EventType = "ticket_unlocked"
	EventTicketClosed      EventType = "ticket_closed"
	EventTicketReopened    EventType = "ticket_reopened"
	EventTicketTransferred EventType = "ticket_transferred"
	EventTicketEscalated   EventType = "ticket_escalated"
	EventSecurityTriggered EventType = "security_triggered"
	EventJobCompleted      EventType = "automation_job_completed"
	EventJobFailed         EventType = "automation_job_failed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	GuildID   int64          `json:"guild_id"`
	TicketID  string         `json:"ticket_id,omitempty"`
	ActorID   int64          `json:"actor_id"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}
