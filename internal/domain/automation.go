package domain

import "time"

// AutomationJobType enumerates deferred job kinds.
type AutomationJobType string

const (
	JobTypeAutoClose AutomationJobType = "auto_close"
)

// AutomationJobStatus enumerates job states. Terminal states are never
// revisited by the poller.
type AutomationJobStatus string

const (
	JobStatusPending   AutomationJobStatus = "pending"
	JobStatusCompleted AutomationJobStatus = "completed"
	JobStatusFailed    AutomationJobStatus = "failed"
	JobStatusCancelled AutomationJobStatus = "cancelled"
)

// AutomationJob is one persisted deferred action against a ticket.
type AutomationJob struct {
	ID       string
	TicketID string
	GuildID  int64
	JobType  AutomationJobType
	RunAt    time.Time
	Status   AutomationJobStatus
	Payload  map[string]any
}
