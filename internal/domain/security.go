package domain

import "time"

// SecuritySeverity grades security events.
type SecuritySeverity string

const (
	SeverityLow    SecuritySeverity = "low"
	SeverityMedium SecuritySeverity = "medium"
	SeverityHigh   SecuritySeverity = "high"
)

// SecurityEvent is an append-only abuse-detection record.
type SecurityEvent struct {
	ID        string
	GuildID   int64
	EventType string
	Severity  SecuritySeverity
	Payload   map[string]any
	CreatedAt time.Time
}

// BlacklistEntry bars a user from opening tickets in a guild. An entry whose
// UntilAt has passed is treated as absent on read.
type BlacklistEntry struct {
	GuildID     int64
	UserID      int64
	Reason      string
	UntilAt     *time.Time
	CreatedByID int64
	CreatedAt   time.Time
}
