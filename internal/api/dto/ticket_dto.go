package dto

import (
	"time"

	"github.com/guildkit/ticketd/internal/domain"
)

// CreateTicketRequest opens a ticket on behalf of a guild member.
type CreateTicketRequest struct {
	GuildID     int64             `json:"guild_id"`
	UserID      int64             `json:"user_id"`
	DisplayName string            `json:"display_name"`
	PanelID     string            `json:"panel_id,omitempty"`
	CategoryKey string            `json:"category_key"`
	FormAnswers map[string]string `json:"form_answers,omitempty"`
	Anonymous   bool              `json:"anonymous,omitempty"`
	ChannelID   int64             `json:"channel_id,omitempty"`
}

// ActorRequest carries the acting member for a lifecycle mutation.
type ActorRequest struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// CloseTicketRequest closes a ticket.
type CloseTicketRequest struct {
	ActorRequest
	Reason string `json:"reason"`
}

// TransferTicketRequest reassigns ticket ownership.
type TransferTicketRequest struct {
	ActorRequest
	NewOwnerID      int64  `json:"new_owner_id"`
	NewOwnerDisplay string `json:"new_owner_display"`
}

// ParticipantRequest adds or removes a ticket participant.
type ParticipantRequest struct {
	ActorRequest
	TargetUserID int64 `json:"target_user_id"`
}

// PriorityRequest sets ticket priority.
type PriorityRequest struct {
	ActorRequest
	Priority domain.TicketPriority `json:"priority"`
}

// TagsRequest replaces the ticket tag set.
type TagsRequest struct {
	ActorRequest
	Tags []string `json:"tags"`
}

// NoteRequest appends an internal staff note.
type NoteRequest struct {
	ActorRequest
	Note string `json:"note"`
}

// EscalateRequest sets the escalation level.
type EscalateRequest struct {
	ActorRequest
	Level int `json:"level"`
}

// RenameTicketRequest moves a ticket to a renamed channel.
type RenameTicketRequest struct {
	ActorRequest
	NewChannelID int64  `json:"new_channel_id"`
	NewName      string `json:"new_name"`
}

// DepartmentRequest routes a ticket to a department.
type DepartmentRequest struct {
	ActorRequest
	Department string `json:"department"`
}

// TranscriptsRequest records stored transcript locations for a ticket.
type TranscriptsRequest struct {
	HTMLPath *string `json:"html_path,omitempty"`
	TextPath *string `json:"text_path,omitempty"`
}

// CategoryRequest creates or updates a ticket category.
type CategoryRequest struct {
	Key             string                 `json:"key"`
	DisplayName     string                 `json:"display_name"`
	Description     string                 `json:"description,omitempty"`
	SupportRoleIDs  []int64                `json:"support_role_ids,omitempty"`
	ModalQuestions  []domain.ModalQuestion `json:"modal_questions,omitempty"`
	PriorityDefault domain.TicketPriority  `json:"priority_default,omitempty"`
	TagsDefault     []string               `json:"tags_default,omitempty"`
	SLAMinutes      int                    `json:"sla_minutes,omitempty"`
	IsEnabled       bool                   `json:"is_enabled"`
}

// PanelRequest creates or updates a ticket panel.
type PanelRequest struct {
	ActorRequest
	PanelID             string            `json:"panel_id"`
	ChannelID           int64             `json:"channel_id"`
	MessageID           *int64            `json:"message_id,omitempty"`
	Title               string            `json:"title"`
	Description         string            `json:"description,omitempty"`
	ButtonLabel         string            `json:"button_label,omitempty"`
	CategoryMap         map[string]string `json:"category_map,omitempty"`
	SupportRoleIDs      []int64           `json:"support_role_ids,omitempty"`
	LogChannelID        *int64            `json:"log_channel_id,omitempty"`
	TranscriptChannelID *int64            `json:"transcript_channel_id,omitempty"`
	IsEnabled           bool              `json:"is_enabled"`
}

// FeedbackRequest records a post-close rating.
type FeedbackRequest struct {
	UserID   int64   `json:"user_id"`
	Stars    int     `json:"stars"`
	Feedback *string `json:"feedback,omitempty"`
}

// StaffMessageRequest reports a staff message seen in a ticket channel.
type StaffMessageRequest struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	IsBot       bool   `json:"is_bot,omitempty"`
}

// BlacklistRequest bars a user from opening tickets.
type BlacklistRequest struct {
	ActorRequest
	TargetUserID int64      `json:"target_user_id"`
	Reason       string     `json:"reason,omitempty"`
	Until        *time.Time `json:"until,omitempty"`
}

// ScheduleAutoCloseRequest books a deferred close.
type ScheduleAutoCloseRequest struct {
	ActorRequest
	DelayMinutes int    `json:"delay_minutes"`
	Reason       string `json:"reason,omitempty"`
}

// JoinEventRequest reports a guild join to the abuse detector.
type JoinEventRequest struct {
	GuildID int64 `json:"guild_id"`
}

// MessageEventRequest reports a guild message to the abuse detector.
type MessageEventRequest struct {
	GuildID int64 `json:"guild_id"`
	UserID  int64 `json:"user_id"`
	IsBot   bool  `json:"is_bot,omitempty"`
}

// StaffLoginRequest authenticates a staff operator.
type StaffLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// StaffLoginResponse carries the issued access token.
type StaffLoginResponse struct {
	AccessToken string           `json:"access_token"`
	Role        domain.StaffRole `json:"role"`
	GuildID     int64            `json:"guild_id"`
}

// TicketSummary is the list-view projection of a ticket.
type TicketSummary struct {
	ID            string                `json:"id"`
	TicketNumber  int                   `json:"ticket_number"`
	GuildID       int64                 `json:"guild_id"`
	ChannelID     int64                 `json:"channel_id"`
	OpenerID      int64                 `json:"opener_id"`
	OpenerDisplay string                `json:"opener_display"`
	CategoryKey   string                `json:"category_key"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	Tags          []string              `json:"tags"`
	ClaimedByID   *int64                `json:"claimed_by_id,omitempty"`
	IsAnonymous   bool                  `json:"is_anonymous"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// TicketDetail is the full projection of a ticket.
type TicketDetail struct {
	TicketSummary
	FormAnswers     map[string]string     `json:"form_answers,omitempty"`
	InternalNotes   []domain.InternalNote `json:"internal_notes,omitempty"`
	ClaimedAt       *time.Time            `json:"claimed_at,omitempty"`
	FirstResponseAt *time.Time            `json:"first_response_at,omitempty"`
	ResponseDueAt   *time.Time            `json:"response_due_at,omitempty"`
	CloseReason     *string               `json:"close_reason,omitempty"`
	ClosedByID      *int64                `json:"closed_by_id,omitempty"`
	ClosedAt        *time.Time            `json:"closed_at,omitempty"`
	ReopenedCount   int                   `json:"reopened_count"`
	IsLocked        bool                  `json:"is_locked"`
	EscalationLevel int                   `json:"escalation_level"`
	Department      *string               `json:"department,omitempty"`
	FeedbackStars   *int                  `json:"feedback_stars,omitempty"`
	Participants    []int64               `json:"participants,omitempty"`
}

// JobResponse is the API projection of an automation job.
type JobResponse struct {
	ID       string         `json:"id"`
	TicketID string         `json:"ticket_id"`
	GuildID  int64          `json:"guild_id"`
	JobType  string         `json:"job_type"`
	RunAt    time.Time      `json:"run_at"`
	Status   string         `json:"status"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// SecurityEventResponse is the API projection of a security event.
type SecurityEventResponse struct {
	ID        string         `json:"id"`
	GuildID   int64          `json:"guild_id"`
	EventType string         `json:"event_type"`
	Severity  string         `json:"severity"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
