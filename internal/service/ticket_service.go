package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guildkit/ticketd/internal/cache"
	"github.com/guildkit/ticketd/internal/clock"
	"github.com/guildkit/ticketd/internal/config"
	"github.com/guildkit/ticketd/internal/domain"
	"github.com/guildkit/ticketd/internal/events"
	"github.com/guildkit/ticketd/internal/ratelimit"
	"github.com/guildkit/ticketd/internal/repository"
	"github.com/guildkit/ticketd/pkg/util"
)

// ChannelProvisioner creates the chat channel backing a new ticket. The
// chat-platform gateway owns the implementation; permission overwrites and
// channel-level side effects live there, not here.
type ChannelProvisioner interface {
	CreateTicketChannel(ctx context.Context, guildID int64, name string, category *domain.TicketCategory, panel *domain.TicketPanel, opener domain.Member) (int64, error)
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	GuildRepo       repository.GuildRepository
	CategoryRepo    repository.CategoryRepository
	PanelRepo       repository.PanelRepository
	TicketRepo      repository.TicketRepository
	ParticipantRepo repository.ParticipantRepository
	EventRepo       repository.EventRepository
	BlacklistRepo   repository.BlacklistRepository
	StaffRepo       repository.StaffStatsRepository
	AuditRepo       repository.AuditRepository
	Cache           cache.Backend
	Channels        ChannelProvisioner
	Dispatcher      events.Dispatcher
	Clock           clock.Clock
	Logger          *zap.Logger
}

// TicketService coordinates the ticket lifecycle: creation with quota and
// cooldown checks, claim/lock/close/reopen transitions, and the metadata
// mutations around them.
type TicketService struct {
	cfg         config.SecurityConfig
	deps        TicketDependencies
	rateLimiter *ratelimit.Limiter
	clk         clock.Clock
	logger      *zap.Logger
}

// CreateTicketInput describes a ticket creation request from the gateway.
// When the gateway already created the backing channel it sets ChannelID
// and no provisioner call is made.
type CreateTicketInput struct {
	GuildID     int64
	Opener      domain.Member
	Panel       *domain.TicketPanel
	CategoryKey string
	FormAnswers map[string]string
	Anonymous   bool
	ChannelID   int64
}

// NewTicketService constructs the service.
func NewTicketService(cfg config.SecurityConfig, deps TicketDependencies) *TicketService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		cfg:         cfg,
		deps:        deps,
		rateLimiter: ratelimit.NewLimiter(deps.Cache),
		clk:         clk,
		logger:      logger,
	}
}

var nonChannelChars = regexp.MustCompile(`[^a-z0-9-]+`)
var repeatedHyphens = regexp.MustCompile(`-{2,}`)

// SanitizeChannelFragment normalizes a display name into a channel-safe
// fragment: lower-cased, runs of disallowed characters collapsed to one
// hyphen, capped at 32 characters, "user" when nothing survives.
func SanitizeChannelFragment(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = nonChannelChars.ReplaceAllString(name, "-")
	name = repeatedHyphens.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if len(name) > 32 {
		name = name[:32]
	}
	if name == "" {
		return "user"
	}
	return name
}

// IsUserBlacklisted reports whether the user currently holds an active
// blacklist entry; expired entries are evicted by the read.
func (s *TicketService) IsUserBlacklisted(ctx context.Context, guildID, userID int64) (bool, error) {
	entry, err := s.deps.BlacklistRepo.GetActive(ctx, guildID, userID, s.clk.NowUTC())
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}

// CheckTicketOpenLimits enforces the blacklist, the per-user open-ticket
// cap, the creation cooldown, and the hourly creation cap, in that order.
func (s *TicketService) CheckTicketOpenLimits(ctx context.Context, guildID, userID int64) error {
	blacklisted, err := s.IsUserBlacklisted(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if blacklisted {
		return util.NewValidationError("you are blacklisted from creating tickets", nil)
	}

	open, err := s.deps.TicketRepo.ListOpenByUser(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if len(open) >= s.cfg.MaxOpenTicketsPerUser {
		return util.NewTicketLimitReached(s.cfg.MaxOpenTicketsPerUser)
	}

	cooldownKey := fmt.Sprintf("ticket:cooldown:%d:%d", guildID, userID)
	cooldown, err := s.rateLimiter.Hit(ctx, cooldownKey, 1, s.cfg.TicketCreationCooldownSeconds)
	if err != nil {
		return err
	}
	if !cooldown.Allowed {
		return util.NewValidationError(
			fmt.Sprintf("ticket creation cooldown active (%ds)", s.cfg.TicketCreationCooldownSeconds), nil)
	}

	hourlyKey := fmt.Sprintf("ticket:hourly:%d:%d", guildID, userID)
	hourly, err := s.rateLimiter.Hit(ctx, hourlyKey, s.cfg.TicketCreationMaxPerHour, 3600)
	if err != nil {
		return err
	}
	if !hourly.Allowed {
		return util.NewValidationError("hourly ticket creation limit exceeded", nil)
	}
	return nil
}

// ResolveCategory returns the enabled category for key or a validation error.
func (s *TicketService) ResolveCategory(ctx context.Context, guildID int64, key string) (*domain.TicketCategory, error) {
	category, err := s.deps.CategoryRepo.Get(ctx, guildID, key)
	if err != nil || category == nil {
		return nil, util.NewValidationError(fmt.Sprintf("unknown ticket category: %s", key), nil)
	}
	if !category.IsEnabled {
		return nil, util.NewValidationError(fmt.Sprintf("ticket category %q is disabled", key), nil)
	}
	return category, nil
}

// BuildTicketName allocates the next ticket number for the guild and
// composes the channel name. Allocation must only happen after all
// creation checks pass so a rejected attempt never consumes a number.
func (s *TicketService) BuildTicketName(ctx context.Context, guildID int64, categoryKey, openerName string) (string, int, error) {
	number, err := s.deps.GuildRepo.NextTicketNumber(ctx, guildID)
	if err != nil {
		return "", 0, err
	}
	name := fmt.Sprintf("ticket-%d-%s-%s", number, categoryKey, SanitizeChannelFragment(openerName))
	if len(name) > 95 {
		name = name[:95]
	}
	return name, number, nil
}

// CreateTicket runs the full creation flow and returns the persisted record.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	if err := s.CheckTicketOpenLimits(ctx, input.GuildID, input.Opener.ID); err != nil {
		return nil, err
	}
	category, err := s.ResolveCategory(ctx, input.GuildID, input.CategoryKey)
	if err != nil {
		return nil, err
	}

	name, number, err := s.BuildTicketName(ctx, input.GuildID, category.Key, input.Opener.DisplayName)
	if err != nil {
		return nil, err
	}

	channelID := input.ChannelID
	if channelID == 0 {
		if s.deps.Channels == nil {
			return nil, util.NewValidationError("channel_id required", nil)
		}
		channelID, err = s.deps.Channels.CreateTicketChannel(ctx, input.GuildID, name, category, input.Panel, input.Opener)
		if err != nil {
			return nil, err
		}
	}

	now := s.clk.NowUTC()
	responseDue := now.Add(time.Duration(category.SLAMinutes) * time.Minute)

	priority := category.PriorityDefault
	if !domain.ValidPriority(priority) {
		priority = domain.TicketPriorityNormal
	}

	display := input.Opener.DisplayName
	anonymous := input.Anonymous && s.cfg.AllowAnonymousTickets
	if anonymous {
		display = "Anonymous User"
	}

	department := category.DisplayName
	ticket := &domain.Ticket{
		ID:                uuid.NewString(),
		TicketNumber:      number,
		GuildID:           input.GuildID,
		ChannelID:         channelID,
		OpenerID:          input.Opener.ID,
		OpenerDisplay:     display,
		CategoryKey:       category.Key,
		CategoryChannelID: category.ChannelCategoryID,
		Status:            domain.TicketStatusOpen,
		Priority:          priority,
		Tags:              category.TagsDefault,
		FormAnswers:       input.FormAnswers,
		InternalNotes:     []domain.InternalNote{},
		ResponseDueAt:     &responseDue,
		IsAnonymous:       anonymous,
		Department:        &department,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if input.Panel != nil {
		panelID := input.Panel.PanelID
		ticket.PanelID = &panelID
	}

	if err := s.deps.TicketRepo.Create(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.deps.ParticipantRepo.Add(ctx, ticket.ID, input.Opener.ID, input.Opener.ID); err != nil {
		return nil, err
	}
	s.logEvent(ctx, ticket, input.Opener.ID, "create", map[string]any{
		"category":   category.Key,
		"answers":    input.FormAnswers,
		"anonymous":  ticket.IsAnonymous,
		"channel_id": channelID,
	})
	s.audit(ctx, ticket.GuildID, input.Opener.ID, "ticket_create", ticket.ID, map[string]any{
		"channel_id": channelID,
		"category":   category.Key,
	})
	s.publish(ctx, events.EventTicketCreated, ticket, input.Opener.ID, map[string]any{
		"ticket_number": number,
		"category":      category.Key,
	})
	return ticket, nil
}

// GetTicket resolves a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.refetch(ctx, ticketID)
}

// GetTicketForChannel resolves the ticket bound to a channel.
func (s *TicketService) GetTicketForChannel(ctx context.Context, guildID, channelID int64) (*domain.Ticket, error) {
	ticket, err := s.deps.TicketRepo.GetByChannel(ctx, guildID, channelID)
	if err != nil || ticket == nil {
		return nil, util.NewTicketNotFound()
	}
	return ticket, nil
}

// ClaimTicket assigns the ticket to a staff member. Only open-family
// states can be claimed. Returns the canonical re-fetched row.
func (s *TicketService) ClaimTicket(ctx context.Context, ticket *domain.Ticket, staff domain.Member) (*domain.Ticket, error) {
	switch ticket.Status {
	case domain.TicketStatusOpen, domain.TicketStatusPending, domain.TicketStatusLocked:
	default:
		return nil, util.NewTicketStateError("ticket cannot be claimed in its current state")
	}
	now := s.clk.NowUTC()
	staffID := staff.ID
	if err := s.deps.TicketRepo.SetClaimed(ctx, ticket.ID, &staffID, &now); err != nil {
		return nil, err
	}
	if err := s.deps.StaffRepo.IncrementClaimed(ctx, ticket.GuildID, staff.ID); err != nil {
		return nil, err
	}
	s.logEvent(ctx, ticket, staff.ID, "claim", map[string]any{"staff_id": staff.ID})
	s.audit(ctx, ticket.GuildID, staff.ID, "ticket_claim", ticket.ID, nil)
	s.publish(ctx, events.EventTicketClaimed, ticket, staff.ID, map[string]any{"staff_id": staff.ID})
	return s.refetch(ctx, ticket.ID)
}

// UnclaimTicket clears the claim unconditionally.
func (s *TicketService) UnclaimTicket(ctx context.Context, ticket *domain.Ticket, staff domain.Member) (*domain.Ticket, error) {
	if err := s.deps.TicketRepo.SetClaimed(ctx, ticket.ID, nil, nil); err != nil {
		return nil, err
	}
	s.logEvent(ctx, ticket, staff.ID, "unclaim", map[string]any{"staff_id": staff.ID})
	s.audit(ctx, ticket.GuildID, staff.ID, "ticket_unclaim", ticket.ID, nil)
	s.publish(ctx, events.EventTicketUnclaimed, ticket, staff.ID, nil)
	return s.refetch(ctx, ticket.ID)
}

// LockTicket sets the lock flag and moves the ticket to the locked status.
// Channel-permission side effects are the caller's concern.
func (s *TicketService) LockTicket(ctx context.Context, ticket *domain.Ticket, actorID int64) error {
	if err := s.deps.TicketRepo.SetLocked(ctx, ticket.ID, true); err != nil {
		return err
	}
	s.logEvent(ctx, ticket, actorID, "lock", nil)
	s.audit(ctx, ticket.GuildID, actorID, "ticket_lock", ticket.ID, nil)
	s.publish(ctx, events.EventTicketLocked, ticket, actorID, nil)
	return nil
}

// UnlockTicket clears the lock flag and reopens the ticket.
func (s *TicketService) UnlockTicket(ctx context.Context, ticket *domain.Ticket, actorID int64) error {
	if err := s.deps.TicketRepo.SetLocked(ctx, ticket.ID, false); err != nil {
		return err
	}
	s.logEvent(ctx, ticket, actorID, "unlock", nil)
	s.audit(ctx, ticket.GuildID, actorID, "ticket_unlock", ticket.ID, nil)
	s.publish(ctx, events.EventTicketUnlocked, ticket, actorID, nil)
	return nil
}

// CloseTicket closes the ticket, recording reason, actor, and timestamp.
// Closing an already-closed ticket re-stamps closed_at; the automation
// poller guards against that before calling in.
func (s *TicketService) CloseTicket(ctx context.Context, ticket *domain.Ticket, actorID int64, reason string) error {
	if s.cfg.RequireTicketCloseReason && strings.TrimSpace(reason) == "" {
		return util.NewValidationError("close reason is required", nil)
	}
	if err := s.deps.TicketRepo.SetClosed(ctx, ticket.ID, reason, actorID, s.clk.NowUTC()); err != nil {
		return err
	}
	if err := s.deps.StaffRepo.IncrementClosed(ctx, ticket.GuildID, actorID); err != nil {
		return err
	}
	s.logEvent(ctx, ticket, actorID, "close", map[string]any{"reason": reason})
	s.audit(ctx, ticket.GuildID, actorID, "ticket_close", ticket.ID, map[string]any{"reason": reason})
	s.publish(ctx, events.EventTicketClosed, ticket, actorID, map[string]any{"reason": reason})
	return nil
}

// ReopenTicket moves a closed ticket back to open and counts the reopen.
func (s *TicketService) ReopenTicket(ctx context.Context, ticket *domain.Ticket, actorID int64) error {
	if err := s.deps.TicketRepo.SetStatus(ctx, ticket.ID, domain.TicketStatusOpen); err != nil {
		return err
	}
	if err := s.deps.TicketRepo.IncrementReopened(ctx, ticket.ID); err != nil {
		return err
	}
	s.logEvent(ctx, ticket, actorID, "reopen", nil)
	s.audit(ctx, ticket.GuildID, actorID, "ticket_reopen", ticket.ID, nil)
	s.publish(ctx, events.EventTicketReopened, ticket, actorID, nil)
	return nil
}

// RenameTicket records a channel move/rename.
func (s *TicketService) RenameTicket(ctx context.Context, ticket *domain.Ticket, actorID, newChannelID int64, newName string) error {
	if err := s.deps.TicketRepo.UpdateChannel(ctx, ticket.ID, newChannelID); err != nil {
		return err
	}
	s.logEvent(ctx, ticket, actorID, "rename", map[string]any{"name": newName})
	s.audit(ctx, ticket.GuildID, actorID, "ticket_rename", ticket.ID, map[string]any{"name": newName})
	return nil
}

// TransferTicket reassigns ownership. The previous owner stays a participant.
func (s *TicketService) TransferTicket(ctx context.Context, ticket *domain.Ticket, actorID int64, newOwner domain.Member) error {
	if err := s.deps.TicketRepo.TransferOwner(ctx, ticket.ID, newOwner.ID, newOwner.DisplayName); err != nil {
		return err
	}
	if err := s.deps.ParticipantRepo.Add(ctx, ticket.ID, newOwner.ID, actorID); err != nil {
		return err
	}
	s.logEvent(ctx, ticket, actorID, "transfer", map[string]any{"new_owner_id": newOwner.ID})
	s.audit(ctx, ticket.GuildID, actorID, "ticket_transfer", ticket.ID, map[string]any{"new_owner_id": newOwner.ID})
	s.publish(ctx, events.EventTicketTransferred, ticket, actorID, map[string]any{"new_owner_id": newOwner.ID})
	return nil
}

// AddTicketUser adds a participant.
func (s *TicketService) AddTicketUser(ctx context.Context, ticket *domain.Ticket, actorID, userID int64) error {
	if err := s.deps.ParticipantRepo.Add(ctx, ticket.ID, userID, actorID); err != nil {
		return err
	}
	s.logEvent(ctx, ticket, actorID, "add_user", map[string]any{"user_id": userID})
	s.audit(ctx, ticket.GuildID, actorID, "ticket_add_user", ticket.ID, map[string]any{"user_id": userID})
	return nil
}

// RemoveTicketUser removes a participant.
func (s *TicketService) RemoveTicketUser(ctx context.Context, ticket *domain.Ticket, actorID, userID int64) error {
	if err := s.deps.ParticipantRepo.Remove(ctx, ticket.ID, userID); err != nil {
		return err
	}
	s.logEvent(ctx, ticket, actorID, "remove_user", map[string]any{"user_id": userID})
	s.audit(ctx, ticket.GuildID, actorID, "ticket_remove_user", ticket.ID, map[string]any{"user_id": userID})
	return nil
}

// SetPriority validates and updates the ticket priority.
func (s *TicketService) SetPriority(ctx context.Context, ticket *domain.Ticket, actorID int64, priority domain.TicketPriority) error {
	if !domain.ValidPriority(priority) {
		return util.NewValidationError("invalid priority value", map[string]any{
			"allowed": domain.PriorityLevels,
		})
	}
	if err := s.deps.TicketRepo.SetPriority(ctx, ticket.ID, priority); err != nil {
		return err
	}
	s.logEvent(ctx, ticket, actorID, "priority", map[string]any{"priority": priority})
	s.audit(ctx, ticket.GuildID, actorID, "ticket_priority", ticket.ID, map[string]any{"priority": priority})
	return nil
}

// SetTags normalizes and replaces the tag set: trimmed, lower-cased,
// deduplicated, sorted for determinism.
func (s *TicketService) SetTags(ctx context.Context, ticket *domain.Ticket, actorID int64, tags []string) error {
	seen := map[string]struct{}{}
	clean := []string{}
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		clean = append(clean, tag)
	}
	sort.Strings(clean)
	if err := s.deps.TicketRepo.SetTags(ctx, ticket.ID, clean); err != nil {
		return err
	}
	s.logEvent(ctx, ticket, actorID, "tags", map[string]any{"tags": clean})
	s.audit(ctx, ticket.GuildID, actorID, "ticket_tags", ticket.ID, map[string]any{"tags": clean})
	return nil
}

// AddInternalNote appends a staff note; empty text is rejected.
func (s *TicketService) AddInternalNote(ctx context.Context, ticket *domain.Ticket, actorID int64, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return util.NewValidationError("internal note cannot be empty", nil)
	}
	entry := domain.InternalNote{AuthorID: actorID, Note: note, At: s.clk.NowUTC()}
	if err := s.deps.TicketRepo.AppendInternalNote(ctx, ticket.ID, entry); err != nil {
		return err
	}
	s.logEvent(ctx, ticket, actorID, "note", map[string]any{"note": note})
	s.audit(ctx, ticket.GuildID, actorID, "ticket_note", ticket.ID, nil)
	return nil
}

// SetDepartment updates the free-text routing department.
func (s *TicketService) SetDepartment(ctx context.Context, ticket *domain.Ticket, actorID int64, department string) error {
	if err := s.deps.TicketRepo.SetDepartment(ctx, ticket.ID, department); err != nil {
		return err
	}
	s.logEvent(ctx, ticket, actorID, "department", map[string]any{"department": department})
	return nil
}

// Escalate sets the escalation level, bounded to [0, 10].
func (s *TicketService) Escalate(ctx context.Context, ticket *domain.Ticket, actorID int64, level int) error {
	if level < 0 || level > 10 {
		return util.NewValidationError("escalation level must be between 0 and 10", nil)
	}
	if err := s.deps.TicketRepo.SetEscalationLevel(ctx, ticket.ID, level); err != nil {
		return err
	}
	s.logEvent(ctx, ticket, actorID, "escalate", map[string]any{"level": level})
	s.publish(ctx, events.EventTicketEscalated, ticket, actorID, map[string]any{"level": level})
	return nil
}

// RecordFeedback stores a 1-5 star rating; a second submission overwrites.
func (s *TicketService) RecordFeedback(ctx context.Context, ticket *domain.Ticket, userID int64, stars int, feedback *string) error {
	if stars < 1 || stars > 5 {
		return util.NewValidationError("star rating must be between 1 and 5", nil)
	}
	if err := s.deps.TicketRepo.SubmitFeedback(ctx, ticket.ID, ticket.GuildID, userID, stars, feedback); err != nil {
		return err
	}
	payload := map[string]any{"stars": stars}
	if feedback != nil {
		payload["feedback"] = *feedback
	}
	s.logEvent(ctx, ticket, userID, "feedback", payload)
	return nil
}

// SoftDeleteTicket flags the ticket as soft-deleted. The row stays.
func (s *TicketService) SoftDeleteTicket(ctx context.Context, ticket *domain.Ticket, actorID int64) error {
	if err := s.deps.TicketRepo.MarkSoftDeleted(ctx, ticket.ID); err != nil {
		return err
	}
	s.audit(ctx, ticket.GuildID, actorID, "ticket_soft_delete", ticket.ID, nil)
	return nil
}

// HardDeleteTicket flags the ticket as hard-deleted and terminal.
func (s *TicketService) HardDeleteTicket(ctx context.Context, ticket *domain.Ticket, actorID int64) error {
	if err := s.deps.TicketRepo.MarkHardDeleted(ctx, ticket.ID); err != nil {
		return err
	}
	s.audit(ctx, ticket.GuildID, actorID, "ticket_hard_delete", ticket.ID, nil)
	return nil
}

// BlacklistUser bars a user from opening tickets, optionally until a time.
func (s *TicketService) BlacklistUser(ctx context.Context, guildID, actorID, userID int64, reason string, until *time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "No reason provided"
	}
	entry := &domain.BlacklistEntry{
		GuildID:     guildID,
		UserID:      userID,
		Reason:      reason,
		UntilAt:     until,
		CreatedByID: actorID,
	}
	if err := s.deps.BlacklistRepo.Add(ctx, entry); err != nil {
		return err
	}
	target := fmt.Sprintf("%d", userID)
	s.audit(ctx, guildID, actorID, "blacklist_add", target, map[string]any{"reason": reason, "until": until})
	return nil
}

// UnblacklistUser removes a blacklist entry.
func (s *TicketService) UnblacklistUser(ctx context.Context, guildID, actorID, userID int64) error {
	if err := s.deps.BlacklistRepo.Remove(ctx, guildID, userID); err != nil {
		return err
	}
	target := fmt.Sprintf("%d", userID)
	s.audit(ctx, guildID, actorID, "blacklist_remove", target, nil)
	return nil
}

// RegisterStaffMessage counts a staff message on the ticket and, on the
// first qualifying message only, records the first-response latency both
// on the ticket and in the staff aggregates. Bot senders are ignored.
func (s *TicketService) RegisterStaffMessage(ctx context.Context, ticket *domain.Ticket, member domain.Member) error {
	if member.IsBot {
		return nil
	}
	if err := s.deps.StaffRepo.AddMessage(ctx, ticket.GuildID, member.ID); err != nil {
		return err
	}
	if ticket.FirstResponseAt != nil {
		return nil
	}
	now := s.clk.NowUTC()
	elapsed := int64(now.Sub(ticket.CreatedAt).Seconds())
	if elapsed >= 0 {
		if err := s.deps.StaffRepo.AddFirstResponse(ctx, ticket.GuildID, member.ID, elapsed); err != nil {
			return err
		}
	}
	return s.deps.TicketRepo.RecordFirstResponse(ctx, ticket.ID, member.ID, now)
}

// ListOpenTickets lists open-family tickets for a guild.
func (s *TicketService) ListOpenTickets(ctx context.Context, guildID int64, limit int) ([]domain.Ticket, error) {
	return s.deps.TicketRepo.ListOpen(ctx, guildID, limit)
}

// ListRecentTickets lists recent tickets regardless of status.
func (s *TicketService) ListRecentTickets(ctx context.Context, guildID int64, limit int) ([]domain.Ticket, error) {
	return s.deps.TicketRepo.ListRecent(ctx, guildID, limit)
}

// ListCategories returns the enabled categories for a guild.
func (s *TicketService) ListCategories(ctx context.Context, guildID int64) ([]domain.TicketCategory, error) {
	categories, err := s.deps.CategoryRepo.ListByGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	enabled := categories[:0]
	for _, category := range categories {
		if category.IsEnabled {
			enabled = append(enabled, category)
		}
	}
	return enabled, nil
}

// StoreTranscripts attaches rendered transcripts to a ticket.
func (s *TicketService) StoreTranscripts(ctx context.Context, ticket *domain.Ticket, htmlDoc, textDoc *string) error {
	return s.deps.TicketRepo.SetTranscripts(ctx, ticket.ID, htmlDoc, textDoc)
}

// UpsertCategory creates or updates a ticket category after validating
// its defaults.
func (s *TicketService) UpsertCategory(ctx context.Context, category *domain.TicketCategory) error {
	if strings.TrimSpace(category.Key) == "" {
		return util.NewValidationError("category key is required", nil)
	}
	if !domain.ValidPriority(category.PriorityDefault) {
		category.PriorityDefault = domain.TicketPriorityNormal
	}
	if category.SLAMinutes <= 0 {
		category.SLAMinutes = 60
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if err := s.deps.GuildRepo.EnsureGuild(ctx, category.GuildID); err != nil {
		return err
	}
	return s.deps.CategoryRepo.Upsert(ctx, category)
}

// BootstrapDefaultCategories seeds a guild that has no categories yet
// with a minimal starter set. Existing categories are left untouched.
func (s *TicketService) BootstrapDefaultCategories(ctx context.Context, guildID int64) error {
	existing, err := s.deps.CategoryRepo.ListByGuild(ctx, guildID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	defaults := []domain.TicketCategory{
		{
			Key:         "support",
			DisplayName: "General Support",
			Description: "Account, setup, and technical support.",
			ModalQuestions: []domain.ModalQuestion{
				{ID: "subject", Label: "Subject", Placeholder: "Summarize your issue", Style: "short", Required: true, MaxLength: 100},
				{ID: "details", Label: "Details", Placeholder: "Describe the issue with relevant details", Style: "long", Required: true, MaxLength: 1000},
			},
			PriorityDefault: domain.TicketPriorityNormal,
			TagsDefault:     []string{"support"},
			SLAMinutes:      120,
			IsEnabled:       true,
		},
		{
			Key:         "billing",
			DisplayName: "Billing",
			Description: "Payment and invoice requests.",
			ModalQuestions: []domain.ModalQuestion{
				{ID: "invoice_id", Label: "Invoice ID", Placeholder: "Invoice identifier", Style: "short", Required: true, MaxLength: 80},
				{ID: "summary", Label: "Issue Summary", Placeholder: "Describe the billing issue", Style: "long", Required: true, MaxLength: 1000},
			},
			PriorityDefault: domain.TicketPriorityHigh,
			TagsDefault:     []string{"billing"},
			SLAMinutes:      60,
			IsEnabled:       true,
		},
		{
			Key:         "bug",
			DisplayName: "Bug Report",
			Description: "Report product bugs and regressions.",
			ModalQuestions: []domain.ModalQuestion{
				{ID: "environment", Label: "Environment", Placeholder: "Version / platform", Style: "short", Required: true, MaxLength: 120},
				{ID: "repro_steps", Label: "Reproduction Steps", Placeholder: "List deterministic reproduction steps", Style: "long", Required: true, MaxLength: 1000},
			},
			PriorityDefault: domain.TicketPriorityHigh,
			TagsDefault:     []string{"bug"},
			SLAMinutes:      45,
			IsEnabled:       true,
		},
		{
			Key:         "suggestion",
			DisplayName: "Suggestion",
			Description: "Share ideas and feature proposals.",
			ModalQuestions: []domain.ModalQuestion{
				{ID: "idea", Label: "Suggestion", Placeholder: "Describe your idea", Style: "long", Required: true, MaxLength: 1000},
			},
			PriorityDefault: domain.TicketPriorityLow,
			TagsDefault:     []string{"suggestion"},
			SLAMinutes:      240,
			IsEnabled:       true,
		},
		{
			Key:         "payment-proof",
			DisplayName: "Payment Proof",
			Description: "Submit payment screenshots/proofs.",
			ModalQuestions: []domain.ModalQuestion{
				{ID: "order_id", Label: "Order ID", Placeholder: "Order identifier", Style: "short", Required: true, MaxLength: 80},
				{ID: "context", Label: "Context", Placeholder: "Any additional context", Style: "long", Required: false, MaxLength: 1000},
			},
			PriorityDefault: domain.TicketPriorityNormal,
			TagsDefault:     []string{"payment"},
			SLAMinutes:      120,
			IsEnabled:       true,
		},
	}
	for i := range defaults {
		defaults[i].GuildID = guildID
		if err := s.UpsertCategory(ctx, &defaults[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPanel creates or updates a guild ticket panel.
func (s *TicketService) UpsertPanel(ctx context.Context, panel *domain.TicketPanel, createdByID int64) error {
	if strings.TrimSpace(panel.PanelID) == "" {
		return util.NewValidationError("panel_id is required", nil)
	}
	if panel.ID == "" {
		panel.ID = uuid.NewString()
	}
	if err := s.deps.GuildRepo.EnsureGuild(ctx, panel.GuildID); err != nil {
		return err
	}
	return s.deps.PanelRepo.Upsert(ctx, panel, createdByID)
}

// GetPanel resolves a panel by its public id.
func (s *TicketService) GetPanel(ctx context.Context, panelID string) (*domain.TicketPanel, error) {
	panel, err := s.deps.PanelRepo.GetByPanelID(ctx, panelID)
	if err != nil || panel == nil {
		return nil, util.NewNotFound("panel", nil)
	}
	return panel, nil
}

// ListParticipants lists the user ids attached to a ticket.
func (s *TicketService) ListParticipants(ctx context.Context, ticketID string) ([]int64, error) {
	return s.deps.ParticipantRepo.List(ctx, ticketID)
}

// TicketHistory lists the ticket's event log.
func (s *TicketService) TicketHistory(ctx context.Context, ticketID string, limit int) ([]domain.TicketEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.deps.EventRepo.ListByTicket(ctx, ticketID, limit)
}

func (s *TicketService) refetch(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.deps.TicketRepo.GetByID(ctx, ticketID)
	if err != nil || ticket == nil {
		return nil, util.NewTicketNotFound()
	}
	return ticket, nil
}

func (s *TicketService) logEvent(ctx context.Context, ticket *domain.Ticket, actorID int64, eventType string, payload map[string]any) {
	if err := s.deps.EventRepo.Log(ctx, ticket.ID, ticket.GuildID, actorID, eventType, payload); err != nil {
		s.logger.Warn("failed to log ticket event",
			zap.String("ticket_id", ticket.ID),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

func (s *TicketService) audit(ctx context.Context, guildID, actorID int64, action, targetID string, metadata map[string]any) {
	if s.deps.AuditRepo == nil {
		return
	}
	target := targetID
	if err := s.deps.AuditRepo.Log(ctx, guildID, actorID, action, &target, metadata); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticket *domain.Ticket, actorID int64, payload map[string]any) {
	if s.deps.Dispatcher == nil {
		return
	}
	_ = s.deps.Dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		GuildID:   ticket.GuildID,
		TicketID:  ticket.ID,
		ActorID:   actorID,
		Timestamp: s.clk.NowUTC(),
		Payload:   payload,
	})
}
