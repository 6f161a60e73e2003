package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/guildkit/ticketd/internal/domain"
)

type fakeGuildRepo struct {
	mu       sync.Mutex
	counters map[int64]int
}

func newFakeGuildRepo() *fakeGuildRepo {
	return &fakeGuildRepo{counters: map[int64]int{}}
}

func (r *fakeGuildRepo) EnsureGuild(context.Context, int64) error { return nil }

func (r *fakeGuildRepo) NextTicketNumber(_ context.Context, guildID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[guildID]++
	return r.counters[guildID], nil
}

func (r *fakeGuildRepo) SetChannels(context.Context, int64, *int64, *int64) error { return nil }

type fakeCategoryRepo struct {
	categories map[string]*domain.TicketCategory
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: map[string]*domain.TicketCategory{}}
}

func (r *fakeCategoryRepo) key(guildID int64, key string) string {
	return fmt.Sprintf("%d/%s", guildID, key)
}

func (r *fakeCategoryRepo) Upsert(_ context.Context, category *domain.TicketCategory) error {
	copied := *category
	r.categories[r.key(category.GuildID, category.Key)] = &copied
	return nil
}

func (r *fakeCategoryRepo) Get(_ context.Context, guildID int64, key string) (*domain.TicketCategory, error) {
	category, ok := r.categories[r.key(guildID, key)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return category, nil
}

func (r *fakeCategoryRepo) ListByGuild(_ context.Context, guildID int64) ([]domain.TicketCategory, error) {
	out := []domain.TicketCategory{}
	for _, category := range r.categories {
		if category.GuildID == guildID {
			out = append(out, *category)
		}
	}
	return out, nil
}

type fakePanelRepo struct {
	panels map[string]*domain.TicketPanel
}

func newFakePanelRepo() *fakePanelRepo {
	return &fakePanelRepo{panels: map[string]*domain.TicketPanel{}}
}

func (r *fakePanelRepo) Upsert(_ context.Context, panel *domain.TicketPanel, _ int64) error {
	copied := *panel
	r.panels[panel.PanelID] = &copied
	return nil
}

func (r *fakePanelRepo) GetByPanelID(_ context.Context, panelID string) (*domain.TicketPanel, error) {
	panel, ok := r.panels[panelID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return panel, nil
}

func (r *fakePanelRepo) GetByMessage(context.Context, int64, int64) (*domain.TicketPanel, error) {
	return nil, pgx.ErrNoRows
}

func (r *fakePanelRepo) SetMessageID(context.Context, string, int64) error { return nil }

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) get(ticketID string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ticket, nil
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, ticketID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return nil, err
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByChannel(_ context.Context, guildID, channelID int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.GuildID == guildID && ticket.ChannelID == channelID {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListOpenByUser(_ context.Context, guildID, openerID int64) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Ticket{}
	for _, ticket := range r.tickets {
		if ticket.GuildID == guildID && ticket.OpenerID == openerID &&
			(ticket.Status == domain.TicketStatusOpen || ticket.Status == domain.TicketStatusPending) {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) ListOpen(_ context.Context, guildID int64, _ int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Ticket{}
	for _, ticket := range r.tickets {
		if ticket.GuildID == guildID && ticket.Status != domain.TicketStatusClosed && ticket.Status != domain.TicketStatusDeleted {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) ListRecent(_ context.Context, guildID int64, _ int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Ticket{}
	for _, ticket := range r.tickets {
		if ticket.GuildID == guildID {
			out = append(out, *ticket)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) SetStatus(_ context.Context, ticketID string, status domain.TicketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.Status = status
	return nil
}

func (r *fakeTicketRepo) SetClosed(_ context.Context, ticketID, closeReason string, closedByID int64, closedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.Status = domain.TicketStatusClosed
	ticket.CloseReason = &closeReason
	ticket.ClosedByID = &closedByID
	ticket.ClosedAt = &closedAt
	return nil
}

func (r *fakeTicketRepo) SetLocked(_ context.Context, ticketID string, locked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.IsLocked = locked
	if locked {
		ticket.Status = domain.TicketStatusLocked
	} else {
		ticket.Status = domain.TicketStatusOpen
	}
	return nil
}

func (r *fakeTicketRepo) SetClaimed(_ context.Context, ticketID string, staffID *int64, claimedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.ClaimedByID = staffID
	ticket.ClaimedAt = claimedAt
	return nil
}

func (r *fakeTicketRepo) SetPriority(_ context.Context, ticketID string, priority domain.TicketPriority) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.Priority = priority
	return nil
}

func (r *fakeTicketRepo) SetTags(_ context.Context, ticketID string, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.Tags = tags
	return nil
}

func (r *fakeTicketRepo) AppendInternalNote(_ context.Context, ticketID string, note domain.InternalNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.InternalNotes = append(ticket.InternalNotes, note)
	return nil
}

func (r *fakeTicketRepo) TransferOwner(_ context.Context, ticketID string, newOwnerID int64, newDisplay string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.OpenerID = newOwnerID
	ticket.OpenerDisplay = newDisplay
	return nil
}

func (r *fakeTicketRepo) UpdateChannel(_ context.Context, ticketID string, newChannelID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.ChannelID = newChannelID
	return nil
}

func (r *fakeTicketRepo) SetTranscripts(_ context.Context, ticketID string, htmlPath, txtPath *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.TranscriptHTML = htmlPath
	ticket.TranscriptTXT = txtPath
	return nil
}

func (r *fakeTicketRepo) IncrementReopened(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.ReopenedCount++
	return nil
}

func (r *fakeTicketRepo) MarkSoftDeleted(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.SoftDeleted = true
	return nil
}

func (r *fakeTicketRepo) MarkHardDeleted(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.HardDeleted = true
	ticket.Status = domain.TicketStatusDeleted
	return nil
}

func (r *fakeTicketRepo) RecordFirstResponse(_ context.Context, ticketID string, staffID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	if ticket.FirstResponseAt == nil {
		ticket.FirstResponseAt = &at
		ticket.FirstResponseByID = &staffID
	}
	return nil
}

func (r *fakeTicketRepo) SetDepartment(_ context.Context, ticketID, department string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.Department = &department
	return nil
}

func (r *fakeTicketRepo) SetEscalationLevel(_ context.Context, ticketID string, level int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.EscalationLevel = level
	return nil
}

func (r *fakeTicketRepo) SubmitFeedback(_ context.Context, ticketID string, _, _ int64, stars int, feedback *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, err := r.get(ticketID)
	if err != nil {
		return err
	}
	ticket.FeedbackStars = &stars
	ticket.FeedbackText = feedback
	return nil
}

type fakeParticipantRepo struct {
	mu      sync.Mutex
	members map[string][]int64
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{members: map[string][]int64{}}
}

func (r *fakeParticipantRepo) Add(_ context.Context, ticketID string, userID, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.members[ticketID] {
		if existing == userID {
			return nil
		}
	}
	r.members[ticketID] = append(r.members[ticketID], userID)
	return nil
}

func (r *fakeParticipantRepo) Remove(_ context.Context, ticketID string, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.members[ticketID][:0]
	for _, existing := range r.members[ticketID] {
		if existing != userID {
			kept = append(kept, existing)
		}
	}
	r.members[ticketID] = kept
	return nil
}

func (r *fakeParticipantRepo) List(_ context.Context, ticketID string) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64{}, r.members[ticketID]...), nil
}

type loggedEvent struct {
	ticketID  string
	eventType string
	payload   map[string]any
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []loggedEvent
}

func (r *fakeEventRepo) Log(_ context.Context, ticketID string, _, _ int64, eventType string, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, loggedEvent{ticketID: ticketID, eventType: eventType, payload: payload})
	return nil
}

func (r *fakeEventRepo) ListByTicket(_ context.Context, ticketID string, _ int) ([]domain.TicketEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TicketEvent{}
	for _, event := range r.events {
		if event.ticketID == ticketID {
			out = append(out, domain.TicketEvent{TicketID: ticketID, EventType: event.eventType, Payload: event.payload})
		}
	}
	return out, nil
}

func (r *fakeEventRepo) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, event := range r.events {
		out = append(out, event.eventType)
	}
	return out
}

type fakeBlacklistRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.BlacklistEntry
}

func newFakeBlacklistRepo() *fakeBlacklistRepo {
	return &fakeBlacklistRepo{entries: map[string]*domain.BlacklistEntry{}}
}

func blKey(guildID, userID int64) string {
	return fmt.Sprintf("%d/%d", guildID, userID)
}

func (r *fakeBlacklistRepo) Add(_ context.Context, entry *domain.BlacklistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *entry
	r.entries[blKey(entry.GuildID, entry.UserID)] = &copied
	return nil
}

func (r *fakeBlacklistRepo) Remove(_ context.Context, guildID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, blKey(guildID, userID))
	return nil
}

func (r *fakeBlacklistRepo) GetActive(_ context.Context, guildID, userID int64, now time.Time) (*domain.BlacklistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[blKey(guildID, userID)]
	if !ok {
		return nil, nil
	}
	if entry.UntilAt != nil && !entry.UntilAt.After(now) {
		delete(r.entries, blKey(guildID, userID))
		return nil, nil
	}
	return entry, nil
}

type fakeStaffStatsRepo struct {
	mu             sync.Mutex
	claimed        map[int64]int
	closed         map[int64]int
	messages       map[int64]int
	firstResponses map[int64][]int64
}

func newFakeStaffStatsRepo() *fakeStaffStatsRepo {
	return &fakeStaffStatsRepo{
		claimed:        map[int64]int{},
		closed:         map[int64]int{},
		messages:       map[int64]int{},
		firstResponses: map[int64][]int64{},
	}
}

func (r *fakeStaffStatsRepo) IncrementClaimed(_ context.Context, _, staffID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claimed[staffID]++
	return nil
}

func (r *fakeStaffStatsRepo) IncrementClosed(_ context.Context, _, staffID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed[staffID]++
	return nil
}

func (r *fakeStaffStatsRepo) AddMessage(_ context.Context, _, staffID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[staffID]++
	return nil
}

func (r *fakeStaffStatsRepo) AddFirstResponse(_ context.Context, _, staffID int64, responseSeconds int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.firstResponses[staffID] = append(r.firstResponses[staffID], responseSeconds)
	return nil
}

func (r *fakeStaffStatsRepo) Leaderboard(context.Context, int64, int) ([]domain.StaffStats, error) {
	return nil, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	actions []string
}

func (r *fakeAuditRepo) Log(_ context.Context, _, _ int64, action string, _ *string, _ map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
	return nil
}

type fakeSecurityRepo struct {
	mu     sync.Mutex
	events []domain.SecurityEvent
}

func (r *fakeSecurityRepo) Log(_ context.Context, guildID int64, eventType string, severity domain.SecuritySeverity, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, domain.SecurityEvent{GuildID: guildID, EventType: eventType, Severity: severity, Payload: payload})
	return nil
}

func (r *fakeSecurityRepo) ListRecent(_ context.Context, guildID int64, _ int) ([]domain.SecurityEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.SecurityEvent{}
	for _, event := range r.events {
		if event.GuildID == guildID {
			out = append(out, event)
		}
	}
	return out, nil
}

type fakeAutomationRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.AutomationJob
}

func newFakeAutomationRepo() *fakeAutomationRepo {
	return &fakeAutomationRepo{jobs: map[string]*domain.AutomationJob{}}
}

func (r *fakeAutomationRepo) Insert(_ context.Context, job *domain.AutomationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *fakeAutomationRepo) Get(_ context.Context, jobID string) (*domain.AutomationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (r *fakeAutomationRepo) ListDue(_ context.Context, jobType domain.AutomationJobType, now time.Time) ([]domain.AutomationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.AutomationJob{}
	for _, job := range r.jobs {
		if job.Status == domain.JobStatusPending && job.JobType == jobType && !job.RunAt.After(now) {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *fakeAutomationRepo) SetStatus(_ context.Context, jobID string, status domain.AutomationJobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return pgx.ErrNoRows
	}
	job.Status = status
	return nil
}

func (r *fakeAutomationRepo) SetFailed(_ context.Context, jobID string, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return pgx.ErrNoRows
	}
	job.Status = domain.JobStatusFailed
	job.Payload = payload
	return nil
}

type fakeProvisioner struct {
	mu     sync.Mutex
	nextID int64
	names  []string
}

func (p *fakeProvisioner) CreateTicketChannel(_ context.Context, _ int64, name string, _ *domain.TicketCategory, _ *domain.TicketPanel, _ domain.Member) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.names = append(p.names, name)
	return 9000 + p.nextID, nil
}
