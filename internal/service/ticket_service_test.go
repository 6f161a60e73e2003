package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildkit/ticketd/internal/cache"
	"github.com/guildkit/ticketd/internal/clock"
	"github.com/guildkit/ticketd/internal/config"
	"github.com/guildkit/ticketd/internal/domain"
	"github.com/guildkit/ticketd/internal/events"
	"github.com/guildkit/ticketd/pkg/util"
)

func defaultSecurityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		TicketCreationCooldownSeconds: 20,
		TicketCreationMaxPerHour:      8,
		MaxOpenTicketsPerUser:         3,
		AntiRaidWindowSeconds:         20,
		AntiRaidJoinThreshold:         20,
		AntiSpamMessagesPer10s:        8,
		RequireTicketCloseReason:      true,
		AllowAnonymousTickets:         true,
	}
}

type ticketFixture struct {
	svc        *TicketService
	clk        *clock.Fake
	tickets    *fakeTicketRepo
	guilds     *fakeGuildRepo
	categories *fakeCategoryRepo
	blacklist  *fakeBlacklistRepo
	staff      *fakeStaffStatsRepo
	eventLog   *fakeEventRepo
	members    *fakeParticipantRepo
}

func newTicketFixture(t *testing.T, cfg config.SecurityConfig) *ticketFixture {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	f := &ticketFixture{
		clk:        clk,
		tickets:    newFakeTicketRepo(),
		guilds:     newFakeGuildRepo(),
		categories: newFakeCategoryRepo(),
		blacklist:  newFakeBlacklistRepo(),
		staff:      newFakeStaffStatsRepo(),
		eventLog:   &fakeEventRepo{},
		members:    newFakeParticipantRepo(),
	}
	f.svc = NewTicketService(cfg, TicketDependencies{
		GuildRepo:       f.guilds,
		CategoryRepo:    f.categories,
		PanelRepo:       newFakePanelRepo(),
		TicketRepo:      f.tickets,
		ParticipantRepo: f.members,
		EventRepo:       f.eventLog,
		BlacklistRepo:   f.blacklist,
		StaffRepo:       f.staff,
		AuditRepo:       &fakeAuditRepo{},
		Cache:           cache.NewMemoryBackend(cache.WithNowFunc(clk.Now)),
		Channels:        &fakeProvisioner{},
		Dispatcher:      events.NewInMemoryDispatcher(),
		Clock:           clk,
	})

	require.NoError(t, f.categories.Upsert(context.Background(), &domain.TicketCategory{
		ID:              "cat-support",
		GuildID:         100,
		Key:             "support",
		DisplayName:     "General Support",
		PriorityDefault: domain.TicketPriorityNormal,
		TagsDefault:     []string{"support"},
		SLAMinutes:      60,
		IsEnabled:       true,
	}))
	return f
}

func (f *ticketFixture) create(t *testing.T, userID int64, display string) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		GuildID:     100,
		Opener:      domain.Member{ID: userID, DisplayName: display},
		CategoryKey: "support",
	})
	require.NoError(t, err)
	return ticket
}

func TestSanitizeChannelFragment(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello World !!!", "hello-world"},
		{"", "user"},
		{"!!!", "user"},
		{"alice", "alice"},
		{"A--B", "a-b"},
		{"émilie", "milie"},
		{"--tidy--", "tidy"},
		{strings.Repeat("a", 40), strings.Repeat("a", 32)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeChannelFragment(tc.in), "input %q", tc.in)
	}
}

func TestCreateTicket(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())

	ticket := f.create(t, 42, "Alice")

	assert.Equal(t, 1, ticket.TicketNumber)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityNormal, ticket.Priority)
	assert.Equal(t, []string{"support"}, ticket.Tags)
	assert.False(t, ticket.IsAnonymous)
	assert.Equal(t, "Alice", ticket.OpenerDisplay)
	require.NotNil(t, ticket.ResponseDueAt)
	assert.Equal(t, f.clk.NowUTC().Add(60*time.Minute), *ticket.ResponseDueAt)

	participants, err := f.members.List(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, participants)
	assert.Contains(t, f.eventLog.types(), "create")
}

func TestCreateTicketAnonymousMasksOpener(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())

	ticket, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		GuildID:     100,
		Opener:      domain.Member{ID: 42, DisplayName: "Alice"},
		CategoryKey: "support",
		Anonymous:   true,
	})
	require.NoError(t, err)
	assert.True(t, ticket.IsAnonymous)
	assert.Equal(t, "Anonymous User", ticket.OpenerDisplay)
	assert.Equal(t, int64(42), ticket.OpenerID)
}

func TestCreateTicketAnonymousDisabled(t *testing.T) {
	cfg := defaultSecurityConfig()
	cfg.AllowAnonymousTickets = false
	f := newTicketFixture(t, cfg)

	ticket, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		GuildID:     100,
		Opener:      domain.Member{ID: 42, DisplayName: "Alice"},
		CategoryKey: "support",
		Anonymous:   true,
	})
	require.NoError(t, err)
	assert.False(t, ticket.IsAnonymous)
	assert.Equal(t, "Alice", ticket.OpenerDisplay)
}

func TestCreateTicketCooldown(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())

	f.create(t, 42, "Alice")
	_, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		GuildID:     100,
		Opener:      domain.Member{ID: 42, DisplayName: "Alice"},
		CategoryKey: "support",
	})
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))
	assert.Contains(t, err.Error(), "cooldown")

	// Window expires; the same user can open again.
	f.clk.Advance(21 * time.Second)
	f.create(t, 42, "Alice")
}

func TestCreateTicketOpenLimit(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())

	for i := 0; i < 3; i++ {
		f.create(t, 42, "Alice")
		f.clk.Advance(30 * time.Second)
	}
	_, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		GuildID:     100,
		Opener:      domain.Member{ID: 42, DisplayName: "Alice"},
		CategoryKey: "support",
	})
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "TICKET_LIMIT_REACHED"))
}

func TestCreateTicketHourlyLimit(t *testing.T) {
	cfg := defaultSecurityConfig()
	cfg.TicketCreationMaxPerHour = 2
	cfg.MaxOpenTicketsPerUser = 10
	f := newTicketFixture(t, cfg)

	f.create(t, 42, "Alice")
	f.clk.Advance(30 * time.Second)
	f.create(t, 42, "Alice")
	f.clk.Advance(30 * time.Second)

	_, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		GuildID:     100,
		Opener:      domain.Member{ID: 42, DisplayName: "Alice"},
		CategoryKey: "support",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hourly")

	// Outside the hour window the counter restarts.
	f.clk.Advance(time.Hour)
	f.create(t, 42, "Alice")
}

func TestCreateTicketBlacklisted(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	require.NoError(t, f.blacklist.Add(context.Background(), &domain.BlacklistEntry{
		GuildID: 100, UserID: 42, Reason: "abuse",
	}))

	_, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		GuildID:     100,
		Opener:      domain.Member{ID: 42, DisplayName: "Alice"},
		CategoryKey: "support",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blacklisted")
}

func TestCreateTicketExpiredBlacklistEntry(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	until := f.clk.NowUTC().Add(-time.Minute)
	require.NoError(t, f.blacklist.Add(context.Background(), &domain.BlacklistEntry{
		GuildID: 100, UserID: 42, Reason: "temp ban", UntilAt: &until,
	}))

	ticket := f.create(t, 42, "Alice")
	assert.Equal(t, 1, ticket.TicketNumber)

	entry, err := f.blacklist.GetActive(context.Background(), 100, 42, f.clk.NowUTC())
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestCreateTicketRejectedAttemptKeepsNumber(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	require.NoError(t, f.blacklist.Add(context.Background(), &domain.BlacklistEntry{
		GuildID: 100, UserID: 42, Reason: "abuse",
	}))

	_, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		GuildID:     100,
		Opener:      domain.Member{ID: 42, DisplayName: "Alice"},
		CategoryKey: "support",
	})
	require.Error(t, err)

	require.NoError(t, f.blacklist.Remove(context.Background(), 100, 42))
	ticket := f.create(t, 42, "Alice")
	assert.Equal(t, 1, ticket.TicketNumber)
}

func TestCreateTicketUnknownCategory(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())

	_, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		GuildID:     100,
		Opener:      domain.Member{ID: 42, DisplayName: "Alice"},
		CategoryKey: "nope",
	})
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))
}

func TestCreateTicketDisabledCategory(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	require.NoError(t, f.categories.Upsert(context.Background(), &domain.TicketCategory{
		ID: "cat-off", GuildID: 100, Key: "off", DisplayName: "Off",
		PriorityDefault: domain.TicketPriorityNormal, SLAMinutes: 60, IsEnabled: false,
	}))

	_, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		GuildID:     100,
		Opener:      domain.Member{ID: 42, DisplayName: "Alice"},
		CategoryKey: "off",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestBuildTicketNameCapped(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())

	name, number, err := f.svc.BuildTicketName(context.Background(), 100, strings.Repeat("c", 80), strings.Repeat("n", 40))
	require.NoError(t, err)
	assert.Equal(t, 1, number)
	assert.LessOrEqual(t, len(name), 95)
	assert.True(t, strings.HasPrefix(name, "ticket-1-"))
}

func TestClaimTicket(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	ticket := f.create(t, 42, "Alice")

	updated, err := f.svc.ClaimTicket(context.Background(), ticket, domain.Member{ID: 7, DisplayName: "Mod", IsStaff: true})
	require.NoError(t, err)
	require.NotNil(t, updated.ClaimedByID)
	assert.Equal(t, int64(7), *updated.ClaimedByID)
	require.NotNil(t, updated.ClaimedAt)
	assert.Equal(t, 1, f.staff.claimed[7])
}

func TestClaimClosedTicketRejected(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	ticket := f.create(t, 42, "Alice")
	require.NoError(t, f.svc.CloseTicket(context.Background(), ticket, 7, "resolved"))

	closed, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	_, err = f.svc.ClaimTicket(context.Background(), closed, domain.Member{ID: 7, IsStaff: true})
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "TICKET_STATE"))
}

func TestUnclaimTicket(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	ticket := f.create(t, 42, "Alice")
	claimed, err := f.svc.ClaimTicket(context.Background(), ticket, domain.Member{ID: 7, IsStaff: true})
	require.NoError(t, err)

	updated, err := f.svc.UnclaimTicket(context.Background(), claimed, domain.Member{ID: 7, IsStaff: true})
	require.NoError(t, err)
	assert.Nil(t, updated.ClaimedByID)
	assert.Nil(t, updated.ClaimedAt)
}

func TestCloseTicketRequiresReason(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	ticket := f.create(t, 42, "Alice")

	err := f.svc.CloseTicket(context.Background(), ticket, 7, "   ")
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))

	require.NoError(t, f.svc.CloseTicket(context.Background(), ticket, 7, "resolved"))
	closed, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.CloseReason)
	assert.Equal(t, "resolved", *closed.CloseReason)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, f.clk.NowUTC(), *closed.ClosedAt)
	assert.Equal(t, 1, f.staff.closed[7])
}

func TestCloseTicketReasonOptionalWhenDisabled(t *testing.T) {
	cfg := defaultSecurityConfig()
	cfg.RequireTicketCloseReason = false
	f := newTicketFixture(t, cfg)
	ticket := f.create(t, 42, "Alice")

	require.NoError(t, f.svc.CloseTicket(context.Background(), ticket, 7, ""))
}

func TestReopenTicket(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	ticket := f.create(t, 42, "Alice")
	require.NoError(t, f.svc.CloseTicket(context.Background(), ticket, 7, "resolved"))

	require.NoError(t, f.svc.ReopenTicket(context.Background(), ticket, 7))
	reopened, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)
	assert.Equal(t, 1, reopened.ReopenedCount)
}

func TestLockUnlockTicket(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	ticket := f.create(t, 42, "Alice")

	require.NoError(t, f.svc.LockTicket(context.Background(), ticket, 7))
	locked, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)
	assert.Equal(t, domain.TicketStatusLocked, locked.Status)

	require.NoError(t, f.svc.UnlockTicket(context.Background(), ticket, 7))
	unlocked, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.False(t, unlocked.IsLocked)
	assert.Equal(t, domain.TicketStatusOpen, unlocked.Status)
}

func TestSetTagsNormalizes(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	ticket := f.create(t, 42, "Alice")

	require.NoError(t, f.svc.SetTags(context.Background(), ticket, 7, []string{" Bug", "bug", "URGENT", "", "api"}))
	updated, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "bug", "urgent"}, updated.Tags)
}

func TestSetPriorityValidation(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	ticket := f.create(t, 42, "Alice")

	err := f.svc.SetPriority(context.Background(), ticket, 7, domain.TicketPriority("extreme"))
	require.Error(t, err)
	assert.True(t, util.IsCode(err, "VALIDATION_FAILED"))

	require.NoError(t, f.svc.SetPriority(context.Background(), ticket, 7, domain.TicketPriorityUrgent))
	updated, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, updated.Priority)
}

func TestEscalateBounds(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	ticket := f.create(t, 42, "Alice")

	require.Error(t, f.svc.Escalate(context.Background(), ticket, 7, 11))
	require.Error(t, f.svc.Escalate(context.Background(), ticket, 7, -1))
	require.NoError(t, f.svc.Escalate(context.Background(), ticket, 7, 10))

	updated, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.EscalationLevel)
}

func TestRecordFeedbackBounds(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	ticket := f.create(t, 42, "Alice")

	require.Error(t, f.svc.RecordFeedback(context.Background(), ticket, 42, 0, nil))
	require.Error(t, f.svc.RecordFeedback(context.Background(), ticket, 42, 6, nil))

	text := "great help"
	require.NoError(t, f.svc.RecordFeedback(context.Background(), ticket, 42, 4, &text))
	updated, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.FeedbackStars)
	assert.Equal(t, 4, *updated.FeedbackStars)
}

func TestRegisterStaffMessage(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	ticket := f.create(t, 42, "Alice")

	// Bot messages never count.
	require.NoError(t, f.svc.RegisterStaffMessage(context.Background(), ticket, domain.Member{ID: 99, IsBot: true}))
	assert.Equal(t, 0, f.staff.messages[99])

	f.clk.Advance(5 * time.Minute)
	require.NoError(t, f.svc.RegisterStaffMessage(context.Background(), ticket, domain.Member{ID: 7, IsStaff: true}))

	updated, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.FirstResponseAt)
	require.NotNil(t, updated.FirstResponseByID)
	assert.Equal(t, int64(7), *updated.FirstResponseByID)
	assert.Equal(t, []int64{300}, f.staff.firstResponses[7])

	// A later message bumps the counter but leaves the first response alone.
	f.clk.Advance(10 * time.Minute)
	require.NoError(t, f.svc.RegisterStaffMessage(context.Background(), updated, domain.Member{ID: 8, IsStaff: true}))
	after, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, *updated.FirstResponseAt, *after.FirstResponseAt)
	assert.Empty(t, f.staff.firstResponses[8])
	assert.Equal(t, 1, f.staff.messages[8])
}

func TestTransferTicket(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	ticket := f.create(t, 42, "Alice")

	require.NoError(t, f.svc.TransferTicket(context.Background(), ticket, 7, domain.Member{ID: 55, DisplayName: "Bob"}))
	updated, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(55), updated.OpenerID)
	assert.Equal(t, "Bob", updated.OpenerDisplay)

	participants, err := f.members.List(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Contains(t, participants, int64(55))
	assert.Contains(t, participants, int64(42))
}

func TestBlacklistDefaultReason(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())

	require.NoError(t, f.svc.BlacklistUser(context.Background(), 100, 7, 42, "   ", nil))
	entry, err := f.blacklist.GetActive(context.Background(), 100, 42, f.clk.NowUTC())
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "No reason provided", entry.Reason)
}

func TestBootstrapDefaultCategories(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())

	require.NoError(t, f.svc.BootstrapDefaultCategories(context.Background(), 200))
	categories, err := f.svc.ListCategories(context.Background(), 200)
	require.NoError(t, err)
	require.Len(t, categories, 5)

	keys := make(map[string]domain.TicketCategory, len(categories))
	for _, cat := range categories {
		keys[cat.Key] = cat
	}
	assert.Contains(t, keys, "support")
	assert.Contains(t, keys, "billing")
	assert.Contains(t, keys, "bug")
	assert.Contains(t, keys, "suggestion")
	assert.Contains(t, keys, "payment-proof")
	assert.Equal(t, domain.TicketPriorityHigh, keys["bug"].PriorityDefault)
	assert.Equal(t, 240, keys["suggestion"].SLAMinutes)

	// A second bootstrap leaves existing categories untouched.
	require.NoError(t, f.svc.BootstrapDefaultCategories(context.Background(), 200))
	categories, err = f.svc.ListCategories(context.Background(), 200)
	require.NoError(t, err)
	assert.Len(t, categories, 5)
}

func TestAddInternalNote(t *testing.T) {
	f := newTicketFixture(t, defaultSecurityConfig())
	ticket := f.create(t, 42, "Alice")

	require.Error(t, f.svc.AddInternalNote(context.Background(), ticket, 7, "  "))
	require.NoError(t, f.svc.AddInternalNote(context.Background(), ticket, 7, "needs follow-up"))

	updated, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, updated.InternalNotes, 1)
	assert.Equal(t, int64(7), updated.InternalNotes[0].AuthorID)
	assert.Equal(t, "needs follow-up", updated.InternalNotes[0].Note)
}
