package service

import (
	"context"
	"fmt"
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
)

const antiSpamWindowSeconds = 10

// SecurityService watches join and message volume through windowed
// counters and records an event when a threshold is crossed. It observes
// and reports; enforcement (kicks, slowmode) stays with the gateway.
type SecurityService struct {
	cfg          config.SecurityConfig
	securityRepo repository.SecurityRepository
	auditRepo    repository.AuditRepository
	rateLimiter  *ratelimit.Limiter
	dispatcher   events.Dispatcher
	clk          clock.Clock
	logger       *zap.Logger
}

// NewSecurityService constructs the detector.
func NewSecurityService(
	cfg config.SecurityConfig,
	securityRepo repository.SecurityRepository,
	auditRepo repository.AuditRepository,
	backend cache.Backend,
	dispatcher events.Dispatcher,
	clk clock.Clock,
	logger *zap.Logger,
) *SecurityService {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityService{
		cfg:          cfg,
		securityRepo: securityRepo,
		auditRepo:    auditRepo,
		rateLimiter:  ratelimit.NewLimiter(backend),
		dispatcher:   dispatcher,
		clk:          clk,
		logger:       logger,
	}
}

// RecordJoin counts a guild join in the anti-raid window. Returns true when
// the join volume crossed the configured threshold.
func (s *SecurityService) RecordJoin(ctx context.Context, guildID int64) (bool, error) {
	key := fmt.Sprintf("security:joins:%d", guildID)
	result, err := s.rateLimiter.Hit(ctx, key, s.cfg.AntiRaidJoinThreshold, s.cfg.AntiRaidWindowSeconds)
	if err != nil {
		return false, err
	}
	if result.Allowed {
		return false, nil
	}
	s.trigger(ctx, guildID, 0, "anti_raid", domain.SeverityHigh, map[string]any{
		"joins":          result.Current,
		"threshold":      s.cfg.AntiRaidJoinThreshold,
		"window_seconds": s.cfg.AntiRaidWindowSeconds,
	})
	return true, nil
}

// RecordMessage counts a user message in the 10-second anti-spam window.
// Bot traffic is not counted. Returns true when the user crossed the
// per-window message threshold.
func (s *SecurityService) RecordMessage(ctx context.Context, guildID int64, author domain.Member) (bool, error) {
	if author.IsBot {
		return false, nil
	}
	key := fmt.Sprintf("security:spam:%d:%d", guildID, author.ID)
	result, err := s.rateLimiter.Hit(ctx, key, s.cfg.AntiSpamMessagesPer10s, antiSpamWindowSeconds)
	if err != nil {
		return false, err
	}
	if result.Allowed {
		return false, nil
	}
	s.trigger(ctx, guildID, author.ID, "anti_spam", domain.SeverityMedium, map[string]any{
		"user_id":        author.ID,
		"messages":       result.Current,
		"threshold":      s.cfg.AntiSpamMessagesPer10s,
		"window_seconds": antiSpamWindowSeconds,
	})
	return true, nil
}

// RecordAudit writes a moderation action to the guild audit log.
func (s *SecurityService) RecordAudit(ctx context.Context, guildID, actorID int64, action string, targetID *string, metadata map[string]any) error {
	return s.auditRepo.Log(ctx, guildID, actorID, action, targetID, metadata)
}

// TTLBanUntil returns the expiry timestamp for a timed blacklist entry.
func (s *SecurityService) TTLBanUntil(hours int) time.Time {
	return s.clk.NowUTC().Add(time.Duration(hours) * time.Hour)
}

// RecentEvents lists the latest recorded security events for a guild.
func (s *SecurityService) RecentEvents(ctx context.Context, guildID int64, limit int) ([]domain.SecurityEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.securityRepo.ListRecent(ctx, guildID, limit)
}

func (s *SecurityService) trigger(ctx context.Context, guildID, actorID int64, eventType string, severity domain.SecuritySeverity, payload map[string]any) {
	if err := s.securityRepo.Log(ctx, guildID, eventType, severity, payload); err != nil {
		s.logger.Warn("failed to persist security event",
			zap.Int64("guild_id", guildID),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
	s.logger.Warn("security threshold crossed",
		zap.Int64("guild_id", guildID),
		zap.String("event_type", eventType),
		zap.String("severity", string(severity)))
	if s.dispatcher == nil {
		return
	}
	eventPayload := map[string]any{"event_type": eventType, "severity": string(severity)}
	for k, v := range payload {
		eventPayload[k] = v
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSecurityTriggered,
		GuildID:   guildID,
		ActorID:   actorID,
		Timestamp: s.clk.NowUTC(),
		Payload:   eventPayload,
	})
}
