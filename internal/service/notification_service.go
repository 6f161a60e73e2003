package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/guildkit/ticketd/internal/config"
	"github.com/guildkit/ticketd/internal/events"
)

// NotificationService mirrors lifecycle events to an external webhook.
// Delivery is best effort: failures are logged and never surface into the
// operation that produced the event.
type NotificationService struct {
	cfg    config.NotificationConfig
	client *http.Client
	logger *zap.Logger
}

// NewNotificationService constructs the sink.
func NewNotificationService(cfg config.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// Register subscribes the sink to the event types worth mirroring. A nop
// when no webhook URL is configured.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	if s.cfg.WebhookURL == "" {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketClaimed,
		events.EventTicketClosed,
		events.EventTicketReopened,
		events.EventTicketEscalated,
		events.EventSecurityTriggered,
		events.EventJobFailed,
	} {
		dispatcher.Subscribe(eventType, s.deliver)
	}
}

func (s *NotificationService) deliver(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.logger.Warn("webhook delivery rejected",
			zap.String("event_type", string(event.Type)),
			zap.Int("status", resp.StatusCode))
	}
	return nil
}
