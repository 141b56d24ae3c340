package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/locate-service/internal/config"
	"github.com/spec-kit/locate-service/internal/events"
)

// NotificationService turns ticket events into operator notifications.
// Delivery is stubbed: email and webhook sends are logged at debug level
// when their endpoint is configured.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to ticket events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketConfirmed, n.handleTicketConfirmed)
	n.dispatcher.Subscribe(events.EventTicketCancelled, n.handleTicketCancelled)
	n.dispatcher.Subscribe(events.EventTicketExpiring, n.handleTicketExpiring)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	fields := n.eventFields(event)
	if p, ok := event.Payload.(events.TicketCreatedPayload); ok {
		fields = append(fields, zap.String("company", p.Company), zap.Int("required_gaps", p.RequiredGaps))
	}
	n.logger.Info("TicketCreated", fields...)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// Field edits and enrichment only reach the webhook; no email is sent.
func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	fields := n.eventFields(event)
	if p, ok := event.Payload.(events.TicketUpdatedPayload); ok {
		changed := make([]string, len(p.ChangedFields))
		for i, f := range p.ChangedFields {
			changed[i] = string(f)
		}
		fields = append(fields,
			zap.String("action", string(p.Action)),
			zap.Strings("changed_fields", changed),
			zap.Int("required_gaps", p.RequiredGaps))
	}
	n.logger.Info("TicketUpdated", fields...)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	fields := n.eventFields(event)
	if p, ok := event.Payload.(events.TicketStatusChangedPayload); ok {
		fields = append(fields, zap.String("from", string(p.OldStatus)), zap.String("to", string(p.NewStatus)))
	}
	n.logger.Info("TicketStatusChanged", fields...)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// A confirmed ticket is ready for the operator to key into the portal.
func (n *NotificationService) handleTicketConfirmed(ctx context.Context, event events.Event) error {
	fields := n.eventFields(event)
	if p, ok := event.Payload.(events.TicketConfirmedPayload); ok {
		fields = append(fields,
			zap.String("packet_digest", p.PacketDigest),
			zap.Time("earliest_lawful_start", p.EarliestLawfulStart))
	}
	n.logger.Info("TicketConfirmed", fields...)
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketCancelled(ctx context.Context, event events.Event) error {
	fields := n.eventFields(event)
	if p, ok := event.Payload.(events.TicketCancelledPayload); ok {
		fields = append(fields, zap.String("previous_status", string(p.PreviousStatus)), zap.String("reason", p.Reason))
	}
	n.logger.Info("TicketCancelled", fields...)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// Expiring tickets need a refresh ticket filed before excavation can
// continue past the expiration date.
func (n *NotificationService) handleTicketExpiring(ctx context.Context, event events.Event) error {
	fields := n.eventFields(event)
	if p, ok := event.Payload.(events.TicketExpiringPayload); ok {
		fields = append(fields, zap.Time("expires_at", p.ExpiresAt), zap.Int("days_remaining", p.DaysRemaining))
	}
	n.logger.Warn("TicketExpiring", fields...)
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) eventFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("ticket_id", event.TicketID),
		zap.String("event_id", event.ID),
		zap.String("actor", string(event.Actor)),
	}
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
