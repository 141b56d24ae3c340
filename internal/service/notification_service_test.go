package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/locate-service/internal/config"
	"github.com/spec-kit/locate-service/internal/domain"
	"github.com/spec-kit/locate-service/internal/events"
)

func TestNotificationService_LogsStatusChange(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{WebhookURL: "https://hooks.example.com/locate"})
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:        "e1",
		Type:      events.EventTicketStatusChanged,
		TicketID:  "t1",
		Actor:     domain.ActorOperator,
		Timestamp: time.Now(),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusReady,
			NewStatus: domain.TicketStatusSubmitted,
		},
	})
	require.NoError(t, err)

	changed := logs.FilterMessage("TicketStatusChanged").All()
	require.Len(t, changed, 1)
	ctx := changed[0].ContextMap()
	assert.Equal(t, "t1", ctx["ticket_id"])
	assert.Equal(t, "operator", ctx["actor"])
	assert.Equal(t, "ready", ctx["from"])
	assert.Equal(t, "submitted", ctx["to"])

	assert.Equal(t, 1, logs.FilterMessage("sendWebhookNotificationStub").Len())
	assert.Zero(t, logs.FilterMessage("sendEmailNotificationStub").Len())
}

func TestNotificationService_LogsFieldUpdate(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{WebhookURL: "https://hooks.example.com/locate"})
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:       "e2",
		Type:     events.EventTicketUpdated,
		TicketID: "t1",
		Actor:    domain.ActorAgent,
		Payload: events.TicketUpdatedPayload{
			Action:        domain.AuditActionFieldsUpdated,
			ChangedFields: []domain.FieldName{domain.FieldPhone, domain.FieldCounty},
			RequiredGaps:  3,
		},
	})
	require.NoError(t, err)

	updated := logs.FilterMessage("TicketUpdated").All()
	require.Len(t, updated, 1)
	ctx := updated[0].ContextMap()
	assert.Equal(t, "fields_updated", ctx["action"])
	assert.Equal(t, []any{"phone", "county"}, ctx["changed_fields"])
	assert.Equal(t, int64(3), ctx["required_gaps"])
	assert.Equal(t, 1, logs.FilterMessage("sendWebhookNotificationStub").Len())
}
