package events

import (
	"time"

	"github.com/spec-kit/locate-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketConfirmed     EventType = "ticket_confirmed"
	EventTicketCancelled     EventType = "ticket_cancelled"
	EventTicketExpiring      EventType = "ticket_expiring"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	TicketID  string       `json:"ticket_id"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   any          `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Status              domain.TicketStatus `json:"status"`
	Company             string              `json:"company,omitempty"`
	RequiredGaps        int                 `json:"required_gaps"`
	EarliestLawfulStart *time.Time          `json:"earliest_lawful_start,omitempty"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Action        domain.AuditAction `json:"action"`
	ChangedFields []domain.FieldName `json:"changed_fields"`
	RequiredGaps  int                `json:"required_gaps"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reason    string              `json:"reason,omitempty"`
}

// TicketConfirmedPayload payload.
type TicketConfirmedPayload struct {
	PacketDigest        string    `json:"packet_digest"`
	EarliestLawfulStart time.Time `json:"earliest_lawful_start"`
}

// TicketCancelledPayload payload.
type TicketCancelledPayload struct {
	PreviousStatus domain.TicketStatus `json:"previous_status"`
	Reason         string              `json:"reason,omitempty"`
}

// TicketExpiringPayload payload.
type TicketExpiringPayload struct {
	ExpiresAt     time.Time           `json:"expires_at"`
	DisplayStatus domain.TicketStatus `json:"display_status"`
	DaysRemaining int                 `json:"days_remaining"`
}
