package domain

import (
	"slices"
	"time"
)

// TicketStatus enumerates lifecycle states for locate tickets.
type TicketStatus string

const (
	TicketStatusDraft                   TicketStatus = "draft"
	TicketStatusValidatedPendingConfirm TicketStatus = "validated_pending_confirm"
	TicketStatusReady                   TicketStatus = "ready"
	TicketStatusSubmitted               TicketStatus = "submitted"
	TicketStatusResponsesIn             TicketStatus = "responses_in"
	TicketStatusReadyToDig              TicketStatus = "ready_to_dig"
	TicketStatusExpiring                TicketStatus = "expiring"
	TicketStatusExpired                 TicketStatus = "expired"
	TicketStatusCancelled               TicketStatus = "cancelled"
)

// ParseTicketStatus validates a status string from a query or payload.
func ParseTicketStatus(s string) (TicketStatus, bool) {
	status := TicketStatus(s)
	switch status {
	case TicketStatusDraft, TicketStatusValidatedPendingConfirm, TicketStatusReady,
		TicketStatusSubmitted, TicketStatusResponsesIn, TicketStatusReadyToDig,
		TicketStatusExpiring, TicketStatusExpired, TicketStatusCancelled:
		return status, true
	}
	return "", false
}

// Ticket is the aggregate for a utility-locate request.
type Ticket struct {
	ID                  string            `json:"id"`
	Status              TicketStatus      `json:"status"`
	Fields              Fields            `json:"fields"`
	RequestedAt         time.Time         `json:"requested_at"`
	EarliestLawfulStart *time.Time        `json:"earliest_lawful_start,omitempty"`
	SubmittedAt         *time.Time        `json:"submitted_at,omitempty"`
	PositiveResponseAt  *time.Time        `json:"positive_response_at,omitempty"`
	ExpiresAt           *time.Time        `json:"expires_at,omitempty"`
	MarkingValidUntil   *time.Time        `json:"marking_valid_until,omitempty"`
	CancelledAt         *time.Time        `json:"cancelled_at,omitempty"`
	SubmissionPacket    *SubmissionPacket `json:"submission_packet,omitempty"`
	AuditLog            []AuditEvent      `json:"audit_log"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// Locked reports whether the packet has been frozen.
func (t *Ticket) Locked() bool {
	return t.SubmissionPacket != nil
}

// Clone returns a deep copy. The packet pointer is shared since a
// frozen packet is never written again.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	out.Fields = t.Fields.Clone()
	out.EarliestLawfulStart = cloneTime(t.EarliestLawfulStart)
	out.SubmittedAt = cloneTime(t.SubmittedAt)
	out.PositiveResponseAt = cloneTime(t.PositiveResponseAt)
	out.ExpiresAt = cloneTime(t.ExpiresAt)
	out.MarkingValidUntil = cloneTime(t.MarkingValidUntil)
	out.CancelledAt = cloneTime(t.CancelledAt)
	out.AuditLog = slices.Clone(t.AuditLog)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Actor identifies who caused an audit event.
type Actor string

const (
	ActorAgent    Actor = "agent"
	ActorOperator Actor = "operator"
	ActorSystem   Actor = "system"
)

// Valid reports whether a is a declared actor.
func (a Actor) Valid() bool {
	switch a {
	case ActorAgent, ActorOperator, ActorSystem:
		return true
	}
	return false
}

// AuditAction captures what happened in an audit entry.
type AuditAction string

const (
	AuditActionCreated           AuditAction = "created"
	AuditActionFieldsUpdated     AuditAction = "fields_updated"
	AuditActionEnrichmentApplied AuditAction = "enrichment_applied"
	AuditActionConfirmed         AuditAction = "confirmed"
	AuditActionSubmitted         AuditAction = "submitted"
	AuditActionResponsesIn       AuditAction = "responses_in"
	AuditActionCancelled         AuditAction = "cancelled"
)

// AuditEvent is an immutable audit trail entry.
type AuditEvent struct {
	Timestamp     time.Time    `json:"timestamp"`
	Actor         Actor        `json:"actor"`
	Action        AuditAction  `json:"action"`
	FromStatus    TicketStatus `json:"from_status,omitempty"`
	ToStatus      TicketStatus `json:"to_status"`
	ChangedFields []FieldName  `json:"changed_fields"`
	Reason        string       `json:"reason,omitempty"`
}
