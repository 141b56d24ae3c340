// Package lifecycle drives a locate ticket through its status graph.
//
// Every operation takes the ticket by pointer and returns a new ticket;
// the argument is never modified, so a rejected operation leaves the
// caller's copy exactly as it was. The clock is always passed in.
package lifecycle

import (
	"time"

	"github.com/spec-kit/locate-service/internal/compliance"
	"github.com/spec-kit/locate-service/internal/domain"
	"github.com/spec-kit/locate-service/internal/geometry"
	"github.com/spec-kit/locate-service/internal/packet"
	"github.com/spec-kit/locate-service/internal/validation"
)

// Event names an operation in the transition table.
type Event string

const (
	EventUpdate          Event = "update"
	EventConfirm         Event = "confirm"
	EventMarkSubmitted   Event = "mark_submitted"
	EventMarkResponsesIn Event = "mark_responses_in"
	EventCancel          Event = "cancel"
)

var allowedEvents = map[domain.TicketStatus][]Event{
	domain.TicketStatusDraft:                   {EventUpdate, EventCancel},
	domain.TicketStatusValidatedPendingConfirm: {EventUpdate, EventConfirm, EventCancel},
	domain.TicketStatusReady:                   {EventMarkSubmitted, EventCancel},
	domain.TicketStatusSubmitted:               {EventMarkResponsesIn, EventCancel},
	domain.TicketStatusReadyToDig:              {EventCancel},
	domain.TicketStatusExpiring:                {EventCancel},
	domain.TicketStatusExpired:                 {},
	domain.TicketStatusCancelled:               {},
}

// Machine applies lifecycle operations. It is stateless apart from its
// collaborators and safe for concurrent use; callers serialize writes
// per ticket.
type Machine struct {
	validator *validation.Engine
	deriver   *compliance.Deriver
}

// NewMachine wires the rule engine and date deriver.
func NewMachine(validator *validation.Engine, deriver *compliance.Deriver) *Machine {
	return &Machine{validator: validator, deriver: deriver}
}

// Validate returns the gaps for a snapshot.
func (m *Machine) Validate(f domain.Fields) []domain.ValidationGap {
	return m.validator.Validate(f)
}

// CheckInput rejects malformed field values.
func (m *Machine) CheckInput(f domain.Fields) error {
	return m.validator.CheckInput(f)
}

// Deriver exposes the compliance date deriver.
func (m *Machine) Deriver() *compliance.Deriver {
	return m.deriver
}

// Create starts a ticket from the first extraction payload. The result
// is draft or validated_pending_confirm depending on its gaps.
func (m *Machine) Create(id string, requestedAt time.Time, initial domain.Fields, actor domain.Actor) (*domain.Ticket, []domain.ValidationGap, error) {
	if err := m.validator.CheckInput(initial); err != nil {
		return nil, nil, err
	}
	fields, changed := domain.Fields{}.Merge(initial)
	gaps := m.validator.Validate(fields)
	start := m.deriver.DeriveStartDate(requestedAt)

	t := &domain.Ticket{
		ID:                  id,
		Status:              statusForGaps(gaps),
		Fields:              fields,
		RequestedAt:         requestedAt,
		EarliestLawfulStart: &start,
		CreatedAt:           requestedAt,
		UpdatedAt:           requestedAt,
	}
	appendAudit(t, domain.AuditEvent{
		Timestamp:     requestedAt,
		Actor:         actor,
		Action:        domain.AuditActionCreated,
		ToStatus:      t.Status,
		ChangedFields: nonNil(changed),
	})
	return t, gaps, nil
}

// ApplyUpdate merges a partial field delta and recomputes gaps. The
// status advances to validated_pending_confirm iff no required gap
// remains, and falls back to draft when one reappears.
func (m *Machine) ApplyUpdate(t *domain.Ticket, delta domain.Fields, actor domain.Actor, now time.Time) (*domain.Ticket, []domain.ValidationGap, error) {
	return m.mergeFields(t, delta, actor, domain.AuditActionFieldsUpdated, now)
}

// ApplyEnrichment folds a geocoding/parcel result into the geometry
// field through the same path as a field update.
func (m *Machine) ApplyEnrichment(t *domain.Ticket, result geometry.Result, now time.Time) (*domain.Ticket, []domain.ValidationGap, error) {
	return m.mergeFields(t, geometry.Delta(result), domain.ActorSystem, domain.AuditActionEnrichmentApplied, now)
}

func (m *Machine) mergeFields(t *domain.Ticket, delta domain.Fields, actor domain.Actor, action domain.AuditAction, now time.Time) (*domain.Ticket, []domain.ValidationGap, error) {
	if err := m.guardEvent(t, EventUpdate, now); err != nil {
		return nil, nil, err
	}
	if err := m.validator.CheckInput(delta); err != nil {
		return nil, nil, err
	}

	next := t.Clone()
	fields, changed := next.Fields.Merge(delta)
	gaps := m.validator.Validate(fields)

	from := next.Status
	next.Fields = fields
	next.Status = statusForGaps(gaps)
	next.UpdatedAt = now
	appendAudit(next, domain.AuditEvent{
		Timestamp:     now,
		Actor:         actor,
		Action:        action,
		FromStatus:    from,
		ToStatus:      next.Status,
		ChangedFields: nonNil(changed),
	})
	return next, gaps, nil
}

// Confirm freezes the submission packet and locks the ticket. It needs
// zero required gaps and an earliest lawful start that is not already
// behind today.
func (m *Machine) Confirm(t *domain.Ticket, actor domain.Actor, now time.Time) (*domain.Ticket, error) {
	if err := m.guardEvent(t, EventConfirm, now); err != nil {
		return nil, err
	}
	gaps := m.validator.Validate(t.Fields)
	if domain.HasRequired(gaps) {
		return nil, transitionError(t, EventConfirm, domain.GuardRequiredGaps, gaps)
	}
	if t.EarliestLawfulStart == nil {
		return nil, transitionError(t, EventConfirm, domain.GuardStartDateUndefined, gaps)
	}
	if m.deriver.StartInPast(*t.EarliestLawfulStart, now) {
		return nil, transitionError(t, EventConfirm, domain.GuardStartDateInPast, gaps)
	}

	next := t.Clone()
	p, err := packet.Build(next, now)
	if err != nil {
		return nil, err
	}
	next.SubmissionPacket = p
	return m.transition(next, domain.TicketStatusReady, actor, domain.AuditActionConfirmed, "", now), nil
}

// MarkSubmitted records that the packet went to the portal.
func (m *Machine) MarkSubmitted(t *domain.Ticket, actor domain.Actor, now time.Time) (*domain.Ticket, error) {
	if err := m.guardEvent(t, EventMarkSubmitted, now); err != nil {
		return nil, err
	}
	next := t.Clone()
	submitted := now
	next.SubmittedAt = &submitted
	return m.transition(next, domain.TicketStatusSubmitted, actor, domain.AuditActionSubmitted, "", now), nil
}

// MarkResponsesIn records the positive response time (now when nil),
// derives expiration and moves the ticket to ready_to_dig.
func (m *Machine) MarkResponsesIn(t *domain.Ticket, responseTime *time.Time, actor domain.Actor, now time.Time) (*domain.Ticket, error) {
	if err := m.guardEvent(t, EventMarkResponsesIn, now); err != nil {
		return nil, err
	}
	responded := now
	if responseTime != nil {
		responded = *responseTime
	}
	exp := m.deriver.DeriveExpiration(responded)

	next := t.Clone()
	next.PositiveResponseAt = &responded
	next.ExpiresAt = &exp.ExpiresAt
	next.MarkingValidUntil = &exp.MarkingValidUntil
	return m.transition(next, domain.TicketStatusReadyToDig, actor, domain.AuditActionResponsesIn, "", now), nil
}

// Cancel terminates the ticket from any status except expired. A frozen
// packet survives cancellation as the historical record.
func (m *Machine) Cancel(t *domain.Ticket, reason string, actor domain.Actor, now time.Time) (*domain.Ticket, error) {
	if err := m.guardEvent(t, EventCancel, now); err != nil {
		return nil, err
	}
	next := t.Clone()
	cancelled := now
	next.CancelledAt = &cancelled
	return m.transition(next, domain.TicketStatusCancelled, actor, domain.AuditActionCancelled, reason, now), nil
}

// ComputeDisplayStatus layers the time-based expiring/expired states on
// top of the stored status. It never modifies the ticket.
func (m *Machine) ComputeDisplayStatus(t *domain.Ticket, now time.Time) domain.TicketStatus {
	if t.Status != domain.TicketStatusReadyToDig || t.ExpiresAt == nil {
		return t.Status
	}
	switch {
	case m.deriver.Expired(*t.ExpiresAt, now):
		return domain.TicketStatusExpired
	case m.deriver.Expiring(*t.ExpiresAt, now):
		return domain.TicketStatusExpiring
	default:
		return t.Status
	}
}

// AllowedActions lists the events the ticket accepts at now.
func (m *Machine) AllowedActions(t *domain.Ticket, now time.Time) []string {
	events := allowedEvents[m.ComputeDisplayStatus(t, now)]
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, string(e))
	}
	return out
}

func (m *Machine) guardEvent(t *domain.Ticket, event Event, now time.Time) error {
	status := m.ComputeDisplayStatus(t, now)
	for _, allowed := range allowedEvents[status] {
		if allowed == event {
			return nil
		}
	}
	if event == EventUpdate && t.Locked() {
		return &domain.ConflictError{Status: status, AllowedActions: m.AllowedActions(t, now)}
	}
	return &domain.TransitionError{
		Guard:  domain.GuardInvalidTransition,
		Status: status,
		Event:  string(event),
		Gaps:   nonNilGaps(m.validator.Validate(t.Fields)),
	}
}

func (m *Machine) transition(t *domain.Ticket, to domain.TicketStatus, actor domain.Actor, action domain.AuditAction, reason string, now time.Time) *domain.Ticket {
	from := t.Status
	t.Status = to
	t.UpdatedAt = now
	appendAudit(t, domain.AuditEvent{
		Timestamp:     now,
		Actor:         actor,
		Action:        action,
		FromStatus:    from,
		ToStatus:      to,
		ChangedFields: []domain.FieldName{},
		Reason:        reason,
	})
	return t
}

func transitionError(t *domain.Ticket, event Event, guard domain.Guard, gaps []domain.ValidationGap) error {
	return &domain.TransitionError{Guard: guard, Status: t.Status, Event: string(event), Gaps: nonNilGaps(gaps)}
}

func nonNilGaps(gaps []domain.ValidationGap) []domain.ValidationGap {
	if gaps == nil {
		return []domain.ValidationGap{}
	}
	return gaps
}

func statusForGaps(gaps []domain.ValidationGap) domain.TicketStatus {
	if domain.HasRequired(gaps) {
		return domain.TicketStatusDraft
	}
	return domain.TicketStatusValidatedPendingConfirm
}

func appendAudit(t *domain.Ticket, event domain.AuditEvent) {
	t.AuditLog = append(t.AuditLog, event)
}

func nonNil(names []domain.FieldName) []domain.FieldName {
	if names == nil {
		return []domain.FieldName{}
	}
	return names
}
