package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/locate-service/internal/domain"
	"github.com/spec-kit/locate-service/internal/events"
	"github.com/spec-kit/locate-service/internal/geometry"
	"github.com/spec-kit/locate-service/internal/lifecycle"
	"github.com/spec-kit/locate-service/internal/observability"
	"github.com/spec-kit/locate-service/internal/repository"
)

// TicketService coordinates ticket workflows: it loads a ticket, runs
// one lifecycle operation, saves the result and publishes events.
type TicketService struct {
	tickets    repository.TicketRepository
	machine    *lifecycle.Machine
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
	locks      *ticketLocks
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	Machine     *lifecycle.Machine
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Clock       func() time.Time
	IDGenerator func() string
}

// TicketView is a ticket as read at a point in time.
type TicketView struct {
	Ticket              *domain.Ticket
	Gaps                []domain.ValidationGap
	DisplayStatus       domain.TicketStatus
	AllowedActions      []string
	DaysUntilStart      *int
	DaysUntilExpiration *int
}

// TicketListFilter selects tickets by display status with pagination.
type TicketListFilter struct {
	Status *domain.TicketStatus
	Limit  int
	Offset int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		machine:    deps.Machine,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Clock,
		newID:      deps.IDGenerator,
		locks:      newTicketLocks(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// ValidateSnapshot runs the rule engine over a snapshot that is not
// stored anywhere.
func (s *TicketService) ValidateSnapshot(fields domain.Fields) ([]domain.ValidationGap, error) {
	if err := s.machine.CheckInput(fields); err != nil {
		return nil, err
	}
	return s.machine.Validate(fields), nil
}

// CreateTicket opens a ticket from the first extraction payload.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, fields domain.Fields) (*TicketView, error) {
	now := s.now()
	ticket, gaps, err := s.machine.Create(s.newID(), now, fields, actor)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("status", string(ticket.Status)),
		zap.String("actor", string(actor)),
		zap.Int("required_gaps", domain.CountBySeverity(gaps)[domain.SeverityRequired]))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			Status:              ticket.Status,
			Company:             ticket.Fields.Company.OrZero(),
			RequiredGaps:        domain.CountBySeverity(gaps)[domain.SeverityRequired],
			EarliestLawfulStart: ticket.EarliestLawfulStart,
		},
	})
	return s.view(ticket, now), nil
}

// GetTicket returns the ticket with its current gaps and countdowns.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*TicketView, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ticket, s.now()), nil
}

// ListTickets returns one page of tickets plus the total match count.
// The status filter applies to the display status, so expiring and
// expired can be queried even though they are never stored.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]TicketView, int, error) {
	var repoFilter repository.TicketFilter
	if filter.Status != nil {
		repoFilter.Statuses = []domain.TicketStatus{storedStatus(*filter.Status)}
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	matched := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		v := s.view(t, now)
		if filter.Status != nil && v.DisplayStatus != *filter.Status {
			continue
		}
		matched = append(matched, *v)
	}

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

// UpdateTicket merges a partial field delta.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, actor domain.Actor, delta domain.Fields) (*TicketView, error) {
	return s.mutate(ctx, id, actor, func(t *domain.Ticket, now time.Time) (*domain.Ticket, error) {
		next, _, err := s.machine.ApplyUpdate(t, delta, actor, now)
		return next, err
	})
}

// ApplyEnrichment folds a resolved geocoding/parcel result into the
// ticket on behalf of the system actor.
func (s *TicketService) ApplyEnrichment(ctx context.Context, id string, result geometry.Result) (*TicketView, error) {
	return s.mutate(ctx, id, domain.ActorSystem, func(t *domain.Ticket, now time.Time) (*domain.Ticket, error) {
		next, _, err := s.machine.ApplyEnrichment(t, result, now)
		return next, err
	})
}

// ConfirmTicket freezes the submission packet.
func (s *TicketService) ConfirmTicket(ctx context.Context, id string, actor domain.Actor) (*TicketView, error) {
	return s.mutate(ctx, id, actor, func(t *domain.Ticket, now time.Time) (*domain.Ticket, error) {
		return s.machine.Confirm(t, actor, now)
	})
}

// MarkSubmitted records portal submission.
func (s *TicketService) MarkSubmitted(ctx context.Context, id string, actor domain.Actor) (*TicketView, error) {
	return s.mutate(ctx, id, actor, func(t *domain.Ticket, now time.Time) (*domain.Ticket, error) {
		return s.machine.MarkSubmitted(t, actor, now)
	})
}

// MarkResponsesIn records the positive response and starts the
// validity clock. A nil responseTime means now.
func (s *TicketService) MarkResponsesIn(ctx context.Context, id string, actor domain.Actor, responseTime *time.Time) (*TicketView, error) {
	return s.mutate(ctx, id, actor, func(t *domain.Ticket, now time.Time) (*domain.Ticket, error) {
		return s.machine.MarkResponsesIn(t, responseTime, actor, now)
	})
}

// CancelTicket terminates the ticket.
func (s *TicketService) CancelTicket(ctx context.Context, id string, actor domain.Actor, reason string) (*TicketView, error) {
	return s.mutate(ctx, id, actor, func(t *domain.Ticket, now time.Time) (*domain.Ticket, error) {
		return s.machine.Cancel(t, reason, actor, now)
	})
}

// ListAudit returns the append-only audit log.
func (s *TicketService) ListAudit(ctx context.Context, id string) ([]domain.AuditEvent, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.AuditLog == nil {
		return []domain.AuditEvent{}, nil
	}
	return ticket.AuditLog, nil
}

// GetPacket returns the frozen submission packet.
func (s *TicketService) GetPacket(ctx context.Context, id string) (*domain.SubmissionPacket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.SubmissionPacket == nil {
		return nil, &domain.NotFoundError{Resource: "submission packet", ID: id}
	}
	return ticket.SubmissionPacket, nil
}

func (s *TicketService) mutate(ctx context.Context, id string, actor domain.Actor, apply func(*domain.Ticket, time.Time) (*domain.Ticket, error)) (*TicketView, error) {
	unlock, err := s.locks.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.tickets.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	next, err := apply(current, now)
	if err != nil {
		s.logger.Debug("ticket operation rejected", zap.String("ticket_id", id), zap.Error(err))
		return nil, err
	}
	if err := s.tickets.Save(ctx, next); err != nil {
		return nil, err
	}

	s.afterMutation(ctx, current, next, actor)
	return s.view(next, now), nil
}

func (s *TicketService) afterMutation(ctx context.Context, prev, next *domain.Ticket, actor domain.Actor) {
	last := next.AuditLog[len(next.AuditLog)-1]

	switch last.Action {
	case domain.AuditActionFieldsUpdated, domain.AuditActionEnrichmentApplied:
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: next.ID,
			Actor:    actor,
			Payload: events.TicketUpdatedPayload{
				Action:        last.Action,
				ChangedFields: last.ChangedFields,
				RequiredGaps:  domain.CountBySeverity(s.machine.Validate(next.Fields))[domain.SeverityRequired],
			},
		})
	case domain.AuditActionConfirmed:
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketConfirmed,
			TicketID: next.ID,
			Actor:    actor,
			Payload: events.TicketConfirmedPayload{
				PacketDigest:        next.SubmissionPacket.Digest,
				EarliestLawfulStart: next.SubmissionPacket.Dates.EarliestLawfulStart,
			},
		})
	case domain.AuditActionCancelled:
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketCancelled,
			TicketID: next.ID,
			Actor:    actor,
			Payload:  events.TicketCancelledPayload{PreviousStatus: prev.Status, Reason: last.Reason},
		})
	}

	if prev.Status == next.Status {
		return
	}
	s.metrics.RecordTransition(string(prev.Status), string(next.Status))
	s.logger.Info("ticket transition",
		zap.String("ticket_id", next.ID),
		zap.String("from", string(prev.Status)),
		zap.String("to", string(next.Status)),
		zap.String("actor", string(actor)),
		zap.String("action", string(last.Action)))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: next.ID,
		Actor:    actor,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: prev.Status,
			NewStatus: next.Status,
			Reason:    last.Reason,
		},
	})
}

func (s *TicketService) view(t *domain.Ticket, now time.Time) *TicketView {
	v := &TicketView{
		Ticket:         t,
		Gaps:           s.machine.Validate(t.Fields),
		DisplayStatus:  s.machine.ComputeDisplayStatus(t, now),
		AllowedActions: s.machine.AllowedActions(t, now),
	}
	d := s.machine.Deriver()
	if t.EarliestLawfulStart != nil {
		days := d.DaysUntil(*t.EarliestLawfulStart, now)
		v.DaysUntilStart = &days
	}
	if t.ExpiresAt != nil {
		days := d.DaysUntil(*t.ExpiresAt, now)
		v.DaysUntilExpiration = &days
	}
	return v
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func storedStatus(display domain.TicketStatus) domain.TicketStatus {
	switch display {
	case domain.TicketStatusExpiring, domain.TicketStatusExpired:
		return domain.TicketStatusReadyToDig
	default:
		return display
	}
}
