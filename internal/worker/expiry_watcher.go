package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/locate-service/internal/domain"
	"github.com/spec-kit/locate-service/internal/events"
	"github.com/spec-kit/locate-service/internal/service"
)

// TicketLister is the read side of the ticket service.
type TicketLister interface {
	ListTickets(ctx context.Context, filter service.TicketListFilter) ([]service.TicketView, int, error)
}

// ExpiryWatcher announces tickets entering the expiring window. It only
// reads tickets; expiring is a display status and never stored.
type ExpiryWatcher struct {
	tickets    TicketLister
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	notified map[string]time.Time
}

// NewExpiryWatcher builds a watcher.
func NewExpiryWatcher(tickets TicketLister, dispatcher events.Dispatcher, logger *zap.Logger, now func() time.Time) *ExpiryWatcher {
	if now == nil {
		now = time.Now
	}
	return &ExpiryWatcher{
		tickets:    tickets,
		dispatcher: dispatcher,
		logger:     logger,
		now:        now,
		notified:   make(map[string]time.Time),
	}
}

// Run scans once immediately and then every interval until ctx ends.
func (w *ExpiryWatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.Scan(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("expiry scan failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Scan publishes ticket_expiring for each expiring ticket not yet
// announced by this process and returns how many it published.
func (w *ExpiryWatcher) Scan(ctx context.Context) (int, error) {
	status := domain.TicketStatusExpiring
	views, _, err := w.tickets.ListTickets(ctx, service.TicketListFilter{Status: &status})
	if err != nil {
		return 0, err
	}

	published := 0
	for _, v := range views {
		t := v.Ticket
		if t.ExpiresAt == nil || !w.markNotified(t.ID, *t.ExpiresAt) {
			continue
		}
		days := 0
		if v.DaysUntilExpiration != nil {
			days = *v.DaysUntilExpiration
		}
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketExpiring,
			TicketID:  t.ID,
			Actor:     domain.ActorSystem,
			Timestamp: w.now(),
			Payload: events.TicketExpiringPayload{
				ExpiresAt:     *t.ExpiresAt,
				DisplayStatus: v.DisplayStatus,
				DaysRemaining: days,
			},
		}
		if err := w.dispatcher.Publish(ctx, event); err != nil {
			w.logger.Warn("expiring notification failed", zap.String("ticket_id", t.ID), zap.Error(err))
		}
		published++
	}
	if published > 0 {
		w.logger.Info("expiring tickets announced", zap.Int("count", published))
	}
	return published, nil
}

// markNotified records the announcement keyed by expiry so a ticket
// whose expiry is re-derived is announced again.
func (w *ExpiryWatcher) markNotified(id string, expiresAt time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.notified[id]; ok && prev.Equal(expiresAt) {
		return false
	}
	w.notified[id] = expiresAt
	return true
}
