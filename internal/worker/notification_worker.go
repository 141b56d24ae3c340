package worker

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/locate-service/internal/service"
)

// NotificationWorker owns the background side of ticket notifications:
// the dispatcher handlers and the periodic expiry scan.
type NotificationWorker struct {
	notifications *service.NotificationService
	watcher       *ExpiryWatcher
	interval      time.Duration

	wg sync.WaitGroup
}

// NewNotificationWorker builds a worker. Either collaborator may be nil.
func NewNotificationWorker(notifications *service.NotificationService, watcher *ExpiryWatcher, interval time.Duration) *NotificationWorker {
	return &NotificationWorker{
		notifications: notifications,
		watcher:       watcher,
		interval:      interval,
	}
}

// Start registers notification handlers and launches the expiry scan
// loop, which stops when ctx ends.
func (w *NotificationWorker) Start(ctx context.Context) {
	if w.notifications != nil {
		w.notifications.RegisterHandlers()
	}
	if w.watcher == nil || w.interval <= 0 {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.watcher.Run(ctx, w.interval)
	}()
}

// Wait blocks until the scan loop has returned.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}
