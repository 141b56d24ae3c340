package service

import (
	"context"
	"sync"
)

// ticketLocks serializes load/transition/save per ticket id. Lock
// acquisition honours context cancellation.
type ticketLocks struct {
	mu    sync.Mutex
	locks map[string]*ticketLock
}

type ticketLock struct {
	ch   chan struct{}
	refs int
}

func newTicketLocks() *ticketLocks {
	return &ticketLocks{locks: make(map[string]*ticketLock)}
}

func (k *ticketLocks) lock(ctx context.Context, id string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &ticketLock{ch: make(chan struct{}, 1)}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			k.release(id, l)
		}, nil
	case <-ctx.Done():
		k.release(id, l)
		return nil, ctx.Err()
	}
}

func (k *ticketLocks) release(id string, l *ticketLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
}

func (k *ticketLocks) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
