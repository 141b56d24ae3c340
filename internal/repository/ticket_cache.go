package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/locate-service/internal/domain"
)

// TicketCache is a best-effort ticket lookaside cache.
type TicketCache interface {
	Get(ctx context.Context, id string) (*domain.Ticket, bool, error)
	Set(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
}

type redisTicketCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTicketCache stores tickets as JSON under ticket:<id>.
func NewRedisTicketCache(client *redis.Client, ttl time.Duration) TicketCache {
	return &redisTicketCache{client: client, ttl: ttl}
}

func cacheKey(id string) string {
	return "ticket:" + id
}

func (c *redisTicketCache) Get(ctx context.Context, id string) (*domain.Ticket, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ticket domain.Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return nil, false, err
	}
	return &ticket, true, nil
}

func (c *redisTicketCache) Set(ctx context.Context, ticket *domain.Ticket) error {
	raw, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(ticket.ID), raw, c.ttl).Err()
}

func (c *redisTicketCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, cacheKey(id)).Err()
}

type cachedTicketRepository struct {
	inner  TicketRepository
	cache  TicketCache
	logger *zap.Logger

	// fillMu orders cache fills against write generations. A fill whose
	// read started before a write completed is dropped.
	fillMu     sync.Mutex
	generation uint64
}

// NewCachedTicketRepository puts a read-through cache in front of
// inner. Writes go to inner first and then evict the cached copy; cache
// failures are logged and never fail the call. GetForUpdate always reads
// inner.
func NewCachedTicketRepository(inner TicketRepository, cache TicketCache, logger *zap.Logger) TicketRepository {
	return &cachedTicketRepository{inner: inner, cache: cache, logger: logger}
}

func (r *cachedTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := r.inner.Create(ctx, ticket); err != nil {
		return err
	}
	r.bump()
	r.evict(ctx, ticket.ID)
	return nil
}

func (r *cachedTicketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	if err := r.inner.Save(ctx, ticket); err != nil {
		return err
	}
	r.bump()
	r.evict(ctx, ticket.ID)
	return nil
}

func (r *cachedTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, ok, err := r.cache.Get(ctx, id)
	if err != nil {
		r.logger.Warn("ticket cache read failed", zap.String("ticket_id", id), zap.Error(err))
	}
	if ok {
		return ticket, nil
	}

	gen := r.currentGeneration()
	ticket, err = r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, ticket, gen)
	return ticket, nil
}

func (r *cachedTicketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.inner.GetForUpdate(ctx, id)
}

func (r *cachedTicketRepository) currentGeneration() uint64 {
	r.fillMu.Lock()
	defer r.fillMu.Unlock()
	return r.generation
}

func (r *cachedTicketRepository) bump() {
	r.fillMu.Lock()
	r.generation++
	r.fillMu.Unlock()
}

// fill caches ticket unless a write landed since gen was taken. Holding
// fillMu across Set means a concurrent write either bumps first, which
// skips the fill, or evicts after it.
func (r *cachedTicketRepository) fill(ctx context.Context, ticket *domain.Ticket, gen uint64) {
	r.fillMu.Lock()
	defer r.fillMu.Unlock()
	if r.generation != gen {
		return
	}
	if err := r.cache.Set(ctx, ticket); err != nil {
		r.logger.Warn("ticket cache fill failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (r *cachedTicketRepository) List(ctx context.Context, filter TicketFilter) ([]*domain.Ticket, error) {
	return r.inner.List(ctx, filter)
}

func (r *cachedTicketRepository) evict(ctx context.Context, id string) {
	if err := r.cache.Delete(ctx, id); err != nil {
		r.logger.Warn("ticket cache evict failed", zap.String("ticket_id", id), zap.Error(err))
	}
}
