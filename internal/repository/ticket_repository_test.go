package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/locate-service/internal/domain"
	apperrors "github.com/spec-kit/locate-service/pkg/util/errorutil"
)

var created = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

func sampleTicket(id string, status domain.TicketStatus, offset time.Duration) *domain.Ticket {
	start := created.AddDate(0, 0, 4)
	return &domain.Ticket{
		ID:     id,
		Status: status,
		Fields: domain.Fields{
			Company: domain.Set("ABC Co"),
			Phone:   domain.Null[string](),
			GPS:     domain.Set(domain.Coordinate{Lat: 30.26, Lng: -97.75}),
		},
		RequestedAt:         created.Add(offset),
		EarliestLawfulStart: &start,
		AuditLog: []domain.AuditEvent{{
			Timestamp:     created.Add(offset),
			Actor:         domain.ActorAgent,
			Action:        domain.AuditActionCreated,
			ToStatus:      status,
			ChangedFields: []domain.FieldName{domain.FieldCompany},
		}},
		CreatedAt: created.Add(offset),
		UpdatedAt: created.Add(offset),
	}
}

func newFileRepo(t *testing.T) TicketRepository {
	t.Helper()
	repo, err := NewFileTicketRepository(t.TempDir())
	require.NoError(t, err)
	return repo
}

func TestFileRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newFileRepo(t)
	ticket := sampleTicket("t1", domain.TicketStatusDraft, 0)
	require.NoError(t, repo.Create(ctx, ticket))

	loaded, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "ABC Co", loaded.Fields.Company.OrZero())
	assert.True(t, loaded.Fields.Phone.IsNull())
	assert.True(t, loaded.Fields.Email.IsZero())
	assert.True(t, loaded.EarliestLawfulStart.Equal(*ticket.EarliestLawfulStart))
	require.Len(t, loaded.AuditLog, 1)
	assert.Equal(t, domain.AuditActionCreated, loaded.AuditLog[0].Action)
}

func TestFileRepository_CreateTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	repo := newFileRepo(t)
	require.NoError(t, repo.Create(ctx, sampleTicket("t1", domain.TicketStatusDraft, 0)))

	err := repo.Create(ctx, sampleTicket("t1", domain.TicketStatusDraft, 0))
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestFileRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newFileRepo(t)

	var notFound *domain.NotFoundError
	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorAs(t, err, &notFound)

	err = repo.Save(ctx, sampleTicket("missing", domain.TicketStatusDraft, 0))
	assert.ErrorAs(t, err, &notFound)

	_, err = repo.GetByID(ctx, "../etc/passwd")
	assert.ErrorAs(t, err, &notFound)
}

func TestFileRepository_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := newFileRepo(t)
	ticket := sampleTicket("t1", domain.TicketStatusDraft, 0)
	require.NoError(t, repo.Create(ctx, ticket))

	ticket.Status = domain.TicketStatusCancelled
	require.NoError(t, repo.Save(ctx, ticket))

	loaded, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCancelled, loaded.Status)
}

func TestFileRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := newFileRepo(t)
	require.NoError(t, repo.Create(ctx, sampleTicket("a", domain.TicketStatusDraft, 0)))
	require.NoError(t, repo.Create(ctx, sampleTicket("b", domain.TicketStatusReadyToDig, time.Hour)))
	require.NoError(t, repo.Create(ctx, sampleTicket("c", domain.TicketStatusDraft, 2*time.Hour)))

	all, err := repo.List(ctx, TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	drafts, err := repo.List(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusDraft}})
	require.NoError(t, err)
	assert.Len(t, drafts, 2)
}

type fakeCache struct {
	items   map[string]*domain.Ticket
	gets    int
	deletes int
	fail    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string]*domain.Ticket{}}
}

func (c *fakeCache) Get(_ context.Context, id string) (*domain.Ticket, bool, error) {
	c.gets++
	if c.fail != nil {
		return nil, false, c.fail
	}
	t, ok := c.items[id]
	return t, ok, nil
}

func (c *fakeCache) Set(_ context.Context, t *domain.Ticket) error {
	if c.fail != nil {
		return c.fail
	}
	c.items[t.ID] = t
	return nil
}

func (c *fakeCache) Delete(_ context.Context, id string) error {
	c.deletes++
	delete(c.items, id)
	return c.fail
}

func TestCachedRepository_ReadThroughAndEvict(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	repo := NewCachedTicketRepository(newFileRepo(t), cache, zap.NewNop())

	ticket := sampleTicket("t1", domain.TicketStatusDraft, 0)
	require.NoError(t, repo.Create(ctx, ticket))
	assert.Equal(t, 1, cache.deletes)

	_, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Contains(t, cache.items, "t1")

	ticket.Status = domain.TicketStatusCancelled
	require.NoError(t, repo.Save(ctx, ticket))
	assert.NotContains(t, cache.items, "t1")

	loaded, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCancelled, loaded.Status)
}

func TestCachedRepository_CacheFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	repo := NewCachedTicketRepository(newFileRepo(t), cache, zap.NewNop())
	require.NoError(t, repo.Create(ctx, sampleTicket("t1", domain.TicketStatusDraft, 0)))

	cache.fail = errors.New("connection refused")
	loaded, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", loaded.ID)

	require.NoError(t, repo.Save(ctx, loaded))
}

// pausingRepo holds GetByID after the durable read until released.
type pausingRepo struct {
	TicketRepository
	read    chan struct{}
	release chan struct{}
}

func (r *pausingRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := r.TicketRepository.GetByID(ctx, id)
	close(r.read)
	<-r.release
	return ticket, err
}

func advancedTicket(id string) *domain.Ticket {
	ticket := sampleTicket(id, domain.TicketStatusValidatedPendingConfirm, 0)
	ticket.AuditLog = append(ticket.AuditLog, domain.AuditEvent{
		Timestamp:     created.Add(time.Minute),
		Actor:         domain.ActorAgent,
		Action:        domain.AuditActionFieldsUpdated,
		FromStatus:    domain.TicketStatusDraft,
		ToStatus:      domain.TicketStatusValidatedPendingConfirm,
		ChangedFields: []domain.FieldName{domain.FieldPhone},
	})
	return ticket
}

func TestCachedRepository_ReadRacingWriteDoesNotCacheStaleCopy(t *testing.T) {
	ctx := context.Background()
	files := newFileRepo(t)
	require.NoError(t, files.Create(ctx, sampleTicket("t1", domain.TicketStatusDraft, 0)))

	cache := newFakeCache()
	slow := &pausingRepo{TicketRepository: files, read: make(chan struct{}), release: make(chan struct{})}
	repo := NewCachedTicketRepository(slow, cache, zap.NewNop())

	done := make(chan *domain.Ticket)
	go func() {
		stale, err := repo.GetByID(ctx, "t1")
		assert.NoError(t, err)
		done <- stale
	}()

	<-slow.read
	require.NoError(t, repo.Save(ctx, advancedTicket("t1")))
	close(slow.release)
	stale := <-done
	assert.Equal(t, domain.TicketStatusDraft, stale.Status)

	assert.NotContains(t, cache.items, "t1")

	loaded, err := NewCachedTicketRepository(files, cache, zap.NewNop()).GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusValidatedPendingConfirm, loaded.Status)
	assert.Len(t, loaded.AuditLog, 2)
}

func TestCachedRepository_GetForUpdateBypassesCache(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	repo := NewCachedTicketRepository(newFileRepo(t), cache, zap.NewNop())
	require.NoError(t, repo.Create(ctx, advancedTicket("t1")))

	cache.items["t1"] = sampleTicket("t1", domain.TicketStatusDraft, 0)
	gets := cache.gets

	loaded, err := repo.GetForUpdate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusValidatedPendingConfirm, loaded.Status)
	assert.Len(t, loaded.AuditLog, 2)
	assert.Equal(t, gets, cache.gets)
}
