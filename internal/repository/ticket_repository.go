package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/spec-kit/locate-service/internal/domain"
	apperrors "github.com/spec-kit/locate-service/pkg/util/errorutil"
)

// TicketFilter selects tickets by stored status. An empty filter
// matches every ticket.
type TicketFilter struct {
	Statuses []domain.TicketStatus
}

func (f TicketFilter) matches(t *domain.Ticket) bool {
	return len(f.Statuses) == 0 || slices.Contains(f.Statuses, t.Status)
}

// TicketRepository encapsulates ticket persistence. The audit log and
// frozen packet travel inside the ticket document.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Save(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetForUpdate loads the durable copy, bypassing any cache. Callers
	// mutating a ticket must load through it.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]*domain.Ticket, error)
}

type fileTicketRepository struct {
	dir string
}

// NewFileTicketRepository stores one JSON document per ticket under
// <dataDir>/tickets. Writes go through a temp file and rename so a
// reader never observes a partial document.
func NewFileTicketRepository(dataDir string) (TicketRepository, error) {
	dir := filepath.Join(dataDir, "tickets")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ticket dir: %w", err)
	}
	return &fileTicketRepository{dir: dir}, nil
}

func (r *fileTicketRepository) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", &domain.NotFoundError{Resource: "ticket", ID: id}
	}
	return filepath.Join(r.dir, id+".json"), nil
}

func (r *fileTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	path, err := r.path(ticket.ID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return apperrors.NewConflict("ticket already exists", map[string]any{"id": ticket.ID})
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat ticket %s: %w", ticket.ID, err)
	}
	return r.write(ctx, path, ticket)
}

func (r *fileTicketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	path, err := r.path(ticket.ID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &domain.NotFoundError{Resource: "ticket", ID: ticket.ID}
	}
	return r.write(ctx, path, ticket)
}

func (r *fileTicketRepository) write(ctx context.Context, path string, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(ticket, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ticket %s: %w", ticket.ID, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("write ticket %s: %w", ticket.ID, err)
	}
	return nil
}

func (r *fileTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := r.path(id)
	if err != nil {
		return nil, err
	}
	return readTicket(path, id)
}

func (r *fileTicketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *fileTicketRepository) List(ctx context.Context, filter TicketFilter) ([]*domain.Ticket, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	result := make([]*domain.Ticket, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		ticket, err := readTicket(filepath.Join(r.dir, name), id)
		if err != nil {
			var notFound *domain.NotFoundError
			if errors.As(err, &notFound) {
				continue
			}
			return nil, err
		}
		if filter.matches(ticket) {
			result = append(result, ticket)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func readTicket(path, id string) (*domain.Ticket, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.NotFoundError{Resource: "ticket", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("read ticket %s: %w", id, err)
	}
	var ticket domain.Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return nil, fmt.Errorf("decode ticket %s: %w", id, err)
	}
	return &ticket, nil
}
