package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-event-registration/internal/model"
	"go-event-registration/pkg/app_errors"
)

// MemoryEventRepository is an in-memory EventRepository for tests and
// development.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*model.Event
}

func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{
		events: make(map[uuid.UUID]*model.Event),
	}
}

func cloneEvent(ev *model.Event) *model.Event {
	out := *ev
	if ev.Description != nil {
		d := *ev.Description
		out.Description = &d
	}
	if ev.StartTime != nil {
		s := *ev.StartTime
		out.StartTime = &s
	}
	if ev.EndTime != nil {
		e := *ev.EndTime
		out.EndTime = &e
	}
	return &out
}

func (r *MemoryEventRepository) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	ev := cloneEvent(event)
	ev.CreatedAt = now
	ev.UpdatedAt = now
	r.events[ev.ID] = ev

	return cloneEvent(ev), nil
}

func (r *MemoryEventRepository) List(ctx context.Context) ([]*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*model.Event, 0, len(r.events))
	for _, ev := range r.events {
		events = append(events, cloneEvent(ev))
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].StartDate.Before(events[j].StartDate)
	})

	return events, nil
}

func (r *MemoryEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ev, ok := r.events[id]
	if !ok {
		return nil, app_errors.ErrEventNotFound
	}

	return cloneEvent(ev), nil
}

func (r *MemoryEventRepository) Update(ctx context.Context, id uuid.UUID, params model.UpdateEventParams) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[id]
	if !ok {
		return nil, app_errors.ErrEventNotFound
	}

	if params.Title != nil {
		ev.Title = *params.Title
	}
	if params.Description != nil {
		d := *params.Description
		ev.Description = &d
	}
	if params.MaxParticipants != nil {
		ev.MaxParticipants = *params.MaxParticipants
	}
	ev.UpdatedAt = time.Now().UTC()

	return cloneEvent(ev), nil
}

func (r *MemoryEventRepository) SetLifecycleFlag(ctx context.Context, id uuid.UUID, flag model.LifecycleFlag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[id]
	if !ok {
		return app_errors.ErrEventNotFound
	}

	ev.LifecycleFlag = flag
	ev.UpdatedAt = time.Now().UTC()
	return nil
}
