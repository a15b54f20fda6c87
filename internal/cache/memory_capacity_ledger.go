package cache

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"go-event-registration/pkg/app_errors"
)

type memoryCapacityEntry struct {
	mu        sync.Mutex
	max       int
	confirmed int
}

// MemoryCapacityLedger is an in-process CapacityLedger for tests and
// development. Each event has its own mutex so admissions for different
// events never contend.
type MemoryCapacityLedger struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*memoryCapacityEntry
}

func NewMemoryCapacityLedger() *MemoryCapacityLedger {
	return &MemoryCapacityLedger{
		entries: make(map[uuid.UUID]*memoryCapacityEntry),
	}
}

func (l *MemoryCapacityLedger) entry(eventID uuid.UUID) (*memoryCapacityEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[eventID]
	return e, ok
}

func (l *MemoryCapacityLedger) Seed(ctx context.Context, eventID uuid.UUID, max int, confirmed int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[eventID]; ok {
		e.mu.Lock()
		e.max = max
		e.confirmed = confirmed
		e.mu.Unlock()
		return nil
	}

	l.entries[eventID] = &memoryCapacityEntry{max: max, confirmed: confirmed}
	return nil
}

func (l *MemoryCapacityLedger) TryAdmit(ctx context.Context, eventID uuid.UUID) (bool, int, error) {
	e, ok := l.entry(eventID)
	if !ok {
		return false, 0, app_errors.ErrLedgerNotSeeded
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.max > 0 && e.confirmed >= e.max {
		return false, e.confirmed, nil
	}
	e.confirmed++
	return true, e.confirmed, nil
}

func (l *MemoryCapacityLedger) Release(ctx context.Context, eventID uuid.UUID) (int, error) {
	e, ok := l.entry(eventID)
	if !ok {
		return 0, app_errors.ErrLedgerNotSeeded
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.confirmed > 0 {
		e.confirmed--
	}
	return e.confirmed, nil
}

func (l *MemoryCapacityLedger) Confirmed(ctx context.Context, eventID uuid.UUID) (int, error) {
	e, ok := l.entry(eventID)
	if !ok {
		return 0, app_errors.ErrLedgerNotSeeded
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.confirmed, nil
}
