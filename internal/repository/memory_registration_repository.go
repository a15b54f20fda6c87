package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-event-registration/internal/model"
	"go-event-registration/pkg/app_errors"
)

// MemoryRegistrationRepository is an in-memory RegistrationRepository for
// tests and development. InTx serializes on one mutex, which gives the
// same indivisibility the Postgres implementation gets from a transaction
// (without rollback: callers treat a failed InTx body as fatal).
type MemoryRegistrationRepository struct {
	mu    sync.Mutex
	store *memoryRegistrationStore
}

type memoryRegistrationStore struct {
	regs map[uuid.UUID]*model.Registration
}

func NewMemoryRegistrationRepository() *MemoryRegistrationRepository {
	return &MemoryRegistrationRepository{
		store: &memoryRegistrationStore{
			regs: make(map[uuid.UUID]*model.Registration),
		},
	}
}

func (r *MemoryRegistrationRepository) InTx(ctx context.Context, fn func(RegistrationRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&memoryTxRepository{store: r.store})
}

func cloneRegistration(reg *model.Registration) *model.Registration {
	out := *reg
	if reg.Waitlist.Position != nil {
		p := *reg.Waitlist.Position
		out.Waitlist.Position = &p
	}
	if reg.Waitlist.EnqueuedAt != nil {
		t := *reg.Waitlist.EnqueuedAt
		out.Waitlist.EnqueuedAt = &t
	}
	if reg.CheckIn.At != nil {
		t := *reg.CheckIn.At
		out.CheckIn.At = &t
	}
	return &out
}

// waitlistOrder sorts FIFO by enqueue time, registration ID tie-break.
func waitlistOrder(regs []*model.Registration) {
	sort.Slice(regs, func(i, j int) bool {
		a, b := regs[i], regs[j]
		if a.Waitlist.EnqueuedAt == nil || b.Waitlist.EnqueuedAt == nil {
			return a.ID.String() < b.ID.String()
		}
		if a.Waitlist.EnqueuedAt.Equal(*b.Waitlist.EnqueuedAt) {
			return a.ID.String() < b.ID.String()
		}
		return a.Waitlist.EnqueuedAt.Before(*b.Waitlist.EnqueuedAt)
	})
}

func (s *memoryRegistrationStore) findByID(id uuid.UUID) (*model.Registration, error) {
	reg, ok := s.regs[id]
	if !ok {
		return nil, app_errors.ErrRegistrationNotFound
	}
	return cloneRegistration(reg), nil
}

func (s *memoryRegistrationStore) findActiveByEventAndRegistrant(eventID, registrantID uuid.UUID) (*model.Registration, error) {
	for _, reg := range s.regs {
		if reg.EventID == eventID && reg.RegistrantID == registrantID && !reg.IsCancelled() {
			return cloneRegistration(reg), nil
		}
	}
	return nil, app_errors.ErrRegistrationNotFound
}

func (s *memoryRegistrationStore) findActiveByEventAndEmail(eventID uuid.UUID, email string) (*model.Registration, error) {
	for _, reg := range s.regs {
		if reg.EventID == eventID && strings.EqualFold(reg.Email, email) && !reg.IsCancelled() {
			return cloneRegistration(reg), nil
		}
	}
	return nil, app_errors.ErrRegistrationNotFound
}

func (s *memoryRegistrationStore) listByEvent(eventID uuid.UUID) []*model.Registration {
	var regs []*model.Registration
	for _, reg := range s.regs {
		if reg.EventID == eventID {
			regs = append(regs, cloneRegistration(reg))
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].RegisteredAt.Before(regs[j].RegisteredAt)
	})
	return regs
}

func (s *memoryRegistrationStore) listByRegistrantAndStatuses(registrantID uuid.UUID, statuses []model.RegistrationStatus) []*model.Registration {
	var regs []*model.Registration
	for _, reg := range s.regs {
		if reg.RegistrantID != registrantID {
			continue
		}
		for _, status := range statuses {
			if reg.Status == status {
				regs = append(regs, cloneRegistration(reg))
				break
			}
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].RegisteredAt.Before(regs[j].RegisteredAt)
	})
	return regs
}

func (s *memoryRegistrationStore) waitlisted(eventID uuid.UUID) []*model.Registration {
	var regs []*model.Registration
	for _, reg := range s.regs {
		if reg.EventID == eventID && reg.Waitlist.OnWaitlist && reg.Status == model.RegistrationStatusRegistered {
			regs = append(regs, cloneRegistration(reg))
		}
	}
	waitlistOrder(regs)
	return regs
}

func (s *memoryRegistrationStore) countByEventAndStatuses(eventID uuid.UUID, statuses []model.RegistrationStatus) int {
	count := 0
	for _, reg := range s.regs {
		if reg.EventID != eventID || reg.Waitlist.OnWaitlist {
			continue
		}
		for _, status := range statuses {
			if reg.Status == status {
				count++
				break
			}
		}
	}
	return count
}

func (s *memoryRegistrationStore) create(reg *model.Registration) (*model.Registration, error) {
	if _, err := s.findActiveByEventAndRegistrant(reg.EventID, reg.RegistrantID); err == nil {
		return nil, app_errors.ErrAlreadyRegistered
	}

	now := time.Now().UTC()
	stored := cloneRegistration(reg)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.regs[stored.ID] = stored

	return cloneRegistration(stored), nil
}

func (s *memoryRegistrationStore) update(reg *model.Registration) (*model.Registration, error) {
	existing, ok := s.regs[reg.ID]
	if !ok {
		return nil, app_errors.ErrRegistrationNotFound
	}

	stored := cloneRegistration(reg)
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()
	s.regs[stored.ID] = stored

	return cloneRegistration(stored), nil
}

// Locked outer repository.

func (r *MemoryRegistrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.findByID(id)
}

func (r *MemoryRegistrationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.findByID(id)
}

func (r *MemoryRegistrationRepository) FindActiveByEventAndRegistrant(ctx context.Context, eventID, registrantID uuid.UUID) (*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.findActiveByEventAndRegistrant(eventID, registrantID)
}

func (r *MemoryRegistrationRepository) FindActiveByEventAndEmail(ctx context.Context, eventID uuid.UUID, email string) (*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.findActiveByEventAndEmail(eventID, email)
}

func (r *MemoryRegistrationRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.listByEvent(eventID), nil
}

func (r *MemoryRegistrationRepository) ListByRegistrantAndStatuses(ctx context.Context, registrantID uuid.UUID, statuses ...model.RegistrationStatus) ([]*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.listByRegistrantAndStatuses(registrantID, statuses), nil
}

func (r *MemoryRegistrationRepository) WaitlistPositions(ctx context.Context, eventID uuid.UUID) ([]*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.waitlisted(eventID), nil
}

func (r *MemoryRegistrationRepository) CountWaitlisted(ctx context.Context, eventID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.store.waitlisted(eventID)), nil
}

func (r *MemoryRegistrationRepository) CountByEventAndStatuses(ctx context.Context, eventID uuid.UUID, statuses ...model.RegistrationStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.countByEventAndStatuses(eventID, statuses), nil
}

func (r *MemoryRegistrationRepository) NextWaitlisted(ctx context.Context, eventID uuid.UUID) (*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	waitlisted := r.store.waitlisted(eventID)
	if len(waitlisted) == 0 {
		return nil, nil
	}
	return waitlisted[0], nil
}

func (r *MemoryRegistrationRepository) Create(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.create(reg)
}

func (r *MemoryRegistrationRepository) Update(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.update(reg)
}

// memoryTxRepository is the unlocked view handed to an InTx body; the
// outer repository holds the mutex for the whole transaction.
type memoryTxRepository struct {
	store *memoryRegistrationStore
}

func (r *memoryTxRepository) InTx(ctx context.Context, fn func(RegistrationRepository) error) error {
	return fn(r)
}

func (r *memoryTxRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	return r.store.findByID(id)
}

func (r *memoryTxRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	return r.store.findByID(id)
}

func (r *memoryTxRepository) FindActiveByEventAndRegistrant(ctx context.Context, eventID, registrantID uuid.UUID) (*model.Registration, error) {
	return r.store.findActiveByEventAndRegistrant(eventID, registrantID)
}

func (r *memoryTxRepository) FindActiveByEventAndEmail(ctx context.Context, eventID uuid.UUID, email string) (*model.Registration, error) {
	return r.store.findActiveByEventAndEmail(eventID, email)
}

func (r *memoryTxRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Registration, error) {
	return r.store.listByEvent(eventID), nil
}

func (r *memoryTxRepository) ListByRegistrantAndStatuses(ctx context.Context, registrantID uuid.UUID, statuses ...model.RegistrationStatus) ([]*model.Registration, error) {
	return r.store.listByRegistrantAndStatuses(registrantID, statuses), nil
}

func (r *memoryTxRepository) WaitlistPositions(ctx context.Context, eventID uuid.UUID) ([]*model.Registration, error) {
	return r.store.waitlisted(eventID), nil
}

func (r *memoryTxRepository) CountWaitlisted(ctx context.Context, eventID uuid.UUID) (int, error) {
	return len(r.store.waitlisted(eventID)), nil
}

func (r *memoryTxRepository) CountByEventAndStatuses(ctx context.Context, eventID uuid.UUID, statuses ...model.RegistrationStatus) (int, error) {
	return r.store.countByEventAndStatuses(eventID, statuses), nil
}

func (r *memoryTxRepository) NextWaitlisted(ctx context.Context, eventID uuid.UUID) (*model.Registration, error) {
	waitlisted := r.store.waitlisted(eventID)
	if len(waitlisted) == 0 {
		return nil, nil
	}
	return waitlisted[0], nil
}

func (r *memoryTxRepository) Create(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	return r.store.create(reg)
}

func (r *memoryTxRepository) Update(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	return r.store.update(reg)
}
