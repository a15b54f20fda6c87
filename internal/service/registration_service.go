package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-event-registration/internal/cache"
	"go-event-registration/internal/clock"
	"go-event-registration/internal/model"
	"go-event-registration/internal/queue"
	"go-event-registration/internal/repository"
	"go-event-registration/internal/schedule"
	"go-event-registration/pkg/app_errors"
	"go-event-registration/pkg/logger"
)

// RegistrationService is the registration state machine. It orchestrates
// the conflict check, the capacity ledger and the waitlist to move a
// registration through its lifecycle.
type RegistrationService interface {
	// Register admits the registrant into a confirmed slot or places
	// them on the waitlist. A duplicate request returns the existing
	// registration instead of erroring.
	Register(ctx context.Context, req model.RegisterRequest) (*model.Registration, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Registration, error)
	// Cancel withdraws a registration. Cancelling an already-cancelled
	// registration is a no-op success. Freeing a confirmed slot promotes
	// the earliest waitlisted registrant in the same atomic unit.
	Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Registration, error)
	// MarkNoShow is administrative and only valid once the event's
	// derived status is completed.
	MarkNoShow(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Registration, error)
	// WaitlistPositions is the read-only ordered waitlist for display.
	WaitlistPositions(ctx context.Context, eventID uuid.UUID) ([]*model.Registration, error)
}

type RegistrationServiceImpl struct {
	events        repository.EventRepository
	registrations repository.RegistrationRepository
	ledger        cache.CapacityLedger
	notifications queue.NotificationQueue
	engine        schedule.Engine
	clock         clock.Clock
}

func NewRegistrationService(
	events repository.EventRepository,
	registrations repository.RegistrationRepository,
	ledger cache.CapacityLedger,
	notifications queue.NotificationQueue,
	engine schedule.Engine,
	clk clock.Clock,
) RegistrationService {
	return &RegistrationServiceImpl{
		events:        events,
		registrations: registrations,
		ledger:        ledger,
		notifications: notifications,
		engine:        engine,
		clock:         clk,
	}
}

func (s *RegistrationServiceImpl) Register(ctx context.Context, req model.RegisterRequest) (*model.Registration, error) {
	ev, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if status := s.engine.DeriveStatus(ev, now); status != model.EventStatusUpcoming {
		return nil, app_errors.ErrRegistrationClosed
	}

	// Duplicate registration is idempotent: hand back the existing one.
	existing, err := s.registrations.FindActiveByEventAndRegistrant(ctx, ev.ID, req.RegistrantID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, app_errors.ErrRegistrationNotFound) {
		return nil, err
	}

	if err := s.checkConflicts(ctx, ev, req.RegistrantID); err != nil {
		return nil, err
	}

	admitted, _, err := s.tryAdmit(ctx, ev)
	if err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = model.RegistrationSourceWebsite
	}

	reg := &model.Registration{
		ID:           uuid.New(),
		EventID:      ev.ID,
		RegistrantID: req.RegistrantID,
		Name:         req.Name,
		Email:        req.Email,
		Source:       source,
		Status:       model.RegistrationStatusRegistered,
		RegisteredAt: now,
	}
	if admitted {
		reg.Status = model.RegistrationStatusConfirmed
	}

	var created *model.Registration
	err = s.registrations.InTx(ctx, func(repo repository.RegistrationRepository) error {
		if !admitted {
			// Position is assigned under the same atomic unit as the
			// insert so concurrent enqueues stay FIFO.
			count, err := repo.CountWaitlisted(ctx, ev.ID)
			if err != nil {
				return err
			}
			position := count + 1
			enqueuedAt := now
			reg.Waitlist = model.WaitlistInfo{
				OnWaitlist: true,
				Position:   &position,
				EnqueuedAt: &enqueuedAt,
			}
		}

		var err error
		created, err = repo.Create(ctx, reg)
		return err
	})
	if err != nil {
		if admitted {
			// Give the slot back; the insert never happened.
			if _, rerr := s.ledger.Release(ctx, ev.ID); rerr != nil {
				logger.WithComponent("registration").Warn("ledger release after failed insert",
					zap.String("event_id", ev.ID.String()), zap.Error(rerr))
			}
		}
		if errors.Is(err, app_errors.ErrAlreadyRegistered) {
			// Lost a race against an identical request; return the winner.
			if winner, ferr := s.registrations.FindActiveByEventAndRegistrant(ctx, ev.ID, req.RegistrantID); ferr == nil {
				return winner, nil
			}
		}
		return nil, err
	}

	if admitted {
		s.publish(ctx, queue.NotificationAdmitted, created)
	} else {
		s.publish(ctx, queue.NotificationWaitlisted, created)
	}

	return created, nil
}

func (s *RegistrationServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	return s.registrations.FindByID(ctx, id)
}

func (s *RegistrationServiceImpl) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Registration, error) {
	current, err := s.registrations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsCancelled() {
		return current, nil
	}
	if !actor.CanCancel(current) {
		return nil, app_errors.ErrForbidden
	}

	out, promoted, release, err := s.transitionAndFreeSlot(ctx, id, model.RegistrationStatusCancelled)
	if err != nil {
		return nil, err
	}

	if release {
		s.releaseLedger(ctx, out.EventID)
	}
	if promoted != nil {
		s.publish(ctx, queue.NotificationPromoted, promoted)
	}

	return out, nil
}

func (s *RegistrationServiceImpl) MarkNoShow(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Registration, error) {
	if !actor.CanMarkNoShow() {
		return nil, app_errors.ErrForbidden
	}

	current, err := s.registrations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == model.RegistrationStatusNoShow {
		return current, nil
	}

	ev, err := s.events.FindByID(ctx, current.EventID)
	if err != nil {
		return nil, err
	}
	if status := s.engine.DeriveStatus(ev, s.clock.Now()); status != model.EventStatusCompleted {
		return nil, app_errors.ErrInvalidTransition
	}

	out, promoted, release, err := s.transitionAndFreeSlot(ctx, id, model.RegistrationStatusNoShow)
	if err != nil {
		return nil, err
	}

	if release {
		s.releaseLedger(ctx, out.EventID)
	}
	if promoted != nil {
		s.publish(ctx, queue.NotificationPromoted, promoted)
	}

	return out, nil
}

func (s *RegistrationServiceImpl) WaitlistPositions(ctx context.Context, eventID uuid.UUID) ([]*model.Registration, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.registrations.WaitlistPositions(ctx, eventID)
}

// transitionAndFreeSlot moves a registration into a terminal state and, if
// it held a confirmed slot, hands that slot to the earliest waitlisted
// registrant inside the same atomic unit. The ledger count only changes
// when nobody is waiting: a promotion transfers the slot directly, which
// closes the release/re-admit race window.
func (s *RegistrationServiceImpl) transitionAndFreeSlot(ctx context.Context, id uuid.UUID, target model.RegistrationStatus) (out, promoted *model.Registration, release bool, err error) {
	err = s.registrations.InTx(ctx, func(repo repository.RegistrationRepository) error {
		reg, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if reg.Status == target {
			// Lost a race against an identical transition; idempotent.
			out = reg
			return nil
		}
		if !reg.Status.CanTransitionTo(target) {
			return app_errors.ErrInvalidTransition
		}

		heldSlot := reg.HoldsSlot()

		reg.Status = target
		reg.Waitlist.OnWaitlist = false
		reg.Waitlist.Position = nil
		out, err = repo.Update(ctx, reg)
		if err != nil {
			return err
		}

		if !heldSlot {
			return nil
		}

		next, err := repo.NextWaitlisted(ctx, reg.EventID)
		if err != nil {
			return err
		}
		if next == nil {
			release = true
			return nil
		}

		next.Status = model.RegistrationStatusConfirmed
		next.Waitlist.OnWaitlist = false
		next.Waitlist.Position = nil
		promoted, err = repo.Update(ctx, next)
		return err
	})
	if err != nil {
		return nil, nil, false, err
	}
	return out, promoted, release, nil
}

func (s *RegistrationServiceImpl) checkConflicts(ctx context.Context, candidate *model.Event, registrantID uuid.UUID) error {
	held, err := s.registrations.ListByRegistrantAndStatuses(ctx, registrantID,
		model.RegistrationStatusConfirmed, model.RegistrationStatusCheckedIn)
	if err != nil {
		return err
	}

	var existingEvents []*model.Event
	for _, reg := range held {
		if reg.EventID == candidate.ID {
			continue
		}
		ev, err := s.events.FindByID(ctx, reg.EventID)
		if err != nil {
			if errors.Is(err, app_errors.ErrEventNotFound) {
				continue
			}
			return err
		}
		existingEvents = append(existingEvents, ev)
	}

	if hit := s.engine.FindConflict(candidate, existingEvents); hit != nil {
		start, end := s.engine.Window(hit)
		return &app_errors.ConflictError{
			EventID:    hit.ID,
			EventTitle: hit.Title,
			Start:      start,
			End:        end,
		}
	}

	return nil
}

// tryAdmit seeds the ledger from the durable store on a cold cache and
// retries once, so a flushed Redis never rejects admissions spuriously.
func (s *RegistrationServiceImpl) tryAdmit(ctx context.Context, ev *model.Event) (bool, int, error) {
	admitted, count, err := s.ledger.TryAdmit(ctx, ev.ID)
	if errors.Is(err, app_errors.ErrLedgerNotSeeded) {
		if err := s.seedLedger(ctx, ev); err != nil {
			return false, 0, err
		}
		admitted, count, err = s.ledger.TryAdmit(ctx, ev.ID)
	}
	return admitted, count, err
}

func (s *RegistrationServiceImpl) seedLedger(ctx context.Context, ev *model.Event) error {
	confirmed, err := s.registrations.CountByEventAndStatuses(ctx, ev.ID,
		model.RegistrationStatusConfirmed, model.RegistrationStatusCheckedIn)
	if err != nil {
		return err
	}
	return s.ledger.Seed(ctx, ev.ID, ev.MaxParticipants, confirmed)
}

func (s *RegistrationServiceImpl) releaseLedger(ctx context.Context, eventID uuid.UUID) {
	if _, err := s.ledger.Release(ctx, eventID); err != nil {
		// The rows are the source of truth; the next admission re-seeds.
		logger.WithComponent("registration").Warn("ledger release failed",
			zap.String("event_id", eventID.String()), zap.Error(err))
	}
}

func (s *RegistrationServiceImpl) publish(ctx context.Context, kind queue.NotificationKind, reg *model.Registration) {
	n := &queue.Notification{
		ID:             uuid.New().String(),
		Kind:           kind,
		EventID:        reg.EventID,
		RegistrationID: reg.ID,
		RegistrantID:   reg.RegistrantID,
		Email:          reg.Email,
		OccurredAt:     s.clock.Now(),
	}
	if reg.Waitlist.Position != nil {
		n.Position = *reg.Waitlist.Position
	}

	// Fire-and-forget: delivery failures never fail the transition.
	if err := s.notifications.Publish(ctx, n); err != nil {
		logger.WithComponent("registration").Warn("publish notification failed",
			zap.String("kind", string(kind)), zap.String("registration_id", reg.ID.String()), zap.Error(err))
	}
}
