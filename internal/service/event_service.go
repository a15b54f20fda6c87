package service

import (
	"context"
	"time"

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

// EventService manages events. Status is always derived at read time; the
// only stored status is the cancelled lifecycle flag.
type EventService interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.EventResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.EventResponse, error)
	List(ctx context.Context) ([]*model.EventResponse, error)
	Update(ctx context.Context, actor model.Actor, id uuid.UUID, params model.UpdateEventParams) (*model.EventResponse, error)
	// Cancel flips the lifecycle flag; cancellation is terminal and
	// idempotent.
	Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) error
	// Summary reports registration progress for an event.
	Summary(ctx context.Context, id uuid.UUID) (*model.EventSummary, error)
}

type EventServiceImpl struct {
	events        repository.EventRepository
	registrations repository.RegistrationRepository
	ledger        cache.CapacityLedger
	notifications queue.NotificationQueue
	engine        schedule.Engine
	clock         clock.Clock
}

func NewEventService(
	events repository.EventRepository,
	registrations repository.RegistrationRepository,
	ledger cache.CapacityLedger,
	notifications queue.NotificationQueue,
	engine schedule.Engine,
	clk clock.Clock,
) EventService {
	return &EventServiceImpl{
		events:        events,
		registrations: registrations,
		ledger:        ledger,
		notifications: notifications,
		engine:        engine,
		clock:         clk,
	}
}

func (s *EventServiceImpl) Create(ctx context.Context, req model.CreateEventRequest) (*model.EventResponse, error) {
	if err := validateClockTimes(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	maxParticipants := req.MaxParticipants
	if maxParticipants < 0 {
		maxParticipants = 0
	}

	ev := &model.Event{
		ID:              uuid.New(),
		Title:           req.Title,
		Description:     req.Description,
		StartDate:       req.StartDate.UTC().Truncate(24 * time.Hour),
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: maxParticipants,
		LifecycleFlag:   model.LifecycleNone,
		OrganizerID:     req.OrganizerID,
	}

	created, err := s.events.Create(ctx, ev)
	if err != nil {
		return nil, err
	}

	// Prime the ledger; a failure only delays seeding to first admit.
	if err := s.ledger.Seed(ctx, created.ID, created.MaxParticipants, 0); err != nil {
		logger.WithComponent("event").Warn("ledger seed failed",
			zap.String("event_id", created.ID.String()), zap.Error(err))
	}

	return s.respond(created), nil
}

func (s *EventServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*model.EventResponse, error) {
	ev, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ev), nil
}

func (s *EventServiceImpl) List(ctx context.Context) ([]*model.EventResponse, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]*model.EventResponse, len(events))
	for i, ev := range events {
		responses[i] = s.respond(ev)
	}
	return responses, nil
}

func (s *EventServiceImpl) Update(ctx context.Context, actor model.Actor, id uuid.UUID, params model.UpdateEventParams) (*model.EventResponse, error) {
	ev, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanMutateEvent(ev) {
		return nil, app_errors.ErrForbidden
	}

	updated, err := s.events.Update(ctx, id, params)
	if err != nil {
		return nil, err
	}

	if params.MaxParticipants != nil {
		if err := s.absorbCapacityChange(ctx, updated); err != nil {
			return nil, err
		}
	}

	return s.respond(updated), nil
}

// absorbCapacityChange promotes waitlisted registrants into any slots a
// capacity raise opened, oldest first, then re-seeds the ledger from the
// final counts. Lowering capacity never demotes anyone already confirmed.
func (s *EventServiceImpl) absorbCapacityChange(ctx context.Context, ev *model.Event) error {
	var promoted []*model.Registration

	err := s.registrations.InTx(ctx, func(repo repository.RegistrationRepository) error {
		confirmed, err := repo.CountByEventAndStatuses(ctx, ev.ID,
			model.RegistrationStatusConfirmed, model.RegistrationStatusCheckedIn)
		if err != nil {
			return err
		}

		for ev.Unlimited() || confirmed < ev.MaxParticipants {
			next, err := repo.NextWaitlisted(ctx, ev.ID)
			if err != nil {
				return err
			}
			if next == nil {
				break
			}

			next.Status = model.RegistrationStatusConfirmed
			next.Waitlist.OnWaitlist = false
			next.Waitlist.Position = nil
			out, err := repo.Update(ctx, next)
			if err != nil {
				return err
			}
			promoted = append(promoted, out)
			confirmed++
		}

		return s.ledger.Seed(ctx, ev.ID, ev.MaxParticipants, confirmed)
	})
	if err != nil {
		return err
	}

	for _, reg := range promoted {
		n := &queue.Notification{
			ID:             uuid.New().String(),
			Kind:           queue.NotificationPromoted,
			EventID:        reg.EventID,
			RegistrationID: reg.ID,
			RegistrantID:   reg.RegistrantID,
			Email:          reg.Email,
			OccurredAt:     s.clock.Now(),
		}
		if err := s.notifications.Publish(ctx, n); err != nil {
			logger.WithComponent("event").Warn("publish notification failed",
				zap.String("registration_id", reg.ID.String()), zap.Error(err))
		}
	}

	return nil
}

func (s *EventServiceImpl) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	ev, err := s.events.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanMutateEvent(ev) {
		return app_errors.ErrForbidden
	}
	if ev.IsCancelled() {
		return nil
	}

	return s.events.SetLifecycleFlag(ctx, id, model.LifecycleCancelled)
}

func (s *EventServiceImpl) Summary(ctx context.Context, id uuid.UUID) (*model.EventSummary, error) {
	ev, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	confirmed, err := s.registrations.CountByEventAndStatuses(ctx, id,
		model.RegistrationStatusConfirmed, model.RegistrationStatusCheckedIn)
	if err != nil {
		return nil, err
	}
	checkedIn, err := s.registrations.CountByEventAndStatuses(ctx, id, model.RegistrationStatusCheckedIn)
	if err != nil {
		return nil, err
	}
	waitlisted, err := s.registrations.CountWaitlisted(ctx, id)
	if err != nil {
		return nil, err
	}

	remaining := 0
	if !ev.Unlimited() {
		remaining = ev.MaxParticipants - confirmed
		if remaining < 0 {
			remaining = 0
		}
	}

	return &model.EventSummary{
		EventID:         ev.ID,
		Status:          s.engine.DeriveStatus(ev, s.clock.Now()),
		MaxParticipants: ev.MaxParticipants,
		ConfirmedCount:  confirmed,
		RemainingSlots:  remaining,
		WaitlistLength:  waitlisted,
		CheckedInCount:  checkedIn,
	}, nil
}

func (s *EventServiceImpl) respond(ev *model.Event) *model.EventResponse {
	return &model.EventResponse{
		Event:  *ev,
		Status: s.engine.DeriveStatus(ev, s.clock.Now()),
	}
}

func validateClockTimes(times ...*string) error {
	for _, t := range times {
		if t == nil {
			continue
		}
		if _, err := schedule.ParseClockTime(*t); err != nil {
			return app_errors.ErrInvalidEventTimes
		}
	}
	return nil
}
