package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-event-registration/internal/clock"
	"go-event-registration/internal/model"
	"go-event-registration/internal/queue"
	"go-event-registration/internal/repository"
	"go-event-registration/pkg/app_errors"
	"go-event-registration/pkg/logger"
)

// CheckInService resolves a scanned or manually entered token to a
// registration and performs an idempotent check-in. "not registered" and
// "already checked in" are expected operator-facing outcomes, not errors.
type CheckInService interface {
	CheckIn(ctx context.Context, actor model.Actor, eventID uuid.UUID, req model.CheckInRequest) (*model.CheckInOutcome, error)
}

type CheckInServiceImpl struct {
	events        repository.EventRepository
	registrations repository.RegistrationRepository
	notifications queue.NotificationQueue
	clock         clock.Clock
}

func NewCheckInService(
	events repository.EventRepository,
	registrations repository.RegistrationRepository,
	notifications queue.NotificationQueue,
	clk clock.Clock,
) CheckInService {
	return &CheckInServiceImpl{
		events:        events,
		registrations: registrations,
		notifications: notifications,
		clock:         clk,
	}
}

func (s *CheckInServiceImpl) CheckIn(ctx context.Context, actor model.Actor, eventID uuid.UUID, req model.CheckInRequest) (*model.CheckInOutcome, error) {
	if !actor.CanCheckIn() {
		return nil, app_errors.ErrForbidden
	}
	if !req.Method.IsValid() {
		return nil, app_errors.ErrInvalidCheckInMethod
	}

	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, err
	}

	reg, err := s.resolveToken(ctx, eventID, req.Token)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return &model.CheckInOutcome{Result: model.CheckInResultNotRegistered}, nil
	}

	// Re-scanning the same code must not double count attendance.
	if reg.CheckIn.Done {
		return &model.CheckInOutcome{Result: model.CheckInResultAlreadyCheckedIn, Registration: reg}, nil
	}
	if reg.Status != model.RegistrationStatusConfirmed {
		return nil, app_errors.ErrInvalidTransition
	}

	var outcome *model.CheckInOutcome
	err = s.registrations.InTx(ctx, func(repo repository.RegistrationRepository) error {
		fresh, err := repo.FindByIDForUpdate(ctx, reg.ID)
		if err != nil {
			return err
		}
		if fresh.CheckIn.Done {
			// Lost a race against an identical scan; idempotent.
			outcome = &model.CheckInOutcome{Result: model.CheckInResultAlreadyCheckedIn, Registration: fresh}
			return nil
		}
		if fresh.Status != model.RegistrationStatusConfirmed {
			return app_errors.ErrInvalidTransition
		}

		now := s.clock.Now()
		fresh.Status = model.RegistrationStatusCheckedIn
		fresh.CheckIn = model.CheckInInfo{Done: true, At: &now, Method: req.Method}

		updated, err := repo.Update(ctx, fresh)
		if err != nil {
			return err
		}
		outcome = &model.CheckInOutcome{Result: model.CheckInResultSuccess, Registration: updated}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.Result == model.CheckInResultSuccess {
		s.publishCheckedIn(ctx, outcome.Registration)
	}

	return outcome, nil
}

// resolveToken accepts a registrant or registration UUID (the QR payload)
// or an email address (manual fallback entry). Anything else is malformed.
// A miss returns (nil, nil): not-registered is an expected outcome.
func (s *CheckInServiceImpl) resolveToken(ctx context.Context, eventID uuid.UUID, token string) (*model.Registration, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, app_errors.ErrInvalidToken
	}

	if id, err := uuid.Parse(token); err == nil {
		reg, err := s.registrations.FindActiveByEventAndRegistrant(ctx, eventID, id)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, app_errors.ErrRegistrationNotFound) {
			return nil, err
		}

		// The token may be the registration ID itself.
		reg, err = s.registrations.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, app_errors.ErrRegistrationNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if reg.EventID != eventID || reg.IsCancelled() {
			return nil, nil
		}
		return reg, nil
	}

	if strings.Contains(token, "@") {
		reg, err := s.registrations.FindActiveByEventAndEmail(ctx, eventID, token)
		if err != nil {
			if errors.Is(err, app_errors.ErrRegistrationNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return reg, nil
	}

	return nil, app_errors.ErrInvalidToken
}

func (s *CheckInServiceImpl) publishCheckedIn(ctx context.Context, reg *model.Registration) {
	n := &queue.Notification{
		ID:             uuid.New().String(),
		Kind:           queue.NotificationCheckedIn,
		EventID:        reg.EventID,
		RegistrationID: reg.ID,
		RegistrantID:   reg.RegistrantID,
		Email:          reg.Email,
		OccurredAt:     s.clock.Now(),
	}
	// Fire-and-forget: delivery failures never fail the check-in.
	if err := s.notifications.Publish(ctx, n); err != nil {
		logger.WithComponent("checkin").Warn("publish notification failed",
			zap.String("registration_id", reg.ID.String()), zap.Error(err))
	}
}
