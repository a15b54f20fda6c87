package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"go-event-registration/internal/cache"
	"go-event-registration/internal/model"
	"go-event-registration/internal/queue"
	"go-event-registration/internal/repository"
	"go-event-registration/internal/schedule"
)

// stepClock is a mutable test clock so a single test can cross an event's
// time boundaries.
type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	events        *repository.MemoryEventRepository
	registrations *repository.MemoryRegistrationRepository
	ledger        *cache.MemoryCapacityLedger
	notifications *queue.ChannelNotificationQueue
	engine        schedule.Engine
	clock         *stepClock

	eventService        EventService
	registrationService RegistrationService
	checkInService      CheckInService
}

// eventDay is the calendar date used by the fixtures; the clock starts the
// morning before so fixture events derive as upcoming.
func eventDay() time.Time {
	return time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		events:        repository.NewMemoryEventRepository(),
		registrations: repository.NewMemoryRegistrationRepository(),
		ledger:        cache.NewMemoryCapacityLedger(),
		notifications: queue.NewChannelNotificationQueue(64),
		engine:        schedule.NewEngine(2*time.Hour, true),
		clock:         &stepClock{now: eventDay().AddDate(0, 0, -1).Add(10 * time.Hour)},
	}

	f.eventService = NewEventService(f.events, f.registrations, f.ledger, f.notifications, f.engine, f.clock)
	f.registrationService = NewRegistrationService(f.events, f.registrations, f.ledger, f.notifications, f.engine, f.clock)
	f.checkInService = NewCheckInService(f.events, f.registrations, f.notifications, f.clock)

	return f
}

func (f *fixture) createEvent(t *testing.T, maxParticipants int, startTime, endTime string) *model.Event {
	t.Helper()

	ev := &model.Event{
		ID:              uuid.New(),
		Title:           "Go Conference",
		StartDate:       eventDay(),
		MaxParticipants: maxParticipants,
		OrganizerID:     uuid.New(),
	}
	if startTime != "" {
		ev.StartTime = &startTime
	}
	if endTime != "" {
		ev.EndTime = &endTime
	}

	created, err := f.events.Create(context.Background(), ev)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Seed(context.Background(), created.ID, created.MaxParticipants, 0))
	return created
}

func (f *fixture) register(t *testing.T, eventID, registrantID uuid.UUID) *model.Registration {
	t.Helper()

	reg, err := f.registrationService.Register(context.Background(), model.RegisterRequest{
		EventID:      eventID,
		RegistrantID: registrantID,
		Name:         "Test Attendee",
		Email:        registrantID.String() + "@example.com",
	})
	require.NoError(t, err)
	return reg
}

func organizerFor(ev *model.Event) model.Actor {
	return model.Actor{ID: ev.OrganizerID, Role: model.RoleOrganizer}
}
