package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-event-registration/internal/model"
	"go-event-registration/pkg/app_errors"
)

func TestEventService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		start, end := "09:00", "11:00"

		created, err := f.eventService.Create(ctx, model.CreateEventRequest{
			Title:           "Go Conference",
			StartDate:       eventDay(),
			StartTime:       &start,
			EndTime:         &end,
			MaxParticipants: 50,
			OrganizerID:     uuid.New(),
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, model.EventStatusUpcoming, created.Status)
		assert.Equal(t, model.LifecycleNone, created.LifecycleFlag)

		// The ledger is primed at creation.
		confirmed, err := f.ledger.Confirmed(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, confirmed)
	})

	t.Run("InvalidTimesRejected", func(t *testing.T) {
		f := newFixture(t)
		bad := "25:61"

		_, err := f.eventService.Create(ctx, model.CreateEventRequest{
			Title:       "Go Conference",
			StartDate:   eventDay(),
			StartTime:   &bad,
			OrganizerID: uuid.New(),
		})
		assert.ErrorIs(t, err, app_errors.ErrInvalidEventTimes)
	})

	t.Run("NegativeCapacityMeansUnlimited", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.eventService.Create(ctx, model.CreateEventRequest{
			Title:           "Go Conference",
			StartDate:       eventDay(),
			MaxParticipants: -5,
			OrganizerID:     uuid.New(),
		})
		require.NoError(t, err)
		assert.Equal(t, 0, created.MaxParticipants)
	})
}

func TestEventService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("CarriesDerivedStatus", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 10, "09:00", "11:00")

		got, err := f.eventService.GetByID(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, model.EventStatusUpcoming, got.Status)
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.eventService.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, app_errors.ErrEventNotFound)
	})
}

func TestEventService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("OrganizerUpdates", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 10, "09:00", "11:00")

		title := "Renamed Conference"
		updated, err := f.eventService.Update(ctx, organizerFor(ev), ev.ID, model.UpdateEventParams{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, updated.Title)
	})

	t.Run("CapacityRaisePromotesWaitlist", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 1, "09:00", "11:00")

		f.register(t, ev.ID, uuid.New())
		waiting := f.register(t, ev.ID, uuid.New())
		require.True(t, waiting.Waitlist.OnWaitlist)

		newMax := 5
		_, err := f.eventService.Update(ctx, organizerFor(ev), ev.ID, model.UpdateEventParams{MaxParticipants: &newMax})
		require.NoError(t, err)

		promoted, err := f.registrations.FindByID(ctx, waiting.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RegistrationStatusConfirmed, promoted.Status)
		assert.False(t, promoted.Waitlist.OnWaitlist)

		// With room again, the next registrant confirms immediately.
		reg := f.register(t, ev.ID, uuid.New())
		assert.Equal(t, model.RegistrationStatusConfirmed, reg.Status)
	})

	t.Run("StrangerForbidden", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 10, "09:00", "11:00")

		title := "Hijacked"
		stranger := model.Actor{ID: uuid.New(), Role: model.RoleAttendee}
		_, err := f.eventService.Update(ctx, stranger, ev.ID, model.UpdateEventParams{Title: &title})
		assert.ErrorIs(t, err, app_errors.ErrForbidden)
	})
}

func TestEventService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("SetsTerminalStatus", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 10, "09:00", "11:00")

		require.NoError(t, f.eventService.Cancel(ctx, organizerFor(ev), ev.ID))

		got, err := f.eventService.GetByID(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, model.EventStatusCancelled, got.Status)
	})

	t.Run("Idempotent", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 10, "09:00", "11:00")

		require.NoError(t, f.eventService.Cancel(ctx, organizerFor(ev), ev.ID))
		require.NoError(t, f.eventService.Cancel(ctx, organizerFor(ev), ev.ID))
	})

	t.Run("StrangerForbidden", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 10, "09:00", "11:00")

		stranger := model.Actor{ID: uuid.New(), Role: model.RoleAttendee}
		err := f.eventService.Cancel(ctx, stranger, ev.ID)
		assert.ErrorIs(t, err, app_errors.ErrForbidden)
	})
}

func TestEventService_Summary(t *testing.T) {
	ctx := context.Background()
	staff := model.Actor{ID: uuid.New(), Role: model.RoleStaff}

	f := newFixture(t)
	ev := f.createEvent(t, 2, "09:00", "11:00")

	checkedInID := uuid.New()
	f.register(t, ev.ID, checkedInID)
	f.register(t, ev.ID, uuid.New())
	waiting := f.register(t, ev.ID, uuid.New())
	require.True(t, waiting.Waitlist.OnWaitlist)

	_, err := f.checkInService.CheckIn(ctx, staff, ev.ID, model.CheckInRequest{
		Token:  checkedInID.String(),
		Method: model.CheckInMethodQRCode,
	})
	require.NoError(t, err)

	summary, err := f.eventService.Summary(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, summary.EventID)
	assert.Equal(t, 2, summary.MaxParticipants)
	assert.Equal(t, 2, summary.ConfirmedCount)
	assert.Equal(t, 1, summary.CheckedInCount)
	assert.Equal(t, 1, summary.WaitlistLength)
	assert.Equal(t, 0, summary.RemainingSlots)
}
