package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-event-registration/internal/model"
	"go-event-registration/pkg/app_errors"
)

func TestRegistrationService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("ConfirmedWhileCapacityRemains", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 10, "09:00", "11:00")

		reg := f.register(t, ev.ID, uuid.New())

		assert.Equal(t, model.RegistrationStatusConfirmed, reg.Status)
		assert.False(t, reg.Waitlist.OnWaitlist)
		assert.Equal(t, model.RegistrationSourceWebsite, reg.Source)

		confirmed, err := f.ledger.Confirmed(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, confirmed)
	})

	t.Run("WaitlistedWhenFull", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 1, "09:00", "11:00")

		first := f.register(t, ev.ID, uuid.New())
		second := f.register(t, ev.ID, uuid.New())

		assert.Equal(t, model.RegistrationStatusConfirmed, first.Status)
		assert.Equal(t, model.RegistrationStatusRegistered, second.Status)
		assert.True(t, second.Waitlist.OnWaitlist)
		require.NotNil(t, second.Waitlist.Position)
		assert.Equal(t, 1, *second.Waitlist.Position)
		assert.NotNil(t, second.Waitlist.EnqueuedAt)
	})

	t.Run("DuplicateReturnsExisting", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 10, "09:00", "11:00")
		registrantID := uuid.New()

		first := f.register(t, ev.ID, registrantID)
		second := f.register(t, ev.ID, registrantID)

		assert.Equal(t, first.ID, second.ID)

		regs, err := f.registrations.ListByEvent(ctx, ev.ID)
		require.NoError(t, err)
		assert.Len(t, regs, 1)
	})

	t.Run("ScheduleConflictNamesHeldEvent", func(t *testing.T) {
		f := newFixture(t)
		held := f.createEvent(t, 10, "09:00", "11:00")
		overlapping := f.createEvent(t, 10, "10:00", "12:00")
		registrantID := uuid.New()

		f.register(t, held.ID, registrantID)

		_, err := f.registrationService.Register(ctx, model.RegisterRequest{
			EventID:      overlapping.ID,
			RegistrantID: registrantID,
			Name:         "Test Attendee",
			Email:        "conflict@example.com",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, app_errors.ErrScheduleConflict)

		var conflict *app_errors.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, held.ID, conflict.EventID)
		assert.Equal(t, held.Title, conflict.EventTitle)
	})

	t.Run("TouchingEventsDoNotConflict", func(t *testing.T) {
		f := newFixture(t)
		held := f.createEvent(t, 10, "09:00", "11:00")
		adjacent := f.createEvent(t, 10, "11:00", "13:00")
		registrantID := uuid.New()

		f.register(t, held.ID, registrantID)
		reg := f.register(t, adjacent.ID, registrantID)

		assert.Equal(t, model.RegistrationStatusConfirmed, reg.Status)
	})

	t.Run("WaitlistedHoldsNoConflict", func(t *testing.T) {
		// A waitlisted registration holds no slot, so it must not block
		// confirming a slot in an overlapping event.
		f := newFixture(t)
		full := f.createEvent(t, 1, "09:00", "11:00")
		overlapping := f.createEvent(t, 10, "10:00", "12:00")
		registrantID := uuid.New()

		f.register(t, full.ID, uuid.New())
		waitlisted := f.register(t, full.ID, registrantID)
		require.True(t, waitlisted.Waitlist.OnWaitlist)

		reg := f.register(t, overlapping.ID, registrantID)
		assert.Equal(t, model.RegistrationStatusConfirmed, reg.Status)
	})

	t.Run("ClosedOnceEventStarts", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 10, "09:00", "11:00")

		f.clock.Advance(24 * time.Hour) // now 10:00 on the event day

		_, err := f.registrationService.Register(ctx, model.RegisterRequest{
			EventID:      ev.ID,
			RegistrantID: uuid.New(),
			Name:         "Late Attendee",
			Email:        "late@example.com",
		})
		assert.ErrorIs(t, err, app_errors.ErrRegistrationClosed)
	})

	t.Run("ClosedWhenCancelled", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 10, "09:00", "11:00")
		require.NoError(t, f.events.SetLifecycleFlag(ctx, ev.ID, model.LifecycleCancelled))

		_, err := f.registrationService.Register(ctx, model.RegisterRequest{
			EventID:      ev.ID,
			RegistrantID: uuid.New(),
			Name:         "Test Attendee",
			Email:        "cancelled@example.com",
		})
		assert.ErrorIs(t, err, app_errors.ErrRegistrationClosed)
	})

	t.Run("UnlimitedEventNeverWaitlists", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 0, "09:00", "11:00")

		for i := 0; i < 20; i++ {
			reg := f.register(t, ev.ID, uuid.New())
			assert.Equal(t, model.RegistrationStatusConfirmed, reg.Status)
		}
	})

	t.Run("ColdLedgerSeedsFromStore", func(t *testing.T) {
		// The ledger was never seeded for this event; the first admission
		// recounts from the durable store instead of rejecting.
		f := newFixture(t)
		start, end := "09:00", "11:00"
		ev, err := f.events.Create(ctx, &model.Event{
			ID:              uuid.New(),
			Title:           "Unseeded Event",
			StartDate:       eventDay(),
			StartTime:       &start,
			EndTime:         &end,
			MaxParticipants: 3,
			OrganizerID:     uuid.New(),
		})
		require.NoError(t, err)

		reg := f.register(t, ev.ID, uuid.New())
		assert.Equal(t, model.RegistrationStatusConfirmed, reg.Status)
	})

	t.Run("EventNotFound", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.registrationService.Register(ctx, model.RegisterRequest{
			EventID:      uuid.New(),
			RegistrantID: uuid.New(),
			Name:         "Test Attendee",
			Email:        "nobody@example.com",
		})
		assert.ErrorIs(t, err, app_errors.ErrEventNotFound)
	})
}

func TestRegistrationService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("ReleasesSlotWhenNobodyWaits", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 5, "09:00", "11:00")
		registrantID := uuid.New()
		reg := f.register(t, ev.ID, registrantID)

		actor := model.Actor{ID: registrantID, Role: model.RoleAttendee}
		out, err := f.registrationService.Cancel(ctx, actor, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RegistrationStatusCancelled, out.Status)

		confirmed, err := f.ledger.Confirmed(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, confirmed)
	})

	t.Run("Idempotent", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 5, "09:00", "11:00")
		registrantID := uuid.New()
		reg := f.register(t, ev.ID, registrantID)

		actor := model.Actor{ID: registrantID, Role: model.RoleAttendee}
		_, err := f.registrationService.Cancel(ctx, actor, reg.ID)
		require.NoError(t, err)

		out, err := f.registrationService.Cancel(ctx, actor, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RegistrationStatusCancelled, out.Status)

		// The second cancel must not release another slot.
		confirmed, err := f.ledger.Confirmed(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, confirmed)
	})

	t.Run("ForbiddenForStrangers", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 5, "09:00", "11:00")
		reg := f.register(t, ev.ID, uuid.New())

		stranger := model.Actor{ID: uuid.New(), Role: model.RoleAttendee}
		_, err := f.registrationService.Cancel(ctx, stranger, reg.ID)
		assert.ErrorIs(t, err, app_errors.ErrForbidden)
	})

	t.Run("PromotesEarliestWaitlisted", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 1, "09:00", "11:00")

		holderID := uuid.New()
		holder := f.register(t, ev.ID, holderID)

		firstWaiting := f.register(t, ev.ID, uuid.New())
		f.clock.Advance(time.Minute)
		secondWaiting := f.register(t, ev.ID, uuid.New())
		require.True(t, firstWaiting.Waitlist.OnWaitlist)
		require.True(t, secondWaiting.Waitlist.OnWaitlist)

		actor := model.Actor{ID: holderID, Role: model.RoleAttendee}
		_, err := f.registrationService.Cancel(ctx, actor, holder.ID)
		require.NoError(t, err)

		promoted, err := f.registrations.FindByID(ctx, firstWaiting.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RegistrationStatusConfirmed, promoted.Status)
		assert.False(t, promoted.Waitlist.OnWaitlist)

		// The slot transferred directly, so the confirmed count is
		// unchanged and the second registrant still waits.
		confirmed, err := f.ledger.Confirmed(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, confirmed)

		waitlist, err := f.registrationService.WaitlistPositions(ctx, ev.ID)
		require.NoError(t, err)
		require.Len(t, waitlist, 1)
		assert.Equal(t, secondWaiting.ID, waitlist[0].ID)
	})

	t.Run("CancellingWaitlistedDoesNotRelease", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 1, "09:00", "11:00")

		f.register(t, ev.ID, uuid.New())
		waitingID := uuid.New()
		waiting := f.register(t, ev.ID, waitingID)
		require.True(t, waiting.Waitlist.OnWaitlist)

		actor := model.Actor{ID: waitingID, Role: model.RoleAttendee}
		out, err := f.registrationService.Cancel(ctx, actor, waiting.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RegistrationStatusCancelled, out.Status)

		confirmed, err := f.ledger.Confirmed(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, confirmed)
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture(t)
		actor := model.Actor{ID: uuid.New(), Role: model.RoleAttendee}

		_, err := f.registrationService.Cancel(ctx, actor, uuid.New())
		assert.ErrorIs(t, err, app_errors.ErrRegistrationNotFound)
	})
}

func TestRegistrationService_MarkNoShow(t *testing.T) {
	ctx := context.Background()

	t.Run("OnlyAfterEventCompletes", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 5, "09:00", "11:00")
		reg := f.register(t, ev.ID, uuid.New())

		organizer := organizerFor(ev)
		_, err := f.registrationService.MarkNoShow(ctx, organizer, reg.ID)
		assert.ErrorIs(t, err, app_errors.ErrInvalidTransition)

		f.clock.Advance(26 * time.Hour) // past the event's end

		out, err := f.registrationService.MarkNoShow(ctx, organizer, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RegistrationStatusNoShow, out.Status)
	})

	t.Run("Idempotent", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 5, "09:00", "11:00")
		reg := f.register(t, ev.ID, uuid.New())
		organizer := organizerFor(ev)

		f.clock.Advance(26 * time.Hour)

		_, err := f.registrationService.MarkNoShow(ctx, organizer, reg.ID)
		require.NoError(t, err)

		out, err := f.registrationService.MarkNoShow(ctx, organizer, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RegistrationStatusNoShow, out.Status)
	})

	t.Run("ForbiddenForAttendees", func(t *testing.T) {
		f := newFixture(t)
		ev := f.createEvent(t, 5, "09:00", "11:00")
		registrantID := uuid.New()
		reg := f.register(t, ev.ID, registrantID)

		f.clock.Advance(26 * time.Hour)

		actor := model.Actor{ID: registrantID, Role: model.RoleAttendee}
		_, err := f.registrationService.MarkNoShow(ctx, actor, reg.ID)
		assert.ErrorIs(t, err, app_errors.ErrForbidden)
	})
}

func TestRegistrationService_WaitlistFIFO(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.createEvent(t, 1, "09:00", "11:00")

	f.register(t, ev.ID, uuid.New())

	var waiting []*model.Registration
	for i := 0; i < 3; i++ {
		waiting = append(waiting, f.register(t, ev.ID, uuid.New()))
		f.clock.Advance(time.Minute)
	}

	positions, err := f.registrationService.WaitlistPositions(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, positions, 3)
	for i, reg := range positions {
		assert.Equal(t, waiting[i].ID, reg.ID, "waitlist order at index %d", i)
	}
}

// Three registrants race for two slots; exactly two confirm and one waits.
func TestRegistrationService_ConcurrentRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ev := f.createEvent(t, 2, "09:00", "11:00")

	attempts := 3
	var wg sync.WaitGroup
	results := make([]*model.Registration, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg, err := f.registrationService.Register(ctx, model.RegisterRequest{
				EventID:      ev.ID,
				RegistrantID: uuid.New(),
				Name:         fmt.Sprintf("Attendee %d", i),
				Email:        fmt.Sprintf("attendee%d@example.com", i),
			})
			assert.NoError(t, err)
			results[i] = reg
		}(i)
	}
	wg.Wait()

	confirmedCount := 0
	waitlistedCount := 0
	for _, reg := range results {
		require.NotNil(t, reg)
		if reg.Waitlist.OnWaitlist {
			waitlistedCount++
		} else {
			confirmedCount++
			assert.Equal(t, model.RegistrationStatusConfirmed, reg.Status)
		}
	}

	assert.Equal(t, 2, confirmedCount)
	assert.Equal(t, 1, waitlistedCount)
}
