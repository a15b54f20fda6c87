package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-event-registration/internal/model"
	"go-event-registration/pkg/app_errors"
)

func newRegistration(eventID, registrantID uuid.UUID) *model.Registration {
	return &model.Registration{
		ID:           uuid.New(),
		EventID:      eventID,
		RegistrantID: registrantID,
		Name:         "Test Attendee",
		Email:        registrantID.String() + "@example.com",
		Source:       model.RegistrationSourceWebsite,
		Status:       model.RegistrationStatusConfirmed,
		RegisteredAt: time.Now().UTC(),
	}
}

func waitlistedRegistration(eventID uuid.UUID, position int, enqueuedAt time.Time) *model.Registration {
	reg := newRegistration(eventID, uuid.New())
	reg.Status = model.RegistrationStatusRegistered
	reg.Waitlist = model.WaitlistInfo{
		OnWaitlist: true,
		Position:   &position,
		EnqueuedAt: &enqueuedAt,
	}
	return reg
}

func TestMemoryRegistrationRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("DuplicateActiveRejected", func(t *testing.T) {
		repo := NewMemoryRegistrationRepository()
		eventID, registrantID := uuid.New(), uuid.New()

		_, err := repo.Create(ctx, newRegistration(eventID, registrantID))
		require.NoError(t, err)

		_, err = repo.Create(ctx, newRegistration(eventID, registrantID))
		assert.ErrorIs(t, err, app_errors.ErrAlreadyRegistered)
	})

	t.Run("ReRegistrationAfterCancellation", func(t *testing.T) {
		repo := NewMemoryRegistrationRepository()
		eventID, registrantID := uuid.New(), uuid.New()

		first, err := repo.Create(ctx, newRegistration(eventID, registrantID))
		require.NoError(t, err)

		first.Status = model.RegistrationStatusCancelled
		_, err = repo.Update(ctx, first)
		require.NoError(t, err)

		// The cancelled row stays; a fresh registration is a new row.
		second, err := repo.Create(ctx, newRegistration(eventID, registrantID))
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		regs, err := repo.ListByEvent(ctx, eventID)
		require.NoError(t, err)
		assert.Len(t, regs, 2)
	})

	t.Run("SameRegistrantDifferentEvents", func(t *testing.T) {
		repo := NewMemoryRegistrationRepository()
		registrantID := uuid.New()

		_, err := repo.Create(ctx, newRegistration(uuid.New(), registrantID))
		require.NoError(t, err)
		_, err = repo.Create(ctx, newRegistration(uuid.New(), registrantID))
		require.NoError(t, err)
	})
}

func TestMemoryRegistrationRepository_Waitlist(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)

	t.Run("FIFOByEnqueueTime", func(t *testing.T) {
		repo := NewMemoryRegistrationRepository()
		eventID := uuid.New()

		// Inserted out of order on purpose.
		second := waitlistedRegistration(eventID, 2, base.Add(time.Minute))
		first := waitlistedRegistration(eventID, 1, base)
		third := waitlistedRegistration(eventID, 3, base.Add(2*time.Minute))
		for _, reg := range []*model.Registration{second, first, third} {
			_, err := repo.Create(ctx, reg)
			require.NoError(t, err)
		}

		positions, err := repo.WaitlistPositions(ctx, eventID)
		require.NoError(t, err)
		require.Len(t, positions, 3)
		assert.Equal(t, first.ID, positions[0].ID)
		assert.Equal(t, second.ID, positions[1].ID)
		assert.Equal(t, third.ID, positions[2].ID)

		next, err := repo.NextWaitlisted(ctx, eventID)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, first.ID, next.ID)
	})

	t.Run("TieBreakByRegistrationID", func(t *testing.T) {
		repo := NewMemoryRegistrationRepository()
		eventID := uuid.New()

		a := waitlistedRegistration(eventID, 1, base)
		b := waitlistedRegistration(eventID, 2, base)
		for _, reg := range []*model.Registration{a, b} {
			_, err := repo.Create(ctx, reg)
			require.NoError(t, err)
		}

		positions, err := repo.WaitlistPositions(ctx, eventID)
		require.NoError(t, err)
		require.Len(t, positions, 2)
		assert.True(t, positions[0].ID.String() < positions[1].ID.String())
	})

	t.Run("EmptyWaitlist", func(t *testing.T) {
		repo := NewMemoryRegistrationRepository()

		next, err := repo.NextWaitlisted(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, next)

		count, err := repo.CountWaitlisted(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestMemoryRegistrationRepository_Counts(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRegistrationRepository()
	eventID := uuid.New()

	confirmed := newRegistration(eventID, uuid.New())
	checkedIn := newRegistration(eventID, uuid.New())
	checkedIn.Status = model.RegistrationStatusCheckedIn
	cancelled := newRegistration(eventID, uuid.New())
	cancelled.Status = model.RegistrationStatusCancelled
	waitlisted := waitlistedRegistration(eventID, 1, time.Now().UTC())

	for _, reg := range []*model.Registration{confirmed, checkedIn, cancelled, waitlisted} {
		_, err := repo.Create(ctx, reg)
		require.NoError(t, err)
	}

	count, err := repo.CountByEventAndStatuses(ctx, eventID,
		model.RegistrationStatusConfirmed, model.RegistrationStatusCheckedIn)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountByEventAndStatuses(ctx, eventID, model.RegistrationStatusCheckedIn)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryRegistrationRepository_InTx(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRegistrationRepository()
	eventID := uuid.New()

	err := repo.InTx(ctx, func(tx RegistrationRepository) error {
		created, err := tx.Create(ctx, newRegistration(eventID, uuid.New()))
		if err != nil {
			return err
		}

		created.Status = model.RegistrationStatusCheckedIn
		_, err = tx.Update(ctx, created)
		return err
	})
	require.NoError(t, err)

	regs, err := repo.ListByEvent(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, model.RegistrationStatusCheckedIn, regs[0].Status)
}
