package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-event-registration/internal/model"
)

func strPtr(s string) *string { return &s }

func testDay() time.Time {
	return time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
}

func testEvent(startTime, endTime *string) *model.Event {
	return &model.Event{
		Title:     "Go Meetup",
		StartDate: testDay(),
		StartTime: startTime,
		EndTime:   endTime,
	}
}

func TestEngine_Window(t *testing.T) {
	engine := NewEngine(2*time.Hour, true)
	day := testDay()

	t.Run("ExplicitTimes", func(t *testing.T) {
		start, end := engine.Window(testEvent(strPtr("09:00"), strPtr("11:30")))
		assert.Equal(t, day.Add(9*time.Hour), start)
		assert.Equal(t, day.Add(11*time.Hour+30*time.Minute), end)
	})

	t.Run("NoEndTimeUsesDefaultDuration", func(t *testing.T) {
		start, end := engine.Window(testEvent(strPtr("09:00"), nil))
		assert.Equal(t, day.Add(9*time.Hour), start)
		assert.Equal(t, day.Add(11*time.Hour), end)
	})

	t.Run("NoTimesOccupiesFullDay", func(t *testing.T) {
		start, end := engine.Window(testEvent(nil, nil))
		assert.Equal(t, day, start)
		assert.Equal(t, day.Add(24*time.Hour), end)
	})

	t.Run("EndBeforeStartCrossesMidnight", func(t *testing.T) {
		start, end := engine.Window(testEvent(strPtr("22:00"), strPtr("01:00")))
		assert.Equal(t, day.Add(22*time.Hour), start)
		assert.Equal(t, day.Add(25*time.Hour), end)
	})

	t.Run("EndEqualsStartCrossesMidnight", func(t *testing.T) {
		start, end := engine.Window(testEvent(strPtr("10:00"), strPtr("10:00")))
		assert.Equal(t, day.Add(10*time.Hour), start)
		assert.Equal(t, day.Add(34*time.Hour), end)
	})
}

func TestEngine_DeriveStatus(t *testing.T) {
	engine := NewEngine(2*time.Hour, true)
	day := testDay()
	ev := testEvent(strPtr("09:00"), nil) // window 09:00-11:00

	t.Run("BeforeStartIsUpcoming", func(t *testing.T) {
		assert.Equal(t, model.EventStatusUpcoming, engine.DeriveStatus(ev, day.Add(8*time.Hour)))
	})

	t.Run("InsideWindowIsOngoing", func(t *testing.T) {
		assert.Equal(t, model.EventStatusOngoing, engine.DeriveStatus(ev, day.Add(10*time.Hour)))
	})

	t.Run("AfterEndIsCompleted", func(t *testing.T) {
		assert.Equal(t, model.EventStatusCompleted, engine.DeriveStatus(ev, day.Add(11*time.Hour+30*time.Minute)))
	})

	t.Run("BoundariesAreInclusive", func(t *testing.T) {
		assert.Equal(t, model.EventStatusOngoing, engine.DeriveStatus(ev, day.Add(9*time.Hour)))
		assert.Equal(t, model.EventStatusOngoing, engine.DeriveStatus(ev, day.Add(11*time.Hour)))
	})

	t.Run("CancelledFlagOverridesTime", func(t *testing.T) {
		cancelled := testEvent(strPtr("09:00"), nil)
		cancelled.LifecycleFlag = model.LifecycleCancelled
		assert.Equal(t, model.EventStatusCancelled, engine.DeriveStatus(cancelled, day.Add(10*time.Hour)))
	})

	t.Run("PureFunctionOfInstant", func(t *testing.T) {
		now := day.Add(10 * time.Hour)
		first := engine.DeriveStatus(ev, now)
		second := engine.DeriveStatus(ev, now)
		assert.Equal(t, first, second)
	})
}

func TestParseClockTime(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		d, err := ParseClockTime("14:45")
		require.NoError(t, err)
		assert.Equal(t, 14*time.Hour+45*time.Minute, d)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := ParseClockTime("25:00")
		assert.Error(t, err)

		_, err = ParseClockTime("9am")
		assert.Error(t, err)
	})
}
