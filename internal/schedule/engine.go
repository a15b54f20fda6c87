package schedule

import (
	"time"

	"go-event-registration/internal/model"
)

// Engine derives event status and time windows from stored fields plus an
// explicit instant. It holds policy only, no clock and no state, so every
// method is a pure function of its arguments.
type Engine struct {
	// DefaultDuration is assumed when an event has a start time but no
	// end time.
	DefaultDuration time.Duration
	// AllowTouchingEndpoints treats ranges sharing only a boundary
	// instant as non-conflicting.
	AllowTouchingEndpoints bool
}

func NewEngine(defaultDuration time.Duration, allowTouchingEndpoints bool) Engine {
	if defaultDuration <= 0 {
		defaultDuration = 2 * time.Hour
	}
	return Engine{
		DefaultDuration:        defaultDuration,
		AllowTouchingEndpoints: allowTouchingEndpoints,
	}
}

// Window computes the [start, end) occupancy of an event on its calendar
// date. With no times at all the event occupies the full day. An end time
// at or before the start time is read as crossing midnight.
func (e Engine) Window(ev *model.Event) (time.Time, time.Time) {
	day := ev.StartDate.Truncate(24 * time.Hour)

	if ev.StartTime == nil && ev.EndTime == nil {
		return day, day.Add(24 * time.Hour)
	}

	start := day
	if ev.StartTime != nil {
		start = day.Add(clockOffset(*ev.StartTime))
	}

	var end time.Time
	if ev.EndTime != nil {
		end = day.Add(clockOffset(*ev.EndTime))
		if !end.After(start) {
			end = end.Add(24 * time.Hour)
		}
	} else {
		end = start.Add(e.DefaultDuration)
	}

	return start, end
}

// DeriveStatus maps an event and an instant to its live status. The
// cancelled lifecycle flag is terminal and overrides all time logic.
func (e Engine) DeriveStatus(ev *model.Event, now time.Time) model.EventStatus {
	if ev.IsCancelled() {
		return model.EventStatusCancelled
	}

	start, end := e.Window(ev)
	switch {
	case now.Before(start):
		return model.EventStatusUpcoming
	case now.After(end):
		return model.EventStatusCompleted
	default:
		return model.EventStatusOngoing
	}
}

// ParseClockTime validates an "HH:MM" reading. Window itself assumes
// validated input; creation-time validation goes through here.
func ParseClockTime(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func clockOffset(s string) time.Duration {
	d, err := ParseClockTime(s)
	if err != nil {
		return 0
	}
	return d
}
