package clock

import "time"

// Clock supplies the current instant. Services take it as a dependency so
// time-boundary behavior is deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// System returns a Clock backed by the wall clock, in UTC.
func System() Clock {
	return systemClock{}
}

// FixedClock always returns the same instant.
type FixedClock struct {
	Instant time.Time
}

func (c FixedClock) Now() time.Time {
	return c.Instant
}

// Fixed returns a Clock frozen at t.
func Fixed(t time.Time) FixedClock {
	return FixedClock{Instant: t}
}
