package schedule

import (
	"time"

	"go-event-registration/internal/model"
)

// FindConflict returns the first existing event whose time window overlaps
// the candidate's, or nil. Only events on the candidate's calendar date are
// compared; the candidate itself is always excluded so re-checks against a
// registrant's own prior registration cannot self-conflict.
//
// Overlap is half-open: startC < endE && endC > startE, so touching
// endpoints do not conflict unless AllowTouchingEndpoints is disabled.
func (e Engine) FindConflict(candidate *model.Event, existing []*model.Event) *model.Event {
	startC, endC := e.Window(candidate)

	for _, ev := range existing {
		if ev.ID == candidate.ID {
			continue
		}
		if !sameDate(ev.StartDate, candidate.StartDate) {
			continue
		}

		startE, endE := e.Window(ev)
		if e.overlaps(startC, endC, startE, endE) {
			return ev
		}
	}

	return nil
}

func (e Engine) overlaps(startA, endA, startB, endB time.Time) bool {
	if e.AllowTouchingEndpoints {
		return startA.Before(endB) && endA.After(startB)
	}
	return !startA.After(endB) && !endA.Before(startB)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
