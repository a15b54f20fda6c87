package app_errors

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrAlreadyRegistered    = errors.New("already registered for event")
	ErrRegistrationClosed   = errors.New("registration is closed for event")
	ErrCapacityExceeded     = errors.New("event is at maximum capacity")
	ErrScheduleConflict     = errors.New("schedule conflict with existing registration")
	ErrInvalidTransition    = errors.New("invalid registration status transition")
	ErrInvalidToken         = errors.New("invalid check-in token")
	ErrInvalidCheckInMethod = errors.New("invalid check-in method")
	ErrInvalidEventTimes    = errors.New("invalid event times")
	ErrForbidden            = errors.New("actor is not allowed to perform this action")
	ErrLedgerNotSeeded      = errors.New("capacity ledger not seeded for event")
	ErrInternalServerError  = errors.New("internal server error")
)

// ConflictError reports the first existing registration whose event window
// overlaps the candidate's. The caller decides whether to reject or warn.
type ConflictError struct {
	EventID    uuid.UUID
	EventTitle string
	Start      time.Time
	End        time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("schedule conflict with event %q (%s - %s)",
		e.EventTitle, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// Is lets errors.Is(err, ErrScheduleConflict) match a *ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrScheduleConflict
}
