package model

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the persisted state of a registration.
type RegistrationStatus string

const (
	RegistrationStatusRegistered RegistrationStatus = "registered"
	RegistrationStatusConfirmed  RegistrationStatus = "confirmed"
	RegistrationStatusCheckedIn  RegistrationStatus = "checked-in"
	RegistrationStatusCancelled  RegistrationStatus = "cancelled"
	RegistrationStatusNoShow     RegistrationStatus = "no-show"
)

func (s RegistrationStatus) IsValid() bool {
	switch s {
	case RegistrationStatusRegistered, RegistrationStatusConfirmed,
		RegistrationStatusCheckedIn, RegistrationStatusCancelled,
		RegistrationStatusNoShow:
		return true
	}
	return false
}

// CanTransitionTo reports whether the target status is reachable from s.
// checked-in may still be cancelled retroactively (administrative).
func (s RegistrationStatus) CanTransitionTo(target RegistrationStatus) bool {
	transitions := map[RegistrationStatus][]RegistrationStatus{
		RegistrationStatusRegistered: {RegistrationStatusConfirmed, RegistrationStatusCancelled},
		RegistrationStatusConfirmed:  {RegistrationStatusCheckedIn, RegistrationStatusCancelled, RegistrationStatusNoShow},
		RegistrationStatusCheckedIn:  {RegistrationStatusCancelled},
		RegistrationStatusCancelled:  {},
		RegistrationStatusNoShow:     {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

func (s RegistrationStatus) IsTerminal() bool {
	return s == RegistrationStatusCancelled || s == RegistrationStatusNoShow
}

// CheckInMethod records how a check-in token was presented.
type CheckInMethod string

const (
	CheckInMethodQRCode    CheckInMethod = "qr-code"
	CheckInMethodManual    CheckInMethod = "manual"
	CheckInMethodMobileApp CheckInMethod = "mobile-app"
)

func (m CheckInMethod) IsValid() bool {
	switch m {
	case CheckInMethodQRCode, CheckInMethodManual, CheckInMethodMobileApp:
		return true
	}
	return false
}

// RegistrationSource records where a registration came from.
type RegistrationSource string

const (
	RegistrationSourceWebsite  RegistrationSource = "website"
	RegistrationSourceEmail    RegistrationSource = "email"
	RegistrationSourceReferral RegistrationSource = "referral"
	RegistrationSourceDirect   RegistrationSource = "direct"
	RegistrationSourceOther    RegistrationSource = "other"
)

// WaitlistInfo is set while a registration exceeds event capacity.
// OnWaitlist implies status == registered and no check-in.
type WaitlistInfo struct {
	OnWaitlist bool       `json:"on_waitlist" db:"on_waitlist"`
	Position   *int       `json:"position,omitempty" db:"waitlist_position"`
	EnqueuedAt *time.Time `json:"enqueued_at,omitempty" db:"enqueued_at"`
}

// CheckInInfo records an idempotent check-in. Done implies status ==
// checked-in, and exactly one At timestamp is ever recorded.
type CheckInInfo struct {
	Done   bool          `json:"done" db:"checked_in"`
	At     *time.Time    `json:"at,omitempty" db:"checked_in_at"`
	Method CheckInMethod `json:"method,omitempty" db:"check_in_method"`
}

// Registration is one (event, registrant) pair. Withdrawal is modeled as
// status cancelled, never row deletion, so waitlist ordering history is
// preserved.
type Registration struct {
	ID           uuid.UUID `json:"id" db:"id"`
	EventID      uuid.UUID `json:"event_id" db:"event_id"`
	RegistrantID uuid.UUID `json:"registrant_id" db:"registrant_id"`

	Name   string             `json:"name" db:"name"`
	Email  string             `json:"email" db:"email"`
	Source RegistrationSource `json:"source" db:"source"`

	Status   RegistrationStatus `json:"status" db:"status"`
	Waitlist WaitlistInfo       `json:"waitlist"`
	CheckIn  CheckInInfo        `json:"check_in"`

	// RegisteredAt orders the waitlist (FIFO) and serves audit.
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// HoldsSlot reports whether the registration occupies a confirmed capacity
// slot, i.e. counts against MaxParticipants.
func (r *Registration) HoldsSlot() bool {
	if r.Waitlist.OnWaitlist {
		return false
	}
	switch r.Status {
	case RegistrationStatusConfirmed, RegistrationStatusCheckedIn:
		return true
	}
	return false
}

func (r *Registration) IsCancelled() bool {
	return r.Status == RegistrationStatusCancelled
}

type RegisterRequest struct {
	EventID      uuid.UUID          `json:"event_id" binding:"required"`
	RegistrantID uuid.UUID          `json:"registrant_id" binding:"required"`
	Name         string             `json:"name" binding:"required"`
	Email        string             `json:"email" binding:"required,email"`
	Source       RegistrationSource `json:"source"`
}

type CheckInRequest struct {
	Token  string        `json:"token" binding:"required"`
	Method CheckInMethod `json:"method" binding:"required"`
}

// CheckInResult is an expected operator-facing outcome, not an error.
type CheckInResult string

const (
	CheckInResultSuccess          CheckInResult = "success"
	CheckInResultAlreadyCheckedIn CheckInResult = "already-checked-in"
	CheckInResultNotRegistered    CheckInResult = "not-registered"
)

type CheckInOutcome struct {
	Result       CheckInResult `json:"result"`
	Registration *Registration `json:"registration,omitempty"`
}
