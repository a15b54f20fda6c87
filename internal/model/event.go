package model

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is always derived from the event's stored fields and the
// current instant. It is never persisted; only the cancelled lifecycle flag
// is stored truth.
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusOngoing   EventStatus = "ongoing"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// LifecycleFlag is the only status an operator may set directly.
type LifecycleFlag string

const (
	LifecycleNone      LifecycleFlag = "none"
	LifecycleCancelled LifecycleFlag = "cancelled"
)

type Event struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description,omitempty" db:"description"`

	// StartDate is the calendar date of the event (midnight UTC).
	// StartTime and EndTime are optional "HH:MM" clock readings on that
	// date. An EndTime at or before StartTime means the event crosses
	// midnight.
	StartDate time.Time `json:"start_date" db:"start_date"`
	StartTime *string   `json:"start_time,omitempty" db:"start_time"`
	EndTime   *string   `json:"end_time,omitempty" db:"end_time"`

	// MaxParticipants of 0 means unlimited.
	MaxParticipants int           `json:"max_participants" db:"max_participants"`
	LifecycleFlag   LifecycleFlag `json:"lifecycle_flag" db:"lifecycle_flag"`

	OrganizerID uuid.UUID `json:"organizer_id" db:"organizer_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (e *Event) IsCancelled() bool {
	return e.LifecycleFlag == LifecycleCancelled
}

// Unlimited reports whether the event has no capacity limit.
func (e *Event) Unlimited() bool {
	return e.MaxParticipants <= 0
}

type CreateEventRequest struct {
	Title           string    `json:"title" binding:"required"`
	Description     *string   `json:"description"`
	StartDate       time.Time `json:"start_date" binding:"required" time_format:"2006-01-02"`
	StartTime       *string   `json:"start_time"`
	EndTime         *string   `json:"end_time"`
	MaxParticipants int       `json:"max_participants" binding:"min=0"`
	OrganizerID     uuid.UUID `json:"organizer_id" binding:"required"`
}

type UpdateEventParams struct {
	Title           *string
	Description     *string
	MaxParticipants *int
}

// EventResponse is an Event plus its derived status at read time.
type EventResponse struct {
	Event
	Status EventStatus `json:"status"`
}

// EventSummary reports registration progress for an event.
type EventSummary struct {
	EventID         uuid.UUID   `json:"event_id"`
	Status          EventStatus `json:"status"`
	MaxParticipants int         `json:"max_participants"`
	ConfirmedCount  int         `json:"confirmed_count"`
	RemainingSlots  int         `json:"remaining_slots"`
	WaitlistLength  int         `json:"waitlist_length"`
	CheckedInCount  int         `json:"checked_in_count"`
}
