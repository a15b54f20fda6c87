package model

import "github.com/google/uuid"

// Role is a closed enumeration; what each role may do lives in the
// capability table below instead of ad hoc string comparisons.
type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleStaff     Role = "staff"
	RoleAttendee  Role = "attendee"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleOrganizer, RoleStaff, RoleAttendee:
		return true
	}
	return false
}

type capability struct {
	cancelAny   bool
	checkIn     bool
	markNoShow  bool
	mutateEvent bool
}

var capabilities = map[Role]capability{
	RoleOrganizer: {cancelAny: true, checkIn: true, markNoShow: true, mutateEvent: true},
	RoleStaff:     {cancelAny: true, checkIn: true},
	RoleAttendee:  {},
}

// Actor identifies who is performing an operation. Identity resolution is
// an external concern; the core only checks capabilities.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// CanCancel allows registrants to withdraw their own registration and
// organizer/staff to cancel any.
func (a Actor) CanCancel(r *Registration) bool {
	if a.ID == r.RegistrantID {
		return true
	}
	return capabilities[a.Role].cancelAny
}

func (a Actor) CanCheckIn() bool {
	return capabilities[a.Role].checkIn
}

func (a Actor) CanMarkNoShow() bool {
	return capabilities[a.Role].markNoShow
}

func (a Actor) CanMutateEvent(e *Event) bool {
	if a.ID == e.OrganizerID {
		return true
	}
	return capabilities[a.Role].mutateEvent
}
