package model

import (
	"database/sql/driver"
	"fmt"
)

// Status is the lifecycle state of a reservation.  It is a closed set:
// the zero value is invalid and every valid value is one of the
// constants below.  Persisted and serialized as its lower-case name.
type Status uint8

const (
	StatusConfirmed Status = iota + 1 // created reservations start here
	StatusCancelled                   // soft-deleted; never returns to confirmed
	StatusCompleted                   // set by the completion sweeper
)

var statusNames = map[Status]string{
	StatusConfirmed: "confirmed",
	StatusCancelled: "cancelled",
	StatusCompleted: "completed",
}

// ActiveStatuses lists the statuses that take part in conflict detection.
var ActiveStatuses = []Status{StatusConfirmed}

// ScheduleStatuses lists the statuses shown on a room's daily schedule.
var ScheduleStatuses = []Status{StatusConfirmed, StatusCompleted}

// ParseStatus converts a status name into a Status.
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown reservation status %q", s)
}

// String returns the persisted name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Active reports whether a reservation in this status blocks its slot.
func (s Status) Active() bool { return s == StatusConfirmed }

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid reservation status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Scan implements sql.Scanner for the reservations.status column.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return s.UnmarshalText(v)
	case string:
		return s.UnmarshalText([]byte(v))
	}
	return fmt.Errorf("cannot scan %T into Status", src)
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid reservation status %d", uint8(s))
	}
	return s.String(), nil
}
