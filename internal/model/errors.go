package model

import (
	"errors"
	"fmt"
)

// Error kinds raised by the reservation core.  Handlers translate them
// into HTTP statuses; callers compare with errors.Is.
var (
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound is returned when a reservation does not exist.
	ErrNotFound = errors.New("reservation not found")
	// ErrRoomNotFound is returned when a room does not exist or is not
	// accepting bookings.
	ErrRoomNotFound = errors.New("room not found")
	// ErrConflict signals an overlap with an active reservation.
	ErrConflict = errors.New("time slot is already booked")
	// ErrUnauthorized is returned when the actor lacks rights on the
	// reservation.
	ErrUnauthorized = errors.New("you don't have permission to access this reservation")
	// ErrInvalidState is returned when the operation is illegal for the
	// reservation's current status.
	ErrInvalidState = errors.New("invalid reservation state")
)

// RuleError is a business-rule rejection.  Error returns the human
// readable reason; Unwrap exposes the kind so errors.Is keeps working.
type RuleError struct {
	Kind   error
	Reason string
}

func (e *RuleError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Reason
}

func (e *RuleError) Unwrap() error { return e.Kind }

// Reject builds a RuleError of the given kind.
func Reject(kind error, format string, args ...any) error {
	return &RuleError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
