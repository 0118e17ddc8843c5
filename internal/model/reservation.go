package model

import "time"

// Reservation records a user's booking of a room for an interval on a
// single day.  Reservations are never deleted: cancellation is a status
// change, so the row stays available for the audit trail.
//
// Fields:
//  ID          – primary key identifier, assigned on insert.
//  OwnerID     – user who made the reservation.
//  RoomID      – room being reserved.
//  Date        – calendar day of the reservation.
//  StartTime   – inclusive start of the interval.
//  EndTime     – exclusive end of the interval.
//  Status      – confirmed, cancelled or completed.
//  Purpose     – optional free-text annotation.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last modification timestamp.
//  CancelledAt – set when the reservation is cancelled.
//  CancelledBy – user who cancelled the reservation.
type Reservation struct {
	ID          uint64     `json:"id"`                     // reservations.id
	OwnerID     uint64     `json:"owner_id"`               // reservations.owner_id
	RoomID      uint64     `json:"room_id"`                // reservations.room_id
	Date        Date       `json:"date"`                   // reservations.booking_date
	StartTime   TimeOfDay  `json:"start_time"`             // reservations.start_time
	EndTime     TimeOfDay  `json:"end_time"`               // reservations.end_time
	Status      Status     `json:"status"`                 // reservations.status
	Purpose     *string    `json:"purpose,omitempty"`      // reservations.purpose (nullable)
	CreatedAt   time.Time  `json:"created_at"`             // reservations.created_at
	UpdatedAt   time.Time  `json:"updated_at"`             // reservations.updated_at
	CancelledAt *time.Time `json:"cancelled_at,omitempty"` // reservations.cancelled_at (nullable)
	CancelledBy *uint64    `json:"cancelled_by,omitempty"` // reservations.cancelled_by (nullable)
}

// Interval returns the reservation's [start, end) span.
func (r *Reservation) Interval() Interval {
	return Interval{Start: r.StartTime, End: r.EndTime}
}

// EndsAt returns the absolute instant at which the reservation ends.
func (r *Reservation) EndsAt() time.Time { return r.Date.At(r.EndTime) }

// ReservationFilter narrows list queries.  Zero values mean "any".
type ReservationFilter struct {
	RoomID  uint64
	OwnerID uint64
	Date    Date
	Status  Status
}
