package model

import "time"

// HistoryAction names the transition captured by a history entry.
type HistoryAction string

const (
	ActionCreated   HistoryAction = "created"
	ActionUpdated   HistoryAction = "updated"
	ActionCancelled HistoryAction = "cancelled"
	ActionCompleted HistoryAction = "completed"
)

// HistoryEntry is an immutable audit record of one reservation
// transition.  Entries are appended once per mutating operation and are
// never modified afterwards.
//
// Fields:
//  ID            – primary key identifier.
//  EventID       – uuid assigned by the recorder; makes outbox replays idempotent.
//  ReservationID – reservation the entry belongs to.
//  OwnerID       – owner of the reservation at the time of the change.
//  RoomID        – room of the reservation.
//  Action        – created, updated, cancelled or completed.
//  ChangedBy     – user who triggered the change; nil for system transitions.
//  Timestamp     – when the change happened.
//  Previous      – interval before the change (updates only).
//  New           – interval after the change (creation and updates).
type HistoryEntry struct {
	ID            uint64        `json:"id"`                 // reservation_history.id
	EventID       string        `json:"event_id"`           // reservation_history.event_id
	ReservationID uint64        `json:"reservation_id"`     // reservation_history.reservation_id
	OwnerID       uint64        `json:"owner_id"`           // reservation_history.owner_id
	RoomID        uint64        `json:"room_id"`            // reservation_history.room_id
	Action        HistoryAction `json:"action"`             // reservation_history.action
	ChangedBy     *uint64       `json:"changed_by"`         // reservation_history.changed_by (nullable)
	Timestamp     time.Time     `json:"timestamp"`          // reservation_history.created_at
	Previous      *Interval     `json:"previous,omitempty"` // previous_start_time/previous_end_time
	New           *Interval     `json:"new,omitempty"`      // new_start_time/new_end_time
}
