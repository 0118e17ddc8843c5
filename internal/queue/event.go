// Package queue carries reservation traffic over RabbitMQ: lifecycle
// events for other services and the audit outbox that retries history
// writes the service could not complete inline.
package queue

import (
	"time"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// ReservationEvent is published on every lifecycle transition.  It
// contains enough information for downstream consumers to notify or
// index without querying the reservation database.
type ReservationEvent struct {
	EventID       string              `json:"event_id"`
	Action        model.HistoryAction `json:"action"`
	ReservationID uint64              `json:"reservation_id"`
	OwnerID       uint64              `json:"owner_id"`
	RoomID        uint64              `json:"room_id"`
	Date          model.Date          `json:"date"`
	StartTime     model.TimeOfDay     `json:"start_time"`
	EndTime       model.TimeOfDay     `json:"end_time"`
	Status        model.Status        `json:"status"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// NewReservationEvent snapshots r after action was applied.
func NewReservationEvent(id string, action model.HistoryAction, r model.Reservation) ReservationEvent {
	return ReservationEvent{
		EventID:       id,
		Action:        action,
		ReservationID: r.ID,
		OwnerID:       r.OwnerID,
		RoomID:        r.RoomID,
		Date:          r.Date,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Status:        r.Status,
		OccurredAt:    r.UpdatedAt.UTC(),
	}
}
