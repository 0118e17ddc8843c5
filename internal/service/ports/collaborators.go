package ports

import (
	"context"
	"time"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// RoomLookup is the room catalog.  It returns model.ErrRoomNotFound for
// unknown rooms.
type RoomLookup interface {
	RoomByID(ctx context.Context, id uint64) (*model.Room, error)
}

// HistoryStore is the append-only audit trail.
type HistoryStore interface {
	AppendHistory(ctx context.Context, e *model.HistoryEntry) error
	ListHistory(ctx context.Context, reservationID uint64) ([]model.HistoryEntry, error)
}

// AuditOutbox accepts history entries that could not be written
// directly; a consumer appends them to the HistoryStore later.
type AuditOutbox interface {
	EnqueueHistory(ctx context.Context, e model.HistoryEntry) error
}

// EventPublisher announces reservation lifecycle changes to other
// services.  Publishing is best-effort.
type EventPublisher interface {
	PublishReservationEvent(ctx context.Context, action model.HistoryAction, r model.Reservation) error
}

// AvailabilityCache holds short-lived answers to availability probes.
// It is never consulted for the authoritative check inside mutations.
type AvailabilityCache interface {
	Get(ctx context.Context, roomID uint64, date model.Date, iv model.Interval) (available bool, ok bool)
	Set(ctx context.Context, roomID uint64, date model.Date, iv model.Interval, available bool)
	Invalidate(ctx context.Context, roomID uint64, date model.Date)
}

// Clock supplies the current time; tests inject a fixed one.
type Clock interface {
	Now() time.Time
}
