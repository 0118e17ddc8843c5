package ports

import (
	"context"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// ActiveSource lists the active reservations for one room and day.
// Both the store and its locked transactions satisfy it, so the same
// conflict detector serves probes and authoritative checks.
type ActiveSource interface {
	ActiveForRoomDay(ctx context.Context, roomID uint64, date model.Date) ([]model.Reservation, error)
}

// ReservationTx is the view of storage available while the
// per-(room, day) lock is held.  Everything written through it commits
// atomically when the callback passed to WithinRoomDay returns nil.
type ReservationTx interface {
	ActiveSource
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	Insert(ctx context.Context, r *model.Reservation) error
	Update(ctx context.Context, r *model.Reservation) error
}

// ReservationStore persists reservations.
type ReservationStore interface {
	ActiveSource
	// WithinRoomDay runs fn while holding the exclusive write lock for
	// (roomID, date) inside a single transaction.  The lock is released
	// and the transaction rolled back when fn returns an error.
	WithinRoomDay(ctx context.Context, roomID uint64, date model.Date, fn func(tx ReservationTx) error) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	List(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error)
	ListByRoomDay(ctx context.Context, roomID uint64, date model.Date, statuses []model.Status) ([]model.Reservation, error)
	// ListElapsed returns confirmed reservations whose end instant is not
	// after the given time, oldest first, up to limit rows.
	ListElapsed(ctx context.Context, nowDate model.Date, nowTime model.TimeOfDay, limit int) ([]model.Reservation, error)
}
