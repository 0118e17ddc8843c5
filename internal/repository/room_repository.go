package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// RoomRepo reads the rooms catalog.  The catalog is owned by another
// service sharing the database; this repository never writes to it.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// RoomByID retrieves a room by ID.  It returns model.ErrRoomNotFound
// when no row is found.
func (r *RoomRepo) RoomByID(ctx context.Context, id uint64) (*model.Room, error) {
	const q = `SELECT id, name, capacity, location, is_available FROM rooms WHERE id = ?`
	var room model.Room
	err := r.db.QueryRowContext(ctx, q, id).Scan(&room.ID, &room.Name, &room.Capacity, &room.Location, &room.Available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room %d: %w", id, err)
	}
	return &room, nil
}
