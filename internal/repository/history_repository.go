package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// HistoryRepo persists the append-only reservation_history table.  Rows
// are never updated or deleted.
type HistoryRepo struct {
	db *sql.DB
}

// NewHistoryRepo returns a HistoryRepo bound to db.
func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

// AppendHistory inserts e and sets its ID.  event_id is unique, so an
// entry redelivered by the audit outbox is accepted without creating a
// second row.
func (r *HistoryRepo) AppendHistory(ctx context.Context, e *model.HistoryEntry) error {
	const q = `INSERT INTO reservation_history
	           (event_id, reservation_id, owner_id, room_id, action, changed_by,
	            previous_start_time, previous_end_time, new_start_time, new_end_time, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	prevStart, prevEnd := intervalArgs(e.Previous)
	newStart, newEnd := intervalArgs(e.New)
	res, err := r.db.ExecContext(ctx, q,
		e.EventID, e.ReservationID, e.OwnerID, e.RoomID, string(e.Action), e.ChangedBy,
		prevStart, prevEnd, newStart, newEnd, e.Timestamp.UTC(),
	)
	if err != nil {
		if isDuplicate(err) {
			return nil
		}
		return fmt.Errorf("insert history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	e.ID = uint64(id)
	return nil
}

// ListHistory returns the entries of one reservation, newest first.
func (r *HistoryRepo) ListHistory(ctx context.Context, reservationID uint64) ([]model.HistoryEntry, error) {
	const q = `SELECT id, event_id, reservation_id, owner_id, room_id, action, changed_by,
	                  previous_start_time, previous_end_time, new_start_time, new_end_time, created_at
	           FROM reservation_history
	           WHERE reservation_id = ?
	           ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var (
			e                  model.HistoryEntry
			action             string
			prevStart, prevEnd sql.Null[model.TimeOfDay]
			newStart, newEnd   sql.Null[model.TimeOfDay]
		)
		if err := rows.Scan(
			&e.ID, &e.EventID, &e.ReservationID, &e.OwnerID, &e.RoomID, &action, &e.ChangedBy,
			&prevStart, &prevEnd, &newStart, &newEnd, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Action = model.HistoryAction(action)
		e.Previous = intervalFrom(prevStart, prevEnd)
		e.New = intervalFrom(newStart, newEnd)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

func intervalArgs(iv *model.Interval) (start, end any) {
	if iv == nil {
		return nil, nil
	}
	return iv.Start, iv.End
}

func intervalFrom(start, end sql.Null[model.TimeOfDay]) *model.Interval {
	if !start.Valid || !end.Valid {
		return nil
	}
	return &model.Interval{Start: start.V, End: end.V}
}
