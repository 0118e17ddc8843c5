package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/service/ports"
)

// DefaultLockTimeout bounds how long a writer waits for the room-day lock.
const DefaultLockTimeout = 5 * time.Second

const reservationColumns = `id, owner_id, room_id, booking_date, start_time, end_time, status, purpose,
	created_at, updated_at, cancelled_at, cancelled_by`

// ReservationRepo stores reservations in MySQL.  Writes for one
// (room, date) are serialized with a named lock (GET_LOCK) held on a
// dedicated connection for the duration of the transaction, which keeps
// the conflict check and the write atomic across service instances.
type ReservationRepo struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewReservationRepo returns a repository bound to db.  A non-positive
// lockTimeout selects DefaultLockTimeout.
func NewReservationRepo(db *sql.DB, lockTimeout time.Duration) *ReservationRepo {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &ReservationRepo{db: db, lockTimeout: lockTimeout}
}

// DB exposes the underlying handle for health checks.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// WithinRoomDay acquires the room-day lock, runs fn inside a transaction
// on the same connection and commits when fn returns nil.  The lock is
// released after commit or rollback.
func (r *ReservationRepo) WithinRoomDay(ctx context.Context, roomID uint64, date model.Date, fn func(tx ports.ReservationTx) error) (err error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	name := lockName(roomID, date)
	start := time.Now()
	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, ?)`, name, int(r.lockTimeout/time.Second)).Scan(&got); err != nil {
		return fmt.Errorf("get lock %s: %w", name, err)
	}
	if !got.Valid || got.Int64 != 1 {
		return fmt.Errorf("%w: %s", ErrLockTimeout, name)
	}
	observeLockWait(start)
	defer func() {
		if _, rerr := conn.ExecContext(context.WithoutCancel(ctx), `DO RELEASE_LOCK(?)`, name); rerr != nil {
			// A named lock lives as long as its session; drop the
			// connection rather than return it to the pool still locked.
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&reservationTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// GetByID loads one reservation.  It returns model.ErrNotFound when no
// row matches.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return getReservation(ctx, r.db, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
}

// ActiveForRoomDay returns the confirmed reservations of a room on date
// without locking.  Used by availability probes.
func (r *ReservationRepo) ActiveForRoomDay(ctx context.Context, roomID uint64, date model.Date) ([]model.Reservation, error) {
	return queryReservations(ctx, r.db, activeQuery, roomID, date, model.StatusConfirmed)
}

// List returns reservations matching f, newest date and start first.
func (r *ReservationRepo) List(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	var (
		where []string
		args  []any
	)
	if f.RoomID != 0 {
		where = append(where, "room_id = ?")
		args = append(args, f.RoomID)
	}
	if f.OwnerID != 0 {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if !f.Date.IsZero() {
		where = append(where, "booking_date = ?")
		args = append(args, f.Date)
	}
	if f.Status != 0 {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	q := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY booking_date DESC, start_time DESC, id DESC`
	return queryReservations(ctx, r.db, q, args...)
}

// ListByRoomDay returns a room's reservations on date whose status is in
// statuses, earliest start first.
func (r *ReservationRepo) ListByRoomDay(ctx context.Context, roomID uint64, date model.Date, statuses []model.Status) ([]model.Reservation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := []any{roomID, date}
	for _, st := range statuses {
		args = append(args, st)
	}
	q := `SELECT ` + reservationColumns + ` FROM reservations
	      WHERE room_id = ? AND booking_date = ? AND status IN (?` + strings.Repeat(", ?", len(statuses)-1) + `)
	      ORDER BY start_time ASC, id ASC`
	return queryReservations(ctx, r.db, q, args...)
}

// ListElapsed returns up to limit confirmed reservations whose end is at
// or before (nowDate, nowTime), oldest first.
func (r *ReservationRepo) ListElapsed(ctx context.Context, nowDate model.Date, nowTime model.TimeOfDay, limit int) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
	           WHERE status = ? AND (booking_date < ? OR (booking_date = ? AND end_time <= ?))
	           ORDER BY booking_date ASC, end_time ASC
	           LIMIT ?`
	return queryReservations(ctx, r.db, q, model.StatusConfirmed, nowDate, nowDate, nowTime, limit)
}

const activeQuery = `SELECT ` + reservationColumns + ` FROM reservations
	WHERE room_id = ? AND booking_date = ? AND status = ?`

// reservationTx implements ports.ReservationTx over a *sql.Tx opened
// under the room-day lock.
type reservationTx struct {
	tx *sql.Tx
}

func (t *reservationTx) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return getReservation(ctx, t.tx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id)
}

func (t *reservationTx) ActiveForRoomDay(ctx context.Context, roomID uint64, date model.Date) ([]model.Reservation, error) {
	return queryReservations(ctx, t.tx, activeQuery, roomID, date, model.StatusConfirmed)
}

// Insert stores a new reservation and sets its generated ID.
func (t *reservationTx) Insert(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
	           (owner_id, room_id, booking_date, start_time, end_time, status, purpose, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := t.tx.ExecContext(ctx, q,
		res.OwnerID, res.RoomID, res.Date, res.StartTime, res.EndTime, res.Status, res.Purpose,
		res.CreatedAt.UTC(), res.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	res.ID = uint64(id)
	return nil
}

// Update writes the mutable columns of an existing reservation.
func (t *reservationTx) Update(ctx context.Context, res *model.Reservation) error {
	const q = `UPDATE reservations
	           SET start_time = ?, end_time = ?, status = ?, purpose = ?, updated_at = ?, cancelled_at = ?, cancelled_by = ?
	           WHERE id = ?`
	var cancelledAt *time.Time
	if res.CancelledAt != nil {
		at := res.CancelledAt.UTC()
		cancelledAt = &at
	}
	_, err := t.tx.ExecContext(ctx, q,
		res.StartTime, res.EndTime, res.Status, res.Purpose, res.UpdatedAt.UTC(), cancelledAt, res.CancelledBy,
		res.ID,
	)
	if err != nil {
		return fmt.Errorf("update reservation %d: %w", res.ID, err)
	}
	return nil
}

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(
		&res.ID, &res.OwnerID, &res.RoomID, &res.Date, &res.StartTime, &res.EndTime, &res.Status, &res.Purpose,
		&res.CreatedAt, &res.UpdatedAt, &res.CancelledAt, &res.CancelledBy,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func getReservation(ctx context.Context, q querier, query string, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get reservation %d: %w", id, err)
	}
	return res, nil
}

func queryReservations(ctx context.Context, q querier, query string, args ...any) ([]model.Reservation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}
	return out, nil
}
