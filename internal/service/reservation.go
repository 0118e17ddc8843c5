package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/meeting-room-reservation/internal/metrics"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/service/ports"
)

// completeBatch bounds the number of reservations a single sweep moves
// to completed.
const completeBatch = 200

// CreateInput carries the caller-supplied fields of a new reservation.
type CreateInput struct {
	RoomID  uint64
	Date    model.Date
	Start   model.TimeOfDay
	End     model.TimeOfDay
	Purpose *string
}

// UpdateInput carries a partial update.  Nil fields are left as they
// are; a missing Start or End keeps the stored value.
type UpdateInput struct {
	Start   *model.TimeOfDay
	End     *model.TimeOfDay
	Purpose *string
}

// Deps lists the collaborators of a ReservationService.  Store, Rooms,
// History and Clock are required; the rest are optional.
type Deps struct {
	Store   ports.ReservationStore
	Rooms   ports.RoomLookup
	History ports.HistoryStore
	Audit   *AuditRecorder
	Events  ports.EventPublisher
	Cache   ports.AvailabilityCache
	Clock   ports.Clock
	Rules   Rules
	Logger  *slog.Logger
}

// ReservationService orchestrates validation, conflict detection, the
// lifecycle state machine and auditing for room reservations.
type ReservationService struct {
	store   ports.ReservationStore
	rooms   ports.RoomLookup
	history ports.HistoryStore
	audit   *AuditRecorder
	events  ports.EventPublisher
	cache   ports.AvailabilityCache
	clock   ports.Clock
	rules   Rules
	states  StateMachine
	log     *slog.Logger
}

// NewReservationService wires a service.  It panics when a required
// dependency is missing since that is a programming error.
func NewReservationService(d Deps) *ReservationService {
	if d.Store == nil || d.Rooms == nil || d.History == nil || d.Clock == nil {
		panic("reservation service requires store, rooms, history and clock")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Audit == nil {
		d.Audit = NewAuditRecorder(d.History, nil, 0, d.Logger)
	}
	if d.Rules == (Rules{}) {
		d.Rules = DefaultRules()
	}
	return &ReservationService{
		store:   d.Store,
		rooms:   d.Rooms,
		history: d.History,
		audit:   d.Audit,
		events:  d.Events,
		cache:   d.Cache,
		clock:   d.Clock,
		rules:   d.Rules,
		states:  StateMachine{LockCompleted: d.Rules.LockCompleted},
		log:     d.Logger,
	}
}

// Create books a room for the actor.  The conflict check and the insert
// run under the room-day lock so two overlapping requests cannot both
// succeed.
func (s *ReservationService) Create(ctx context.Context, actor model.Actor, in CreateInput) (*model.Reservation, error) {
	now := s.clock.Now()
	iv := model.Interval{Start: in.Start, End: in.End}
	if err := ValidateInterval(in.Date, iv, now, s.rules); err != nil {
		return nil, err
	}
	purpose, err := cleanPurpose(in.Purpose, s.rules.MaxPurposeLen)
	if err != nil {
		return nil, err
	}
	if err := s.requireBookableRoom(ctx, in.RoomID); err != nil {
		return nil, err
	}

	res := s.states.New(actor.UserID, in.RoomID, in.Date, iv, purpose, now)
	err = s.store.WithinRoomDay(ctx, in.RoomID, in.Date, func(tx ports.ReservationTx) error {
		conflict, err := HasConflict(ctx, tx, in.RoomID, in.Date, iv, 0)
		if err != nil {
			return err
		}
		if conflict {
			metrics.IncConflict()
			return model.Reject(model.ErrConflict, "room is already booked for %s on %s", iv, in.Date)
		}
		return tx.Insert(ctx, res)
	})
	if err != nil {
		return nil, wrapStorage("create reservation", err)
	}

	s.log.Info("reservation created",
		slog.Uint64("reservation_id", res.ID),
		slog.Uint64("room_id", res.RoomID),
		slog.Uint64("actor_id", actor.UserID),
		slog.String("date", res.Date.String()),
		slog.String("interval", iv.String()),
	)
	s.afterMutation(ctx, model.ActionCreated, *res, &actor.UserID, nil, &iv)
	return res, nil
}

// GetByID returns a reservation regardless of who owns it.
func (s *ReservationService) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.Reject(model.ErrNotFound, "reservation with ID %d not found", id)
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// GetForActor returns a reservation the actor may read: its owner, an
// elevated role or an auditor.
func (s *ReservationService) GetForActor(ctx context.Context, id uint64, actor model.Actor) (*model.Reservation, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(r) && !actor.Role.CanReadAnyHistory() {
		return nil, model.Reject(model.ErrUnauthorized, "you don't have permission to access this reservation")
	}
	return r, nil
}

// ListForOwner returns the owner's reservations, newest date first.  A
// zero status means any status.
func (s *ReservationService) ListForOwner(ctx context.Context, ownerID uint64, status model.Status) ([]model.Reservation, error) {
	out, err := s.store.List(ctx, model.ReservationFilter{OwnerID: ownerID, Status: status})
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

// ListAll returns every reservation matching f.  Callers must have
// checked that the actor holds an elevated role.
func (s *ReservationService) ListAll(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	out, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

// ListForUser returns a user's reservations to that user or to an
// elevated actor.
func (s *ReservationService) ListForUser(ctx context.Context, userID uint64, actor model.Actor) ([]model.Reservation, error) {
	if actor.UserID != userID && !actor.Role.Elevated() {
		return nil, model.Reject(model.ErrUnauthorized, "you don't have permission to view this user's reservations")
	}
	return s.ListForOwner(ctx, userID, 0)
}

// Update changes the interval and/or purpose of a reservation.  Interval
// rules and the conflict check apply only when a time is supplied.
func (s *ReservationService) Update(ctx context.Context, id uint64, actor model.Actor, in UpdateInput) (*model.Reservation, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeMutation(actor, cur); err != nil {
		return nil, err
	}
	if err := s.states.CanModify(cur); err != nil {
		return nil, err
	}
	purpose, err := cleanPurpose(in.Purpose, s.rules.MaxPurposeLen)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var (
		out        model.Reservation
		prev, next model.Interval
	)
	err = s.store.WithinRoomDay(ctx, cur.RoomID, cur.Date, func(tx ports.ReservationTx) error {
		r, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		prev = r.Interval()
		next = prev
		var change *model.Interval
		if in.Start != nil || in.End != nil {
			if in.Start != nil {
				next.Start = *in.Start
			}
			if in.End != nil {
				next.End = *in.End
			}
			if err := ValidateInterval(r.Date, next, now, s.rules); err != nil {
				return err
			}
			conflict, err := HasConflict(ctx, tx, r.RoomID, r.Date, next, r.ID)
			if err != nil {
				return err
			}
			if conflict {
				metrics.IncConflict()
				return model.Reject(model.ErrConflict, "room is already booked for %s on %s", next, r.Date)
			}
			change = &next
		}
		if err := s.states.Modify(r, change, purpose, now); err != nil {
			return err
		}
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		out = *r
		return nil
	})
	if err != nil {
		return nil, wrapStorage("update reservation", err)
	}

	s.log.Info("reservation updated",
		slog.Uint64("reservation_id", out.ID),
		slog.Uint64("room_id", out.RoomID),
		slog.Uint64("actor_id", actor.UserID),
		slog.String("previous", prev.String()),
		slog.String("interval", next.String()),
	)
	s.afterMutation(ctx, model.ActionUpdated, out, &actor.UserID, &prev, &next)
	return &out, nil
}

// Cancel soft-deletes a reservation.  Its slot becomes bookable again.
func (s *ReservationService) Cancel(ctx context.Context, id uint64, actor model.Actor) (*model.Reservation, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeMutation(actor, cur); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var out model.Reservation
	err = s.store.WithinRoomDay(ctx, cur.RoomID, cur.Date, func(tx ports.ReservationTx) error {
		r, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.states.Cancel(r, actor.UserID, now); err != nil {
			return err
		}
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		out = *r
		return nil
	})
	if err != nil {
		return nil, wrapStorage("cancel reservation", err)
	}

	s.log.Info("reservation cancelled",
		slog.Uint64("reservation_id", out.ID),
		slog.Uint64("room_id", out.RoomID),
		slog.Uint64("actor_id", actor.UserID),
	)
	s.afterMutation(ctx, model.ActionCancelled, out, &actor.UserID, nil, nil)
	return &out, nil
}

// CheckAvailability reports whether the room is free for the interval.
// It takes no lock: the answer is advisory and may be served from cache.
func (s *ReservationService) CheckAvailability(ctx context.Context, roomID uint64, date, start, end string) (bool, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return false, model.Reject(model.ErrValidation, "%s", err.Error())
	}
	iv, err := parseInterval(start, end)
	if err != nil {
		return false, err
	}

	if s.cache != nil {
		if available, ok := s.cache.Get(ctx, roomID, d, iv); ok {
			return available, nil
		}
	}
	conflict, err := HasConflict(ctx, s.store, roomID, d, iv, 0)
	if err != nil {
		return false, fmt.Errorf("check availability: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, roomID, d, iv, !conflict)
	}
	return !conflict, nil
}

// GetSchedule lists the confirmed and completed reservations of a room
// for one day, earliest first.
func (s *ReservationService) GetSchedule(ctx context.Context, roomID uint64, date model.Date) ([]model.Reservation, error) {
	if _, err := s.lookupRoom(ctx, roomID); err != nil {
		return nil, err
	}
	out, err := s.store.ListByRoomDay(ctx, roomID, date, model.ScheduleStatuses)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	return out, nil
}

// GetHistory returns the audit trail of a reservation, newest first.
func (s *ReservationService) GetHistory(ctx context.Context, id uint64, actor model.Actor) ([]model.HistoryEntry, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(r) && !actor.Role.CanReadAnyHistory() {
		return nil, model.Reject(model.ErrUnauthorized, "you don't have permission to view this reservation's history")
	}
	out, err := s.history.ListHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return out, nil
}

// CompleteElapsed moves confirmed reservations whose end has passed to
// completed.  Each transition takes the room-day lock; a reservation
// changed concurrently is skipped.
func (s *ReservationService) CompleteElapsed(ctx context.Context) ([]model.Reservation, error) {
	now := s.clock.Now()
	due, err := s.store.ListElapsed(ctx, model.DateOf(now), model.TimeOfDayOf(now), completeBatch)
	if err != nil {
		return nil, fmt.Errorf("list elapsed reservations: %w", err)
	}

	var done []model.Reservation
	for _, cand := range due {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		var out model.Reservation
		err := s.store.WithinRoomDay(ctx, cand.RoomID, cand.Date, func(tx ports.ReservationTx) error {
			r, err := tx.GetByID(ctx, cand.ID)
			if err != nil {
				return err
			}
			if err := s.states.Complete(r, now); err != nil {
				return err
			}
			if err := tx.Update(ctx, r); err != nil {
				return err
			}
			out = *r
			return nil
		})
		if errors.Is(err, model.ErrInvalidState) || errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return done, fmt.Errorf("complete reservation %d: %w", cand.ID, err)
		}
		s.afterMutation(ctx, model.ActionCompleted, out, nil, nil, nil)
		done = append(done, out)
	}
	if len(done) > 0 {
		s.log.Info("elapsed reservations completed", slog.Int("count", len(done)))
	}
	return done, nil
}

// afterMutation runs the side effects of a committed transition: history,
// metrics, cache invalidation and the lifecycle event.  None of them can
// fail the mutation.
func (s *ReservationService) afterMutation(ctx context.Context, action model.HistoryAction, r model.Reservation, by *uint64, prev, next *model.Interval) {
	s.audit.Record(ctx, model.HistoryEntry{
		EventID:       uuid.NewString(),
		ReservationID: r.ID,
		OwnerID:       r.OwnerID,
		RoomID:        r.RoomID,
		Action:        action,
		ChangedBy:     by,
		Timestamp:     r.UpdatedAt,
		Previous:      prev,
		New:           next,
	})
	metrics.IncTransition(string(action))
	if s.cache != nil {
		s.cache.Invalidate(ctx, r.RoomID, r.Date)
	}

	if s.events == nil {
		return
	}
	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.events.PublishReservationEvent(ctx, action, r); err != nil {
			s.log.Warn("publish reservation event failed",
				slog.Uint64("reservation_id", r.ID),
				slog.String("action", string(action)),
				slog.Any("error", err),
			)
		}
	}(context.WithoutCancel(ctx))
}

func (s *ReservationService) lookupRoom(ctx context.Context, roomID uint64) (*model.Room, error) {
	room, err := s.rooms.RoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) || errors.Is(err, model.ErrNotFound) {
			return nil, model.Reject(model.ErrRoomNotFound, "room with ID %d not found", roomID)
		}
		return nil, fmt.Errorf("look up room: %w", err)
	}
	return room, nil
}

func (s *ReservationService) requireBookableRoom(ctx context.Context, roomID uint64) error {
	room, err := s.lookupRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.Available {
		return model.Reject(model.ErrRoomNotFound, "room %q is not available for booking", room.Name)
	}
	return nil
}

func authorizeMutation(actor model.Actor, r *model.Reservation) error {
	if actor.Owns(r) || actor.Role.Elevated() {
		return nil
	}
	return model.Reject(model.ErrUnauthorized, "you don't have permission to modify this reservation")
}

func parseInterval(start, end string) (model.Interval, error) {
	s, err := model.ParseTimeOfDay(start)
	if err != nil {
		return model.Interval{}, model.Reject(model.ErrValidation, "%s", err.Error())
	}
	e, err := model.ParseTimeOfDay(end)
	if err != nil {
		return model.Interval{}, model.Reject(model.ErrValidation, "%s", err.Error())
	}
	if e <= s {
		return model.Interval{}, model.Reject(model.ErrValidation, "end time must be after start time")
	}
	return model.Interval{Start: s, End: e}, nil
}

// wrapStorage passes business rejections through untouched and adds
// context to infrastructure failures.
func wrapStorage(step string, err error) error {
	var rule *model.RuleError
	if errors.As(err, &rule) {
		return err
	}
	if errors.Is(err, model.ErrNotFound) {
		return model.Reject(model.ErrNotFound, "reservation not found")
	}
	return fmt.Errorf("%s: %w", step, err)
}
