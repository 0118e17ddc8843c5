package service

import (
	"time"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// StateMachine applies lifecycle transitions to a reservation in place.
// It performs no I/O; persistence and auditing are the caller's job.
//
//	confirmed --Modify--> confirmed
//	confirmed --Cancel--> cancelled
//	confirmed --Complete--> completed
//	completed --Modify/Cancel--> unless LockCompleted
//
// Nothing leaves cancelled.
type StateMachine struct {
	LockCompleted bool
}

// New returns a freshly confirmed reservation.  ID is left for storage
// to assign.
func (m StateMachine) New(ownerID, roomID uint64, date model.Date, iv model.Interval, purpose *string, at time.Time) *model.Reservation {
	return &model.Reservation{
		OwnerID:   ownerID,
		RoomID:    roomID,
		Date:      date,
		StartTime: iv.Start,
		EndTime:   iv.End,
		Status:    model.StatusConfirmed,
		Purpose:   purpose,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// CanModify reports whether r may have its interval or purpose changed.
func (m StateMachine) CanModify(r *model.Reservation) error {
	switch r.Status {
	case model.StatusConfirmed:
		return nil
	case model.StatusCancelled:
		return model.Reject(model.ErrInvalidState, "cannot modify a cancelled reservation")
	case model.StatusCompleted:
		if m.LockCompleted {
			return model.Reject(model.ErrInvalidState, "cannot modify a completed reservation")
		}
		return nil
	}
	return model.Reject(model.ErrInvalidState, "reservation has unknown status %s", r.Status)
}

// Modify replaces the interval and/or purpose.  A nil argument leaves
// the field untouched; status is preserved.
func (m StateMachine) Modify(r *model.Reservation, iv *model.Interval, purpose *string, at time.Time) error {
	if err := m.CanModify(r); err != nil {
		return err
	}
	if iv != nil {
		r.StartTime, r.EndTime = iv.Start, iv.End
	}
	if purpose != nil {
		r.Purpose = purpose
	}
	r.UpdatedAt = at
	return nil
}

// Cancel soft-deletes r on behalf of user by.
func (m StateMachine) Cancel(r *model.Reservation, by uint64, at time.Time) error {
	switch r.Status {
	case model.StatusConfirmed:
	case model.StatusCancelled:
		return model.Reject(model.ErrInvalidState, "reservation is already cancelled")
	case model.StatusCompleted:
		if m.LockCompleted {
			return model.Reject(model.ErrInvalidState, "cannot cancel a completed reservation")
		}
	default:
		return model.Reject(model.ErrInvalidState, "reservation has unknown status %s", r.Status)
	}
	r.Status = model.StatusCancelled
	r.CancelledAt = &at
	r.CancelledBy = &by
	r.UpdatedAt = at
	return nil
}

// Complete marks an elapsed confirmed reservation as completed.
func (m StateMachine) Complete(r *model.Reservation, at time.Time) error {
	if r.Status != model.StatusConfirmed {
		return model.Reject(model.ErrInvalidState, "only confirmed reservations can be completed, got %s", r.Status)
	}
	r.Status = model.StatusCompleted
	r.UpdatedAt = at
	return nil
}
