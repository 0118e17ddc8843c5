package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

func TestStateMachineLifecycle(t *testing.T) {
	at := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	m := StateMachine{}

	r := m.New(5, 7, day("2030-01-02"), model.Interval{Start: tod("09:00"), End: tod("10:00")}, nil, at)
	assert.Equal(t, model.StatusConfirmed, r.Status)
	assert.Equal(t, at, r.CreatedAt)

	purpose := "planning"
	next := model.Interval{Start: tod("10:00"), End: tod("11:00")}
	require.NoError(t, m.Modify(r, &next, &purpose, at.Add(time.Minute)))
	assert.Equal(t, next, r.Interval())
	assert.Equal(t, "planning", *r.Purpose)
	assert.Equal(t, model.StatusConfirmed, r.Status)

	require.NoError(t, m.Cancel(r, 9, at.Add(2*time.Minute)))
	assert.Equal(t, model.StatusCancelled, r.Status)
	require.NotNil(t, r.CancelledBy)
	assert.Equal(t, uint64(9), *r.CancelledBy)
	require.NotNil(t, r.CancelledAt)

	assert.ErrorIs(t, m.Cancel(r, 9, at), model.ErrInvalidState)
	assert.ErrorIs(t, m.Modify(r, &next, nil, at), model.ErrInvalidState)
	assert.ErrorIs(t, m.Complete(r, at), model.ErrInvalidState)
}

func TestStateMachineCompleted(t *testing.T) {
	at := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	r := &model.Reservation{Status: model.StatusConfirmed}

	require.NoError(t, StateMachine{}.Complete(r, at))
	assert.Equal(t, model.StatusCompleted, r.Status)

	assert.NoError(t, StateMachine{}.CanModify(r), "completed reservations stay mutable by default")
	assert.ErrorIs(t, StateMachine{LockCompleted: true}.CanModify(r), model.ErrInvalidState)
	assert.ErrorIs(t, StateMachine{LockCompleted: true}.Cancel(r, 1, at), model.ErrInvalidState)

	require.NoError(t, StateMachine{}.Cancel(r, 1, at))
	assert.Equal(t, model.StatusCancelled, r.Status)
}
