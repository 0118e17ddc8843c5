package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/service/ports"
)

func TestMemoryStoreDiscardsWritesOnError(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	date := mustDate(t, "2030-01-02")

	err := s.WithinRoomDay(ctx, 7, date, func(tx ports.ReservationTx) error {
		r := &model.Reservation{RoomID: 7, Date: date, StartTime: model.NewTimeOfDay(9, 0, 0), EndTime: model.NewTimeOfDay(10, 0, 0), Status: model.StatusConfirmed}
		require.NoError(t, tx.Insert(ctx, r))
		active, err := tx.ActiveForRoomDay(ctx, 7, date)
		require.NoError(t, err)
		assert.Len(t, active, 1, "staged rows are visible inside the transaction")
		return errors.New("abort")
	})
	require.Error(t, err)

	active, err := s.ActiveForRoomDay(ctx, 7, date)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestMemoryStoreUpdateRequiresExistingRow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	date := mustDate(t, "2030-01-02")

	err := s.WithinRoomDay(ctx, 7, date, func(tx ports.ReservationTx) error {
		return tx.Update(ctx, &model.Reservation{ID: 99, RoomID: 7, Date: date})
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryStoreLockHonoursContext(t *testing.T) {
	s := NewMemoryStore()
	date := mustDate(t, "2030-01-02")
	held := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = s.WithinRoomDay(context.Background(), 7, date, func(ports.ReservationTx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.WithinRoomDay(ctx, 7, date, func(ports.ReservationTx) error { return nil })
	assert.ErrorIs(t, err, ErrLockTimeout)

	err = s.WithinRoomDay(context.Background(), 8, date, func(ports.ReservationTx) error { return nil })
	assert.NoError(t, err, "other rooms are not blocked")

	close(release)
}

func TestMemoryStoreHistoryIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendHistory(ctx, &model.HistoryEntry{EventID: "a", ReservationID: 1, Action: model.ActionCreated, Timestamp: base}))
	require.NoError(t, s.AppendHistory(ctx, &model.HistoryEntry{EventID: "b", ReservationID: 1, Action: model.ActionCancelled, Timestamp: base.Add(time.Minute)}))
	require.NoError(t, s.AppendHistory(ctx, &model.HistoryEntry{EventID: "a", ReservationID: 1, Action: model.ActionCreated, Timestamp: base}))
	require.NoError(t, s.AppendHistory(ctx, &model.HistoryEntry{EventID: "c", ReservationID: 2, Action: model.ActionCreated, Timestamp: base}))

	out, err := s.ListHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].EventID)
	assert.Equal(t, "a", out[1].EventID)
}

func TestMemoryStoreRooms(t *testing.T) {
	s := NewMemoryStore()
	s.PutRoom(model.Room{ID: 1, Name: "Focus", Available: true})

	r, err := s.RoomByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Focus", r.Name)

	_, err = s.RoomByID(context.Background(), 2)
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
}
