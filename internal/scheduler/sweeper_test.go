package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) CompleteElapsed(ctx context.Context) ([]model.Reservation, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]model.Reservation)
	return out, args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweeper_Tick_CompletesElapsed(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("CompleteElapsed", mock.Anything).
		Return([]model.Reservation{{ID: 1, RoomID: 7, Status: model.StatusCompleted}}, nil)

	s := New(completer, 50*time.Millisecond, newTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	s.Start(ctx)

	assert.GreaterOrEqual(t, len(completer.Calls), 1)
}

func TestSweeper_Tick_HandlesError(t *testing.T) {
	completer := &mockCompleter{}
	completer.On("CompleteElapsed", mock.Anything).Return(nil, errors.New("db error"))

	s := New(completer, 50*time.Millisecond, newTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	s.Start(ctx)

	assert.GreaterOrEqual(t, len(completer.Calls), 1)
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
	completer := &mockCompleter{}
	s := New(completer, time.Second, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
	completer.AssertNotCalled(t, "CompleteElapsed", mock.Anything)
}
