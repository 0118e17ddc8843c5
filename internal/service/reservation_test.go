package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

var (
	alice   = model.Actor{UserID: 1, Role: model.RoleRegularUser}
	bob     = model.Actor{UserID: 2, Role: model.RoleRegularUser}
	admin   = model.Actor{UserID: 99, Role: model.RoleAdmin}
	auditor = model.Actor{UserID: 50, Role: model.RoleAuditor}
)

type fixture struct {
	svc   *ReservationService
	store *repository.MemoryStore
	clock *fakeClock
}

func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	store.PutRoom(model.Room{ID: 7, Name: "Boardroom", Capacity: 12, Available: true})
	store.PutRoom(model.Room{ID: 8, Name: "Annex", Capacity: 4, Available: false})
	clock := &fakeClock{t: time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)}
	d := Deps{
		Store:   store,
		Rooms:   store,
		History: store,
		Clock:   clock,
		Logger:  discardLogger(),
	}
	for _, o := range opts {
		o(&d)
	}
	return &fixture{svc: NewReservationService(d), store: store, clock: clock}
}

func (f *fixture) book(t *testing.T, actor model.Actor, start, end string) *model.Reservation {
	t.Helper()
	r, err := f.svc.Create(context.Background(), actor, CreateInput{
		RoomID: 7, Date: day("2030-01-02"), Start: tod(start), End: tod(end),
	})
	require.NoError(t, err)
	return r
}

func TestCreateConflictAndAdjacency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.book(t, alice, "09:00", "10:00")
	assert.NotZero(t, first.ID)
	assert.Equal(t, model.StatusConfirmed, first.Status)
	assert.Equal(t, alice.UserID, first.OwnerID)

	_, err := f.svc.Create(ctx, bob, CreateInput{RoomID: 7, Date: day("2030-01-02"), Start: tod("09:30"), End: tod("10:30")})
	assert.ErrorIs(t, err, model.ErrConflict)

	adjacent := f.book(t, bob, "10:00", "11:00")
	assert.Equal(t, model.StatusConfirmed, adjacent.Status)

	other, err := f.svc.Create(ctx, bob, CreateInput{RoomID: 7, Date: day("2030-01-03"), Start: tod("09:30"), End: tod("10:30")})
	require.NoError(t, err, "same interval on another day is free")
	assert.NotEqual(t, first.ID, other.ID)
}

func TestCreateRejectsUnknownAndUnavailableRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, alice, CreateInput{RoomID: 404, Date: day("2030-01-02"), Start: tod("09:00"), End: tod("10:00")})
	assert.ErrorIs(t, err, model.ErrRoomNotFound)

	_, err = f.svc.Create(ctx, alice, CreateInput{RoomID: 8, Date: day("2030-01-02"), Start: tod("09:00"), End: tod("10:00")})
	assert.ErrorIs(t, err, model.ErrRoomNotFound)

	_, err = f.svc.Create(ctx, alice, CreateInput{RoomID: 7, Date: day("2029-12-31"), Start: tod("09:00"), End: tod("10:00")})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestCancelTwiceAndFreedSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, alice, "09:00", "10:00")

	cancelled, err := f.svc.Cancel(ctx, r.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, alice.UserID, *cancelled.CancelledBy)

	_, err = f.svc.Cancel(ctx, r.ID, alice)
	assert.ErrorIs(t, err, model.ErrInvalidState)

	again := f.book(t, bob, "09:00", "10:00")
	assert.NotEqual(t, r.ID, again.ID)

	_, err = f.svc.Update(ctx, r.ID, alice, UpdateInput{Start: ptr(tod("11:00"))})
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, alice, "09:00", "10:00")

	_, err := f.svc.Cancel(ctx, r.ID, bob)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	_, err = f.svc.Update(ctx, r.ID, bob, UpdateInput{End: ptr(tod("10:30"))})
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	_, err = f.svc.GetHistory(ctx, r.ID, bob)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	_, err = f.svc.GetForActor(ctx, r.ID, bob)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = f.svc.GetHistory(ctx, r.ID, auditor)
	assert.NoError(t, err)
	_, err = f.svc.Cancel(ctx, r.ID, auditor)
	assert.ErrorIs(t, err, model.ErrUnauthorized, "auditors read but never mutate")

	updated, err := f.svc.Update(ctx, r.ID, admin, UpdateInput{End: ptr(tod("10:30"))})
	require.NoError(t, err)
	assert.Equal(t, tod("10:30"), updated.EndTime)

	_, err = f.svc.Cancel(ctx, r.ID, admin)
	assert.NoError(t, err)
}

func TestNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetByID(ctx, 12345)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.svc.Cancel(ctx, 12345, admin)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.svc.GetHistory(ctx, 12345, admin)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdatePartialIntervalAndPurpose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, alice, "09:00", "10:00")
	f.book(t, bob, "11:00", "12:00")

	updated, err := f.svc.Update(ctx, r.ID, alice, UpdateInput{End: ptr(tod("10:30"))})
	require.NoError(t, err)
	assert.Equal(t, tod("09:00"), updated.StartTime, "start keeps its value")
	assert.Equal(t, tod("10:30"), updated.EndTime)

	_, err = f.svc.Update(ctx, r.ID, alice, UpdateInput{End: ptr(tod("11:30"))})
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = f.svc.Update(ctx, r.ID, alice, UpdateInput{Start: ptr(tod("10:25"))})
	assert.ErrorIs(t, err, model.ErrValidation, "5 minute interval is too short")

	purpose := "  retro  "
	updated, err = f.svc.Update(ctx, r.ID, alice, UpdateInput{Purpose: &purpose})
	require.NoError(t, err)
	require.NotNil(t, updated.Purpose)
	assert.Equal(t, "retro", *updated.Purpose)
	assert.Equal(t, tod("10:30"), updated.EndTime)

	shifted, err := f.svc.Update(ctx, r.ID, alice, UpdateInput{Start: ptr(tod("09:30")), End: ptr(tod("10:45"))})
	require.NoError(t, err, "overlapping only its own old interval is not a conflict")
	assert.Equal(t, model.Interval{Start: tod("09:30"), End: tod("10:45")}, shifted.Interval())

	history, err := f.svc.GetHistory(ctx, r.ID, alice)
	require.NoError(t, err)
	require.Len(t, history, 4)
	last := history[0]
	assert.Equal(t, model.ActionUpdated, last.Action)
	require.NotNil(t, last.Previous)
	require.NotNil(t, last.New)
	assert.Equal(t, model.Interval{Start: tod("09:00"), End: tod("10:30")}, *last.Previous)
	assert.Equal(t, model.Interval{Start: tod("09:30"), End: tod("10:45")}, *last.New)
}

func TestHistoryRecordsLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, alice, "09:00", "10:00")

	f.clock.Set(f.clock.Now().Add(time.Minute))
	_, err := f.svc.Cancel(ctx, r.ID, alice)
	require.NoError(t, err)

	history, err := f.svc.GetHistory(ctx, r.ID, admin)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, model.ActionCancelled, history[0].Action)
	assert.Nil(t, history[0].Previous)
	assert.Nil(t, history[0].New)
	require.NotNil(t, history[0].ChangedBy)
	assert.Equal(t, alice.UserID, *history[0].ChangedBy)

	created := history[1]
	assert.Equal(t, model.ActionCreated, created.Action)
	assert.Nil(t, created.Previous)
	require.NotNil(t, created.New)
	assert.Equal(t, r.Interval(), *created.New)
	assert.NotEmpty(t, created.EventID)
}

func TestCancelledExcludedFromSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late := f.book(t, alice, "14:00", "15:00")
	early := f.book(t, bob, "08:00", "09:00")
	dropped := f.book(t, bob, "11:00", "12:00")
	_, err := f.svc.Cancel(ctx, dropped.ID, bob)
	require.NoError(t, err)

	schedule, err := f.svc.GetSchedule(ctx, 7, day("2030-01-02"))
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, early.ID, schedule[0].ID)
	assert.Equal(t, late.ID, schedule[1].ID)

	empty, err := f.svc.GetSchedule(ctx, 7, day("2030-02-01"))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = f.svc.GetSchedule(ctx, 404, day("2030-01-02"))
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a1 := f.book(t, alice, "09:00", "10:00")
	a2, err := f.svc.Create(ctx, alice, CreateInput{RoomID: 7, Date: day("2030-01-05"), Start: tod("09:00"), End: tod("10:00")})
	require.NoError(t, err)
	a3 := f.book(t, alice, "13:00", "14:00")
	b1 := f.book(t, bob, "15:00", "16:00")
	_, err = f.svc.Cancel(ctx, a1.ID, alice)
	require.NoError(t, err)

	own, err := f.svc.ListForOwner(ctx, alice.UserID, 0)
	require.NoError(t, err)
	require.Len(t, own, 3)
	assert.Equal(t, []uint64{a2.ID, a3.ID, a1.ID}, ids(own), "date desc then start desc")

	confirmed, err := f.svc.ListForOwner(ctx, alice.UserID, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, []uint64{a2.ID, a3.ID}, ids(confirmed))

	all, err := f.svc.ListAll(ctx, model.ReservationFilter{Date: day("2030-01-02")})
	require.NoError(t, err)
	assert.Equal(t, []uint64{b1.ID, a3.ID, a1.ID}, ids(all))

	_, err = f.svc.ListForUser(ctx, alice.UserID, bob)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	viaAdmin, err := f.svc.ListForUser(ctx, alice.UserID, admin)
	require.NoError(t, err)
	assert.Equal(t, ids(own), ids(viaAdmin))
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, alice, "09:00", "10:00")

	free, err := f.svc.CheckAvailability(ctx, 7, "2030-01-02", "10:00", "11:00")
	require.NoError(t, err)
	assert.True(t, free)

	free, err = f.svc.CheckAvailability(ctx, 7, "2030-01-02", "09:30:00", "09:45:00")
	require.NoError(t, err)
	assert.False(t, free)

	_, err = f.svc.CheckAvailability(ctx, 7, "2030-01-02", "9am", "10:00")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = f.svc.CheckAvailability(ctx, 7, "2030-01-02", "11:00", "10:00")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = f.svc.CheckAvailability(ctx, 7, "02/01/2030", "10:00", "11:00")
	assert.ErrorIs(t, err, model.ErrValidation)
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]bool
	hits int
}

func (c *mapCache) key(roomID uint64, d model.Date, iv model.Interval) string {
	return fmt.Sprintf("%d:%s:%s", roomID, d, iv)
}

func (c *mapCache) Get(_ context.Context, roomID uint64, d model.Date, iv model.Interval) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[c.key(roomID, d, iv)]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *mapCache) Set(_ context.Context, roomID uint64, d model.Date, iv model.Interval, available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[c.key(roomID, d, iv)] = available
}

func (c *mapCache) Invalidate(_ context.Context, roomID uint64, d model.Date) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := fmt.Sprintf("%d:%s:", roomID, d)
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
}

func TestCheckAvailabilityUsesCache(t *testing.T) {
	cache := &mapCache{data: map[string]bool{}}
	f := newFixture(t, func(d *Deps) { d.Cache = cache })
	ctx := context.Background()

	free, err := f.svc.CheckAvailability(ctx, 7, "2030-01-02", "09:00", "10:00")
	require.NoError(t, err)
	assert.True(t, free)
	assert.Equal(t, 0, cache.hits)

	free, err = f.svc.CheckAvailability(ctx, 7, "2030-01-02", "09:00", "10:00")
	require.NoError(t, err)
	assert.True(t, free)
	assert.Equal(t, 1, cache.hits)

	f.book(t, alice, "09:00", "10:00")
	free, err = f.svc.CheckAvailability(ctx, 7, "2030-01-02", "09:00", "10:00")
	require.NoError(t, err)
	assert.False(t, free, "a booking invalidates cached answers for its room-day")
	assert.Equal(t, 1, cache.hits)
}

func TestConcurrentCreateSameInterval(t *testing.T) {
	f := newFixture(t)
	const n = 32

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(owner uint64) {
			defer wg.Done()
			<-start
			_, err := f.svc.Create(context.Background(), model.Actor{UserID: owner, Role: model.RoleRegularUser}, CreateInput{
				RoomID: 7, Date: day("2030-01-02"), Start: tod("09:00"), End: tod("10:00"),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, model.ErrConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(uint64(i + 1))
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	schedule, err := f.svc.GetSchedule(context.Background(), 7, day("2030-01-02"))
	require.NoError(t, err)
	assert.Len(t, schedule, 1)
}

func TestCompleteElapsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	done := f.book(t, alice, "09:00", "10:00")
	running := f.book(t, alice, "10:00", "12:00")
	gone := f.book(t, bob, "13:00", "14:00")
	_, err := f.svc.Cancel(ctx, gone.ID, bob)
	require.NoError(t, err)

	f.clock.Set(time.Date(2030, 1, 2, 11, 0, 0, 0, time.UTC))
	completed, err := f.svc.CompleteElapsed(ctx)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)
	assert.Equal(t, model.StatusCompleted, completed[0].Status)

	got, err := f.svc.GetByID(ctx, running.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)

	history, err := f.svc.GetHistory(ctx, done.ID, admin)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, model.ActionCompleted, history[0].Action)
	assert.Nil(t, history[0].ChangedBy, "system transitions have no actor")

	schedule, err := f.svc.GetSchedule(ctx, 7, day("2030-01-02"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{done.ID, running.ID}, ids(schedule))

	again, err := f.svc.CompleteElapsed(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestLockCompletedPolicy(t *testing.T) {
	rules := DefaultRules()
	rules.LockCompleted = true
	f := newFixture(t, func(d *Deps) { d.Rules = rules })
	ctx := context.Background()

	r := f.book(t, alice, "09:00", "10:00")
	f.clock.Set(time.Date(2030, 1, 2, 11, 0, 0, 0, time.UTC))
	_, err := f.svc.CompleteElapsed(ctx)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, r.ID, alice)
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestAuditFailureDoesNotFailMutation(t *testing.T) {
	history := &mockHistory{}
	history.On("AppendHistory", mock.Anything, mock.Anything).Return(errors.New("history table locked"))
	outbox := &mockOutbox{}
	outbox.On("EnqueueHistory", mock.Anything, mock.Anything).Return(nil)

	f := newFixture(t, func(d *Deps) {
		d.History = history
		d.Audit = NewAuditRecorder(history, outbox, time.Second, discardLogger())
	})

	r := f.book(t, alice, "09:00", "10:00")
	assert.Equal(t, model.StatusConfirmed, r.Status)
	_, err := f.svc.Cancel(context.Background(), r.ID, alice)
	require.NoError(t, err)

	outbox.AssertNumberOfCalls(t, "EnqueueHistory", 2)
}

type recordingPublisher struct {
	mu      sync.Mutex
	actions []model.HistoryAction
	done    chan struct{}
}

func (p *recordingPublisher) PublishReservationEvent(_ context.Context, action model.HistoryAction, _ model.Reservation) error {
	p.mu.Lock()
	p.actions = append(p.actions, action)
	p.mu.Unlock()
	p.done <- struct{}{}
	return errors.New("broker unavailable")
}

func TestEventsPublishedBestEffort(t *testing.T) {
	pub := &recordingPublisher{done: make(chan struct{}, 4)}
	f := newFixture(t, func(d *Deps) { d.Events = pub })

	r := f.book(t, alice, "09:00", "10:00")
	require.NotZero(t, r.ID, "publish failure does not fail the create")

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, []model.HistoryAction{model.ActionCreated}, pub.actions)
}

func ids(rs []model.Reservation) []uint64 {
	out := make([]uint64, len(rs))
	for i := range rs {
		out[i] = rs[i].ID
	}
	return out
}

func ptr[T any](v T) *T { return &v }
