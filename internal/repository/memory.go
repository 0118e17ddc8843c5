package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/service/ports"
)

// MemoryStore keeps reservations, history and rooms in process memory.
// It serves tests and STORAGE=memory deployments with a single
// instance.  Writes for one (room, date) are serialized by a keyed
// mutex, mirroring the advisory lock of the MySQL store.
type MemoryStore struct {
	mu           sync.RWMutex
	reservations map[uint64]model.Reservation
	history      []model.HistoryEntry
	events       map[string]bool // history event ids already stored
	rooms        map[uint64]model.Room
	nextID       uint64
	nextEntry    uint64

	locks *keyedMutex
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reservations: make(map[uint64]model.Reservation),
		events:       make(map[string]bool),
		rooms:        make(map[uint64]model.Room),
		locks:        newKeyedMutex(),
	}
}

// PutRoom adds or replaces a room in the catalog.
func (s *MemoryStore) PutRoom(r model.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
}

// RoomByID implements ports.RoomLookup.
func (s *MemoryStore) RoomByID(_ context.Context, id uint64) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return &r, nil
}

// WithinRoomDay runs fn while holding the (room, date) lock.  Writes made
// through the transaction become visible only when fn returns nil.
func (s *MemoryStore) WithinRoomDay(ctx context.Context, roomID uint64, date model.Date, fn func(tx ports.ReservationTx) error) error {
	key := lockName(roomID, date)
	start := time.Now()
	if err := s.locks.Lock(ctx, key); err != nil {
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	defer s.locks.Unlock(key)
	observeLockWait(start)

	tx := &memoryTx{store: s, pending: make(map[uint64]model.Reservation)}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range tx.order {
		s.reservations[id] = tx.pending[id]
	}
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) ActiveForRoomDay(_ context.Context, roomID uint64, date model.Date) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectLocked(func(r *model.Reservation) bool {
		return r.RoomID == roomID && r.Date.Equal(date) && r.Status.Active()
	}), nil
}

// List returns reservations matching f ordered by date then start time,
// newest first.
func (s *MemoryStore) List(_ context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	s.mu.RLock()
	out := s.selectLocked(func(r *model.Reservation) bool {
		return (f.RoomID == 0 || r.RoomID == f.RoomID) &&
			(f.OwnerID == 0 || r.OwnerID == f.OwnerID) &&
			(f.Date.IsZero() || r.Date.Equal(f.Date)) &&
			(f.Status == 0 || r.Status == f.Status)
	})
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime > b.StartTime
		}
		return a.ID > b.ID
	})
	return out, nil
}

// ListByRoomDay returns the room's reservations on date in the given
// statuses, earliest start first.
func (s *MemoryStore) ListByRoomDay(_ context.Context, roomID uint64, date model.Date, statuses []model.Status) ([]model.Reservation, error) {
	want := make(map[model.Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	s.mu.RLock()
	out := s.selectLocked(func(r *model.Reservation) bool {
		return r.RoomID == roomID && r.Date.Equal(date) && want[r.Status]
	})
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListElapsed returns confirmed reservations that ended at or before the
// given instant, oldest first.
func (s *MemoryStore) ListElapsed(_ context.Context, nowDate model.Date, nowTime model.TimeOfDay, limit int) ([]model.Reservation, error) {
	s.mu.RLock()
	out := s.selectLocked(func(r *model.Reservation) bool {
		if r.Status != model.StatusConfirmed {
			return false
		}
		return r.Date.Before(nowDate) || (r.Date.Equal(nowDate) && r.EndTime <= nowTime)
	})
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EndTime < out[j].EndTime
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AppendHistory implements ports.HistoryStore.  Entries carrying an
// event id that is already stored are ignored so redelivered outbox
// messages do not duplicate history.
func (s *MemoryStore) AppendHistory(_ context.Context, e *model.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.EventID != "" && s.events[e.EventID] {
		return nil
	}
	s.nextEntry++
	e.ID = s.nextEntry
	s.history = append(s.history, *e)
	if e.EventID != "" {
		s.events[e.EventID] = true
	}
	return nil
}

// ListHistory returns the entries of one reservation, newest first.
func (s *MemoryStore) ListHistory(_ context.Context, reservationID uint64) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.HistoryEntry
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].ReservationID == reservationID {
			out = append(out, s.history[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *MemoryStore) selectLocked(keep func(*model.Reservation) bool) []model.Reservation {
	var out []model.Reservation
	for _, r := range s.reservations {
		if keep(&r) {
			out = append(out, r)
		}
	}
	return out
}

// memoryTx stages writes made under a room-day lock.
type memoryTx struct {
	store   *MemoryStore
	pending map[uint64]model.Reservation
	order   []uint64
}

func (tx *memoryTx) stage(r model.Reservation) {
	if _, ok := tx.pending[r.ID]; !ok {
		tx.order = append(tx.order, r.ID)
	}
	tx.pending[r.ID] = r
}

func (tx *memoryTx) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	if r, ok := tx.pending[id]; ok {
		return &r, nil
	}
	return tx.store.GetByID(ctx, id)
}

func (tx *memoryTx) ActiveForRoomDay(ctx context.Context, roomID uint64, date model.Date) ([]model.Reservation, error) {
	committed, err := tx.store.ActiveForRoomDay(ctx, roomID, date)
	if err != nil {
		return nil, err
	}
	out := committed[:0]
	for _, r := range committed {
		if _, staged := tx.pending[r.ID]; !staged {
			out = append(out, r)
		}
	}
	for _, id := range tx.order {
		r := tx.pending[id]
		if r.RoomID == roomID && r.Date.Equal(date) && r.Status.Active() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (tx *memoryTx) Insert(_ context.Context, r *model.Reservation) error {
	tx.store.mu.Lock()
	tx.store.nextID++
	r.ID = tx.store.nextID
	tx.store.mu.Unlock()
	tx.stage(*r)
	return nil
}

func (tx *memoryTx) Update(ctx context.Context, r *model.Reservation) error {
	if _, err := tx.GetByID(ctx, r.ID); err != nil {
		return err
	}
	tx.stage(*r)
	return nil
}

// keyedMutex hands out one lock per key.  Entries are reference counted
// and dropped when the last holder or waiter leaves.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{} // buffered(1); holding the token means holding the lock
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free or ctx is done.
func (k *keyedMutex) Lock(ctx context.Context, key string) error {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.release(key, e)
		return ctx.Err()
	}
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	e := k.locks[key]
	k.mu.Unlock()
	<-e.ch
	k.release(key, e)
}

func (k *keyedMutex) release(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}
