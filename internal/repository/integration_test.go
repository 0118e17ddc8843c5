package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-reservation/internal/database"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/service/ports"
)

// openTestDB connects to the database named by TEST_MYSQL_DSN and applies
// migrations.  The test is skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	db, err := database.OpenDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	_, err = db.Exec(`DELETE FROM reservations WHERE room_id = 9001`)
	require.NoError(t, err)
	return db
}

func TestMySQLConcurrentInsertsSerializePerRoomDay(t *testing.T) {
	db := openTestDB(t)
	repo := NewReservationRepo(db, 10*time.Second)
	date := mustDate(t, "2031-06-01")
	iv := model.Interval{Start: model.NewTimeOfDay(9, 0, 0), End: model.NewTimeOfDay(10, 0, 0)}
	errTaken := errors.New("taken")

	const n = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(owner uint64) {
			defer wg.Done()
			now := time.Now().UTC().Truncate(time.Second)
			err := repo.WithinRoomDay(context.Background(), 9001, date, func(tx ports.ReservationTx) error {
				active, err := tx.ActiveForRoomDay(context.Background(), 9001, date)
				if err != nil {
					return err
				}
				for _, r := range active {
					if r.StartTime < iv.End && iv.Start < r.EndTime {
						return errTaken
					}
				}
				return tx.Insert(context.Background(), &model.Reservation{
					OwnerID: owner, RoomID: 9001, Date: date, StartTime: iv.Start, EndTime: iv.End,
					Status: model.StatusConfirmed, CreatedAt: now, UpdatedAt: now,
				})
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, errTaken)
		}(uint64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	active, err := repo.ActiveForRoomDay(context.Background(), 9001, date)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
