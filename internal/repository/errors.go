// Package repository holds the storage adapters of the reservation
// service: MySQL repositories for production and an in-memory store for
// tests and single-instance deployments.  Missing rows are reported with
// the model sentinels (model.ErrNotFound, model.ErrRoomNotFound) so the
// service can translate them without knowing the backend.
package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/meeting-room-reservation/internal/metrics"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// ErrLockTimeout is returned when the per-room-per-day booking lock
// could not be acquired in time.  Handlers translate it into a 500; the
// client may retry.
var ErrLockTimeout = errors.New("timed out waiting for room booking lock")

// mysqlDuplicateEntry is the server error number for a unique key
// violation.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL duplicate-key error.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// lockName is the advisory lock guarding writes for one room on one day.
// Both stores use the same naming so log lines line up.
func lockName(roomID uint64, date model.Date) string {
	return fmt.Sprintf("rsv:%d:%s", roomID, date)
}

func observeLockWait(start time.Time) {
	metrics.ObserveLockWait(time.Since(start).Seconds())
}
