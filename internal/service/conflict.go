package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/service/ports"
)

// Overlaps reports whether two half-open intervals share at least one
// instant.  Touching intervals such as 09:00-10:00 and 10:00-11:00 do not
// overlap.
func Overlaps(a, b model.Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// HasConflict reports whether iv overlaps any active reservation of the
// room on date.  A non-zero excludeID skips that reservation, which is
// how an update avoids conflicting with itself.  Inside a create or
// update src is the locked transaction so the answer stays valid until
// the write commits.
func HasConflict(ctx context.Context, src ports.ActiveSource, roomID uint64, date model.Date, iv model.Interval, excludeID uint64) (bool, error) {
	active, err := src.ActiveForRoomDay(ctx, roomID, date)
	if err != nil {
		return false, fmt.Errorf("load active reservations: %w", err)
	}
	for i := range active {
		r := &active[i]
		if excludeID != 0 && r.ID == excludeID {
			continue
		}
		if !r.Status.Active() {
			continue
		}
		if Overlaps(iv, r.Interval()) {
			return true, nil
		}
	}
	return false, nil
}
