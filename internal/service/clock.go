package service

import "time"

// SystemClock reads the wall clock in a fixed location.  Calendar-date
// rules (no bookings in the past, completion of elapsed reservations)
// are evaluated in that location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}
