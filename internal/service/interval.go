package service

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// Rules holds the booking policy enforced by the core.  The zero value
// is not usable; start from DefaultRules.
type Rules struct {
	MinDuration   time.Duration // shortest bookable interval, inclusive
	MaxDuration   time.Duration // longest bookable interval, inclusive
	MaxPurposeLen int           // maximum purpose length in runes
	LockCompleted bool          // reject updates and cancellations of completed reservations
}

// DefaultRules returns the reference policy: 15 minutes to 12 hours,
// 500 character purpose, completed reservations still mutable.
func DefaultRules() Rules {
	return Rules{
		MinDuration:   15 * time.Minute,
		MaxDuration:   12 * time.Hour,
		MaxPurposeLen: 500,
	}
}

// ValidateInterval checks a proposed (date, interval) against the
// booking rules at instant now.  Checks run in a fixed order and the
// first failure is returned as a model.ErrValidation rejection.  Only
// the calendar date of now matters: a same-day booking whose start time
// has already passed is accepted.
func ValidateInterval(date model.Date, iv model.Interval, now time.Time, rules Rules) error {
	if date.Before(model.DateOf(now)) {
		return model.Reject(model.ErrValidation, "cannot book dates in the past")
	}
	if !iv.Start.Valid() || !iv.End.Valid() {
		return model.Reject(model.ErrValidation, "times must be within a single day")
	}
	if iv.End <= iv.Start {
		return model.Reject(model.ErrValidation, "end time must be after start time")
	}
	d := iv.Duration()
	if d < rules.MinDuration {
		return model.Reject(model.ErrValidation, "booking duration must be at least %s", humanDuration(rules.MinDuration))
	}
	if d > rules.MaxDuration {
		return model.Reject(model.ErrValidation, "booking duration cannot exceed %s", humanDuration(rules.MaxDuration))
	}
	return nil
}

// cleanPurpose trims the annotation, drops control characters and
// enforces the length limit.  A nil purpose stays nil.
func cleanPurpose(p *string, maxLen int) (*string, error) {
	if p == nil {
		return nil, nil
	}
	s := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(*p))
	if maxLen > 0 && len([]rune(s)) > maxLen {
		return nil, model.Reject(model.ErrValidation, "purpose cannot exceed %d characters", maxLen)
	}
	return &s, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d > time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	}
	return d.String()
}
