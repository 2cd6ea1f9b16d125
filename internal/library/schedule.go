package library

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	slotsPerHour = 4
	slotsPerDay  = 24 * slotsPerHour
	// ScheduleLength is the number of quarter-hour slots in a week.
	ScheduleLength = 7 * slotsPerDay
)

// ErrInvalidSchedule reports a malformed schedule mask.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Schedule is a weekly activity mask of quarter-hour slots starting Sunday
// 00:00 local time. '1' marks an active slot, '0' an inactive one. An empty
// mask is always active.
type Schedule string

// Validate checks the mask length and alphabet.
func (s Schedule) Validate() error {
	if s == "" {
		return nil
	}
	if len(s) != ScheduleLength {
		return fmt.Errorf("%w: expected %d slots, got %d", ErrInvalidSchedule, ScheduleLength, len(s))
	}
	if strings.Trim(string(s), "01") != "" {
		return fmt.Errorf("%w: only '0' and '1' are allowed", ErrInvalidSchedule)
	}
	return nil
}

// Active reports whether t falls in an active slot. Masks of the wrong length
// never block work.
func (s Schedule) Active(t time.Time) bool {
	if len(s) != ScheduleLength {
		return true
	}
	index := int(t.Weekday())*slotsPerDay + t.Hour()*slotsPerHour + t.Minute()/15
	return s[index] != '0'
}

// AlwaysActive reports whether every slot is active.
func (s Schedule) AlwaysActive() bool {
	return len(s) != ScheduleLength || !strings.Contains(string(s), "0")
}
