package calendar

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock reading without a date or zone, e.g. 16:30.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "15:04" formatted input.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("calendar: invalid time of day %q: %w", value, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String formats the reading as "15:04".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On anchors the reading on a civil date in the given location. Around DST
// transitions the result follows the time package's normalisation rules.
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, loc)
}

// TimeOfDayOf extracts the wall-clock reading of an instant in the given
// location.
func TimeOfDayOf(instant time.Time, loc *time.Location) TimeOfDay {
	if loc == nil {
		loc = time.UTC
	}
	local := instant.In(loc)
	return TimeOfDay{Hour: local.Hour(), Minute: local.Minute()}
}
