package calendar

import (
	"fmt"
	"strings"
	"time"
)

// weekdayNames is the canonical Sunday-first weekday list. The order is part
// of the persisted representation and of the generator's tie-breaking, so it
// must never be reordered.
var weekdayNames = [7]string{
	"Sunday",
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
}

// ParseWeekday maps a weekday name (case-insensitive) to its time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	trimmed := strings.TrimSpace(name)
	for i, candidate := range weekdayNames {
		if strings.EqualFold(candidate, trimmed) {
			return time.Weekday(i), nil
		}
	}
	return time.Sunday, fmt.Errorf("calendar: unknown weekday %q", name)
}

// WeekdayName returns the canonical name for a weekday.
func WeekdayName(day time.Weekday) string {
	return weekdayNames[int(day)%7]
}

// ParseWeekdays converts a list of weekday names, rejecting unknown entries
// and dropping duplicates while preserving first-seen order.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]struct{}, len(names))
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		day, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	return days, nil
}

// WeekdayNames renders weekdays back to their canonical names.
func WeekdayNames(days []time.Weekday) []string {
	names := make([]string, 0, len(days))
	for _, day := range days {
		names = append(names, WeekdayName(day))
	}
	return names
}
