package sqlite

import (
	"fmt"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
)

// Instants are stored as UTC RFC3339 text. The canonical form matters: the
// active-slot uniqueness index compares start_at lexically.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value, column string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: failed to parse %s: %w", column, err)
	}
	return t, nil
}

func formatDate(d calendar.Date) string {
	return d.String()
}

func parseDate(value, column string) (calendar.Date, error) {
	d, err := calendar.ParseDate(value)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("sqlite: failed to parse %s: %w", column, err)
	}
	return d, nil
}
