package calendar

import (
	"fmt"
	"sort"
	"time"
)

// dateLayout is the wire and storage format for civil dates.
const dateLayout = "2006-01-02"

// Date is a civil calendar date: a year, month, and day independent of
// timezone and time-of-day. Weekday membership, cancellation exceptions, and
// occurrence targeting all compare civil dates rather than raw instants so
// that DST offset drift can never skew a comparison across a day boundary.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the civil date of instant as observed in loc. The location is
// required: the civil day an instant falls on is a property of the observing
// timezone, not of the instant itself.
func DateOf(instant time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := instant.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a civil date in 2006-01-02 form.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return Date{}, fmt.Errorf("calendar: invalid date %q: %w", value, err)
	}
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}, nil
}

// String renders the date in 2006-01-02 form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Equal reports civil-date equality.
func (d Date) Equal(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// AddDays returns the date n days after d, normalising month and year
// boundaries. n may be negative.
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)
	y, m, day := t.Date()
	return Date{Year: y, Month: m, Day: day}
}

// Weekday returns the day of the week d falls on.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// CombineDateTime anchors the wall-clock time-of-day of template, as observed
// in loc, onto the civil date d and returns the resulting instant in loc.
//
// This is the single boundary between civil and absolute representations:
// constructing the instant through time.Date in an IANA location makes the
// wall-clock time survive DST transitions without any offset-delta arithmetic
// at call sites.
func CombineDateTime(d Date, template time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := template.In(loc)
	return time.Date(d.Year, d.Month, d.Day, local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), loc)
}

// DateSet is a set of civil dates. The persisted cancellation-exception list
// stays append-only; callers read it through set semantics.
type DateSet struct {
	dates map[Date]struct{}
}

// NewDateSet builds a set from the provided dates, ignoring duplicates.
func NewDateSet(dates ...Date) DateSet {
	set := DateSet{dates: make(map[Date]struct{}, len(dates))}
	for _, d := range dates {
		set.dates[d] = struct{}{}
	}
	return set
}

// Contains reports membership by civil-date equality.
func (s DateSet) Contains(d Date) bool {
	if s.dates == nil {
		return false
	}
	_, ok := s.dates[d]
	return ok
}

// Add inserts a date into the set.
func (s *DateSet) Add(d Date) {
	if s.dates == nil {
		s.dates = make(map[Date]struct{})
	}
	s.dates[d] = struct{}{}
}

// Len returns the number of distinct dates in the set.
func (s DateSet) Len() int {
	return len(s.dates)
}

// Dates returns the members in ascending order.
func (s DateSet) Dates() []Date {
	out := make([]Date, 0, len(s.dates))
	for d := range s.dates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
