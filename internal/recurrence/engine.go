package recurrence

import (
	"errors"
	"sort"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
)

// defaultLocation is the fallback course timezone. Courses carry their own
// IANA zone; the fallback only applies when a caller wires nil.
var defaultLocation = mustLoadDefault()

func mustLoadDefault() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Definition describes the recurrence shape of an office hour. Start carries
// the wall-clock start time-of-day on the first day of the range; End carries
// the wall-clock end time-of-day on the last day. For non-recurring
// definitions the pair bounds the single occurrence directly.
type Definition struct {
	OfficeHourID string
	Recurring    bool
	Start        time.Time
	End          time.Time
	Weekdays     []time.Weekday
	CancelledOn  calendar.DateSet
}

// Occurrence is one concrete meeting instance derived from a definition. It
// is never persisted; callers recompute it on demand.
type Occurrence struct {
	OfficeHourID string
	Date         calendar.Date
	Start        time.Time
	End          time.Time
}

// ExpandOptions narrows generation to an optional civil-date window
// (inclusive on both ends).
type ExpandOptions struct {
	RangeStart *calendar.Date
	RangeEnd   *calendar.Date
}

var (
	// ErrNoWeekdays indicates a recurring definition carries an empty weekday set.
	ErrNoWeekdays = errors.New("recurrence: recurring definition requires at least one weekday")
	// ErrInvalidRange indicates the definition's end bound precedes its start bound.
	ErrInvalidRange = errors.New("recurrence: definition range end precedes start")
	// ErrNoOccurrence indicates the requested date is not a live occurrence.
	ErrNoOccurrence = errors.New("recurrence: no occurrence on date")
)

// Engine expands office-hour definitions into occurrences within a course's
// operating timezone. All day-of-week and date-equality decisions go through
// civil dates observed in that zone; instants are only constructed at the
// civil/absolute boundary in calendar.CombineDateTime.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine for the provided course location. If loc is
// nil, America/New_York is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = defaultLocation
	}
	return &Engine{location: loc}
}

// Location returns the timezone the engine resolves civil dates in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return defaultLocation
	}
	return e.location
}

// Expand produces the ordered occurrences of def, skipping cancelled dates.
//
// For recurring definitions the generator walks the weekly pattern using the
// minimal positive cyclic gap between sorted weekday indices, so a
// {Mon, Wed} pattern starting Monday advances +2, +5, +2, ... days. The
// wall-clock start and end times are re-anchored on each occurrence date in
// the engine's location, which keeps the time-of-day stable across DST
// transitions. An end time at or before the start time rolls the end to the
// following day.
func (e *Engine) Expand(def Definition, opts ExpandOptions) ([]Occurrence, error) {
	loc := e.Location()

	if !def.Recurring {
		occ, err := e.single(def)
		if err != nil {
			return nil, err
		}
		if !withinRange(occ.Date, opts) {
			return nil, nil
		}
		return []Occurrence{occ}, nil
	}

	if len(def.Weekdays) == 0 {
		return nil, ErrNoWeekdays
	}

	firstDate := calendar.DateOf(def.Start, loc)
	lastDate := calendar.DateOf(def.End, loc)
	if lastDate.Before(firstDate) {
		return nil, ErrInvalidRange
	}

	days := sortedWeekdays(def.Weekdays)

	current := firstDate
	if !containsWeekday(days, current.Weekday()) {
		current = current.AddDays(gapToNext(days, current.Weekday()))
	}

	occurrences := make([]Occurrence, 0)
	for !current.After(lastDate) {
		if opts.RangeEnd != nil && current.After(*opts.RangeEnd) {
			break
		}
		if withinRange(current, opts) && !def.CancelledOn.Contains(current) {
			occurrences = append(occurrences, e.occurrenceOn(def, current))
		}
		current = current.AddDays(gapToNext(days, current.Weekday()))
	}

	return occurrences, nil
}

// Resolve determines whether date is a genuine, non-cancelled occurrence of
// def and returns its exact bounds. Cancelled dates resolve to
// ErrNoOccurrence: they are not bookable, cancellable, or displayable as
// active.
func (e *Engine) Resolve(def Definition, date calendar.Date) (Occurrence, error) {
	onSchedule, err := e.OnSchedule(def, date)
	if err != nil {
		return Occurrence{}, err
	}
	if !onSchedule || def.CancelledOn.Contains(date) {
		return Occurrence{}, ErrNoOccurrence
	}

	if !def.Recurring {
		return e.single(def)
	}
	return e.occurrenceOn(def, date), nil
}

// OnSchedule reports whether date falls on the definition's pattern,
// ignoring the cancellation-exception list. Staff-side occurrence
// cancellation uses this to distinguish "never meets that day" from
// "already cancelled".
func (e *Engine) OnSchedule(def Definition, date calendar.Date) (bool, error) {
	loc := e.Location()

	if !def.Recurring {
		return calendar.DateOf(def.Start, loc).Equal(date), nil
	}

	if len(def.Weekdays) == 0 {
		return false, ErrNoWeekdays
	}

	firstDate := calendar.DateOf(def.Start, loc)
	lastDate := calendar.DateOf(def.End, loc)
	if lastDate.Before(firstDate) {
		return false, ErrInvalidRange
	}

	if date.Before(firstDate) || date.After(lastDate) {
		return false, nil
	}
	return containsWeekday(sortedWeekdays(def.Weekdays), date.Weekday()), nil
}

// single materialises the lone occurrence of a non-recurring definition.
func (e *Engine) single(def Definition) (Occurrence, error) {
	loc := e.Location()
	start := def.Start.In(loc)
	end := def.End.In(loc)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return Occurrence{
		OfficeHourID: def.OfficeHourID,
		Date:         calendar.DateOf(def.Start, loc),
		Start:        start,
		End:          end,
	}, nil
}

func (e *Engine) occurrenceOn(def Definition, date calendar.Date) Occurrence {
	loc := e.Location()
	start := calendar.CombineDateTime(date, def.Start, loc)
	end := calendar.CombineDateTime(date, def.End, loc)
	if !end.After(start) {
		// Wall-clock end at or before the start means the block runs past
		// midnight; the end belongs to the next calendar day.
		end = calendar.CombineDateTime(date.AddDays(1), def.End, loc)
	}
	return Occurrence{
		OfficeHourID: def.OfficeHourID,
		Date:         date,
		Start:        start,
		End:          end,
	}
}

func withinRange(date calendar.Date, opts ExpandOptions) bool {
	if opts.RangeStart != nil && date.Before(*opts.RangeStart) {
		return false
	}
	if opts.RangeEnd != nil && date.After(*opts.RangeEnd) {
		return false
	}
	return true
}

func sortedWeekdays(days []time.Weekday) []time.Weekday {
	out := make([]time.Weekday, 0, len(days))
	seen := make(map[time.Weekday]struct{}, len(days))
	for _, day := range days {
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func containsWeekday(days []time.Weekday, day time.Weekday) bool {
	for _, candidate := range days {
		if candidate == day {
			return true
		}
	}
	return false
}

// gapToNext returns the number of days from the current weekday to the next
// weekday in the sorted set, cycling through the week. When the next matching
// index is the current one the gap is a full week.
func gapToNext(days []time.Weekday, current time.Weekday) int {
	next := days[0]
	for _, candidate := range days {
		if candidate > current {
			next = candidate
			break
		}
	}
	gap := (int(next) - int(current) + 7) % 7
	if gap == 0 {
		gap = 7
	}
	return gap
}
