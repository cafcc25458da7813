package scheduler

import "time"

// Slot is a fixed-duration bookable sub-interval of an occurrence.
type Slot struct {
	Start time.Time
	End   time.Time
}

// AvailableSlots partitions the occurrence window into consecutive slots of
// the given duration, anchored at the window start, and returns the slots not
// consumed by an active registration. A registration consumes exactly the
// slot whose start instant equals its own; there is no partial availability.
// If the duration does not evenly divide the window, the trailing remainder
// is never offered.
func AvailableSlots(window Window, per time.Duration, active []Booking) []Slot {
	if per <= 0 || !window.End.After(window.Start) {
		return nil
	}

	var slots []Slot
	for start := window.Start; !start.Add(per).After(window.End); start = start.Add(per) {
		if slotTaken(start, active) {
			continue
		}
		slots = append(slots, Slot{Start: start, End: start.Add(per)})
	}
	return slots
}

func slotTaken(start time.Time, active []Booking) bool {
	for _, booking := range active {
		if booking.Start.Equal(start) {
			return true
		}
	}
	return false
}
