package scheduler

import (
	"fmt"
	"time"
)

// ConflictKind names the failure categories of registration validation.
type ConflictKind string

const (
	// ConflictNotFound indicates the office hour does not exist or is deleted.
	ConflictNotFound ConflictKind = "not_found"
	// ConflictNotOnSchedule indicates the date is not a live occurrence.
	ConflictNotOnSchedule ConflictKind = "not_on_schedule"
	// ConflictOutOfRange indicates the interval leaves the occurrence bounds.
	ConflictOutOfRange ConflictKind = "out_of_range"
	// ConflictInvalidDuration indicates the interval length matches no configured slot duration.
	ConflictInvalidDuration ConflictKind = "invalid_duration"
	// ConflictSlotTaken indicates the interval overlaps an active registration.
	ConflictSlotTaken ConflictKind = "slot_taken"
	// ConflictAlreadyRegistered indicates the account already holds an active registration for the occurrence.
	ConflictAlreadyRegistered ConflictKind = "already_registered"
	// ConflictAlreadyPassed indicates the requested start is not in the future.
	ConflictAlreadyPassed ConflictKind = "already_passed"
)

// ConflictError is the tagged result of a failed registration check. The
// transport layer alone decides how each kind is presented.
type ConflictError struct {
	Kind   ConflictKind
	Detail string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return fmt.Sprintf("scheduler: %s", e.Kind)
	}
	return fmt.Sprintf("scheduler: %s: %s", e.Kind, e.Detail)
}

// NewConflict builds a ConflictError of the given kind.
func NewConflict(kind ConflictKind, detail string) *ConflictError {
	return &ConflictError{Kind: kind, Detail: detail}
}

// Window is a resolved occurrence time span.
type Window struct {
	Start time.Time
	End   time.Time
}

// Booking is an existing active registration interval on an occurrence.
type Booking struct {
	ID        string
	AccountID string
	Start     time.Time
	End       time.Time
}

// Request is a candidate registration interval.
type Request struct {
	AccountID string
	Start     time.Time
	End       time.Time
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share any instant. Adjacent intervals (aEnd == bStart) do
// not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ValidateRequest evaluates a candidate registration against a resolved
// occurrence window, the course's allowed slot durations in minutes, and the
// active registrations already held on that occurrence. Checks run in order
// and the first failure short-circuits; a nil result means the request is
// acceptable.
//
// This is a pure pre-condition check. The storage layer's uniqueness
// constraint on active (office hour, date, start) remains the authoritative
// guard against concurrent requests racing past it.
func ValidateRequest(window Window, req Request, allowedMinutes []int, active []Booking, now time.Time) *ConflictError {
	if !req.End.After(req.Start) {
		return NewConflict(ConflictOutOfRange, "end must be after start")
	}
	if req.Start.Before(window.Start) || req.End.After(window.End) {
		return NewConflict(ConflictOutOfRange, fmt.Sprintf(
			"requested %s-%s outside occurrence %s-%s",
			req.Start.Format(time.RFC3339), req.End.Format(time.RFC3339),
			window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339),
		))
	}

	length := req.End.Sub(req.Start)
	if !durationAllowed(length, allowedMinutes) {
		return NewConflict(ConflictInvalidDuration, fmt.Sprintf(
			"interval length %s matches no configured slot duration", length,
		))
	}

	// The occurrence is partitioned into slots anchored at the window start;
	// a registration must claim a whole slot, not straddle two.
	if req.Start.Sub(window.Start)%length != 0 {
		return NewConflict(ConflictOutOfRange, fmt.Sprintf(
			"start %s does not fall on a %s slot boundary",
			req.Start.Format(time.RFC3339), length,
		))
	}

	for _, booking := range active {
		if Overlaps(req.Start, req.End, booking.Start, booking.End) {
			return NewConflict(ConflictSlotTaken, fmt.Sprintf("overlaps registration %s", booking.ID))
		}
	}

	for _, booking := range active {
		if booking.AccountID != "" && booking.AccountID == req.AccountID {
			return NewConflict(ConflictAlreadyRegistered, "account already registered for this occurrence")
		}
	}

	if !req.Start.After(now) {
		return NewConflict(ConflictAlreadyPassed, "requested start is not in the future")
	}

	return nil
}

func durationAllowed(length time.Duration, allowedMinutes []int) bool {
	if length <= 0 || length%time.Minute != 0 {
		return false
	}
	minutes := int(length / time.Minute)
	for _, allowed := range allowedMinutes {
		if minutes == allowed {
			return true
		}
	}
	return false
}
