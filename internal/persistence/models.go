package persistence

import (
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
)

// AccountRole distinguishes staff (hosts) from students (registrants).
type AccountRole string

const (
	// RoleStudent marks accounts that register for slots.
	RoleStudent AccountRole = "student"
	// RoleStaff marks accounts that host office hours.
	RoleStaff AccountRole = "staff"
)

// Course groups office hours and carries the scheduling configuration every
// calendar computation depends on: the IANA timezone and the allowed
// per-student slot durations.
type Course struct {
	ID            string
	Name          string
	Code          string
	Timezone      string
	SlotDurations []int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Account represents a student or staff login in the platform.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	Role         AccountRole
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OfficeHour is a stored office-hour definition. Start carries the wall-clock
// start time-of-day on the first day of the range and End the wall-clock end
// time-of-day on the last day; for non-recurring entries the pair bounds the
// single occurrence. CancelledOn is the append-only list of cancelled
// occurrence dates.
type OfficeHour struct {
	ID             string
	CourseID       string
	HostIDs        []string
	Location       string
	Recurring      bool
	Start          time.Time
	End            time.Time
	Weekdays       []time.Weekday
	CancelledOn    []calendar.Date
	TimePerStudent int
	Deleted        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Registration is a student's claim on one slot of one occurrence. Rows are
// never hard-deleted; cancellation flips one of the cancelled flags and frees
// the slot while preserving history.
type Registration struct {
	ID                 string
	OfficeHourID       string
	AccountID          string
	Date               calendar.Date
	Start              time.Time
	End                time.Time
	Topics             []string
	CancelledByStudent bool
	CancelledByStaff   bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Active reports whether the registration still holds its slot.
func (r Registration) Active() bool {
	return !r.CancelledByStudent && !r.CancelledByStaff
}

// Session represents an authentication session persisted for an account.
type Session struct {
	ID          string
	AccountID   string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}
