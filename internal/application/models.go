package application

import (
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

// Principal represents the authenticated account invoking a service method.
type Principal struct {
	AccountID string
	Role      persistence.AccountRole
}

// IsStaff reports whether the principal may perform host operations.
func (p Principal) IsStaff() bool {
	return p.Role == persistence.RoleStaff
}

// CourseInput captures caller provided course fields.
type CourseInput struct {
	Name          string
	Code          string
	Timezone      string
	SlotDurations []int
}

// CreateCourseParams wraps the data required to create a course.
type CreateCourseParams struct {
	Principal Principal
	Input     CourseInput
}

// UpdateCourseParams wraps the data required to update an existing course.
type UpdateCourseParams struct {
	Principal Principal
	CourseID  string
	Input     CourseInput
}

// DeleteCourseParams identifies a course to delete.
type DeleteCourseParams struct {
	Principal Principal
	CourseID  string
}

// OfficeHourInput captures caller provided office hour fields. StartDate and
// EndDate bound the civil date range; StartTime and EndTime are wall-clock
// readings in the course timezone. An EndTime at or before StartTime rolls the
// occurrence end past midnight.
type OfficeHourInput struct {
	CourseID       string
	HostIDs        []string
	Location       string
	Recurring      bool
	StartDate      calendar.Date
	EndDate        calendar.Date
	StartTime      calendar.TimeOfDay
	EndTime        calendar.TimeOfDay
	Weekdays       []time.Weekday
	TimePerStudent int
}

// CreateOfficeHourParams wraps the data required to create an office hour.
type CreateOfficeHourParams struct {
	Principal Principal
	Input     OfficeHourInput
}

// UpdateOfficeHourParams wraps the data required to update an office hour.
type UpdateOfficeHourParams struct {
	Principal    Principal
	OfficeHourID string
	Input        OfficeHourInput
}

// DeleteOfficeHourParams identifies an office hour to soft-delete.
type DeleteOfficeHourParams struct {
	Principal    Principal
	OfficeHourID string
}

// OccurrenceView is one concrete meeting of an office hour, resolved to
// instants in the course timezone.
type OccurrenceView struct {
	OfficeHourID   string
	CourseID       string
	Date           calendar.Date
	Start          time.Time
	End            time.Time
	Location       string
	HostIDs        []string
	TimePerStudent int
}

// ListOccurrencesParams bounds an occurrence listing. Nil bounds leave the
// respective side open; both dates are inclusive.
type ListOccurrencesParams struct {
	CourseID string
	From     *calendar.Date
	To       *calendar.Date
}

// CancelOccurrenceParams identifies one occurrence to cancel.
type CancelOccurrenceParams struct {
	Principal    Principal
	OfficeHourID string
	Date         calendar.Date
}

// RegisterInput captures a student's slot claim. Start is a wall-clock
// reading in the course timezone on the given date.
type RegisterInput struct {
	OfficeHourID    string
	Date            calendar.Date
	Start           calendar.TimeOfDay
	DurationMinutes int
	Topics          []string
}

// RegisterParams wraps the data required to register for a slot.
type RegisterParams struct {
	Principal Principal
	Input     RegisterInput
}

// CancelRegistrationParams identifies one registration to cancel.
type CancelRegistrationParams struct {
	Principal      Principal
	RegistrationID string
}

// ListRegistrationsParams narrows a registration listing. Students are
// restricted to their own registrations.
type ListRegistrationsParams struct {
	Principal    Principal
	OfficeHourID string
	AccountID    string
	Date         *calendar.Date
	ActiveOnly   bool
}

// AccountInput captures caller provided account fields.
type AccountInput struct {
	Email       string
	DisplayName string
	Role        persistence.AccountRole
	Password    string
}

// CreateAccountParams wraps the data required to create an account. Staff
// accounts require a staff principal; student self-signup passes a zero
// Principal.
type CreateAccountParams struct {
	Principal Principal
	Input     AccountInput
}

// AuthenticateParams carries login credentials.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult couples the logged-in account with its fresh session.
type AuthenticateResult struct {
	Account persistence.Account
	Session persistence.Session
}

// ValidateSessionParams carries a bearer token to check.
type ValidateSessionParams struct {
	Token string
}

// LogoutParams carries the token of the session to revoke.
type LogoutParams struct {
	Token string
}
