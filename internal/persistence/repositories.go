package persistence

import (
	"context"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
)

// CourseRepository exposes CRUD operations for courses.
type CourseRepository interface {
	CreateCourse(ctx context.Context, course Course) error
	UpdateCourse(ctx context.Context, course Course) error
	GetCourse(ctx context.Context, id string) (Course, error)
	ListCourses(ctx context.Context) ([]Course, error)
	DeleteCourse(ctx context.Context, id string) error
}

// AccountRepository exposes CRUD operations for accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account Account) error
	UpdateAccount(ctx context.Context, account Account) error
	GetAccount(ctx context.Context, id string) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// OfficeHourRepository stores office-hour definitions. Get returns
// soft-deleted rows with the Deleted flag set; callers decide visibility.
type OfficeHourRepository interface {
	CreateOfficeHour(ctx context.Context, officeHour OfficeHour) error
	UpdateOfficeHour(ctx context.Context, officeHour OfficeHour) error
	GetOfficeHour(ctx context.Context, id string) (OfficeHour, error)
	ListOfficeHoursForCourse(ctx context.Context, courseID string) ([]OfficeHour, error)
	// AddCancelledDate appends a civil date to the cancellation-exception
	// list. The persisted list is append-only; duplicates are rejected as
	// ErrDuplicate.
	AddCancelledDate(ctx context.Context, officeHourID string, date calendar.Date) error
	SoftDeleteOfficeHour(ctx context.Context, id string, deletedAt time.Time) error
}

// RegistrationFilter narrows registration queries.
type RegistrationFilter struct {
	OfficeHourID string
	AccountID    string
	Date         *calendar.Date
	ActiveOnly   bool
}

// RegistrationRepository stores slot registrations.
type RegistrationRepository interface {
	// CreateRegistration inserts a registration. Concurrent claims on the
	// same slot surface as ErrDuplicate through the active-slot uniqueness
	// index.
	CreateRegistration(ctx context.Context, registration Registration) error
	GetRegistration(ctx context.Context, id string) (Registration, error)
	ListRegistrations(ctx context.Context, filter RegistrationFilter) ([]Registration, error)
	// CancelRegistration marks a registration cancelled by the student or,
	// when byStaff is set, by staff. Cancellation is terminal.
	CancelRegistration(ctx context.Context, id string, byStaff bool, cancelledAt time.Time) error
	// CancelRegistrationsForOccurrence staff-cancels every active
	// registration targeting the given office hour and date.
	CancelRegistrationsForOccurrence(ctx context.Context, officeHourID string, date calendar.Date, cancelledAt time.Time) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
