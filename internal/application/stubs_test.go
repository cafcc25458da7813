package application

import (
	"context"
	"fmt"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

// The fakes below are map-backed stand-ins for the SQLite repositories. The
// registration fake mirrors the storage layer's active-slot uniqueness rule
// so service tests can exercise the race path.

type fakeCourseRepo struct {
	courses map[string]persistence.Course
	err     error
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{courses: make(map[string]persistence.Course)}
}

func (f *fakeCourseRepo) CreateCourse(ctx context.Context, course persistence.Course) error {
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.courses {
		if existing.Code == course.Code {
			return persistence.ErrDuplicate
		}
	}
	f.courses[course.ID] = course
	return nil
}

func (f *fakeCourseRepo) UpdateCourse(ctx context.Context, course persistence.Course) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.courses[course.ID]; !ok {
		return persistence.ErrNotFound
	}
	f.courses[course.ID] = course
	return nil
}

func (f *fakeCourseRepo) GetCourse(ctx context.Context, id string) (persistence.Course, error) {
	if f.err != nil {
		return persistence.Course{}, f.err
	}
	course, ok := f.courses[id]
	if !ok {
		return persistence.Course{}, persistence.ErrNotFound
	}
	return course, nil
}

func (f *fakeCourseRepo) ListCourses(ctx context.Context) ([]persistence.Course, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []persistence.Course
	for _, course := range f.courses {
		out = append(out, course)
	}
	return out, nil
}

func (f *fakeCourseRepo) DeleteCourse(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.courses[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(f.courses, id)
	return nil
}

type fakeAccountRepo struct {
	accounts map[string]persistence.Account
	err      error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]persistence.Account)}
}

func (f *fakeAccountRepo) CreateAccount(ctx context.Context, account persistence.Account) error {
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.accounts {
		if existing.Email == account.Email {
			return persistence.ErrDuplicate
		}
	}
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountRepo) UpdateAccount(ctx context.Context, account persistence.Account) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.accounts[account.ID]; !ok {
		return persistence.ErrNotFound
	}
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountRepo) GetAccount(ctx context.Context, id string) (persistence.Account, error) {
	if f.err != nil {
		return persistence.Account{}, f.err
	}
	account, ok := f.accounts[id]
	if !ok {
		return persistence.Account{}, persistence.ErrNotFound
	}
	return account, nil
}

func (f *fakeAccountRepo) GetAccountByEmail(ctx context.Context, email string) (persistence.Account, error) {
	if f.err != nil {
		return persistence.Account{}, f.err
	}
	for _, account := range f.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return persistence.Account{}, persistence.ErrNotFound
}

func (f *fakeAccountRepo) ListAccounts(ctx context.Context) ([]persistence.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []persistence.Account
	for _, account := range f.accounts {
		out = append(out, account)
	}
	return out, nil
}

func (f *fakeAccountRepo) DeleteAccount(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.accounts[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(f.accounts, id)
	return nil
}

type fakeOfficeHourRepo struct {
	officeHours map[string]persistence.OfficeHour
	err         error
}

func newFakeOfficeHourRepo() *fakeOfficeHourRepo {
	return &fakeOfficeHourRepo{officeHours: make(map[string]persistence.OfficeHour)}
}

func (f *fakeOfficeHourRepo) CreateOfficeHour(ctx context.Context, officeHour persistence.OfficeHour) error {
	if f.err != nil {
		return f.err
	}
	f.officeHours[officeHour.ID] = officeHour
	return nil
}

func (f *fakeOfficeHourRepo) UpdateOfficeHour(ctx context.Context, officeHour persistence.OfficeHour) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.officeHours[officeHour.ID]; !ok {
		return persistence.ErrNotFound
	}
	f.officeHours[officeHour.ID] = officeHour
	return nil
}

func (f *fakeOfficeHourRepo) GetOfficeHour(ctx context.Context, id string) (persistence.OfficeHour, error) {
	if f.err != nil {
		return persistence.OfficeHour{}, f.err
	}
	officeHour, ok := f.officeHours[id]
	if !ok {
		return persistence.OfficeHour{}, persistence.ErrNotFound
	}
	return officeHour, nil
}

func (f *fakeOfficeHourRepo) ListOfficeHoursForCourse(ctx context.Context, courseID string) ([]persistence.OfficeHour, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []persistence.OfficeHour
	for _, officeHour := range f.officeHours {
		if officeHour.CourseID == courseID && !officeHour.Deleted {
			out = append(out, officeHour)
		}
	}
	return out, nil
}

func (f *fakeOfficeHourRepo) AddCancelledDate(ctx context.Context, officeHourID string, date calendar.Date) error {
	if f.err != nil {
		return f.err
	}
	officeHour, ok := f.officeHours[officeHourID]
	if !ok {
		return persistence.ErrNotFound
	}
	for _, cancelled := range officeHour.CancelledOn {
		if cancelled.Equal(date) {
			return persistence.ErrDuplicate
		}
	}
	officeHour.CancelledOn = append(officeHour.CancelledOn, date)
	f.officeHours[officeHourID] = officeHour
	return nil
}

func (f *fakeOfficeHourRepo) SoftDeleteOfficeHour(ctx context.Context, id string, deletedAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	officeHour, ok := f.officeHours[id]
	if !ok || officeHour.Deleted {
		return persistence.ErrNotFound
	}
	officeHour.Deleted = true
	officeHour.UpdatedAt = deletedAt
	f.officeHours[id] = officeHour
	return nil
}

type fakeRegistrationRepo struct {
	registrations map[string]persistence.Registration
	createErr     error
	err           error
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{registrations: make(map[string]persistence.Registration)}
}

func (f *fakeRegistrationRepo) CreateRegistration(ctx context.Context, registration persistence.Registration) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.registrations {
		if existing.Active() &&
			existing.OfficeHourID == registration.OfficeHourID &&
			existing.Date.Equal(registration.Date) &&
			existing.Start.Equal(registration.Start) {
			return persistence.ErrDuplicate
		}
	}
	f.registrations[registration.ID] = registration
	return nil
}

func (f *fakeRegistrationRepo) GetRegistration(ctx context.Context, id string) (persistence.Registration, error) {
	if f.err != nil {
		return persistence.Registration{}, f.err
	}
	registration, ok := f.registrations[id]
	if !ok {
		return persistence.Registration{}, persistence.ErrNotFound
	}
	return registration, nil
}

func (f *fakeRegistrationRepo) ListRegistrations(ctx context.Context, filter persistence.RegistrationFilter) ([]persistence.Registration, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []persistence.Registration
	for _, registration := range f.registrations {
		if filter.OfficeHourID != "" && registration.OfficeHourID != filter.OfficeHourID {
			continue
		}
		if filter.AccountID != "" && registration.AccountID != filter.AccountID {
			continue
		}
		if filter.Date != nil && !registration.Date.Equal(*filter.Date) {
			continue
		}
		if filter.ActiveOnly && !registration.Active() {
			continue
		}
		out = append(out, registration)
	}
	return out, nil
}

func (f *fakeRegistrationRepo) CancelRegistration(ctx context.Context, id string, byStaff bool, cancelledAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	registration, ok := f.registrations[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if byStaff {
		registration.CancelledByStaff = true
	} else {
		registration.CancelledByStudent = true
	}
	registration.UpdatedAt = cancelledAt
	f.registrations[id] = registration
	return nil
}

func (f *fakeRegistrationRepo) CancelRegistrationsForOccurrence(ctx context.Context, officeHourID string, date calendar.Date, cancelledAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	for id, registration := range f.registrations {
		if registration.OfficeHourID == officeHourID && registration.Date.Equal(date) && registration.Active() {
			registration.CancelledByStaff = true
			registration.UpdatedAt = cancelledAt
			f.registrations[id] = registration
		}
	}
	return nil
}

type fakeSessionRepo struct {
	sessions map[string]persistence.Session
	err      error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]persistence.Session)}
}

func (f *fakeSessionRepo) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if f.err != nil {
		return persistence.Session{}, f.err
	}
	f.sessions[session.Token] = session
	return session, nil
}

func (f *fakeSessionRepo) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if f.err != nil {
		return persistence.Session{}, f.err
	}
	session, ok := f.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (f *fakeSessionRepo) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if f.err != nil {
		return persistence.Session{}, f.err
	}
	f.sessions[session.Token] = session
	return session, nil
}

func (f *fakeSessionRepo) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	if f.err != nil {
		return persistence.Session{}, f.err
	}
	session, ok := f.sessions[token]
	if !ok || session.RevokedAt != nil {
		return persistence.Session{}, persistence.ErrNotFound
	}
	session.RevokedAt = &revokedAt
	f.sessions[token] = session
	return session, nil
}

func (f *fakeSessionRepo) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if f.err != nil {
		return f.err
	}
	for token, session := range f.sessions {
		if session.ExpiresAt.Before(reference) {
			delete(f.sessions, token)
		}
	}
	return nil
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
