package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/application"
	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

var (
	courseCounter       uint64
	accountCounter      uint64
	officeHourCounter   uint64
	registrationCounter uint64
	sessionCounter      uint64
)

var referenceTime = time.Date(2025, time.February, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ---------------------------- Course fixtures ----------------------------

// CourseFixture represents a deterministic course record.
type CourseFixture struct {
	ID            string
	Name          string
	Code          string
	Timezone      string
	SlotDurations []int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CourseOption configures the generated course fixture.
type CourseOption func(*CourseFixture)

// NewCourseFixture returns a deterministic course fixture with optional overrides.
func NewCourseFixture(opts ...CourseOption) CourseFixture {
	idx := atomic.AddUint64(&courseCounter, 1)
	id := fmt.Sprintf("course-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := CourseFixture{
		ID:            id,
		Name:          fmt.Sprintf("Course %03d", idx),
		Code:          fmt.Sprintf("601.%03d", idx),
		Timezone:      "America/New_York",
		SlotDurations: []int{15, 30},
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithCourseID overrides the generated course ID.
func WithCourseID(id string) CourseOption {
	return func(f *CourseFixture) {
		f.ID = id
	}
}

// WithCourseCode overrides the generated course code.
func WithCourseCode(code string) CourseOption {
	return func(f *CourseFixture) {
		f.Code = code
	}
}

// WithCourseTimezone sets the IANA timezone name.
func WithCourseTimezone(tz string) CourseOption {
	return func(f *CourseFixture) {
		f.Timezone = tz
	}
}

// WithCourseSlotDurations sets the allowed slot durations in minutes.
func WithCourseSlotDurations(minutes ...int) CourseOption {
	return func(f *CourseFixture) {
		f.SlotDurations = append([]int(nil), minutes...)
	}
}

// Persistence returns the fixture as a persistence.Course value.
func (f CourseFixture) Persistence() persistence.Course {
	return persistence.Course{
		ID:            f.ID,
		Name:          f.Name,
		Code:          f.Code,
		Timezone:      f.Timezone,
		SlotDurations: append([]int(nil), f.SlotDurations...),
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Input returns the fixture as an application.CourseInput.
func (f CourseFixture) Input() application.CourseInput {
	return application.CourseInput{
		Name:          f.Name,
		Code:          f.Code,
		Timezone:      f.Timezone,
		SlotDurations: append([]int(nil), f.SlotDurations...),
	}
}

// ---------------------------- Account fixtures ---------------------------

// AccountFixture represents a deterministic account record.
type AccountFixture struct {
	ID           string
	Email        string
	DisplayName  string
	Role         persistence.AccountRole
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountOption configures the generated account fixture.
type AccountOption func(*AccountFixture)

// NewAccountFixture returns a deterministic account fixture with optional overrides.
func NewAccountFixture(opts ...AccountOption) AccountFixture {
	idx := atomic.AddUint64(&accountCounter, 1)
	id := fmt.Sprintf("acc-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := AccountFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.edu", id),
		DisplayName:  fmt.Sprintf("Account %03d", idx),
		Role:         persistence.RoleStudent,
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAccountID overrides the generated account ID.
func WithAccountID(id string) AccountOption {
	return func(f *AccountFixture) {
		f.ID = id
	}
}

// WithAccountEmail overrides the generated email address.
func WithAccountEmail(email string) AccountOption {
	return func(f *AccountFixture) {
		f.Email = email
	}
}

// WithAccountRole sets the account role.
func WithAccountRole(role persistence.AccountRole) AccountOption {
	return func(f *AccountFixture) {
		f.Role = role
	}
}

// WithStaffRole marks the account as staff.
func WithStaffRole() AccountOption {
	return WithAccountRole(persistence.RoleStaff)
}

// WithAccountDisabled marks the account as disabled.
func WithAccountDisabled() AccountOption {
	return func(f *AccountFixture) {
		f.Disabled = true
	}
}

// WithAccountPasswordHash overrides the stored password hash.
func WithAccountPasswordHash(hash string) AccountOption {
	return func(f *AccountFixture) {
		f.PasswordHash = hash
	}
}

// Persistence returns the fixture as a persistence.Account value.
func (f AccountFixture) Persistence() persistence.Account {
	return persistence.Account{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		Role:         f.Role,
		PasswordHash: f.PasswordHash,
		Disabled:     f.Disabled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f AccountFixture) Principal() application.Principal {
	return application.Principal{AccountID: f.ID, Role: f.Role}
}

// -------------------------- Office hour fixtures -------------------------

// OfficeHourFixture represents a deterministic office hour definition. The
// date range and times are wall-clock readings in the course timezone.
type OfficeHourFixture struct {
	ID             string
	CourseID       string
	HostIDs        []string
	Location       string
	Recurring      bool
	StartDate      calendar.Date
	EndDate        calendar.Date
	StartTime      calendar.TimeOfDay
	EndTime        calendar.TimeOfDay
	Weekdays       []time.Weekday
	CancelledOn    []calendar.Date
	TimePerStudent int
	Timezone       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OfficeHourOption configures the generated office hour fixture.
type OfficeHourOption func(*OfficeHourFixture)

// NewOfficeHourFixture returns a deterministic office hour fixture. Defaults
// describe a recurring Monday/Wednesday block in March 2025.
func NewOfficeHourFixture(opts ...OfficeHourOption) OfficeHourFixture {
	idx := atomic.AddUint64(&officeHourCounter, 1)
	id := fmt.Sprintf("oh-%03d", idx)
	fixture := OfficeHourFixture{
		ID:             id,
		CourseID:       fmt.Sprintf("course-%03d", idx),
		HostIDs:        []string{fmt.Sprintf("acc-%03d", idx)},
		Location:       "Malone 122",
		Recurring:      true,
		StartDate:      calendar.Date{Year: 2025, Month: time.March, Day: 3},
		EndDate:        calendar.Date{Year: 2025, Month: time.March, Day: 28},
		StartTime:      calendar.TimeOfDay{Hour: 16, Minute: 30},
		EndTime:        calendar.TimeOfDay{Hour: 17},
		Weekdays:       []time.Weekday{time.Monday, time.Wednesday},
		TimePerStudent: 15,
		Timezone:       "America/New_York",
		CreatedAt:      referenceTime,
		UpdatedAt:      referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithOfficeHourID overrides the generated office hour ID.
func WithOfficeHourID(id string) OfficeHourOption {
	return func(f *OfficeHourFixture) {
		f.ID = id
	}
}

// WithOfficeHourCourse sets the owning course ID.
func WithOfficeHourCourse(courseID string) OfficeHourOption {
	return func(f *OfficeHourFixture) {
		f.CourseID = courseID
	}
}

// WithOfficeHourHosts sets the hosting staff accounts.
func WithOfficeHourHosts(hostIDs ...string) OfficeHourOption {
	return func(f *OfficeHourFixture) {
		f.HostIDs = append([]string(nil), hostIDs...)
	}
}

// WithOfficeHourDates sets the civil date range.
func WithOfficeHourDates(start, end calendar.Date) OfficeHourOption {
	return func(f *OfficeHourFixture) {
		f.StartDate = start
		f.EndDate = end
	}
}

// WithOfficeHourTimes sets the wall-clock start and end times.
func WithOfficeHourTimes(start, end calendar.TimeOfDay) OfficeHourOption {
	return func(f *OfficeHourFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithOfficeHourWeekdays sets the recurrence weekdays.
func WithOfficeHourWeekdays(days ...time.Weekday) OfficeHourOption {
	return func(f *OfficeHourFixture) {
		f.Weekdays = append([]time.Weekday(nil), days...)
	}
}

// WithOneOffOfficeHour collapses the fixture to a single occurrence on the
// given date.
func WithOneOffOfficeHour(date calendar.Date) OfficeHourOption {
	return func(f *OfficeHourFixture) {
		f.Recurring = false
		f.StartDate = date
		f.EndDate = date
		f.Weekdays = nil
	}
}

// WithOfficeHourCancelledOn appends cancelled occurrence dates.
func WithOfficeHourCancelledOn(dates ...calendar.Date) OfficeHourOption {
	return func(f *OfficeHourFixture) {
		f.CancelledOn = append(f.CancelledOn, dates...)
	}
}

// WithTimePerStudent sets the slot duration in minutes.
func WithTimePerStudent(minutes int) OfficeHourOption {
	return func(f *OfficeHourFixture) {
		f.TimePerStudent = minutes
	}
}

// location resolves the fixture timezone, falling back to UTC.
func (f OfficeHourFixture) location() *time.Location {
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Persistence returns the fixture as a persistence.OfficeHour value with the
// wall-clock readings anchored to instants in the fixture timezone.
func (f OfficeHourFixture) Persistence() persistence.OfficeHour {
	loc := f.location()
	return persistence.OfficeHour{
		ID:             f.ID,
		CourseID:       f.CourseID,
		HostIDs:        append([]string(nil), f.HostIDs...),
		Location:       f.Location,
		Recurring:      f.Recurring,
		Start:          f.StartTime.On(f.StartDate, loc),
		End:            f.EndTime.On(f.EndDate, loc),
		Weekdays:       append([]time.Weekday(nil), f.Weekdays...),
		CancelledOn:    append([]calendar.Date(nil), f.CancelledOn...),
		TimePerStudent: f.TimePerStudent,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Input returns the fixture as an application.OfficeHourInput.
func (f OfficeHourFixture) Input() application.OfficeHourInput {
	return application.OfficeHourInput{
		CourseID:       f.CourseID,
		HostIDs:        append([]string(nil), f.HostIDs...),
		Location:       f.Location,
		Recurring:      f.Recurring,
		StartDate:      f.StartDate,
		EndDate:        f.EndDate,
		StartTime:      f.StartTime,
		EndTime:        f.EndTime,
		Weekdays:       append([]time.Weekday(nil), f.Weekdays...),
		TimePerStudent: f.TimePerStudent,
	}
}

// ------------------------- Registration fixtures -------------------------

// RegistrationFixture represents a deterministic registration record.
type RegistrationFixture struct {
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

// RegistrationOption configures the generated registration fixture.
type RegistrationOption func(*RegistrationFixture)

// NewRegistrationFixture returns a deterministic registration fixture.
func NewRegistrationFixture(opts ...RegistrationOption) RegistrationFixture {
	idx := atomic.AddUint64(&registrationCounter, 1)
	id := fmt.Sprintf("reg-%03d", idx)
	date := calendar.Date{Year: 2025, Month: time.March, Day: 3}
	start := time.Date(2025, time.March, 3, 21, 30, 0, 0, time.UTC)
	fixture := RegistrationFixture{
		ID:           id,
		OfficeHourID: fmt.Sprintf("oh-%03d", idx),
		AccountID:    fmt.Sprintf("acc-%03d", idx),
		Date:         date,
		Start:        start,
		End:          start.Add(15 * time.Minute),
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRegistrationID overrides the generated registration ID.
func WithRegistrationID(id string) RegistrationOption {
	return func(f *RegistrationFixture) {
		f.ID = id
	}
}

// WithRegistrationOfficeHour sets the office hour ID.
func WithRegistrationOfficeHour(officeHourID string) RegistrationOption {
	return func(f *RegistrationFixture) {
		f.OfficeHourID = officeHourID
	}
}

// WithRegistrationAccount sets the registering account ID.
func WithRegistrationAccount(accountID string) RegistrationOption {
	return func(f *RegistrationFixture) {
		f.AccountID = accountID
	}
}

// WithRegistrationSlot sets the occurrence date and the slot instants.
func WithRegistrationSlot(date calendar.Date, start, end time.Time) RegistrationOption {
	return func(f *RegistrationFixture) {
		f.Date = date
		f.Start = start
		f.End = end
	}
}

// WithRegistrationTopics sets the discussion topics.
func WithRegistrationTopics(topics ...string) RegistrationOption {
	return func(f *RegistrationFixture) {
		f.Topics = append([]string(nil), topics...)
	}
}

// WithRegistrationCancelledByStudent flags a student cancellation.
func WithRegistrationCancelledByStudent() RegistrationOption {
	return func(f *RegistrationFixture) {
		f.CancelledByStudent = true
	}
}

// WithRegistrationCancelledByStaff flags a staff cancellation.
func WithRegistrationCancelledByStaff() RegistrationOption {
	return func(f *RegistrationFixture) {
		f.CancelledByStaff = true
	}
}

// Persistence returns the fixture as a persistence.Registration value.
func (f RegistrationFixture) Persistence() persistence.Registration {
	return persistence.Registration{
		ID:                 f.ID,
		OfficeHourID:       f.OfficeHourID,
		AccountID:          f.AccountID,
		Date:               f.Date,
		Start:              f.Start,
		End:                f.End,
		Topics:             append([]string(nil), f.Topics...),
		CancelledByStudent: f.CancelledByStudent,
		CancelledByStaff:   f.CancelledByStaff,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// ---------------------------- Session fixtures ---------------------------

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID          string
	AccountID   string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	id := fmt.Sprintf("session-%03d", idx)
	fixture := SessionFixture{
		ID:          id,
		AccountID:   fmt.Sprintf("acc-%03d", idx),
		Token:       fmt.Sprintf("token-%03d", idx),
		Fingerprint: fmt.Sprintf("fingerprint-%03d", idx),
		ExpiresAt:   referenceTime.Add(24 * time.Hour),
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionAccountID sets the owning account ID.
func WithSessionAccountID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.AccountID = id
	}
}

// WithSessionToken overrides the token value.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionExpiresAt sets the expiration timestamp.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt sets the optional revoked timestamp.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		revoked := t
		f.RevokedAt = &revoked
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	var revoked *time.Time
	if f.RevokedAt != nil {
		t := *f.RevokedAt
		revoked = &t
	}
	return persistence.Session{
		ID:          f.ID,
		AccountID:   f.AccountID,
		Token:       f.Token,
		Fingerprint: f.Fingerprint,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		RevokedAt:   revoked,
	}
}
