package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
	"github.com/jhu-collab/proj-hourly-sub001/internal/recurrence"
	"github.com/jhu-collab/proj-hourly-sub001/internal/scheduler"
)

// OfficeHourService orchestrates office-hour definitions and the calendar
// operations derived from them: occurrence listing, single-date resolution,
// slot availability and occurrence cancellation.
type OfficeHourService struct {
	officeHours   persistence.OfficeHourRepository
	courses       persistence.CourseRepository
	accounts      persistence.AccountRepository
	registrations persistence.RegistrationRepository
	cache         *occurrenceCache
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewOfficeHourService wires dependencies for office hour operations.
func NewOfficeHourService(
	officeHours persistence.OfficeHourRepository,
	courses persistence.CourseRepository,
	accounts persistence.AccountRepository,
	registrations persistence.RegistrationRepository,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *OfficeHourService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &OfficeHourService{
		officeHours:   officeHours,
		courses:       courses,
		accounts:      accounts,
		registrations: registrations,
		cache:         newOccurrenceCache(30*time.Second, 256, now),
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *OfficeHourService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "OfficeHourService", operation, attrs...)
}

// CreateOfficeHour validates the definition and persists it. Only staff
// create office hours, and every listed host must be an existing staff
// account.
func (s *OfficeHourService) CreateOfficeHour(ctx context.Context, params CreateOfficeHourParams) (persistence.OfficeHour, error) {
	if s == nil {
		return persistence.OfficeHour{}, fmt.Errorf("OfficeHourService is nil")
	}
	logger := s.loggerWith(ctx, "CreateOfficeHour", "course_id", params.Input.CourseID)

	if !params.Principal.IsStaff() {
		return persistence.OfficeHour{}, ErrUnauthorized
	}

	input := params.Input
	if vErr := validateOfficeHourInput(input); vErr.HasErrors() {
		return persistence.OfficeHour{}, vErr
	}

	course, err := s.courses.GetCourse(ctx, input.CourseID)
	if err != nil {
		return persistence.OfficeHour{}, mapRepoError(err)
	}
	loc, err := courseLocation(course)
	if err != nil {
		return persistence.OfficeHour{}, err
	}
	if err := s.ensureHostsAreStaff(ctx, input.HostIDs); err != nil {
		return persistence.OfficeHour{}, err
	}

	now := s.now()
	officeHour := persistence.OfficeHour{
		ID:             s.idGenerator(),
		CourseID:       course.ID,
		HostIDs:        uniqueStrings(input.HostIDs),
		Location:       strings.TrimSpace(input.Location),
		Recurring:      input.Recurring,
		Start:          input.StartTime.On(input.StartDate, loc),
		End:            input.EndTime.On(input.EndDate, loc),
		Weekdays:       sortWeekdays(input.Weekdays),
		TimePerStudent: input.TimePerStudent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.officeHours.CreateOfficeHour(ctx, officeHour); err != nil {
		logger.ErrorContext(ctx, "office hour creation failed", "error", err, "error_kind", ErrorKind(err))
		return persistence.OfficeHour{}, mapRepoError(err)
	}

	s.cache.Invalidate()
	logger.InfoContext(ctx, "office hour created", "office_hour_id", officeHour.ID)
	return officeHour, nil
}

// UpdateOfficeHour applies caller changes to an existing office hour. The
// cancellation-exception list is untouched; cancelled dates stay cancelled.
func (s *OfficeHourService) UpdateOfficeHour(ctx context.Context, params UpdateOfficeHourParams) (persistence.OfficeHour, error) {
	if s == nil {
		return persistence.OfficeHour{}, fmt.Errorf("OfficeHourService is nil")
	}
	logger := s.loggerWith(ctx, "UpdateOfficeHour", "office_hour_id", params.OfficeHourID)

	if !params.Principal.IsStaff() {
		return persistence.OfficeHour{}, ErrUnauthorized
	}

	input := params.Input
	if vErr := validateOfficeHourInput(input); vErr.HasErrors() {
		return persistence.OfficeHour{}, vErr
	}

	officeHour, err := s.officeHours.GetOfficeHour(ctx, params.OfficeHourID)
	if err != nil {
		return persistence.OfficeHour{}, mapRepoError(err)
	}
	if officeHour.Deleted {
		return persistence.OfficeHour{}, ErrNotFound
	}

	course, err := s.courses.GetCourse(ctx, officeHour.CourseID)
	if err != nil {
		return persistence.OfficeHour{}, mapRepoError(err)
	}
	loc, err := courseLocation(course)
	if err != nil {
		return persistence.OfficeHour{}, err
	}
	if err := s.ensureHostsAreStaff(ctx, input.HostIDs); err != nil {
		return persistence.OfficeHour{}, err
	}

	officeHour.HostIDs = uniqueStrings(input.HostIDs)
	officeHour.Location = strings.TrimSpace(input.Location)
	officeHour.Recurring = input.Recurring
	officeHour.Start = input.StartTime.On(input.StartDate, loc)
	officeHour.End = input.EndTime.On(input.EndDate, loc)
	officeHour.Weekdays = sortWeekdays(input.Weekdays)
	officeHour.TimePerStudent = input.TimePerStudent
	officeHour.UpdatedAt = s.now()

	if err := s.officeHours.UpdateOfficeHour(ctx, officeHour); err != nil {
		logger.ErrorContext(ctx, "office hour update failed", "error", err, "error_kind", ErrorKind(err))
		return persistence.OfficeHour{}, mapRepoError(err)
	}

	s.cache.Invalidate()
	logger.InfoContext(ctx, "office hour updated")
	return officeHour, nil
}

// GetOfficeHour retrieves an office hour; soft-deleted entries read as
// missing.
func (s *OfficeHourService) GetOfficeHour(ctx context.Context, id string) (persistence.OfficeHour, error) {
	if s == nil {
		return persistence.OfficeHour{}, fmt.Errorf("OfficeHourService is nil")
	}
	officeHour, err := s.officeHours.GetOfficeHour(ctx, id)
	if err != nil {
		return persistence.OfficeHour{}, mapRepoError(err)
	}
	if officeHour.Deleted {
		return persistence.OfficeHour{}, ErrNotFound
	}
	return officeHour, nil
}

// ListOfficeHours returns every live office hour of a course.
func (s *OfficeHourService) ListOfficeHours(ctx context.Context, courseID string) ([]persistence.OfficeHour, error) {
	if s == nil {
		return nil, fmt.Errorf("OfficeHourService is nil")
	}
	return s.officeHours.ListOfficeHoursForCourse(ctx, courseID)
}

// ListOccurrences expands every live office hour of a course into concrete
// occurrences within the requested civil-date window, ordered by start.
func (s *OfficeHourService) ListOccurrences(ctx context.Context, params ListOccurrencesParams) ([]OccurrenceView, error) {
	if s == nil {
		return nil, fmt.Errorf("OfficeHourService is nil")
	}

	course, err := s.courses.GetCourse(ctx, params.CourseID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	loc, err := courseLocation(course)
	if err != nil {
		return nil, err
	}
	engine := recurrence.NewEngine(loc)

	officeHours, err := s.officeHours.ListOfficeHoursForCourse(ctx, course.ID)
	if err != nil {
		return nil, err
	}

	opts := recurrence.ExpandOptions{RangeStart: params.From, RangeEnd: params.To}
	var views []OccurrenceView
	for _, officeHour := range officeHours {
		key := buildOccurrenceCacheKey(officeHour.ID, officeHour.UpdatedAt, params)
		occurrences, ok := s.cache.Get(key)
		if !ok {
			occurrences, err = engine.Expand(definitionFor(officeHour), opts)
			if err != nil {
				return nil, err
			}
			s.cache.Store(key, occurrences)
		}
		for _, occurrence := range occurrences {
			views = append(views, occurrenceView(occurrence, officeHour))
		}
	}

	sort.Slice(views, func(i, j int) bool {
		if !views[i].Start.Equal(views[j].Start) {
			return views[i].Start.Before(views[j].Start)
		}
		return views[i].OfficeHourID < views[j].OfficeHourID
	})
	return views, nil
}

// ResolveOccurrence materialises the occurrence of one office hour on one
// civil date. Dates outside the definition's range, off-pattern weekdays and
// cancelled dates each surface as distinct conflicts.
func (s *OfficeHourService) ResolveOccurrence(ctx context.Context, officeHourID string, date calendar.Date) (OccurrenceView, error) {
	if s == nil {
		return OccurrenceView{}, fmt.Errorf("OfficeHourService is nil")
	}

	officeHour, err := s.officeHours.GetOfficeHour(ctx, officeHourID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return OccurrenceView{}, scheduler.NewConflict(scheduler.ConflictNotFound, "office hour does not exist")
		}
		return OccurrenceView{}, err
	}
	if officeHour.Deleted {
		return OccurrenceView{}, scheduler.NewConflict(scheduler.ConflictNotFound, "office hour was deleted")
	}

	course, err := s.courses.GetCourse(ctx, officeHour.CourseID)
	if err != nil {
		return OccurrenceView{}, mapRepoError(err)
	}
	loc, err := courseLocation(course)
	if err != nil {
		return OccurrenceView{}, err
	}

	occurrence, err := resolveOccurrence(recurrence.NewEngine(loc), definitionFor(officeHour), date)
	if err != nil {
		return OccurrenceView{}, err
	}
	return occurrenceView(occurrence, officeHour), nil
}

// AvailableSlots partitions one occurrence into slots of the office hour's
// per-student duration and filters out those already claimed.
func (s *OfficeHourService) AvailableSlots(ctx context.Context, officeHourID string, date calendar.Date) ([]scheduler.Slot, error) {
	if s == nil {
		return nil, fmt.Errorf("OfficeHourService is nil")
	}

	occurrence, err := s.ResolveOccurrence(ctx, officeHourID, date)
	if err != nil {
		return nil, err
	}

	bookings, err := s.activeBookings(ctx, officeHourID, date)
	if err != nil {
		return nil, err
	}

	per := time.Duration(occurrence.TimePerStudent) * time.Minute
	window := scheduler.Window{Start: occurrence.Start, End: occurrence.End}
	return scheduler.AvailableSlots(window, per, bookings), nil
}

// CancelOccurrence marks one occurrence date cancelled and staff-cancels
// every active registration on it. Already-cancelled dates and dates the
// office hour never meets on are rejected.
func (s *OfficeHourService) CancelOccurrence(ctx context.Context, params CancelOccurrenceParams) error {
	if s == nil {
		return fmt.Errorf("OfficeHourService is nil")
	}
	logger := s.loggerWith(ctx, "CancelOccurrence",
		"office_hour_id", params.OfficeHourID,
		"date", params.Date.String(),
	)

	if !params.Principal.IsStaff() {
		return ErrUnauthorized
	}

	if _, err := s.ResolveOccurrence(ctx, params.OfficeHourID, params.Date); err != nil {
		return err
	}

	if err := s.officeHours.AddCancelledDate(ctx, params.OfficeHourID, params.Date); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return scheduler.NewConflict(scheduler.ConflictNotOnSchedule, "occurrence is already cancelled")
		}
		return mapRepoError(err)
	}

	if err := s.registrations.CancelRegistrationsForOccurrence(ctx, params.OfficeHourID, params.Date, s.now()); err != nil {
		logger.ErrorContext(ctx, "registration cascade failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	s.cache.Invalidate()
	logger.InfoContext(ctx, "occurrence cancelled")
	return nil
}

// DeleteOfficeHour soft-deletes an office hour and staff-cancels all of its
// active registrations.
func (s *OfficeHourService) DeleteOfficeHour(ctx context.Context, params DeleteOfficeHourParams) error {
	if s == nil {
		return fmt.Errorf("OfficeHourService is nil")
	}
	logger := s.loggerWith(ctx, "DeleteOfficeHour", "office_hour_id", params.OfficeHourID)

	if !params.Principal.IsStaff() {
		return ErrUnauthorized
	}

	now := s.now()
	if err := s.officeHours.SoftDeleteOfficeHour(ctx, params.OfficeHourID, now); err != nil {
		return mapRepoError(err)
	}

	active, err := s.registrations.ListRegistrations(ctx, persistence.RegistrationFilter{
		OfficeHourID: params.OfficeHourID,
		ActiveOnly:   true,
	})
	if err != nil {
		return err
	}
	for _, registration := range active {
		if err := s.registrations.CancelRegistration(ctx, registration.ID, true, now); err != nil {
			logger.ErrorContext(ctx, "registration cascade failed", "registration_id", registration.ID, "error", err)
			return err
		}
	}

	s.cache.Invalidate()
	logger.InfoContext(ctx, "office hour deleted", "cancelled_registrations", len(active))
	return nil
}

func (s *OfficeHourService) ensureHostsAreStaff(ctx context.Context, hostIDs []string) error {
	vErr := &ValidationError{}
	for _, hostID := range uniqueStrings(hostIDs) {
		account, err := s.accounts.GetAccount(ctx, hostID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				vErr.add("host_ids", "host "+hostID+" does not exist")
				continue
			}
			return err
		}
		if account.Role != persistence.RoleStaff {
			vErr.add("host_ids", "host "+hostID+" is not staff")
		}
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func (s *OfficeHourService) activeBookings(ctx context.Context, officeHourID string, date calendar.Date) ([]scheduler.Booking, error) {
	registrations, err := s.registrations.ListRegistrations(ctx, persistence.RegistrationFilter{
		OfficeHourID: officeHourID,
		Date:         &date,
		ActiveOnly:   true,
	})
	if err != nil {
		return nil, err
	}
	bookings := make([]scheduler.Booking, 0, len(registrations))
	for _, registration := range registrations {
		bookings = append(bookings, scheduler.Booking{
			ID:        registration.ID,
			AccountID: registration.AccountID,
			Start:     registration.Start,
			End:       registration.End,
		})
	}
	return bookings, nil
}

// resolveOccurrence wraps Engine.Resolve, translating its sentinel into the
// conflict taxonomy callers report to users.
func resolveOccurrence(engine *recurrence.Engine, def recurrence.Definition, date calendar.Date) (recurrence.Occurrence, error) {
	occurrence, err := engine.Resolve(def, date)
	if err == nil {
		return occurrence, nil
	}
	if !errors.Is(err, recurrence.ErrNoOccurrence) {
		return recurrence.Occurrence{}, err
	}

	loc := engine.Location()
	first := calendar.DateOf(def.Start, loc)
	last := calendar.DateOf(def.End, loc)
	if date.Before(first) || date.After(last) {
		return recurrence.Occurrence{}, scheduler.NewConflict(scheduler.ConflictNotOnSchedule, "date is outside the office hour's range")
	}
	if def.CancelledOn.Contains(date) {
		if onSchedule, scheduleErr := engine.OnSchedule(def, date); scheduleErr == nil && onSchedule {
			return recurrence.Occurrence{}, scheduler.NewConflict(scheduler.ConflictNotOnSchedule, "occurrence is cancelled on this date")
		}
	}
	return recurrence.Occurrence{}, scheduler.NewConflict(scheduler.ConflictNotOnSchedule, "office hour does not meet on this date")
}

func definitionFor(officeHour persistence.OfficeHour) recurrence.Definition {
	return recurrence.Definition{
		OfficeHourID: officeHour.ID,
		Recurring:    officeHour.Recurring,
		Start:        officeHour.Start,
		End:          officeHour.End,
		Weekdays:     officeHour.Weekdays,
		CancelledOn:  calendar.NewDateSet(officeHour.CancelledOn...),
	}
}

func occurrenceView(occurrence recurrence.Occurrence, officeHour persistence.OfficeHour) OccurrenceView {
	return OccurrenceView{
		OfficeHourID:   officeHour.ID,
		CourseID:       officeHour.CourseID,
		Date:           occurrence.Date,
		Start:          occurrence.Start,
		End:            occurrence.End,
		Location:       officeHour.Location,
		HostIDs:        officeHour.HostIDs,
		TimePerStudent: officeHour.TimePerStudent,
	}
}

func courseLocation(course persistence.Course) (*time.Location, error) {
	loc, err := time.LoadLocation(course.Timezone)
	if err != nil {
		return nil, fmt.Errorf("course %s has invalid timezone %q: %w", course.ID, course.Timezone, err)
	}
	return loc, nil
}

func validateOfficeHourInput(input OfficeHourInput) *ValidationError {
	vErr := &ValidationError{}

	if input.CourseID == "" {
		vErr.add("course_id", "course is required")
	}
	if len(input.HostIDs) == 0 {
		vErr.add("host_ids", "at least one host is required")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		vErr.add("dates", "start and end dates are required")
	} else if input.EndDate.Before(input.StartDate) {
		vErr.add("dates", "end date precedes start date")
	}
	if input.Recurring && len(input.Weekdays) == 0 {
		vErr.add("weekdays", "recurring office hours need at least one weekday")
	}
	if input.Recurring && len(input.Weekdays) > 0 && !input.StartDate.IsZero() &&
		!slices.Contains(input.Weekdays, input.StartDate.Weekday()) {
		vErr.add("start_date", "start date must fall on one of the selected weekdays")
	}
	if !input.Recurring && !input.StartDate.Equal(input.EndDate) {
		vErr.add("dates", "one-off office hours start and end on the same date")
	}
	if input.TimePerStudent <= 0 {
		vErr.add("time_per_student", "per-student minutes must be positive")
	}
	return vErr
}

func uniqueStrings(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

func sortWeekdays(days []time.Weekday) []time.Weekday {
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}
