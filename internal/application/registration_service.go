package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
	"github.com/jhu-collab/proj-hourly-sub001/internal/scheduler"
)

// OccurrenceResolver resolves one office hour occurrence on one civil date.
// OfficeHourService satisfies it; tests substitute stubs.
type OccurrenceResolver interface {
	ResolveOccurrence(ctx context.Context, officeHourID string, date calendar.Date) (OccurrenceView, error)
}

// RegistrationService runs the slot claim protocol: resolve the occurrence,
// validate the request against the active registrations, then insert. The
// storage layer's active-slot uniqueness index settles races the validation
// pre-check cannot see.
type RegistrationService struct {
	registrations persistence.RegistrationRepository
	courses       persistence.CourseRepository
	resolver      OccurrenceResolver
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewRegistrationService wires dependencies for registration operations.
func NewRegistrationService(
	registrations persistence.RegistrationRepository,
	courses persistence.CourseRepository,
	resolver OccurrenceResolver,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *RegistrationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RegistrationService{
		registrations: registrations,
		courses:       courses,
		resolver:      resolver,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *RegistrationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RegistrationService", operation, attrs...)
}

// Register claims one slot of one occurrence for the acting principal.
func (s *RegistrationService) Register(ctx context.Context, params RegisterParams) (persistence.Registration, error) {
	if s == nil {
		return persistence.Registration{}, fmt.Errorf("RegistrationService is nil")
	}
	input := params.Input
	logger := s.loggerWith(ctx, "Register",
		"office_hour_id", input.OfficeHourID,
		"date", input.Date.String(),
		"account_id", params.Principal.AccountID,
	)

	occurrence, err := s.resolver.ResolveOccurrence(ctx, input.OfficeHourID, input.Date)
	if err != nil {
		return persistence.Registration{}, err
	}

	course, err := s.courses.GetCourse(ctx, occurrence.CourseID)
	if err != nil {
		return persistence.Registration{}, mapRepoError(err)
	}
	loc, err := courseLocation(course)
	if err != nil {
		return persistence.Registration{}, err
	}

	start := input.Start.On(input.Date, loc)
	// A past-midnight occurrence spills into the next civil day. A request
	// time-of-day before the window's start belongs to that spilled portion,
	// so it anchors on the day after the occurrence date.
	if start.Before(occurrence.Start) {
		start = input.Start.On(input.Date.AddDays(1), loc)
	}
	end := start.Add(time.Duration(input.DurationMinutes) * time.Minute)

	active, err := s.registrations.ListRegistrations(ctx, persistence.RegistrationFilter{
		OfficeHourID: input.OfficeHourID,
		Date:         &input.Date,
		ActiveOnly:   true,
	})
	if err != nil {
		return persistence.Registration{}, err
	}
	bookings := make([]scheduler.Booking, 0, len(active))
	for _, registration := range active {
		bookings = append(bookings, scheduler.Booking{
			ID:        registration.ID,
			AccountID: registration.AccountID,
			Start:     registration.Start,
			End:       registration.End,
		})
	}

	window := scheduler.Window{Start: occurrence.Start, End: occurrence.End}
	request := scheduler.Request{AccountID: params.Principal.AccountID, Start: start, End: end}
	if conflict := scheduler.ValidateRequest(window, request, allowedDurations(course, occurrence), bookings, s.now()); conflict != nil {
		logger.InfoContext(ctx, "registration rejected", "conflict", string(conflict.Kind))
		return persistence.Registration{}, conflict
	}

	now := s.now()
	registration := persistence.Registration{
		ID:           s.idGenerator(),
		OfficeHourID: input.OfficeHourID,
		AccountID:    params.Principal.AccountID,
		Date:         input.Date,
		Start:        start,
		End:          end,
		Topics:       input.Topics,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.registrations.CreateRegistration(ctx, registration); err != nil {
		// A concurrent claim slipped past the pre-check; the index caught it.
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.Registration{}, scheduler.NewConflict(scheduler.ConflictSlotTaken, "slot was claimed concurrently")
		}
		logger.ErrorContext(ctx, "registration insert failed", "error", err, "error_kind", ErrorKind(err))
		return persistence.Registration{}, err
	}

	logger.InfoContext(ctx, "registration created", "registration_id", registration.ID)
	return registration, nil
}

// CancelRegistration releases a registration's slot. Students cancel their
// own upcoming registrations; staff cancel any.
func (s *RegistrationService) CancelRegistration(ctx context.Context, params CancelRegistrationParams) error {
	if s == nil {
		return fmt.Errorf("RegistrationService is nil")
	}
	logger := s.loggerWith(ctx, "CancelRegistration", "registration_id", params.RegistrationID)

	registration, err := s.registrations.GetRegistration(ctx, params.RegistrationID)
	if err != nil {
		return mapRepoError(err)
	}
	if !registration.Active() {
		return ErrNotFound
	}

	byStaff := params.Principal.IsStaff()
	if !byStaff {
		if registration.AccountID != params.Principal.AccountID {
			return ErrUnauthorized
		}
		if !s.now().Before(registration.Start) {
			return scheduler.NewConflict(scheduler.ConflictAlreadyPassed, "registration has already started")
		}
	}

	if err := s.registrations.CancelRegistration(ctx, params.RegistrationID, byStaff, s.now()); err != nil {
		return mapRepoError(err)
	}
	logger.InfoContext(ctx, "registration cancelled", "by_staff", byStaff)
	return nil
}

// GetRegistration retrieves a registration visible to the principal.
func (s *RegistrationService) GetRegistration(ctx context.Context, principal Principal, id string) (persistence.Registration, error) {
	if s == nil {
		return persistence.Registration{}, fmt.Errorf("RegistrationService is nil")
	}
	registration, err := s.registrations.GetRegistration(ctx, id)
	if err != nil {
		return persistence.Registration{}, mapRepoError(err)
	}
	if !principal.IsStaff() && registration.AccountID != principal.AccountID {
		return persistence.Registration{}, ErrUnauthorized
	}
	return registration, nil
}

// ListRegistrations lists registrations. Students only see their own.
func (s *RegistrationService) ListRegistrations(ctx context.Context, params ListRegistrationsParams) ([]persistence.Registration, error) {
	if s == nil {
		return nil, fmt.Errorf("RegistrationService is nil")
	}

	filter := persistence.RegistrationFilter{
		OfficeHourID: params.OfficeHourID,
		AccountID:    params.AccountID,
		Date:         params.Date,
		ActiveOnly:   params.ActiveOnly,
	}
	if !params.Principal.IsStaff() {
		filter.AccountID = params.Principal.AccountID
	}
	return s.registrations.ListRegistrations(ctx, filter)
}

// allowedDurations returns the permitted registration lengths in minutes.
// Courses may allow several; an office hour's per-student time is the
// fallback.
func allowedDurations(course persistence.Course, occurrence OccurrenceView) []int {
	if len(course.SlotDurations) > 0 {
		return course.SlotDurations
	}
	return []int{occurrence.TimePerStudent}
}
