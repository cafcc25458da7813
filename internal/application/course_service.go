package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

// CourseService orchestrates validation and persistence for course operations.
type CourseService struct {
	courses         persistence.CourseRepository
	defaultTimezone string
	idGenerator     func() string
	now             func() time.Time
	logger          *slog.Logger
}

// NewCourseService wires dependencies for course operations. Courses created
// without an explicit timezone fall back to defaultTimezone, or
// America/New_York when that is empty.
func NewCourseService(courses persistence.CourseRepository, idGenerator func() string, now func() time.Time, defaultTimezone string, logger *slog.Logger) *CourseService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if defaultTimezone == "" {
		defaultTimezone = "America/New_York"
	}
	return &CourseService{
		courses:         courses,
		defaultTimezone: defaultTimezone,
		idGenerator:     idGenerator,
		now:             now,
		logger:          defaultLogger(logger),
	}
}

func (s *CourseService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CourseService", operation, attrs...)
}

// CreateCourse validates the request before delegating to persistence. Only
// staff create courses.
func (s *CourseService) CreateCourse(ctx context.Context, params CreateCourseParams) (persistence.Course, error) {
	if s == nil {
		return persistence.Course{}, fmt.Errorf("CourseService is nil")
	}
	logger := s.loggerWith(ctx, "CreateCourse", "code", params.Input.Code)

	if !params.Principal.IsStaff() {
		return persistence.Course{}, ErrUnauthorized
	}
	input, vErr := normalizeCourseInput(params.Input, s.defaultTimezone)
	if vErr.HasErrors() {
		return persistence.Course{}, vErr
	}

	now := s.now()
	course := persistence.Course{
		ID:            s.idGenerator(),
		Name:          input.Name,
		Code:          input.Code,
		Timezone:      input.Timezone,
		SlotDurations: input.SlotDurations,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.courses.CreateCourse(ctx, course); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.Course{}, ErrAlreadyExists
		}
		logger.ErrorContext(ctx, "course creation failed", "error", err, "error_kind", ErrorKind(err))
		return persistence.Course{}, err
	}

	logger.InfoContext(ctx, "course created", "course_id", course.ID)
	return course, nil
}

// UpdateCourse applies caller changes to an existing course.
func (s *CourseService) UpdateCourse(ctx context.Context, params UpdateCourseParams) (persistence.Course, error) {
	if s == nil {
		return persistence.Course{}, fmt.Errorf("CourseService is nil")
	}
	logger := s.loggerWith(ctx, "UpdateCourse", "course_id", params.CourseID)

	if !params.Principal.IsStaff() {
		return persistence.Course{}, ErrUnauthorized
	}
	input, vErr := normalizeCourseInput(params.Input, s.defaultTimezone)
	if vErr.HasErrors() {
		return persistence.Course{}, vErr
	}

	course, err := s.courses.GetCourse(ctx, params.CourseID)
	if err != nil {
		return persistence.Course{}, mapRepoError(err)
	}

	course.Name = input.Name
	course.Code = input.Code
	course.Timezone = input.Timezone
	course.SlotDurations = input.SlotDurations
	course.UpdatedAt = s.now()

	if err := s.courses.UpdateCourse(ctx, course); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return persistence.Course{}, ErrAlreadyExists
		}
		logger.ErrorContext(ctx, "course update failed", "error", err, "error_kind", ErrorKind(err))
		return persistence.Course{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "course updated")
	return course, nil
}

// GetCourse retrieves a single course.
func (s *CourseService) GetCourse(ctx context.Context, id string) (persistence.Course, error) {
	if s == nil {
		return persistence.Course{}, fmt.Errorf("CourseService is nil")
	}
	course, err := s.courses.GetCourse(ctx, id)
	if err != nil {
		return persistence.Course{}, mapRepoError(err)
	}
	return course, nil
}

// ListCourses returns all courses.
func (s *CourseService) ListCourses(ctx context.Context) ([]persistence.Course, error) {
	if s == nil {
		return nil, fmt.Errorf("CourseService is nil")
	}
	return s.courses.ListCourses(ctx)
}

// DeleteCourse removes a course. Only staff delete courses.
func (s *CourseService) DeleteCourse(ctx context.Context, params DeleteCourseParams) error {
	if s == nil {
		return fmt.Errorf("CourseService is nil")
	}
	if !params.Principal.IsStaff() {
		return ErrUnauthorized
	}
	return mapRepoError(s.courses.DeleteCourse(ctx, params.CourseID))
}

func normalizeCourseInput(input CourseInput, defaultTimezone string) (CourseInput, *ValidationError) {
	vErr := &ValidationError{}

	input.Name = strings.TrimSpace(input.Name)
	input.Code = strings.TrimSpace(input.Code)
	input.Timezone = strings.TrimSpace(input.Timezone)
	if input.Timezone == "" {
		input.Timezone = defaultTimezone
	}

	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Code == "" {
		vErr.add("code", "code is required")
	}
	if input.Timezone == "" {
		vErr.add("timezone", "timezone is required")
	} else if _, err := time.LoadLocation(input.Timezone); err != nil {
		vErr.add("timezone", "timezone must be a valid IANA zone name")
	}

	durations := slices.Clone(input.SlotDurations)
	slices.Sort(durations)
	durations = slices.Compact(durations)
	for _, minutes := range durations {
		if minutes <= 0 {
			vErr.add("slot_durations", "slot durations must be positive minutes")
			break
		}
	}
	input.SlotDurations = durations

	return input, vErr
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
