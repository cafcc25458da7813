package testfixtures

import (
	"log/slog"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/application"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

func (f *ServiceFactory) idGen(override func() string) func() string {
	if override != nil {
		return override
	}
	return f.IDGenerator.NextFunc()
}

func (f *ServiceFactory) nowFunc(override func() time.Time) func() time.Time {
	if override != nil {
		return override
	}
	return f.Clock.NowFunc()
}

// CourseServiceDeps captures dependencies for constructing a course service.
type CourseServiceDeps struct {
	Courses         persistence.CourseRepository
	DefaultTimezone string
	IDGenerator     func() string
	Now             func() time.Time
	Logger          *slog.Logger
}

// NewCourseService builds a course service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewCourseService(deps CourseServiceDeps) *application.CourseService {
	return application.NewCourseService(
		deps.Courses,
		f.idGen(deps.IDGenerator),
		f.nowFunc(deps.Now),
		deps.DefaultTimezone,
		deps.Logger,
	)
}

// OfficeHourServiceDeps captures dependencies for constructing an office hour service.
type OfficeHourServiceDeps struct {
	OfficeHours   persistence.OfficeHourRepository
	Courses       persistence.CourseRepository
	Accounts      persistence.AccountRepository
	Registrations persistence.RegistrationRepository
	IDGenerator   func() string
	Now           func() time.Time
	Logger        *slog.Logger
}

// NewOfficeHourService builds an office hour service using the supplied dependencies.
func (f *ServiceFactory) NewOfficeHourService(deps OfficeHourServiceDeps) *application.OfficeHourService {
	return application.NewOfficeHourService(
		deps.OfficeHours,
		deps.Courses,
		deps.Accounts,
		deps.Registrations,
		f.idGen(deps.IDGenerator),
		f.nowFunc(deps.Now),
		deps.Logger,
	)
}

// RegistrationServiceDeps captures dependencies for constructing a registration service.
type RegistrationServiceDeps struct {
	Registrations persistence.RegistrationRepository
	Courses       persistence.CourseRepository
	Resolver      application.OccurrenceResolver
	IDGenerator   func() string
	Now           func() time.Time
	Logger        *slog.Logger
}

// NewRegistrationService builds a registration service using the supplied dependencies.
func (f *ServiceFactory) NewRegistrationService(deps RegistrationServiceDeps) *application.RegistrationService {
	return application.NewRegistrationService(
		deps.Registrations,
		deps.Courses,
		deps.Resolver,
		f.idGen(deps.IDGenerator),
		f.nowFunc(deps.Now),
		deps.Logger,
	)
}

// AccountServiceDeps captures dependencies for constructing an account service.
type AccountServiceDeps struct {
	Accounts    persistence.AccountRepository
	Hasher      application.PasswordHasher
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewAccountService builds an account service using the supplied dependencies.
func (f *ServiceFactory) NewAccountService(deps AccountServiceDeps) *application.AccountService {
	return application.NewAccountService(
		deps.Accounts,
		deps.Hasher,
		f.idGen(deps.IDGenerator),
		f.nowFunc(deps.Now),
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Accounts       persistence.AccountRepository
	Sessions       persistence.SessionRepository
	PasswordVerify application.PasswordVerifier
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	return application.NewAuthService(
		deps.Accounts,
		deps.Sessions,
		deps.PasswordVerify,
		f.idGen(deps.TokenGenerator),
		f.nowFunc(deps.Now),
		deps.SessionTTL,
		deps.Logger,
	)
}
