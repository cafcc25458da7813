package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
	"github.com/jhu-collab/proj-hourly-sub001/internal/scheduler"
)

type registrationFixture struct {
	service       *RegistrationService
	registrations *fakeRegistrationRepo
	officeHours   *fakeOfficeHourRepo
	now           time.Time
}

func newRegistrationFixture(t *testing.T) registrationFixture {
	t.Helper()
	courses := newFakeCourseRepo()
	accounts := newFakeAccountRepo()
	officeHours := newFakeOfficeHourRepo()
	registrations := newFakeRegistrationRepo()

	courses.courses["course-1"] = persistence.Course{
		ID:            "course-1",
		Name:          "Data Structures",
		Code:          "EN.601.226",
		Timezone:      "America/New_York",
		SlotDurations: []int{15, 30},
	}
	accounts.accounts["staff-1"] = persistence.Account{ID: "staff-1", Role: persistence.RoleStaff}
	accounts.accounts["student-1"] = persistence.Account{ID: "student-1", Role: persistence.RoleStudent}
	accounts.accounts["student-2"] = persistence.Account{ID: "student-2", Role: persistence.RoleStudent}

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	officeHours.officeHours["oh-1"] = persistence.OfficeHour{
		ID:             "oh-1",
		CourseID:       "course-1",
		HostIDs:        []string{"staff-1"},
		Recurring:      true,
		Start:          time.Date(2025, time.March, 3, 16, 30, 0, 0, loc),
		End:            time.Date(2025, time.March, 28, 17, 30, 0, 0, loc),
		Weekdays:       []time.Weekday{time.Monday, time.Wednesday},
		TimePerStudent: 15,
		UpdatedAt:      testNow,
	}

	resolver := NewOfficeHourService(officeHours, courses, accounts, registrations, sequentialIDs("oh"), fixedClock(testNow), nil)
	service := NewRegistrationService(registrations, courses, resolver, sequentialIDs("reg"), fixedClock(testNow), nil)
	return registrationFixture{
		service:       service,
		registrations: registrations,
		officeHours:   officeHours,
		now:           testNow,
	}
}

func registerParams(accountID string, day int, hour, minute, duration int) RegisterParams {
	return RegisterParams{
		Principal: Principal{AccountID: accountID, Role: persistence.RoleStudent},
		Input: RegisterInput{
			OfficeHourID:    "oh-1",
			Date:            calendar.Date{Year: 2025, Month: time.March, Day: day},
			Start:           calendar.TimeOfDay{Hour: hour, Minute: minute},
			DurationMinutes: duration,
			Topics:          []string{"assignment"},
		},
	}
}

func TestRegistrationService_Register(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("claims a free slot", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)

		registration, err := f.service.Register(ctx, registerParams("student-1", 10, 16, 30, 15))
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
		if registration.AccountID != "student-1" {
			t.Fatalf("unexpected registration: %+v", registration)
		}
		if got := registration.End.Sub(registration.Start); got != 15*time.Minute {
			t.Fatalf("duration = %v, want 15m", got)
		}
	})

	t.Run("rejects a date outside the range", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		_, err := f.service.Register(ctx, registerParams("student-1", 31, 16, 30, 15))
		assertConflictKind(t, err, scheduler.ConflictNotOnSchedule)
	})

	t.Run("claims the post-midnight portion of a wrapping occurrence", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Fatalf("failed to load location: %v", err)
		}
		// Mondays 23:00-01:00; the second half of each occurrence falls on
		// the next civil day.
		f.officeHours.officeHours["oh-2"] = persistence.OfficeHour{
			ID:             "oh-2",
			CourseID:       "course-1",
			HostIDs:        []string{"staff-1"},
			Recurring:      true,
			Start:          time.Date(2025, time.March, 3, 23, 0, 0, 0, loc),
			End:            time.Date(2025, time.March, 28, 1, 0, 0, 0, loc),
			Weekdays:       []time.Weekday{time.Monday},
			TimePerStudent: 30,
			UpdatedAt:      testNow,
		}

		params := RegisterParams{
			Principal: Principal{AccountID: "student-1", Role: persistence.RoleStudent},
			Input: RegisterInput{
				OfficeHourID:    "oh-2",
				Date:            calendar.Date{Year: 2025, Month: time.March, Day: 10},
				Start:           calendar.TimeOfDay{Hour: 0, Minute: 0},
				DurationMinutes: 30,
			},
		}
		registration, err := f.service.Register(ctx, params)
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
		want := time.Date(2025, time.March, 11, 0, 0, 0, 0, loc)
		if !registration.Start.Equal(want) {
			t.Fatalf("start = %v, want %v", registration.Start, want)
		}
	})

	t.Run("rejects an off-pattern date", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		_, err := f.service.Register(ctx, registerParams("student-1", 11, 16, 30, 15))
		assertConflictKind(t, err, scheduler.ConflictNotOnSchedule)
	})

	t.Run("rejects a disallowed duration", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		_, err := f.service.Register(ctx, registerParams("student-1", 10, 16, 30, 20))
		assertConflictKind(t, err, scheduler.ConflictInvalidDuration)
	})

	t.Run("rejects a slot outside the occurrence window", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		_, err := f.service.Register(ctx, registerParams("student-1", 10, 18, 0, 15))
		assertConflictKind(t, err, scheduler.ConflictOutOfRange)
	})

	t.Run("rejects an overlapping slot", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		if _, err := f.service.Register(ctx, registerParams("student-1", 10, 16, 30, 30)); err != nil {
			t.Fatalf("seed register failed: %v", err)
		}
		_, err := f.service.Register(ctx, registerParams("student-2", 10, 16, 45, 15))
		assertConflictKind(t, err, scheduler.ConflictSlotTaken)
	})

	t.Run("rejects a second registration on the same occurrence", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		if _, err := f.service.Register(ctx, registerParams("student-1", 10, 16, 30, 15)); err != nil {
			t.Fatalf("seed register failed: %v", err)
		}
		_, err := f.service.Register(ctx, registerParams("student-1", 10, 16, 45, 15))
		assertConflictKind(t, err, scheduler.ConflictAlreadyRegistered)
	})

	t.Run("allows re-registering after cancellation", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		first, err := f.service.Register(ctx, registerParams("student-1", 10, 16, 30, 15))
		if err != nil {
			t.Fatalf("seed register failed: %v", err)
		}
		err = f.service.CancelRegistration(ctx, CancelRegistrationParams{
			Principal:      Principal{AccountID: "student-1", Role: persistence.RoleStudent},
			RegistrationID: first.ID,
		})
		if err != nil {
			t.Fatalf("cancel failed: %v", err)
		}
		if _, err := f.service.Register(ctx, registerParams("student-1", 10, 16, 30, 15)); err != nil {
			t.Fatalf("re-register failed: %v", err)
		}
	})

	t.Run("rejects a start that already passed", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		late := time.Date(2025, time.March, 10, 22, 0, 0, 0, time.UTC)
		f.service.now = fixedClock(late)
		_, err := f.service.Register(ctx, registerParams("student-1", 10, 16, 30, 15))
		assertConflictKind(t, err, scheduler.ConflictAlreadyPassed)
	})

	t.Run("maps a storage duplicate to a slot conflict", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		f.registrations.createErr = persistence.ErrDuplicate
		_, err := f.service.Register(ctx, registerParams("student-1", 10, 16, 30, 15))
		assertConflictKind(t, err, scheduler.ConflictSlotTaken)
	})
}

func TestRegistrationService_CancelRegistration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	seed := func(t *testing.T, f registrationFixture) persistence.Registration {
		t.Helper()
		registration, err := f.service.Register(ctx, registerParams("student-1", 10, 16, 30, 15))
		if err != nil {
			t.Fatalf("seed register failed: %v", err)
		}
		return registration
	}

	t.Run("student cancels own registration", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		registration := seed(t, f)

		err := f.service.CancelRegistration(ctx, CancelRegistrationParams{
			Principal:      Principal{AccountID: "student-1", Role: persistence.RoleStudent},
			RegistrationID: registration.ID,
		})
		if err != nil {
			t.Fatalf("cancel failed: %v", err)
		}
		stored := f.registrations.registrations[registration.ID]
		if !stored.CancelledByStudent || stored.CancelledByStaff {
			t.Fatalf("unexpected flags: %+v", stored)
		}
	})

	t.Run("student cannot cancel someone else's registration", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		registration := seed(t, f)

		err := f.service.CancelRegistration(ctx, CancelRegistrationParams{
			Principal:      Principal{AccountID: "student-2", Role: persistence.RoleStudent},
			RegistrationID: registration.ID,
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("student cannot cancel after start", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		registration := seed(t, f)
		f.service.now = fixedClock(registration.Start.Add(time.Minute))

		err := f.service.CancelRegistration(ctx, CancelRegistrationParams{
			Principal:      Principal{AccountID: "student-1", Role: persistence.RoleStudent},
			RegistrationID: registration.ID,
		})
		assertConflictKind(t, err, scheduler.ConflictAlreadyPassed)
	})

	t.Run("staff cancels any registration", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		registration := seed(t, f)

		err := f.service.CancelRegistration(ctx, CancelRegistrationParams{
			Principal:      Principal{AccountID: "staff-1", Role: persistence.RoleStaff},
			RegistrationID: registration.ID,
		})
		if err != nil {
			t.Fatalf("cancel failed: %v", err)
		}
		if !f.registrations.registrations[registration.ID].CancelledByStaff {
			t.Fatal("expected staff cancellation flag")
		}
	})

	t.Run("cancelling a cancelled registration reports not found", func(t *testing.T) {
		t.Parallel()
		f := newRegistrationFixture(t)
		registration := seed(t, f)
		params := CancelRegistrationParams{
			Principal:      Principal{AccountID: "staff-1", Role: persistence.RoleStaff},
			RegistrationID: registration.ID,
		}
		if err := f.service.CancelRegistration(ctx, params); err != nil {
			t.Fatalf("first cancel failed: %v", err)
		}
		if err := f.service.CancelRegistration(ctx, params); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRegistrationService_ListRegistrations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newRegistrationFixture(t)

	if _, err := f.service.Register(ctx, registerParams("student-1", 10, 16, 30, 15)); err != nil {
		t.Fatalf("seed register failed: %v", err)
	}
	if _, err := f.service.Register(ctx, registerParams("student-2", 10, 16, 45, 15)); err != nil {
		t.Fatalf("seed register failed: %v", err)
	}

	own, err := f.service.ListRegistrations(ctx, ListRegistrationsParams{
		Principal: Principal{AccountID: "student-1", Role: persistence.RoleStudent},
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(own) != 1 || own[0].AccountID != "student-1" {
		t.Fatalf("students should only see their own registrations: %v", own)
	}

	all, err := f.service.ListRegistrations(ctx, ListRegistrationsParams{
		Principal:    Principal{AccountID: "staff-1", Role: persistence.RoleStaff},
		OfficeHourID: "oh-1",
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("staff should see every registration, got %d", len(all))
	}
}
