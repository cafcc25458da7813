package testfixtures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/application"
	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
	"github.com/jhu-collab/proj-hourly-sub001/internal/scheduler"
)

// Exercises the full registration flow against real SQLite repositories: the
// services validate, the partial unique index arbitrates the slot.
func TestSQLiteHarnessRegistrationFlow(t *testing.T) {
	harness := NewSQLiteHarness(t)
	factory := NewServiceFactory()
	ctx := context.Background()

	staff := NewAccountFixture(WithStaffRole())
	student := NewAccountFixture()
	rival := NewAccountFixture()
	for _, account := range []AccountFixture{staff, student, rival} {
		if err := harness.Accounts.CreateAccount(ctx, account.Persistence()); err != nil {
			t.Fatalf("failed to seed account: %v", err)
		}
	}

	course := NewCourseFixture(WithCourseSlotDurations(15, 30))
	if err := harness.Courses.CreateCourse(ctx, course.Persistence()); err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}

	officeHours := factory.NewOfficeHourService(OfficeHourServiceDeps{
		OfficeHours:   harness.OfficeHours,
		Courses:       harness.Courses,
		Accounts:      harness.Accounts,
		Registrations: harness.Registrations,
	})
	registrations := factory.NewRegistrationService(RegistrationServiceDeps{
		Registrations: harness.Registrations,
		Courses:       harness.Courses,
		Resolver:      officeHours,
	})

	definition := NewOfficeHourFixture(
		WithOfficeHourCourse(course.ID),
		WithOfficeHourHosts(staff.ID),
	)
	created, err := officeHours.CreateOfficeHour(ctx, application.CreateOfficeHourParams{
		Principal: staff.Principal(),
		Input:     definition.Input(),
	})
	if err != nil {
		t.Fatalf("CreateOfficeHour returned error: %v", err)
	}

	date := calendar.Date{Year: 2025, Month: time.March, Day: 3}
	input := application.RegisterInput{
		OfficeHourID:    created.ID,
		Date:            date,
		Start:           calendar.TimeOfDay{Hour: 16, Minute: 30},
		DurationMinutes: 15,
		Topics:          []string{"assignment 3"},
	}

	first, err := registrations.Register(ctx, application.RegisterParams{
		Principal: student.Principal(),
		Input:     input,
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !first.Active() {
		t.Error("expected first registration to be active")
	}

	_, err = registrations.Register(ctx, application.RegisterParams{
		Principal: rival.Principal(),
		Input:     input,
	})
	var conflict *scheduler.ConflictError
	if !errors.As(err, &conflict) || conflict.Kind != scheduler.ConflictSlotTaken {
		t.Fatalf("expected slot_taken conflict for rival claim, got %v", err)
	}

	if err := registrations.CancelRegistration(ctx, application.CancelRegistrationParams{
		Principal:      student.Principal(),
		RegistrationID: first.ID,
	}); err != nil {
		t.Fatalf("CancelRegistration returned error: %v", err)
	}

	second, err := registrations.Register(ctx, application.RegisterParams{
		Principal: rival.Principal(),
		Input:     input,
	})
	if err != nil {
		t.Fatalf("expected slot to be claimable after cancellation, got %v", err)
	}
	if second.AccountID != rival.ID {
		t.Errorf("expected rival to hold the slot, got %q", second.AccountID)
	}
}
