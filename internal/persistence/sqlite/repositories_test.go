package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence/sqlite/migration"
)

func openTestPool(t *testing.T) *ConnectionPool {
	t.Helper()
	pool, err := NewConnectionPool(migration.DefaultConfig("file:" + t.Name() + "?mode=memory&cache=shared"))
	if err != nil {
		t.Fatalf("failed to open pool: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })
	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return pool
}

var testStamp = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)

func seedCourse(t *testing.T, pool *ConnectionPool, id string) persistence.Course {
	t.Helper()
	course := persistence.Course{
		ID:            id,
		Name:          "Data Structures",
		Code:          "EN.601." + id,
		Timezone:      "America/New_York",
		SlotDurations: []int{10, 15},
		CreatedAt:     testStamp,
		UpdatedAt:     testStamp,
	}
	if err := NewCourseRepository(pool).CreateCourse(context.Background(), course); err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}
	return course
}

func seedAccount(t *testing.T, pool *ConnectionPool, id string, role persistence.AccountRole) persistence.Account {
	t.Helper()
	account := persistence.Account{
		ID:           id,
		Email:        id + "@jhu.edu",
		DisplayName:  "Account " + id,
		Role:         role,
		PasswordHash: "$argon2id$stub",
		CreatedAt:    testStamp,
		UpdatedAt:    testStamp,
	}
	if err := NewAccountRepository(pool).CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	return account
}

func seedOfficeHour(t *testing.T, pool *ConnectionPool, id, courseID, hostID string) persistence.OfficeHour {
	t.Helper()
	officeHour := persistence.OfficeHour{
		ID:             id,
		CourseID:       courseID,
		HostIDs:        []string{hostID},
		Location:       "Malone 122",
		Recurring:      true,
		Start:          time.Date(2025, time.March, 3, 16, 30, 0, 0, time.UTC),
		End:            time.Date(2025, time.March, 28, 17, 0, 0, 0, time.UTC),
		Weekdays:       []time.Weekday{time.Monday, time.Wednesday},
		TimePerStudent: 15,
		CreatedAt:      testStamp,
		UpdatedAt:      testStamp,
	}
	if err := NewOfficeHourRepository(pool).CreateOfficeHour(context.Background(), officeHour); err != nil {
		t.Fatalf("failed to seed office hour: %v", err)
	}
	return officeHour
}

func TestCourseRepository_RoundTrip(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewCourseRepository(pool)

	created := seedCourse(t, pool, "course-1")

	got, err := repo.GetCourse(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Code != created.Code || got.Timezone != "America/New_York" {
		t.Fatalf("unexpected course: %+v", got)
	}
	if len(got.SlotDurations) != 2 || got.SlotDurations[0] != 10 || got.SlotDurations[1] != 15 {
		t.Fatalf("unexpected slot durations: %v", got.SlotDurations)
	}

	created.Name = "Data Structures (Spring)"
	created.SlotDurations = []int{20}
	created.UpdatedAt = testStamp.Add(time.Hour)
	if err := repo.UpdateCourse(ctx, created); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	got, err = repo.GetCourse(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after update failed: %v", err)
	}
	if got.Name != "Data Structures (Spring)" {
		t.Fatalf("name not updated: %q", got.Name)
	}
	if len(got.SlotDurations) != 1 || got.SlotDurations[0] != 20 {
		t.Fatalf("slot durations not replaced: %v", got.SlotDurations)
	}
}

func TestCourseRepository_NotFoundAndDuplicate(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewCourseRepository(pool)

	if _, err := repo.GetCourse(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteCourse(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}

	course := seedCourse(t, pool, "course-1")
	clone := course
	clone.ID = "course-2"
	if err := repo.CreateCourse(ctx, clone); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused code, got %v", err)
	}
}

func TestAccountRepository_EmailLookupIsCaseInsensitive(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewAccountRepository(pool)

	seedAccount(t, pool, "student-1", persistence.RoleStudent)

	got, err := repo.GetAccountByEmail(ctx, "STUDENT-1@JHU.EDU")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.ID != "student-1" || got.Role != persistence.RoleStudent {
		t.Fatalf("unexpected account: %+v", got)
	}

	dup := got
	dup.ID = "student-2"
	dup.Email = "Student-1@jhu.edu"
	if err := repo.CreateAccount(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused email, got %v", err)
	}
}

func TestOfficeHourRepository_RoundTrip(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewOfficeHourRepository(pool)

	seedCourse(t, pool, "course-1")
	seedAccount(t, pool, "staff-1", persistence.RoleStaff)
	created := seedOfficeHour(t, pool, "oh-1", "course-1", "staff-1")

	got, err := repo.GetOfficeHour(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.HostIDs) != 1 || got.HostIDs[0] != "staff-1" {
		t.Fatalf("unexpected hosts: %v", got.HostIDs)
	}
	if len(got.Weekdays) != 2 || got.Weekdays[0] != time.Monday || got.Weekdays[1] != time.Wednesday {
		t.Fatalf("unexpected weekdays: %v", got.Weekdays)
	}
	if !got.Start.Equal(created.Start) || !got.End.Equal(created.End) {
		t.Fatalf("instants did not round-trip: %v %v", got.Start, got.End)
	}
}

func TestOfficeHourRepository_AddCancelledDate(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewOfficeHourRepository(pool)

	seedCourse(t, pool, "course-1")
	seedAccount(t, pool, "staff-1", persistence.RoleStaff)
	seedOfficeHour(t, pool, "oh-1", "course-1", "staff-1")

	date := calendar.Date{Year: 2025, Month: time.March, Day: 10}
	if err := repo.AddCancelledDate(ctx, "oh-1", date); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := repo.AddCancelledDate(ctx, "oh-1", date); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := repo.AddCancelledDate(ctx, "missing", date); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := repo.GetOfficeHour(ctx, "oh-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.CancelledOn) != 1 || !got.CancelledOn[0].Equal(date) {
		t.Fatalf("unexpected cancellations: %v", got.CancelledOn)
	}
}

func TestOfficeHourRepository_SoftDelete(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewOfficeHourRepository(pool)

	seedCourse(t, pool, "course-1")
	seedAccount(t, pool, "staff-1", persistence.RoleStaff)
	seedOfficeHour(t, pool, "oh-1", "course-1", "staff-1")

	if err := repo.SoftDeleteOfficeHour(ctx, "oh-1", testStamp.Add(time.Hour)); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}

	got, err := repo.GetOfficeHour(ctx, "oh-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.Deleted {
		t.Fatal("expected deleted flag")
	}

	listed, err := repo.ListOfficeHoursForCourse(ctx, "course-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("soft-deleted office hour still listed: %v", listed)
	}

	if err := repo.SoftDeleteOfficeHour(ctx, "oh-1", testStamp); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeated delete, got %v", err)
	}
}

func TestRegistrationRepository_SlotUniqueness(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewRegistrationRepository(pool)

	seedCourse(t, pool, "course-1")
	seedAccount(t, pool, "staff-1", persistence.RoleStaff)
	seedAccount(t, pool, "student-1", persistence.RoleStudent)
	seedAccount(t, pool, "student-2", persistence.RoleStudent)
	seedOfficeHour(t, pool, "oh-1", "course-1", "staff-1")

	date := calendar.Date{Year: 2025, Month: time.March, Day: 3}
	start := time.Date(2025, time.March, 3, 16, 30, 0, 0, time.UTC)
	first := persistence.Registration{
		ID:           "reg-1",
		OfficeHourID: "oh-1",
		AccountID:    "student-1",
		Date:         date,
		Start:        start,
		End:          start.Add(15 * time.Minute),
		Topics:       []string{"homework 3"},
		CreatedAt:    testStamp,
		UpdatedAt:    testStamp,
	}
	if err := repo.CreateRegistration(ctx, first); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	second := first
	second.ID = "reg-2"
	second.AccountID = "student-2"
	if err := repo.CreateRegistration(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for taken slot, got %v", err)
	}

	if err := repo.CancelRegistration(ctx, "reg-1", false, testStamp.Add(time.Hour)); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if err := repo.CreateRegistration(ctx, second); err != nil {
		t.Fatalf("slot should be claimable after cancellation: %v", err)
	}

	got, err := repo.GetRegistration(ctx, "reg-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.CancelledByStudent || got.CancelledByStaff {
		t.Fatalf("unexpected cancellation flags: %+v", got)
	}
	if len(got.Topics) != 1 || got.Topics[0] != "homework 3" {
		t.Fatalf("topics did not round-trip: %v", got.Topics)
	}
}

func TestRegistrationRepository_ListFilters(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewRegistrationRepository(pool)

	seedCourse(t, pool, "course-1")
	seedAccount(t, pool, "staff-1", persistence.RoleStaff)
	seedAccount(t, pool, "student-1", persistence.RoleStudent)
	seedOfficeHour(t, pool, "oh-1", "course-1", "staff-1")

	monday := calendar.Date{Year: 2025, Month: time.March, Day: 3}
	wednesday := calendar.Date{Year: 2025, Month: time.March, Day: 5}
	for i, spec := range []struct {
		id    string
		date  calendar.Date
		start time.Time
	}{
		{"reg-1", monday, time.Date(2025, time.March, 3, 16, 30, 0, 0, time.UTC)},
		{"reg-2", monday, time.Date(2025, time.March, 3, 16, 45, 0, 0, time.UTC)},
		{"reg-3", wednesday, time.Date(2025, time.March, 5, 16, 30, 0, 0, time.UTC)},
	} {
		reg := persistence.Registration{
			ID:           spec.id,
			OfficeHourID: "oh-1",
			AccountID:    "student-1",
			Date:         spec.date,
			Start:        spec.start,
			End:          spec.start.Add(15 * time.Minute),
			CreatedAt:    testStamp.Add(time.Duration(i) * time.Minute),
			UpdatedAt:    testStamp,
		}
		if err := repo.CreateRegistration(ctx, reg); err != nil {
			t.Fatalf("create %s failed: %v", spec.id, err)
		}
	}
	if err := repo.CancelRegistration(ctx, "reg-2", true, testStamp.Add(time.Hour)); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	byDate, err := repo.ListRegistrations(ctx, persistence.RegistrationFilter{OfficeHourID: "oh-1", Date: &monday})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byDate) != 2 {
		t.Fatalf("expected 2 registrations on monday, got %d", len(byDate))
	}

	active, err := repo.ListRegistrations(ctx, persistence.RegistrationFilter{OfficeHourID: "oh-1", Date: &monday, ActiveOnly: true})
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != "reg-1" {
		t.Fatalf("unexpected active registrations: %v", active)
	}
}

func TestRegistrationRepository_CancelRegistrationsForOccurrence(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewRegistrationRepository(pool)

	seedCourse(t, pool, "course-1")
	seedAccount(t, pool, "staff-1", persistence.RoleStaff)
	seedAccount(t, pool, "student-1", persistence.RoleStudent)
	seedOfficeHour(t, pool, "oh-1", "course-1", "staff-1")

	monday := calendar.Date{Year: 2025, Month: time.March, Day: 3}
	wednesday := calendar.Date{Year: 2025, Month: time.March, Day: 5}
	for _, spec := range []struct {
		id    string
		date  calendar.Date
		start time.Time
	}{
		{"reg-1", monday, time.Date(2025, time.March, 3, 16, 30, 0, 0, time.UTC)},
		{"reg-2", wednesday, time.Date(2025, time.March, 5, 16, 30, 0, 0, time.UTC)},
	} {
		reg := persistence.Registration{
			ID:           spec.id,
			OfficeHourID: "oh-1",
			AccountID:    "student-1",
			Date:         spec.date,
			Start:        spec.start,
			End:          spec.start.Add(15 * time.Minute),
			CreatedAt:    testStamp,
			UpdatedAt:    testStamp,
		}
		if err := repo.CreateRegistration(ctx, reg); err != nil {
			t.Fatalf("create %s failed: %v", spec.id, err)
		}
	}

	if err := repo.CancelRegistrationsForOccurrence(ctx, "oh-1", monday, testStamp.Add(time.Hour)); err != nil {
		t.Fatalf("occurrence cancel failed: %v", err)
	}

	cancelled, err := repo.GetRegistration(ctx, "reg-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !cancelled.CancelledByStaff {
		t.Fatal("monday registration should be staff-cancelled")
	}
	untouched, err := repo.GetRegistration(ctx, "reg-2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !untouched.Active() {
		t.Fatal("wednesday registration should stay active")
	}
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewSessionRepository(pool)

	seedAccount(t, pool, "student-1", persistence.RoleStudent)

	session := persistence.Session{
		ID:        "sess-1",
		AccountID: "student-1",
		Token:     "token-1",
		ExpiresAt: testStamp.Add(24 * time.Hour),
		CreatedAt: testStamp,
		UpdatedAt: testStamp,
	}
	if _, err := repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := repo.GetSession(ctx, "token-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.AccountID != "student-1" || got.RevokedAt != nil {
		t.Fatalf("unexpected session: %+v", got)
	}

	revoked, err := repo.RevokeSession(ctx, "token-1", testStamp.Add(time.Hour))
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if revoked.RevokedAt == nil {
		t.Fatal("expected revoked_at to be set")
	}
	if _, err := repo.RevokeSession(ctx, "token-1", testStamp.Add(2*time.Hour)); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second revoke, got %v", err)
	}

	if err := repo.DeleteExpiredSessions(ctx, testStamp.Add(48*time.Hour)); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if _, err := repo.GetSession(ctx, "token-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected session to be purged, got %v", err)
	}
}
