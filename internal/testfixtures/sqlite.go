package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence/sqlite"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Courses       persistence.CourseRepository
	Accounts      persistence.AccountRepository
	OfficeHours   persistence.OfficeHourRepository
	Registrations persistence.RegistrationRepository
	Sessions      persistence.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness over a temporary file that is
// migrated automatically. Cleanup is registered with the provided testing.TB;
// callers may additionally invoke Close themselves.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "hourly.db")

	pool, err := sqlite.NewConnectionPool(migration.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Courses:       sqlite.NewCourseRepository(pool),
		Accounts:      sqlite.NewAccountRepository(pool),
		OfficeHours:   sqlite.NewOfficeHourRepository(pool),
		Registrations: sqlite.NewRegistrationRepository(pool),
		Sessions:      sqlite.NewSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
