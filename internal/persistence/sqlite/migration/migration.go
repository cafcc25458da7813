package migration

// Migration is one ordered schema change. Versions are contiguous and never
// reused; statements must be valid inside a single transaction.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// All returns the full ordered migration set.
func All() []Migration {
	out := make([]Migration, len(migrations))
	copy(out, migrations)
	return out
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_courses_and_accounts",
		SQL: `
CREATE TABLE courses (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	code       TEXT NOT NULL UNIQUE,
	timezone   TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE course_slot_durations (
	course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	minutes   INTEGER NOT NULL CHECK (minutes > 0),
	PRIMARY KEY (course_id, minutes)
);

CREATE TABLE accounts (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
	display_name  TEXT NOT NULL,
	role          TEXT NOT NULL CHECK (role IN ('student', 'staff')),
	password_hash TEXT NOT NULL,
	disabled      INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);
`,
	},
	{
		Version: 2,
		Name:    "create_office_hours",
		SQL: `
CREATE TABLE office_hours (
	id               TEXT PRIMARY KEY,
	course_id        TEXT NOT NULL REFERENCES courses(id),
	location         TEXT NOT NULL DEFAULT '',
	recurring        INTEGER NOT NULL DEFAULT 0,
	start_at         TEXT NOT NULL,
	end_at           TEXT NOT NULL,
	time_per_student INTEGER NOT NULL DEFAULT 0 CHECK (time_per_student >= 0),
	deleted          INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);

CREATE INDEX idx_office_hours_course ON office_hours(course_id);

CREATE TABLE office_hour_hosts (
	office_hour_id TEXT NOT NULL REFERENCES office_hours(id) ON DELETE CASCADE,
	account_id     TEXT NOT NULL REFERENCES accounts(id),
	PRIMARY KEY (office_hour_id, account_id)
);

CREATE TABLE office_hour_weekdays (
	office_hour_id TEXT NOT NULL REFERENCES office_hours(id) ON DELETE CASCADE,
	weekday        INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
	PRIMARY KEY (office_hour_id, weekday)
);

CREATE TABLE office_hour_cancellations (
	office_hour_id TEXT NOT NULL REFERENCES office_hours(id) ON DELETE CASCADE,
	date           TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	PRIMARY KEY (office_hour_id, date)
);
`,
	},
	{
		Version: 3,
		Name:    "create_registrations",
		SQL: `
CREATE TABLE registrations (
	id                TEXT PRIMARY KEY,
	office_hour_id    TEXT NOT NULL REFERENCES office_hours(id),
	account_id        TEXT NOT NULL REFERENCES accounts(id),
	date              TEXT NOT NULL,
	start_at          TEXT NOT NULL,
	end_at            TEXT NOT NULL,
	cancelled_student INTEGER NOT NULL DEFAULT 0,
	cancelled_staff   INTEGER NOT NULL DEFAULT 0,
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL,
	CHECK (end_at > start_at)
);

CREATE INDEX idx_registrations_occurrence ON registrations(office_hour_id, date);
CREATE INDEX idx_registrations_account ON registrations(account_id);

-- Authoritative guard against two concurrent requests claiming one slot: the
-- validator's overlap pre-check is a fast path, this index is the guarantee.
CREATE UNIQUE INDEX idx_registrations_active_slot
	ON registrations(office_hour_id, date, start_at)
	WHERE cancelled_student = 0 AND cancelled_staff = 0;

CREATE TABLE registration_topics (
	registration_id TEXT NOT NULL REFERENCES registrations(id) ON DELETE CASCADE,
	topic           TEXT NOT NULL,
	PRIMARY KEY (registration_id, topic)
);
`,
	},
	{
		Version: 4,
		Name:    "create_sessions",
		SQL: `
CREATE TABLE sessions (
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL REFERENCES accounts(id),
	token       TEXT NOT NULL UNIQUE,
	fingerprint TEXT NOT NULL DEFAULT '',
	expires_at  TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	revoked_at  TEXT
);

CREATE INDEX idx_sessions_account ON sessions(account_id);
`,
	},
}
