package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

// OfficeHourRepository implements persistence.OfficeHourRepository using
// SQLite. Hosts, weekdays and cancellation dates live in side tables keyed by
// the office hour ID.
type OfficeHourRepository struct {
	pool *ConnectionPool
}

// NewOfficeHourRepository creates a new SQLite office hour repository.
func NewOfficeHourRepository(pool *ConnectionPool) *OfficeHourRepository {
	return &OfficeHourRepository{pool: pool}
}

// CreateOfficeHour inserts an office hour with its hosts and weekday pattern.
func (r *OfficeHourRepository) CreateOfficeHour(ctx context.Context, officeHour persistence.OfficeHour) error {
	if officeHour.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO office_hours (id, course_id, location, recurring, start_at, end_at, time_per_student, deleted, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, query,
			officeHour.ID,
			officeHour.CourseID,
			officeHour.Location,
			boolToInt(officeHour.Recurring),
			formatTime(officeHour.Start),
			formatTime(officeHour.End),
			officeHour.TimePerStudent,
			boolToInt(officeHour.Deleted),
			formatTime(officeHour.CreatedAt),
			formatTime(officeHour.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		if err := r.insertHosts(ctx, tx, officeHour.ID, officeHour.HostIDs); err != nil {
			return err
		}
		if err := r.insertWeekdays(ctx, tx, officeHour.ID, officeHour.Weekdays); err != nil {
			return err
		}
		for _, date := range officeHour.CancelledOn {
			if err := r.insertCancellation(ctx, tx, officeHour.ID, date, officeHour.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateOfficeHour updates the office hour row and replaces its hosts and
// weekday pattern. Cancellation dates are append-only and updated through
// AddCancelledDate only.
func (r *OfficeHourRepository) UpdateOfficeHour(ctx context.Context, officeHour persistence.OfficeHour) error {
	if officeHour.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE office_hours
			SET location = ?, recurring = ?, start_at = ?, end_at = ?, time_per_student = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := tx.ExecContext(ctx, query,
			officeHour.Location,
			boolToInt(officeHour.Recurring),
			formatTime(officeHour.Start),
			formatTime(officeHour.End),
			officeHour.TimePerStudent,
			formatTime(officeHour.UpdatedAt),
			officeHour.ID,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return mapError(err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM office_hour_hosts WHERE office_hour_id = ?", officeHour.ID); err != nil {
			return mapError(err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM office_hour_weekdays WHERE office_hour_id = ?", officeHour.ID); err != nil {
			return mapError(err)
		}
		if err := r.insertHosts(ctx, tx, officeHour.ID, officeHour.HostIDs); err != nil {
			return err
		}
		return r.insertWeekdays(ctx, tx, officeHour.ID, officeHour.Weekdays)
	})
}

// GetOfficeHour retrieves an office hour by ID, including soft-deleted rows.
func (r *OfficeHourRepository) GetOfficeHour(ctx context.Context, id string) (persistence.OfficeHour, error) {
	query := officeHourSelect + " WHERE id = ?"
	officeHour, err := r.scanOfficeHour(r.pool.DB().QueryRowContext(ctx, query, id))
	if err != nil {
		return persistence.OfficeHour{}, err
	}
	if err := r.loadSideTables(ctx, &officeHour); err != nil {
		return persistence.OfficeHour{}, err
	}
	return officeHour, nil
}

// ListOfficeHoursForCourse returns every non-deleted office hour of a course
// ordered by start time.
func (r *OfficeHourRepository) ListOfficeHoursForCourse(ctx context.Context, courseID string) ([]persistence.OfficeHour, error) {
	query := officeHourSelect + " WHERE course_id = ? AND deleted = 0 ORDER BY start_at, id"
	rows, err := r.pool.DB().QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var officeHours []persistence.OfficeHour
	for rows.Next() {
		officeHour, err := r.scanOfficeHour(rows)
		if err != nil {
			return nil, err
		}
		officeHours = append(officeHours, officeHour)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range officeHours {
		if err := r.loadSideTables(ctx, &officeHours[i]); err != nil {
			return nil, err
		}
	}
	return officeHours, nil
}

// AddCancelledDate appends one civil date to the cancellation list. A date
// already present surfaces as ErrDuplicate; an unknown office hour as
// ErrNotFound.
func (r *OfficeHourRepository) AddCancelledDate(ctx context.Context, officeHourID string, date calendar.Date) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM office_hours WHERE id = ?", officeHourID).Scan(&exists)
		if err != nil {
			return mapError(err)
		}
		return r.insertCancellation(ctx, tx, officeHourID, date, time.Now())
	})
}

// SoftDeleteOfficeHour marks an office hour deleted while keeping the row for
// registration history.
func (r *OfficeHourRepository) SoftDeleteOfficeHour(ctx context.Context, id string, deletedAt time.Time) error {
	query := "UPDATE office_hours SET deleted = 1, updated_at = ? WHERE id = ? AND deleted = 0"
	result, err := r.pool.DB().ExecContext(ctx, query, formatTime(deletedAt), id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *OfficeHourRepository) insertHosts(ctx context.Context, tx *sql.Tx, officeHourID string, hostIDs []string) error {
	for _, hostID := range hostIDs {
		query := "INSERT INTO office_hour_hosts (office_hour_id, account_id) VALUES (?, ?)"
		if _, err := tx.ExecContext(ctx, query, officeHourID, hostID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *OfficeHourRepository) insertWeekdays(ctx context.Context, tx *sql.Tx, officeHourID string, weekdays []time.Weekday) error {
	for _, weekday := range weekdays {
		query := "INSERT INTO office_hour_weekdays (office_hour_id, weekday) VALUES (?, ?)"
		if _, err := tx.ExecContext(ctx, query, officeHourID, int(weekday)); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *OfficeHourRepository) insertCancellation(ctx context.Context, tx *sql.Tx, officeHourID string, date calendar.Date, at time.Time) error {
	query := "INSERT INTO office_hour_cancellations (office_hour_id, date, created_at) VALUES (?, ?, ?)"
	_, err := tx.ExecContext(ctx, query, officeHourID, formatDate(date), formatTime(at))
	return mapError(err)
}

const officeHourSelect = `
	SELECT id, course_id, location, recurring, start_at, end_at, time_per_student, deleted, created_at, updated_at
	FROM office_hours
`

func (r *OfficeHourRepository) scanOfficeHour(row rowScanner) (persistence.OfficeHour, error) {
	var (
		officeHour persistence.OfficeHour
		recurring  int
		startAt    string
		endAt      string
		deleted    int
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(
		&officeHour.ID,
		&officeHour.CourseID,
		&officeHour.Location,
		&recurring,
		&startAt,
		&endAt,
		&officeHour.TimePerStudent,
		&deleted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.OfficeHour{}, mapError(err)
	}

	officeHour.Recurring = recurring != 0
	officeHour.Deleted = deleted != 0
	if officeHour.Start, err = parseTime(startAt, "office_hours.start_at"); err != nil {
		return persistence.OfficeHour{}, err
	}
	if officeHour.End, err = parseTime(endAt, "office_hours.end_at"); err != nil {
		return persistence.OfficeHour{}, err
	}
	if officeHour.CreatedAt, err = parseTime(createdAt, "office_hours.created_at"); err != nil {
		return persistence.OfficeHour{}, err
	}
	if officeHour.UpdatedAt, err = parseTime(updatedAt, "office_hours.updated_at"); err != nil {
		return persistence.OfficeHour{}, err
	}
	return officeHour, nil
}

func (r *OfficeHourRepository) loadSideTables(ctx context.Context, officeHour *persistence.OfficeHour) error {
	db := r.pool.DB()

	rows, err := db.QueryContext(ctx, "SELECT account_id FROM office_hour_hosts WHERE office_hour_id = ? ORDER BY account_id", officeHour.ID)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var hostID string
		if err := rows.Scan(&hostID); err != nil {
			return mapError(err)
		}
		officeHour.HostIDs = append(officeHour.HostIDs, hostID)
	}
	if err := rows.Err(); err != nil {
		return mapError(err)
	}

	wrows, err := db.QueryContext(ctx, "SELECT weekday FROM office_hour_weekdays WHERE office_hour_id = ? ORDER BY weekday", officeHour.ID)
	if err != nil {
		return mapError(err)
	}
	defer wrows.Close()
	for wrows.Next() {
		var weekday int
		if err := wrows.Scan(&weekday); err != nil {
			return mapError(err)
		}
		officeHour.Weekdays = append(officeHour.Weekdays, time.Weekday(weekday))
	}
	if err := wrows.Err(); err != nil {
		return mapError(err)
	}

	crows, err := db.QueryContext(ctx, "SELECT date FROM office_hour_cancellations WHERE office_hour_id = ? ORDER BY date", officeHour.ID)
	if err != nil {
		return mapError(err)
	}
	defer crows.Close()
	for crows.Next() {
		var value string
		if err := crows.Scan(&value); err != nil {
			return mapError(err)
		}
		date, err := parseDate(value, "office_hour_cancellations.date")
		if err != nil {
			return err
		}
		officeHour.CancelledOn = append(officeHour.CancelledOn, date)
	}
	return mapError(crows.Err())
}
