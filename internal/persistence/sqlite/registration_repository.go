package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jhu-collab/proj-hourly-sub001/internal/calendar"
	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

// RegistrationRepository implements persistence.RegistrationRepository using
// SQLite. The partial unique index on active (office_hour_id, date, start_at)
// makes CreateRegistration the serialization point for competing claims on one
// slot.
type RegistrationRepository struct {
	pool *ConnectionPool
}

// NewRegistrationRepository creates a new SQLite registration repository.
func NewRegistrationRepository(pool *ConnectionPool) *RegistrationRepository {
	return &RegistrationRepository{pool: pool}
}

// CreateRegistration inserts a registration with its topics. A second active
// registration for the same slot violates the active-slot index and returns
// ErrDuplicate.
func (r *RegistrationRepository) CreateRegistration(ctx context.Context, registration persistence.Registration) error {
	if registration.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO registrations (id, office_hour_id, account_id, date, start_at, end_at, cancelled_student, cancelled_staff, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, query,
			registration.ID,
			registration.OfficeHourID,
			registration.AccountID,
			formatDate(registration.Date),
			formatTime(registration.Start),
			formatTime(registration.End),
			boolToInt(registration.CancelledByStudent),
			boolToInt(registration.CancelledByStaff),
			formatTime(registration.CreatedAt),
			formatTime(registration.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		for _, topic := range registration.Topics {
			topicQuery := "INSERT INTO registration_topics (registration_id, topic) VALUES (?, ?)"
			if _, err := tx.ExecContext(ctx, topicQuery, registration.ID, topic); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// GetRegistration retrieves a registration by ID.
func (r *RegistrationRepository) GetRegistration(ctx context.Context, id string) (persistence.Registration, error) {
	query := registrationSelect + " WHERE id = ?"
	registration, err := r.scanRegistration(r.pool.DB().QueryRowContext(ctx, query, id))
	if err != nil {
		return persistence.Registration{}, err
	}
	if registration.Topics, err = r.loadTopics(ctx, id); err != nil {
		return persistence.Registration{}, err
	}
	return registration, nil
}

// ListRegistrations returns registrations matching the filter, ordered by
// start time.
func (r *RegistrationRepository) ListRegistrations(ctx context.Context, filter persistence.RegistrationFilter) ([]persistence.Registration, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.OfficeHourID != "" {
		conditions = append(conditions, "office_hour_id = ?")
		args = append(args, filter.OfficeHourID)
	}
	if filter.AccountID != "" {
		conditions = append(conditions, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.Date != nil {
		conditions = append(conditions, "date = ?")
		args = append(args, formatDate(*filter.Date))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "cancelled_student = 0 AND cancelled_staff = 0")
	}

	query := registrationSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_at, id"

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var registrations []persistence.Registration
	for rows.Next() {
		registration, err := r.scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, registration)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range registrations {
		if registrations[i].Topics, err = r.loadTopics(ctx, registrations[i].ID); err != nil {
			return nil, err
		}
	}
	return registrations, nil
}

// CancelRegistration flips the student or staff cancellation flag. Rows are
// kept; the active-slot index ignores cancelled rows, so the slot becomes
// claimable again.
func (r *RegistrationRepository) CancelRegistration(ctx context.Context, id string, byStaff bool, cancelledAt time.Time) error {
	column := "cancelled_student"
	if byStaff {
		column = "cancelled_staff"
	}
	query := "UPDATE registrations SET " + column + " = 1, updated_at = ? WHERE id = ?"
	result, err := r.pool.DB().ExecContext(ctx, query, formatTime(cancelledAt), id)
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

// CancelRegistrationsForOccurrence staff-cancels every active registration on
// one occurrence. A no-op when the occurrence has no active registrations.
func (r *RegistrationRepository) CancelRegistrationsForOccurrence(ctx context.Context, officeHourID string, date calendar.Date, cancelledAt time.Time) error {
	query := `
		UPDATE registrations
		SET cancelled_staff = 1, updated_at = ?
		WHERE office_hour_id = ? AND date = ? AND cancelled_student = 0 AND cancelled_staff = 0
	`
	_, err := r.pool.DB().ExecContext(ctx, query, formatTime(cancelledAt), officeHourID, formatDate(date))
	return mapError(err)
}

func (r *RegistrationRepository) loadTopics(ctx context.Context, registrationID string) ([]string, error) {
	query := "SELECT topic FROM registration_topics WHERE registration_id = ? ORDER BY topic"
	rows, err := r.pool.DB().QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, mapError(err)
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return topics, nil
}

const registrationSelect = `
	SELECT id, office_hour_id, account_id, date, start_at, end_at, cancelled_student, cancelled_staff, created_at, updated_at
	FROM registrations
`

func (r *RegistrationRepository) scanRegistration(row rowScanner) (persistence.Registration, error) {
	var (
		registration persistence.Registration
		date         string
		startAt      string
		endAt        string
		byStudent    int
		byStaff      int
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(
		&registration.ID,
		&registration.OfficeHourID,
		&registration.AccountID,
		&date,
		&startAt,
		&endAt,
		&byStudent,
		&byStaff,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Registration{}, mapError(err)
	}

	registration.CancelledByStudent = byStudent != 0
	registration.CancelledByStaff = byStaff != 0
	if registration.Date, err = parseDate(date, "registrations.date"); err != nil {
		return persistence.Registration{}, err
	}
	if registration.Start, err = parseTime(startAt, "registrations.start_at"); err != nil {
		return persistence.Registration{}, err
	}
	if registration.End, err = parseTime(endAt, "registrations.end_at"); err != nil {
		return persistence.Registration{}, err
	}
	if registration.CreatedAt, err = parseTime(createdAt, "registrations.created_at"); err != nil {
		return persistence.Registration{}, err
	}
	if registration.UpdatedAt, err = parseTime(updatedAt, "registrations.updated_at"); err != nil {
		return persistence.Registration{}, err
	}
	return registration, nil
}
