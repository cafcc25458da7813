package sqlite

import (
	"context"
	"database/sql"

	"github.com/jhu-collab/proj-hourly-sub001/internal/persistence"
)

// CourseRepository implements persistence.CourseRepository using SQLite.
type CourseRepository struct {
	pool *ConnectionPool
}

// NewCourseRepository creates a new SQLite course repository.
func NewCourseRepository(pool *ConnectionPool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// CreateCourse inserts a course together with its allowed slot durations.
func (r *CourseRepository) CreateCourse(ctx context.Context, course persistence.Course) error {
	if course.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO courses (id, name, code, timezone, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, query,
			course.ID,
			course.Name,
			course.Code,
			course.Timezone,
			formatTime(course.CreatedAt),
			formatTime(course.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		return r.insertSlotDurations(ctx, tx, course.ID, course.SlotDurations)
	})
}

// UpdateCourse updates a course row and replaces its slot duration set.
func (r *CourseRepository) UpdateCourse(ctx context.Context, course persistence.Course) error {
	if course.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE courses
			SET name = ?, code = ?, timezone = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := tx.ExecContext(ctx, query,
			course.Name,
			course.Code,
			course.Timezone,
			formatTime(course.UpdatedAt),
			course.ID,
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

		if _, err := tx.ExecContext(ctx, "DELETE FROM course_slot_durations WHERE course_id = ?", course.ID); err != nil {
			return mapError(err)
		}
		return r.insertSlotDurations(ctx, tx, course.ID, course.SlotDurations)
	})
}

// GetCourse retrieves a course by ID.
func (r *CourseRepository) GetCourse(ctx context.Context, id string) (persistence.Course, error) {
	query := `
		SELECT id, name, code, timezone, created_at, updated_at
		FROM courses
		WHERE id = ?
	`
	course, err := r.scanCourse(r.pool.DB().QueryRowContext(ctx, query, id))
	if err != nil {
		return persistence.Course{}, err
	}

	course.SlotDurations, err = r.loadSlotDurations(ctx, id)
	if err != nil {
		return persistence.Course{}, err
	}
	return course, nil
}

// ListCourses returns all courses ordered by code.
func (r *CourseRepository) ListCourses(ctx context.Context) ([]persistence.Course, error) {
	query := `
		SELECT id, name, code, timezone, created_at, updated_at
		FROM courses
		ORDER BY code
	`
	rows, err := r.pool.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var courses []persistence.Course
	for rows.Next() {
		course, err := r.scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range courses {
		courses[i].SlotDurations, err = r.loadSlotDurations(ctx, courses[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return courses, nil
}

// DeleteCourse removes a course; slot durations cascade.
func (r *CourseRepository) DeleteCourse(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, "DELETE FROM courses WHERE id = ?", id)
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

func (r *CourseRepository) insertSlotDurations(ctx context.Context, tx *sql.Tx, courseID string, minutes []int) error {
	for _, m := range minutes {
		query := "INSERT INTO course_slot_durations (course_id, minutes) VALUES (?, ?)"
		if _, err := tx.ExecContext(ctx, query, courseID, m); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *CourseRepository) loadSlotDurations(ctx context.Context, courseID string) ([]int, error) {
	query := "SELECT minutes FROM course_slot_durations WHERE course_id = ? ORDER BY minutes"
	rows, err := r.pool.DB().QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var minutes []int
	for rows.Next() {
		var m int
		if err := rows.Scan(&m); err != nil {
			return nil, mapError(err)
		}
		minutes = append(minutes, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return minutes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *CourseRepository) scanCourse(row rowScanner) (persistence.Course, error) {
	var (
		course    persistence.Course
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&course.ID, &course.Name, &course.Code, &course.Timezone, &createdAt, &updatedAt); err != nil {
		return persistence.Course{}, mapError(err)
	}

	var err error
	if course.CreatedAt, err = parseTime(createdAt, "courses.created_at"); err != nil {
		return persistence.Course{}, err
	}
	if course.UpdatedAt, err = parseTime(updatedAt, "courses.updated_at"); err != nil {
		return persistence.Course{}, err
	}
	return course, nil
}
