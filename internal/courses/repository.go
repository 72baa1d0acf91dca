package courses

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qrcourses/backend/internal/models"
)

// Columns is the select list matched by ScanCourse.
const Columns = `id, name, start_date, duration, location, instructors, allow_multiple_per_device, max_per_device, created_at, updated_at`

// ScanCourse scans one row selected with Columns.
func ScanCourse(row pgx.Row) (*models.Course, error) {
	var c models.Course
	err := row.Scan(&c.ID, &c.Name, &c.StartDate, &c.Duration, &c.Location, &c.Instructors,
		&c.AllowMultiplePerDevice, &c.MaxPerDevice, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Repository handles course persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a course repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new course.
func (r *Repository) Create(ctx context.Context, c *models.Course) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	const q = `INSERT INTO courses (id, name, start_date, duration, location, instructors, allow_multiple_per_device, max_per_device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, q, c.ID, c.Name, c.StartDate, c.Duration, c.Location, c.Instructors, c.AllowMultiplePerDevice, c.MaxPerDevice).
		Scan(&c.CreatedAt, &c.UpdatedAt)
}

// GetByID returns a course by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	return ScanCourse(r.pool.QueryRow(ctx, `SELECT `+Columns+` FROM courses WHERE id = $1`, id))
}

// List returns all courses, newest first, with attendee counts.
func (r *Repository) List(ctx context.Context) ([]models.CourseSummary, error) {
	const q = `SELECT c.id, c.name, c.start_date, c.duration, c.location, c.instructors, c.allow_multiple_per_device, c.max_per_device, c.created_at, c.updated_at,
			COUNT(a.id)
		FROM courses c
		LEFT JOIN attendees a ON a.course_id = c.id
		GROUP BY c.id
		ORDER BY c.created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.CourseSummary, 0)
	for rows.Next() {
		var s models.CourseSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.StartDate, &s.Duration, &s.Location, &s.Instructors,
			&s.AllowMultiplePerDevice, &s.MaxPerDevice, &s.CreatedAt, &s.UpdatedAt, &s.AttendeeCount); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Update overwrites the editable attributes. Attendees are untouched.
func (r *Repository) Update(ctx context.Context, c *models.Course) error {
	const q = `UPDATE courses SET name = $1, start_date = $2, duration = $3, location = $4, instructors = $5,
			allow_multiple_per_device = $6, max_per_device = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, c.Name, c.StartDate, c.Duration, c.Location, c.Instructors, c.AllowMultiplePerDevice, c.MaxPerDevice, c.ID).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrCourseNotFound
	}
	return err
}

// Delete removes the course and its attendees in one transaction and returns
// the number of attendees removed. The course row is locked first so an
// in-flight registration holding FOR SHARE on it finishes before the delete.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int, error) {
	var removed int
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrCourseNotFound
		}
		if err != nil {
			return fmt.Errorf("lock course: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM attendees WHERE course_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete attendees: %w", err)
		}
		removed = int(tag.RowsAffected())
		if _, err := tx.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Stats returns dashboard totals.
func (r *Repository) Stats(ctx context.Context) (models.Stats, error) {
	const q = `SELECT (SELECT COUNT(*) FROM courses), (SELECT COUNT(*) FROM attendees)`
	var s models.Stats
	err := r.pool.QueryRow(ctx, q).Scan(&s.CoursesCount, &s.AttendeesCount)
	return s, err
}
