package attendees

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qrcourses/backend/internal/models"
)

const columns = `id, course_id, device_id, national_id, first_name, second_name, third_name, last_name, phone, computer_number, job_title, workplace, created_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository handles attendee persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attendee repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanAttendee(row pgx.Row) (*models.Attendee, error) {
	var a models.Attendee
	err := row.Scan(&a.ID, &a.CourseID, &a.DeviceID, &a.NationalID, &a.FirstName, &a.SecondName, &a.ThirdName,
		&a.LastName, &a.Phone, &a.ComputerNumber, &a.JobTitle, &a.Workplace, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrAttendeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func insertAttendee(ctx context.Context, q querier, a *models.Attendee) error {
	const sql = `INSERT INTO attendees (id, course_id, device_id, national_id, first_name, second_name, third_name, last_name, phone, computer_number, job_title, workplace)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`
	return q.QueryRow(ctx, sql, a.ID, a.CourseID, a.DeviceID, a.NationalID, a.FirstName, a.SecondName, a.ThirdName,
		a.LastName, a.Phone, a.ComputerNumber, a.JobTitle, a.Workplace).Scan(&a.CreatedAt)
}

func countByDeviceAndCourse(ctx context.Context, q querier, deviceID string, courseID uuid.UUID) (int, error) {
	var n int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM attendees WHERE device_id = $1 AND course_id = $2`, deviceID, courseID).Scan(&n)
	return n, err
}

// GetByID returns an attendee by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Attendee, error) {
	return scanAttendee(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM attendees WHERE id = $1`, id))
}

// Update replaces the profile fields. id, course, device and created_at are kept.
func (r *Repository) Update(ctx context.Context, a *models.Attendee) error {
	const q = `UPDATE attendees SET national_id = $1, first_name = $2, second_name = $3, third_name = $4, last_name = $5,
			phone = $6, computer_number = $7, job_title = $8, workplace = $9
		WHERE id = $10
		RETURNING course_id, device_id, created_at`
	err := r.pool.QueryRow(ctx, q, a.NationalID, a.FirstName, a.SecondName, a.ThirdName, a.LastName,
		a.Phone, a.ComputerNumber, a.JobTitle, a.Workplace, a.ID).
		Scan(&a.CourseID, &a.DeviceID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrAttendeeNotFound
	}
	return err
}

// Delete removes an attendee and returns the course it belonged to.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var courseID uuid.UUID
	err := r.pool.QueryRow(ctx, `DELETE FROM attendees WHERE id = $1 RETURNING course_id`, id).Scan(&courseID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, models.ErrAttendeeNotFound
	}
	return courseID, err
}

// CountByDeviceAndCourse counts exact, case-sensitive matches on both keys.
func (r *Repository) CountByDeviceAndCourse(ctx context.Context, deviceID string, courseID uuid.UUID) (int, error) {
	return countByDeviceAndCourse(ctx, r.pool, deviceID, courseID)
}

// ListByCourse returns the course's attendees newest first.
func (r *Repository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Attendee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM attendees WHERE course_id = $1 ORDER BY created_at DESC, id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.Attendee, 0)
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}
