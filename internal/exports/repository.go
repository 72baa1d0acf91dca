package exports

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qrcourses/backend/internal/models"
)

const foreignKeyViolation = "23503"

// Repository handles attendee export records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an export repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending export. A missing course yields models.ErrCourseNotFound.
func (r *Repository) Create(ctx context.Context, e *models.AttendeeExport) error {
	const q = `INSERT INTO attendee_exports (course_id, requested_by, status)
		VALUES ($1, $2, $3)
		RETURNING id, status, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.CourseID, e.RequestedBy, models.ExportPending).
		Scan(&e.ID, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation && pgErr.ConstraintName == "attendee_exports_course_id_fkey" {
		return models.ErrCourseNotFound
	}
	return err
}

// GetByID returns an export record by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.AttendeeExport, error) {
	const q = `SELECT id, course_id, requested_by, status, COALESCE(s3_key, ''), row_count, COALESCE(error, ''), created_at, updated_at
		FROM attendee_exports WHERE id = $1`
	var e models.AttendeeExport
	err := r.pool.QueryRow(ctx, q, id).Scan(&e.ID, &e.CourseID, &e.RequestedBy, &e.Status, &e.S3Key, &e.RowCount, &e.Error, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrExportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// MarkProcessing moves an export to processing.
func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `UPDATE attendee_exports SET status = $1, updated_at = NOW() WHERE id = $2`, models.ExportProcessing, id)
}

// MarkCompleted records the uploaded object key and row count.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, key string, rows int) error {
	return r.exec(ctx, `UPDATE attendee_exports SET status = $1, s3_key = $2, row_count = $3, error = NULL, updated_at = NOW() WHERE id = $4`,
		models.ExportCompleted, key, rows, id)
}

// MarkFailed records why an export failed.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.exec(ctx, `UPDATE attendee_exports SET status = $1, error = $2, updated_at = NOW() WHERE id = $3`, models.ExportFailed, reason, id)
}

func (r *Repository) exec(ctx context.Context, q string, args ...any) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrExportNotFound
	}
	return nil
}
