package attendees

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/qrcourses/backend/internal/admission"
	"github.com/qrcourses/backend/internal/courses"
	"github.com/qrcourses/backend/internal/models"
)

// InAdmission implements admission.Store on PostgreSQL. The unit runs in one
// transaction that first takes a transaction-scoped advisory lock on the
// (course, device) key, so replicas sharing the database serialize on the same
// quota. The course row is read FOR SHARE, which blocks the cascade delete's
// FOR UPDATE until the unit commits or rolls back.
func (r *Repository) InAdmission(ctx context.Context, courseID uuid.UUID, deviceID string, fn func(admission.Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		key := courseID.String() + ":" + deviceID
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}
		return fn(&pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	return courses.ScanCourse(t.tx.QueryRow(ctx, `SELECT `+courses.Columns+` FROM courses WHERE id = $1 FOR SHARE`, id))
}

func (t *pgTx) CountByDeviceAndCourse(ctx context.Context, deviceID string, courseID uuid.UUID) (int, error) {
	return countByDeviceAndCourse(ctx, t.tx, deviceID, courseID)
}

func (t *pgTx) CreateAttendee(ctx context.Context, a *models.Attendee) error {
	return insertAttendee(ctx, t.tx, a)
}
