package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/qrcourses/backend/internal/models"
)

// Exports is the in-memory export record store.
type Exports struct{ s *Store }

// Create inserts a pending export for an existing course.
func (r *Exports) Create(_ context.Context, e *models.AttendeeExport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.courses[e.CourseID]; !ok {
		return models.ErrCourseNotFound
	}
	e.ID = uuid.New()
	e.Status = models.ExportPending
	e.CreatedAt = r.s.now()
	e.UpdatedAt = e.CreatedAt
	r.s.exports[e.ID] = *e
	return nil
}

// GetByID returns a copy of the export record.
func (r *Exports) GetByID(_ context.Context, id uuid.UUID) (*models.AttendeeExport, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.exports[id]
	if !ok {
		return nil, models.ErrExportNotFound
	}
	return &e, nil
}

// MarkProcessing moves a pending export to processing.
func (r *Exports) MarkProcessing(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(e *models.AttendeeExport) {
		e.Status = models.ExportProcessing
	})
}

// MarkCompleted records the uploaded object.
func (r *Exports) MarkCompleted(_ context.Context, id uuid.UUID, key string, rows int) error {
	return r.update(id, func(e *models.AttendeeExport) {
		e.Status = models.ExportCompleted
		e.S3Key = key
		e.RowCount = rows
		e.Error = ""
	})
}

// MarkFailed records why the export failed.
func (r *Exports) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	return r.update(id, func(e *models.AttendeeExport) {
		e.Status = models.ExportFailed
		e.Error = reason
	})
}

func (r *Exports) update(id uuid.UUID, fn func(*models.AttendeeExport)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.exports[id]
	if !ok {
		return models.ErrExportNotFound
	}
	fn(&e)
	e.UpdatedAt = r.s.now()
	r.s.exports[e.ID] = e
	return nil
}
