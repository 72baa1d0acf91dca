package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/qrcourses/backend/internal/models"
)

// Attendees is the in-memory attendee ledger.
type Attendees struct{ s *Store }

// GetByID returns a copy of the attendee.
func (r *Attendees) GetByID(_ context.Context, id uuid.UUID) (*models.Attendee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.attendees[id]
	if !ok {
		return nil, models.ErrAttendeeNotFound
	}
	return &a, nil
}

// Update replaces the profile fields; id, course, device and CreatedAt are kept.
func (r *Attendees) Update(_ context.Context, a *models.Attendee) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.attendees[a.ID]
	if !ok {
		return models.ErrAttendeeNotFound
	}
	a.CourseID = old.CourseID
	a.DeviceID = old.DeviceID
	a.CreatedAt = old.CreatedAt
	r.s.attendees[a.ID] = *a
	return nil
}

// Delete removes the attendee and returns the course it belonged to.
func (r *Attendees) Delete(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attendees[id]
	if !ok {
		return uuid.Nil, models.ErrAttendeeNotFound
	}
	delete(r.s.attendees, id)
	return a.CourseID, nil
}

// CountByDeviceAndCourse counts exact, case-sensitive matches on both keys.
func (r *Attendees) CountByDeviceAndCourse(_ context.Context, deviceID string, courseID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, a := range r.s.attendees {
		if a.CourseID == courseID && a.DeviceID == deviceID {
			n++
		}
	}
	return n, nil
}

// ListByCourse returns the course's attendees newest first.
func (r *Attendees) ListByCourse(_ context.Context, courseID uuid.UUID) ([]models.Attendee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]models.Attendee, 0)
	for _, a := range r.s.attendees {
		if a.CourseID == courseID {
			list = append(list, a)
		}
	}
	sortNewestFirst(list, func(a models.Attendee) time.Time { return a.CreatedAt })
	return list, nil
}
