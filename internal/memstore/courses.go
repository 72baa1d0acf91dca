package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/qrcourses/backend/internal/models"
)

// Courses is the in-memory course registry.
type Courses struct{ s *Store }

// Create stores c, assigning an id when it has none.
func (r *Courses) Create(_ context.Context, c *models.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = r.s.tick()
	c.UpdatedAt = c.CreatedAt
	r.s.courses[c.ID] = *c
	return nil
}

// GetByID returns a copy of the course.
func (r *Courses) GetByID(_ context.Context, id uuid.UUID) (*models.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.courses[id]
	if !ok {
		return nil, models.ErrCourseNotFound
	}
	return &c, nil
}

// List returns courses newest first with attendee counts.
func (r *Courses) List(_ context.Context) ([]models.CourseSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[uuid.UUID]int, len(r.s.courses))
	for _, a := range r.s.attendees {
		counts[a.CourseID]++
	}
	list := make([]models.CourseSummary, 0, len(r.s.courses))
	for _, c := range r.s.courses {
		list = append(list, models.CourseSummary{Course: c, AttendeeCount: counts[c.ID]})
	}
	sortNewestFirst(list, func(c models.CourseSummary) time.Time { return c.CreatedAt })
	return list, nil
}

// Update overwrites the editable attributes of an existing course.
func (r *Courses) Update(_ context.Context, c *models.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	old, ok := r.s.courses[c.ID]
	if !ok {
		return models.ErrCourseNotFound
	}
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = r.s.now()
	r.s.courses[c.ID] = *c
	return nil
}

// Delete removes the course and its attendees under one lock and returns
// how many attendees went with it.
func (r *Courses) Delete(_ context.Context, id uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.courses[id]; !ok {
		return 0, models.ErrCourseNotFound
	}
	removed := 0
	for aid, a := range r.s.attendees {
		if a.CourseID == id {
			delete(r.s.attendees, aid)
			removed++
		}
	}
	for eid, e := range r.s.exports {
		if e.CourseID == id {
			delete(r.s.exports, eid)
		}
	}
	delete(r.s.courses, id)
	return removed, nil
}

// Stats returns dashboard totals.
func (r *Courses) Stats(_ context.Context) (models.Stats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return models.Stats{CoursesCount: len(r.s.courses), AttendeesCount: len(r.s.attendees)}, nil
}
