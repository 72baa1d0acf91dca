// Package memstore is an in-process implementation of the course, attendee,
// admin and export stores. It backs STORAGE_DRIVER=memory and the tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qrcourses/backend/internal/admission"
	"github.com/qrcourses/backend/internal/models"
)

// Store holds all records behind one RWMutex.
type Store struct {
	mu        sync.RWMutex
	courses   map[uuid.UUID]models.Course
	attendees map[uuid.UUID]models.Attendee
	admins    map[uuid.UUID]models.Admin
	exports   map[uuid.UUID]models.AttendeeExport
	now       func() time.Time
	last      time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		courses:   make(map[uuid.UUID]models.Course),
		attendees: make(map[uuid.UUID]models.Attendee),
		admins:    make(map[uuid.UUID]models.Admin),
		exports:   make(map[uuid.UUID]models.AttendeeExport),
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Courses returns the course registry view.
func (s *Store) Courses() *Courses { return &Courses{s: s} }

// Attendees returns the attendee ledger view.
func (s *Store) Attendees() *Attendees { return &Attendees{s: s} }

// Admins returns the admin account view.
func (s *Store) Admins() *Admins { return &Admins{s: s} }

// Exports returns the export record view.
func (s *Store) Exports() *Exports { return &Exports{s: s} }

// tick returns a timestamp strictly after every timestamp handed out before,
// so newest-first ordering is stable even on coarse clocks. Caller holds s.mu.
func (s *Store) tick() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// InAdmission implements admission.Store. Reads go straight to the maps; the
// insert is buffered and committed under the write lock only if the course
// still exists, so a concurrent delete never leaves an orphan. Per-key
// serialization comes from the admission controller.
func (s *Store) InAdmission(ctx context.Context, courseID uuid.UUID, deviceID string, fn func(admission.Tx) error) error {
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.pending == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[tx.pending.CourseID]; !ok {
		return models.ErrCourseNotFound
	}
	tx.pending.CreatedAt = s.tick()
	s.attendees[tx.pending.ID] = *tx.pending
	return nil
}

type memTx struct {
	s       *Store
	pending *models.Attendee
}

func (t *memTx) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	return t.s.Courses().GetByID(ctx, id)
}

func (t *memTx) CountByDeviceAndCourse(ctx context.Context, deviceID string, courseID uuid.UUID) (int, error) {
	return t.s.Attendees().CountByDeviceAndCourse(ctx, deviceID, courseID)
}

func (t *memTx) CreateAttendee(_ context.Context, a *models.Attendee) error {
	t.pending = a
	return nil
}

func sortNewestFirst[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}
