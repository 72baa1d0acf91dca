package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrcourses/backend/internal/admission"
	"github.com/qrcourses/backend/internal/memstore"
	"github.com/qrcourses/backend/internal/models"
)

func course(t *testing.T, s *memstore.Store, name string) *models.Course {
	t.Helper()
	c := models.NewCourse(models.CourseInput{
		Name:        name,
		StartDate:   time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		Duration:    "1 day",
		Location:    "Room 4",
		Instructors: "N. Karim",
	})
	require.NoError(t, s.Courses().Create(context.Background(), c))
	return c
}

func admit(t *testing.T, s *memstore.Store, courseID uuid.UUID, device string) *models.Attendee {
	t.Helper()
	a := models.NewAttendee(courseID, device, models.AttendeeInput{
		NationalID: "1", FirstName: "A", SecondName: "B", ThirdName: "C",
		LastName: "D", Phone: "1", JobTitle: "J", Workplace: "W",
	})
	err := s.InAdmission(context.Background(), courseID, device, func(tx admission.Tx) error {
		return tx.CreateAttendee(context.Background(), a)
	})
	require.NoError(t, err)
	return a
}

func TestCourses_ListNewestFirstWithCounts(t *testing.T) {
	s := memstore.New()
	fixed := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })

	first := course(t, s, "First")
	second := course(t, s, "Second")
	admit(t, s, first.ID, "dev-1")
	admit(t, s, first.ID, "dev-2")

	list, err := s.Courses().List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, 0, list[0].AttendeeCount)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, 2, list[1].AttendeeCount)
}

func TestCourses_DeleteCascades(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	c := course(t, s, "Doomed")
	other := course(t, s, "Kept")
	admit(t, s, c.ID, "dev-1")
	admit(t, s, c.ID, "dev-1")
	kept := admit(t, s, other.ID, "dev-1")
	exp := &models.AttendeeExport{CourseID: c.ID}
	require.NoError(t, s.Exports().Create(ctx, exp))

	removed, err := s.Courses().Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = s.Courses().GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, models.ErrCourseNotFound)
	_, err = s.Exports().GetByID(ctx, exp.ID)
	assert.ErrorIs(t, err, models.ErrExportNotFound)
	_, err = s.Attendees().GetByID(ctx, kept.ID)
	assert.NoError(t, err)

	_, err = s.Courses().Delete(ctx, c.ID)
	assert.ErrorIs(t, err, models.ErrCourseNotFound)
}

func TestInAdmission_DropsInsertWhenCourseDeletedMidway(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	c := course(t, s, "Racing")

	err := s.InAdmission(ctx, c.ID, "dev-1", func(tx admission.Tx) error {
		_, err := tx.GetCourse(ctx, c.ID)
		require.NoError(t, err)
		_, err = s.Courses().Delete(ctx, c.ID)
		require.NoError(t, err)
		return tx.CreateAttendee(ctx, models.NewAttendee(c.ID, "dev-1", models.AttendeeInput{}))
	})
	assert.ErrorIs(t, err, models.ErrCourseNotFound)

	n, err := s.Attendees().CountByDeviceAndCourse(ctx, "dev-1", c.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAttendees_CountIsCaseSensitive(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	c := course(t, s, "Exact")
	admit(t, s, c.ID, "Device-A")

	n, err := s.Attendees().CountByDeviceAndCourse(ctx, "device-a", c.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.Attendees().CountByDeviceAndCourse(ctx, "Device-A", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAttendees_UpdateKeepsIdentity(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	c := course(t, s, "Edit")
	a := admit(t, s, c.ID, "dev-1")

	edited := *a
	edited.FirstName = "Changed"
	edited.CourseID = uuid.New()
	edited.DeviceID = "spoofed"
	edited.CreatedAt = time.Time{}
	require.NoError(t, s.Attendees().Update(ctx, &edited))

	got, err := s.Attendees().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.FirstName)
	assert.Equal(t, c.ID, got.CourseID)
	assert.Equal(t, "dev-1", got.DeviceID)
	assert.Equal(t, a.CreatedAt, got.CreatedAt)
}

func TestAdmins_UniqueUsername(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	_, err := s.Admins().Create(ctx, "root", "hash")
	require.NoError(t, err)
	_, err = s.Admins().Create(ctx, "root", "hash2")
	assert.ErrorIs(t, err, models.ErrUsernameTaken)
	_, err = s.Admins().GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrAdminNotFound)
}
