package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxPerDevice is the per-device cap applied when none is given.
const DefaultMaxPerDevice = 1

// Course is a training event with its registration admission policy.
type Course struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	StartDate   time.Time `json:"startDate"`
	Duration    string    `json:"duration"`
	Location    string    `json:"location"`
	Instructors string    `json:"instructors"`
	// AllowMultiplePerDevice disables the per-device cap entirely.
	AllowMultiplePerDevice bool `json:"allowMultiplePerDevice"`
	// MaxPerDevice is always >= 1 and only enforced when AllowMultiplePerDevice is false.
	MaxPerDevice int       `json:"maxPerDevice"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CourseSummary is a course with its derived attendee count, for listings.
type CourseSummary struct {
	Course
	AttendeeCount int `json:"attendeeCount"`
}

// CourseDetail is a course with its attendees, newest first.
type CourseDetail struct {
	Course
	Attendees []Attendee `json:"attendees"`
}

// PublicCourse is what the self-registration page may see without a session.
type PublicCourse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	StartDate   time.Time `json:"startDate"`
	Duration    string    `json:"duration"`
	Location    string    `json:"location"`
	Instructors string    `json:"instructors"`
}

// Stats holds dashboard totals.
type Stats struct {
	CoursesCount   int `json:"coursesCount"`
	AttendeesCount int `json:"attendeesCount"`
}

// CourseInput carries the admin-editable course attributes.
type CourseInput struct {
	Name                   string
	StartDate              time.Time
	Duration               string
	Location               string
	Instructors            string
	AllowMultiplePerDevice bool
	// MaxPerDevice is nil when the caller omitted it.
	MaxPerDevice *int
}

// Validate reports every required attribute that is missing.
func (in CourseInput) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"name", in.Name},
		{"duration", in.Duration},
		{"location", in.Location},
		{"instructors", in.Instructors},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if in.StartDate.IsZero() {
		missing = append(missing, "startDate")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// NormalizeMaxPerDevice returns max(1, v), treating nil as the default.
func NormalizeMaxPerDevice(v *int) int {
	if v == nil || *v < DefaultMaxPerDevice {
		return DefaultMaxPerDevice
	}
	return *v
}

// NewCourse builds a course from validated input with policy defaults applied.
func NewCourse(in CourseInput) *Course {
	c := &Course{ID: uuid.New()}
	c.Apply(in)
	return c
}

// Apply overwrites the editable attributes, normalizing the admission policy.
// ID, CreatedAt and attendees are left alone.
func (c *Course) Apply(in CourseInput) {
	c.Name = strings.TrimSpace(in.Name)
	c.StartDate = in.StartDate
	c.Duration = strings.TrimSpace(in.Duration)
	c.Location = strings.TrimSpace(in.Location)
	c.Instructors = strings.TrimSpace(in.Instructors)
	c.AllowMultiplePerDevice = in.AllowMultiplePerDevice
	c.MaxPerDevice = NormalizeMaxPerDevice(in.MaxPerDevice)
}

// Public strips the admission policy and bookkeeping fields.
func (c *Course) Public() PublicCourse {
	return PublicCourse{
		ID:          c.ID,
		Name:        c.Name,
		StartDate:   c.StartDate,
		Duration:    c.Duration,
		Location:    c.Location,
		Instructors: c.Instructors,
	}
}

// Unlimited reports whether the course admits any number of registrations per device.
func (c *Course) Unlimited() bool {
	return c.AllowMultiplePerDevice
}
