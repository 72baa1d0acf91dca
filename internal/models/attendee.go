package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ManualDevicePrefix marks device ids synthesized for admin-entered attendees.
const ManualDevicePrefix = "manual-admin-"

// Attendee is a person registered against a course from a device.
type Attendee struct {
	ID             uuid.UUID `json:"id"`
	CourseID       uuid.UUID `json:"courseId"`
	DeviceID       string    `json:"deviceId"`
	NationalID     string    `json:"nationalId"`
	FirstName      string    `json:"firstName"`
	SecondName     string    `json:"secondName"`
	ThirdName      string    `json:"thirdName"`
	LastName       string    `json:"lastName"`
	Phone          string    `json:"phone"`
	ComputerNumber *string   `json:"computerNumber"`
	JobTitle       string    `json:"jobTitle"`
	Workplace      string    `json:"workplace"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AttendeeInput carries the attendee profile fields.
type AttendeeInput struct {
	NationalID     string
	FirstName      string
	SecondName     string
	ThirdName      string
	LastName       string
	Phone          string
	ComputerNumber string
	JobTitle       string
	Workplace      string
}

// Validate reports every required profile field that is blank.
func (in AttendeeInput) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"nationalId", in.NationalID},
		{"firstName", in.FirstName},
		{"secondName", in.SecondName},
		{"thirdName", in.ThirdName},
		{"lastName", in.LastName},
		{"phone", in.Phone},
		{"jobTitle", in.JobTitle},
		{"workplace", in.Workplace},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// NormalizeComputerNumber maps an empty or blank value to nil.
func NormalizeComputerNumber(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// NewAttendee builds an attendee for courseID/deviceID. CreatedAt is set by the store.
func NewAttendee(courseID uuid.UUID, deviceID string, in AttendeeInput) *Attendee {
	a := &Attendee{ID: uuid.New(), CourseID: courseID, DeviceID: deviceID}
	a.Apply(in)
	return a
}

// Apply replaces every mutable profile field.
func (a *Attendee) Apply(in AttendeeInput) {
	a.NationalID = strings.TrimSpace(in.NationalID)
	a.FirstName = strings.TrimSpace(in.FirstName)
	a.SecondName = strings.TrimSpace(in.SecondName)
	a.ThirdName = strings.TrimSpace(in.ThirdName)
	a.LastName = strings.TrimSpace(in.LastName)
	a.Phone = strings.TrimSpace(in.Phone)
	a.ComputerNumber = NormalizeComputerNumber(in.ComputerNumber)
	a.JobTitle = strings.TrimSpace(in.JobTitle)
	a.Workplace = strings.TrimSpace(in.Workplace)
}

// FullName joins the four name parts.
func (a *Attendee) FullName() string {
	return strings.Join([]string{a.FirstName, a.SecondName, a.ThirdName, a.LastName}, " ")
}

// IsManual reports whether the attendee was entered by an administrator
// under a synthesized device id.
func (a *Attendee) IsManual() bool {
	return strings.HasPrefix(a.DeviceID, ManualDevicePrefix)
}

// ManualDeviceID returns a synthetic device id for an admin entry made at t.
func ManualDeviceID(t time.Time) string {
	return ManualDevicePrefix + strconv.FormatInt(t.UnixMilli(), 10)
}
