package models

import (
	"errors"
	"strings"
)

var (
	ErrCourseNotFound   = errors.New("course not found")
	ErrAttendeeNotFound = errors.New("attendee not found")
	ErrAdminNotFound    = errors.New("admin not found")
	ErrExportNotFound   = errors.New("export not found")
	ErrUsernameTaken    = errors.New("username already exists")
)

// ValidationError lists required fields that were missing or blank.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}
