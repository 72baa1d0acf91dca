package admission

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded matches any *QuotaExceededError with errors.Is.
var ErrQuotaExceeded = errors.New("device registration quota exceeded")

// QuotaExceededError is returned when a device already holds Max
// registrations for a capped course.
type QuotaExceededError struct {
	Max int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("this device has already registered for the course (maximum: %d)", e.Max)
}

// Is lets errors.Is(err, ErrQuotaExceeded) match.
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
