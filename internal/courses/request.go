package courses

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/qrcourses/backend/internal/models"
)

// CourseRequest is the body for POST /courses and PUT /courses/:id.
type CourseRequest struct {
	Name        string `json:"name"`
	StartDate   string `json:"startDate"`
	Duration    string `json:"duration"`
	Location    string `json:"location"`
	Instructors string `json:"instructors"`
	// Only a JSON true enables unlimited registrations.
	AllowMultiplePerDevice interface{} `json:"allowMultiplePerDevice"`
	// Numbers and numeric strings are accepted; anything else means the default.
	MaxPerDevice interface{} `json:"maxPerDevice"`
}

// Input converts the request to a models.CourseInput and validates it.
func (r CourseRequest) Input() (models.CourseInput, error) {
	in := models.CourseInput{
		Name:                   r.Name,
		Duration:               r.Duration,
		Location:               r.Location,
		Instructors:            r.Instructors,
		AllowMultiplePerDevice: r.AllowMultiplePerDevice == true,
		MaxPerDevice:           parseMaxPerDevice(r.MaxPerDevice),
	}
	if t, ok := ParseStartDate(r.StartDate); ok {
		in.StartDate = t
	}
	return in, in.Validate()
}

// ParseStartDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func ParseStartDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func parseMaxPerDevice(v interface{}) *int {
	var n int
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 1 || x > math.MaxInt32 {
			return nil
		}
		n = int(x)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return nil
		}
		n = i
	default:
		return nil
	}
	return &n
}
