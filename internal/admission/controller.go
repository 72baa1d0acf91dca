package admission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qrcourses/backend/internal/models"
)

// Tx is the storage view available inside one admission unit of work.
type Tx interface {
	// GetCourse returns models.ErrCourseNotFound when the course does not exist.
	GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error)
	CountByDeviceAndCourse(ctx context.Context, deviceID string, courseID uuid.UUID) (int, error)
	// CreateAttendee sets CreatedAt on a.
	CreateAttendee(ctx context.Context, a *models.Attendee) error
}

// Store opens admission units of work.
type Store interface {
	// InAdmission runs fn as one atomic unit: either everything fn wrote is
	// persisted or nothing is, and a concurrent course deletion is observed
	// either entirely before or entirely after the unit.
	InAdmission(ctx context.Context, courseID uuid.UUID, deviceID string, fn func(Tx) error) error
}

// Request is a registration attempt from one device.
type Request struct {
	CourseID uuid.UUID
	DeviceID string
	Attendee models.AttendeeInput
}

// Validate checks the request before any storage access.
func (r Request) Validate() error {
	var missing []string
	if r.CourseID == uuid.Nil {
		missing = append(missing, "courseId")
	}
	if strings.TrimSpace(r.DeviceID) == "" {
		missing = append(missing, "deviceId")
	}
	if err := r.Attendee.Validate(); err != nil {
		missing = append(missing, err.(*models.ValidationError).Fields...)
	}
	if len(missing) > 0 {
		return &models.ValidationError{Fields: missing}
	}
	return nil
}

// Key identifies the contended quota the request competes for.
func (r Request) Key() string {
	return r.CourseID.String() + ":" + r.DeviceID
}

// Controller is the registration admission authority.
type Controller struct {
	store   Store
	locks   *KeyedMutex
	metrics *Metrics
	logger  *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics records decisions to m.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger sets the controller logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController creates a controller over store.
func NewController(store Store, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		locks:  NewKeyedMutex(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register admits or rejects req and, on admission, returns the persisted attendee.
//
// Errors: *models.ValidationError, models.ErrCourseNotFound,
// *QuotaExceededError, or a wrapped storage error. On any error nothing is
// persisted and the caller must not assume the registration happened.
func (c *Controller) Register(ctx context.Context, req Request) (*models.Attendee, error) {
	start := time.Now()
	a, err := c.register(ctx, req)
	c.metrics.observe(err, time.Since(start))
	switch outcome(err) {
	case OutcomeAdmitted:
		c.logger.Info("registration admitted",
			zap.String("course_id", req.CourseID.String()),
			zap.String("attendee_id", a.ID.String()))
	case OutcomeQuotaExceeded:
		c.logger.Info("registration rejected: device quota",
			zap.String("course_id", req.CourseID.String()),
			zap.String("device_id", req.DeviceID))
	case OutcomeError:
		c.logger.Error("registration failed",
			zap.String("course_id", req.CourseID.String()),
			zap.Error(err))
	}
	return a, err
}

func (c *Controller) register(ctx context.Context, req Request) (*models.Attendee, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(req.Key())
	defer unlock()

	var created *models.Attendee
	err := c.store.InAdmission(ctx, req.CourseID, req.DeviceID, func(tx Tx) error {
		course, err := tx.GetCourse(ctx, req.CourseID)
		if err != nil {
			return err
		}
		// Unlimited courses never read the count.
		if !course.Unlimited() {
			n, err := tx.CountByDeviceAndCourse(ctx, req.DeviceID, req.CourseID)
			if err != nil {
				return fmt.Errorf("count device registrations: %w", err)
			}
			if n >= course.MaxPerDevice {
				return &QuotaExceededError{Max: course.MaxPerDevice}
			}
		}
		a := models.NewAttendee(req.CourseID, req.DeviceID, req.Attendee)
		if err := tx.CreateAttendee(ctx, a); err != nil {
			return fmt.Errorf("create attendee: %w", err)
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
