package courses

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qrcourses/backend/internal/models"
	"github.com/qrcourses/backend/internal/realtime"
	"github.com/qrcourses/backend/pkg/response"
)

// Store is the course registry.
type Store interface {
	Create(ctx context.Context, c *models.Course) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	List(ctx context.Context) ([]models.CourseSummary, error)
	Update(ctx context.Context, c *models.Course) error
	// Delete removes the course with its attendees and returns how many attendees went.
	Delete(ctx context.Context, id uuid.UUID) (int, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// AttendeeLister lists a course's attendees newest first.
type AttendeeLister interface {
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Attendee, error)
}

// Notifier pushes course events to connected admins.
type Notifier interface {
	Publish(courseID uuid.UUID, event string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(uuid.UUID, string, interface{}) {}

// Handler handles course HTTP endpoints.
type Handler struct {
	store     Store
	attendees AttendeeLister
	notify    Notifier
	logger    *zap.Logger
}

// NewHandler creates a course handler. notify may be nil.
func NewHandler(store Store, attendees AttendeeLister, notify Notifier, logger *zap.Logger) *Handler {
	if notify == nil {
		notify = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, attendees: attendees, notify: notify, logger: logger}
}

// List handles GET /courses.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.fail(c, "list courses", err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /courses.
func (h *Handler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	course := models.NewCourse(in)
	if err := h.store.Create(c.Request.Context(), course); err != nil {
		h.fail(c, "create course", err)
		return
	}
	h.logger.Info("course created",
		zap.String("course_id", course.ID.String()),
		zap.Bool("allow_multiple_per_device", course.AllowMultiplePerDevice),
		zap.Int("max_per_device", course.MaxPerDevice))
	response.Created(c, course)
}

// Get handles GET /courses/:id. The course is returned with its attendees.
func (h *Handler) Get(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}
	course, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get course", err)
		return
	}
	attendees, err := h.attendees.ListByCourse(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "list attendees", err)
		return
	}
	response.OK(c, models.CourseDetail{Course: *course, Attendees: attendees})
}

// Public handles GET /courses/:id/public for the self-registration page.
func (h *Handler) Public(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}
	course, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get course", err)
		return
	}
	response.OK(c, course.Public())
}

// Update handles PUT /courses/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	course := &models.Course{ID: id}
	course.Apply(in)
	if err := h.store.Update(c.Request.Context(), course); err != nil {
		h.fail(c, "update course", err)
		return
	}
	response.OK(c, course)
}

// Delete handles DELETE /courses/:id. Attendees are removed with the course.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := courseID(c)
	if !ok {
		return
	}
	removed, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete course", err)
		return
	}
	h.logger.Info("course deleted", zap.String("course_id", id.String()), zap.Int("attendees_removed", removed))
	payload := gin.H{"id": id, "attendeesRemoved": removed}
	h.notify.Publish(id, realtime.EventCourseDeleted, payload)
	response.OK(c, payload)
}

// Stats handles GET /stats.
func (h *Handler) Stats(c *gin.Context) {
	s, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, "stats", err)
		return
	}
	response.OK(c, s)
}

func (h *Handler) bind(c *gin.Context) (models.CourseInput, bool) {
	var req CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return models.CourseInput{}, false
	}
	in, err := req.Input()
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		response.Invalid(c, verr.Error(), verr.Fields)
		return in, false
	}
	return in, true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, models.ErrCourseNotFound) {
		response.NotFound(c, "course not found")
		return
	}
	h.logger.Error(op, zap.Error(err))
	response.Internal(c, "failed to "+op)
}

func courseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return uuid.Nil, false
	}
	return id, true
}
