package attendees

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qrcourses/backend/internal/admission"
	"github.com/qrcourses/backend/internal/models"
	"github.com/qrcourses/backend/internal/realtime"
	"github.com/qrcourses/backend/pkg/response"
)

// Registrar admits registrations.
type Registrar interface {
	Register(ctx context.Context, req admission.Request) (*models.Attendee, error)
}

// Store is the attendee ledger without the create path, which belongs to the admission controller.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Attendee, error)
	Update(ctx context.Context, a *models.Attendee) error
	Delete(ctx context.Context, id uuid.UUID) (courseID uuid.UUID, err error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Attendee, error)
}

// CourseGetter resolves courses.
type CourseGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
}

// Notifier pushes course events to connected admins.
type Notifier interface {
	Publish(courseID uuid.UUID, event string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(uuid.UUID, string, interface{}) {}

// ProfileRequest holds the attendee profile fields of a request body.
type ProfileRequest struct {
	NationalID     string `json:"nationalId"`
	FirstName      string `json:"firstName"`
	SecondName     string `json:"secondName"`
	ThirdName      string `json:"thirdName"`
	LastName       string `json:"lastName"`
	Phone          string `json:"phone"`
	ComputerNumber string `json:"computerNumber"`
	JobTitle       string `json:"jobTitle"`
	Workplace      string `json:"workplace"`
}

// Input converts the profile to a models.AttendeeInput.
func (p ProfileRequest) Input() models.AttendeeInput {
	return models.AttendeeInput{
		NationalID:     p.NationalID,
		FirstName:      p.FirstName,
		SecondName:     p.SecondName,
		ThirdName:      p.ThirdName,
		LastName:       p.LastName,
		Phone:          p.Phone,
		ComputerNumber: p.ComputerNumber,
		JobTitle:       p.JobTitle,
		Workplace:      p.Workplace,
	}
}

// RegisterRequest is the body for the public POST /attendees.
type RegisterRequest struct {
	CourseID string `json:"courseId"`
	DeviceID string `json:"deviceId"`
	ProfileRequest
}

// ManualRequest is the body for POST /courses/:id/attendees. DeviceID is optional.
type ManualRequest struct {
	DeviceID string `json:"deviceId"`
	ProfileRequest
}

// Handler handles attendee HTTP endpoints.
type Handler struct {
	registrar Registrar
	store     Store
	courses   CourseGetter
	notify    Notifier
	logger    *zap.Logger
	now       func() time.Time

	manualMu   sync.Mutex
	lastManual time.Time
}

// NewHandler creates an attendee handler. notify may be nil.
func NewHandler(registrar Registrar, store Store, courses CourseGetter, notify Notifier, logger *zap.Logger) *Handler {
	if notify == nil {
		notify = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registrar: registrar, store: store, courses: courses, notify: notify, logger: logger, now: time.Now}
}

// Register handles POST /attendees, the self-registration endpoint reached from the course QR code.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	// A malformed id can never match a course; it is reported like a missing one.
	var courseID uuid.UUID
	if s := strings.TrimSpace(req.CourseID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.NotFound(c, models.ErrCourseNotFound.Error())
			return
		}
		courseID = id
	}
	h.admit(c, admission.Request{CourseID: courseID, DeviceID: req.DeviceID, Attendee: req.Input()})
}

// CreateManual handles POST /courses/:id/attendees (admin). Without a deviceId
// the entry gets a fresh synthetic one, so it never counts against a real device.
func (h *Handler) CreateManual(c *gin.Context) {
	courseID, ok := parseID(c, "invalid course id")
	if !ok {
		return
	}
	var req ManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		deviceID = h.nextManualDeviceID()
	}
	h.admit(c, admission.Request{CourseID: courseID, DeviceID: deviceID, Attendee: req.Input()})
}

// nextManualDeviceID returns a synthetic device id whose millisecond stamp is
// strictly increasing within this process.
func (h *Handler) nextManualDeviceID() string {
	h.manualMu.Lock()
	defer h.manualMu.Unlock()
	t := h.now().Truncate(time.Millisecond)
	if !t.After(h.lastManual) {
		t = h.lastManual.Add(time.Millisecond)
	}
	h.lastManual = t
	return models.ManualDeviceID(t)
}

func (h *Handler) admit(c *gin.Context, req admission.Request) {
	a, err := h.registrar.Register(c.Request.Context(), req)
	if err != nil {
		var verr *models.ValidationError
		var qerr *admission.QuotaExceededError
		switch {
		case errors.As(err, &verr):
			response.Invalid(c, verr.Error(), verr.Fields)
		case errors.Is(err, models.ErrCourseNotFound):
			response.NotFound(c, err.Error())
		case errors.As(err, &qerr):
			response.BadRequest(c, qerr.Error())
		default:
			response.Internal(c, "failed to register attendee")
		}
		return
	}
	h.notify.Publish(a.CourseID, realtime.EventAttendeeCreated, a)
	response.Created(c, a)
}

// ListByCourse handles GET /courses/:id/attendees.
func (h *Handler) ListByCourse(c *gin.Context) {
	courseID, ok := parseID(c, "invalid course id")
	if !ok {
		return
	}
	if _, err := h.courses.GetByID(c.Request.Context(), courseID); err != nil {
		h.fail(c, "get course", err)
		return
	}
	list, err := h.store.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		h.fail(c, "list attendees", err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /attendees/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c, "invalid attendee id")
	if !ok {
		return
	}
	a, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get attendee", err)
		return
	}
	response.OK(c, a)
}

// Update handles PUT /attendees/:id. Course and device cannot be changed.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c, "invalid attendee id")
	if !ok {
		return
	}
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	in := req.Input()
	if err := in.Validate(); err != nil {
		verr := err.(*models.ValidationError)
		response.Invalid(c, verr.Error(), verr.Fields)
		return
	}
	a := &models.Attendee{ID: id}
	a.Apply(in)
	if err := h.store.Update(c.Request.Context(), a); err != nil {
		h.fail(c, "update attendee", err)
		return
	}
	h.notify.Publish(a.CourseID, realtime.EventAttendeeUpdated, a)
	response.OK(c, a)
}

// Delete handles DELETE /attendees/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "invalid attendee id")
	if !ok {
		return
	}
	courseID, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete attendee", err)
		return
	}
	payload := gin.H{"id": id, "courseId": courseID}
	h.notify.Publish(courseID, realtime.EventAttendeeDeleted, payload)
	response.OK(c, payload)
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, models.ErrCourseNotFound):
		response.NotFound(c, "course not found")
	case errors.Is(err, models.ErrAttendeeNotFound):
		response.NotFound(c, "attendee not found")
	default:
		h.logger.Error(op, zap.Error(err))
		response.Internal(c, "failed to "+op)
	}
}

func parseID(c *gin.Context, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, msg)
		return uuid.Nil, false
	}
	return id, true
}
