package exports

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qrcourses/backend/internal/auth"
	"github.com/qrcourses/backend/internal/models"
	"github.com/qrcourses/backend/pkg/queue"
	"github.com/qrcourses/backend/pkg/response"
	"github.com/qrcourses/backend/pkg/storage"
)

// Store persists export records.
type Store interface {
	Create(ctx context.Context, e *models.AttendeeExport) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AttendeeExport, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, key string, rows int) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// CourseGetter resolves courses.
type CourseGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
}

// AttendeeLister lists a course's attendees newest first.
type AttendeeLister interface {
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Attendee, error)
}

// Enqueuer schedules export jobs.
type Enqueuer interface {
	EnqueueExport(ctx context.Context, payload queue.ExportPayload) error
}

// Presigner issues temporary download links for archived exports.
type Presigner interface {
	ExportsBucket() string
	PresignExpire() time.Duration
	GeneratePresignedDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}

// Status is an export record with its download link once completed.
type Status struct {
	models.AttendeeExport
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// Handler handles attendee export endpoints.
type Handler struct {
	store     Store
	courses   CourseGetter
	attendees AttendeeLister
	queue     Enqueuer
	presigner Presigner
	logger    *zap.Logger
}

// NewHandler creates an export handler. queue and presigner may be nil, in
// which case archived exports are unavailable and only direct downloads work.
func NewHandler(store Store, courses CourseGetter, attendees AttendeeLister, q Enqueuer, presigner Presigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, courses: courses, attendees: attendees, queue: q, presigner: presigner, logger: logger}
}

// Download handles GET /courses/:id/attendees/export and streams the xlsx workbook.
func (h *Handler) Download(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	course, err := h.courses.GetByID(c.Request.Context(), courseID)
	if err != nil {
		h.fail(c, "get course", err)
		return
	}
	list, err := h.attendees.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		h.fail(c, "list attendees", err)
		return
	}
	buf, err := Workbook(course, list)
	if err != nil {
		h.fail(c, "build workbook", err)
		return
	}
	name := Filename(course)
	c.Header("Content-Disposition", `attachment; filename="attendees.xlsx"; filename*=UTF-8''`+url.PathEscape(name))
	c.Data(http.StatusOK, storage.XLSXContentType, buf.Bytes())
}

// Request handles POST /courses/:id/exports and queues an archive job.
func (h *Handler) Request(c *gin.Context) {
	if h.queue == nil || h.presigner == nil {
		response.ServiceUnavailable(c, "export archive is not configured")
		return
	}
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	e := &models.AttendeeExport{
		CourseID:    courseID,
		RequestedBy: c.MustGet(auth.ContextAdminID).(uuid.UUID),
	}
	if err := h.store.Create(c.Request.Context(), e); err != nil {
		h.fail(c, "create export", err)
		return
	}
	if err := h.queue.EnqueueExport(c.Request.Context(), queue.ExportPayload{ExportID: e.ID, CourseID: courseID}); err != nil {
		h.logger.Error("enqueue export", zap.String("export_id", e.ID.String()), zap.Error(err))
		_ = h.store.MarkFailed(c.Request.Context(), e.ID, "enqueue failed")
		response.Internal(c, "failed to queue export")
		return
	}
	h.logger.Info("export queued", zap.String("export_id", e.ID.String()), zap.String("course_id", courseID.String()))
	response.Accepted(c, e)
}

// Get handles GET /exports/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid export id")
		return
	}
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get export", err)
		return
	}
	out := Status{AttendeeExport: *e}
	if e.Status == models.ExportCompleted && e.S3Key != "" && h.presigner != nil {
		link, err := h.presigner.GeneratePresignedDownloadURL(c.Request.Context(), h.presigner.ExportsBucket(), e.S3Key, h.presigner.PresignExpire())
		if err != nil {
			h.fail(c, "presign export", err)
			return
		}
		out.DownloadURL = link
	}
	response.OK(c, out)
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, models.ErrCourseNotFound):
		response.NotFound(c, "course not found")
	case errors.Is(err, models.ErrExportNotFound):
		response.NotFound(c, "export not found")
	default:
		h.logger.Error(op, zap.Error(err))
		response.Internal(c, "failed to "+op)
	}
}
